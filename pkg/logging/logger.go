// Package logging configures zerolog for vk-watch and builds the scoped
// loggers the pipeline writes through. Every line carries a "component"
// field; lines emitted during a run also carry "run_id", and per-entry and
// per-lookup lines add the entry's ids and the lookup name.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is a level name as read from LOG_LEVEL.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Field names shared by every component.
const (
	FieldComponent  = "component"
	FieldRunID      = "run_id"
	FieldLocalID    = "local_id"
	FieldPlatformID = "platform_id"
	FieldMethod     = "method"
	FieldLookup     = "lookup"
	FieldOutcome    = "outcome"
	FieldErrorCode  = "error_code"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level written; unknown names mean info.
	Level LogLevel

	// Pretty switches from JSON lines to zerolog's console writer.
	Pretty bool

	// Output defaults to os.Stderr so stdout stays free for command output.
	Output io.Writer
}

// DefaultConfig returns JSON output at info level on stderr.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Output: os.Stderr}
}

// Setup installs the global logger and level and returns the logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	return log.Logger
}

func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger derives a component logger from the global one.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str(FieldComponent, component).Logger()
}

// ForRun scopes logger to one pipeline run.
func ForRun(logger zerolog.Logger, runID string) zerolog.Logger {
	return logger.With().Str(FieldRunID, runID).Logger()
}

// ForEntry scopes logger to one watch entry.
func ForEntry(logger zerolog.Logger, localID, platformID int64) zerolog.Logger {
	return logger.With().Int64(FieldLocalID, localID).Int64(FieldPlatformID, platformID).Logger()
}

// ForLookup scopes an entry logger to one auxiliary lookup and its outcome.
func ForLookup(logger zerolog.Logger, lookup, outcome string) zerolog.Logger {
	return logger.With().Str(FieldLookup, lookup).Str(FieldOutcome, outcome).Logger()
}

// Level guidelines:
//
// Debug: successful lookups with their counts, quota and gate decisions,
// schema migration output.
//
// Info: run start and completion, processed entries, counters hidden by
// privacy settings, watch-mode startup and shutdown.
//
// Warn: unresolved entries, failed bulk lookup groups, transient and
// unexpected lookup outcomes, quota blocks.
//
// Error: persistence failures, configuration errors, failed watch-mode runs.
