// Package vkapi is the REST client for the remote social platform. It issues
// one bulk profile lookup per batch and single-identifier counter lookups,
// gating every call through a shared rate gate and classifying failures.
package vkapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/vk-watch/pkg/ratelimit"
	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for platform calls.
var (
	vkRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vk_requests_total",
		Help: "Total platform requests by method and status",
	}, []string{"method", "status"})

	vkRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vk_request_duration_seconds",
		Help:    "Platform request duration in seconds by method",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	vkErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vk_errors_total",
		Help: "Total platform errors by method and class",
	}, []string{"method", "class"})
)

// placeholderToken is the value shipped in sample .env files.
const placeholderToken = "your_token_here"

// Client is the platform API client.
type Client struct {
	http   *resty.Client
	gate   *ratelimit.Gate
	quota  *ratelimit.Tracker
	config Config
	logger zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// AccessToken is the user or service token sent with every call.
	AccessToken string

	// APIVersion is the protocol version parameter "v".
	APIVersion string

	// BaseURL is the method endpoint root, e.g. "https://api.vk.com/method".
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// RequestsPerSecond caps call rate across all methods (0 disables the gate).
	RequestsPerSecond float64

	// PrimaryTimeout bounds one bulk profile lookup.
	PrimaryTimeout time.Duration

	// AuxiliaryTimeout bounds one counter lookup.
	AuxiliaryTimeout time.Duration

	// Quota is optional; when set, methods reporting error 29 are skipped
	// until the block expires.
	Quota *ratelimit.Tracker
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(accessToken string) Config {
	return Config{
		AccessToken:       accessToken,
		APIVersion:        "5.199",
		BaseURL:           "https://api.vk.com/method",
		UserAgent:         "vk-watch/0.1.0",
		RequestsPerSecond: ratelimit.DefaultRequestsPerSecond,
		PrimaryTimeout:    10 * time.Second,
		AuxiliaryTimeout:  5 * time.Second,
	}
}

// ValidToken reports whether token is set and is not the sample placeholder.
func ValidToken(token string) bool {
	token = strings.TrimSpace(token)
	return token != "" && token != placeholderToken
}

// New creates a new platform client.
func New(cfg Config) (*Client, error) {
	if !ValidToken(cfg.AccessToken) {
		return nil, ErrMissingToken
	}

	if cfg.APIVersion == "" {
		return nil, fmt.Errorf("api version is required")
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	if cfg.PrimaryTimeout <= 0 || cfg.AuxiliaryTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be positive")
	}

	logger := log.With().Str("component", "vk-client").Logger()

	httpClient := resty.New()
	httpClient.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	httpClient.SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		httpClient.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &Client{
		http:   httpClient,
		gate:   ratelimit.NewGate(cfg.RequestsPerSecond, ratelimit.DefaultBurst),
		quota:  cfg.Quota,
		config: cfg,
		logger: logger,
	}, nil
}

// envelope is the common response wrapper: exactly one of Response or Error is set.
type envelope struct {
	Response json.RawMessage `json:"response"`
	Error    *struct {
		Code    int    `json:"error_code"`
		Message string `json:"error_msg"`
	} `json:"error"`
}

// call performs one method call and decodes the "response" member into out.
func (c *Client) call(ctx context.Context, method string, params map[string]string, timeout time.Duration, out any) error {
	allowed, err := c.quota.Allow(ctx, method)
	if err != nil {
		c.logger.Warn().Err(err).Str("method", method).Msg("Quota check failed - proceeding")
	} else if !allowed {
		vkRequestsTotal.WithLabelValues(method, "quota_skipped").Inc()
		return fmt.Errorf("%s: %w", method, ErrQuotaExhausted)
	}

	if err := c.gate.Wait(ctx); err != nil {
		return &TransportError{Method: method, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c.logger.Debug().Str("method", method).Msg("Executing platform request")

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("access_token", c.config.AccessToken).
		SetQueryParam("v", c.config.APIVersion).
		Get("/" + method)
	vkRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if err != nil {
		vkRequestsTotal.WithLabelValues(method, "network_error").Inc()
		vkErrorsTotal.WithLabelValues(method, string(ErrorClassTransient)).Inc()
		return &TransportError{Method: method, Err: err}
	}

	if resp.IsError() {
		vkRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode())).Inc()
		vkErrorsTotal.WithLabelValues(method, string(ErrorClassTransient)).Inc()
		return &TransportError{Method: method, StatusCode: resp.StatusCode()}
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		vkRequestsTotal.WithLabelValues(method, "malformed").Inc()
		vkErrorsTotal.WithLabelValues(method, string(ErrorClassUnexpected)).Inc()
		return fmt.Errorf("%s: %w: %v", method, ErrMalformedResponse, err)
	}

	if env.Error != nil {
		apiErr := &APIError{Method: method, Code: env.Error.Code, Message: env.Error.Message}
		vkRequestsTotal.WithLabelValues(method, "api_error").Inc()
		vkErrorsTotal.WithLabelValues(method, string(Classify(apiErr))).Inc()

		if apiErr.Code == ErrCodeRateLimitReached {
			until := time.Now().Add(ratelimit.QuotaBlockDuration)
			if err := c.quota.Block(ctx, method, apiErr.Message, until); err != nil {
				c.logger.Warn().Err(err).Str("method", method).Msg("Failed to record quota block")
			}
		}
		return apiErr
	}

	vkRequestsTotal.WithLabelValues(method, "ok").Inc()

	if out == nil {
		return nil
	}
	if len(env.Response) == 0 || string(env.Response) == "null" {
		return fmt.Errorf("%s: %w: empty response", method, ErrMalformedResponse)
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return fmt.Errorf("%s: %w: %v", method, ErrMalformedResponse, err)
	}
	return nil
}
