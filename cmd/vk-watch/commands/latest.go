package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/Sternrassler/vk-watch/pkg/cache"
	"github.com/Sternrassler/vk-watch/pkg/profile"
	"github.com/spf13/cobra"
)

var latestFromCache bool

func init() {
	latestCmd.Flags().BoolVar(&latestFromCache, "cache", false, "Read from the Redis snapshot cache instead of PostgreSQL.")
	rootCmd.AddCommand(latestCmd)
}

var latestCmd = &cobra.Command{
	Use:   "latest [--cache]",
	Short: "Prints the latest captured record of every watched user as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := openStores(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		var records []profile.EnrichedRecord
		switch {
		case latestFromCache:
			if a.cache == nil {
				return errors.New("REDIS_URL is required with --cache")
			}
			records, err = cachedRecords(cmd, a.cache)
		case a.postgres != nil:
			snapshots, qerr := a.postgres.LatestSnapshots(ctx)
			for _, s := range snapshots {
				records = append(records, s.Record)
			}
			err = qerr
		default:
			return errors.New("DATABASE_URL is required")
		}
		if err != nil {
			return err
		}
		sort.Slice(records, func(i, j int) bool { return records[i].LocalID < records[j].LocalID })

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("encode records: %w", err)
		}
		return nil
	},
}

func cachedRecords(cmd *cobra.Command, m *cache.Manager) ([]profile.EnrichedRecord, error) {
	ids, err := m.LocalIDs(cmd.Context())
	if err != nil {
		return nil, err
	}

	records := make([]profile.EnrichedRecord, 0, len(ids))
	for _, id := range ids {
		entry, err := m.Get(cmd.Context(), id)
		if errors.Is(err, cache.ErrCacheMiss) {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, entry.Record)
	}
	return records, nil
}
