package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sternrassler/vk-watch/pkg/pipeline"
	"github.com/spf13/cobra"
)

var (
	runIDs  []int64
	runJSON bool
)

func init() {
	runCmd.Flags().Int64SliceVar(&runIDs, "id", nil, "Platform ids to enrich instead of the database watch list (dry run, nothing written to PostgreSQL or the snapshot cache).")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the emitted records as JSON.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--id <platform id>]... [--json]",
	Short: "Runs the enrichment pipeline once over the watch list.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, runIDs)
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.pipeline.RunFromStore(ctx, a.watchList)
		if err != nil {
			return err
		}

		if runJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(records); err != nil {
				return fmt.Errorf("encode records: %w", err)
			}
		}

		printSummary(cmd, a.pipeline.LastSummary())
		return nil
	},
}

func printSummary(cmd *cobra.Command, s pipeline.Summary) {
	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "run %s: %d entries, %d resolved, %d unresolved, %d emitted, %d persist failures in %s\n",
		s.RunID, s.Entries, s.Resolved, s.Unresolved, s.Emitted, s.PersistFailures, s.Duration.Round(time.Millisecond))
	if s.NoData {
		fmt.Fprintln(out, "no data: the bulk lookup resolved no entries")
	}
}
