package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"staysync/core/reconcile"
	"staysync/feature/calendarsync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	syncMode   string
	syncDryRun bool
	syncOutput string
)

// syncCmd is the parent command for one-off sync runs.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a calendar sync now",
	Long: `Fetches the selected feeds and reconciles them against the internal calendar.

Examples:
  # Sweep every active feed, importing new stays as holds
  staysync sync all

  # Preview the decisions for one property without writing
  staysync sync property 4f1c... --dry-run --output yaml

  # Import one feed as confirmed bookings
  staysync sync feed 9a2e... --mode confirmed`,
}

var syncAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Sync every active feed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context(), func(ctx context.Context, svc *calendarsync.Service, req calendarsync.RunRequest) (*reconcile.RunSummary, error) {
			return svc.RunAll(ctx, req)
		})
	},
}

var syncPropertyCmd = &cobra.Command{
	Use:   "property <property-id>",
	Short: "Sync the active feeds of one property",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context(), func(ctx context.Context, svc *calendarsync.Service, req calendarsync.RunRequest) (*reconcile.RunSummary, error) {
			return svc.RunProperty(ctx, args[0], req)
		})
	},
}

var syncFeedCmd = &cobra.Command{
	Use:   "feed <feed-id>",
	Short: "Sync one active feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context(), func(ctx context.Context, svc *calendarsync.Service, req calendarsync.RunRequest) (*reconcile.RunSummary, error) {
			return svc.RunFeed(ctx, args[0], req)
		})
	},
}

func init() {
	syncCmd.PersistentFlags().StringVar(&syncMode, "mode", "", "Status for new bookings: hold or confirmed (default from config)")
	syncCmd.PersistentFlags().BoolVar(&syncDryRun, "dry-run", false, "Resolve and report decisions without writing")
	syncCmd.PersistentFlags().StringVarP(&syncOutput, "output", "o", "text", "Report format: text, json or yaml")

	syncCmd.AddCommand(syncAllCmd, syncPropertyCmd, syncFeedCmd)
	RootCmd.AddCommand(syncCmd)
}

type syncFunc func(ctx context.Context, svc *calendarsync.Service, req calendarsync.RunRequest) (*reconcile.RunSummary, error)

func runSync(ctx context.Context, run syncFunc) error {
	switch syncOutput {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", syncOutput)
	}

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.withEngine(ctx); err != nil {
		return err
	}

	svc := calendarsync.NewService(rt.engine, rt.store, rt.logger)
	started := time.Now()
	summary, err := run(ctx, svc, calendarsync.RunRequest{Mode: syncMode, DryRun: syncDryRun})
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	rt.logger.Info("Sync completed",
		zap.String("run_id", summary.RunID),
		zap.Bool("ok", summary.OK),
		zap.Int("imported", summary.TotalImported),
		zap.Duration("execution_time", time.Since(started)),
	)

	if err := writeSummary(os.Stdout, summary, syncOutput); err != nil {
		return err
	}
	if !summary.OK {
		return fmt.Errorf("run %s finished with failed feeds", summary.RunID)
	}
	return nil
}

// writeSummary renders a run summary in the requested format.
func writeSummary(w io.Writer, s *reconcile.RunSummary, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return enc.Close()
	}

	fmt.Fprintf(w, "\n=== Sync Run %s ===\n", s.RunID)
	fmt.Fprintf(w, "Trigger: %s  Mode: %s  Dry Run: %t\n", s.Trigger, s.Mode, s.DryRun)
	fmt.Fprintf(w, "Feeds: %d  Imported: %d  OK: %t\n", len(s.Feeds), s.TotalImported, s.OK)
	for _, f := range s.Feeds {
		status := "ok"
		if !f.OK {
			status = "error: " + f.Error
		}
		fmt.Fprintf(w, "  feed %s (%s): found=%d created=%d updated=%d unchanged=%d cancelled=%d skipped=%d unassigned=%d failed=%d [%s]\n",
			f.FeedID, f.Provider, f.EventsFound, f.Created, f.Updated, f.Unchanged, f.Cancelled, f.Skipped, f.Unassigned, f.Failed, status)
	}
	for _, sk := range s.Skipped {
		fmt.Fprintf(w, "  account %s skipped: %s (retry in %s)\n", sk.AccountID, sk.Reason, sk.CooldownRemaining)
	}
	return nil
}
