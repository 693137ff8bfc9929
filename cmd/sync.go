package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"agentdrop/internal/bootstrap"
	"agentdrop/internal/bootstrap/logging"
	"agentdrop/internal/errs"
	"agentdrop/internal/usecase/pipeline"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push prospect snapshots to the dashboard mirror",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *pipeline.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		result, err := svc.Sync(ctx)
		if err != nil {
			return errs.Wrap(err, "sync")
		}

		if result.Skipped {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), "sync skipped: no mirror configured"); err != nil {
				return errs.Wrap(err, "write sync output")
			}
			return nil
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "sync run=%s prospects=%d\n", result.RunID, result.Pushed); err != nil {
			return errs.Wrap(err, "write sync output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
