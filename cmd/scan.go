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

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover prospects from GitHub repository searches",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *pipeline.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		if err := requireGithubToken(app); err != nil {
			return err
		}

		queries, _ := cmd.Flags().GetStringSlice("query")
		perQuery, _ := cmd.Flags().GetInt("per-query")

		result, err := svc.Scan(ctx, pipeline.ScanInput{
			Queries:       queries,
			PerQueryLimit: perQuery,
		})
		if err != nil {
			return errs.Wrap(err, "scan")
		}

		if _, err := fmt.Fprintf(
			cmd.OutOrStdout(),
			"scan run=%s queries=%d discovered=%d created=%d known=%d\n",
			result.RunID,
			result.Queried,
			result.Discovered,
			result.Created,
			result.Known,
		); err != nil {
			return errs.Wrap(err, "write scan output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringSlice("query", nil, "Override campaign search queries (repeatable)")
	scanCmd.Flags().Int("per-query", 30, "Max repositories fetched per query")
}
