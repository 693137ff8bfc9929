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

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show funnel totals and today's budget consumption",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *pipeline.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		stats, err := svc.Stats(ctx)
		if err != nil {
			return errs.Wrap(err, "stats")
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "prospects total=%d\n", stats.Total)
		fmt.Fprintf(out, "tiers      A=%d B=%d C=%d D=%d\n",
			stats.ByTier["A"], stats.ByTier["B"], stats.ByTier["C"], stats.ByTier["D"])
		fmt.Fprintf(out, "outreach   pending=%d pr_opened=%d pr_merged=%d pr_closed=%d declined=%d\n",
			stats.ByOutreach["pending"], stats.ByOutreach["pr_opened"],
			stats.ByOutreach["pr_merged"], stats.ByOutreach["pr_closed"], stats.ByOutreach["declined"])
		fmt.Fprintf(out, "payouts    pending=%d sent=%d confirmed=%d failed=%d\n",
			stats.ByPayout["pending"], stats.ByPayout["sent"],
			stats.ByPayout["confirmed"], stats.ByPayout["failed"])
		fmt.Fprintf(out, "today      %s prs=%d/%d payouts=%d/%d\n",
			stats.Today, stats.PRsToday, stats.MaxDailyPRs, stats.PayoutsToday, stats.MaxPayouts)
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
