package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"agentdrop/internal/bootstrap"
	"agentdrop/internal/bootstrap/logging"
	"agentdrop/internal/errs"
	"agentdrop/internal/usecase/pipeline"
)

var outreachCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Open invitation pull requests for qualified prospects",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *pipeline.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if !dryRun {
			if err := requireGithubToken(app); err != nil {
				return err
			}
		}

		limit, _ := cmd.Flags().GetInt("limit")
		tier, _ := cmd.Flags().GetString("tier")
		prospectID, _ := cmd.Flags().GetUint64("prospect")

		result, err := svc.Outreach(ctx, pipeline.OutreachInput{
			Limit:      limit,
			ProspectID: prospectID,
			Tier:       tier,
			DryRun:     dryRun,
		})
		if errors.Is(err, pipeline.ErrDailyPRBudgetExhausted) {
			// A spent budget is a normal end of day, not a failure.
			fmt.Fprintln(cmd.OutOrStdout(), "outreach skipped: daily pull request budget exhausted")
			return nil
		}
		if err != nil {
			return errs.Wrap(err, "outreach")
		}

		out := cmd.OutOrStdout()
		if _, err := fmt.Fprintf(
			out,
			"outreach run=%s delivered=%d planned=%d skipped=%d failed=%d\n",
			result.RunID,
			result.Delivered,
			result.Planned,
			result.Skipped,
			result.Failed,
		); err != nil {
			return errs.Wrap(err, "write outreach output")
		}
		for _, item := range result.Items {
			switch {
			case item.Skipped != "":
				fmt.Fprintf(out, "  %-20s skipped: %s\n", item.Username, item.Skipped)
			case item.Failed != "":
				fmt.Fprintf(out, "  %-20s failed: %s\n", item.Username, item.Failed)
			case item.Planned:
				fmt.Fprintf(out, "  %-20s would target %s\n", item.Username, item.TargetRepo)
			default:
				fmt.Fprintf(out, "  %-20s pr opened %s\n", item.Username, item.PRURL)
			}
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(outreachCmd)

	outreachCmd.Flags().Int("limit", 0, "Max deliveries this run (0 = up to daily budget)")
	outreachCmd.Flags().Uint64("prospect", 0, "Deliver to a single prospect by id")
	outreachCmd.Flags().String("tier", "", "Restrict to one tier (A/B/C)")
	outreachCmd.Flags().Bool("dry-run", false, "Plan deliveries without touching GitHub")
}
