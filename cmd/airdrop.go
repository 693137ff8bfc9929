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

var airdropCmd = &cobra.Command{
	Use:   "airdrop",
	Short: "Pay sBTC rewards to verified prospects",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *pipeline.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if !dryRun {
			if err := requireSigner(app); err != nil {
				return err
			}
		}

		limit, _ := cmd.Flags().GetInt("limit")
		prospectID, _ := cmd.Flags().GetUint64("prospect")
		amount, _ := cmd.Flags().GetInt64("amount")

		result, err := svc.Airdrop(ctx, pipeline.AirdropInput{
			Limit:      limit,
			ProspectID: prospectID,
			AmountSats: amount,
			DryRun:     dryRun,
		})
		// Batch-abort conditions are normal empty outcomes, not failures.
		switch {
		case errors.Is(err, pipeline.ErrDailyPayoutBudgetExhausted):
			fmt.Fprintln(cmd.OutOrStdout(), "airdrop skipped: daily payout budget exhausted")
			return nil
		case errors.Is(err, pipeline.ErrTreasuryBelowReserve):
			fmt.Fprintln(cmd.OutOrStdout(), "airdrop skipped: treasury balance at or below reserve floor")
			return nil
		case err != nil:
			return errs.Wrap(err, "airdrop")
		}

		out := cmd.OutOrStdout()
		if _, err := fmt.Fprintf(
			out,
			"airdrop run=%s sent=%d confirmed=%d planned=%d skipped=%d failed=%d\n",
			result.RunID,
			result.Sent,
			result.Confirmed,
			result.Planned,
			result.Skipped,
			result.Failed,
		); err != nil {
			return errs.Wrap(err, "write airdrop output")
		}
		for _, item := range result.Items {
			switch {
			case item.Skipped != "":
				fmt.Fprintf(out, "  %-20s skipped: %s\n", item.Username, item.Skipped)
			case item.Failed != "" && item.TxID == "":
				fmt.Fprintf(out, "  %-20s failed: %s\n", item.Username, item.Failed)
			case item.Planned:
				fmt.Fprintf(out, "  %-20s would receive %d sats (tier %s)\n", item.Username, item.AmountSats, item.Tier)
			default:
				fmt.Fprintf(out, "  %-20s %d sats tx=%s status=%s\n", item.Username, item.AmountSats, item.TxID, item.Status)
			}
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(airdropCmd)

	airdropCmd.Flags().Int("limit", 0, "Max payouts this run (0 = up to daily budget)")
	airdropCmd.Flags().Uint64("prospect", 0, "Pay a single prospect by id")
	airdropCmd.Flags().Int64("amount", 0, "Override the tier amount in sats")
	airdropCmd.Flags().Bool("dry-run", false, "Plan payouts without calling the chain")
}
