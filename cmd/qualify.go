package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"agentdrop/internal/bootstrap"
	"agentdrop/internal/bootstrap/logging"
	"agentdrop/internal/errs"
	"agentdrop/internal/usecase/pipeline"
)

var qualifyCmd = &cobra.Command{
	Use:   "qualify",
	Short: "Score pending prospects and assign tiers",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *pipeline.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		prospectID, _ := cmd.Flags().GetUint64("prospect")
		minTier, _ := cmd.Flags().GetString("min-tier")
		limit, _ := cmd.Flags().GetInt("limit")

		result, err := svc.Qualify(ctx, pipeline.QualifyInput{
			ProspectID: prospectID,
			MinTier:    minTier,
			Limit:      limit,
		})
		if err != nil {
			return errs.Wrap(err, "qualify")
		}

		out := cmd.OutOrStdout()
		if _, err := fmt.Fprintf(out, "qualify run=%s processed=%d\n", result.RunID, result.Processed); err != nil {
			return errs.Wrap(err, "write qualify output")
		}
		for _, item := range result.Items {
			if _, err := fmt.Fprintf(
				out,
				"  %-20s score=%-3d tier=%s hooks=%s\n",
				item.Username,
				item.Score,
				item.Tier,
				strings.Join(item.Hooks, "; "),
			); err != nil {
				return errs.Wrap(err, "write qualify output")
			}
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(qualifyCmd)

	qualifyCmd.Flags().Uint64("prospect", 0, "Re-qualify a single prospect by id")
	qualifyCmd.Flags().String("min-tier", "", "Only report prospects at or above this tier (A/B/C/D)")
	qualifyCmd.Flags().Int("limit", 0, "Max prospects to process (0 = all pending)")
}
