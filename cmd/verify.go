package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"agentdrop/internal/bootstrap"
	"agentdrop/internal/bootstrap/logging"
	"agentdrop/internal/errs"
	"agentdrop/internal/usecase/pipeline"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check invitation replies for wallet addresses",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *pipeline.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		prospectID, _ := cmd.Flags().GetUint64("prospect")
		address, _ := cmd.Flags().GetString("address")
		if prospectID != 0 || address != "" {
			if prospectID == 0 || address == "" {
				return errs.Wrap(fmt.Errorf("--prospect and --address must be set together"), "manual verify")
			}
			if err := svc.ManualVerify(ctx, prospectID, address); err != nil {
				return errs.Wrap(err, "manual verify")
			}
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "prospect %d verified with %s\n", prospectID, address); err != nil {
				return errs.Wrap(err, "write verify output")
			}
			return nil
		}

		if err := requireGithubToken(app); err != nil {
			return err
		}

		prURL, _ := cmd.Flags().GetString("pr")
		limit, _ := cmd.Flags().GetInt("limit")
		poll, _ := cmd.Flags().GetBool("poll")
		interval, _ := cmd.Flags().GetDuration("interval")

		runOnce := func() error {
			result, err := svc.Verify(ctx, pipeline.VerifyInput{
				PRURL: prURL,
				Limit: limit,
			})
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(
				cmd.OutOrStdout(),
				"verify run=%s checked=%d verified=%d invalid=%d\n",
				result.RunID,
				result.Checked,
				result.Verified,
				result.Invalid,
			); err != nil {
				return errs.Wrap(err, "write verify output")
			}
			return nil
		}

		if !poll {
			return runOnce()
		}

		if interval <= 0 {
			interval = 10 * time.Minute
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if err := runOnce(); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return errs.Wrap(ctx.Err(), "verify poll loop stopped")
			case <-ticker.C:
			}
		}
	}),
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().String("pr", "", "Verify a single prospect by pull request URL")
	verifyCmd.Flags().Int("limit", 0, "Max prospects to check (0 = all awaiting)")
	verifyCmd.Flags().Bool("poll", false, "Keep polling instead of a single pass")
	verifyCmd.Flags().Duration("interval", 10*time.Minute, "Polling interval")
	verifyCmd.Flags().Uint64("prospect", 0, "Manually verify this prospect id (with --address)")
	verifyCmd.Flags().String("address", "", "Wallet address for manual verification")
}
