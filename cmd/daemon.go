package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"

	"agentdrop/internal/bootstrap"
	"agentdrop/internal/bootstrap/logging"
	"agentdrop/internal/errs"
	"agentdrop/internal/usecase/pipeline"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the full pipeline on a schedule until interrupted",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *pipeline.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		if err := requireGithubToken(app); err != nil {
			return err
		}

		sched, err := gocron.NewScheduler()
		if err != nil {
			return errs.Wrap(err, "create scheduler")
		}

		daemon := app.Config.Daemon
		jobs := []struct {
			name     string
			interval gocron.JobDefinition
			run      func(context.Context) error
		}{
			{"scan", gocron.DurationJob(daemon.ScanInterval), func(ctx context.Context) error {
				_, err := svc.Scan(ctx, pipeline.ScanInput{})
				return err
			}},
			{"pipeline", gocron.DurationJob(daemon.PipelineInterval), func(ctx context.Context) error {
				return runPipelineStage(ctx, svc)
			}},
			{"verify", gocron.DurationJob(daemon.VerifyInterval), func(ctx context.Context) error {
				_, err := svc.Verify(ctx, pipeline.VerifyInput{})
				return err
			}},
			{"sync", gocron.DurationJob(daemon.SyncInterval), func(ctx context.Context) error {
				_, err := svc.Sync(ctx)
				return err
			}},
		}

		for _, job := range jobs {
			name := job.name
			run := job.run
			jobCtx := logging.WithAttrs(ctx, slog.String("job", name))
			if _, err := sched.NewJob(job.interval, gocron.NewTask(func() {
				if err := run(jobCtx); err != nil {
					logging.Error(jobCtx, "scheduled job failed", slog.Any("error", err))
					return
				}
				logging.Info(jobCtx, "scheduled job finished")
			})); err != nil {
				return errs.Wrapf(err, "register %s job", name)
			}
		}

		sched.Start()
		logging.Info(
			ctx,
			"daemon started",
			slog.Duration("scan_interval", daemon.ScanInterval),
			slog.Duration("pipeline_interval", daemon.PipelineInterval),
			slog.Duration("verify_interval", daemon.VerifyInterval),
			slog.Duration("sync_interval", daemon.SyncInterval),
		)

		<-ctx.Done()

		if err := sched.Shutdown(); err != nil {
			return errs.Wrap(err, "shutdown scheduler")
		}
		logging.Info(ctx, "daemon stopped")
		return nil
	}),
}

// runPipelineStage advances every prospect one step: score new discoveries,
// open invitations, then pay whoever has a verified address. Budget
// exhaustion is a normal outcome for a scheduled run, not a failure.
func runPipelineStage(ctx context.Context, svc *pipeline.Service) error {
	if _, err := svc.Qualify(ctx, pipeline.QualifyInput{}); err != nil {
		return errs.Wrap(err, "qualify")
	}
	if _, err := svc.Outreach(ctx, pipeline.OutreachInput{}); err != nil {
		if !errors.Is(err, pipeline.ErrDailyPRBudgetExhausted) {
			return errs.Wrap(err, "outreach")
		}
		logging.Info(ctx, "outreach budget exhausted for today")
	}
	if _, err := svc.Airdrop(ctx, pipeline.AirdropInput{}); err != nil {
		switch {
		case errors.Is(err, pipeline.ErrDailyPayoutBudgetExhausted):
			logging.Info(ctx, "payout budget exhausted for today")
		case errors.Is(err, pipeline.ErrTreasuryBelowReserve):
			logging.Warn(ctx, "treasury below reserve, payouts paused")
		default:
			return errs.Wrap(err, "airdrop")
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
