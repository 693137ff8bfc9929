package cmd

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"agentdrop/internal/bootstrap"
	"agentdrop/internal/bootstrap/logging"
	"agentdrop/internal/errs"
	"agentdrop/internal/usecase/pipeline"
)

func withApp(run func(cmd *cobra.Command, app *bootstrap.App, svc *pipeline.Service) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := logging.WithAttrs(
			cmd.Context(),
			slog.String("command", cmd.CommandPath()),
			slog.String("config_file", cfgFile),
		)

		var app *bootstrap.App
		var svc *pipeline.Service
		fxApp := fx.New(
			bootstrap.Module,
			fx.Provide(func() context.Context { return ctx }),
			fx.Provide(
				fx.Annotate(
					func() string { return cfgFile },
					fx.ResultTags(`name:"configFile"`),
				),
			),
			fx.Populate(&app, &svc),
		)

		startCtx, cancelStart := context.WithTimeout(ctx, 10*time.Second)
		defer cancelStart()
		if err := fxApp.Start(startCtx); err != nil {
			logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start fx application")
		}

		defer func() {
			stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelStop()
			if err := fxApp.Stop(stopCtx); err != nil {
				logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
			}
		}()

		if err := run(cmd, app, svc); err != nil {
			return errs.Wrap(err, "run command")
		}
		return nil
	}
}

// requireGithubToken guards commands that talk to the GitHub API.
func requireGithubToken(app *bootstrap.App) error {
	if app.Config.Github.Token == "" {
		return errors.New("github.token is required (set AGENTDROP_GITHUB_TOKEN or config)")
	}
	return nil
}

// requireSigner guards commands that broadcast transfers.
func requireSigner(app *bootstrap.App) error {
	if app.Config.Network.SignerURL == "" {
		return errors.New("network.signer_url is required (set AGENTDROP_NETWORK_SIGNER_URL or config)")
	}
	if app.Config.Network.TreasuryAddress == "" {
		return errors.New("network.treasury_address is required")
	}
	return nil
}
