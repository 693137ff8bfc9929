package bootstrap

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"agentdrop/internal/bootstrap/config"
	"agentdrop/internal/bootstrap/database"
	"agentdrop/internal/bootstrap/logging"
	"agentdrop/internal/infrastructure/githubapi"
	"agentdrop/internal/infrastructure/mirror"
	sqliterepo "agentdrop/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "agentdrop/internal/infrastructure/persistence/sqlite/uow"
	"agentdrop/internal/infrastructure/stacks"
	"agentdrop/internal/ports"
	"agentdrop/internal/usecase/pipeline"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewProspectRepository,
			fx.As(new(ports.ProspectRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewDailyLimitsRepository,
			fx.As(new(ports.DailyLimitsRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewActivityRepository,
			fx.As(new(ports.ActivityLogRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			provideCodeHost,
			fx.As(new(ports.CodeHost)),
		),
	),
	fx.Provide(
		fx.Annotate(
			provideChainClient,
			fx.As(new(ports.ChainClient)),
		),
	),
	fx.Provide(
		fx.Annotate(
			provideMirrorClient,
			fx.As(new(ports.MirrorClient)),
		),
	),
	fx.Provide(provideCampaign),
	fx.Provide(pipeline.NewService),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

func provideCodeHost(cfg config.Config) *githubapi.Client {
	return githubapi.NewClient(cfg.Github.Token)
}

func provideChainClient(cfg config.Config) *stacks.Client {
	return stacks.NewClient(cfg.Network)
}

func provideMirrorClient(cfg config.Config) *mirror.Client {
	return mirror.NewClient(cfg.Mirror)
}

func provideCampaign(cfg config.Config) (pipeline.Campaign, error) {
	return pipeline.LoadCampaign(cfg.Campaign.File)
}
