package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"agentdrop/internal/bootstrap/logging"
	"agentdrop/internal/errs"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Github   GithubConfig   `mapstructure:"github"`
	Network  NetworkConfig  `mapstructure:"network"`
	Outreach OutreachConfig `mapstructure:"outreach"`
	Payout   PayoutConfig   `mapstructure:"payout"`
	Campaign CampaignConfig `mapstructure:"campaign"`
	Mirror   MirrorConfig   `mapstructure:"mirror"`
	Server   ServerConfig   `mapstructure:"server"`
	Daemon   DaemonConfig   `mapstructure:"daemon"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type GithubConfig struct {
	Token       string `mapstructure:"token"`
	BotUsername string `mapstructure:"bot_username"`
}

// NetworkConfig selects the Stacks environment. Name must be mainnet or
// testnet; SignerURL points at the treasury signing service that builds and
// broadcasts transfers on our behalf.
type NetworkConfig struct {
	Name            string `mapstructure:"name"`
	APIURL          string `mapstructure:"api_url"`
	SignerURL       string `mapstructure:"signer_url"`
	SignerToken     string `mapstructure:"signer_token"`
	TreasuryAddress string `mapstructure:"treasury_address"`
}

type OutreachConfig struct {
	MaxDailyPRs int           `mapstructure:"max_daily_prs"`
	Branch      string        `mapstructure:"branch"`
	FilePath    string        `mapstructure:"file_path"`
	BaseBranch  string        `mapstructure:"base_branch"`
	Delay       time.Duration `mapstructure:"delay"`
}

// PayoutConfig amounts are in sats (smallest sBTC denomination).
type PayoutConfig struct {
	AmountTierA     int64         `mapstructure:"amount_tier_a"`
	AmountTierB     int64         `mapstructure:"amount_tier_b"`
	AmountTierC     int64         `mapstructure:"amount_tier_c"`
	MinReserve      int64         `mapstructure:"min_reserve"`
	MaxDaily        int           `mapstructure:"max_daily"`
	ConfirmAttempts int           `mapstructure:"confirm_attempts"`
	ConfirmInterval time.Duration `mapstructure:"confirm_interval"`
	Delay           time.Duration `mapstructure:"delay"`
}

type CampaignConfig struct {
	File string `mapstructure:"file"`
}

type MirrorConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type DaemonConfig struct {
	ScanInterval     time.Duration `mapstructure:"scan_interval"`
	PipelineInterval time.Duration `mapstructure:"pipeline_interval"`
	VerifyInterval   time.Duration `mapstructure:"verify_interval"`
	SyncInterval     time.Duration `mapstructure:"sync_interval"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("AGENTDROP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// Keep default and env-backed config when no file is provided.
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if cfg.Database.DSN == "" {
		return Config{}, errors.New("database.dsn is required")
	}
	switch cfg.Network.Name {
	case "mainnet", "testnet":
	default:
		return Config{}, fmt.Errorf("network.name must be mainnet or testnet, got %q", cfg.Network.Name)
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("network", cfg.Network.Name),
		slog.String("database_driver", cfg.Database.Driver),
	)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "agentdrop")
	v.SetDefault("app.env", "local")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".agentdrop/state/prospects.sqlite")
	v.SetDefault("github.bot_username", "agentdrop-bot")
	v.SetDefault("network.name", "testnet")
	v.SetDefault("network.api_url", "https://api.testnet.hiro.so")
	v.SetDefault("outreach.max_daily_prs", 10)
	v.SetDefault("outreach.branch", "agentdrop-invite")
	v.SetDefault("outreach.file_path", "AGENTDROP_INVITE.md")
	v.SetDefault("outreach.base_branch", "main")
	v.SetDefault("outreach.delay", 5*time.Second)
	v.SetDefault("payout.amount_tier_a", int64(10000))
	v.SetDefault("payout.amount_tier_b", int64(5000))
	v.SetDefault("payout.amount_tier_c", int64(2000))
	v.SetDefault("payout.min_reserve", int64(50000))
	v.SetDefault("payout.max_daily", 5)
	v.SetDefault("payout.confirm_attempts", 10)
	v.SetDefault("payout.confirm_interval", 30*time.Second)
	v.SetDefault("payout.delay", 3*time.Second)
	v.SetDefault("campaign.file", "configs/campaign.toml")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("daemon.scan_interval", 6*time.Hour)
	v.SetDefault("daemon.pipeline_interval", time.Hour)
	v.SetDefault("daemon.verify_interval", 10*time.Minute)
	v.SetDefault("daemon.sync_interval", 30*time.Minute)
}
