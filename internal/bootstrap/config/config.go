package config

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"reviewdeck/internal/bootstrap/logging"
	"reviewdeck/internal/errs"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Notify    NotifyConfig    `mapstructure:"notify"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`

	// Webhook authentication. Empty secret means verification is skipped
	// for that provider, which is an operational fallback and logged as
	// such at startup.
	GitHubWebhookSecret string `mapstructure:"github_webhook_secret"`
	GitLabWebhookToken  string `mapstructure:"gitlab_webhook_token"`
}

type ProviderConfig struct {
	Token   string `mapstructure:"token"`
	BaseURL string `mapstructure:"base_url"`
}

type ProvidersConfig struct {
	GitHub    ProviderConfig `mapstructure:"github"`
	GitLab    ProviderConfig `mapstructure:"gitlab"`
	Bitbucket ProviderConfig `mapstructure:"bitbucket"`
}

type AnalysisConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`

	// MaxConcurrentFiles bounds the per-review analysis fan-out.
	MaxConcurrentFiles int `mapstructure:"max_concurrent_files"`

	// StaleReviewAfter is the reaper cutoff for reviews stuck IN_PROGRESS.
	StaleReviewAfter time.Duration `mapstructure:"stale_review_after"`
}

type NotifyConfig struct {
	NATSURL string `mapstructure:"nats_url"`
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

	v.SetEnvPrefix("RD")
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
	if cfg.Analysis.MaxConcurrentFiles <= 0 {
		cfg.Analysis.MaxConcurrentFiles = 4
	}

	if cfg.Server.GitHubWebhookSecret == "" {
		logging.Warn(logCtx, "github webhook secret is empty, signature verification disabled")
	}
	if cfg.Server.GitLabWebhookToken == "" {
		logging.Warn(logCtx, "gitlab webhook token is empty, token verification disabled")
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("server_addr", cfg.Server.Addr),
	)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "reviewdeck")
	v.SetDefault("app.env", "local")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/reviewdeck.sqlite")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("providers.github.base_url", "")
	v.SetDefault("providers.gitlab.base_url", "https://gitlab.com")
	v.SetDefault("providers.bitbucket.base_url", "https://api.bitbucket.org/2.0")
	v.SetDefault("analysis.model", "gpt-4o-mini")
	v.SetDefault("analysis.max_concurrent_files", 4)
	v.SetDefault("analysis.stale_review_after", "30m")
}
