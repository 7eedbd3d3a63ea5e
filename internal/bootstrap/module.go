package bootstrap

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"reviewdeck/internal/bootstrap/config"
	"reviewdeck/internal/bootstrap/database"
	"reviewdeck/internal/bootstrap/logging"
	"reviewdeck/internal/infrastructure/analysis"
	cacheinfra "reviewdeck/internal/infrastructure/cache"
	"reviewdeck/internal/infrastructure/notify"
	sqliterepo "reviewdeck/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "reviewdeck/internal/infrastructure/persistence/sqlite/uow"
	"reviewdeck/internal/infrastructure/scm"
	"reviewdeck/internal/ports"
	reviewuc "reviewdeck/internal/usecase/review"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(sqliterepo.NewRepositoryStore, fx.As(new(ports.RepositoryStore))),
		fx.Annotate(sqliterepo.NewReviewStore, fx.As(new(ports.ReviewStore))),
		fx.Annotate(sqliterepo.NewFindingStore, fx.As(new(ports.FindingStore))),
		fx.Annotate(sqliterepo.NewUserStore, fx.As(new(ports.UserStore))),
		fx.Annotate(sqliterepo.NewCommentStore, fx.As(new(ports.CommentStore))),
		fx.Annotate(sqliterepo.NewDeliveryStore, fx.As(new(ports.DeliveryStore))),
		fx.Annotate(sqliteuow.NewUnitOfWork, fx.As(new(ports.UnitOfWork))),
		fx.Annotate(cacheinfra.NewSQLiteCache, fx.As(new(ports.Cache))),
	),
	fx.Provide(provideSCMRegistry),
	fx.Provide(provideAnalyzer),
	fx.Provide(notify.NewHub),
	fx.Provide(providePublisher),
	fx.Provide(provideReviewService),
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

func provideSCMRegistry(cfg config.Config) (ports.SCMRegistry, error) {
	registry, err := scm.NewRegistry(cfg.Providers)
	if err != nil {
		return nil, err
	}
	return registry, nil
}

// provideAnalyzer falls back to the pattern-only analyzer when no model API
// key is configured.
func provideAnalyzer(ctx context.Context, cfg config.Config) (ports.CodeAnalyzer, error) {
	if cfg.Analysis.APIKey == "" {
		logging.Warn(ctx, "analysis api key is empty, using static analyzer only")
		return analysis.NewStaticAnalyzer(), nil
	}

	analyzer, err := analysis.NewAnalyzer(cfg.Analysis)
	if err != nil {
		return nil, err
	}
	return analyzer, nil
}

// providePublisher always fans out to the in-process hub (websocket
// subscribers) and additionally to NATS when a broker URL is configured.
func providePublisher(lc fx.Lifecycle, ctx context.Context, cfg config.Config, hub *notify.Hub) (ports.Publisher, error) {
	if cfg.Notify.NATSURL == "" {
		return hub, nil
	}

	nats, err := notify.NewNATSPublisher(cfg.Notify.NATSURL)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			nats.Close()
			return nil
		},
	})

	logging.Info(ctx, "nats publisher connected", slog.String("url", cfg.Notify.NATSURL))
	return notify.NewMulti(hub, nats), nil
}

type reviewServiceParams struct {
	fx.In

	Config       config.Config
	Repositories ports.RepositoryStore
	Reviews      ports.ReviewStore
	Findings     ports.FindingStore
	Users        ports.UserStore
	Comments     ports.CommentStore
	Deliveries   ports.DeliveryStore
	UnitOfWork   ports.UnitOfWork
	Cache        ports.Cache
	SCMs         ports.SCMRegistry
	Analyzer     ports.CodeAnalyzer
	Publisher    ports.Publisher
}

func provideReviewService(p reviewServiceParams) *reviewuc.Service {
	return reviewuc.NewService(reviewuc.Deps{
		Repositories:       p.Repositories,
		Reviews:            p.Reviews,
		Findings:           p.Findings,
		Users:              p.Users,
		Comments:           p.Comments,
		Deliveries:         p.Deliveries,
		UnitOfWork:         p.UnitOfWork,
		Cache:              p.Cache,
		SCMs:               p.SCMs,
		Analyzer:           p.Analyzer,
		Publisher:          p.Publisher,
		MaxConcurrentFiles: p.Config.Analysis.MaxConcurrentFiles,
	})
}
