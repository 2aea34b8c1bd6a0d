// Package app assembles a pipeline runner and its optional side effects
// from configuration. Both commands share it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"crypto-sentinel/internal/bot"
	"crypto-sentinel/internal/cache"
	"crypto-sentinel/internal/collector"
	"crypto-sentinel/internal/config"
	"crypto-sentinel/internal/db"
	"crypto-sentinel/internal/pipeline"
	"crypto-sentinel/internal/provider"
	"crypto-sentinel/internal/report"
	"crypto-sentinel/internal/repository"
	"crypto-sentinel/internal/sentiment"
	"crypto-sentinel/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

var (
	initRedisFunc      = cache.InitRedis
	initPostgresFunc   = db.InitPostgres
	newS3PublisherFunc = report.NewS3Publisher
	newNotifierFunc    = bot.NewNotifier
	runMigrationsFunc  = func(ctx context.Context, repo *repository.RunRepository) error {
		return repo.RunMigrations(ctx)
	}
)

// App holds the wired runner plus the shared services the server exposes.
type App struct {
	Runner  *pipeline.Runner
	Prices  *service.PriceService
	Mood    *provider.FearGreedProvider
	History *repository.RunRepository

	redis *redis.Client
	pool  *pgxpool.Pool
}

// Build wires every component named by cfg. Optional integrations that
// fail to initialize are logged and left out; only an invalid source list
// is fatal.
func Build(ctx context.Context, cfg *config.Config, tracer trace.Tracer, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{}

	sources, err := collector.BuildSources(tracer, cfg)
	if err != nil {
		return nil, fmt.Errorf("build post sources: %w", err)
	}

	if cfg.RedisURL != "" {
		client, err := initRedisFunc(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, price cache disabled", "error", err)
		} else {
			a.redis = client
		}
	}
	coingecko := provider.NewCoinGeckoProvider(tracer, cfg.CoinGeckoBaseURL, cfg.RequestTimeout)
	if a.redis != nil {
		a.Prices = service.NewPriceService(tracer, coingecko, a.redis, cfg.PriceCacheTTL)
	} else {
		a.Prices = service.NewPriceService(tracer, coingecko, nil, cfg.PriceCacheTTL)
	}

	a.Mood = provider.NewFearGreedProvider(tracer, cfg.FearGreedBaseURL, cfg.RequestTimeout)

	opts := sentiment.Options{
		Thresholds: sentiment.Thresholds{Positive: cfg.PositiveThreshold, Negative: cfg.NegativeThreshold},
		Workers:    cfg.ScoreWorkers,
		Logger:     logger,
	}
	if refiner := sentiment.NewOpenAIRefiner(cfg.OpenAIAPIKey, cfg.OpenAIModel); refiner != nil {
		opts.Refiner = refiner
		logger.Info("openai polarity refinement enabled", "model", cfg.OpenAIModel)
	}

	deps := pipeline.Deps{
		Prices: a.Prices,
		Posts:  collector.New(tracer, logger, sources, collector.Config{MinPosts: cfg.MinPosts, Dedup: cfg.DedupPosts}),
		Scorer: sentiment.NewAnalyzer(tracer, sentiment.NewCryptoLexicon(), opts),
		Writer: report.NewWriter(tracer, cfg.ReportsDir),
	}

	if cfg.DatabaseURL != "" {
		if repo := a.initHistory(ctx, cfg, tracer, logger); repo != nil {
			a.History = repo
			deps.Store = repo
		}
	}

	if cfg.S3Bucket != "" {
		publisher, err := newS3PublisherFunc(ctx, tracer, report.S3Config{
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
		if err != nil {
			logger.Warn("s3 unavailable, report upload disabled", "error", err)
		} else {
			deps.Publisher = publisher
		}
	}

	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		notifier, err := newNotifierFunc(tracer, cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			logger.Warn("telegram unavailable, run notifications disabled", "error", err)
		} else {
			deps.Notifier = notifier
		}
	}

	a.Runner = pipeline.NewRunner(tracer, logger, deps, pipeline.Config{MaxPosts: cfg.MaxPosts})
	return a, nil
}

func (a *App) initHistory(ctx context.Context, cfg *config.Config, tracer trace.Tracer, logger *slog.Logger) *repository.RunRepository {
	pool, err := initPostgresFunc(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Warn("postgres unavailable, run history disabled", "error", err)
		return nil
	}
	repo := repository.NewRunRepository(pool, tracer)
	if err := runMigrationsFunc(ctx, repo); err != nil {
		logger.Warn("run history migration failed, run history disabled", "error", err)
		pool.Close()
		return nil
	}
	a.pool = pool
	return repo
}

// Close releases connections opened by Build.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			slog.Warn("close redis", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
