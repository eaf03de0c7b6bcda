// Package bootstrap wires configuration, storage and the classification pipeline
// shared by the HTTP service and the Telegram bot.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"afval-classifier/api/internal/afval"
	"afval-classifier/api/internal/afval/gemini"
	"afval-classifier/api/internal/afval/local"
	"afval-classifier/api/internal/afval/mock"
	"afval-classifier/api/internal/config"
	"afval-classifier/api/internal/prompt"
	"afval-classifier/api/internal/settings"
	"afval-classifier/api/internal/store"
)

const purgeInterval = time.Hour

type Runtime struct {
	Config   *config.Config
	Logger   *slog.Logger
	Settings *settings.Service
	Service  *afval.Service
	// History is nil without a database.
	History *store.ClassificationRepo

	db    *sql.DB
	redis *redis.Client
}

func NewRuntime(ctx context.Context, cfg *config.Config, service string) (*Runtime, error) {
	logger := cfg.Logger(service)
	slog.SetDefault(logger)
	rt := &Runtime{Config: cfg, Logger: logger}

	codec, err := settings.CodecFor(cfg.SettingsFormat)
	if err != nil {
		return nil, err
	}
	files, err := settings.NewFileRepository(cfg.SettingsDir, codec)
	if err != nil {
		return nil, err
	}

	var (
		repo     settings.Repository = files
		analysis *store.AnalysisRepo
	)
	if cfg.DatabaseURL != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		rt.db = db
		logger.Info("db connected", "dsn", config.SafeDSNSummary(cfg.DatabaseURL))
		if err := store.Migrate(ctx, db); err != nil {
			rt.Close()
			return nil, err
		}
		sr := store.NewSettingsRepo(db)
		n, err := sr.Seed(ctx, files)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("seed settings: %w", err)
		}
		if n > 0 {
			logger.Info("settings seeded from files", "documents", n)
		}
		repo = sr
		analysis = store.NewAnalysisRepo(db)
		rt.History = store.NewClassificationRepo(db)
	}

	opts := []settings.ServiceOption{settings.WithTTL(cfg.SettingsTTL), settings.WithLogger(logger)}
	if cfg.RedisURL != "" {
		client, err := settings.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.redis = client
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, settings cache will miss", "err", err)
		}
		opts = append(opts, settings.WithCache(settings.NewRedisCache(client, "")))
	}
	rt.Settings = settings.NewService(repo, opts...)

	u := rt.Settings.Universe(ctx)

	ps := prompt.Default()
	if cfg.PromptFile != "" {
		if ps, err = prompt.Load(cfg.PromptFile); err != nil {
			rt.Close()
			return nil, err
		}
	}

	localOpts := []local.Option{local.WithLogger(logger)}
	if lo, hi := rt.Settings.ImageSizeLimits(ctx); lo > 0 && hi > lo {
		localOpts = append(localOpts, local.WithSizeLimits(lo, hi))
	}
	scorer := local.New(u, localOpts...)

	var validator afval.Validator
	if cfg.GeminiAPIKey != "" {
		validator = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel, u, ps, gemini.WithLogger(logger))
		if analysis != nil {
			validator = afval.NewCachedValidator(validator, u, analysis, cfg.GeminiModel, cfg.AnalysisMaxAge, logger)
		}
	} else {
		logger.Warn("GEMINI_API_KEY not set, using mock validator")
		validator = mock.New(u)
	}

	rt.Service = afval.NewService(u, scorer, validator, logger)
	logger.Info("classifier ready",
		"categories", u.Len(),
		"scorer", scorer.Name(),
		"validator", validator.Name(),
		"history", rt.History != nil,
	)
	return rt, nil
}

// PurgeLoop deletes history older than the configured retention until ctx is done.
// It returns immediately when there is nothing to purge.
func (rt *Runtime) PurgeLoop(ctx context.Context) error {
	if rt.History == nil || rt.Config.HistoryRetention <= 0 {
		return nil
	}
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		n, err := rt.History.PurgeOlderThan(ctx, rt.Config.HistoryRetention)
		if err != nil {
			rt.Logger.WarnContext(ctx, "history purge failed", "err", err)
		} else if n > 0 {
			rt.Logger.InfoContext(ctx, "history purged", "rows", n)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func (rt *Runtime) Close() {
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
	if rt.db != nil {
		_ = rt.db.Close()
	}
}
