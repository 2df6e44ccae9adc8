// Package app wires configuration, persistence, notification and the
// track service into one process-level value shared by the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/abhisek/trackwise/internal/config"
	"github.com/abhisek/trackwise/internal/curriculum"
	"github.com/abhisek/trackwise/internal/llm"
	"github.com/abhisek/trackwise/internal/notify"
	"github.com/abhisek/trackwise/internal/store"
	"github.com/abhisek/trackwise/internal/store/postgres"
	"github.com/abhisek/trackwise/internal/track"
)

// App owns the open backend and the services built on it.
type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Backend store.Backend
	Service *track.Service

	redis *notify.Redis
}

// Open connects to the configured backend: Postgres when DatabaseURL is
// set, otherwise SQLite at DBPath. Unlocks are logged and, when RedisURL
// is set, published to Redis.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	var err error
	if cfg.DatabaseURL != "" {
		a.Backend, err = postgres.Open(ctx, cfg.DatabaseURL)
	} else {
		a.Backend, err = store.Open(cfg.DBPath)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	notifiers := notify.Multi{notify.NewLog(logger)}
	if cfg.RedisURL != "" {
		a.redis, err = notify.NewRedis(ctx, cfg.RedisURL, cfg.RedisChannel)
		if err != nil {
			a.Backend.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		notifiers = append(notifiers, a.redis)
	}

	deps := track.NewStoreAdapter(a.Backend).Deps()
	deps.Notifier = notifiers
	deps.Logger = logger

	svcCfg := track.DefaultConfig()
	svcCfg.Location = cfg.Location
	svcCfg.DayStart = cfg.DayStart
	svcCfg.Estimator = cfg.Estimator
	a.Service = track.NewService(deps, svcCfg)
	return a, nil
}

// Generator returns a study-plan generator backed by the configured LLM
// provider. Calls are recorded in the backend's LLM request log.
func (a *App) Generator(ctx context.Context) (*curriculum.Generator, error) {
	p, err := llm.NewProvider(ctx, a.Config.LLM, a.Backend.LLMEventRepo(), a.Logger)
	if err != nil {
		return nil, fmt.Errorf("LLM provider not configured: %w", err)
	}
	return curriculum.NewGenerator(p, curriculum.DefaultGeneratorConfig()), nil
}

// Recent returns the last unlocks published for a track, or nil when
// Redis is not configured.
func (a *App) Recent(ctx context.Context, trackID string, limit int) ([]notify.Unlock, error) {
	if a.redis == nil {
		return nil, nil
	}
	return a.redis.Recent(ctx, trackID, limit)
}

// Close releases the backend and Redis connections.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.Backend.Close())
	return errors.Join(errs...)
}
