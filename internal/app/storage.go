package app

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/kart-session/internal/domain/cart"
	"github.com/xenking/kart-session/internal/storage/file"
	"github.com/xenking/kart-session/internal/storage/memory"
	"github.com/xenking/kart-session/internal/storage/postgres"
	"github.com/xenking/kart-session/pkg/health"
)

// Backend is an opened snapshot repository.
type Backend struct {
	Repository cart.Repository
	// Ping is nil for backends without connectivity to check.
	Ping  health.CheckFunc
	Close func()
}

// OpenBackend opens the repository selected by cfg.
func OpenBackend(ctx context.Context, lg *zap.Logger, cfg StorageConfig, databaseURL string) (*Backend, error) {
	switch cfg.Backend {
	case BackendMemory:
		lg.Warn("Using in-memory snapshot storage; sessions are lost on restart")
		return &Backend{Repository: memory.New(), Close: func() {}}, nil

	case BackendFile:
		repo, err := file.New(cfg.Dir, file.Options{Compress: cfg.Compress})
		if err != nil {
			return nil, errors.Wrap(err, "open file storage")
		}
		lg.Info("Using file snapshot storage", zap.String("dir", cfg.Dir), zap.Bool("compress", cfg.Compress))
		return &Backend{Repository: repo, Ping: health.PingCheck(repo), Close: func() {}}, nil

	case BackendPostgres:
		pool, err := postgres.NewPool(ctx, databaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		repo := postgres.NewSnapshotRepository(pool)
		lg.Info("Using postgres snapshot storage")
		return &Backend{Repository: repo, Ping: health.PingCheck(repo), Close: pool.Close}, nil

	default:
		return nil, errors.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
