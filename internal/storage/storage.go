// Package storage opens the kv.SlotStore selected by configuration.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rpggio/tally/internal/config"
	"github.com/rpggio/tally/internal/domain/activity"
	"github.com/rpggio/tally/internal/kv"
	"github.com/rpggio/tally/internal/kv/memory"
	"github.com/rpggio/tally/internal/redisstore"
	"github.com/rpggio/tally/internal/sqlite"
)

// Open returns the configured slot store. Callers must Close it.
func Open(ctx context.Context, cfg config.StorageConfig) (kv.SlotStore, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		if err := ensureDBDir(cfg.Path); err != nil {
			return nil, fmt.Errorf("prepare database path: %w", err)
		}
		db, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrationsContext(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return sqlite.NewSlotStore(db), nil
	case config.BackendRedis:
		return redisstore.Dial(ctx, redisstore.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	case config.BackendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// ActivityOptions translates the activity section of the configuration into
// service options.
func ActivityOptions(cfg config.ActivityConfig) []activity.Option {
	return []activity.Option{
		activity.WithSlotKey(cfg.SlotKey),
		activity.WithMaxEntries(cfg.MaxEntries),
		activity.WithRecentLimit(cfg.RecentLimit),
		activity.WithMaxWriteRetries(cfg.MaxWriteRetries),
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
