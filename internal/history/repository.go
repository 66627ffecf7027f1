package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ollama-chat/internal/config"
)

// DefaultRecentLimit is the number of entries served by the recent view.
const DefaultRecentLimit = 10

var ErrNotFound = errors.New("history entry not found")

// Repository stores chat exchanges.
//
// FindAll, FindByModel and FindSince return entries oldest first; FindRecent
// returns the newest first.
type Repository interface {
	Save(ctx context.Context, entry *Entry) error
	FindByID(ctx context.Context, id int64) (*Entry, error)
	FindAll(ctx context.Context) ([]Entry, error)
	FindRecent(ctx context.Context, limit int) ([]Entry, error)
	FindByModel(ctx context.Context, model string) ([]Entry, error)
	FindSince(ctx context.Context, since time.Time) ([]Entry, error)
	DeleteAll(ctx context.Context) error
	Close() error
}

// Open returns the repository selected by cfg.Driver.
func Open(cfg config.StorageConfig, logger zerolog.Logger) (Repository, error) {
	switch cfg.Driver {
	case config.StorageSQLite, config.StoragePostgres:
		db, err := NewDB(cfg)
		if err != nil {
			return nil, err
		}
		repo, err := NewGormRepository(db)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("driver", cfg.Driver).Msg("history database ready")
		return repo, nil

	case config.StorageFile:
		repo := NewFileRepository(cfg.Path, cfg.MaxEntries)
		if err := repo.Load(); err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.Path).Msg("history file loaded")
		return repo, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
