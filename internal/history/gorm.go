package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ollama-chat/internal/config"
	"ollama-chat/internal/logging"
)

// NewDB opens a GORM connection for the sqlite or postgres driver.
func NewDB(cfg config.StorageConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case config.StoragePostgres:
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.DSN,
			PreferSimpleProtocol: true,
		})

	case config.StorageSQLite:
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.Path)

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return db, nil
}

// GormRepository implements Repository using GORM.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository migrates the messages table and returns the repository.
func NewGormRepository(db *gorm.DB) (*GormRepository, error) {
	if err := db.AutoMigrate(&entryModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history table: %w", err)
	}
	return &GormRepository{db: db}, nil
}

// Save inserts the entry and fills in its ID.
func (r *GormRepository) Save(ctx context.Context, entry *Entry) error {
	l := logging.Ctx(ctx)

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	model := entryToModel(entry)
	model.ID = 0
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		l.Error().Err(err).Msg("failed to save history entry")
		return fmt.Errorf("failed to save history entry: %w", err)
	}

	entry.ID = model.ID
	l.Debug().Int64(logging.FieldMessageID, entry.ID).Msg("history entry saved")
	return nil
}

func (r *GormRepository) FindByID(ctx context.Context, id int64) (*Entry, error) {
	var model entryModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get history entry: %w", err)
	}
	entry := model.toEntry()
	return &entry, nil
}

func (r *GormRepository) FindAll(ctx context.Context) ([]Entry, error) {
	return r.find(r.db.WithContext(ctx).Order("timestamp ASC, id ASC"))
}

func (r *GormRepository) FindRecent(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = DefaultRecentLimit
	}
	return r.find(r.db.WithContext(ctx).Order("timestamp DESC, id DESC").Limit(limit))
}

func (r *GormRepository) FindByModel(ctx context.Context, model string) ([]Entry, error) {
	return r.find(r.db.WithContext(ctx).Where("model = ?", model).Order("timestamp ASC, id ASC"))
}

func (r *GormRepository) FindSince(ctx context.Context, since time.Time) ([]Entry, error) {
	return r.find(r.db.WithContext(ctx).Where("timestamp > ?", since).Order("timestamp ASC, id ASC"))
}

func (r *GormRepository) find(query *gorm.DB) ([]Entry, error) {
	var models []entryModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	entries := make([]Entry, len(models))
	for i := range models {
		entries[i] = models[i].toEntry()
	}
	return entries, nil
}

// DeleteAll removes every entry.
func (r *GormRepository) DeleteAll(ctx context.Context) error {
	err := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entryModel{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return nil
}

func (r *GormRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
