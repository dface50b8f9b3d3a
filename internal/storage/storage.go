// Package storage persists prediction history through gorm. PostgreSQL and
// SQLite are supported and picked from the DSN.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/nam-ha/human-detection-app/internal/models"
	"github.com/nam-ha/human-detection-app/internal/query"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when no record has the requested id
var ErrNotFound = errors.New("record not found")

type HistoryStore struct {
	db *gorm.DB
}

// Dialector picks the gorm driver for a DSN
func Dialector(dsn string) (gorm.Dialector, error) {
	switch {
	case dsn == "":
		return nil, fmt.Errorf("empty database DSN")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgres.Open(dsn), nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite://")), nil
	case strings.HasPrefix(dsn, "file:"), dsn == ":memory:",
		strings.HasSuffix(dsn, ".db"), strings.HasSuffix(dsn, ".sqlite"), strings.HasSuffix(dsn, ".sqlite3"):
		return sqlite.Open(dsn), nil
	case strings.Contains(dsn, "="):
		// key=value connection string
		return postgres.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database DSN %q", dsn)
}

// Open connects to the database and migrates the schema
func Open(ctx context.Context, dsn string) (*HistoryStore, error) {
	dialector, err := Dialector(dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(
			slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func New(db *gorm.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Migrate creates or updates the predictions table
func (s *HistoryStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&models.PredictionRecord{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Add inserts a record and sets its QueryID. Time is stored in UTC with
// second precision, and defaults to now.
func (s *HistoryStore) Add(ctx context.Context, rec *models.PredictionRecord) error {
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}
	rec.Time = rec.Time.Truncate(time.Second).UTC()

	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (s *HistoryStore) Get(ctx context.Context, id uint) (*models.PredictionRecord, error) {
	var rec models.PredictionRecord
	err := s.db.WithContext(ctx).First(&rec, "query_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %d: %w", id, err)
	}
	return &rec, nil
}

// Update sets the given columns on an existing record
func (s *HistoryStore) Update(ctx context.Context, id uint, fields map[string]any) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).
		Model(&models.PredictionRecord{}).
		Where("query_id = ?", id).
		Updates(fields).Error
	if err != nil {
		return fmt.Errorf("failed to update record %d: %w", id, err)
	}
	return nil
}

func (s *HistoryStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.PredictionRecord{}, "query_id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete record %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Query returns one page of matching records ordered by query_id, and the
// number of matches before pagination
func (s *HistoryStore) Query(ctx context.Context, q query.HistoryQuery) ([]models.PredictionRecord, int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.PredictionRecord{}).
		Scopes(filters(q)).
		Count(&total).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count records: %w", err)
	}

	records := []models.PredictionRecord{}
	err = s.db.WithContext(ctx).
		Scopes(filters(q)).
		Order("query_id ASC").
		Offset(q.Offset()).
		Limit(q.PageSize).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query records: %w", err)
	}

	return records, total, nil
}

// All returns every matching record ordered by query_id, ignoring pagination
func (s *HistoryStore) All(ctx context.Context, q query.HistoryQuery) ([]models.PredictionRecord, error) {
	records := []models.PredictionRecord{}
	err := s.db.WithContext(ctx).
		Scopes(filters(q)).
		Order("query_id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	return records, nil
}

func (s *HistoryStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.Close()
}

func filters(q query.HistoryQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if q.QueryID.Set {
			db = db.Where("query_id = ?", q.QueryID.Value)
		}
		// Stored times are UTC
		if q.TimeMin.Set {
			db = db.Where(`"time" >= ?`, q.TimeMin.Value.UTC())
		}
		if q.TimeMax.Set {
			db = db.Where(`"time" <= ?`, q.TimeMax.Value.UTC())
		}
		if q.NumHumansMin.Set {
			db = db.Where("num_humans >= ?", q.NumHumansMin.Value)
		}
		if q.NumHumansMax.Set {
			db = db.Where("num_humans <= ?", q.NumHumansMax.Value)
		}
		return db
	}
}
