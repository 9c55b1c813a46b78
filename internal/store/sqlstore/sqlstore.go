// Package sqlstore is a gorm-backed RecordStore for deployments that keep
// questionnaires and reports out of the vector index.
package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/dossier-backend/internal/domain"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/store"
)

type Record struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)"`
	Kind      string         `gorm:"index;not null;type:varchar(32)"`
	Title     string         `gorm:"not null"`
	Payload   datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"not null;index"`
}

func (Record) TableName() string { return "records" }

type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

// OpenSQLite opens (and creates) a SQLite database file. ":memory:" is accepted.
func OpenSQLite(log *logger.Logger, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("missing SQLITE_PATH")
	}
	return open(log, sqlite.Open(path))
}

func OpenPostgres(log *logger.Logger, dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("missing POSTGRES_DSN")
	}
	return open(log, postgres.Open(dsn))
}

func open(log *logger.Logger, dialector gorm.Dialector) (*Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	gormLog := gormLogger.New(
		stdLogger(),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to open record database: %w", err)
	}
	return New(log, db)
}

// New wraps an existing connection and migrates the records table.
func New(log *logger.Logger, db *gorm.DB) (*Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate records table: %w", err)
	}
	return &Store{db: db, log: log.With("service", "SQLRecordStore")}, nil
}

func (s *Store) Save(ctx context.Context, kind domain.RecordKind, title string, payload any) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("invalid record kind %q", kind)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", kind, err)
	}
	rec := &Record{
		ID:      uuid.NewString(),
		Kind:    string(kind),
		Title:   title,
		Payload: datatypes.JSON(raw),
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return "", fmt.Errorf("save %s: %w", kind, err)
	}
	s.log.Info("Record saved", "kind", kind, "id", rec.ID, "title", title)
	return rec.ID, nil
}

func (s *Store) List(ctx context.Context, kind domain.RecordKind) ([]store.Record, error) {
	var rows []Record
	if err := s.db.WithContext(ctx).
		Where("kind = ?", string(kind)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	out := make([]store.Record, 0, len(rows))
	for _, r := range rows {
		if !json.Valid(r.Payload) {
			s.log.Warn("Skipping malformed record", "kind", kind, "id", r.ID)
			continue
		}
		out = append(out, toRecord(r))
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, kind domain.RecordKind, id string) (store.Record, error) {
	var row Record
	err := s.db.WithContext(ctx).
		Where("id = ? AND kind = ?", strings.TrimSpace(id), string(kind)).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.Record{}, store.ErrNotFound
	}
	if err != nil {
		return store.Record{}, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	return toRecord(row), nil
}

func (s *Store) Delete(ctx context.Context, kind domain.RecordKind, id string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND kind = ?", strings.TrimSpace(id), string(kind)).
		Delete(&Record{})
	if res.Error != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, res.Error)
	}
	s.log.Info("Record deleted", "kind", kind, "id", id, "rows", res.RowsAffected)
	return nil
}

func toRecord(r Record) store.Record {
	return store.Record{
		ID:      r.ID,
		Kind:    domain.RecordKind(r.Kind),
		Title:   r.Title,
		Payload: json.RawMessage(r.Payload),
	}
}

func stdLogger() gormLogger.Writer {
	return log.New(os.Stdout, "\r\n", log.LstdFlags)
}

var _ store.RecordStore = (*Store)(nil)

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
