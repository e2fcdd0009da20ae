package credstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Entry is the row persisted by the sqlite store.
type Entry struct {
	Name      string `gorm:"primaryKey;size:191"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName implements gorm's tabler interface.
func (Entry) TableName() string {
	return "ovh_credentials"
}

type sqliteStore struct {
	db    *gorm.DB
	owned bool
}

// OpenSQLite opens the database at dsn and builds a store on it. The
// connection is closed by Close.
func OpenSQLite(dsn string) (Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s, err := newSQLite(db)
	if err != nil {
		return nil, err
	}

	s.owned = true
	return s, nil
}

// NewSQLite builds a store on an existing gorm handle and migrates the
// table. Close leaves the handle open.
func NewSQLite(db *gorm.DB) (Store, error) {
	return newSQLite(db)
}

func newSQLite(db *gorm.DB) (*sqliteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Get(ctx context.Context, key string) (string, error) {
	var entry Entry

	err := s.db.WithContext(ctx).Where("name = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	return entry.Value, nil
}

func (s *sqliteStore) Set(ctx context.Context, key, value string) error {
	entry := Entry{Name: key, Value: value, UpdatedAt: time.Now()}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).
		Error
}

func (s *sqliteStore) Remove(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("name = ?", key).Delete(&Entry{}).Error
}

func (s *sqliteStore) Close() error {
	if !s.owned {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
