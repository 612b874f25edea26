package gormstore

import (
	"context"
	"errors"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/paybackfitness/authapi/internal/authapi/domain"
	"github.com/paybackfitness/authapi/internal/authapi/store"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store is the gorm-backed implementation of store.Store over sqlite.
type Store struct {
	db *gorm.DB
}

// Open connects to the sqlite database at dsn. Use ":memory:" for tests.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Migrate creates or updates the schema for all models.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&domain.User{},
		&domain.Referral{},
	)
}

func (s *Store) Users() store.Users         { return users{db: s.db} }
func (s *Store) Referrals() store.Referrals { return referrals{db: s.db} }

// WithTx runs fn inside a single gorm transaction. The transaction-scoped
// Store shares no state with the parent beyond the underlying connection.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translateErr maps gorm errors onto the store sentinel errors. The string
// fallback covers sqlite unique violations the dialector does not translate.
func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrAlreadyExists
	case strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return store.ErrAlreadyExists
	default:
		return err
	}
}
