package postgresql

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/folivafy/folivafy/internal/domain/repositories"
	"github.com/folivafy/folivafy/internal/infrastructure/database"
)

// Store is the gorm-backed implementation of repositories.Store. The same
// type serves both the connection-scoped store and transaction-scoped
// stores handed to WithTransaction callbacks.
type Store struct {
	db       *gorm.DB
	postgres bool

	collections *CollectionRepository
	documents   *DocumentRepository
	events      *EventRepository
	grants      *GrantRepository
}

// NewStore creates a store over the shared connection.
func NewStore(db *database.DB) *Store {
	return newStore(db.DB, db.IsPostgres())
}

func newStore(db *gorm.DB, postgres bool) *Store {
	s := &Store{db: db, postgres: postgres}
	s.collections = &CollectionRepository{store: s}
	s.documents = &DocumentRepository{store: s}
	s.events = &EventRepository{store: s}
	s.grants = &GrantRepository{store: s}
	return s
}

func (s *Store) Collections() repositories.CollectionRepository {
	return s.collections
}

func (s *Store) Documents() repositories.DocumentRepository {
	return s.documents
}

func (s *Store) Events() repositories.EventRepository {
	return s.events
}

func (s *Store) Grants() repositories.GrantRepository {
	return s.grants
}

// WithTransaction runs fn on a transaction-scoped store. An error from fn
// rolls the transaction back; nil commits.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx repositories.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newStore(tx, s.postgres))
	})
}

// HealthCheck verifies database connectivity
func (s *Store) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	// 23505 is the postgres unique-violation code; sqlite reports the
	// constraint by name.
	return strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
