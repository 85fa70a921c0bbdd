package repositories

import (
	"context"

	"github.com/folivafy/folivafy/internal/domain/grants"
	"github.com/folivafy/folivafy/internal/domain/search"
	"github.com/folivafy/folivafy/internal/infrastructure/database/models"
	"github.com/google/uuid"
)

// DeletedFilter selects documents by their logical-deletion state.
type DeletedFilter int

const (
	// ExcludeDeleted hides logically deleted documents (normal lists).
	ExcludeDeleted DeletedFilter = iota
	// OnlyDeleted shows only logically deleted documents (recoverables).
	OnlyDeleted
	// IncludeDeleted applies no deletion predicate (cron selection).
	IncludeDeleted
)

// DocumentListQuery describes one count-and-page listing.
//
// UserGrants nil means no grant predicate is applied (administrative views
// and the cron principal); an empty non-nil slice matches nothing.
type DocumentListQuery struct {
	CollectionID uuid.UUID
	ExactTitle   *string
	ExtraFields  []string
	Sort         string
	Filter       *search.Filter
	UserGrants   []grants.Grant
	Deleted      DeletedFilter
	Limit        int
	Offset       int
}

type CollectionRepository interface {
	Create(ctx context.Context, collection *models.Collection) error
	GetByName(ctx context.Context, name string) (*models.Collection, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Collection, error)
	List(ctx context.Context, limit, offset int) ([]models.Collection, int64, error)
}

type DocumentRepository interface {
	Insert(ctx context.Context, document *models.Document) error
	UpdateFields(ctx context.Context, documentID uuid.UUID, f models.JSONB) error
	GetByID(ctx context.Context, collectionID, documentID uuid.UUID) (*models.Document, error)
	// LockForUpdate loads the document under a row-level exclusive lock.
	// Only meaningful inside a transaction.
	LockForUpdate(ctx context.Context, documentID uuid.UUID) (*models.Document, error)
	// CountAndList runs the two listing queries: a total count and one page
	// with the body reduced to title plus the requested extra fields.
	CountAndList(ctx context.Context, query DocumentListQuery) (int64, []models.Document, error)
	// ListAll loads every document of a collection with its full body.
	// Meant for administrative maintenance, not request serving.
	ListAll(ctx context.Context, collectionID uuid.UUID) ([]models.Document, error)
}

type EventRepository interface {
	Append(ctx context.Context, event *models.Event) error
	// ListByDocument returns the document's events, newest first.
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.Event, error)
}

type GrantRepository interface {
	// Replace atomically swaps the stored grants of a document.
	Replace(ctx context.Context, documentID uuid.UUID, newGrants []grants.Grant) error
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.Grant, error)
}

// Store bundles the repositories and the transaction boundary. Within
// WithTransaction the passed Store runs all operations on the same
// transaction; returning an error rolls it back.
type Store interface {
	Collections() CollectionRepository
	Documents() DocumentRepository
	Events() EventRepository
	Grants() GrantRepository
	WithTransaction(ctx context.Context, fn func(tx Store) error) error
}
