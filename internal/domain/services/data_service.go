package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/folivafy/folivafy/internal/domain/dto"
	"github.com/folivafy/folivafy/internal/domain/repositories"
)

// DataService is the read-only accessor handed to hooks. It caches
// collection metadata by name; entries never expire during process
// lifetime. The cache is an optimization only.
type DataService struct {
	store repositories.Store

	mu    sync.RWMutex
	cache map[string]dto.Collection
}

func NewDataService(store repositories.Store) *DataService {
	return &DataService{
		store: store,
		cache: make(map[string]dto.Collection),
	}
}

func (s *DataService) CollectionByName(ctx context.Context, name string) (*dto.Collection, error) {
	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return &cached, nil
	}

	collection, err := s.store.Collections().GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	d := collectionToDTO(collection)
	s.mu.Lock()
	s.cache[name] = d
	s.mu.Unlock()
	return &d, nil
}

func (s *DataService) Document(ctx context.Context, collectionID, documentID uuid.UUID) (*dto.CollectionItem, error) {
	document, err := s.store.Documents().GetByID(ctx, collectionID, documentID)
	if err != nil {
		return nil, err
	}
	item := documentToItem(document)
	return &item, nil
}

// DocumentEvents returns the newest events of a document, newest first,
// capped at limit (0 means all).
func (s *DataService) DocumentEvents(ctx context.Context, documentID uuid.UUID, limit int) ([]dto.CollectionItemEvent, error) {
	events, err := s.store.Events().ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	out := make([]dto.CollectionItemEvent, 0, len(events))
	for i := range events {
		out = append(out, eventToDTO(&events[i]))
	}
	return out, nil
}
