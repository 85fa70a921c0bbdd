package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/folivafy/folivafy/internal/infrastructure/database/models"
)

type EventRepository struct {
	store *Store
}

// Append inserts an event. Id and timestamp are assigned here; ids increase
// strictly in commit order.
func (r *EventRepository) Append(ctx context.Context, event *models.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := r.store.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *EventRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.Event, error) {
	var events []models.Event
	err := r.store.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("id DESC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}
