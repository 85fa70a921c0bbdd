package postgresql

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/folivafy/folivafy/internal/domain/grants"
	"github.com/folivafy/folivafy/internal/infrastructure/database/models"
)

type GrantRepository struct {
	store *Store
}

// Replace swaps the stored grants of a document with the new set. It is a
// delete-then-insert; callers run it inside a transaction.
func (r *GrantRepository) Replace(ctx context.Context, documentID uuid.UUID, newGrants []grants.Grant) error {
	db := r.store.db.WithContext(ctx)

	if err := db.Where("document_id = ?", documentID).Delete(&models.Grant{}).Error; err != nil {
		return fmt.Errorf("failed to delete grants: %w", err)
	}

	for _, g := range newGrants {
		row := models.Grant{
			DocumentID: documentID,
			Realm:      g.Realm,
			GrantID:    g.Grant,
			View:       g.View,
		}
		if err := db.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert grant: %w", err)
		}
	}
	return nil
}

func (r *GrantRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.Grant, error) {
	var rows []models.Grant
	err := r.store.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("realm ASC, \"grant\" ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	return rows, nil
}
