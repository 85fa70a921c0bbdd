package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/folivafy/folivafy/internal/domain/apierrors"
	"github.com/folivafy/folivafy/internal/infrastructure/database/models"
)

type CollectionRepository struct {
	store *Store
}

func (r *CollectionRepository) Create(ctx context.Context, collection *models.Collection) error {
	if err := r.store.db.WithContext(ctx).Create(collection).Error; err != nil {
		if isDuplicateKeyError(err) {
			return apierrors.Conflict("Duplicate collection name")
		}
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func (r *CollectionRepository) GetByName(ctx context.Context, name string) (*models.Collection, error) {
	var collection models.Collection
	err := r.store.db.WithContext(ctx).Where("name = ?", name).First(&collection).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NotFound(name)
		}
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	return &collection, nil
}

func (r *CollectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Collection, error) {
	var collection models.Collection
	err := r.store.db.WithContext(ctx).Where("id = ?", id).First(&collection).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NotFound(id.String())
		}
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	return &collection, nil
}

func (r *CollectionRepository) List(ctx context.Context, limit, offset int) ([]models.Collection, int64, error) {
	var total int64
	if err := r.store.db.WithContext(ctx).Model(&models.Collection{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count collections: %w", err)
	}

	var collections []models.Collection
	err := r.store.db.WithContext(ctx).
		Order("name ASC").Limit(limit).Offset(offset).
		Find(&collections).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list collections: %w", err)
	}
	return collections, total, nil
}
