package services

import (
	"context"

	"github.com/folivafy/folivafy/internal/domain/apierrors"
	"github.com/folivafy/folivafy/internal/domain/auth"
	"github.com/folivafy/folivafy/internal/domain/hooks"
	"github.com/folivafy/folivafy/internal/domain/repositories"
	"github.com/folivafy/folivafy/pkg/logger"
)

// Maintenance holds administrative operations that act on a whole
// collection at once.
type Maintenance struct {
	store  repositories.Store
	grants *GrantsResolver
	log    *logger.Logger
}

func NewMaintenance(store repositories.Store, resolver *GrantsResolver, log *logger.Logger) *Maintenance {
	return &Maintenance{store: store, grants: resolver, log: log.Named("maintenance")}
}

// RebuildGrants recomputes the stored grants of every document in a
// collection, in one transaction. Useful after a grants hook changed or a
// collection switched visibility. Locked collections are fine: only grants
// are rewritten, never document bodies. Idempotent.
func (m *Maintenance) RebuildGrants(ctx context.Context, caller auth.Caller, collectionName string) (int, error) {
	if !caller.IsCollectionsAdministrator() {
		return 0, apierrors.PermissionDenied()
	}

	collection, err := m.store.Collections().GetByName(ctx, collectionName)
	if err != nil {
		return 0, err
	}
	cdto := collectionToDTO(collection)

	rebuilt := 0
	err = m.store.WithTransaction(ctx, func(tx repositories.Store) error {
		documents, err := tx.Documents().ListAll(ctx, collection.ID)
		if err != nil {
			return err
		}
		for i := range documents {
			row := &documents[i]
			settings, err := m.grants.DocumentGrants(ctx, cdto, documentToItem(row), row.Owner, false)
			if err != nil {
				return err
			}
			if settings.Mode() == hooks.GrantsNoChange {
				continue
			}
			if err := tx.Grants().Replace(ctx, row.ID, settings.Grants()); err != nil {
				return err
			}
			rebuilt++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	m.log.Info("rebuilt document grants",
		"collection", collectionName, "documents", rebuilt, "user", caller.NameAndSub())
	return rebuilt, nil
}
