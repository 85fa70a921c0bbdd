package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folivafy/folivafy/internal/domain/apierrors"
	"github.com/folivafy/folivafy/internal/domain/auth"
	"github.com/folivafy/folivafy/internal/domain/grants"
	"github.com/folivafy/folivafy/internal/infrastructure/database/models"
)

func TestRebuildGrantsRestoresDefaults(t *testing.T) {
	env := newTestEnv(t)
	collection := env.db.CreateTestCollection(t, false)
	owner := uuid.New()
	document := env.db.CreateTestDocument(t, collection, owner, models.JSONB{"title": "Circle"})
	// A stale grant from before the collection went public.
	env.db.CreateTestGrant(t, document.ID, grants.RealmAuthor, owner)

	admin := auth.NewCaller(uuid.New(), "root", []string{auth.RoleCollectionsAdministrator})
	ctx := context.Background()

	count, err := env.maintenance.RebuildGrants(ctx, admin, collection.Name)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := env.store.Grants().ListByDocument(ctx, document.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, grants.RealmReadCollection, stored[0].Realm)
	assert.Equal(t, collection.ID, stored[0].GrantID)

	// Running again changes nothing.
	count, err = env.maintenance.RebuildGrants(ctx, admin, collection.Name)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	again, err := env.store.Grants().ListByDocument(ctx, document.ID)
	require.NoError(t, err)
	assert.Equal(t, stored[0].Realm, again[0].Realm)
}

func TestRebuildGrantsWorksOnLockedCollections(t *testing.T) {
	env := newTestEnv(t)
	collection := env.db.CreateTestCollection(t, false)
	require.NoError(t, env.db.Model(collection).Update("locked", true).Error)
	env.db.CreateTestDocument(t, collection, uuid.New(), models.JSONB{"title": "Frozen"})

	admin := auth.NewCaller(uuid.New(), "root", []string{auth.RoleCollectionsAdministrator})

	count, err := env.maintenance.RebuildGrants(context.Background(), admin, collection.Name)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRebuildGrantsRequiresAdministrator(t *testing.T) {
	env := newTestEnv(t)
	collection := env.db.CreateTestCollection(t, false)
	nobody := auth.NewCaller(uuid.New(), "nobody", nil)

	_, err := env.maintenance.RebuildGrants(context.Background(), nobody, collection.Name)

	assert.True(t, apierrors.IsKind(err, apierrors.KindPermissionDenied))
}
