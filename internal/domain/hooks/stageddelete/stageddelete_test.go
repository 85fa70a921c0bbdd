package stageddelete

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folivafy/folivafy/internal/domain/apierrors"
	"github.com/folivafy/folivafy/internal/domain/auth"
	"github.com/folivafy/folivafy/internal/domain/dto"
	"github.com/folivafy/folivafy/internal/domain/hooks"
	"github.com/folivafy/folivafy/internal/infrastructure/database/models"
	"github.com/folivafy/folivafy/pkg/logger"
)

func testHook() *eventHook {
	return &eventHook{collection: "shapes", stage1: 30 * 24 * time.Hour}
}

func deleteContext(caller auth.Caller, f map[string]interface{}) *hooks.EventContext {
	return eventContext(caller, f, models.CategoryDocumentDelete)
}

func recoverContext(caller auth.Caller, f map[string]interface{}) *hooks.EventContext {
	return eventContext(caller, f, models.CategoryDocumentRecover)
}

func eventContext(caller auth.Caller, f map[string]interface{}, category int32) *hooks.EventContext {
	id := uuid.New()
	item := dto.CollectionItem{ID: id, F: f}
	return &hooks.EventContext{
		Event:   dto.Event{DocumentID: id, CategoryID: category, Payload: map[string]interface{}{}},
		Before:  item,
		After:   item,
		Request: hooks.NewRequestContext("shapes", caller),
	}
}

func remover() auth.Caller {
	return auth.NewCaller(uuid.New(), "remover", []string{"C_SHAPES_REMOVER"})
}

func admin() auth.Caller {
	return auth.NewCaller(uuid.New(), "admin", []string{"C_SHAPES_ADMIN"})
}

func TestDeleteMarksDocument(t *testing.T) {
	caller := remover()
	hctx := deleteContext(caller, map[string]interface{}{"title": "Circle"})

	result, err := testHook().OnCreating(context.Background(), hctx)

	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	f := result.Documents[0].F
	assert.NotEmpty(t, f[models.FieldDeletedAt])
	deletedBy, ok := f[models.FieldDeletedBy].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, caller.ID().String(), deletedBy["id"])
	assert.Equal(t, "remover", deletedBy["title"])
	assert.Equal(t, hooks.GrantsNoChange, result.Grants.Mode())
	require.Len(t, result.Events, 1)
}

func TestDeleteRejectsAlreadyDeleted(t *testing.T) {
	f := map[string]interface{}{
		"title":               "Circle",
		models.FieldDeletedAt: time.Now().UTC().Format(time.RFC3339),
	}

	_, err := testHook().OnCreating(context.Background(), deleteContext(remover(), f))

	require.Error(t, err)
	assert.True(t, apierrors.IsKind(err, apierrors.KindBadRequest))
	assert.Contains(t, err.Error(), "Document already deleted")
}

func TestDeleteRequiresRemoverRole(t *testing.T) {
	reader := auth.NewCaller(uuid.New(), "reader", []string{"C_SHAPES_READER"})

	_, err := testHook().OnCreating(context.Background(),
		deleteContext(reader, map[string]interface{}{"title": "Circle"}))

	require.Error(t, err)
	assert.True(t, apierrors.IsKind(err, apierrors.KindPermissionDenied))
}

func TestRecoverClearsDeletionFields(t *testing.T) {
	f := map[string]interface{}{
		"title":               "Circle",
		models.FieldDeletedAt: time.Now().UTC().Add(-24 * time.Hour).Format(time.RFC3339),
		models.FieldDeletedBy: map[string]interface{}{"id": "x", "title": "y"},
	}

	result, err := testHook().OnCreating(context.Background(), recoverContext(remover(), f))

	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	assert.NotContains(t, result.Documents[0].F, models.FieldDeletedAt)
	assert.NotContains(t, result.Documents[0].F, models.FieldDeletedBy)
	assert.Equal(t, hooks.GrantsNoChange, result.Grants.Mode())
}

func TestRecoverRejectsLiveDocument(t *testing.T) {
	_, err := testHook().OnCreating(context.Background(),
		recoverContext(remover(), map[string]interface{}{"title": "Circle"}))

	require.Error(t, err)
	assert.True(t, apierrors.IsKind(err, apierrors.KindBadRequest))
	assert.Contains(t, err.Error(), "Document is not in deleted stage")
}

func TestRecoverAfterStageOneNeedsAdmin(t *testing.T) {
	f := func() map[string]interface{} {
		return map[string]interface{}{
			"title":               "Circle",
			models.FieldDeletedAt: time.Now().UTC().Add(-40 * 24 * time.Hour).Format(time.RFC3339),
		}
	}

	_, err := testHook().OnCreating(context.Background(), recoverContext(remover(), f()))
	require.Error(t, err)
	assert.True(t, apierrors.IsKind(err, apierrors.KindPermissionDenied))

	result, err := testHook().OnCreating(context.Background(), recoverContext(admin(), f()))
	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
}

func TestRegisterWiresHooksAndCronJob(t *testing.T) {
	registry := hooks.NewRegistry()

	Register(registry, "shapes", 30, 60, logger.NewForTesting())

	assert.NotNil(t, registry.GetEventHook("shapes", models.CategoryDocumentDelete))
	assert.NotNil(t, registry.GetEventHook("shapes", models.CategoryDocumentRecover))

	crons := registry.CronHooks()
	require.Len(t, crons, 1)
	assert.Equal(t, "shapes staged_delete", crons[0].JobName)
	assert.Equal(t, "shapes", crons[0].CollectionName)
	assert.Equal(t, models.FieldDeletedAt, crons[0].Selector.Field())
}
