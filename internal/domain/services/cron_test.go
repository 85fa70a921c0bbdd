package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folivafy/folivafy/internal/domain/hooks"
	"github.com/folivafy/folivafy/internal/infrastructure/database/models"
)

type stubCronHook struct {
	fn func(hctx *hooks.CronContext) (*hooks.Result, error)
}

func (h *stubCronHook) OnDefaultInterval(ctx context.Context, hctx *hooks.CronContext) (*hooks.Result, error) {
	return h.fn(hctx)
}

func TestCronRunOnceProcessesMatchingDocuments(t *testing.T) {
	env := newTestEnv(t)
	collection := env.db.CreateTestCollection(t, false)
	pending := env.db.CreateTestDocument(t, collection, uuid.New(), models.JSONB{"title": "A", "status": "pending"})
	done := env.db.CreateTestDocument(t, collection, uuid.New(), models.JSONB{"title": "B", "status": "done"})

	env.registry.PutCronHook("test processor", collection.Name,
		hooks.ByFieldEqualsValue("status", "pending"),
		&stubCronHook{fn: func(hctx *hooks.CronContext) (*hooks.Result, error) {
			after := hctx.After
			after.F["status"] = "processed"
			return &hooks.Result{Document: hooks.StoreDocument(after), Grants: hooks.KeepGrants()}, nil
		}})

	env.cron.RunOnce(context.Background())

	ctx := context.Background()
	row, err := env.store.Documents().GetByID(ctx, collection.ID, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, "processed", row.F["status"])

	untouched, err := env.store.Documents().GetByID(ctx, collection.ID, done.ID)
	require.NoError(t, err)
	assert.Equal(t, "done", untouched.F["status"])

	events, err := env.store.Events().ListByDocument(ctx, pending.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, CronUserID, events[0].User)
}

func TestCronHookErrorSkipsDocumentOnly(t *testing.T) {
	env := newTestEnv(t)
	collection := env.db.CreateTestCollection(t, false)
	env.db.CreateTestDocument(t, collection, uuid.New(), models.JSONB{"title": "A", "status": "pending"})
	other := env.db.CreateTestDocument(t, collection, uuid.New(), models.JSONB{"title": "B", "status": "pending"})

	env.registry.PutCronHook("flaky processor", collection.Name,
		hooks.ByFieldEqualsValue("status", "pending"),
		&stubCronHook{fn: func(hctx *hooks.CronContext) (*hooks.Result, error) {
			if hctx.Before.F["title"] == "A" {
				return nil, assert.AnError
			}
			after := hctx.After
			after.F["status"] = "processed"
			return &hooks.Result{Document: hooks.StoreDocument(after), Grants: hooks.KeepGrants()}, nil
		}})

	env.cron.RunOnce(context.Background())

	row, err := env.store.Documents().GetByID(context.Background(), collection.ID, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "processed", row.F["status"])
}

func TestCronTriggerCoalesces(t *testing.T) {
	env := newTestEnv(t)

	env.cron.Trigger()
	env.cron.Trigger()
	env.cron.Trigger()

	assert.Len(t, env.cron.immediate, 1)
}

func TestCronRerunRequestedByHook(t *testing.T) {
	env := newTestEnv(t)
	collection := env.db.CreateTestCollection(t, false)
	env.db.CreateTestDocument(t, collection, uuid.New(), models.JSONB{"title": "A", "status": "pending"})

	env.registry.PutCronHook("rerun processor", collection.Name,
		hooks.ByFieldEqualsValue("status", "pending"),
		&stubCronHook{fn: func(hctx *hooks.CronContext) (*hooks.Result, error) {
			after := hctx.After
			after.F["status"] = "processed"
			return &hooks.Result{
				Document:    hooks.StoreDocument(after),
				Grants:      hooks.KeepGrants(),
				TriggerCron: true,
			}, nil
		}})

	env.cron.RunOnce(context.Background())

	assert.Len(t, env.cron.immediate, 1)
}

func TestCronSelectsLogicallyDeletedDocuments(t *testing.T) {
	env := newTestEnv(t)
	collection := env.db.CreateTestCollection(t, false)
	env.db.CreateTestDocument(t, collection, uuid.New(), models.JSONB{
		"title":               "Gone",
		"status":              "pending",
		models.FieldDeletedAt: "2020-01-01T00:00:00Z",
	})

	seen := 0
	env.registry.PutCronHook("deleted scanner", collection.Name,
		hooks.ByFieldEqualsValue("status", "pending"),
		&stubCronHook{fn: func(hctx *hooks.CronContext) (*hooks.Result, error) {
			seen++
			return hooks.EmptyResult(), nil
		}})

	env.cron.RunOnce(context.Background())

	assert.Equal(t, 1, seen)
}
