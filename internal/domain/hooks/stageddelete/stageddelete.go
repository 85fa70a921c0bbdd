// Package stageddelete implements two-stage document deletion: a delete
// event hides the document from normal listings, a recover event brings it
// back, and a cron job flags documents whose grace period ran out.
package stageddelete

import (
	"context"
	"fmt"
	"time"

	"github.com/folivafy/folivafy/internal/domain/apierrors"
	"github.com/folivafy/folivafy/internal/domain/dto"
	"github.com/folivafy/folivafy/internal/domain/hooks"
	"github.com/folivafy/folivafy/internal/infrastructure/database/models"
	"github.com/folivafy/folivafy/pkg/logger"
)

// Register wires staged deletion into a collection: event hooks for the
// delete and recover categories plus the purge cron job. Stage one is the
// window in which a remover may still recover the document; after stage one
// only a collection admin can, and once stage two has also passed the cron
// job picks the document up.
func Register(registry *hooks.Registry, collectionName string, stage1Days, stage2Days int, log *logger.Logger) {
	h := &eventHook{
		collection: collectionName,
		stage1:     time.Duration(stage1Days) * 24 * time.Hour,
	}
	registry.PutEventHook(collectionName, models.CategoryDocumentDelete, h)
	registry.PutEventHook(collectionName, models.CategoryDocumentRecover, h)
	registry.PutCronHook(
		collectionName+" staged_delete",
		collectionName,
		hooks.ByDateFieldOlderThan(models.FieldDeletedAt, time.Duration(stage1Days+stage2Days)*24*time.Hour),
		&purgeHook{collection: collectionName, log: log.Named("staged-delete")},
	)
}

type eventHook struct {
	collection string
	stage1     time.Duration
}

func (h *eventHook) OnCreating(ctx context.Context, hctx *hooks.EventContext) (*hooks.EventResult, error) {
	switch hctx.Event.CategoryID {
	case models.CategoryDocumentDelete:
		return h.onDelete(hctx)
	case models.CategoryDocumentRecover:
		return h.onRecover(hctx)
	default:
		return nil, apierrors.BadRequest("Event not accepted")
	}
}

func (h *eventHook) OnCreated(ctx context.Context, hctx *hooks.CreatedEventContext) (*hooks.Result, error) {
	return hooks.EmptyResult(), nil
}

func (h *eventHook) onDelete(hctx *hooks.EventContext) (*hooks.EventResult, error) {
	if isDeleted(hctx.Before) {
		return nil, apierrors.BadRequest("Document already deleted")
	}
	caller := hctx.Request.Caller()
	if !caller.IsCollectionRemover(h.collection) {
		return nil, apierrors.PermissionDenied()
	}

	document := hctx.Before
	document.F[models.FieldDeletedAt] = time.Now().UTC().Format(time.RFC3339)
	document.F[models.FieldDeletedBy] = map[string]interface{}{
		"id":    caller.ID().String(),
		"title": caller.Username(),
	}

	return &hooks.EventResult{
		Documents: []dto.CollectionItem{document},
		Grants:    hooks.KeepGrants(),
		Events:    []dto.Event{hctx.Event},
	}, nil
}

func (h *eventHook) onRecover(hctx *hooks.EventContext) (*hooks.EventResult, error) {
	if !isDeleted(hctx.Before) {
		return nil, apierrors.BadRequest("Document is not in deleted stage")
	}
	caller := hctx.Request.Caller()
	if withinStageOne(hctx.Before, h.stage1) {
		if !caller.IsCollectionRemover(h.collection) {
			return nil, apierrors.PermissionDenied()
		}
	} else if !caller.IsCollectionAdmin(h.collection) {
		return nil, apierrors.PermissionDenied()
	}

	document := hctx.Before
	delete(document.F, models.FieldDeletedAt)
	delete(document.F, models.FieldDeletedBy)

	return &hooks.EventResult{
		Documents: []dto.CollectionItem{document},
		Grants:    hooks.KeepGrants(),
		Events:    []dto.Event{hctx.Event},
	}, nil
}

func isDeleted(document dto.CollectionItem) bool {
	v, ok := document.F[models.FieldDeletedAt].(string)
	return ok && v != ""
}

// withinStageOne reports whether the deletion timestamp is younger than the
// stage-one window. An unparsable timestamp counts as expired, so only an
// admin can recover such a document.
func withinStageOne(document dto.CollectionItem, stage1 time.Duration) bool {
	raw, _ := document.F[models.FieldDeletedAt].(string)
	deletedAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return false
	}
	return time.Since(deletedAt) <= stage1
}

// purgeHook runs when both stages have passed. Physical removal is left to
// operators; the hook only reports the candidates.
type purgeHook struct {
	collection string
	log        *logger.Logger
}

func (h *purgeHook) OnDefaultInterval(ctx context.Context, hctx *hooks.CronContext) (*hooks.Result, error) {
	h.log.Info(fmt.Sprintf("document %s in %s passed both deletion stages", hctx.Before.ID, h.collection))
	return hooks.EmptyResult(), nil
}
