package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/folivafy/folivafy/internal/domain/apierrors"
	"github.com/folivafy/folivafy/internal/domain/auth"
	"github.com/folivafy/folivafy/internal/domain/dto"
	"github.com/folivafy/folivafy/internal/domain/grants"
	"github.com/folivafy/folivafy/internal/domain/hooks"
	"github.com/folivafy/folivafy/internal/domain/repositories"
	"github.com/folivafy/folivafy/internal/infrastructure/database/models"
	"github.com/folivafy/folivafy/pkg/logger"
)

// WritePipeline runs the create / update / append-event state machine:
// authorization, collection load, hook interception, atomic persistence and
// post-commit side effects.
type WritePipeline struct {
	store       repositories.Store
	registry    *hooks.Registry
	data        *DataService
	grants      *GrantsResolver
	log         *logger.Logger
	cronTrigger func()
}

func NewWritePipeline(
	store repositories.Store,
	registry *hooks.Registry,
	data *DataService,
	resolver *GrantsResolver,
	log *logger.Logger,
	cronTrigger func(),
) *WritePipeline {
	return &WritePipeline{
		store:       store,
		registry:    registry,
		data:        data,
		grants:      resolver,
		log:         log.Named("write-pipeline"),
		cronTrigger: cronTrigger,
	}
}

// CreateDocument inserts a new document. The creating hook (if registered)
// runs before the transaction; its result either fully applies or nothing
// does.
func (p *WritePipeline) CreateDocument(ctx context.Context, caller auth.Caller, collectionName string, item dto.CollectionItem) error {
	if !caller.IsCollectionEditor(collectionName) {
		return apierrors.PermissionDenied()
	}

	collection, err := p.store.Collections().GetByName(ctx, collectionName)
	if err != nil {
		return err
	}
	if collection.Locked {
		return apierrors.BadRequest("Read only collection")
	}
	if err := validateItem(item); err != nil {
		return err
	}

	cdto := collectionToDTO(collection)
	request := hooks.NewRequestContext(collectionName, caller)

	document := item
	settings := hooks.DefaultGrants()
	var hookEvents []dto.Event
	var mails []dto.MailMessage
	triggerCron := false

	hook := p.registry.GetCreateHook(collectionName)
	if hook != nil {
		result, err := hook.OnCreating(ctx, &hooks.CreateContext{
			Document: item,
			Data:     p.data,
			Request:  request,
		})
		if err != nil {
			return err
		}
		if !result.Document.IsStore() {
			return apierrors.BadRequest("Not accepted for storage")
		}
		document = result.Document.Document()
		settings = result.Grants
		hookEvents = result.Events
		mails = result.Mails
		triggerCron = result.TriggerCron
	}

	err = p.store.WithTransaction(ctx, func(tx repositories.Store) error {
		row := &models.Document{
			ID:           document.ID,
			CollectionID: collection.ID,
			Owner:        caller.ID(),
			F:            models.JSONB(document.F),
		}
		if err := tx.Documents().Insert(ctx, row); err != nil {
			return err
		}
		if err := appendSyntheticEvent(ctx, tx, row.ID, caller, true); err != nil {
			return err
		}
		if err := appendHookEvents(ctx, tx, caller.ID(), hookEvents); err != nil {
			return err
		}
		if err := p.applyGrants(ctx, tx, cdto, document, caller.ID(), settings, true); err != nil {
			return err
		}
		return enqueueMails(ctx, tx, caller.ID(), mails)
	})
	if err != nil {
		return err
	}

	p.afterCommit(triggerCron)
	if hook != nil {
		p.runDetached("document created", func(detachedCtx context.Context) error {
			_, err := hook.OnCreated(detachedCtx, &hooks.CreateContext{
				Document: document,
				Data:     p.data,
				Request:  request,
			})
			return err
		})
	}
	return nil
}

// UpdateDocument replaces the body of an existing document. The row lock is
// taken first; the updating hook runs inside the transaction so two
// concurrent updates serialize.
func (p *WritePipeline) UpdateDocument(ctx context.Context, caller auth.Caller, collectionName string, item dto.CollectionItem) error {
	if !caller.IsCollectionEditor(collectionName) {
		return apierrors.PermissionDenied()
	}

	collection, err := p.store.Collections().GetByName(ctx, collectionName)
	if err != nil {
		return err
	}
	if collection.Locked {
		return apierrors.BadRequest("Read only collection")
	}
	if err := validateItem(item); err != nil {
		return err
	}

	cdto := collectionToDTO(collection)
	request := hooks.NewRequestContext(collectionName, caller)
	hook := p.registry.GetUpdateHook(collectionName)

	triggerCron := false
	var before, after dto.CollectionItem

	err = p.store.WithTransaction(ctx, func(tx repositories.Store) error {
		row, err := tx.Documents().LockForUpdate(ctx, item.ID)
		if err != nil {
			return err
		}
		if row.CollectionID != collection.ID {
			return apierrors.NotFound(item.ID.String())
		}

		userGrants, err := p.grants.UserGrants(ctx, cdto, caller)
		if err != nil {
			return err
		}
		storedRows, err := tx.Grants().ListByDocument(ctx, row.ID)
		if err != nil {
			return err
		}
		if !intersectsStored(userGrants, storedRows) {
			return apierrors.NotFound(item.ID.String())
		}

		before = documentToItem(row)
		after = item
		document := item
		settings := hooks.DefaultGrants()
		var hookEvents []dto.Event
		var mails []dto.MailMessage

		if hook != nil {
			result, err := hook.OnUpdating(ctx, &hooks.UpdateContext{
				Before:  before,
				After:   after,
				Data:    p.data,
				Request: request,
			})
			if err != nil {
				return err
			}
			if !result.Document.IsStore() {
				return apierrors.BadRequest("Not accepted for storage")
			}
			document = result.Document.Document()
			settings = result.Grants
			hookEvents = result.Events
			mails = result.Mails
			triggerCron = result.TriggerCron
		}

		if err := tx.Documents().UpdateFields(ctx, row.ID, models.JSONB(document.F)); err != nil {
			return err
		}
		if err := appendSyntheticEvent(ctx, tx, row.ID, caller, false); err != nil {
			return err
		}
		if err := appendHookEvents(ctx, tx, caller.ID(), hookEvents); err != nil {
			return err
		}
		if err := p.applyGrants(ctx, tx, cdto, document, row.Owner, settings, false); err != nil {
			return err
		}
		return enqueueMails(ctx, tx, caller.ID(), mails)
	})
	if err != nil {
		return err
	}

	p.afterCommit(triggerCron)
	if hook != nil {
		p.runDetached("document updated", func(detachedCtx context.Context) error {
			_, err := hook.OnUpdated(detachedCtx, &hooks.UpdateContext{
				Before:  before,
				After:   after,
				Data:    p.data,
				Request: request,
			})
			return err
		})
	}
	return nil
}

// CreateEvent appends an application event to a document. A collection
// accepts a category only by registering an event hook for it; the hook
// decides what is persisted.
func (p *WritePipeline) CreateEvent(ctx context.Context, caller auth.Caller, body dto.CreateEventBody) error {
	collection, err := p.store.Collections().GetByName(ctx, body.Collection)
	if err != nil {
		return err
	}
	if collection.Locked {
		return apierrors.BadRequest("Read only collection")
	}
	if !caller.IsCollectionReader(body.Collection) {
		return apierrors.PermissionDenied()
	}

	hook := p.registry.GetEventHook(body.Collection, body.CategoryID)
	if hook == nil {
		return apierrors.BadRequest("Event not accepted")
	}

	cdto := collectionToDTO(collection)
	request := hooks.NewRequestContext(body.Collection, caller)
	event := dto.Event{DocumentID: body.DocumentID, CategoryID: body.CategoryID, Payload: body.E}
	triggerCron := false

	err = p.store.WithTransaction(ctx, func(tx repositories.Store) error {
		row, err := tx.Documents().LockForUpdate(ctx, body.DocumentID)
		if err != nil {
			return err
		}
		if row.CollectionID != collection.ID {
			return apierrors.NotFound(body.DocumentID.String())
		}
		if collection.Oao && row.Owner != caller.ID() && !caller.CanAccessAllDocuments(body.Collection) {
			return apierrors.NotFound(body.DocumentID.String())
		}

		result, err := hook.OnCreating(ctx, &hooks.EventContext{
			Event:      event,
			Before:     documentToItem(row),
			After:      documentToItem(row),
			Collection: cdto,
			Data:       p.data,
			Request:    request,
		})
		if err != nil {
			return err
		}
		if len(result.Events) == 0 {
			return apierrors.PermissionDenied()
		}

		subject := documentToItem(row)
		storedAny := false
		for _, replacement := range result.Documents {
			if replacement.ID != row.ID {
				if _, err := tx.Documents().LockForUpdate(ctx, replacement.ID); err != nil {
					return err
				}
			} else {
				subject = replacement
			}
			if err := tx.Documents().UpdateFields(ctx, replacement.ID, models.JSONB(replacement.F)); err != nil {
				return err
			}
			storedAny = true
		}

		if err := appendHookEvents(ctx, tx, caller.ID(), result.Events); err != nil {
			return err
		}
		if storedAny {
			if err := appendSyntheticEvent(ctx, tx, row.ID, caller, false); err != nil {
				return err
			}
		}
		if err := p.applyGrants(ctx, tx, cdto, subject, row.Owner, result.Grants, false); err != nil {
			return err
		}
		triggerCron = result.TriggerCron
		return enqueueMails(ctx, tx, caller.ID(), result.Mails)
	})
	if err != nil {
		return err
	}

	p.afterCommit(triggerCron)
	p.runDetached("event created", func(detachedCtx context.Context) error {
		_, err := hook.OnCreated(detachedCtx, &hooks.CreatedEventContext{
			Event:      event,
			Collection: cdto,
			Data:       p.data,
			Request:    request,
		})
		return err
	})
	return nil
}

func appendSyntheticEvent(ctx context.Context, tx repositories.Store, documentID uuid.UUID, caller auth.Caller, isNew bool) error {
	payload := models.JSONB{
		"user": map[string]interface{}{
			"id":   caller.ID().String(),
			"name": caller.Username(),
		},
	}
	if isNew {
		payload["new"] = true
	}
	return tx.Events().Append(ctx, &models.Event{
		DocumentID: documentID,
		User:       caller.ID(),
		CategoryID: models.CategoryDocumentUpdates,
		Payload:    payload,
	})
}

func appendHookEvents(ctx context.Context, tx repositories.Store, userID uuid.UUID, events []dto.Event) error {
	for _, ev := range events {
		err := tx.Events().Append(ctx, &models.Event{
			DocumentID: ev.DocumentID,
			User:       userID,
			CategoryID: ev.CategoryID,
			Payload:    models.JSONB(ev.Payload),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *WritePipeline) applyGrants(
	ctx context.Context,
	tx repositories.Store,
	collection dto.Collection,
	document dto.CollectionItem,
	authorID uuid.UUID,
	settings hooks.GrantSettings,
	onCreate bool,
) error {
	switch settings.Mode() {
	case hooks.GrantsReplace:
		return tx.Grants().Replace(ctx, document.ID, settings.Grants())
	case hooks.GrantsNoChange:
		if onCreate {
			return apierrors.Internal(
				fmt.Errorf("hook for %q kept grants unchanged on create", collection.Name))
		}
		return nil
	default:
		resolved, err := p.grants.DocumentGrants(ctx, collection, document, authorID, onCreate)
		if err != nil {
			return err
		}
		if resolved.Mode() == hooks.GrantsNoChange {
			return nil
		}
		return tx.Grants().Replace(ctx, document.ID, resolved.Grants())
	}
}

func (p *WritePipeline) afterCommit(triggerCron bool) {
	if triggerCron && p.cronTrigger != nil {
		p.cronTrigger()
	}
}

// runDetached runs a post-commit hook on its own context; failures are
// logged, never surfaced to the client.
func (p *WritePipeline) runDetached(what string, fn func(ctx context.Context) error) {
	go func() {
		if err := fn(context.Background()); err != nil {
			p.log.Error("post-commit hook failed", "hook", what, "error", err)
		}
	}()
}

func validateItem(item dto.CollectionItem) error {
	if item.ID == uuid.Nil {
		return apierrors.BadRequest("Document id is required")
	}
	if item.F == nil {
		return apierrors.BadRequest("Document body must be a JSON object")
	}
	return nil
}

func intersectsStored(userGrants []grants.Grant, rows []models.Grant) bool {
	return grants.Intersects(userGrants, grantRowsToDTO(rows))
}
