package hooks

import (
	"context"
	"time"

	"github.com/folivafy/folivafy/internal/domain/auth"
	"github.com/folivafy/folivafy/internal/domain/dto"
	"github.com/folivafy/folivafy/internal/domain/grants"
	"github.com/folivafy/folivafy/internal/domain/search"
	"github.com/google/uuid"
)

// DataAccessor gives hooks read-only access to stored data. Hooks never open
// their own transactions; everything they return is persisted by the write
// pipeline.
type DataAccessor interface {
	CollectionByName(ctx context.Context, name string) (*dto.Collection, error)
	Document(ctx context.Context, collectionID, documentID uuid.UUID) (*dto.CollectionItem, error)
	DocumentEvents(ctx context.Context, documentID uuid.UUID, limit int) ([]dto.CollectionItemEvent, error)
}

// DocumentResult says what should happen to the subject document.
type DocumentResult struct {
	store    bool
	document dto.CollectionItem
}

// StoreDocument replaces the persisted body with the given document.
func StoreDocument(document dto.CollectionItem) DocumentResult {
	return DocumentResult{store: true, document: document}
}

// NoUpdate leaves the document untouched. On create and update paths the
// pipeline treats this as a veto.
func NoUpdate() DocumentResult {
	return DocumentResult{}
}

func (r DocumentResult) IsStore() bool {
	return r.store
}

func (r DocumentResult) Document() dto.CollectionItem {
	return r.document
}

// GrantMode selects how document grants are derived after a write.
type GrantMode int

const (
	// GrantsDefault recomputes grants via the grants engine (or grants-hook).
	GrantsDefault GrantMode = iota
	// GrantsReplace stores the given grants verbatim.
	GrantsReplace
	// GrantsNoChange keeps previously stored grants. Invalid on create.
	GrantsNoChange
)

// GrantSettings is a GrantMode plus the replacement set for GrantsReplace.
type GrantSettings struct {
	mode   GrantMode
	grants []grants.Grant
}

func DefaultGrants() GrantSettings {
	return GrantSettings{mode: GrantsDefault}
}

func ReplaceGrants(g []grants.Grant) GrantSettings {
	return GrantSettings{mode: GrantsReplace, grants: g}
}

func KeepGrants() GrantSettings {
	return GrantSettings{mode: GrantsNoChange}
}

func (s GrantSettings) Mode() GrantMode {
	return s.mode
}

func (s GrantSettings) Grants() []grants.Grant {
	return s.grants
}

// Result is the envelope returned by creating, updating and cron hooks.
type Result struct {
	Document    DocumentResult
	Grants      GrantSettings
	Events      []dto.Event
	Mails       []dto.MailMessage
	TriggerCron bool
}

// EmptyResult is a no-op result: no document change, default grants.
func EmptyResult() *Result {
	return &Result{Document: NoUpdate(), Grants: DefaultGrants()}
}

// EventResult is the envelope returned by event-creating hooks. Such hooks
// may modify several documents of the collection, not just the subject;
// replacements are matched to stored rows by document id.
type EventResult struct {
	Documents   []dto.CollectionItem
	Grants      GrantSettings
	Events      []dto.Event
	Mails       []dto.MailMessage
	TriggerCron bool
}

// RequestContext carries the immutable request identity into hooks.
type RequestContext struct {
	collectionName string
	caller         auth.Caller
}

func NewRequestContext(collectionName string, caller auth.Caller) RequestContext {
	return RequestContext{collectionName: collectionName, caller: caller}
}

func (r RequestContext) CollectionName() string {
	return r.collectionName
}

func (r RequestContext) Caller() auth.Caller {
	return r.caller
}

// CreateContext is passed to document-creating hooks.
type CreateContext struct {
	Document dto.CollectionItem
	Data     DataAccessor
	Request  RequestContext
}

// UpdateContext is passed to document-updating hooks. Before is the stored
// row, After the incoming replacement.
type UpdateContext struct {
	Before  dto.CollectionItem
	After   dto.CollectionItem
	Data    DataAccessor
	Request RequestContext
}

// EventContext is passed to event-creating hooks.
type EventContext struct {
	Event      dto.Event
	Before     dto.CollectionItem
	After      dto.CollectionItem
	Collection dto.Collection
	Data       DataAccessor
	Request    RequestContext
}

// CreatedEventContext is passed to the post-commit side of event hooks.
type CreatedEventContext struct {
	Event      dto.Event
	Collection dto.Collection
	Data       DataAccessor
	Request    RequestContext
}

// CronContext is passed to cron hooks. There is no caller; cron runs under
// the system timer principal.
type CronContext struct {
	Before dto.CollectionItem
	After  dto.CollectionItem
	Data   DataAccessor
}

// UserGrantContext is passed to grant hooks when deriving a caller's grants.
type UserGrantContext struct {
	Caller   auth.Caller
	Defaults []grants.Grant
	Data     DataAccessor
}

// DocumentGrantContext is passed to grant hooks when deriving the grants to
// store with a document.
type DocumentGrantContext struct {
	Collection dto.Collection
	Document   dto.CollectionItem
	AuthorID   uuid.UUID
	Data       DataAccessor
}

// DocumentCreatingHook intercepts document creation. OnCreating runs before
// the transaction and may veto or replace the document; OnCreated runs
// detached after commit.
type DocumentCreatingHook interface {
	OnCreating(ctx context.Context, hctx *CreateContext) (*Result, error)
	OnCreated(ctx context.Context, hctx *CreateContext) (*Result, error)
}

// DocumentUpdatingHook intercepts document replacement.
type DocumentUpdatingHook interface {
	OnUpdating(ctx context.Context, hctx *UpdateContext) (*Result, error)
	OnUpdated(ctx context.Context, hctx *UpdateContext) (*Result, error)
}

// EventCreatingHook accepts or rejects an event for its (collection,
// category) key. A collection opts in to a category by registering one.
type EventCreatingHook interface {
	OnCreating(ctx context.Context, hctx *EventContext) (*EventResult, error)
	OnCreated(ctx context.Context, hctx *CreatedEventContext) (*Result, error)
}

// CronDefaultIntervalHook is invoked by the cron driver for each document
// matched by its selector.
type CronDefaultIntervalHook interface {
	OnDefaultInterval(ctx context.Context, hctx *CronContext) (*Result, error)
}

// GrantHook overrides the default grant derivation for a collection.
type GrantHook interface {
	UserGrants(ctx context.Context, hctx *UserGrantContext) ([]grants.Grant, error)
	DocumentGrants(ctx context.Context, hctx *DocumentGrantContext) (GrantSettings, error)
}

type selectorKind int

const (
	selectFieldEqualsValue selectorKind = iota
	selectDateFieldOlderThan
)

// CronDocumentSelector picks the documents a cron hook runs on.
type CronDocumentSelector struct {
	kind      selectorKind
	field     string
	value     string
	olderThan time.Duration
}

// ByFieldEqualsValue matches documents whose field equals value.
func ByFieldEqualsValue(field, value string) CronDocumentSelector {
	return CronDocumentSelector{kind: selectFieldEqualsValue, field: field, value: value}
}

// ByDateFieldOlderThan matches documents whose RFC 3339 date field lies
// further in the past than the given duration.
func ByDateFieldOlderThan(field string, olderThan time.Duration) CronDocumentSelector {
	return CronDocumentSelector{kind: selectDateFieldOlderThan, field: field, olderThan: olderThan}
}

func (s CronDocumentSelector) Field() string {
	return s.field
}

// ToFilter lowers the selector into a search filter, evaluated at now.
func (s CronDocumentSelector) ToFilter(now time.Time) search.Filter {
	switch s.kind {
	case selectDateFieldOlderThan:
		cutoff := now.Add(-s.olderThan).UTC().Format(time.RFC3339)
		return search.And(
			search.FieldNotNull(s.field),
			search.FieldOpValue(s.field, search.OpLessThan, cutoff),
		)
	default:
		return search.FieldOpValue(s.field, search.OpEqual, s.value)
	}
}
