package services

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/folivafy/folivafy/internal/domain/apierrors"
	"github.com/folivafy/folivafy/internal/domain/auth"
	"github.com/folivafy/folivafy/internal/domain/dto"
	"github.com/folivafy/folivafy/internal/domain/grants"
	"github.com/folivafy/folivafy/internal/domain/repositories"
	"github.com/folivafy/folivafy/internal/domain/search"
	"github.com/folivafy/folivafy/internal/infrastructure/database/models"
	"github.com/folivafy/folivafy/pkg/logger"
)

const (
	MinPageLimit     = 1
	MaxPageLimit     = 250
	DefaultPageLimit = 50
)

var (
	collectionNamePattern = regexp.MustCompile(`^[a-z][-a-z0-9]*$`)
	extraFieldsPattern    = regexp.MustCompile(`^[A-Za-z0-9]+(,[A-Za-z0-9]+)*$`)
	sortPattern           = regexp.MustCompile(`^[A-Za-z0-9]+(\.[A-Za-z0-9]+)*[+\-](,[A-Za-z0-9]+(\.[A-Za-z0-9]+)*[+\-])*$`)
)

// ListParams are the common query parameters of the document list
// endpoints.
type ListParams struct {
	Limit       int
	Offset      int
	ExactTitle  string
	ExtraFields string
	Sort        string
	PFilter     string
}

// QueryEngine serves the read side: collection and document lists, document
// details and structured search, honoring grants.
type QueryEngine struct {
	store  repositories.Store
	grants *GrantsResolver
	log    *logger.Logger

	mu      sync.RWMutex
	presets map[string][]search.Filter
}

func NewQueryEngine(store repositories.Store, resolver *GrantsResolver, log *logger.Logger) *QueryEngine {
	return &QueryEngine{
		store:   store,
		grants:  resolver,
		log:     log.Named("query"),
		presets: make(map[string][]search.Filter),
	}
}

// RegisterPresetFilter binds a pfilter key to a fixed filter set. Unknown
// keys resolve to no filters.
func (q *QueryEngine) RegisterPresetFilter(key string, filters []search.Filter) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.presets[key] = filters
}

func (q *QueryEngine) presetFilters(key string) []search.Filter {
	if key == "" {
		return nil
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.presets[key]
}

// ListCollections returns the paginated collection list. Any authenticated
// caller may see collection metadata.
func (q *QueryEngine) ListCollections(ctx context.Context, limit, offset int) (*dto.CollectionsList, error) {
	if err := validatePagination(limit, offset); err != nil {
		return nil, err
	}
	collections, total, err := q.store.Collections().List(ctx, limit, offset)
	if err != nil {
		return nil, apierrors.Internal(err)
	}
	items := make([]dto.Collection, 0, len(collections))
	for i := range collections {
		items = append(items, collectionToDTO(&collections[i]))
	}
	return &dto.CollectionsList{Limit: limit, Offset: offset, Total: total, Items: items}, nil
}

// CreateCollection creates a new collection. Restricted to collection
// administrators.
func (q *QueryEngine) CreateCollection(ctx context.Context, caller auth.Caller, body dto.CreateCollectionBody) error {
	if !caller.IsCollectionsAdministrator() {
		return apierrors.PermissionDenied()
	}
	if len(body.Name) < 1 || len(body.Name) > 32 || !collectionNamePattern.MatchString(body.Name) {
		return apierrors.BadRequest("Invalid collection name")
	}
	if len(body.Title) < 1 || len(body.Title) > 150 {
		return apierrors.BadRequest("Invalid collection title")
	}
	collection := &models.Collection{
		ID:    uuid.New(),
		Name:  body.Name,
		Title: body.Title,
		Oao:   body.Oao,
	}
	if err := q.store.Collections().Create(ctx, collection); err != nil {
		return err
	}
	q.log.Info("collection created", "name", body.Name, "oao", body.Oao, "user", caller.NameAndSub())
	return nil
}

// ListDocuments lists the documents of a collection the caller may see,
// excluding logically deleted ones.
func (q *QueryEngine) ListDocuments(ctx context.Context, caller auth.Caller, collectionName string, params ListParams) (*dto.CollectionItemsList, error) {
	collection, err := q.store.Collections().GetByName(ctx, collectionName)
	if err != nil {
		return nil, err
	}
	if !caller.IsCollectionReader(collectionName) {
		return nil, apierrors.PermissionDenied()
	}

	userGrants, err := q.grants.UserGrants(ctx, collectionToDTO(collection), caller)
	if err != nil {
		return nil, err
	}

	return q.listDocuments(ctx, collection.ID, params, nil, userGrants, repositories.ExcludeDeleted)
}

// SearchDocuments is ListDocuments with an additional structured filter.
func (q *QueryEngine) SearchDocuments(ctx context.Context, caller auth.Caller, collectionName string, filter *search.Filter, params ListParams) (*dto.CollectionItemsList, error) {
	if filter != nil {
		if err := filter.Validate(); err != nil {
			return nil, apierrors.BadRequest(err.Error())
		}
	}
	collection, err := q.store.Collections().GetByName(ctx, collectionName)
	if err != nil {
		return nil, err
	}
	if !caller.IsCollectionReader(collectionName) {
		return nil, apierrors.PermissionDenied()
	}

	userGrants, err := q.grants.UserGrants(ctx, collectionToDTO(collection), caller)
	if err != nil {
		return nil, err
	}

	return q.listDocuments(ctx, collection.ID, params, filter, userGrants, repositories.ExcludeDeleted)
}

// ListRecoverables lists the logically deleted documents of a collection.
// Admin view: grants are not applied.
func (q *QueryEngine) ListRecoverables(ctx context.Context, caller auth.Caller, collectionName string, params ListParams) (*dto.CollectionItemsList, error) {
	collection, err := q.store.Collections().GetByName(ctx, collectionName)
	if err != nil {
		return nil, err
	}
	permitted := caller.IsCollectionAdmin(collectionName) ||
		(caller.IsCollectionRemover(collectionName) && caller.IsCollectionReader(collectionName))
	if !permitted {
		q.log.Warn("caller not permitted for recoverables", "user", caller.NameAndSub(), "collection", collectionName)
		return nil, apierrors.PermissionDenied()
	}

	return q.listDocuments(ctx, collection.ID, params, nil, nil, repositories.OnlyDeleted)
}

func (q *QueryEngine) listDocuments(
	ctx context.Context,
	collectionID uuid.UUID,
	params ListParams,
	filter *search.Filter,
	userGrants []grants.Grant,
	deleted repositories.DeletedFilter,
) (*dto.CollectionItemsList, error) {
	if err := validateListParams(&params); err != nil {
		return nil, err
	}

	query := repositories.DocumentListQuery{
		CollectionID: collectionID,
		Sort:         params.Sort,
		UserGrants:   userGrants,
		Deleted:      deleted,
		Limit:        params.Limit,
		Offset:       params.Offset,
	}
	if params.ExactTitle != "" {
		title := params.ExactTitle
		query.ExactTitle = &title
	}
	if params.ExtraFields != "" {
		query.ExtraFields = strings.Split(params.ExtraFields, ",")
	}
	if combined := combineFilters(q.presetFilters(params.PFilter), filter); combined != nil {
		query.Filter = combined
	}

	total, rows, err := q.store.Documents().CountAndList(ctx, query)
	if err != nil {
		return nil, err
	}

	items := make([]dto.CollectionItem, 0, len(rows))
	for i := range rows {
		items = append(items, documentToItem(&rows[i]))
	}
	return &dto.CollectionItemsList{
		Limit:  params.Limit,
		Offset: params.Offset,
		Total:  total,
		Items:  items,
	}, nil
}

// GetDocument returns the full document with its events, newest first.
func (q *QueryEngine) GetDocument(ctx context.Context, caller auth.Caller, collectionName string, documentID uuid.UUID) (*dto.CollectionItemDetails, error) {
	collection, err := q.store.Collections().GetByName(ctx, collectionName)
	if err != nil {
		return nil, err
	}
	if !caller.IsCollectionReader(collectionName) {
		return nil, apierrors.PermissionDenied()
	}

	document, err := q.store.Documents().GetByID(ctx, collection.ID, documentID)
	if err != nil {
		return nil, err
	}

	if !caller.IsCollectionAdmin(collectionName) && !caller.CanAccessAllDocuments(collectionName) {
		userGrants, err := q.grants.UserGrants(ctx, collectionToDTO(collection), caller)
		if err != nil {
			return nil, err
		}
		stored, err := q.store.Grants().ListByDocument(ctx, document.ID)
		if err != nil {
			return nil, apierrors.Internal(err)
		}
		if !intersectsStored(userGrants, stored) {
			return nil, apierrors.NotFound(documentID.String())
		}
	}

	events, err := q.store.Events().ListByDocument(ctx, document.ID)
	if err != nil {
		return nil, apierrors.Internal(err)
	}
	eventDTOs := make([]dto.CollectionItemEvent, 0, len(events))
	for i := range events {
		eventDTOs = append(eventDTOs, eventToDTO(&events[i]))
	}

	return &dto.CollectionItemDetails{
		ID: document.ID,
		F:  document.F,
		E:  eventDTOs,
	}, nil
}

func combineFilters(preset []search.Filter, filter *search.Filter) *search.Filter {
	all := make([]search.Filter, 0, len(preset)+1)
	all = append(all, preset...)
	if filter != nil {
		all = append(all, *filter)
	}
	switch len(all) {
	case 0:
		return nil
	case 1:
		return &all[0]
	default:
		combined := search.And(all...)
		return &combined
	}
}

func validatePagination(limit, offset int) error {
	if limit < MinPageLimit || limit > MaxPageLimit {
		return apierrors.BadRequest("limit must be between 1 and 250")
	}
	if offset < 0 {
		return apierrors.BadRequest("offset must not be negative")
	}
	return nil
}

func validateListParams(params *ListParams) error {
	if err := validatePagination(params.Limit, params.Offset); err != nil {
		return err
	}
	if params.ExtraFields != "" && !extraFieldsPattern.MatchString(params.ExtraFields) {
		return apierrors.BadRequest("Invalid extraFields parameter")
	}
	if params.Sort != "" && !sortPattern.MatchString(params.Sort) {
		return apierrors.BadRequest("Invalid sort parameter")
	}
	return nil
}
