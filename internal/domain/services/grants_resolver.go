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
)

// GrantsResolver derives user and document grants, letting a registered
// grants-hook override the defaults.
type GrantsResolver struct {
	registry *hooks.Registry
	data     *DataService
}

func NewGrantsResolver(registry *hooks.Registry, data *DataService) *GrantsResolver {
	return &GrantsResolver{registry: registry, data: data}
}

// UserGrants computes the caller's derived grant set for a collection.
func (r *GrantsResolver) UserGrants(ctx context.Context, collection dto.Collection, caller auth.Caller) ([]grants.Grant, error) {
	visibility := grants.VisibilityFor(collection.Oao, collection.Name, caller)
	defaults := grants.DefaultUserGrants(visibility, collection.ID, caller.ID())

	hook := r.registry.GetGrantHook(collection.Name)
	if hook == nil {
		return defaults, nil
	}
	derived, err := hook.UserGrants(ctx, &hooks.UserGrantContext{
		Caller:   caller,
		Defaults: defaults,
		Data:     r.data,
	})
	if err != nil {
		return nil, err
	}
	if derived == nil {
		// A hook answering nil holds no grants; nil must not leak to the
		// repository, where it would disable the visibility predicate.
		derived = []grants.Grant{}
	}
	return derived, nil
}

// DocumentGrants computes the grants to store with a document after a
// write. onCreate rejects a hook answer of "no change", because there is
// nothing stored yet to keep.
func (r *GrantsResolver) DocumentGrants(ctx context.Context, collection dto.Collection, document dto.CollectionItem, authorID uuid.UUID, onCreate bool) (hooks.GrantSettings, error) {
	hook := r.registry.GetGrantHook(collection.Name)
	if hook == nil {
		defaults := grants.DefaultDocumentGrants(collection.Oao, collection.ID, authorID)
		return hooks.ReplaceGrants(defaults), nil
	}

	settings, err := hook.DocumentGrants(ctx, &hooks.DocumentGrantContext{
		Collection: collection,
		Document:   document,
		AuthorID:   authorID,
		Data:       r.data,
	})
	if err != nil {
		return hooks.GrantSettings{}, err
	}
	switch settings.Mode() {
	case hooks.GrantsReplace:
		return settings, nil
	case hooks.GrantsNoChange:
		if onCreate {
			return hooks.GrantSettings{}, apierrors.Internal(
				fmt.Errorf("grants hook for %q returned no change on create", collection.Name))
		}
		return settings, nil
	default:
		defaults := grants.DefaultDocumentGrants(collection.Oao, collection.ID, authorID)
		return hooks.ReplaceGrants(defaults), nil
	}
}
