package auth

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RoleCollectionsAdministrator may create collections and run maintenance.
const RoleCollectionsAdministrator = "ADMIN_COLLECTIONS"

// Caller is the authenticated principal of a request. It is an immutable
// value object; hooks receive it instead of the raw token claims.
type Caller struct {
	id       uuid.UUID
	username string
	roles    map[string]struct{}
}

// NewCaller builds a caller from verified claim data.
func NewCaller(id uuid.UUID, username string, roles []string) Caller {
	set := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return Caller{id: id, username: username, roles: set}
}

func (c Caller) ID() uuid.UUID {
	return c.id
}

func (c Caller) Username() string {
	return c.username
}

// Roles returns a copy of the caller's role names.
func (c Caller) Roles() []string {
	out := make([]string, 0, len(c.roles))
	for r := range c.roles {
		out = append(out, r)
	}
	return out
}

func (c Caller) HasRole(role string) bool {
	_, ok := c.roles[role]
	return ok
}

// NameAndSub is the log representation of the caller.
func (c Caller) NameAndSub() string {
	return fmt.Sprintf("%s (%s)", c.username, c.id)
}

// CollectionRole builds the conventional role name for a collection, e.g.
// CollectionRole("shapes", "READER") == "C_SHAPES_READER".
func CollectionRole(collectionName, suffix string) string {
	return fmt.Sprintf("C_%s_%s", strings.ToUpper(collectionName), suffix)
}

func (c Caller) IsCollectionReader(collectionName string) bool {
	return c.HasRole(CollectionRole(collectionName, "READER")) || c.IsCollectionAdmin(collectionName)
}

func (c Caller) IsCollectionEditor(collectionName string) bool {
	return c.HasRole(CollectionRole(collectionName, "EDITOR")) || c.IsCollectionAdmin(collectionName)
}

// CanAccessAllDocuments reports whether the caller bypasses oao ownership.
func (c Caller) CanAccessAllDocuments(collectionName string) bool {
	return c.HasRole(CollectionRole(collectionName, "ALLREADER")) || c.IsCollectionAdmin(collectionName)
}

func (c Caller) IsCollectionRemover(collectionName string) bool {
	return c.HasRole(CollectionRole(collectionName, "REMOVER")) || c.IsCollectionAdmin(collectionName)
}

func (c Caller) IsCollectionAdmin(collectionName string) bool {
	return c.HasRole(CollectionRole(collectionName, "ADMIN"))
}

func (c Caller) IsCollectionsAdministrator() bool {
	return c.HasRole(RoleCollectionsAdministrator)
}
