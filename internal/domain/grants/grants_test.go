package grants

import (
	"testing"

	"github.com/folivafy/folivafy/internal/domain/auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDefaultDocumentGrantsForPublicCollection(t *testing.T) {
	collectionID := uuid.New()
	userID := uuid.New()

	g := DefaultDocumentGrants(false, collectionID, userID)

	assert.Len(t, g, 1)
	assert.Contains(t, g, ReadCollectionGrant(collectionID))
}

func TestDefaultDocumentGrantsForOaoCollection(t *testing.T) {
	collectionID := uuid.New()
	userID := uuid.New()

	g := DefaultDocumentGrants(true, collectionID, userID)

	assert.Len(t, g, 2)
	assert.Contains(t, g, AuthorGrant(userID))
	assert.Contains(t, g, ReadAllCollectionGrant(collectionID))
}

func TestDefaultUserGrantsForPublicReader(t *testing.T) {
	collectionID := uuid.New()

	g := DefaultUserGrants(PublicReader, collectionID, uuid.New())

	assert.Len(t, g, 1)
	assert.Contains(t, g, ReadCollectionGrant(collectionID))
}

func TestDefaultUserGrantsForPrivateSelf(t *testing.T) {
	userID := uuid.New()

	g := DefaultUserGrants(PrivateSelf, uuid.New(), userID)

	assert.Len(t, g, 1)
	assert.Contains(t, g, AuthorGrant(userID))
}

func TestDefaultUserGrantsForPrivateAllReader(t *testing.T) {
	collectionID := uuid.New()

	g := DefaultUserGrants(PrivateAllReader, collectionID, uuid.New())

	assert.Len(t, g, 1)
	assert.Contains(t, g, ReadAllCollectionGrant(collectionID))
}

func TestVisibilityForNonOaoCollection(t *testing.T) {
	caller := auth.NewCaller(uuid.New(), "alice", nil)

	assert.Equal(t, PublicReader, VisibilityFor(false, "shapes", caller))
}

func TestVisibilityForOaoCollection(t *testing.T) {
	reader := auth.NewCaller(uuid.New(), "alice", []string{"C_SECRETS_READER"})
	allReader := auth.NewCaller(uuid.New(), "bob", []string{"C_SECRETS_ALLREADER"})

	assert.Equal(t, PrivateSelf, VisibilityFor(true, "secrets", reader))
	assert.Equal(t, PrivateAllReader, VisibilityFor(true, "secrets", allReader))
}

func TestIntersectsMirrorsDefaults(t *testing.T) {
	collectionID := uuid.New()
	owner := uuid.New()
	stranger := uuid.New()

	docGrants := DefaultDocumentGrants(true, collectionID, owner)

	ownerGrants := DefaultUserGrants(PrivateSelf, collectionID, owner)
	strangerGrants := DefaultUserGrants(PrivateSelf, collectionID, stranger)
	allReaderGrants := DefaultUserGrants(PrivateAllReader, collectionID, stranger)

	assert.True(t, Intersects(ownerGrants, docGrants))
	assert.False(t, Intersects(strangerGrants, docGrants))
	assert.True(t, Intersects(allReaderGrants, docGrants))
}
