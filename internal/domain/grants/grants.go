package grants

import (
	"github.com/folivafy/folivafy/internal/domain/auth"
	"github.com/google/uuid"
)

// Grant realms recognized by the core. Application hooks may introduce
// additional realm names.
const (
	RealmAuthor            = "author"
	RealmReadCollection    = "read-collection"
	RealmReadAllCollection = "read-all-collection"
)

// Grant is a (realm, subject) pair attached to a document. A caller whose
// derived grant set contains the same pair may see the document.
type Grant struct {
	Realm string    `json:"realm"`
	Grant uuid.UUID `json:"grant"`
	View  bool      `json:"view"`
}

func AuthorGrant(userID uuid.UUID) Grant {
	return Grant{Realm: RealmAuthor, Grant: userID, View: true}
}

func ReadCollectionGrant(collectionID uuid.UUID) Grant {
	return Grant{Realm: RealmReadCollection, Grant: collectionID, View: true}
}

func ReadAllCollectionGrant(collectionID uuid.UUID) Grant {
	return Grant{Realm: RealmReadAllCollection, Grant: collectionID, View: true}
}

// Visibility describes which documents of a collection a caller may see.
type Visibility int

const (
	// PublicReader sees every document of a non-oao collection.
	PublicReader Visibility = iota
	// PrivateSelf sees only documents it authored (oao collection).
	PrivateSelf
	// PrivateAllReader sees every document of an oao collection.
	PrivateAllReader
)

// DefaultDocumentGrants computes the grants stored with a document when no
// grants-hook overrides them.
func DefaultDocumentGrants(collectionOao bool, collectionID, userID uuid.UUID) []Grant {
	if collectionOao {
		return []Grant{
			AuthorGrant(userID),
			ReadAllCollectionGrant(collectionID),
		}
	}
	return []Grant{ReadCollectionGrant(collectionID)}
}

// DefaultUserGrants computes the mirror set a caller must hold to see a
// document under the given visibility.
func DefaultUserGrants(visibility Visibility, collectionID, userID uuid.UUID) []Grant {
	switch visibility {
	case PrivateAllReader:
		return []Grant{ReadAllCollectionGrant(collectionID)}
	case PrivateSelf:
		return []Grant{AuthorGrant(userID)}
	default:
		return []Grant{ReadCollectionGrant(collectionID)}
	}
}

// VisibilityFor derives the caller's visibility mode for a collection.
func VisibilityFor(collectionOao bool, collectionName string, caller auth.Caller) Visibility {
	if !collectionOao {
		return PublicReader
	}
	if caller.CanAccessAllDocuments(collectionName) {
		return PrivateAllReader
	}
	return PrivateSelf
}

// Intersects reports whether the two grant sets share at least one
// (realm, subject) pair. This is the in-memory form of the listing
// predicate; Store lowers the same check to SQL.
func Intersects(userGrants, documentGrants []Grant) bool {
	for _, ug := range userGrants {
		for _, dg := range documentGrants {
			if ug.Realm == dg.Realm && ug.Grant == dg.Grant {
				return true
			}
		}
	}
	return false
}
