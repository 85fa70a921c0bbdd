package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Reserved field names inside a document body. A non-empty deleted-at marks
// the document as logically deleted.
const (
	FieldDeletedAt = "folivafy_deleted_at"
	FieldDeletedBy = "folivafy_deleted_by"
)

// Reserved event categories recognized by the core.
const (
	CategoryDocumentUpdates int32 = 1
	CategoryDocumentDelete  int32 = 2
	CategoryDocumentRecover int32 = 3
)

// JSONB type for PostgreSQL jsonb columns (stored as TEXT on SQLite)
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	raw, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	// Stored as text so sqlite's json functions accept the column.
	return string(raw), nil
}

func (j *JSONB) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	case nil:
		*j = nil
		return nil
	default:
		return errors.New("unsupported type for JSONB scan")
	}
}

// Clone returns a deep copy of the object.
func (j JSONB) Clone() JSONB {
	if j == nil {
		return nil
	}
	raw, err := json.Marshal(j)
	if err != nil {
		return nil
	}
	var out JSONB
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// Collection is a namespace of documents with a uniform access mode.
// Collections are created by administrators and never deleted; oao is
// immutable after creation.
type Collection struct {
	ID     uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Name   string    `json:"name" gorm:"type:varchar(32);uniqueIndex;not null"`
	Title  string    `json:"title" gorm:"type:varchar(150);not null"`
	Oao    bool      `json:"oao" gorm:"not null;default:false"`
	Locked bool      `json:"locked" gorm:"not null;default:false"`
}

func (Collection) TableName() string {
	return "collection"
}

// Document holds a schemaless JSON body. The id is chosen by the client at
// create time; owner never changes after insert.
type Document struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	CollectionID uuid.UUID `json:"collection_id" gorm:"type:uuid;not null;index"`
	Owner        uuid.UUID `json:"owner" gorm:"type:uuid;not null;index"`
	F            JSONB     `json:"f" gorm:"type:jsonb;not null"`

	Collection Collection `json:"-" gorm:"foreignKey:CollectionID"`
}

func (Document) TableName() string {
	return "collection_document"
}

// IsDeleted reports whether the reserved deleted-at field is set and
// non-empty.
func (d *Document) IsDeleted() bool {
	v, ok := d.F[FieldDeletedAt]
	if !ok {
		return false
	}
	s, ok := v.(string)
	return ok && s != ""
}

// Event is an append-only record attached to a document. Ids are assigned by
// the store and strictly increase per document.
type Event struct {
	ID         int64     `json:"id" gorm:"primary_key;autoIncrement"`
	Timestamp  time.Time `json:"timestamp" gorm:"not null;index"`
	DocumentID uuid.UUID `json:"document_id" gorm:"type:uuid;not null;index"`
	User       uuid.UUID `json:"user" gorm:"type:uuid;not null"`
	CategoryID int32     `json:"category_id" gorm:"not null"`
	Payload    JSONB     `json:"payload" gorm:"type:jsonb"`

	Document Document `json:"-" gorm:"foreignKey:DocumentID"`
}

func (Event) TableName() string {
	return "event"
}

// Grant attaches a (realm, subject) pair to a document. A caller whose
// derived grant set contains the same pair may see the document.
type Grant struct {
	ID         int64     `json:"id" gorm:"primary_key;autoIncrement"`
	DocumentID uuid.UUID `json:"document_id" gorm:"type:uuid;not null;index"`
	Realm      string    `json:"realm" gorm:"type:varchar(150);not null"`
	GrantID    uuid.UUID `json:"grant" gorm:"type:uuid;column:grant;not null"`
	View       bool      `json:"view" gorm:"not null;default:true"`

	Document Document `json:"-" gorm:"foreignKey:DocumentID"`
}

func (Grant) TableName() string {
	return "grant"
}

// GetAllModels returns all models for migration
func GetAllModels() []interface{} {
	return []interface{}{
		&Collection{},
		&Document{},
		&Event{},
		&Grant{},
	}
}
