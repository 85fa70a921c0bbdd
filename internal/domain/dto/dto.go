package dto

import (
	"time"

	"github.com/google/uuid"
)

// Collection is the wire representation of a collection.
type Collection struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Title  string    `json:"title"`
	Oao    bool      `json:"oao"`
	Locked bool      `json:"locked"`
}

// CollectionsList is the paginated response of GET /collections.
type CollectionsList struct {
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
	Total  int64        `json:"total"`
	Items  []Collection `json:"items"`
}

// CreateCollectionBody is the request body of POST /collections.
type CreateCollectionBody struct {
	Name  string `json:"name" binding:"required"`
	Title string `json:"title" binding:"required"`
	Oao   bool   `json:"oao"`
}

// CollectionItem is a document as it appears in lists and write requests:
// the id plus the (possibly reduced) body.
type CollectionItem struct {
	ID uuid.UUID              `json:"id"`
	F  map[string]interface{} `json:"f"`
}

// CollectionItemsList is the paginated response of document lists.
type CollectionItemsList struct {
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
	Total  int64            `json:"total"`
	Items  []CollectionItem `json:"items"`
}

// CollectionItemEvent is one event in a document detail response.
type CollectionItemEvent struct {
	ID         int64                  `json:"id"`
	Timestamp  time.Time              `json:"ts"`
	CategoryID int32                  `json:"category"`
	E          map[string]interface{} `json:"e"`
}

// CollectionItemDetails is the response of GET /collections/{c}/{id}:
// the full document plus its events, newest first.
type CollectionItemDetails struct {
	ID uuid.UUID              `json:"id"`
	F  map[string]interface{} `json:"f"`
	E  []CollectionItemEvent  `json:"e"`
}

// CreateEventBody is the request body of POST /events.
type CreateEventBody struct {
	CategoryID int32                  `json:"category" binding:"required"`
	Collection string                 `json:"collection" binding:"required"`
	DocumentID uuid.UUID              `json:"document" binding:"required"`
	// E may be empty; the category's hook decides what to persist.
	E map[string]interface{} `json:"e"`
}

// Event is an event to be appended to a document, as produced by a request
// or a hook. Id and timestamp are assigned by the store on insert.
type Event struct {
	DocumentID uuid.UUID              `json:"document_id"`
	CategoryID int32                  `json:"category"`
	Payload    map[string]interface{} `json:"payload"`
}

// MailMessage is a mail queued by a hook for out-of-band dispatch.
type MailMessage struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	BodyText string `json:"body_text"`
	BodyHTML string `json:"body_html,omitempty"`
}
