package services

import (
	"github.com/folivafy/folivafy/internal/domain/dto"
	"github.com/folivafy/folivafy/internal/domain/grants"
	"github.com/folivafy/folivafy/internal/infrastructure/database/models"
)

func collectionToDTO(c *models.Collection) dto.Collection {
	return dto.Collection{
		ID:     c.ID,
		Name:   c.Name,
		Title:  c.Title,
		Oao:    c.Oao,
		Locked: c.Locked,
	}
}

func documentToItem(d *models.Document) dto.CollectionItem {
	return dto.CollectionItem{ID: d.ID, F: d.F.Clone()}
}

func eventToDTO(e *models.Event) dto.CollectionItemEvent {
	return dto.CollectionItemEvent{
		ID:         e.ID,
		Timestamp:  e.Timestamp,
		CategoryID: e.CategoryID,
		E:          e.Payload,
	}
}

func grantRowsToDTO(rows []models.Grant) []grants.Grant {
	out := make([]grants.Grant, 0, len(rows))
	for _, row := range rows {
		out = append(out, grants.Grant{Realm: row.Realm, Grant: row.GrantID, View: row.View})
	}
	return out
}
