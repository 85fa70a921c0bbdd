package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/folivafy/folivafy/internal/domain/apierrors"
	"github.com/folivafy/folivafy/internal/domain/dto"
	"github.com/folivafy/folivafy/internal/domain/services"
)

// EventHandler handles HTTP requests for document events
type EventHandler struct {
	pipeline *services.WritePipeline
}

func NewEventHandler(pipeline *services.WritePipeline) *EventHandler {
	return &EventHandler{pipeline: pipeline}
}

// RegisterRoutes registers the event routes
func (h *EventHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/events", h.CreateEvent)
}

// CreateEvent answers POST /events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var body dto.CreateEventBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, apierrors.BadRequest("Invalid request body"))
		return
	}

	if err := h.pipeline.CreateEvent(c.Request.Context(), caller, body); err != nil {
		respondError(c, err)
		return
	}
	c.String(http.StatusCreated, "Event created")
}
