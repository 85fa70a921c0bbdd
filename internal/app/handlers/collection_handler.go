package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/folivafy/folivafy/internal/domain/apierrors"
	"github.com/folivafy/folivafy/internal/domain/dto"
	"github.com/folivafy/folivafy/internal/domain/services"
)

// CollectionHandler handles HTTP requests for collection metadata
type CollectionHandler struct {
	query *services.QueryEngine
}

func NewCollectionHandler(query *services.QueryEngine) *CollectionHandler {
	return &CollectionHandler{query: query}
}

// RegisterRoutes registers the collection routes
func (h *CollectionHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/collections", h.ListCollections)
	router.POST("/collections", h.CreateCollection)
}

// ListCollections answers GET /collections
func (h *CollectionHandler) ListCollections(c *gin.Context) {
	if _, ok := requireCaller(c); !ok {
		return
	}
	params, err := parseListParams(c)
	if err != nil {
		respondError(c, err)
		return
	}

	list, err := h.query.ListCollections(c.Request.Context(), params.Limit, params.Offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateCollection answers POST /collections
func (h *CollectionHandler) CreateCollection(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var body dto.CreateCollectionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, apierrors.BadRequest("Invalid request body"))
		return
	}

	if err := h.query.CreateCollection(c.Request.Context(), caller, body); err != nil {
		respondError(c, err)
		return
	}
	c.String(http.StatusCreated, "Collection created")
}
