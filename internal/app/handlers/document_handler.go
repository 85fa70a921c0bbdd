package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/folivafy/folivafy/internal/domain/apierrors"
	"github.com/folivafy/folivafy/internal/domain/dto"
	"github.com/folivafy/folivafy/internal/domain/search"
	"github.com/folivafy/folivafy/internal/domain/services"
)

// DocumentHandler handles HTTP requests for documents
type DocumentHandler struct {
	query    *services.QueryEngine
	pipeline *services.WritePipeline
}

func NewDocumentHandler(query *services.QueryEngine, pipeline *services.WritePipeline) *DocumentHandler {
	return &DocumentHandler{query: query, pipeline: pipeline}
}

// SearchRequest is the body of POST /collections/{c}/searches.
type SearchRequest struct {
	Filter *search.Filter `json:"filter"`
}

// RegisterRoutes registers the document routes
func (h *DocumentHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/collections/:collection", h.ListDocuments)
	router.POST("/collections/:collection", h.CreateDocument)
	router.PUT("/collections/:collection", h.UpdateDocument)
	router.POST("/collections/:collection/searches", h.SearchDocuments)
	router.GET("/collections/:collection/:document", h.GetDocument)
	router.GET("/recoverables/:collection", h.ListRecoverables)
}

// ListDocuments answers GET /collections/{c}
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	params, err := parseListParams(c)
	if err != nil {
		respondError(c, err)
		return
	}

	list, err := h.query.ListDocuments(c.Request.Context(), caller, c.Param("collection"), params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateDocument answers POST /collections/{c}
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var item dto.CollectionItem
	if err := c.ShouldBindJSON(&item); err != nil {
		respondError(c, apierrors.BadRequest("Invalid request body"))
		return
	}

	if err := h.pipeline.CreateDocument(c.Request.Context(), caller, c.Param("collection"), item); err != nil {
		respondError(c, err)
		return
	}
	c.String(http.StatusCreated, "Document saved")
}

// UpdateDocument answers PUT /collections/{c}
func (h *DocumentHandler) UpdateDocument(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var item dto.CollectionItem
	if err := c.ShouldBindJSON(&item); err != nil {
		respondError(c, apierrors.BadRequest("Invalid request body"))
		return
	}

	if err := h.pipeline.UpdateDocument(c.Request.Context(), caller, c.Param("collection"), item); err != nil {
		respondError(c, err)
		return
	}
	c.String(http.StatusCreated, "Document saved")
}

// SearchDocuments answers POST /collections/{c}/searches
func (h *DocumentHandler) SearchDocuments(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	params, err := parseListParams(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var body SearchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, apierrors.BadRequest("Invalid filter"))
		return
	}

	list, err := h.query.SearchDocuments(c.Request.Context(), caller, c.Param("collection"), body.Filter, params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetDocument answers GET /collections/{c}/{id}
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	documentID, err := uuid.Parse(c.Param("document"))
	if err != nil {
		respondError(c, apierrors.NotFound(c.Param("document")))
		return
	}

	details, err := h.query.GetDocument(c.Request.Context(), caller, c.Param("collection"), documentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// ListRecoverables answers GET /recoverables/{c}
func (h *DocumentHandler) ListRecoverables(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	params, err := parseListParams(c)
	if err != nil {
		respondError(c, err)
		return
	}

	list, err := h.query.ListRecoverables(c.Request.Context(), caller, c.Param("collection"), params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
