package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/folivafy/folivafy/internal/domain/services"
)

// MaintenanceHandler handles administrative HTTP requests
type MaintenanceHandler struct {
	maintenance *services.Maintenance
}

func NewMaintenanceHandler(maintenance *services.Maintenance) *MaintenanceHandler {
	return &MaintenanceHandler{maintenance: maintenance}
}

// RegisterRoutes registers the maintenance routes
func (h *MaintenanceHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/maintenance/:collection/rebuild-grants", h.RebuildGrants)
}

// RebuildGrants answers POST /maintenance/{c}/rebuild-grants
func (h *MaintenanceHandler) RebuildGrants(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	count, err := h.maintenance.RebuildGrants(c.Request.Context(), caller, c.Param("collection"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.String(http.StatusCreated, fmt.Sprintf("Rebuilt grants of %d documents", count))
}
