package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/folivafy/folivafy/internal/app/middleware"
	"github.com/folivafy/folivafy/internal/domain/apierrors"
	"github.com/folivafy/folivafy/internal/domain/auth"
	"github.com/folivafy/folivafy/internal/domain/services"
)

// ErrorResponse is the JSON body of every error answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError maps error kinds to HTTP status codes. This is the only
// place that translation happens; the core stays status-code free.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apierrors.KindOf(err) {
	case apierrors.KindPermissionDenied:
		status = http.StatusUnauthorized
	case apierrors.KindNotFound:
		status = http.StatusNotFound
	case apierrors.KindBadRequest, apierrors.KindConflict:
		// Duplicates are client-recoverable, so they answer 400 too.
		status = http.StatusBadRequest
	}

	message := "Internal Server Error"
	var apiErr *apierrors.Error
	if errors.As(err, &apiErr) {
		message = apiErr.Message()
	}
	c.JSON(status, ErrorResponse{Error: message})
}

// requireCaller aborts with 401 if the auth middleware left no caller.
func requireCaller(c *gin.Context) (auth.Caller, bool) {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		c.Abort()
	}
	return caller, ok
}

// parseListParams reads the common list query parameters. Range errors
// surface as BadRequest from the service layer; only syntax is checked
// here.
func parseListParams(c *gin.Context) (services.ListParams, error) {
	params := services.ListParams{
		Limit:       services.DefaultPageLimit,
		ExactTitle:  c.Query("exactTitle"),
		ExtraFields: c.Query("extraFields"),
		Sort:        c.Query("sort"),
		PFilter:     c.Query("pfilter"),
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return params, apierrors.BadRequest("limit must be a number")
		}
		params.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return params, apierrors.BadRequest("offset must be a number")
		}
		params.Offset = offset
	}
	return params, nil
}
