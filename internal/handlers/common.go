// Package handlers implements the admin and search HTTP API.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"cafemenu-cache/pkg/api"
	appErrors "cafemenu-cache/pkg/errors"
)

// handleServiceError maps service errors onto HTTP status codes. Internal
// detail stays in the log, not in the response body.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	switch {
	case appErrors.IsValidation(err):
		logger.Warn("validation error", zap.Error(err))
		api.Error(w, http.StatusBadRequest, err.Error())
	case appErrors.IsNotFound(err):
		logger.Info("not found", zap.Error(err))
		api.Error(w, http.StatusNotFound, err.Error())
	case appErrors.IsUnavailable(err):
		logger.Warn("dependency unavailable", zap.Error(err))
		api.Error(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		logger.Error("internal error", zap.Error(err))
		api.Error(w, http.StatusInternalServerError, "An internal error occurred")
	}
}

// urlParamInt reads one integer URL parameter from the chi route context.
func urlParamInt(r *http.Request, name string) (int, bool) {
	value, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, false
	}
	return value, true
}

func parsePositiveInt(raw string) (int, error) {
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, strconv.ErrRange
	}
	return value, nil
}
