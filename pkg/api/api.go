// Package api defines the admin API contracts and JSON response helpers.
// It decouples the HTTP surface from the internal cache and catalog types.
package api

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the standardized error body for API responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SearchQuery is the query contract for GET /api/products/search.
type SearchQuery struct {
	Term     string `validate:"required,min=3"`
	TenantID int    `validate:"required,min=1"`
}

// WarmupResponse reports the outcome of a tenant cache warmup.
type WarmupResponse struct {
	TenantID   int    `json:"tenantId"`
	DurationMS int64  `json:"durationMs"`
	Status     string `json:"status"`
}

// InvalidateResponse reports the outcome of a tenant cache invalidation.
type InvalidateResponse struct {
	TenantID   int  `json:"tenantId"`
	CategoryID *int `json:"categoryId,omitempty"`
}

// HealthResponse is the body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// Success writes data as a JSON response with the given status code.
func Success(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Error writes a JSON error response with the given status code.
func Error(w http.ResponseWriter, statusCode int, message string) {
	Success(w, statusCode, ErrorResponse{Error: message})
}
