package api

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/home-ledger/internal/errors"
	"github.com/home-ledger/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// Common error codes not produced by the service layer.
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
)

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(response)
}

// respondServiceError maps a service-layer error to an HTTP response.
// Categorized errors carry their own status, code and details; anything
// uncategorized becomes a 500 with no internal detail exposed.
func respondServiceError(w http.ResponseWriter, err error) {
	var categorized *apperrors.CategorizedError
	if errors.As(err, &categorized) {
		svcErr := categorized.ToServiceError()
		respondError(w, categorized.StatusCode, svcErr.Code, svcErr.Message, svcErr.Details)
		return
	}
	respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "An internal error occurred", nil)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
