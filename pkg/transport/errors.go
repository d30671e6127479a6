package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rhuss/scribe/pkg/api"
)

// HTTPStatusFromError maps an APIError type to the corresponding HTTP status
// code. Transport-level errors (body too large, unsupported content type)
// are handled separately by the HTTP adapter.
func HTTPStatusFromError(err *api.APIError) int {
	switch err.Type {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case api.ErrorTypeForbidden:
		return http.StatusForbidden
	case api.ErrorTypeNotFound:
		return http.StatusNotFound
	case api.ErrorTypeTooManyRequests:
		return http.StatusTooManyRequests
	case api.ErrorTypeUpstreamTimeout:
		return http.StatusGatewayTimeout
	case api.ErrorTypeServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse writes apiErr as a JSON error body with the given status.
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, statusCode int) {
	WriteJSON(w, statusCode, apiErr)
}

// WriteAPIError writes an APIError response, deriving the HTTP status code
// from the error type.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	WriteErrorResponse(w, apiErr, HTTPStatusFromError(apiErr))
}

// WriteError writes err as an API error. Errors that are not *api.APIError
// are logged and reported as a generic server error, so internal details
// never reach the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("unhandled error",
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
		apiErr = api.NewServerError("Internal server error")
	}
	WriteAPIError(w, apiErr)
}

// WriteJSON encodes v as the JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing response body", "error", err)
	}
}
