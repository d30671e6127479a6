package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rhuss/scribe/pkg/api"
)

func TestHTTPStatusFromError(t *testing.T) {
	tests := []struct {
		name       string
		errType    api.ErrorType
		wantStatus int
	}{
		{"invalid_request -> 400", api.ErrorTypeInvalidRequest, http.StatusBadRequest},
		{"unauthorized -> 401", api.ErrorTypeUnauthorized, http.StatusUnauthorized},
		{"forbidden -> 403", api.ErrorTypeForbidden, http.StatusForbidden},
		{"not_found -> 404", api.ErrorTypeNotFound, http.StatusNotFound},
		{"too_many_requests -> 429", api.ErrorTypeTooManyRequests, http.StatusTooManyRequests},
		{"server_error -> 500", api.ErrorTypeServerError, http.StatusInternalServerError},
		{"upstream_timeout -> 504", api.ErrorTypeUpstreamTimeout, http.StatusGatewayTimeout},
		{"unknown type -> 500", api.ErrorType("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &api.APIError{Type: tt.errType, Message: "test"}
			got := HTTPStatusFromError(err)
			if got != tt.wantStatus {
				t.Errorf("HTTPStatusFromError(%q) = %d, want %d", tt.errType, got, tt.wantStatus)
			}
		})
	}
}

func TestWriteErrorResponse(t *testing.T) {
	apiErr := api.NewInvalidRequestError("email", "Missing fields")
	rec := httptest.NewRecorder()

	WriteErrorResponse(rec, apiErr, http.StatusBadRequest)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	ct := rec.Header().Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["error"] != "Missing fields" {
		t.Errorf("error = %q, want %q", body["error"], "Missing fields")
	}
	if body["type"] != "invalid_request" {
		t.Errorf("type = %q, want %q", body["type"], "invalid_request")
	}
	if body["param"] != "email" {
		t.Errorf("param = %q, want %q", body["param"], "email")
	}
}

func TestWriteAPIError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAPIError(rec, api.NewForbiddenError("You do not own this post"))

	if rec.Code != http.StatusForbidden {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if strings.Contains(rec.Body.String(), `"param"`) {
		t.Errorf("param should be omitted when empty: %s", rec.Body.String())
	}
}

func TestWriteError_HidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/blogs", nil)

	WriteError(rec, req, errors.New("pq: connection refused to 10.0.0.7"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if strings.Contains(rec.Body.String(), "10.0.0.7") {
		t.Errorf("internal detail leaked: %s", rec.Body.String())
	}
}

func TestWriteError_WrappedAPIError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/blogs", nil)

	WriteError(rec, req, errors.Join(errors.New("context"), api.NewNotFoundError("Post not found")))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
