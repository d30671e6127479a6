package api

import (
	"encoding/json"
	"fmt"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeInvalidRequest  ErrorType = "invalid_request"
	ErrorTypeUnauthorized    ErrorType = "unauthorized"
	ErrorTypeForbidden       ErrorType = "forbidden"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeTooManyRequests ErrorType = "too_many_requests"
	ErrorTypeServerError     ErrorType = "server_error"
	ErrorTypeUpstreamTimeout ErrorType = "upstream_timeout"
)

// APIError represents a structured API error with type, param, and message.
type APIError struct {
	Type    ErrorType
	Param   string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// errorBody is the flat JSON shape written for every error response:
// {"error": "...", "type": "...", "param": "..."}.
type errorBody struct {
	Error string    `json:"error"`
	Type  ErrorType `json:"type"`
	Param string    `json:"param,omitempty"`
}

// MarshalJSON encodes the error as a flat object whose "error" member is the
// human-readable message.
func (e *APIError) MarshalJSON() ([]byte, error) {
	return json.Marshal(errorBody{Error: e.Message, Type: e.Type, Param: e.Param})
}

// UnmarshalJSON decodes the flat error object produced by MarshalJSON.
func (e *APIError) UnmarshalJSON(data []byte) error {
	var b errorBody
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	e.Message, e.Type, e.Param = b.Error, b.Type, b.Param
	return nil
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewUnauthorizedError creates an APIError for missing or invalid credentials.
func NewUnauthorizedError() *APIError {
	return &APIError{
		Type:    ErrorTypeUnauthorized,
		Message: "Unauthorized",
	}
}

// NewForbiddenError creates an APIError for an authenticated caller that is
// not allowed to act on a resource.
func NewForbiddenError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeForbidden,
		Message: message,
	}
}

// NewNotFoundError creates an APIError for resources that cannot be found.
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}

// NewTooManyRequestsError creates an APIError for rate limiting.
func NewTooManyRequestsError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeTooManyRequests,
		Message: message,
	}
}

// NewUpstreamTimeoutError creates an APIError for an identity authority or
// store call that did not complete before its deadline.
func NewUpstreamTimeoutError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeUpstreamTimeout,
		Message: message,
	}
}
