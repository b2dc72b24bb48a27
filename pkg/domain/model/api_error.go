package model

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is the failure reported by a record API: an HTTP-like status, a
// human readable message and an optional machine error code.
type APIError struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	ErrorCode string `json:"errorcode,omitempty"`
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("record api error (%d %s): %s", e.Status, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("record api error (%d): %s", e.Status, e.Message)
}

// Is maps statuses onto the sentinel errors so callers can use errors.Is
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrRecordNotFound:
		return e.Status == http.StatusNotFound
	case ErrRecordConflict:
		return e.Status == http.StatusConflict
	case ErrInvalidRecord:
		return e.Status == http.StatusBadRequest
	}
	return false
}

// NewNotFoundError builds the APIError returned for a missing record
func NewNotFoundError(entity, key string) *APIError {
	return &APIError{
		Status:    http.StatusNotFound,
		Message:   fmt.Sprintf("record %q of entity %s not found", key, entity),
		ErrorCode: "RECORD_NOT_FOUND",
	}
}

// NewConflictError builds the APIError returned when a logical key is already taken
func NewConflictError(entity, key string) *APIError {
	return &APIError{
		Status:    http.StatusConflict,
		Message:   fmt.Sprintf("record %q of entity %s already exists", key, entity),
		ErrorCode: "RECORD_ALREADY_EXISTS",
	}
}

// NewEntityNotFoundError builds the APIError returned for an undeclared entity
func NewEntityNotFoundError(entity string) *APIError {
	return &APIError{
		Status:    http.StatusNotFound,
		Message:   fmt.Sprintf("entity %s not found", entity),
		ErrorCode: "ENTITY_NOT_FOUND",
	}
}

// ErrorDetail extracts the server-provided detail of err for user-facing messages
func ErrorDetail(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
