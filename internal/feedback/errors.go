package feedback

import (
	"errors"
	"net/http"
)

// Domain errors for feedback session operations.
var (
	ErrNotFound          = errors.New("feedback session not found")
	ErrDuplicate         = errors.New("feedback session already exists")
	ErrUnknownField      = errors.New("field is not part of the session")
	ErrInvalidFeedback   = errors.New("invalid feedback type")
	ErrInvalidTransition = errors.New("invalid session status transition")
)

// MapHTTPStatus maps feedback domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrInvalidTransition) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrUnknownField) || errors.Is(err, ErrInvalidFeedback) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
