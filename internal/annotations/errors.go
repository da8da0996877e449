package annotations

import (
	"errors"
	"net/http"
)

// Domain errors for annotation session operations.
var (
	ErrNotFound            = errors.New("annotation session not found")
	ErrDuplicate           = errors.New("annotation session already exists")
	ErrSessionCompleted    = errors.New("annotation session is completed")
	ErrInvalidConfidence   = errors.New("confidence must be between 0 and 1")
	ErrInvalidDocumentType = errors.New("no active field schema for document type")
)

// MapHTTPStatus maps annotation domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrSessionCompleted) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidConfidence) || errors.Is(err, ErrInvalidDocumentType) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
