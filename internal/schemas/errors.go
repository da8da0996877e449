package schemas

import (
	"errors"
	"net/http"
)

// Domain errors for field schema operations.
var (
	ErrNotFound      = errors.New("field schema not found")
	ErrDuplicate     = errors.New("field schema already exists")
	ErrInvalidSchema = errors.New("invalid field schema")
	ErrNoActive      = errors.New("no active schema for document type")
)

// MapHTTPStatus maps field schema domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoActive) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidSchema) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
