package records

import (
	"errors"
	"net/http"
)

// Domain errors for training record operations.
var (
	ErrNotFound  = errors.New("training record not found")
	ErrDuplicate = errors.New("training record already exists for document")
)

// MapHTTPStatus maps training record domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
