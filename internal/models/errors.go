package models

import (
	"errors"
	"net/http"
)

// Domain errors for model registry operations.
var (
	ErrNoActive = errors.New("no active model")
	ErrNoModels = errors.New("no model artifacts found")
)

// MapHTTPStatus maps model registry errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNoActive) || errors.Is(err, ErrNoModels) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
