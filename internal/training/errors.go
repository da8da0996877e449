package training

import (
	"errors"
	"net/http"
)

// Domain errors for training job operations.
var (
	ErrNotFound          = errors.New("training job not found")
	ErrJobAlreadyRunning = errors.New("training job already active for model")
	ErrInsufficientData  = errors.New("no qualified training records for job")
	ErrForceRequired     = errors.New("previous training job failed, retry requires force_retrain")
	ErrInvalidTrigger    = errors.New("invalid trigger reason")
	ErrNotPending        = errors.New("training job is not pending")
)

// MapHTTPStatus maps training domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrJobAlreadyRunning) || errors.Is(err, ErrForceRequired) || errors.Is(err, ErrNotPending) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidTrigger) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrInsufficientData) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
