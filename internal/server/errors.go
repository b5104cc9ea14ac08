package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/site-generator/internal/jobs"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Fields map[string]string
}

func (e *ErrValidation) Error() string {
	if len(e.Fields) == 1 {
		for field, msg := range e.Fields {
			return fmt.Sprintf("validation error: %s - %s", field, msg)
		}
	}
	return fmt.Sprintf("validation error: %d invalid fields", len(e.Fields))
}

// ErrBadRequest indicates a body or parameter that could not be read.
type ErrBadRequest struct {
	Message string
	Cause   error
}

func (e *ErrBadRequest) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ErrBadRequest) Unwrap() error {
	return e.Cause
}

// ErrUnavailable indicates an optional collaborator that is not configured.
type ErrUnavailable struct {
	Service string
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("%s is not configured", e.Service)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation  *ErrValidation
		badRequest  *ErrBadRequest
		unavailable *ErrUnavailable
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &badRequest):
		return http.StatusBadRequest
	case errors.Is(err, jobs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrExists), jobs.IsTerminal(err):
		return http.StatusConflict
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
