package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/site-generator/internal/jobs"
	"github.com/jonathan/site-generator/internal/types"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: &ErrValidation{Fields: map[string]string{"business_name": "is required"}}, want: http.StatusBadRequest},
		{name: "bad request", err: &ErrBadRequest{Message: "invalid JSON body"}, want: http.StatusBadRequest},
		{name: "not found", err: jobs.ErrNotFound, want: http.StatusNotFound},
		{name: "wrapped not found", err: fmt.Errorf("get job: %w", jobs.ErrNotFound), want: http.StatusNotFound},
		{name: "exists", err: jobs.ErrExists, want: http.StatusConflict},
		{name: "terminal", err: &jobs.TerminalError{JobID: "j", Status: types.StatusComplete}, want: http.StatusConflict},
		{name: "unavailable", err: &ErrUnavailable{Service: "database"}, want: http.StatusServiceUnavailable},
		{name: "other", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestErrValidation_Message(t *testing.T) {
	one := &ErrValidation{Fields: map[string]string{"website_url": "must be an http(s) URL"}}
	assert.Equal(t, "validation error: website_url - must be an http(s) URL", one.Error())

	many := &ErrValidation{Fields: map[string]string{"a": "x", "b": "y"}}
	assert.Equal(t, "validation error: 2 invalid fields", many.Error())
}

func TestErrBadRequest_Unwrap(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := &ErrBadRequest{Message: "invalid JSON body", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "invalid JSON body: unexpected EOF", err.Error())
}
