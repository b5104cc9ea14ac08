package deploy

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// APIError is a non-2xx response from the hosting API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("hosting API error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("hosting API error %d: %s", e.Status, e.Message)
}

// IsConflict reports whether err is an "already exists" response.
func IsConflict(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusConflict || apiErr.Code == "project_already_exists"
}

// DeploymentError is a fatal failure of one deployment step.
type DeploymentError struct {
	Step    string
	Message string
	Cause   error
}

func (e *DeploymentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("deployment failed at %s: %s: %v", e.Step, e.Message, e.Cause)
	}
	return fmt.Sprintf("deployment failed at %s: %s", e.Step, e.Message)
}

func (e *DeploymentError) Unwrap() error {
	return e.Cause
}

// TimeoutError means the deployment did not settle within the poll budget.
type TimeoutError struct {
	DeploymentID string
	Budget       time.Duration
	Polls        int
	LastState    string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("deployment %s timed out after %s (%d polls, last state %s)",
		e.DeploymentID, e.Budget, e.Polls, e.LastState)
}
