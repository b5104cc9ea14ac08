package jobs

import (
	"errors"
	"fmt"

	"github.com/jonathan/site-generator/internal/types"
)

var (
	// ErrNotFound is returned when no job exists for an id.
	ErrNotFound = errors.New("job not found")
	// ErrExists is returned when creating a job whose id is taken.
	ErrExists = errors.New("job already exists")
	// ErrStatusRegression is returned when a patch would move a job backwards.
	ErrStatusRegression = errors.New("job status cannot move backwards")
)

// TerminalError is returned when a patch targets a job that already finished.
type TerminalError struct {
	JobID  string
	Status types.JobStatus
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("job %s is %s and can no longer change", e.JobID, e.Status)
}

// IsTerminal reports whether err is a TerminalError.
func IsTerminal(err error) bool {
	var te *TerminalError
	return errors.As(err, &te)
}
