package sitebuilder

import "fmt"

// GenerationError is a failed document generation call.
type GenerationError struct {
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("site generation failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("site generation failed: %s", e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// BoundaryError means the response held no complete HTML document.
type BoundaryError struct {
	Cause error
}

func (e *BoundaryError) Error() string {
	return fmt.Sprintf("generated site has no valid document boundary: %v", e.Cause)
}

func (e *BoundaryError) Unwrap() error {
	return e.Cause
}
