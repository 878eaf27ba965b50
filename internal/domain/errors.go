package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced directly to callers.
var (
	// ErrJobNotFound means the job id was never created or its record
	// has already been reaped after its retention window.
	ErrJobNotFound = errors.New("job not found")

	// ErrNoSegments means a merge was requested with an empty segment list.
	ErrNoSegments = errors.New("no video segments provided")
)

// ValidationError reports bad or missing caller input. It surfaces
// synchronously from Create and Merge.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// NewValidationError builds a ValidationError with the given reason.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// CollaboratorError wraps a failure from an external collaborator: the
// generation provider, the object store, or the transcoder subprocess.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// NewCollaboratorError wraps err as a failure of the named collaborator.
func NewCollaboratorError(collaborator string, err error) *CollaboratorError {
	return &CollaboratorError{Collaborator: collaborator, Err: err}
}

// PipelineError is any failure captured from the background
// enrichment/dispatch sequence. It is never returned to a caller
// directly; it is recorded on the failed job and reported on poll.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError wraps err as a failure of the named pipeline stage.
func NewPipelineError(stage string, err error) *PipelineError {
	return &PipelineError{Stage: stage, Err: err}
}
