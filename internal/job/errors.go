package job

import (
	"errors"
	"fmt"
)

// Stage is a step of composing one run. A run that fails is reported with the
// stage it was trying to reach.
type Stage string

const (
	StageDirectoryReady    Stage = "DIRECTORY_READY"
	StageConfigRendered    Stage = "CONFIG_RENDERED"
	StageResourcesResolved Stage = "RESOURCES_RESOLVED"
	StageScriptRendered    Stage = "SCRIPT_RENDERED"
	StageSubmitted         Stage = "SUBMITTED"
)

// RunError is returned when a single run cannot be composed.
type RunError struct {
	Index int
	Stage Stage
	Err   error
}

func (e *RunError) Error() string {
	if e.Index > 0 {
		return fmt.Sprintf("run %d failed before %s: %v", e.Index, e.Stage, e.Err)
	}
	return fmt.Sprintf("run failed before %s: %v", e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// NewRunError creates a new RunError.
func NewRunError(index int, stage Stage, err error) *RunError {
	return &RunError{Index: index, Stage: stage, Err: err}
}

// IsRunError checks if an error is a RunError.
func IsRunError(err error) bool {
	var re *RunError
	return errors.As(err, &re)
}
