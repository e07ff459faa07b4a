package domain

import (
	"errors"
	"fmt"
)

// ErrTriggerNotFound is returned when no record exists for a trigger id
var ErrTriggerNotFound = errors.New("trigger not found")

// ValidationError reports a rejected trigger request
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ProcessError reports a collector that exited with a non-zero code
type ProcessError struct {
	ExitCode int
	Output   string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("Server process failed with error code %d", e.ExitCode)
}

// StageError attaches the failing pipeline stage to an error
type StageError struct {
	Stage TriggerState
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a request validation failure
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// FailedStage returns the stage recorded on err, if any
func FailedStage(err error) (TriggerState, bool) {
	var s *StageError
	if errors.As(err, &s) {
		return s.Stage, true
	}
	return "", false
}
