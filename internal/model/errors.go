package model

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError reports missing or invalid input detected before any
// remote call is made.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: missing or invalid fields: %s", strings.Join(e.Fields, ", "))
}

// DataIntegrityError is returned when an answer references a question slug
// that is not part of the active question set.
type DataIntegrityError struct {
	Slug string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity: answer references unknown or deleted question %q", e.Slug)
}

// TimeoutError is returned when a polling stage exhausts its attempts or its
// wall-clock budget.
type TimeoutError struct {
	Stage    Stage
	Attempts int
	Elapsed  time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("%s: timed out after %d attempts (%s)", e.Stage, e.Attempts, e.Elapsed.Round(time.Millisecond))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// AIGenerationError is returned when the completion endpoint fails or its
// response carries no candidate text.
type AIGenerationError struct {
	Provider string
	Err      error
}

func (e *AIGenerationError) Error() string {
	return fmt.Sprintf("summary: %s generation failed: %v", e.Provider, e.Err)
}

func (e *AIGenerationError) Unwrap() error {
	return e.Err
}

// StageError attributes a fatal error to the workflow stage that raised it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
