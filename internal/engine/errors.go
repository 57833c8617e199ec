package engine

import "fmt"

// InvalidInputError reports a malformed input or configuration value.
// It fails the run before any stage executes.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// StageError carries enough context for the caller to log which stage failed
// and around which point in the timeline.
type StageError struct {
	Stage string
	At    float64
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("engine stage %s at %.3fs: %v", e.Stage, e.At, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
