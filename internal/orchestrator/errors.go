package orchestrator

import (
	"errors"
	"fmt"
	"time"
)

// ErrBudgetExceeded is returned when the budget guard blocks a call
// because the run's spend limit would be crossed.
var ErrBudgetExceeded = errors.New("run budget exceeded")

// ErrPerCallCap is returned when a single call's estimated cost exceeds
// the per-call cap. The run may continue with other calls.
var ErrPerCallCap = errors.New("per-call cost cap exceeded")

// ErrCancelled is returned when the run context is cancelled. In-flight
// calls finish or time out; no new calls start.
var ErrCancelled = errors.New("run cancelled")

// TimeoutError indicates a single model call exceeded its deadline.
type TimeoutError struct {
	Stage   string
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s call timed out after %s", e.Stage, e.Elapsed)
}

// RunError wraps the failure that ended a run, with the stage it died in.
type RunError struct {
	Stage Stage
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run failed in %s stage: %v", e.Stage, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
