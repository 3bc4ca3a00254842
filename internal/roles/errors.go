package roles

import "fmt"

// errNoFindings is returned when synthesis is attempted with an empty
// research section on the board.
var errNoFindings = fmt.Errorf("no research findings on the board")

// PlanningError indicates the planner could not produce a usable plan.
// It is not retried; the run fails in the planning stage.
type PlanningError struct {
	Reason string
	Output string
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("planning failed: %s", e.Reason)
}

// ResearchError indicates a research step failed. Other steps continue;
// the failed step contributes a gap entry instead of findings.
type ResearchError struct {
	StepNumber int
	Err        error
}

func (e *ResearchError) Error() string {
	return fmt.Sprintf("research step %d failed: %v", e.StepNumber, e.Err)
}

func (e *ResearchError) Unwrap() error { return e.Err }

// CritiqueError indicates the critic's output could not be parsed into
// a structured critique.
type CritiqueError struct {
	Reason string
	Output string
}

func (e *CritiqueError) Error() string {
	return fmt.Sprintf("critique failed: %s", e.Reason)
}

// SynthesisError indicates the synthesizer could not produce the final
// artifact.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }
