package models

import "time"

// Task is the unit of work submitted to an orchestration run.
// It is created once per run and never mutated.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Description is the natural-language description of the work.
	Description string `json:"description"`
	// CreatedAt is when the task was submitted.
	CreatedAt time.Time `json:"created_at"`
}

// PlanStep is one step of the plan the Planner produces for a task.
// Ordering by StepNumber is significant.
type PlanStep struct {
	// StepNumber is the 1-based position of the step in the plan.
	StepNumber int `json:"step_number"`
	// Description is what the step should accomplish.
	Description string `json:"description"`
	// DependsOn lists step numbers that must complete before this step.
	// All referenced numbers are lower than StepNumber, so the
	// dependency graph is acyclic by construction.
	DependsOn []int `json:"depends_on,omitempty"`
	// ParallelEligible indicates the step has no dependencies and can
	// start in the first research wave. It is derived from DependsOn
	// and carried for consumers of the plan; scheduling itself keys on
	// dependency satisfaction.
	ParallelEligible bool `json:"parallel_eligible"`
}

// DependsOnStep returns true if the step depends on the given step number.
func (s PlanStep) DependsOnStep(n int) bool {
	for _, d := range s.DependsOn {
		if d == n {
			return true
		}
	}
	return false
}
