package models

import "time"

// TraceEvent records one timestamped step of an orchestration run.
// Events form an append-only ordered sequence per run.
type TraceEvent struct {
	// RunID identifies the orchestration run.
	RunID string `json:"run_id"`
	// StepIndex is the position of the event within the run sequence.
	StepIndex int `json:"step_index"`
	// StageName names the stage or signal that produced the event
	// (e.g. "planner", "researcher/step-2", "budget_warning").
	StageName string `json:"stage_name"`
	// StartedAt is when the traced step began.
	StartedAt time.Time `json:"started_at"`
	// Duration is how long the step took.
	Duration time.Duration `json:"duration"`
	// Cost is the dollar cost attributed to the step.
	Cost float64 `json:"cost"`
	// TokensIn is the input token count for the step.
	TokensIn int64 `json:"tokens_in"`
	// TokensOut is the output token count for the step.
	TokensOut int64 `json:"tokens_out"`
	// Detail carries additional context, such as an error message.
	Detail string `json:"detail,omitempty"`
}
