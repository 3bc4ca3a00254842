package models

import "time"

// RoleResult is the outcome of a single role agent invocation.
// One is produced per invocation and owned by the run record.
type RoleResult struct {
	// RoleName identifies the role that produced the result.
	RoleName string `json:"role_name"`
	// Content is the role's output text.
	Content string `json:"content"`
	// TokensIn is the number of input tokens consumed.
	TokensIn int64 `json:"tokens_in"`
	// TokensOut is the number of output tokens produced.
	TokensOut int64 `json:"tokens_out"`
	// Cost is the dollar cost of the invocation.
	Cost float64 `json:"cost"`
	// Duration is how long the invocation took.
	Duration time.Duration `json:"duration"`
	// Success indicates whether the role completed without error.
	Success bool `json:"success"`
	// Error contains the failure message when Success is false.
	Error string `json:"error,omitempty"`
}

// CritiqueResult is the Critic's assessment of the research findings.
type CritiqueResult struct {
	// Score is the overall quality score from 0 to 10.
	Score float64 `json:"score"`
	// Issues lists problems found, in the order the Critic raised them.
	Issues []string `json:"issues,omitempty"`
	// Strengths lists what the findings did well.
	Strengths []string `json:"strengths,omitempty"`
}

// Passed returns true if the score meets the given quality threshold.
func (c CritiqueResult) Passed(threshold float64) bool {
	return c.Score >= threshold
}
