// Package roles implements the specialized agents of an orchestration
// run. Each role reads from and writes to the shared blackboard and
// reaches the model only through the injected ModelFunc, so routing,
// budget, and compaction policy stay outside the roles themselves.
package roles

import (
	"context"
	"fmt"

	"github.com/tembric/ensemble/internal/blackboard"
	"github.com/tembric/ensemble/internal/llm"
	"github.com/tembric/ensemble/pkg/models"
)

// Blackboard keys the roles agree on.
const (
	KeyPlan           = "plan"
	KeyCritique       = "critique"
	KeyArtifact       = "artifact"
	KeyFactCheck      = "factcheck"
	ResearchKeyPrefix = "research/"
)

// ResearchKey returns the blackboard key for a plan step's findings.
func ResearchKey(stepNumber int) string {
	return fmt.Sprintf("%sstep-%d", ResearchKeyPrefix, stepNumber)
}

// Call is one model invocation requested by a role. Stage and StepIndex
// identify the call for tracing; the routing tier is decided downstream
// from the call's content.
type Call struct {
	Stage     string
	StepIndex int
	System    string
	Messages  []models.Message
}

// ModelFunc executes a model call on behalf of a role. The orchestrator
// supplies an implementation that applies budget checks, tier routing,
// and history compaction before the provider is reached.
type ModelFunc func(ctx context.Context, call Call) (*llm.Response, error)

// Input carries everything a role needs for one activation.
type Input struct {
	// Task is the top-level task being orchestrated.
	Task models.Task
	// Step is the plan step this activation serves, if step-scoped.
	Step *models.PlanStep
	// Plan is the full plan, available after planning completes.
	Plan []models.PlanStep
	// Issues are critique issues to address on a retry activation.
	Issues []string
	// Critique is the latest critique, available to the synthesizer.
	Critique *models.CritiqueResult
}

// Role is a specialized agent in the ensemble.
type Role interface {
	// Name identifies the role in traces and results.
	Name() string
	// Process runs one activation against the shared board.
	Process(ctx context.Context, in Input, board *blackboard.Board) (*models.RoleResult, error)
}

// resultFromResponse builds the common RoleResult fields from a model
// response.
func resultFromResponse(name string, resp *llm.Response) *models.RoleResult {
	return &models.RoleResult{
		RoleName:  name,
		Content:   resp.Content,
		TokensIn:  resp.TokensIn,
		TokensOut: resp.TokensOut,
		Cost:      resp.Cost,
		Success:   true,
	}
}
