package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/tembric/ensemble/internal/blackboard"
	"github.com/tembric/ensemble/pkg/models"
)

// Researcher investigates one plan step and writes its findings to the
// board. Multiple researchers run concurrently for independent steps.
type Researcher struct {
	model ModelFunc
}

// NewResearcher creates a Researcher using model for its calls.
func NewResearcher(model ModelFunc) *Researcher {
	return &Researcher{model: model}
}

// Name implements Role.
func (r *Researcher) Name() string { return "researcher" }

// Process researches in.Step. Findings of dependency steps are read from
// the board and included in the prompt; on retry activations the
// critique issues are included too. The findings are written under the
// step's research key.
func (r *Researcher) Process(ctx context.Context, in Input, board *blackboard.Board) (*models.RoleResult, error) {
	if in.Step == nil {
		return nil, &ResearchError{Err: fmt.Errorf("no step assigned")}
	}
	step := *in.Step

	var prior []string
	for _, dep := range step.DependsOn {
		entry, err := board.Get(ResearchKey(dep))
		if err != nil {
			if errors.Is(err, blackboard.ErrNotFound) {
				// A failed dependency leaves a gap; research proceeds
				// with what exists.
				continue
			}
			return nil, &ResearchError{StepNumber: step.StepNumber, Err: err}
		}
		prior = append(prior, fmt.Sprintf("Step %d findings:\n%s", dep, entry.Value))
	}

	resp, err := r.model(ctx, Call{
		Stage:     r.Name(),
		StepIndex: step.StepNumber,
		System:    researcherSystem,
		Messages: []models.Message{
			{Role: models.RoleUser, Content: researcherPrompt(in.Task, step, prior, in.Issues)},
		},
	})
	if err != nil {
		return nil, &ResearchError{StepNumber: step.StepNumber, Err: err}
	}

	board.Put(ResearchKey(step.StepNumber), resp.Content, r.Name())
	return resultFromResponse(r.Name(), resp), nil
}
