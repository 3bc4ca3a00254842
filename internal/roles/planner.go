package roles

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tembric/ensemble/internal/blackboard"
	"github.com/tembric/ensemble/pkg/models"
)

// Planner decomposes a task into ordered research steps.
type Planner struct {
	model ModelFunc
}

// NewPlanner creates a Planner using model for its calls.
func NewPlanner(model ModelFunc) *Planner {
	return &Planner{model: model}
}

// Name implements Role.
func (p *Planner) Name() string { return "planner" }

// Process asks the model for a plan, parses it, and writes both the raw
// plan text and the parsed steps to the board.
func (p *Planner) Process(ctx context.Context, in Input, board *blackboard.Board) (*models.RoleResult, error) {
	resp, err := p.model(ctx, Call{
		Stage:  p.Name(),
		System: plannerSystem,
		Messages: []models.Message{
			{Role: models.RoleUser, Content: plannerPrompt(in.Task)},
		},
	})
	if err != nil {
		return nil, err
	}

	if _, err := ParsePlan(resp.Content); err != nil {
		return nil, err
	}

	board.Put(KeyPlan, resp.Content, p.Name())
	return resultFromResponse(p.Name(), resp), nil
}

// planLineRe matches "N. description" with an optional "[after: i,j]"
// dependency marker.
var planLineRe = regexp.MustCompile(`^\s*(\d+)\.\s+(.+?)(?:\s*\[after:\s*([\d,\s]+)\])?\s*$`)

// ParsePlan extracts plan steps from the planner's output. Lines that do
// not match the step format are ignored. The plan must contain at least
// one step, step numbers must be sequential from 1, and dependencies may
// only reference earlier steps.
func ParsePlan(output string) ([]models.PlanStep, error) {
	var steps []models.PlanStep
	for _, line := range strings.Split(output, "\n") {
		m := planLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		step := models.PlanStep{
			StepNumber:  num,
			Description: strings.TrimSpace(m[2]),
		}
		if m[3] != "" {
			for _, part := range strings.Split(m[3], ",") {
				dep, err := strconv.Atoi(strings.TrimSpace(part))
				if err != nil {
					return nil, &PlanningError{
						Reason: fmt.Sprintf("step %d has malformed dependency %q", num, part),
						Output: output,
					}
				}
				step.DependsOn = append(step.DependsOn, dep)
			}
		}
		step.ParallelEligible = len(step.DependsOn) == 0
		steps = append(steps, step)
	}

	if len(steps) == 0 {
		return nil, &PlanningError{Reason: "no steps found in output", Output: output}
	}

	for i, step := range steps {
		if step.StepNumber != i+1 {
			return nil, &PlanningError{
				Reason: fmt.Sprintf("step numbers not sequential: position %d has number %d", i+1, step.StepNumber),
				Output: output,
			}
		}
		for _, dep := range step.DependsOn {
			if dep < 1 || dep >= step.StepNumber {
				return nil, &PlanningError{
					Reason: fmt.Sprintf("step %d depends on step %d, which is not an earlier step", step.StepNumber, dep),
					Output: output,
				}
			}
		}
	}
	return steps, nil
}
