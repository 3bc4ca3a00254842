package roles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tembric/ensemble/internal/blackboard"
	"github.com/tembric/ensemble/internal/tools"
	"github.com/tembric/ensemble/pkg/models"
)

// FactChecker verifies the synthesized artifact against the registered
// tools. It is advisory: its verdict is recorded on the board but never
// fails the run.
type FactChecker struct {
	model    ModelFunc
	registry *tools.Registry
}

// NewFactChecker creates a FactChecker using model and the given tool
// registry.
func NewFactChecker(model ModelFunc, registry *tools.Registry) *FactChecker {
	return &FactChecker{model: model, registry: registry}
}

// Name implements Role.
func (f *FactChecker) Name() string { return "factchecker" }

// Process reads the artifact, asks the model which claims to verify,
// executes the requested tool calls, and writes the verdict to the
// board. Tool validation failures are recoverable: they are reported in
// the verdict rather than failing the role.
func (f *FactChecker) Process(ctx context.Context, in Input, board *blackboard.Board) (*models.RoleResult, error) {
	artifact, err := board.Get(KeyArtifact)
	if err != nil {
		return nil, fmt.Errorf("no artifact to fact-check: %w", err)
	}

	resp, err := f.model(ctx, Call{
		Stage:  f.Name(),
		System: factCheckerSystem,
		Messages: []models.Message{
			{Role: models.RoleUser, Content: factCheckerPrompt(artifact.Value, f.registry.Schemas())},
		},
	})
	if err != nil {
		return nil, err
	}

	var report []string
	for _, line := range strings.Split(resp.Content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "TOOL:"):
			report = append(report, f.runToolLine(ctx, trimmed))
		case strings.HasPrefix(trimmed, "VERDICT:"):
			report = append(report, trimmed)
		}
	}

	verdict := strings.Join(report, "\n")
	if verdict == "" {
		verdict = "VERDICT: no checks performed"
	}
	board.Put(KeyFactCheck, verdict, f.Name())

	result := resultFromResponse(f.Name(), resp)
	result.Content = verdict
	return result, nil
}

// runToolLine parses a "TOOL: name {json}" line, executes it, and
// returns a one-line report of the outcome.
func (f *FactChecker) runToolLine(ctx context.Context, line string) string {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "TOOL:"))
	name, rawArgs, _ := strings.Cut(rest, " ")
	if name == "" {
		return "check failed: empty tool call"
	}

	args := map[string]any{}
	if strings.TrimSpace(rawArgs) != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return fmt.Sprintf("check %s failed: malformed arguments: %v", name, err)
		}
	}

	out, err := f.registry.Call(ctx, name, args)
	if err != nil {
		var verr *tools.ValidationError
		if errors.As(err, &verr) {
			return fmt.Sprintf("check %s skipped: %v", name, verr)
		}
		return fmt.Sprintf("check %s failed: %v", name, err)
	}
	return fmt.Sprintf("check %s: %s", name, out)
}
