package roles

import (
	"context"
	"strings"
	"testing"

	"github.com/tembric/ensemble/internal/blackboard"
	"github.com/tembric/ensemble/internal/llm"
	"github.com/tembric/ensemble/internal/tools"
	"github.com/tembric/ensemble/pkg/models"
)

func checkerRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	err := r.Register(tools.Schema{
		Name:        "lookup",
		Description: "Looks up a fact.",
		Parameters: map[string]tools.Param{
			"topic": {Type: "string", Description: "What to look up."},
		},
		Required: []string{"topic"},
	}, func(ctx context.Context, args map[string]any) (string, error) {
		return "confirmed: " + args["topic"].(string), nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return r
}

func TestFactCheckerRunsTools(t *testing.T) {
	fake := llm.NewFakeInvoker().ScriptText(
		"TOOL: lookup {\"topic\": \"widget invention date\"}\nVERDICT: the date claim holds")
	f := NewFactChecker(fakeModel(fake), checkerRegistry(t))

	board := blackboard.New()
	board.Put(KeyArtifact, "Widgets were invented in 1922.", "synthesizer")

	result, err := f.Process(context.Background(), Input{
		Task: models.Task{ID: "t1", Description: "Explain widgets"},
	}, board)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result.Content, "confirmed: widget invention date") {
		t.Errorf("tool output missing from verdict: %q", result.Content)
	}
	if _, err := board.Get(KeyFactCheck); err != nil {
		t.Error("verdict not written to board")
	}
}

func TestFactCheckerInvalidToolCallRecoverable(t *testing.T) {
	// A schema violation is reported in the verdict, not returned as an
	// error.
	fake := llm.NewFakeInvoker().ScriptText(
		"TOOL: lookup {\"subject\": \"wrong param\"}\nVERDICT: unverified")
	f := NewFactChecker(fakeModel(fake), checkerRegistry(t))

	board := blackboard.New()
	board.Put(KeyArtifact, "Some claim.", "synthesizer")

	result, err := f.Process(context.Background(), Input{
		Task: models.Task{ID: "t1", Description: "Explain widgets"},
	}, board)
	if err != nil {
		t.Fatalf("validation failure should be recoverable, got %v", err)
	}
	if !strings.Contains(result.Content, "skipped") {
		t.Errorf("verdict does not report the skipped check: %q", result.Content)
	}
}

func TestFactCheckerNoArtifact(t *testing.T) {
	fake := llm.NewFakeInvoker()
	f := NewFactChecker(fakeModel(fake), checkerRegistry(t))

	_, err := f.Process(context.Background(), Input{
		Task: models.Task{ID: "t1", Description: "Explain widgets"},
	}, blackboard.New())
	if err == nil {
		t.Fatal("expected error with no artifact on the board")
	}
	if fake.CallCount() != 0 {
		t.Error("model called despite missing artifact")
	}
}
