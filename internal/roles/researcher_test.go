package roles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/tembric/ensemble/internal/blackboard"
	"github.com/tembric/ensemble/internal/llm"
	"github.com/tembric/ensemble/pkg/models"
)

func TestResearcherWritesFindings(t *testing.T) {
	fake := llm.NewFakeInvoker().ScriptText("widgets were invented in 1922")
	r := NewResearcher(fakeModel(fake))
	board := blackboard.New()

	step := models.PlanStep{StepNumber: 1, Description: "Research widget origins", ParallelEligible: true}
	result, err := r.Process(context.Background(), Input{
		Task: models.Task{ID: "t1", Description: "Explain widgets"},
		Step: &step,
	}, board)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Cost <= 0 {
		t.Error("result carries no cost")
	}

	entry, err := board.Get("research/step-1")
	if err != nil {
		t.Fatalf("findings not on board: %v", err)
	}
	if entry.Value != "widgets were invented in 1922" {
		t.Errorf("findings = %q", entry.Value)
	}
}

func TestResearcherIncludesDependencyFindings(t *testing.T) {
	fake := llm.NewFakeInvoker().ScriptText("analysis based on origins")
	r := NewResearcher(fakeModel(fake))

	board := blackboard.New()
	board.Put(ResearchKey(1), "origins: invented in 1922", "researcher")

	step := models.PlanStep{StepNumber: 2, Description: "Analyze origins", DependsOn: []int{1}}
	if _, err := r.Process(context.Background(), Input{
		Task: models.Task{ID: "t1", Description: "Explain widgets"},
		Step: &step,
	}, board); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := fake.Calls()
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	prompt := calls[0].Messages[0].Content
	if !strings.Contains(prompt, "invented in 1922") {
		t.Error("dependency findings not included in prompt")
	}
}

func TestResearcherMissingDependencyProceeds(t *testing.T) {
	// A failed dependency leaves no findings; dependent research runs
	// anyway with what exists.
	fake := llm.NewFakeInvoker().ScriptText("best-effort analysis")
	r := NewResearcher(fakeModel(fake))
	board := blackboard.New()

	step := models.PlanStep{StepNumber: 2, Description: "Analyze origins", DependsOn: []int{1}}
	if _, err := r.Process(context.Background(), Input{
		Task: models.Task{ID: "t1", Description: "Explain widgets"},
		Step: &step,
	}, board); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := board.Get(ResearchKey(2)); err != nil {
		t.Error("findings not written despite missing dependency")
	}
}

func TestResearcherRetryIncludesIssues(t *testing.T) {
	fake := llm.NewFakeInvoker().ScriptText("revised findings with numbers")
	r := NewResearcher(fakeModel(fake))
	board := blackboard.New()

	step := models.PlanStep{StepNumber: 1, Description: "Research widget origins"}
	if _, err := r.Process(context.Background(), Input{
		Task:   models.Task{ID: "t1", Description: "Explain widgets"},
		Step:   &step,
		Issues: []string{"step 1 findings lack concrete numbers"},
	}, board); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prompt := fake.Calls()[0].Messages[0].Content
	if !strings.Contains(prompt, "lack concrete numbers") {
		t.Error("critique issues not included in retry prompt")
	}
}

func TestResearcherModelFailure(t *testing.T) {
	fake := llm.NewFakeInvoker().ScriptError(fmt.Errorf("rate limited"))
	r := NewResearcher(fakeModel(fake))
	board := blackboard.New()

	step := models.PlanStep{StepNumber: 3, Description: "Research something"}
	_, err := r.Process(context.Background(), Input{
		Task: models.Task{ID: "t1", Description: "Explain widgets"},
		Step: &step,
	}, board)

	var rerr *ResearchError
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want ResearchError", err)
	}
	if rerr.StepNumber != 3 {
		t.Errorf("step = %d, want 3", rerr.StepNumber)
	}
	if _, err := board.Get(ResearchKey(3)); !errors.Is(err, blackboard.ErrNotFound) {
		t.Error("failed research must not leave findings on the board")
	}
}
