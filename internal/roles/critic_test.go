package roles

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/tembric/ensemble/internal/blackboard"
	"github.com/tembric/ensemble/internal/llm"
	"github.com/tembric/ensemble/pkg/models"
)

func TestParseCritique(t *testing.T) {
	output := `SCORE: 6.5
ISSUES:
- step 2 findings lack concrete numbers
- the comparison in step 3 is superficial
STRENGTHS:
- step 1 coverage is thorough`

	critique, err := ParseCritique(output)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if critique.Score != 6.5 {
		t.Errorf("score = %v, want 6.5", critique.Score)
	}
	if len(critique.Issues) != 2 {
		t.Errorf("got %d issues, want 2", len(critique.Issues))
	}
	if len(critique.Strengths) != 1 {
		t.Errorf("got %d strengths, want 1", len(critique.Strengths))
	}
}

func TestParseCritiqueNoneIssue(t *testing.T) {
	critique, err := ParseCritique("SCORE: 9.5\nISSUES:\n- none\nSTRENGTHS:\n- complete coverage")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(critique.Issues) != 0 {
		t.Errorf("\"none\" should yield no issues, got %v", critique.Issues)
	}
}

func TestParseCritiqueErrors(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"no score line", "ISSUES:\n- something is wrong"},
		{"unparsable score", "SCORE: very good\nISSUES:\n- none"},
		{"score out of range", "SCORE: 14\nISSUES:\n- none"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCritique(tt.output)
			var cerr *CritiqueError
			if !errors.As(err, &cerr) {
				t.Errorf("err = %v, want CritiqueError", err)
			}
		})
	}
}

func TestStepsImplicated(t *testing.T) {
	tests := []struct {
		name    string
		issues  []string
		planLen int
		want    []int
	}{
		{
			name:    "single step named",
			issues:  []string{"step 2 findings lack depth"},
			planLen: 3,
			want:    []int{2},
		},
		{
			name:    "multiple steps across issues",
			issues:  []string{"Step 1 is vague", "the data in step 3 is stale"},
			planLen: 3,
			want:    []int{1, 3},
		},
		{
			name:    "no step named",
			issues:  []string{"overall structure is weak"},
			planLen: 3,
			want:    nil,
		},
		{
			name:    "step number beyond plan ignored",
			issues:  []string{"step 9 is missing"},
			planLen: 3,
			want:    nil,
		},
		{
			name:    "higher step named before lower in one issue",
			issues:  []string{"step 12 contradicts step 1 and both need rework"},
			planLen: 12,
			want:    []int{1, 12},
		},
		{
			name:    "two-digit step not split into digits",
			issues:  []string{"step 12 is incomplete"},
			planLen: 12,
			want:    []int{12},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			critique := &models.CritiqueResult{Issues: tt.issues}
			got := StepsImplicated(critique, tt.planLen)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestCriticProcess(t *testing.T) {
	fake := llm.NewFakeInvoker().ScriptText("SCORE: 9\nISSUES:\n- none\nSTRENGTHS:\n- solid findings")
	c := NewCritic(fakeModel(fake))

	board := blackboard.New()
	board.Put(KeyPlan, "1. Research widgets", "planner")
	board.Put(ResearchKey(1), "widgets were invented in 1922", "researcher")

	_, err := c.Process(context.Background(), Input{
		Task: models.Task{ID: "t1", Description: "Explain widgets"},
	}, board)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry, err := board.Get(KeyCritique)
	if err != nil {
		t.Fatalf("critique not written to board: %v", err)
	}
	var critique models.CritiqueResult
	if err := json.Unmarshal([]byte(entry.Value), &critique); err != nil {
		t.Fatalf("critique on board is not JSON: %v", err)
	}
	if critique.Score != 9 {
		t.Errorf("score = %v, want 9", critique.Score)
	}
}

func TestCriticProcessMalformedOutput(t *testing.T) {
	fake := llm.NewFakeInvoker().ScriptText("The research looks fine to me.")
	c := NewCritic(fakeModel(fake))
	board := blackboard.New()

	_, err := c.Process(context.Background(), Input{
		Task: models.Task{ID: "t1", Description: "Explain widgets"},
	}, board)

	var cerr *CritiqueError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want CritiqueError", err)
	}
}
