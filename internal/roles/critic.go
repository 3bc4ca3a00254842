package roles

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/tembric/ensemble/internal/blackboard"
	"github.com/tembric/ensemble/pkg/models"
)

// Critic scores the collected research against the task and names
// concrete issues for retry.
type Critic struct {
	model ModelFunc
}

// NewCritic creates a Critic using model for its calls.
func NewCritic(model ModelFunc) *Critic {
	return &Critic{model: model}
}

// Name implements Role.
func (c *Critic) Name() string { return "critic" }

// Process reads the plan and all research entries from the board, asks
// the model for a structured critique, and writes the parsed critique
// back to the board as JSON.
func (c *Critic) Process(ctx context.Context, in Input, board *blackboard.Board) (*models.RoleResult, error) {
	plan := ""
	if entry, err := board.Get(KeyPlan); err == nil {
		plan = entry.Value
	}

	var findings []string
	for _, entry := range board.GetPrefix(ResearchKeyPrefix) {
		findings = append(findings, entry.Key+":\n"+entry.Value)
	}

	resp, err := c.model(ctx, Call{
		Stage:  c.Name(),
		System: criticSystem,
		Messages: []models.Message{
			{Role: models.RoleUser, Content: criticPrompt(in.Task, plan, findings)},
		},
	})
	if err != nil {
		return nil, err
	}

	critique, err := ParseCritique(resp.Content)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(critique)
	if err != nil {
		return nil, &CritiqueError{Reason: "encode critique: " + err.Error(), Output: resp.Content}
	}
	board.Put(KeyCritique, string(encoded), c.Name())

	return resultFromResponse(c.Name(), resp), nil
}

// ParseCritique extracts a structured critique from the critic's output.
// The expected format is a SCORE: line followed by ISSUES: and
// STRENGTHS: bulleted sections. A missing or unparsable score is a
// CritiqueError.
func ParseCritique(output string) (*models.CritiqueResult, error) {
	result := &models.CritiqueResult{Score: -1}

	section := ""
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "SCORE:"):
			raw := strings.TrimSpace(strings.TrimPrefix(trimmed, "SCORE:"))
			score, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, &CritiqueError{Reason: "unparsable score " + strconv.Quote(raw), Output: output}
			}
			if score < 0 || score > 10 {
				return nil, &CritiqueError{Reason: "score out of range: " + raw, Output: output}
			}
			result.Score = score
		case strings.HasPrefix(trimmed, "ISSUES:"):
			section = "issues"
		case strings.HasPrefix(trimmed, "STRENGTHS:"):
			section = "strengths"
		case strings.HasPrefix(trimmed, "- "):
			item := strings.TrimSpace(strings.TrimPrefix(trimmed, "- "))
			if item == "" || strings.EqualFold(item, "none") {
				continue
			}
			switch section {
			case "issues":
				result.Issues = append(result.Issues, item)
			case "strengths":
				result.Strengths = append(result.Strengths, item)
			}
		}
	}

	if result.Score < 0 {
		return nil, &CritiqueError{Reason: "no SCORE line found", Output: output}
	}
	return result, nil
}

// stepRefRe matches "step N" references in critique issues. The word
// boundary keeps "step 1" from matching inside "step 12".
var stepRefRe = regexp.MustCompile(`step\s+(\d+)\b`)

// StepsImplicated returns the step numbers named as "step N" in the
// critique's issues, in ascending order. An empty result means no issue
// is step-scoped and a retry should re-run every step.
func StepsImplicated(critique *models.CritiqueResult, planLen int) []int {
	seen := make(map[int]bool)
	var steps []int
	for _, issue := range critique.Issues {
		for _, m := range stepRefRe.FindAllStringSubmatch(strings.ToLower(issue), -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 || n > planLen || seen[n] {
				continue
			}
			seen[n] = true
			steps = append(steps, n)
		}
	}
	sort.Ints(steps)
	return steps
}
