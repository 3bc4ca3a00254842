package roles

import (
	"context"

	"github.com/tembric/ensemble/internal/blackboard"
	"github.com/tembric/ensemble/pkg/models"
)

// Synthesizer merges all research findings into the final artifact.
type Synthesizer struct {
	model ModelFunc
}

// NewSynthesizer creates a Synthesizer using model for its calls.
func NewSynthesizer(model ModelFunc) *Synthesizer {
	return &Synthesizer{model: model}
}

// Name implements Role.
func (s *Synthesizer) Name() string { return "synthesizer" }

// Process reads every research entry from the board and produces the
// final answer, addressing any outstanding critique issues. The
// artifact is written to the board.
func (s *Synthesizer) Process(ctx context.Context, in Input, board *blackboard.Board) (*models.RoleResult, error) {
	var findings []string
	for _, entry := range board.GetPrefix(ResearchKeyPrefix) {
		findings = append(findings, entry.Key+":\n"+entry.Value)
	}
	if len(findings) == 0 {
		return nil, &SynthesisError{Err: errNoFindings}
	}

	resp, err := s.model(ctx, Call{
		Stage:  s.Name(),
		System: synthesizerSystem,
		Messages: []models.Message{
			{Role: models.RoleUser, Content: synthesizerPrompt(in.Task, findings, in.Critique)},
		},
	})
	if err != nil {
		return nil, &SynthesisError{Err: err}
	}

	board.Put(KeyArtifact, resp.Content, s.Name())
	return resultFromResponse(s.Name(), resp), nil
}
