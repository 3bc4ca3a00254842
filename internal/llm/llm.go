// Package llm abstracts the model provider behind a small invocation
// interface so the orchestration pipeline can be exercised without
// network access.
package llm

import (
	"context"

	"github.com/tembric/ensemble/pkg/models"
)

// Request is a single model invocation.
type Request struct {
	// Model is the provider model identifier.
	Model string
	// System is the system prompt, separate from the message history.
	System string
	// Messages is the conversation history, oldest first.
	Messages []models.Message
	// Temperature controls sampling. Zero means provider default.
	Temperature float64
	// MaxTokens caps the response length.
	MaxTokens int
}

// Response is the result of a model invocation.
type Response struct {
	// Content is the concatenated text output.
	Content string
	// TokensIn is the prompt token count reported by the provider.
	TokensIn int64
	// TokensOut is the completion token count.
	TokensOut int64
	// Cost is the dollar cost of this call, derived from the pricing
	// table for the requested model.
	Cost float64
}

// Invoker sends requests to a model provider.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
}
