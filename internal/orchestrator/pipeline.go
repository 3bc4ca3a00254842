package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tembric/ensemble/internal/budget"
	"github.com/tembric/ensemble/internal/compact"
	"github.com/tembric/ensemble/internal/llm"
	"github.com/tembric/ensemble/internal/roles"
	"github.com/tembric/ensemble/pkg/models"
)

// tierUse records which tier served a call, for post-critique router
// feedback.
type tierUse struct {
	stage string
	task  string
	tier  models.Tier
}

// pipeline wraps the raw invoker with the per-call policy every role
// call passes through: tier routing, history compaction, budget
// enforcement, and trace recording.
type pipeline struct {
	guard     *budget.Guard
	router    *routerIface
	compactor *compact.Compactor
	invoker   llm.Invoker
	collector traceRecorder

	cheapModel       string
	capableModel     string
	temperature      float64
	maxTokens        int
	callTimeout      time.Duration
	strategy         compact.Strategy
	maxHistoryTokens int

	mu   sync.Mutex
	uses []tierUse
}

// routerIface is the slice of the router the pipeline needs.
type routerIface struct {
	route func(task string) models.Tier
}

// traceRecorder is the slice of the trace collector the pipeline needs.
type traceRecorder interface {
	Record(event models.TraceEvent)
}

// modelFor maps a routing tier to the configured provider model.
func (p *pipeline) modelFor(tier models.Tier) string {
	if tier == models.TierCapable {
		return p.capableModel
	}
	return p.cheapModel
}

// run executes one role call through the full policy chain.
func (p *pipeline) run(ctx context.Context, call roles.Call) (*llm.Response, error) {
	if ctx.Err() != nil {
		return nil, ErrCancelled
	}

	// Routing keys off the call's prompt content.
	prompt := ""
	if len(call.Messages) > 0 {
		prompt = call.Messages[len(call.Messages)-1].Content
	}
	tier := p.router.route(prompt)
	model := p.modelFor(tier)

	history, _, err := p.compactor.Compress(call.Messages, p.maxHistoryTokens, p.strategy)
	if err != nil {
		return nil, fmt.Errorf("compact %s history: %w", call.Stage, err)
	}

	estTokens := int64(compact.EstimateHistory(history)) + int64(len(call.System))/4
	estCost := llm.EstimateCost(model, estTokens, p.maxTokens)
	if ok, reason := p.guard.Check(estCost); !ok {
		switch reason {
		case budget.ReasonPerCallCap:
			return nil, fmt.Errorf("%s call estimated at $%.4f: %w", call.Stage, estCost, ErrPerCallCap)
		default:
			return nil, fmt.Errorf("%s call estimated at $%.4f: %w", call.Stage, estCost, ErrBudgetExceeded)
		}
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if p.callTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, p.callTimeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := p.invoker.Invoke(callCtx, llm.Request{
		Model:       model,
		System:      call.System,
		Messages:    history,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	})
	elapsed := time.Since(started)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &TimeoutError{Stage: call.Stage, Elapsed: elapsed}
		}
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}
		return nil, err
	}

	p.guard.Record(resp.Cost)

	p.collector.Record(models.TraceEvent{
		StepIndex: call.StepIndex,
		StageName: call.Stage,
		StartedAt: started,
		Duration:  elapsed,
		Cost:      resp.Cost,
		TokensIn:  resp.TokensIn,
		TokensOut: resp.TokensOut,
		Detail:    fmt.Sprintf("tier=%s model=%s", tier, model),
	})

	p.mu.Lock()
	p.uses = append(p.uses, tierUse{stage: call.Stage, task: prompt, tier: tier})
	p.mu.Unlock()

	return resp, nil
}

// drainUses returns and clears the tier usage log accumulated since the
// last call. The orchestrator feeds these back to the router once each
// critique scores the work they produced.
func (p *pipeline) drainUses() []tierUse {
	p.mu.Lock()
	defer p.mu.Unlock()
	uses := p.uses
	p.uses = nil
	return uses
}
