package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tembric/ensemble/pkg/models"
)

// Pool runs multiple orchestrations concurrently against one shared
// Orchestrator, so routing feedback accumulates across tasks.
type Pool struct {
	orch *Orchestrator

	mu      sync.Mutex
	results map[string]*RunResult
	errs    map[string]error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates a Pool around an Orchestrator.
func NewPool(orch *Orchestrator) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		orch:    orch,
		results: make(map[string]*RunResult),
		errs:    make(map[string]error),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit starts a run for the given task description and returns its
// run ID immediately.
func (p *Pool) Submit(description string) string {
	runID := uuid.New().String()[:8]
	task := models.Task{ID: runID, Description: description}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		result, err := p.orch.Run(p.ctx, task)

		p.mu.Lock()
		p.results[runID] = result
		p.errs[runID] = err
		p.mu.Unlock()
	}()

	return runID
}

// Result returns the finished run's result and error. The second return
// is false while the run is still in flight.
func (p *Pool) Result(runID string) (*RunResult, error, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	result, ok := p.results[runID]
	if !ok {
		return nil, nil, false
	}
	return result, p.errs[runID], true
}

// Wait blocks until every submitted run has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Shutdown cancels in-flight runs and waits for them to settle.
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}

// Active returns how many submitted runs have not finished yet.
func (p *Pool) Active(submitted []string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	active := 0
	for _, id := range submitted {
		if _, ok := p.results[id]; !ok {
			active++
		}
	}
	return active
}

// Summary formats a one-line status for a finished run.
func (p *Pool) Summary(runID string) string {
	result, err, done := p.Result(runID)
	if !done {
		return fmt.Sprintf("%s: running", runID)
	}
	if err != nil {
		return fmt.Sprintf("%s: failed: %v", runID, err)
	}
	return fmt.Sprintf("%s: %s, $%.4f spent, %d retries", runID, result.Stage, result.FinalCost, result.Retries)
}
