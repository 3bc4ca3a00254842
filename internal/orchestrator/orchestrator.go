// Package orchestrator drives a multi-role run: planning, parallel
// research over a shared blackboard, critique with bounded retries, and
// final synthesis. Every model call passes through the budget, routing,
// and compaction pipeline.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tembric/ensemble/internal/blackboard"
	"github.com/tembric/ensemble/internal/budget"
	"github.com/tembric/ensemble/internal/compact"
	"github.com/tembric/ensemble/internal/llm"
	"github.com/tembric/ensemble/internal/roles"
	"github.com/tembric/ensemble/internal/router"
	"github.com/tembric/ensemble/internal/tools"
	"github.com/tembric/ensemble/internal/trace"
	"github.com/tembric/ensemble/pkg/models"
)

// Stage names the phase a run is in.
type Stage string

const (
	StagePlanning  Stage = "planning"
	StageResearch  Stage = "research"
	StageCritique  Stage = "critique"
	StageSynthesis Stage = "synthesis"
	StageFactCheck Stage = "factcheck"
	StageDone      Stage = "done"
	StageFailed    Stage = "failed"
)

// RunResult is the outcome of one orchestration run.
type RunResult struct {
	// RunID identifies the run in traces and archives.
	RunID string
	// Artifact is the synthesized final answer.
	Artifact string
	// Critique is the last critique recorded before synthesis.
	Critique *models.CritiqueResult
	// FinalCost is the total dollar spend of the run.
	FinalCost float64
	// Retries is how many critique-driven retry rounds ran.
	Retries int
	// QualityShortfall is true when the retry ceiling was reached and
	// synthesis proceeded below the quality threshold.
	QualityShortfall bool
	// Stage is the stage the run ended in: done or failed.
	Stage Stage
	// Trace holds every recorded event: per-call accounting plus budget
	// warnings, threshold adjustments, and step failures.
	Trace []models.TraceEvent
	// Board is the run's blackboard, for archiving and inspection.
	Board *blackboard.Board
}

// Orchestrator coordinates the role ensemble. One Orchestrator serves
// many runs; routing feedback carries across runs while budget and
// blackboard state are per run.
type Orchestrator struct {
	invoker llm.Invoker
	emitter *EventEmitter

	router    *router.Router
	compactor *compact.Compactor
	registry  *tools.Registry

	budgetLimit  float64
	perCallCap   float64
	warnFraction float64

	cheapModel   string
	capableModel string
	temperature  float64
	maxTokens    int
	callTimeout  time.Duration

	strategy         compact.Strategy
	maxHistoryTokens int

	maxRetries       int
	qualityThreshold float64
}

// New creates an Orchestrator.
func New(req RequiredConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		invoker:          req.Invoker,
		emitter:          NewEventEmitter(100),
		router:           router.New(router.DefaultConfig()),
		compactor:        compact.New(),
		budgetLimit:      req.BudgetLimit,
		warnFraction:     budget.DefaultWarnFraction,
		cheapModel:       "claude-3-5-haiku-20241022",
		capableModel:     "claude-sonnet-4-20250514",
		maxTokens:        4096,
		callTimeout:      2 * time.Minute,
		strategy:         compact.StrategySummarize,
		maxHistoryTokens: 8000,
		maxRetries:       2,
		qualityThreshold: 7.0,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Events returns the run event stream.
func (o *Orchestrator) Events() <-chan Event {
	return o.emitter.Events()
}

// Close releases the event channel. Call after all runs have finished.
func (o *Orchestrator) Close() {
	o.emitter.Close()
}

// Run executes the full pipeline for one task. The returned RunResult is
// non-nil whenever a run was started, including on failure, so callers
// can always report spend and trace data.
func (o *Orchestrator) Run(ctx context.Context, task models.Task) (*RunResult, error) {
	runID := task.ID
	if runID == "" {
		runID = uuid.New().String()[:8]
	}

	board := blackboard.New()
	collector := trace.NewCollector(runID)

	guard := budget.NewGuard(o.budgetLimit,
		budget.WithPerCallCap(o.perCallCap),
		budget.WithWarnFraction(o.warnFraction),
		budget.WithWarnFunc(func(spent, limit float64) {
			msg := fmt.Sprintf("spend $%.4f of $%.4f budget", spent, limit)
			o.emitter.Emit(Event{Type: EventBudgetWarning, RunID: runID, Message: msg})
			collector.Record(models.TraceEvent{
				StageName: "budget_warning",
				StartedAt: time.Now(),
				Detail:    msg,
			})
		}),
	)

	pipe := &pipeline{
		guard: guard,
		router:           &routerIface{route: o.router.Route},
		compactor:        o.compactor,
		invoker:          o.invoker,
		collector:        collector,
		cheapModel:       o.cheapModel,
		capableModel:     o.capableModel,
		temperature:      o.temperature,
		maxTokens:        o.maxTokens,
		callTimeout:      o.callTimeout,
		strategy:         o.strategy,
		maxHistoryTokens: o.maxHistoryTokens,
	}
	model := roles.ModelFunc(pipe.run)

	result := &RunResult{RunID: runID, Stage: StageFailed, Board: board}
	finish := func(err error) (*RunResult, error) {
		if err != nil {
			collector.Record(models.TraceEvent{
				StageName: "run_error",
				StartedAt: time.Now(),
				Detail:    err.Error(),
			})
		}
		result.FinalCost = guard.Spent()
		result.Trace = collector.Events()
		o.emitter.Emit(Event{
			Type:    EventRunFinished,
			RunID:   runID,
			Stage:   result.Stage,
			Message: guard.Summary(),
		})
		return result, err
	}

	o.emitter.Emit(Event{Type: EventRunStarted, RunID: runID, Message: task.Description})

	// Planning.
	o.setStage(runID, StagePlanning)
	planner := roles.NewPlanner(model)
	o.emitRole(runID, StagePlanning, planner.Name(), 0)
	if _, err := planner.Process(ctx, roles.Input{Task: task}, board); err != nil {
		return finish(&RunError{Stage: StagePlanning, Err: err})
	}

	planEntry, err := board.Get(roles.KeyPlan)
	if err != nil {
		return finish(&RunError{Stage: StagePlanning, Err: err})
	}
	plan, err := roles.ParsePlan(planEntry.Value)
	if err != nil {
		return finish(&RunError{Stage: StagePlanning, Err: err})
	}

	// Research.
	o.setStage(runID, StageResearch)
	if err := o.research(ctx, task, plan, nil, nil, model, board, collector, runID); err != nil {
		return finish(&RunError{Stage: StageResearch, Err: err})
	}

	// Critique loop with bounded retries.
	o.setStage(runID, StageCritique)
	critic := roles.NewCritic(model)
	var critique *models.CritiqueResult
	for {
		o.emitRole(runID, StageCritique, critic.Name(), 0)
		_, cerr := critic.Process(ctx, roles.Input{Task: task, Plan: plan}, board)
		if cerr != nil {
			if errors.Is(cerr, ErrBudgetExceeded) || errors.Is(cerr, ErrCancelled) {
				return finish(&RunError{Stage: StageCritique, Err: cerr})
			}
			// A failed critique scores zero; the retry ceiling, not the
			// error, decides whether the run retries or synthesizes.
			collector.Record(models.TraceEvent{
				StageName: "critic_failed",
				StartedAt: time.Now(),
				Detail:    cerr.Error(),
			})
			o.emitter.Emit(Event{
				Type:    EventStepFailed,
				RunID:   runID,
				Stage:   StageCritique,
				Role:    critic.Name(),
				Message: cerr.Error(),
			})
			critique = &models.CritiqueResult{Score: 0}
		} else {
			critique, err = readCritique(board)
			if err != nil {
				return finish(&RunError{Stage: StageCritique, Err: err})
			}
		}

		// The critique scores everything produced since the last one;
		// feed it back to the router per tier that served those calls.
		// A critic failure says nothing about the scored calls, so no
		// feedback is recorded for it.
		if cerr == nil {
			for _, use := range pipe.drainUses() {
				adj := o.router.RecordFeedback(use.task, use.tier, critique.Score)
				if adj == nil {
					continue
				}
				msg := fmt.Sprintf("capable threshold %d -> %d: %s",
					adj.OldThreshold, adj.NewThreshold, adj.Reason)
				o.emitter.Emit(Event{Type: EventTierAdjusted, RunID: runID, Message: msg})
				collector.Record(models.TraceEvent{
					StageName: "tier_adjusted",
					StartedAt: time.Now(),
					Detail:    msg,
				})
			}
		} else {
			pipe.drainUses()
		}

		if critique.Passed(o.qualityThreshold) {
			break
		}
		if result.Retries >= o.maxRetries {
			result.QualityShortfall = true
			break
		}
		result.Retries++

		retrySteps := stepsForRetry(critique, plan)
		o.emitter.Emit(Event{
			Type:    EventRetryScheduled,
			RunID:   runID,
			Stage:   StageCritique,
			Message: fmt.Sprintf("retry %d: re-running %d step(s)", result.Retries, len(retrySteps)),
		})

		o.setStage(runID, StageResearch)
		if err := o.research(ctx, task, plan, retrySteps, critique.Issues, model, board, collector, runID); err != nil {
			return finish(&RunError{Stage: StageResearch, Err: err})
		}
		o.setStage(runID, StageCritique)
	}
	result.Critique = critique

	// Synthesis.
	o.setStage(runID, StageSynthesis)
	synthesizer := roles.NewSynthesizer(model)
	o.emitRole(runID, StageSynthesis, synthesizer.Name(), 0)
	synthInput := roles.Input{Task: task, Plan: plan}
	if result.QualityShortfall {
		synthInput.Critique = critique
	}
	if _, err := synthesizer.Process(ctx, synthInput, board); err != nil {
		return finish(&RunError{Stage: StageSynthesis, Err: err})
	}

	artifact, err := board.Get(roles.KeyArtifact)
	if err != nil {
		return finish(&RunError{Stage: StageSynthesis, Err: err})
	}
	result.Artifact = artifact.Value

	// Fact check is advisory: failures never revoke the artifact.
	if o.registry != nil {
		o.setStage(runID, StageFactCheck)
		checker := roles.NewFactChecker(model, o.registry)
		o.emitRole(runID, StageFactCheck, checker.Name(), 0)
		if _, err := checker.Process(ctx, roles.Input{Task: task}, board); err != nil {
			o.emitter.Emit(Event{
				Type:    EventStepFailed,
				RunID:   runID,
				Stage:   StageFactCheck,
				Role:    checker.Name(),
				Message: err.Error(),
			})
		}
	}

	result.Stage = StageDone
	return finish(nil)
}

// research runs researchers for the given steps in dependency order,
// fanning out steps whose dependencies are satisfied. A nil only set
// means all steps. Individual step failures leave a gap entry and the
// run continues; budget exhaustion and cancellation abort the stage.
func (o *Orchestrator) research(ctx context.Context, task models.Task, plan []models.PlanStep,
	only []int, issues []string, model roles.ModelFunc, board *blackboard.Board,
	collector *trace.Collector, runID string) error {

	selected := make(map[int]bool)
	if only == nil {
		for _, s := range plan {
			selected[s.StepNumber] = true
		}
	} else {
		for _, n := range only {
			selected[n] = true
		}
	}

	// Steps outside the selection count as already satisfied so their
	// dependents can run.
	done := make(map[int]bool)
	for _, s := range plan {
		if !selected[s.StepNumber] {
			done[s.StepNumber] = true
		}
	}

	var (
		mu       sync.Mutex
		fatalErr error
	)

	pending := make([]models.PlanStep, 0, len(plan))
	for _, s := range plan {
		if selected[s.StepNumber] {
			pending = append(pending, s)
		}
	}

	for len(pending) > 0 {
		var wave, rest []models.PlanStep
		for _, s := range pending {
			ready := true
			for _, dep := range s.DependsOn {
				if !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, s)
			} else {
				rest = append(rest, s)
			}
		}
		if len(wave) == 0 {
			return fmt.Errorf("no runnable steps among %d pending", len(rest))
		}
		pending = rest

		var wg sync.WaitGroup
		for _, step := range wave {
			wg.Add(1)
			go func(step models.PlanStep) {
				defer wg.Done()

				researcher := roles.NewResearcher(model)
				o.emitRole(runID, StageResearch, researcher.Name(), step.StepNumber)

				_, err := researcher.Process(ctx, roles.Input{
					Task:   task,
					Step:   &step,
					Plan:   plan,
					Issues: issues,
				}, board)

				mu.Lock()
				defer mu.Unlock()
				done[step.StepNumber] = true

				if err == nil {
					o.emitter.Emit(Event{
						Type:       EventRoleFinished,
						RunID:      runID,
						Stage:      StageResearch,
						Role:       researcher.Name(),
						StepNumber: step.StepNumber,
					})
					return
				}

				if errors.Is(err, ErrBudgetExceeded) || errors.Is(err, ErrCancelled) {
					if fatalErr == nil {
						fatalErr = err
					}
					return
				}

				// Non-fatal step failure: leave a gap and continue.
				board.Put(roles.ResearchKey(step.StepNumber),
					fmt.Sprintf("[gap] step %d findings unavailable: %v", step.StepNumber, err),
					"orchestrator")
				collector.Record(models.TraceEvent{
					StepIndex: step.StepNumber,
					StageName: "step_failed",
					StartedAt: time.Now(),
					Detail:    err.Error(),
				})
				o.emitter.Emit(Event{
					Type:       EventStepFailed,
					RunID:      runID,
					Stage:      StageResearch,
					Role:       researcher.Name(),
					StepNumber: step.StepNumber,
					Message:    err.Error(),
				})
			}(step)
		}
		wg.Wait()

		if fatalErr != nil {
			return fatalErr
		}
	}
	return nil
}

// stepsForRetry decides which steps a retry round re-runs: the steps the
// critique names, or every step when no issue is step-scoped.
func stepsForRetry(critique *models.CritiqueResult, plan []models.PlanStep) []int {
	implicated := roles.StepsImplicated(critique, len(plan))
	if len(implicated) > 0 {
		return implicated
	}
	all := make([]int, 0, len(plan))
	for _, s := range plan {
		all = append(all, s.StepNumber)
	}
	return all
}

func readCritique(board *blackboard.Board) (*models.CritiqueResult, error) {
	entry, err := board.Get(roles.KeyCritique)
	if err != nil {
		return nil, fmt.Errorf("critique missing from board: %w", err)
	}
	var critique models.CritiqueResult
	if err := json.Unmarshal([]byte(entry.Value), &critique); err != nil {
		return nil, fmt.Errorf("decode critique: %w", err)
	}
	return &critique, nil
}

func (o *Orchestrator) setStage(runID string, stage Stage) {
	o.emitter.Emit(Event{Type: EventStageChanged, RunID: runID, Stage: stage})
}

func (o *Orchestrator) emitRole(runID string, stage Stage, role string, step int) {
	o.emitter.Emit(Event{
		Type:       EventRoleStarted,
		RunID:      runID,
		Stage:      stage,
		Role:       role,
		StepNumber: step,
	})
}
