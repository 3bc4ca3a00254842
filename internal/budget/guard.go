// Package budget enforces a monetary spend limit for an orchestration run.
// Every chargeable call is gated by Check before it executes and accounted
// with Record after it completes.
package budget

import (
	"fmt"
	"sync"
)

// Status represents the current state of budget consumption.
type Status int

const (
	// StatusOK indicates usage is below the warning threshold.
	StatusOK Status = iota
	// StatusWarning indicates usage crossed the warning threshold.
	StatusWarning
	// StatusExhausted indicates usage crossed the kill threshold.
	StatusExhausted
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWarning:
		return "Warning"
	case StatusExhausted:
		return "Exhausted"
	default:
		return "Unknown"
	}
}

// Reason explains why a Check refused to proceed.
type Reason string

const (
	// ReasonOK means the call may proceed.
	ReasonOK Reason = "ok"
	// ReasonBudgetExceeded means spent plus the estimate would cross the limit.
	ReasonBudgetExceeded Reason = "budget_exceeded"
	// ReasonPerCallCap means the single call exceeds its own cap.
	ReasonPerCallCap Reason = "per_call_cap"
)

const (
	// DefaultWarnFraction is the fraction of the limit at which a
	// warning is surfaced.
	DefaultWarnFraction = 0.80
	// DefaultKillFraction is the fraction of the limit at which all
	// further chargeable calls are blocked.
	DefaultKillFraction = 1.0
)

// WarnFunc is invoked at most once, when spend first crosses the warning
// threshold. It must not call back into the Guard.
type WarnFunc func(spent, limit float64)

// Guard tracks cumulative spend against a limit and fails closed: a call
// whose estimated cost would cross the limit is refused before it executes.
// All mutation of spent is serialized so two concurrent callers cannot both
// pass a racing Check.
type Guard struct {
	// limit is the maximum allowed spend in dollars.
	limit float64
	// perCallCap caps the cost of any single call; zero disables it.
	perCallCap float64
	// warnFraction is the fraction of limit at which onWarn fires.
	warnFraction float64
	// killFraction is the fraction of limit at which calls are blocked.
	killFraction float64
	// spent is the cumulative recorded spend. Monotonically non-decreasing.
	spent float64
	// warned tracks whether the warning has fired.
	warned bool
	// onWarn is the warning callback, may be nil.
	onWarn WarnFunc
	// mu protects all mutable state.
	mu sync.Mutex
}

// Option configures a Guard.
type Option func(*Guard)

// WithPerCallCap sets the maximum cost of a single call.
// A call over the cap is rejected even when the aggregate has headroom.
func WithPerCallCap(cap float64) Option {
	return func(g *Guard) { g.perCallCap = cap }
}

// WithWarnFraction sets the warning threshold fraction (0.0-1.0).
func WithWarnFraction(f float64) Option {
	return func(g *Guard) { g.warnFraction = clampFraction(f) }
}

// WithKillFraction sets the kill threshold fraction (0.0-1.0).
func WithKillFraction(f float64) Option {
	return func(g *Guard) { g.killFraction = clampFraction(f) }
}

// WithWarnFunc sets the callback fired once when the warning threshold
// is first crossed.
func WithWarnFunc(fn WarnFunc) Option {
	return func(g *Guard) { g.onWarn = fn }
}

// NewGuard creates a Guard for the given dollar limit.
func NewGuard(limit float64, opts ...Option) *Guard {
	g := &Guard{
		limit:        limit,
		warnFraction: DefaultWarnFraction,
		killFraction: DefaultKillFraction,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check reports whether a call with the given estimated cost may proceed.
// It fails closed: if spent plus the estimate would cross the kill
// threshold, the call is refused before it executes. A per-call cap, when
// configured, is evaluated independently of the aggregate budget.
func (g *Guard) Check(estimatedCost float64) (bool, Reason) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.perCallCap > 0 && estimatedCost > g.perCallCap {
		return false, ReasonPerCallCap
	}

	if g.limit <= 0 {
		return true, ReasonOK // No budget limit set.
	}

	if g.spent+estimatedCost > g.limit*g.killFraction {
		return false, ReasonBudgetExceeded
	}
	return true, ReasonOK
}

// Record adds the actual cost of a completed call to the cumulative spend.
// Crossing the warning threshold fires the warning callback exactly once.
func (g *Guard) Record(actualCost float64) {
	if actualCost < 0 {
		actualCost = 0
	}

	g.mu.Lock()
	g.spent += actualCost
	fireWarn := false
	if !g.warned && g.limit > 0 && g.spent >= g.limit*g.warnFraction {
		g.warned = true
		fireWarn = true
	}
	spent, limit, onWarn := g.spent, g.limit, g.onWarn
	g.mu.Unlock()

	// Fire outside the lock so the callback can emit trace events freely.
	if fireWarn && onWarn != nil {
		onWarn(spent, limit)
	}
}

// Spent returns the cumulative recorded spend.
func (g *Guard) Spent() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.spent
}

// Limit returns the configured spend limit.
func (g *Guard) Limit() float64 {
	return g.limit
}

// Status returns the current consumption status.
func (g *Guard) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.limit <= 0 {
		return StatusOK
	}
	frac := g.spent / g.limit
	if frac >= g.killFraction {
		return StatusExhausted
	}
	if frac >= g.warnFraction {
		return StatusWarning
	}
	return StatusOK
}

// Summary returns a one-line description of spend versus limit.
func (g *Guard) Summary() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.limit <= 0 {
		return fmt.Sprintf("$%.4f spent (no limit)", g.spent)
	}
	return fmt.Sprintf("$%.4f of $%.4f (%.0f%%)", g.spent, g.limit, g.spent/g.limit*100)
}

func clampFraction(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
