package budget

import (
	"sync"
	"testing"
)

func TestCheckWithinBudget(t *testing.T) {
	g := NewGuard(1.00)

	ok, reason := g.Check(0.50)
	if !ok {
		t.Fatalf("expected check to pass, got reason %q", reason)
	}
}

func TestCheckFailsClosed(t *testing.T) {
	g := NewGuard(1.00)
	g.Record(0.90)

	ok, reason := g.Check(0.20)
	if ok {
		t.Fatal("expected check to refuse a call that would cross the limit")
	}
	if reason != ReasonBudgetExceeded {
		t.Errorf("reason = %q, want %q", reason, ReasonBudgetExceeded)
	}

	// The refused call was never recorded, so spent stays under the limit.
	if g.Spent() > g.Limit() {
		t.Errorf("spent %v exceeds limit %v after refused check", g.Spent(), g.Limit())
	}
}

func TestCheckExactLimit(t *testing.T) {
	g := NewGuard(1.00)
	g.Record(0.50)

	// Spending up to exactly the limit is allowed; crossing it is not.
	if ok, _ := g.Check(0.50); !ok {
		t.Error("expected check at exactly the limit to pass")
	}
	if ok, _ := g.Check(0.51); ok {
		t.Error("expected check just over the limit to fail")
	}
}

func TestPerCallCapIndependent(t *testing.T) {
	g := NewGuard(10.00, WithPerCallCap(0.10))

	// Aggregate has plenty of headroom but the single call is over its cap.
	ok, reason := g.Check(0.50)
	if ok {
		t.Fatal("expected per-call cap to reject the call")
	}
	if reason != ReasonPerCallCap {
		t.Errorf("reason = %q, want %q", reason, ReasonPerCallCap)
	}

	if ok, _ := g.Check(0.05); !ok {
		t.Error("expected call under the cap to pass")
	}
}

func TestWarningFiresOnce(t *testing.T) {
	var calls int
	var warnSpent float64
	g := NewGuard(1.00, WithWarnFunc(func(spent, limit float64) {
		calls++
		warnSpent = spent
	}))

	g.Record(0.50)
	if calls != 0 {
		t.Fatal("warning fired below threshold")
	}

	g.Record(0.32) // crosses 0.80
	if calls != 1 {
		t.Fatalf("expected warning to fire once, fired %d times", calls)
	}
	if warnSpent < 0.80 {
		t.Errorf("warning fired at spent=%v, want >= 0.80", warnSpent)
	}

	g.Record(0.05)
	if calls != 1 {
		t.Errorf("warning fired again after threshold crossing, calls=%d", calls)
	}
}

func TestStatusTransitions(t *testing.T) {
	g := NewGuard(1.00)

	if got := g.Status(); got != StatusOK {
		t.Errorf("initial status = %v, want OK", got)
	}

	g.Record(0.85)
	if got := g.Status(); got != StatusWarning {
		t.Errorf("status at 85%% = %v, want Warning", got)
	}

	g.Record(0.20)
	if got := g.Status(); got != StatusExhausted {
		t.Errorf("status at 105%% = %v, want Exhausted", got)
	}
}

func TestNoLimitAlwaysProceeds(t *testing.T) {
	g := NewGuard(0)
	g.Record(123.45)

	if ok, _ := g.Check(999); !ok {
		t.Error("guard without a limit should always proceed")
	}
	if got := g.Status(); got != StatusOK {
		t.Errorf("status = %v, want OK", got)
	}
}

func TestConcurrentRecordSerialized(t *testing.T) {
	g := NewGuard(1000)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Record(0.01)
		}()
	}
	wg.Wait()

	// 100 * 0.01 with float accumulation; allow a small epsilon.
	if spent := g.Spent(); spent < 0.999 || spent > 1.001 {
		t.Errorf("spent = %v, want ~1.00", spent)
	}
}

func TestNegativeCostIgnored(t *testing.T) {
	g := NewGuard(1.00)
	g.Record(0.50)
	g.Record(-0.40)

	if spent := g.Spent(); spent != 0.50 {
		t.Errorf("spent = %v, want 0.50 (negative costs ignored)", spent)
	}
}
