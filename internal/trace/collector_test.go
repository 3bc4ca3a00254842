package trace

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tembric/ensemble/pkg/models"
)

func event(stage string, stepIndex int, cost float64) models.TraceEvent {
	return models.TraceEvent{
		StepIndex: stepIndex,
		StageName: stage,
		StartedAt: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
		Duration:  150 * time.Millisecond,
		Cost:      cost,
		TokensIn:  100,
		TokensOut: 50,
	}
}

func TestRecordAndEvents(t *testing.T) {
	c := NewCollector("run-1")
	c.Record(event("planner", 0, 0.01))
	c.Record(event("researcher", 1, 0.002))

	events := c.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].RunID != "run-1" {
		t.Errorf("run id not filled in: %q", events[0].RunID)
	}
	if events[0].StageName != "planner" || events[1].StageName != "researcher" {
		t.Error("events out of record order")
	}
}

func TestTotalCost(t *testing.T) {
	c := NewCollector("run-1")
	c.Record(event("planner", 0, 0.01))
	c.Record(event("researcher", 1, 0.002))
	c.Record(event("critic", 2, 0.003))

	if got := c.TotalCost(); got != 0.015 {
		t.Errorf("total cost = %v, want 0.015", got)
	}
}

func TestConcurrentRecord(t *testing.T) {
	c := NewCollector("run-1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c.Record(event("researcher", n, 0.001))
		}(i)
	}
	wg.Wait()

	if got := len(c.Events()); got != 50 {
		t.Errorf("got %d events, want 50", got)
	}
}

func TestExportNDJSON(t *testing.T) {
	c := NewCollector("run-1")
	c.Record(event("planner", 0, 0.01))
	c.Record(event("synthesizer", 1, 0.02))

	var buf bytes.Buffer
	if err := c.ExportNDJSON(&buf); err != nil {
		t.Fatalf("export: %v", err)
	}

	scanner := bufio.NewScanner(&buf)
	lines := 0
	for scanner.Scan() {
		lines++
		var e models.TraceEvent
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines, err)
		}
		if e.RunID != "run-1" {
			t.Errorf("line %d run id = %q", lines, e.RunID)
		}
	}
	if lines != 2 {
		t.Errorf("got %d lines, want 2", lines)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenStore(filepath.Join(dir, "trace.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	for _, runID := range []string{"run-a", "run-b"} {
		c := NewCollector(runID)
		for i := 0; i < 3; i++ {
			c.Record(event(fmt.Sprintf("stage-%d", i), i, 0.001))
		}
		if err := s.Save(c); err != nil {
			t.Fatalf("save %s: %v", runID, err)
		}
	}

	events, err := s.LoadRun("run-a")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].Duration != 150*time.Millisecond {
		t.Errorf("duration = %v, want 150ms", events[0].Duration)
	}
	if events[2].StageName != "stage-2" {
		t.Errorf("order not preserved: %q", events[2].StageName)
	}

	ids, err := s.RunIDs()
	if err != nil {
		t.Fatalf("run ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != "run-a" || ids[1] != "run-b" {
		t.Errorf("run ids = %v", ids)
	}
}
