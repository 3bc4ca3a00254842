// Package trace records per-stage timing, token, and cost events for an
// orchestration run and exports them for offline analysis.
package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/tembric/ensemble/pkg/models"
)

// Collector accumulates trace events for one run. It is append-only and
// safe for concurrent use; recording never blocks role execution on I/O.
type Collector struct {
	mu     sync.Mutex
	runID  string
	events []models.TraceEvent
}

// NewCollector creates a Collector for the given run.
func NewCollector(runID string) *Collector {
	return &Collector{runID: runID}
}

// Record appends an event. The event's RunID is set to the collector's
// run if empty.
func (c *Collector) Record(event models.TraceEvent) {
	if event.RunID == "" {
		event.RunID = c.runID
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

// Events returns a copy of all recorded events in record order.
func (c *Collector) Events() []models.TraceEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.TraceEvent, len(c.events))
	copy(out, c.events)
	return out
}

// TotalCost sums the cost of all recorded events.
func (c *Collector) TotalCost() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0.0
	for _, e := range c.events {
		total += e.Cost
	}
	return total
}

// ExportNDJSON writes every event as one JSON object per line.
func (c *Collector) ExportNDJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, e := range c.Events() {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encode trace event: %w", err)
		}
	}
	return nil
}
