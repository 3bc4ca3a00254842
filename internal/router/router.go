// Package router scores task complexity and selects an execution tier.
// Scoring is deterministic: the same description and configuration always
// yield the same tier.
package router

import (
	"strings"
	"sync"

	"github.com/tembric/ensemble/pkg/models"
)

// defaultMultiStepKeywords indicate tasks that chain several actions.
var defaultMultiStepKeywords = []string{
	"and then",
	"after that",
	"first",
	"step by step",
	"step-by-step",
	"in order",
	"finally",
	"followed by",
}

// defaultCodeKeywords indicate code-related work.
var defaultCodeKeywords = []string{
	"```",
	"code",
	"function",
	"implement",
	"refactor",
	"debug",
	"compile",
	"class ",
	"def ",
}

// defaultTechnicalKeywords indicate analytic or architectural work.
var defaultTechnicalKeywords = []string{
	"analyze",
	"analyse",
	"architecture",
	"design",
	"compare",
	"evaluate",
	"strategy",
	"algorithm",
	"performance",
	"benchmark",
	"security",
}

// defaultTranslateKeywords indicate translation tasks.
var defaultTranslateKeywords = []string{"translate", "translation"}

// defaultSummarizeKeywords indicate summarization tasks.
var defaultSummarizeKeywords = []string{"summarize", "summarise", "summary", "tl;dr"}

// defaultTrivialKeywords indicate simple question/answer exchanges.
var defaultTrivialKeywords = []string{
	"hello",
	"hi ",
	"what is",
	"what does",
	"thanks",
	"thank you",
}

// Config holds the routing thresholds and keyword lists.
// Everything here is operator-tunable; nothing is hard-coded in Route.
type Config struct {
	// LongChars is the length above which a task scores +2.
	LongChars int
	// VeryLongChars is the length above which a task scores another +2.
	VeryLongChars int
	// CapableThreshold is the score at or above which the capable tier
	// is selected.
	CapableThreshold int
	// MinCapableThreshold bounds downward feedback adjustment.
	MinCapableThreshold int
	// MaxCapableThreshold bounds upward feedback adjustment.
	MaxCapableThreshold int
	// TrivialScore is the score at or below which a task counts as
	// trivially routed, for feedback purposes.
	TrivialScore int
	// QualityFloor is the rolling average below which the cheap tier is
	// considered underperforming.
	QualityFloor float64
	// TopQuality is the score at or above which a result counts as
	// top quality, for feedback purposes.
	TopQuality float64
	// WindowSize bounds the trailing feedback window per tier.
	WindowSize int

	// Keyword lists. Empty slices fall back to the package defaults.
	MultiStepKeywords []string
	CodeKeywords      []string
	TechnicalKeywords []string
	TranslateKeywords []string
	SummarizeKeywords []string
	TrivialKeywords   []string
}

// DefaultConfig returns the default routing configuration.
func DefaultConfig() Config {
	return Config{
		LongChars:           200,
		VeryLongChars:       500,
		CapableThreshold:    7,
		MinCapableThreshold: 4,
		MaxCapableThreshold: 10,
		TrivialScore:        3,
		QualityFloor:        6.0,
		TopQuality:          9.0,
		WindowSize:          20,
	}
}

func (c *Config) applyDefaults() {
	if c.MultiStepKeywords == nil {
		c.MultiStepKeywords = defaultMultiStepKeywords
	}
	if c.CodeKeywords == nil {
		c.CodeKeywords = defaultCodeKeywords
	}
	if c.TechnicalKeywords == nil {
		c.TechnicalKeywords = defaultTechnicalKeywords
	}
	if c.TranslateKeywords == nil {
		c.TranslateKeywords = defaultTranslateKeywords
	}
	if c.SummarizeKeywords == nil {
		c.SummarizeKeywords = defaultSummarizeKeywords
	}
	if c.TrivialKeywords == nil {
		c.TrivialKeywords = defaultTrivialKeywords
	}
	if c.WindowSize <= 0 {
		c.WindowSize = 20
	}
}

// Adjustment describes one feedback-driven threshold change. Threshold
// adjustments are explicit state transitions; every change is reported
// to the caller that recorded the triggering feedback.
type Adjustment struct {
	OldThreshold int
	NewThreshold int
	Reason       string
}

// Router selects an execution tier per call based on a weighted complexity
// score, and optionally adapts its threshold from quality feedback.
type Router struct {
	cfg Config

	// threshold is the live capable-tier threshold; it starts at
	// cfg.CapableThreshold and moves only through recordFeedback.
	threshold int
	// windows holds the bounded trailing feedback window per tier.
	windows map[models.Tier]*feedbackWindow
	// mu protects threshold and windows.
	mu sync.Mutex
}

// New creates a Router with the given configuration.
func New(cfg Config) *Router {
	cfg.applyDefaults()
	return &Router{
		cfg:       cfg,
		threshold: cfg.CapableThreshold,
		windows: map[models.Tier]*feedbackWindow{
			models.TierCheap:   newFeedbackWindow(cfg.WindowSize),
			models.TierCapable: newFeedbackWindow(cfg.WindowSize),
		},
	}
}

// Score computes the complexity score for a task description.
// It is a pure function of the description and the configuration.
func (r *Router) Score(task string) int {
	score := 0
	lower := strings.ToLower(task)

	if len(task) > r.cfg.LongChars {
		score += 2
	}
	if len(task) > r.cfg.VeryLongChars {
		score += 2
	}

	if countMatches(lower, r.cfg.MultiStepKeywords) > 0 {
		score += 3
	}
	if countMatches(lower, r.cfg.CodeKeywords) > 0 {
		score += 2
	}
	if n := countMatches(lower, r.cfg.TechnicalKeywords); n > 0 {
		score += min(n, 2)
	}
	if countMatches(lower, r.cfg.TranslateKeywords) > 0 {
		score++
	}
	if countMatches(lower, r.cfg.SummarizeKeywords) > 0 {
		score++
	}

	// Short, conversational inputs pull the score down.
	if len(task) < 50 && countMatches(lower, r.cfg.TrivialKeywords) > 0 {
		score--
	}

	if score < 0 {
		score = 0
	}
	return score
}

// Route selects the execution tier for a task description.
func (r *Router) Route(task string) models.Tier {
	score := r.Score(task)

	r.mu.Lock()
	threshold := r.threshold
	r.mu.Unlock()

	if score >= threshold {
		return models.TierCapable
	}
	return models.TierCheap
}

// Threshold returns the live capable-tier threshold.
func (r *Router) Threshold() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.threshold
}

// RecordFeedback feeds a quality score back into the router. The sample
// joins the bounded trailing window for the tier that served the task.
// If the cheap tier's rolling average falls below the quality floor, the
// threshold shifts down to favor the capable tier; if the capable tier was
// used on a trivially-scored task with top quality, the threshold shifts
// up. A shift is returned as a non-nil Adjustment.
func (r *Router) RecordFeedback(task string, tierUsed models.Tier, quality float64) *Adjustment {
	score := r.Score(task)

	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.windows[tierUsed]
	if !ok {
		return nil
	}
	w.add(quality)

	old := r.threshold
	var reason string

	switch tierUsed {
	case models.TierCheap:
		if w.full() && w.average() < r.cfg.QualityFloor && r.threshold > r.cfg.MinCapableThreshold {
			r.threshold--
			reason = "cheap tier rolling quality below floor"
		}
	case models.TierCapable:
		if score <= r.cfg.TrivialScore && quality >= r.cfg.TopQuality && r.threshold < r.cfg.MaxCapableThreshold {
			r.threshold++
			reason = "capable tier used on trivially-scored task with top quality"
		}
	}

	if r.threshold == old {
		return nil
	}
	return &Adjustment{OldThreshold: old, NewThreshold: r.threshold, Reason: reason}
}

func countMatches(lower string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
