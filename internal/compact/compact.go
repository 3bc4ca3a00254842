// Package compact reduces an ordered message history to fit a token
// budget. Token counts are estimated from content length; the estimate is
// deliberately conservative so compressed histories stay inside real model
// context windows.
package compact

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tembric/ensemble/pkg/models"
)

// Strategy selects how a history is compressed.
type Strategy string

const (
	// StrategyTruncate drops the oldest non-system messages until the
	// history fits.
	StrategyTruncate Strategy = "truncate"
	// StrategySummarize replaces a contiguous run of older messages
	// with a single synthesized summary message.
	StrategySummarize Strategy = "summarize"
	// StrategySelective summarizes low-importance messages first and
	// preserves high-importance ones verbatim for as long as the
	// budget allows.
	StrategySelective Strategy = "selective"
)

// Valid returns true if the strategy is a known value.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyTruncate, StrategySummarize, StrategySelective:
		return true
	default:
		return false
	}
}

const (
	// charsPerToken is the estimation ratio between characters and tokens.
	charsPerToken = 3.5
	// messageOverheadTokens accounts for role and framing tokens per message.
	messageOverheadTokens = 4
	// summaryPrefix marks a synthesized summary message. Summaries are
	// never re-summarized, which keeps compression idempotent.
	summaryPrefix = "[conversation summary]"
	// snippetLen is how much of each summarized message survives.
	snippetLen = 80
)

// Compactor compresses message histories against a token budget.
type Compactor struct {
	// preserveRecent is how many trailing messages stay verbatim under
	// the summarize strategy.
	preserveRecent int
}

// Option configures a Compactor.
type Option func(*Compactor)

// WithPreserveRecent sets how many of the most recent messages the
// summarize strategy keeps verbatim.
func WithPreserveRecent(n int) Option {
	return func(c *Compactor) {
		if n > 0 {
			c.preserveRecent = n
		}
	}
}

// New creates a Compactor.
func New(opts ...Option) *Compactor {
	c := &Compactor{preserveRecent: 4}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EstimateTokens returns the estimated token count of a single message.
func EstimateTokens(msg models.Message) int {
	return int(float64(len(msg.Content))/charsPerToken) + messageOverheadTokens
}

// EstimateHistory returns the estimated token count of a message history.
func EstimateHistory(msgs []models.Message) int {
	total := 0
	for _, m := range msgs {
		total += EstimateTokens(m)
	}
	return total
}

// Compress reduces msgs so the estimated token count is at most maxTokens.
// Already-fitting histories are returned unchanged, which makes repeated
// application at the same budget a no-op.
//
// If even the minimal preserved set (system message plus the most recent
// user turn) exceeds the budget, the minimal set is content-truncated and
// lossy is reported true instead of failing.
func (c *Compactor) Compress(msgs []models.Message, maxTokens int, strategy Strategy) ([]models.Message, bool, error) {
	if !strategy.Valid() {
		return nil, false, fmt.Errorf("unknown compression strategy %q", strategy)
	}
	if maxTokens <= 0 {
		return nil, false, fmt.Errorf("max tokens must be positive, got %d", maxTokens)
	}

	if EstimateHistory(msgs) <= maxTokens {
		return msgs, false, nil
	}

	var out []models.Message
	switch strategy {
	case StrategyTruncate:
		out = c.truncate(msgs, maxTokens)
	case StrategySummarize:
		out = c.summarize(msgs, maxTokens)
	case StrategySelective:
		out = c.selective(msgs, maxTokens)
	}

	if EstimateHistory(out) <= maxTokens {
		return out, false, nil
	}

	// Even the preserved set is over budget; fall back to the minimal
	// set and truncate its content rather than fail.
	return c.minimalLossy(msgs, maxTokens), true, nil
}

// truncate drops the oldest non-system messages until the history fits.
func (c *Compactor) truncate(msgs []models.Message, maxTokens int) []models.Message {
	system, rest := splitSystem(msgs)

	for len(rest) > 1 && EstimateHistory(append(system, rest...)) > maxTokens {
		rest = rest[1:]
	}
	return append(system, rest...)
}

// summarize replaces the run of older messages with one synthesized
// summary, preserving the system message and the most recent messages.
func (c *Compactor) summarize(msgs []models.Message, maxTokens int) []models.Message {
	system, rest := splitSystem(msgs)

	keep := c.preserveRecent
	if keep > len(rest) {
		keep = len(rest)
	}
	older := rest[:len(rest)-keep]
	recent := rest[len(rest)-keep:]

	out := system
	if len(older) > 0 {
		out = append(out, summarizeRun(older))
	}
	out = append(out, recent...)

	// The preserved tail may still be over budget; absorb messages from
	// the front of the tail into the summary until the history fits.
	for EstimateHistory(out) > maxTokens && len(recent) > 1 {
		older = append(older, recent[0])
		recent = recent[1:]
		out = append(append([]models.Message{}, system...), summarizeRun(older))
		out = append(out, recent...)
	}
	return out
}

// selective scores each message by role-derived importance, summarizes
// low-importance messages first, and preserves high-importance messages
// verbatim until the budget forces their compression too.
func (c *Compactor) selective(msgs []models.Message, maxTokens int) []models.Message {
	out := make([]models.Message, len(msgs))
	copy(out, msgs)

	// Pass 1: summarize low-importance messages, oldest first.
	for i := range out {
		if EstimateHistory(out) <= maxTokens {
			return out
		}
		if importance(out[i]) == importanceLow && !isSummary(out[i]) {
			out[i] = condense(out[i])
		}
	}

	// Pass 2: medium importance.
	for i := range out {
		if EstimateHistory(out) <= maxTokens {
			return out
		}
		if importance(out[i]) == importanceMedium && !isSummary(out[i]) {
			out[i] = condense(out[i])
		}
	}

	// Pass 3: the budget forces high-importance compression as well,
	// then plain truncation of whatever is left.
	for i := range out {
		if EstimateHistory(out) <= maxTokens {
			return out
		}
		if !isSummary(out[i]) && out[i].Role != models.RoleSystem {
			out[i] = condense(out[i])
		}
	}
	return c.truncate(out, maxTokens)
}

// minimalLossy keeps only the system message and the most recent user
// turn, truncating their content to fit.
func (c *Compactor) minimalLossy(msgs []models.Message, maxTokens int) []models.Message {
	var minimal []models.Message
	if sys := findSystem(msgs); sys != nil {
		minimal = append(minimal, *sys)
	}
	if user := findLastUser(msgs); user != nil {
		minimal = append(minimal, *user)
	}
	if len(minimal) == 0 && len(msgs) > 0 {
		minimal = append(minimal, msgs[len(msgs)-1])
	}

	// Split the remaining character budget evenly across the survivors.
	budget := maxTokens - messageOverheadTokens*len(minimal)
	if budget < len(minimal) {
		budget = len(minimal)
	}
	perMsgChars := int(float64(budget) * charsPerToken / float64(len(minimal)))

	for i := range minimal {
		minimal[i].Content = cutRunes(minimal[i].Content, perMsgChars)
	}
	return minimal
}

// cutRunes truncates s to at most n bytes without splitting a rune.
func cutRunes(s string, n int) string {
	if n < 0 {
		n = 0
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

type importanceLevel int

const (
	importanceLow importanceLevel = iota
	importanceMedium
	importanceHigh
)

// importance derives a message's importance from its role: tool results
// are high, user questions medium, long assistant prose low.
func importance(msg models.Message) importanceLevel {
	switch msg.Role {
	case models.RoleSystem, models.RoleTool:
		return importanceHigh
	case models.RoleUser:
		return importanceMedium
	default:
		return importanceLow
	}
}

func isSummary(msg models.Message) bool {
	return strings.HasPrefix(msg.Content, summaryPrefix)
}

// condense shortens a single message to a snippet of its content.
func condense(msg models.Message) models.Message {
	if len(msg.Content) <= snippetLen {
		return msg
	}
	return models.Message{
		Role:    msg.Role,
		Content: summaryPrefix + " " + strings.TrimSpace(cutRunes(msg.Content, snippetLen)) + "...",
	}
}

// summarizeRun folds a run of messages into one summary message built
// from a snippet of each. Summaries inside the run pass through intact so
// repeated compression cannot compound.
func summarizeRun(run []models.Message) models.Message {
	var parts []string
	for _, m := range run {
		if isSummary(m) {
			parts = append(parts, strings.TrimPrefix(m.Content, summaryPrefix+" "))
			continue
		}
		content := strings.TrimSpace(m.Content)
		if len(content) > snippetLen {
			content = cutRunes(content, snippetLen) + "..."
		}
		parts = append(parts, fmt.Sprintf("%s: %s", m.Role, content))
	}
	return models.Message{
		Role:    models.RoleUser,
		Content: summaryPrefix + " " + strings.Join(parts, " | "),
	}
}

func splitSystem(msgs []models.Message) (system, rest []models.Message) {
	for _, m := range msgs {
		if m.Role == models.RoleSystem {
			system = append(system, m)
		} else {
			rest = append(rest, m)
		}
	}
	return system, rest
}

func findSystem(msgs []models.Message) *models.Message {
	for i := range msgs {
		if msgs[i].Role == models.RoleSystem {
			return &msgs[i]
		}
	}
	return nil
}

func findLastUser(msgs []models.Message) *models.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == models.RoleUser {
			return &msgs[i]
		}
	}
	return nil
}
