package orchestrator

import (
	"time"

	"github.com/tembric/ensemble/internal/compact"
	"github.com/tembric/ensemble/internal/config"
	"github.com/tembric/ensemble/internal/llm"
	"github.com/tembric/ensemble/internal/router"
	"github.com/tembric/ensemble/internal/tools"
)

// RequiredConfig holds the dependencies every Orchestrator needs.
type RequiredConfig struct {
	// Invoker sends calls to the model provider.
	Invoker llm.Invoker
	// BudgetLimit is the dollar budget for each run.
	BudgetLimit float64
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPerCallCap caps the estimated cost of any single call.
func WithPerCallCap(cap float64) Option {
	return func(o *Orchestrator) { o.perCallCap = cap }
}

// WithWarnFraction sets the spend fraction at which the budget warning
// event fires.
func WithWarnFraction(f float64) Option {
	return func(o *Orchestrator) { o.warnFraction = f }
}

// WithModels sets the provider models for the cheap and capable tiers.
func WithModels(cheap, capable string) Option {
	return func(o *Orchestrator) {
		if cheap != "" {
			o.cheapModel = cheap
		}
		if capable != "" {
			o.capableModel = capable
		}
	}
}

// WithTemperature sets the sampling temperature for all calls.
func WithTemperature(t float64) Option {
	return func(o *Orchestrator) { o.temperature = t }
}

// WithMaxTokens caps each model response.
func WithMaxTokens(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

// WithCallTimeout bounds each model call. Zero disables the timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.callTimeout = d }
}

// WithMaxRetries sets the retry ceiling after failed critiques.
func WithMaxRetries(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithQualityThreshold sets the critique score needed to pass.
func WithQualityThreshold(t float64) Option {
	return func(o *Orchestrator) { o.qualityThreshold = t }
}

// WithCompaction configures history compression for role calls.
func WithCompaction(strategy compact.Strategy, maxHistoryTokens, preserveRecent int) Option {
	return func(o *Orchestrator) {
		if strategy.Valid() {
			o.strategy = strategy
		}
		if maxHistoryTokens > 0 {
			o.maxHistoryTokens = maxHistoryTokens
		}
		if preserveRecent > 0 {
			o.compactor = compact.New(compact.WithPreserveRecent(preserveRecent))
		}
	}
}

// WithRouterConfig replaces the default routing configuration.
func WithRouterConfig(cfg router.Config) Option {
	return func(o *Orchestrator) { o.router = router.New(cfg) }
}

// WithToolRegistry enables the fact-checking pass using the given tools.
func WithToolRegistry(registry *tools.Registry) Option {
	return func(o *Orchestrator) { o.registry = registry }
}

// WithEventBuffer sets the event channel buffer size.
func WithEventBuffer(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.emitter = NewEventEmitter(n)
		}
	}
}

// FromConfig builds the option list matching a loaded configuration.
func FromConfig(cfg *config.Config) []Option {
	opts := []Option{
		WithPerCallCap(cfg.Budget.PerCallCap),
		WithWarnFraction(cfg.Budget.WarnFraction),
		WithModels(cfg.Models.Cheap, cfg.Models.Capable),
		WithTemperature(cfg.Models.Temperature),
		WithMaxTokens(cfg.Models.MaxTokens),
		WithCallTimeout(cfg.Run.CallTimeout),
		WithMaxRetries(cfg.Run.MaxRetries),
		WithQualityThreshold(cfg.Run.QualityThreshold),
		WithCompaction(compact.Strategy(cfg.Compactor.Strategy),
			cfg.Compactor.MaxHistoryTokens, cfg.Compactor.PreserveRecent),
	}

	routerCfg := router.DefaultConfig()
	routerCfg.CapableThreshold = cfg.Router.CapableThreshold
	routerCfg.QualityFloor = cfg.Router.QualityFloor
	routerCfg.WindowSize = cfg.Router.WindowSize
	opts = append(opts, WithRouterConfig(routerCfg))

	if cfg.Run.FactCheck {
		opts = append(opts, WithToolRegistry(tools.Standard()))
	}

	return opts
}
