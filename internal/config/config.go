// Package config handles configuration loading for ensemble.
// It supports XDG config paths, project-level overrides, and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for ensemble.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Budget    BudgetConfig    `mapstructure:"budget"`
	Router    RouterConfig    `mapstructure:"router"`
	Compactor CompactorConfig `mapstructure:"compactor"`
	Models    ModelsConfig    `mapstructure:"models"`
	Run       RunConfig       `mapstructure:"run"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// BudgetConfig holds spend limits for a run.
type BudgetConfig struct {
	// Limit is the total dollar budget for one run.
	Limit float64 `mapstructure:"limit"`
	// PerCallCap is the maximum estimated cost of a single call.
	// Zero disables the cap.
	PerCallCap float64 `mapstructure:"per_call_cap"`
	// WarnFraction is the spend fraction at which the warning fires.
	WarnFraction float64 `mapstructure:"warn_fraction"`
}

// RouterConfig holds tier routing settings.
type RouterConfig struct {
	// CapableThreshold is the complexity score at which calls route to
	// the capable tier.
	CapableThreshold int `mapstructure:"capable_threshold"`
	// QualityFloor is the average cheap-tier quality below which the
	// threshold is lowered.
	QualityFloor float64 `mapstructure:"quality_floor"`
	// WindowSize is the feedback window length per tier.
	WindowSize int `mapstructure:"window_size"`
}

// CompactorConfig holds history compaction settings.
type CompactorConfig struct {
	// Strategy selects the compression strategy.
	Strategy string `mapstructure:"strategy"`
	// MaxHistoryTokens is the token budget for any one call's history.
	MaxHistoryTokens int `mapstructure:"max_history_tokens"`
	// PreserveRecent is how many trailing messages stay verbatim.
	PreserveRecent int `mapstructure:"preserve_recent"`
}

// ModelsConfig maps routing tiers to provider models.
type ModelsConfig struct {
	Cheap   string `mapstructure:"cheap"`
	Capable string `mapstructure:"capable"`
	// Temperature applies to all calls. Zero uses the provider default.
	Temperature float64 `mapstructure:"temperature"`
	// MaxTokens caps each response.
	MaxTokens int `mapstructure:"max_tokens"`
}

// RunConfig holds orchestration settings.
type RunConfig struct {
	// MaxRetries is the retry ceiling after failed critiques.
	MaxRetries int `mapstructure:"max_retries"`
	// QualityThreshold is the critique score (0 to 10) needed to pass.
	QualityThreshold float64 `mapstructure:"quality_threshold"`
	// CallTimeout bounds each model call.
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	// FactCheck enables the fact-checking pass after synthesis.
	FactCheck bool `mapstructure:"fact_check"`
}

// StorageConfig holds paths for persistent stores.
type StorageConfig struct {
	// TracePath is the sqlite trace database location.
	TracePath string `mapstructure:"trace_path"`
	// ArchivePath is the sqlite blackboard archive location.
	ArchivePath string `mapstructure:"archive_path"`
}

// Load loads configuration with the following precedence, highest first:
// environment variables, project config (.ensemble.yaml in the current
// directory or a parent), user config (~/.config/ensemble/config.yaml),
// built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Budget.Limit < 0 {
		return fmt.Errorf("budget limit must not be negative, got %v", c.Budget.Limit)
	}
	if c.Budget.WarnFraction <= 0 || c.Budget.WarnFraction > 1 {
		return fmt.Errorf("warn fraction must be in (0, 1], got %v", c.Budget.WarnFraction)
	}
	if c.Run.QualityThreshold < 0 || c.Run.QualityThreshold > 10 {
		return fmt.Errorf("quality threshold must be in [0, 10], got %v", c.Run.QualityThreshold)
	}
	if c.Run.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.Run.MaxRetries)
	}
	if c.Compactor.MaxHistoryTokens <= 0 {
		return fmt.Errorf("max history tokens must be positive, got %d", c.Compactor.MaxHistoryTokens)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")

	v.SetDefault("budget.limit", 1.0)
	v.SetDefault("budget.per_call_cap", 0.25)
	v.SetDefault("budget.warn_fraction", 0.80)

	v.SetDefault("router.capable_threshold", 7)
	v.SetDefault("router.quality_floor", 6.0)
	v.SetDefault("router.window_size", 20)

	v.SetDefault("compactor.strategy", "summarize")
	v.SetDefault("compactor.max_history_tokens", 8000)
	v.SetDefault("compactor.preserve_recent", 4)

	v.SetDefault("models.cheap", "claude-3-5-haiku-20241022")
	v.SetDefault("models.capable", "claude-sonnet-4-20250514")
	v.SetDefault("models.temperature", 0.0)
	v.SetDefault("models.max_tokens", 4096)

	v.SetDefault("run.max_retries", 2)
	v.SetDefault("run.quality_threshold", 7.0)
	v.SetDefault("run.call_timeout", "2m")
	v.SetDefault("run.fact_check", false)

	v.SetDefault("storage.trace_path", filepath.Join(userDataDir(), "trace.db"))
	v.SetDefault("storage.archive_path", filepath.Join(userDataDir(), "archive.db"))
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Budget: BudgetConfig{
			Limit:        1.0,
			PerCallCap:   0.25,
			WarnFraction: 0.80,
		},
		Router: RouterConfig{
			CapableThreshold: 7,
			QualityFloor:     6.0,
			WindowSize:       20,
		},
		Compactor: CompactorConfig{
			Strategy:         "summarize",
			MaxHistoryTokens: 8000,
			PreserveRecent:   4,
		},
		Models: ModelsConfig{
			Cheap:     "claude-3-5-haiku-20241022",
			Capable:   "claude-sonnet-4-20250514",
			MaxTokens: 4096,
		},
		Run: RunConfig{
			MaxRetries:       2,
			QualityThreshold: 7.0,
			CallTimeout:      2 * time.Minute,
		},
		Storage: StorageConfig{
			TracePath:   filepath.Join(userDataDir(), "trace.db"),
			ArchivePath: filepath.Join(userDataDir(), "archive.db"),
		},
	}
}

func userConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "ensemble")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "ensemble")
	}
	return filepath.Join(home, ".config", "ensemble")
}

func userDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "ensemble")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "share", "ensemble")
	}
	return filepath.Join(home, ".local", "share", "ensemble")
}

// findProjectConfig searches for .ensemble.yaml in the current directory
// and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".ensemble.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}
	return ""
}
