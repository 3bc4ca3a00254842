package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tembric/ensemble/internal/blackboard"
	"github.com/tembric/ensemble/internal/config"
	"github.com/tembric/ensemble/internal/llm"
	"github.com/tembric/ensemble/internal/orchestrator"
	"github.com/tembric/ensemble/internal/trace"
	"github.com/tembric/ensemble/pkg/models"
)

var (
	runBudget           float64
	runMaxRetries       int
	runQualityThreshold float64
	runConfigPath       string
	runTraceOut         string
	runQuiet            bool
)

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Run a task through the role ensemble",
	Long: `Run a task through planning, parallel research, critique, and
synthesis. The run stops when the critique passes the quality threshold,
the retry ceiling is reached, or the dollar budget is exhausted.

Flags override the corresponding configuration values. The final answer
is printed to stdout; progress and cost reporting go to stderr.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTask,
}

func init() {
	runCmd.Flags().Float64Var(&runBudget, "budget", 0, "Dollar budget for this run (overrides config)")
	runCmd.Flags().IntVar(&runMaxRetries, "max-retries", -1, "Retry ceiling after failed critiques (overrides config)")
	runCmd.Flags().Float64Var(&runQualityThreshold, "quality-threshold", -1, "Critique score needed to pass, 0 to 10 (overrides config)")
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "Path to a configuration file")
	runCmd.Flags().StringVar(&runTraceOut, "trace-out", "", "Write the run trace as NDJSON to this file")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.AddCommand(runCmd)
}

func loadRunConfig() (*config.Config, error) {
	if runConfigPath != "" {
		return config.LoadFromPath(runConfigPath)
	}
	return config.Load()
}

func runTask(cmd *cobra.Command, args []string) error {
	description := strings.Join(args, " ")

	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}
	if runBudget > 0 {
		cfg.Budget.Limit = runBudget
	}
	if runMaxRetries >= 0 {
		cfg.Run.MaxRetries = runMaxRetries
	}
	if runQualityThreshold >= 0 {
		cfg.Run.QualityThreshold = runQualityThreshold
	}

	invoker, err := llm.NewAnthropicInvoker(cfg.Anthropic.APIKey)
	if err != nil {
		return err
	}

	orch := orchestrator.New(
		orchestrator.RequiredConfig{
			Invoker:     invoker,
			BudgetLimit: cfg.Budget.Limit,
		},
		orchestrator.FromConfig(cfg)...,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		reportProgress(orch.Events())
	}()

	result, runErr := orch.Run(ctx, models.Task{Description: description})
	orch.Close()
	<-progressDone

	if result != nil {
		persistRun(cfg, result)
		fmt.Fprintf(os.Stderr, "%s spent $%.4f, %d retries\n",
			color.CyanString("run %s:", result.RunID), result.FinalCost, result.Retries)

		if result.QualityShortfall {
			fmt.Fprintln(os.Stderr, color.YellowString(
				"warning: retry ceiling reached, answer is below the quality threshold"))
		}
		if result.Artifact != "" {
			fmt.Println(result.Artifact)
		}
	}

	if runErr != nil {
		if errors.Is(runErr, orchestrator.ErrBudgetExceeded) {
			return fmt.Errorf("%s: %w", color.RedString("budget exhausted"), runErr)
		}
		return runErr
	}
	return nil
}

// reportProgress prints run events to stderr until the channel closes.
func reportProgress(events <-chan orchestrator.Event) {
	for e := range events {
		if runQuiet {
			continue
		}
		switch e.Type {
		case orchestrator.EventStageChanged:
			fmt.Fprintf(os.Stderr, "%s %s\n", color.CyanString("stage:"), e.Stage)
		case orchestrator.EventRoleStarted:
			if e.StepNumber > 0 {
				fmt.Fprintf(os.Stderr, "  %s step %d\n", e.Role, e.StepNumber)
			} else {
				fmt.Fprintf(os.Stderr, "  %s\n", e.Role)
			}
		case orchestrator.EventStepFailed:
			fmt.Fprintf(os.Stderr, "  %s %s\n", color.RedString("failed:"), e.Message)
		case orchestrator.EventRetryScheduled:
			fmt.Fprintf(os.Stderr, "%s %s\n", color.YellowString("retry:"), e.Message)
		case orchestrator.EventBudgetWarning:
			fmt.Fprintf(os.Stderr, "%s %s\n", color.YellowString("budget:"), e.Message)
		case orchestrator.EventTierAdjusted:
			fmt.Fprintf(os.Stderr, "%s %s\n", color.MagentaString("router:"), e.Message)
		}
	}
}

// persistRun saves the trace and blackboard; persistence failures are
// reported but never fail the run.
func persistRun(cfg *config.Config, result *orchestrator.RunResult) {
	collector := trace.NewCollector(result.RunID)
	for _, e := range result.Trace {
		collector.Record(e)
	}

	if store, err := trace.OpenStore(cfg.Storage.TracePath); err == nil {
		if err := store.Save(collector); err != nil {
			fmt.Fprintf(os.Stderr, "warning: save trace: %v\n", err)
		}
		store.Close()
	} else {
		fmt.Fprintf(os.Stderr, "warning: open trace store: %v\n", err)
	}

	if result.Board != nil {
		if archive, err := blackboard.OpenArchive(cfg.Storage.ArchivePath); err == nil {
			if err := archive.Store(result.RunID, result.Board); err != nil {
				fmt.Fprintf(os.Stderr, "warning: archive blackboard: %v\n", err)
			}
			archive.Close()
		} else {
			fmt.Fprintf(os.Stderr, "warning: open archive: %v\n", err)
		}
	}

	if runTraceOut != "" {
		f, err := os.Create(runTraceOut)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: create trace file: %v\n", err)
			return
		}
		defer f.Close()
		if err := collector.ExportNDJSON(f); err != nil {
			fmt.Fprintf(os.Stderr, "warning: export trace: %v\n", err)
		}
	}
}
