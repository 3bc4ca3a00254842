package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tembric/ensemble/internal/config"
	"github.com/tembric/ensemble/internal/trace"
)

var traceConfigPath string

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Inspect recorded run traces",
}

var traceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs with recorded traces",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openTraceStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ids, err := store.RunIDs()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println("no recorded runs")
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

var traceShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the per-call trace of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openTraceStore()
		if err != nil {
			return err
		}
		defer store.Close()

		events, err := store.LoadRun(args[0])
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return fmt.Errorf("no trace recorded for run %s", args[0])
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STAGE\tSTEP\tDURATION\tTOKENS IN\tTOKENS OUT\tCOST\tDETAIL")
		total := 0.0
		for _, e := range events {
			total += e.Cost
			fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d\t$%.4f\t%s\n",
				e.StageName, e.StepIndex, e.Duration.Round(time.Millisecond), e.TokensIn, e.TokensOut, e.Cost, e.Detail)
		}
		w.Flush()

		fmt.Printf("\n%s $%.4f across %d calls\n", color.CyanString("total:"), total, len(events))
		return nil
	},
}

func openTraceStore() (*trace.Store, error) {
	var cfg *config.Config
	var err error
	if traceConfigPath != "" {
		cfg, err = config.LoadFromPath(traceConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	return trace.OpenStore(cfg.Storage.TracePath)
}

func init() {
	traceCmd.PersistentFlags().StringVar(&traceConfigPath, "config", "", "Path to a configuration file")
	traceCmd.AddCommand(traceListCmd)
	traceCmd.AddCommand(traceShowCmd)
	rootCmd.AddCommand(traceCmd)
}
