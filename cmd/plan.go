package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/loanerfleet/loanerfleet/config"
	"github.com/loanerfleet/loanerfleet/core/metrics"
	"github.com/loanerfleet/loanerfleet/core/plan"
	"github.com/loanerfleet/loanerfleet/core/solver"
	"github.com/loanerfleet/loanerfleet/infra/dataset"
	"github.com/loanerfleet/loanerfleet/infra/logger"
	_ "github.com/loanerfleet/loanerfleet/infra/metrics" // register sinks
	"github.com/loanerfleet/loanerfleet/pkg/export"
)

var (
	datasetPath string
	office      string
	weekStart   string
	seed        int64
	outPath     string
	outFormat   string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute the weekly loan assignment plan",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&datasetPath, "dataset", "d", "", "dataset snapshot file (required)")
	planCmd.Flags().StringVar(&office, "office", "", "office to plan (overrides config)")
	planCmd.Flags().StringVarP(&weekStart, "week", "w", "", "week start day, YYYY-MM-DD (required)")
	planCmd.Flags().Int64Var(&seed, "seed", 0, "run seed (overrides config)")
	planCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the result to a file instead of stdout")
	planCmd.Flags().StringVarP(&outFormat, "format", "f", "json", "output format: json or csv")
	_ = planCmd.MarkFlagRequired("dataset")
	_ = planCmd.MarkFlagRequired("week")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	planCfg := cfg.Plan
	if office != "" {
		planCfg.Office = office
	}
	if cmd.Flags().Changed("seed") {
		planCfg.Seed = seed
	}
	week, err := time.Parse("2006-01-02", weekStart)
	if err != nil {
		return fmt.Errorf("invalid week start %q: use YYYY-MM-DD", weekStart)
	}
	planCfg.WeekStart = week

	ds, err := dataset.Load(datasetPath)
	if err != nil {
		return err
	}

	sink, err := metrics.NewPlanSink(cfg.Metrics.Sinks)
	if err != nil {
		return fmt.Errorf("metrics sink: %w", err)
	}
	planner, err := plan.NewPlanner(planCfg, solver.NewAnneal(), sink, logger.New("planner"))
	if err != nil {
		return err
	}
	res, err := planner.Plan(ds)
	if err != nil {
		var infeasible *plan.InfeasibleModelError
		if errors.As(err, &infeasible) {
			return fmt.Errorf("no feasible plan: %w", err)
		}
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	switch outFormat {
	case "json":
		return export.WriteJSON(w, res)
	case "csv":
		return export.WriteCSV(w, res)
	default:
		return fmt.Errorf("unknown output format %q: use json or csv", outFormat)
	}
}
