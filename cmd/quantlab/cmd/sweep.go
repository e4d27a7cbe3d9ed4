package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/rustyeddy/quantlab/report"
	"github.com/rustyeddy/quantlab/sweep"
	"github.com/spf13/cobra"
)

type sweepOptions struct {
	data     dataFlags
	strategy strategyFlags

	axes    []string
	rank    string
	top     int
	workers int
	json    bool
}

func newSweepCmd(root *rootOptions) *cobra.Command {
	o := &sweepOptions{}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Backtest a grid of strategy parameters in parallel",
		Long: `Sweep expands every --axis into a parameter grid, backtests each combination
on a worker pool and prints the results ranked best first.

Example:
  quantlab sweep --data btc.csv --strategy ma --axis fastPeriod=3,5,8 --axis slowPeriod=20,30 --rank sharpe`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, root, o)
		},
	}

	o.data.register(cmd)
	o.strategy.register(cmd)
	cmd.Flags().StringArrayVarP(&o.axes, "axis", "a", nil, "parameter axis key=v1,v2,..., repeatable")
	cmd.Flags().StringVar(&o.rank, "rank", "return", "rank by return, sharpe, profitFactor, winRate or drawdown")
	cmd.Flags().IntVar(&o.top, "top", 0, "show only the best N results")
	cmd.Flags().IntVarP(&o.workers, "workers", "w", 0, "concurrent backtests (default from config, 0 = one per CPU)")
	cmd.Flags().BoolVar(&o.json, "json", false, "print results as JSON")
	return cmd
}

func runSweep(cmd *cobra.Command, root *rootOptions, o *sweepOptions) error {
	by, err := sweep.ParseRankBy(o.rank)
	if err != nil {
		return err
	}
	axes, err := sweep.ParseAxes(o.axes)
	if err != nil {
		return err
	}

	cfg, err := root.load()
	if err != nil {
		return err
	}
	o.data.apply(cfg)
	if err := o.strategy.apply(cmd, cfg); err != nil {
		return err
	}
	if cmd.Flags().Changed("workers") {
		cfg.Sweep.Workers = o.workers
	}

	bars, dataset, err := loadBars(cmd.Context(), cfg.Data)
	if err != nil {
		return err
	}

	jobs := sweep.Grid(cfg.Strategy.Kind, cfg.Strategy.Params, axes, cfg.Backtest)
	start := time.Now()
	results, err := sweep.Run(cmd.Context(), bars, jobs, sweep.Options{
		Workers: cfg.Sweep.Workers,
		Metrics: cfg.Metrics.Options(),
	})
	if err != nil {
		return err
	}
	log.Printf("sweep: %d jobs on %s in %s", len(jobs), dataset, time.Since(start).Round(time.Millisecond))

	sweep.Rank(results, by)
	if o.top > 0 && o.top < len(results) {
		results = results[:o.top]
	}

	out := cmd.OutOrStdout()
	if o.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	fmt.Fprintf(out, "Sweep: %s on %s, %d jobs ranked by %s\n\n", cfg.Strategy.Kind, dataset, len(jobs), by)
	return report.PrintSweep(out, results)
}
