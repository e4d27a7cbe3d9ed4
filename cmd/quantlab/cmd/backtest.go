package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rustyeddy/quantlab/backtest"
	"github.com/rustyeddy/quantlab/metrics"
	"github.com/rustyeddy/quantlab/pkg/id"
	"github.com/rustyeddy/quantlab/report"
	"github.com/rustyeddy/quantlab/strategies"
	"github.com/spf13/cobra"
)

type backtestOptions struct {
	data     dataFlags
	strategy strategyFlags

	format     string
	trades     bool
	signals    bool
	tradesCSV  string
	equityCSV  string
	signalsCSV string
	notes      []string
}

func newBacktestCmd(root *rootOptions) *cobra.Command {
	o := &backtestOptions{}

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run one strategy over a bar series",
		Long: `Backtest generates signals for a strategy, simulates them bar by bar and
prints the performance metrics.

Supported strategies:
  - ma:          moving average crossover (SMA or EMA)
  - rsi:         RSI leaving the oversold/overbought zones
  - boll:        Bollinger Bands reversion or breakout
  - macd:        MACD/signal line crossover
  - bollExtreme: candle bodies fully outside the bands, exit at the middle

Examples:
  quantlab backtest --data btc.csv --strategy ma -p fastPeriod=10 -p slowPeriod=30
  quantlab backtest --db bars.db --symbol BTC --interval 1h --strategy rsi --short --format org`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBacktest(cmd, root, o)
		},
	}

	o.data.register(cmd)
	o.strategy.register(cmd)
	cmd.Flags().StringVar(&o.format, "format", "text", "output format: text, org or json")
	cmd.Flags().BoolVar(&o.trades, "trades", false, "print the trade ledger (text format)")
	cmd.Flags().BoolVar(&o.signals, "signals", false, "print the generated signals (text format)")
	cmd.Flags().StringVar(&o.tradesCSV, "trades-csv", "", "write trades to this CSV file")
	cmd.Flags().StringVar(&o.equityCSV, "equity-csv", "", "write the equity curve to this CSV file")
	cmd.Flags().StringVar(&o.signalsCSV, "signals-csv", "", "write signals to this CSV file")
	cmd.Flags().StringArrayVar(&o.notes, "note", nil, "observation added to the report, repeatable")
	return cmd
}

func runBacktest(cmd *cobra.Command, root *rootOptions, o *backtestOptions) error {
	switch o.format {
	case "text", "org", "json":
	default:
		return fmt.Errorf("unknown format %q (want text, org or json)", o.format)
	}

	cfg, err := root.load()
	if err != nil {
		return err
	}
	o.data.apply(cfg)
	if err := o.strategy.apply(cmd, cfg); err != nil {
		return err
	}

	bars, dataset, err := loadBars(cmd.Context(), cfg.Data)
	if err != nil {
		return err
	}

	strat, err := strategies.New(cfg.Strategy.Kind, cfg.Strategy.Params)
	if err != nil {
		return err
	}
	signals := strat.GenerateSignals(bars)
	res := backtest.Run(bars, signals, cfg.Backtest)
	log.Printf("backtest %s on %s: %s", strat.Name(), dataset, res.Summary())

	run := report.Run{
		RunID:    id.New(),
		Created:  time.Now().UTC(),
		Dataset:  dataset,
		Kind:     strat.Kind(),
		Strategy: strat.Name(),
		Params:   cfg.Strategy.Params,
		Result:   res,
		Metrics:  metrics.Compute(res, cfg.Metrics.Options()...),
		Notes:    o.notes,
	}

	if err := writeFile(o.tradesCSV, func(f *os.File) error { return report.WriteTradesCSV(f, res.Trades) }); err != nil {
		return err
	}
	if err := writeFile(o.equityCSV, func(f *os.File) error { return report.WriteEquityCSV(f, res.EquityCurve) }); err != nil {
		return err
	}
	if err := writeFile(o.signalsCSV, func(f *os.File) error { return report.WriteSignalsCSV(f, signals) }); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch o.format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			RunID    string              `json:"runId"`
			Strategy string              `json:"strategy"`
			Dataset  string              `json:"dataset"`
			Signals  []strategies.Signal `json:"signals"`
			Result   backtest.Result     `json:"result"`
			Metrics  metrics.Metrics     `json:"metrics"`
		}{run.RunID, run.Strategy, dataset, signals, res, run.Metrics})
	case "org":
		return report.WriteOrg(out, run)
	default:
		report.PrintRun(out, run)
		if o.signals {
			fmt.Fprintln(out, "Signals")
			if err := report.PrintSignals(out, signals); err != nil {
				return err
			}
			fmt.Fprintln(out)
		}
		if o.trades {
			fmt.Fprintln(out, "Trades")
			return report.PrintTrades(out, run)
		}
		return nil
	}
}

// writeFile creates path and hands it to write. An empty path is a no-op.
func writeFile(path string, write func(*os.File) error) error {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Printf("wrote %s", path)
	return nil
}
