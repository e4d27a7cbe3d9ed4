package cmd

import (
	"context"
	"fmt"

	"github.com/rustyeddy/quantlab/config"
	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/store"
	"github.com/spf13/cobra"
)

// rootOptions are the flags every subcommand shares.
type rootOptions struct {
	configPath string
	envFiles   []string
}

// NewRootCmd builds the full command tree. Each call returns fresh flag
// state.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "quantlab",
		Short: "Backtest technical trading strategies on OHLCV bars",
		Long: `Quantlab evaluates indicator driven trading strategies against historical bars.

It provides tools for:
  - Computing SMA, EMA, RSI, Bollinger Bands, MACD and ATR
  - Generating BUY/SELL signals from five built-in strategies
  - Simulating long/short positions with commission and slippage
  - Measuring return, drawdown, Sharpe ratio and trade statistics
  - Sweeping strategy parameters in parallel
  - Detecting up, down and sideways trends
  - Storing bar series in SQLite and serving everything over HTTP`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (YAML or JSON)")
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env", []string{".env"}, ".env files with QUANTLAB_* overrides")

	root.AddCommand(
		newBacktestCmd(opts),
		newSweepCmd(opts),
		newStrategiesCmd(),
		newIndicatorsCmd(opts),
		newTrendsCmd(opts),
		newDataCmd(opts),
		newConfigCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath, o.envFiles...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// dataFlags select a bar source and override the config's data section.
type dataFlags struct {
	file     string
	db       string
	symbol   string
	interval string
}

func (d *dataFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&d.file, "data", "f", "", "bar file (.csv or .json)")
	cmd.Flags().StringVar(&d.db, "db", "", "SQLite bar store")
	cmd.Flags().StringVarP(&d.symbol, "symbol", "s", "", "symbol to load from the bar store")
	cmd.Flags().StringVarP(&d.interval, "interval", "i", "", "bar interval in the store, e.g. 1h")
}

// apply lays the set flags over cfg.Data. A file flag clears a configured
// symbol and the other way around.
func (d *dataFlags) apply(cfg *config.Config) {
	if d.file != "" {
		cfg.Data.File = d.file
		cfg.Data.Symbol = ""
	}
	if d.symbol != "" {
		cfg.Data.Symbol = d.symbol
		cfg.Data.File = ""
	}
	if d.db != "" {
		cfg.Data.DBPath = d.db
	}
	if d.interval != "" {
		cfg.Data.Interval = d.interval
	}
}

// loadBars reads bars from the configured file or store and validates them.
func loadBars(ctx context.Context, data config.DataConfig) ([]market.Bar, string, error) {
	var (
		bars    []market.Bar
		dataset string
		err     error
	)
	switch {
	case data.File != "":
		dataset = data.File
		bars, err = market.LoadFile(data.File)
	case data.Symbol != "":
		if data.DBPath == "" {
			return nil, "", fmt.Errorf("--db is required with --symbol")
		}
		dataset = data.Symbol + "/" + data.Interval
		var db *store.SQLite
		if db, err = store.Open(data.DBPath); err != nil {
			return nil, "", fmt.Errorf("open db: %w", err)
		}
		defer db.Close()
		bars, err = db.LoadBars(ctx, data.Symbol, data.Interval, 0, 0)
	default:
		return nil, "", fmt.Errorf("no data source: pass --data or --db with --symbol")
	}
	if err != nil {
		return nil, "", fmt.Errorf("load %s: %w", dataset, err)
	}
	if err := market.Validate(bars); err != nil {
		return nil, "", fmt.Errorf("load %s: %w", dataset, err)
	}
	return bars, dataset, nil
}
