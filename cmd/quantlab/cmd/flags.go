package cmd

import (
	"github.com/rustyeddy/quantlab/config"
	"github.com/rustyeddy/quantlab/strategies"
	"github.com/spf13/cobra"
)

// strategyFlags override the config's strategy and backtest sections. Only
// flags given on the command line are applied.
type strategyFlags struct {
	kind   string
	params []string

	capital    float64
	size       float64
	commission float64
	slippage   float64
	short      bool
}

func (s *strategyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.kind, "strategy", "", "strategy key (ma, rsi, boll, macd, bollExtreme)")
	cmd.Flags().StringArrayVarP(&s.params, "param", "p", nil, "strategy parameter key=value, repeatable")

	cmd.Flags().Float64Var(&s.capital, "capital", 0, "initial capital")
	cmd.Flags().Float64Var(&s.size, "size", 0, "fraction of cash per position, (0,1]")
	cmd.Flags().Float64Var(&s.commission, "commission", 0, "commission rate, 0.001 = 0.1%")
	cmd.Flags().Float64Var(&s.slippage, "slippage", 0, "slippage rate, 0.0005 = 0.05%")
	cmd.Flags().BoolVar(&s.short, "short", false, "allow short positions")
}

func (s *strategyFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	if s.kind != "" {
		kind, err := strategies.ParseKind(s.kind)
		if err != nil {
			return err
		}
		if kind != cfg.Strategy.Kind {
			cfg.Strategy = config.StrategyConfig{Kind: kind, Params: strategies.Params{}}
		}
	}
	if len(s.params) > 0 {
		p, err := strategies.ParseParams(s.params)
		if err != nil {
			return err
		}
		cfg.Strategy.Params = cfg.Strategy.Params.Merge(p)
	}

	f := cmd.Flags()
	if f.Changed("capital") {
		cfg.Backtest.InitialCapital = s.capital
	}
	if f.Changed("size") {
		cfg.Backtest.PositionSize = s.size
	}
	if f.Changed("commission") {
		cfg.Backtest.Commission = s.commission
	}
	if f.Changed("slippage") {
		cfg.Backtest.Slippage = s.slippage
	}
	if f.Changed("short") {
		cfg.Backtest.AllowShort = s.short
	}
	return cfg.Validate()
}
