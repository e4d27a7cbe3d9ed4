package backtest

import (
	"fmt"

	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/strategies"
)

// RunStrategy generates signals for kind and runs them through the engine.
// An unknown kind fails with strategies.ErrUnknownStrategy before any bar
// is looked at.
func RunStrategy(bars []market.Bar, kind strategies.Kind, params strategies.Params, cfg Config) (Result, error) {
	strat, err := strategies.New(kind, params)
	if err != nil {
		return Result{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	return RunWith(bars, strat, cfg), nil
}

// RunWith runs an already constructed strategy.
func RunWith(bars []market.Bar, strat strategies.Strategy, cfg Config) Result {
	return Run(bars, strat.GenerateSignals(bars), cfg)
}

// Summary is a one-line description of a result, used by logs and the CLI.
func (r Result) Summary() string {
	closes := 0
	for _, t := range r.Trades {
		if t.Action.IsClose() {
			closes++
		}
	}
	ret := 0.0
	if r.InitialCapital != 0 {
		ret = (r.FinalCapital - r.InitialCapital) / r.InitialCapital * 100
	}
	return fmt.Sprintf("bars=%d trades=%d round-trips=%d final=%.2f return=%.2f%%",
		len(r.EquityCurve), len(r.Trades), closes, r.FinalCapital, ret)
}
