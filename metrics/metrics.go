// Package metrics derives return, risk and trade statistics from a
// backtest result.
package metrics

import (
	"math"
	"time"

	"github.com/rustyeddy/quantlab/backtest"
)

const (
	// DefaultRiskFreeRate is the annual rate Sharpe is measured against.
	DefaultRiskFreeRate = 0.03

	// TradingDaysPerYear annualizes per-bar returns.
	TradingDaysPerYear = 252
)

// Metrics is the full statistics record for one run.
type Metrics struct {
	TotalReturn        float64 `json:"totalReturn"`
	TotalReturnPercent float64 `json:"totalReturnPercent"`
	FinalCapital       float64 `json:"finalCapital"`

	TotalTrades   int     `json:"totalTrades"`
	WinningTrades int     `json:"winningTrades"`
	LosingTrades  int     `json:"losingTrades"`
	WinRate       float64 `json:"winRate"`

	TotalProfit     float64 `json:"totalProfit"`
	TotalLoss       float64 `json:"totalLoss"`
	AvgWin          float64 `json:"avgWin"`
	AvgLoss         float64 `json:"avgLoss"`
	ProfitLossRatio Ratio   `json:"profitLossRatio"`
	ProfitFactor    Ratio   `json:"profitFactor"`

	MaxDrawdown        float64 `json:"maxDrawdown"`
	MaxDrawdownPercent float64 `json:"maxDrawdownPercent"`
	SharpeRatio        float64 `json:"sharpeRatio"`

	MaxConsecutiveWins   int `json:"maxConsecutiveWins"`
	MaxConsecutiveLosses int `json:"maxConsecutiveLosses"`

	// AvgHoldingPeriod is zero when no closing trade has a holding period.
	AvgHoldingPeriod     time.Duration `json:"avgHoldingPeriod"`
	AvgHoldingPeriodText string        `json:"avgHoldingPeriodText"`

	EquityCurve   []backtest.EquityPoint `json:"equityCurve"`
	DrawdownCurve []DrawdownPoint        `json:"drawdownCurve"`
}

type options struct {
	riskFreeRate   float64
	periodsPerYear float64
}

// Option tunes Compute.
type Option func(*options)

// WithRiskFreeRate sets the annual risk-free rate used by Sharpe.
func WithRiskFreeRate(r float64) Option {
	return func(o *options) { o.riskFreeRate = r }
}

// WithPeriodsPerYear sets the annualization factor for Sharpe.
func WithPeriodsPerYear(n float64) Option {
	return func(o *options) { o.periodsPerYear = n }
}

// Compute derives Metrics from res. It never fails: degenerate input gives
// zeros, and NaN or Inf in the result flow into the affected fields.
func Compute(res backtest.Result, opts ...Option) Metrics {
	o := options{
		riskFreeRate:   DefaultRiskFreeRate,
		periodsPerYear: TradingDaysPerYear,
	}
	for _, opt := range opts {
		opt(&o)
	}

	closed := ClosedTrades(res.Trades)

	m := Metrics{
		TotalReturn:  res.FinalCapital - res.InitialCapital,
		FinalCapital: res.FinalCapital,
		TotalTrades:  len(closed),
		EquityCurve:  res.EquityCurve,
	}
	m.TotalReturnPercent = m.TotalReturn / res.InitialCapital * 100

	for _, t := range closed {
		switch {
		case t.PnL > 0:
			m.WinningTrades++
			m.TotalProfit += t.PnL
		case t.PnL < 0:
			m.LosingTrades++
			m.TotalLoss += t.PnL
		}
	}
	m.TotalLoss = math.Abs(m.TotalLoss)

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	}
	if m.WinningTrades > 0 {
		m.AvgWin = m.TotalProfit / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = m.TotalLoss / float64(m.LosingTrades)
	}
	m.ProfitLossRatio = ratio(m.AvgWin, m.AvgLoss)
	m.ProfitFactor = ratio(m.TotalProfit, m.TotalLoss)

	dd := Drawdown(res.EquityCurve)
	m.MaxDrawdown = dd.Max
	m.MaxDrawdownPercent = dd.MaxPercent
	m.DrawdownCurve = dd.Curve

	m.SharpeRatio = Sharpe(res.EquityCurve, o.riskFreeRate, o.periodsPerYear)
	m.MaxConsecutiveWins, m.MaxConsecutiveLosses = Streaks(closed)
	m.AvgHoldingPeriod = AvgHoldingPeriod(closed)
	m.AvgHoldingPeriodText = FormatHoldingPeriod(m.AvgHoldingPeriod)

	return m
}

// ClosedTrades keeps trades with non-zero pnl. Opening trades always carry
// zero pnl, so this is the set of round trips.
func ClosedTrades(trades []backtest.Trade) []backtest.Trade {
	out := make([]backtest.Trade, 0, len(trades)/2+1)
	for _, t := range trades {
		if t.PnL != 0 {
			out = append(out, t)
		}
	}
	return out
}

// ratio is num/den, +Inf when only num is positive and 0 when both are zero.
func ratio(num, den float64) Ratio {
	if den > 0 {
		return Ratio(num / den)
	}
	if num > 0 {
		return Ratio(math.Inf(1))
	}
	return 0
}

// Streaks returns the longest runs of winning and losing trades. A zero
// pnl trade breaks neither run.
func Streaks(trades []backtest.Trade) (maxWins, maxLosses int) {
	wins, losses := 0, 0
	for _, t := range trades {
		switch {
		case t.PnL > 0:
			wins++
			losses = 0
			maxWins = max(maxWins, wins)
		case t.PnL < 0:
			losses++
			wins = 0
			maxLosses = max(maxLosses, losses)
		}
	}
	return maxWins, maxLosses
}

// AvgHoldingPeriod averages the holding period of trades that have one.
func AvgHoldingPeriod(trades []backtest.Trade) time.Duration {
	var total float64
	n := 0
	for _, t := range trades {
		if t.HoldingPeriod != 0 {
			total += float64(t.HoldingPeriod)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return time.Duration(total / float64(n) * float64(time.Millisecond))
}
