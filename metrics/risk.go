package metrics

import (
	"math"

	"github.com/rustyeddy/quantlab/backtest"
)

// DrawdownPoint is the distance below the running peak at one bar.
type DrawdownPoint struct {
	Timestamp       int64   `json:"timestamp"`
	Drawdown        float64 `json:"drawdown"`
	DrawdownPercent float64 `json:"drawdownPercent"`
}

// DrawdownResult holds the curve and both maxima.
type DrawdownResult struct {
	Max        float64
	MaxPercent float64
	Curve      []DrawdownPoint
}

// Drawdown tracks a running peak starting from the first equity point.
// Max and MaxPercent come from the same point: the percent is taken where
// the absolute drawdown peaked, not tracked on its own.
func Drawdown(curve []backtest.EquityPoint) DrawdownResult {
	out := DrawdownResult{Curve: make([]DrawdownPoint, 0, len(curve))}
	if len(curve) == 0 {
		return out
	}

	peak := curve[0].Equity
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}

		dd := peak - p.Equity
		pct := 0.0
		if peak > 0 {
			pct = dd / peak * 100
		}
		if dd > out.Max {
			out.Max = dd
			out.MaxPercent = pct
		}

		out.Curve = append(out.Curve, DrawdownPoint{
			Timestamp:       p.Timestamp,
			Drawdown:        dd,
			DrawdownPercent: pct,
		})
	}
	return out
}

// Sharpe annualizes the mean excess per-bar return over its population
// standard deviation. Returns from a non-positive previous equity are
// skipped. The result is 0 with fewer than two points, no usable returns
// or zero deviation.
func Sharpe(curve []backtest.EquityPoint, riskFreeRate, periodsPerYear float64) float64 {
	if len(curve) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev > 0 {
			returns = append(returns, (curve[i].Equity-prev)/prev)
		}
	}
	if len(returns) == 0 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	std := math.Sqrt(variance / float64(len(returns)))
	if std == 0 {
		return 0
	}

	return (mean - riskFreeRate/periodsPerYear) / std * math.Sqrt(periodsPerYear)
}
