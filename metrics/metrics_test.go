package metrics

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/quantlab/backtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hourMs = int64(time.Hour / time.Millisecond)

func curve(equities ...float64) []backtest.EquityPoint {
	out := make([]backtest.EquityPoint, len(equities))
	for i, e := range equities {
		out[i] = backtest.EquityPoint{Timestamp: int64(i+1) * hourMs, Equity: e, Price: e}
	}
	return out
}

func closing(pnl float64, holdHours int64) backtest.Trade {
	return backtest.Trade{Action: backtest.CloseLong, PnL: pnl, HoldingPeriod: holdHours * hourMs}
}

func opening() backtest.Trade {
	return backtest.Trade{Action: backtest.OpenLong}
}

func sampleResult() backtest.Result {
	return backtest.Result{
		InitialCapital: 100,
		FinalCapital:   90,
		Trades: []backtest.Trade{
			opening(), closing(100, 2),
			opening(), closing(-50, 4),
			opening(), closing(30, 6),
		},
		EquityCurve: curve(100, 110, 99, 120, 90),
	}
}

func TestCompute(t *testing.T) {
	t.Parallel()

	m := Compute(sampleResult())

	assert.Equal(t, -10.0, m.TotalReturn)
	assert.Equal(t, -10.0, m.TotalReturnPercent)
	assert.Equal(t, 90.0, m.FinalCapital)

	assert.Equal(t, 3, m.TotalTrades, "opening trades are not counted")
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 1, m.LosingTrades)
	assert.InDelta(t, 66.66666666666667, m.WinRate, 1e-9)

	assert.Equal(t, 130.0, m.TotalProfit)
	assert.Equal(t, 50.0, m.TotalLoss)
	assert.Equal(t, 65.0, m.AvgWin)
	assert.Equal(t, 50.0, m.AvgLoss)
	assert.InDelta(t, 1.3, m.ProfitLossRatio.Float64(), 1e-12)
	assert.InDelta(t, 2.6, m.ProfitFactor.Float64(), 1e-12)

	assert.Equal(t, 30.0, m.MaxDrawdown)
	assert.Equal(t, 25.0, m.MaxDrawdownPercent)
	require.Len(t, m.DrawdownCurve, 5)
	assert.Equal(t, 11.0, m.DrawdownCurve[2].Drawdown)
	assert.InDelta(t, 10.0, m.DrawdownCurve[2].DrawdownPercent, 1e-12)

	assert.InDelta(t, -0.8538007575390542, m.SharpeRatio, 1e-9)

	assert.Equal(t, 1, m.MaxConsecutiveWins)
	assert.Equal(t, 1, m.MaxConsecutiveLosses)

	assert.Equal(t, 4*time.Hour, m.AvgHoldingPeriod)
	assert.Equal(t, "4.0 hours", m.AvgHoldingPeriodText)
	assert.Len(t, m.EquityCurve, 5)
}

func TestComputeNoTrades(t *testing.T) {
	t.Parallel()

	m := Compute(backtest.Result{InitialCapital: 1000, FinalCapital: 1000, EquityCurve: curve(1000, 1000)})
	assert.Zero(t, m.TotalTrades)
	assert.Zero(t, m.WinRate)
	assert.Zero(t, m.ProfitFactor.Float64())
	assert.Zero(t, m.ProfitLossRatio.Float64())
	assert.Zero(t, m.SharpeRatio, "flat equity has zero deviation")
	assert.Zero(t, m.MaxDrawdown)
	assert.Zero(t, m.AvgHoldingPeriod)
	assert.Equal(t, "-", m.AvgHoldingPeriodText)
}

func TestComputeOnlyWinners(t *testing.T) {
	t.Parallel()

	res := backtest.Result{
		InitialCapital: 100,
		FinalCapital:   120,
		Trades:         []backtest.Trade{opening(), closing(10, 1), opening(), closing(10, 1)},
		EquityCurve:    curve(100, 110, 120),
	}
	m := Compute(res)
	assert.True(t, math.IsInf(m.ProfitFactor.Float64(), 1))
	assert.True(t, math.IsInf(m.ProfitLossRatio.Float64(), 1))
	assert.Equal(t, 2, m.MaxConsecutiveWins)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"profitFactor":"Infinity"`)
	assert.Contains(t, string(data), `"profitLossRatio":"Infinity"`)

	var back Metrics
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.ProfitFactor.IsInf())
}

func TestDrawdown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		equity  []float64
		wantMax float64
		wantPct float64
	}{
		{"empty", nil, 0, 0},
		{"non-decreasing", []float64{1, 1, 2, 3}, 0, 0},
		{"single dip", []float64{100, 80, 120}, 20, 20},
		{"deeper later", []float64{100, 90, 200, 150}, 50, 25},
		// the bigger absolute drop wins even though its percent is smaller
		{"absolute drives percent", []float64{10, 5, 1000, 900}, 100, 10},
		{"non-positive peak", []float64{0, -5}, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dd := Drawdown(curve(tt.equity...))
			assert.Equal(t, tt.wantMax, dd.Max)
			assert.Equal(t, tt.wantPct, dd.MaxPercent)
			assert.GreaterOrEqual(t, dd.Max, 0.0)
			assert.Len(t, dd.Curve, len(tt.equity))
		})
	}
}

func TestSharpe(t *testing.T) {
	t.Parallel()

	assert.Zero(t, Sharpe(curve(100), DefaultRiskFreeRate, TradingDaysPerYear))
	assert.Zero(t, Sharpe(nil, DefaultRiskFreeRate, TradingDaysPerYear))
	assert.Zero(t, Sharpe(curve(0, 0, 0), DefaultRiskFreeRate, TradingDaysPerYear), "no usable returns")
	assert.InDelta(t, 1963.5681848279226, Sharpe(curve(100, 101, 102, 103), 0, TradingDaysPerYear), 1e-6)

	m := Compute(backtest.Result{InitialCapital: 100, FinalCapital: 103, EquityCurve: curve(100, 101, 102, 103)},
		WithRiskFreeRate(0))
	assert.InDelta(t, 1963.5681848279226, m.SharpeRatio, 1e-6)

	m = Compute(backtest.Result{InitialCapital: 100, FinalCapital: 103, EquityCurve: curve(100, 101, 102, 103)},
		WithRiskFreeRate(0), WithPeriodsPerYear(1))
	assert.InDelta(t, 1963.5681848279226/math.Sqrt(252), m.SharpeRatio, 1e-6)
}

func TestStreaks(t *testing.T) {
	t.Parallel()

	trades := []backtest.Trade{
		closing(1, 1), closing(2, 1), closing(0, 1), closing(3, 1),
		closing(-1, 1), closing(-1, 1),
		closing(5, 1),
		closing(-1, 1), closing(-2, 1), closing(-3, 1),
	}
	w, l := Streaks(trades)
	assert.Equal(t, 3, w, "zero pnl does not break a run")
	assert.Equal(t, 3, l)
}

func TestClosedTrades(t *testing.T) {
	t.Parallel()

	trades := []backtest.Trade{opening(), closing(1, 1), opening(), closing(math.NaN(), 1)}
	closed := ClosedTrades(trades)
	assert.Len(t, closed, 2, "NaN pnl is not zero")
}

func TestNaNPropagates(t *testing.T) {
	t.Parallel()

	res := backtest.Result{InitialCapital: 100, FinalCapital: math.NaN(), EquityCurve: curve(100, math.NaN())}
	m := Compute(res)
	assert.True(t, math.IsNaN(m.TotalReturn))
	assert.True(t, math.IsNaN(m.TotalReturnPercent))
}

func TestFormatHoldingPeriod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "-"},
		{90 * time.Minute, "1.5 hours"},
		{23 * time.Hour, "23.0 hours"},
		{24 * time.Hour, "1.0 days"},
		{60 * time.Hour, "2.5 days"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatHoldingPeriod(tt.d))
	}
}

func TestFormatters(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1.23", FormatNumber(1.2345, 2))
	assert.Equal(t, "∞", FormatNumber(math.Inf(1), 2))
	assert.Equal(t, "-∞", FormatNumber(math.Inf(-1), 2))
	assert.Equal(t, "-", FormatNumber(math.NaN(), 2))
	assert.Equal(t, "12.5%", FormatPercent(12.5, 1))
	assert.Equal(t, "∞%", FormatPercent(math.Inf(1), 1))
	assert.Equal(t, "-", FormatPercent(math.NaN(), 1))

	assert.Equal(t, "$1,234,567.89", FormatCurrency(1234567.891, "$"))
	assert.Equal(t, "-$999.50", FormatCurrency(-999.5, "$"))
	assert.Equal(t, "$0.00", FormatCurrency(0, "$"))
	assert.Equal(t, "∞", Ratio(math.Inf(1)).String())
}
