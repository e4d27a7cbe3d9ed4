package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/quantlab/backtest"
	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/metrics"
	"github.com/rustyeddy/quantlab/strategies"
	"github.com/rustyeddy/quantlab/sweep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hour = int64(time.Hour / time.Millisecond)

var t0 = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC).UnixMilli()

func sampleRun(t *testing.T) Run {
	t.Helper()

	closes := []float64{100, 100, 110, 120, 115, 105}
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{Timestamp: t0 + int64(i)*hour, Open: c, High: c, Low: c, Close: c}
	}
	signals := []strategies.Signal{
		{Index: 1, Timestamp: bars[1].Timestamp, Side: strategies.Buy, Reason: "go long", Price: 100},
		{Index: 3, Timestamp: bars[3].Timestamp, Side: strategies.Sell, Reason: "take profit", Price: 120},
		{Index: 4, Timestamp: bars[4].Timestamp, Side: strategies.Buy, Reason: "again", Price: 115},
	}
	res := backtest.Run(bars, signals, backtest.DefaultConfig())
	require.Len(t, res.Trades, 4, "two round trips, the second force closed")

	return Run{
		RunID:    "01HQRUN",
		Created:  time.Date(2024, 3, 16, 9, 30, 0, 0, time.UTC),
		Dataset:  "btc.csv",
		Kind:     strategies.KindMA,
		Strategy: "MA_CROSS(SMA,5,20)",
		Params:   strategies.Params{"fastPeriod": 5, "slowPeriod": 20},
		Result:   res,
		Metrics:  metrics.Compute(res),
		Notes:    []string{"synthetic data"},
	}
}

func TestPrintRun(t *testing.T) {
	t.Parallel()

	r := sampleRun(t)
	var buf bytes.Buffer
	PrintRun(&buf, r)
	out := buf.String()

	assert.Contains(t, out, "Run ID:        01HQRUN")
	assert.Contains(t, out, "Strategy:      MA_CROSS(SMA,5,20)")
	assert.Contains(t, out, "Start:         2024-03-15T00:00:00Z")
	assert.Contains(t, out, "End:           2024-03-15T05:00:00Z")
	assert.Contains(t, out, "Bars:          6")
	assert.Contains(t, out, "fastPeriod:    5")
	assert.Contains(t, out, "Trades:        2")
	assert.Contains(t, out, "Wins:          1")
	assert.Contains(t, out, "Losses:        1")
	assert.Contains(t, out, "Start Balance: $100,000.00")
	assert.Contains(t, out, "Avg Holding:   ")
	assert.Contains(t, out, "- synthetic data")
}

func TestPrintRunEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	PrintRun(&buf, Run{})
	out := buf.String()
	assert.Contains(t, out, "Run ID:        -")
	assert.Contains(t, out, "Bars:          0")
	assert.NotContains(t, out, "Start:")
	assert.NotContains(t, out, "Observations")
}

func TestPrintTables(t *testing.T) {
	t.Parallel()

	r := sampleRun(t)

	var buf bytes.Buffer
	require.NoError(t, PrintTrades(&buf, r))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[2], "CLOSE_LONG")
	assert.Contains(t, lines[4], backtest.EndOfBacktest)

	buf.Reset()
	sigs := []strategies.Signal{{Index: 2, Timestamp: t0, Side: strategies.Sell, Price: 1.5, Reason: "why"}}
	require.NoError(t, PrintSignals(&buf, sigs))
	assert.Contains(t, buf.String(), "SELL")
	assert.Contains(t, buf.String(), "2024-03-15T00:00:00Z")
}

func TestPrintSweep(t *testing.T) {
	t.Parallel()

	results := []sweep.Result{
		{RunID: "R1", Name: "RSI(14,70,30)", Metrics: metrics.Metrics{TotalReturnPercent: 4.5, TotalTrades: 3}},
		{RunID: "R2", Job: sweep.Job{Kind: "grid"}, Error: "unknown strategy"},
	}
	var buf bytes.Buffer
	require.NoError(t, PrintSweep(&buf, results))
	out := buf.String()
	assert.Contains(t, out, "RSI(14,70,30)")
	assert.Contains(t, out, "4.50%")
	assert.Contains(t, out, "error: unknown strategy")
	assert.Contains(t, out, "grid")
}

func TestWriteOrg(t *testing.T) {
	t.Parallel()

	r := sampleRun(t)
	var buf bytes.Buffer
	require.NoError(t, WriteOrg(&buf, r))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "* BACKTEST: MA_CROSS(SMA,5,20) btc.csv\n"))
	assert.Contains(t, out, ":RUN_ID:      01HQRUN")
	assert.Contains(t, out, ":STRATEGY:    ma")
	assert.Contains(t, out, ":START_DATE:  2024-03-15")
	assert.Contains(t, out, ":BARS:        6")
	assert.Contains(t, out, ":START_BAL:   100000.00")
	assert.Contains(t, out, ":CREATED:     [2024-03-16 Sat 09:30]")
	assert.Contains(t, out, ":END:")
	assert.Contains(t, out, "| fastPeriod | 5 |")
	assert.Contains(t, out, "| slowPeriod | 20 |")
	assert.Contains(t, out, "| Position Size | 100.00% |")
	assert.Contains(t, out, "| Allow Short | false |")
	assert.Contains(t, out, "** Trades")
	assert.Contains(t, out, "| take profit |")
	assert.Contains(t, out, "| "+backtest.EndOfBacktest+" |")
	assert.NotContains(t, out, "| go long |", "opening trades are not listed")
	assert.Contains(t, out, "** Observations\n- synthetic data")
}

func TestWriteOrgNoTrades(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteOrg(&buf, Run{}))
	out := buf.String()
	assert.Contains(t, out, "* BACKTEST: - -")
	assert.Contains(t, out, ":START_DATE:  (date?)")
	assert.NotContains(t, out, "Observations")
}

func TestWriteTradesCSV(t *testing.T) {
	t.Parallel()

	r := sampleRun(t)
	var buf bytes.Buffer
	require.NoError(t, WriteTradesCSV(&buf, r.Result.Trades))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, TradesHeader, rows[0])

	open, closed := rows[1], rows[2]
	assert.Equal(t, "1", open[0])
	assert.Equal(t, "BUY", open[2])
	assert.Equal(t, "OPEN_LONG", open[3])
	assert.Empty(t, open[7], "no pnl on open")

	assert.Equal(t, "CLOSE_LONG", closed[3])
	assert.Equal(t, "SELL", closed[2])
	assert.Equal(t, "7200000", closed[9])
	assert.Equal(t, "take profit", closed[10])
	assert.Equal(t, f(r.Result.Trades[1].PnL), closed[7])
}

func TestWriteEquityCSV(t *testing.T) {
	t.Parallel()

	r := sampleRun(t)
	var buf bytes.Buffer
	require.NoError(t, WriteEquityCSV(&buf, r.Result.EquityCurve))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 7)
	assert.Equal(t, EquityHeader, rows[0])
	assert.Equal(t, "2024-03-15T00:00:00Z", rows[1][0])
	assert.Equal(t, "100000.000000", rows[1][2])
	assert.Equal(t, "0.000000", rows[1][4])
}

func TestWriteSignalsCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sigs := []strategies.Signal{{Index: 7, Timestamp: t0, Side: strategies.Buy, Price: 2, Reason: "a, b"}}
	require.NoError(t, WriteSignalsCSV(&buf, sigs))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"7", "2024-03-15T00:00:00Z", "BUY", "2.000000", "a, b"}, rows[1])
}
