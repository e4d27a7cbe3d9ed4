package cmd

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/rustyeddy/quantlab/backtest"
	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/strategies"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz/lzma"
)

const hourMs = 3600 * 1000

// writeBars writes a sine wave of n hourly bars to a CSV in a temp dir.
func writeBars(t *testing.T, n int) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("timestamp,open,high,low,close,volume\n")
	for i := 0; i < n; i++ {
		c := 100 + 10*math.Sin(float64(i)/5)
		o := c - 0.5
		fmt.Fprintf(&b, "%d,%s,%s,%s,%s,1000\n", int64(1_700_000_000_000)+int64(i)*hourMs,
			num(o), num(c+1), num(o-1), num(c))
	}

	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// run executes the command tree with args and returns what it printed.
// A missing .env is skipped, so tests stay independent of the working dir.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "quantlab version "+version)
}

func TestStrategiesCmd(t *testing.T) {
	out, err := run(t, "strategies")
	require.NoError(t, err)
	for _, k := range strategies.Kinds() {
		assert.Contains(t, out, string(k))
	}

	out, err = run(t, "strategies", "boll")
	require.NoError(t, err)
	assert.Contains(t, out, "stdDev")
	assert.Contains(t, out, "[reversion breakout]")

	out, err = run(t, "strategies", "rsi", "--json")
	require.NoError(t, err)
	var info strategies.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, strategies.KindRSI, info.Key)

	_, err = run(t, "strategies", "nope")
	assert.ErrorIs(t, err, strategies.ErrUnknownStrategy)
}

func TestBacktestText(t *testing.T) {
	data := writeBars(t, 120)

	out, err := run(t, "backtest", "--data", data, "--strategy", "ma",
		"-p", "fastPeriod=3", "-p", "slowPeriod=8", "--trades", "--signals", "--note", "sine wave")
	require.NoError(t, err)

	assert.Contains(t, out, "Backtest Result")
	assert.Contains(t, out, "Run ID:")
	assert.Contains(t, out, "Bars:          120")
	assert.Contains(t, out, "fastPeriod")
	assert.Contains(t, out, "Signals")
	assert.Contains(t, out, "Trades")
	assert.Contains(t, out, "sine wave")
}

func TestBacktestJSONMatchesEngine(t *testing.T) {
	data := writeBars(t, 120)

	out, err := run(t, "backtest", "--data", data, "--strategy", "macd", "--short",
		"--commission", "0", "--format", "json")
	require.NoError(t, err)

	var got struct {
		RunID  string          `json:"runId"`
		Result backtest.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.RunID, 26)

	bars, err := market.LoadFile(data)
	require.NoError(t, err)
	cfg := backtest.DefaultConfig()
	cfg.AllowShort = true
	cfg.Commission = 0
	want, err := backtest.RunStrategy(bars, strategies.KindMACD, nil, cfg)
	require.NoError(t, err)

	assert.Equal(t, want.FinalCapital, got.Result.FinalCapital)
	assert.Len(t, got.Result.Trades, len(want.Trades))
	assert.Len(t, got.Result.EquityCurve, 120)
}

func TestBacktestOrgAndCSV(t *testing.T) {
	data := writeBars(t, 80)
	dir := t.TempDir()
	trades := filepath.Join(dir, "trades.csv")
	equity := filepath.Join(dir, "equity.csv")
	signals := filepath.Join(dir, "signals.csv")

	out, err := run(t, "backtest", "--data", data, "--strategy", "rsi", "-p", "period=5",
		"--format", "org", "--trades-csv", trades, "--equity-csv", equity, "--signals-csv", signals)
	require.NoError(t, err)
	assert.Contains(t, out, ":PROPERTIES:")
	assert.Contains(t, out, ":STRATEGY:")

	for path, header := range map[string]string{trades: "trade_id,time", equity: "time,timestamp", signals: "index,time"} {
		b, err := os.ReadFile(path)
		require.NoError(t, err, path)
		assert.True(t, strings.HasPrefix(string(b), header), path)
	}

	eq, err := os.ReadFile(equity)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(eq)), "\n"), 81, "header plus one row per bar")
}

func TestBacktestErrors(t *testing.T) {
	data := writeBars(t, 30)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"format", []string{"backtest", "--data", data, "--format", "xml"}, "unknown format"},
		{"no data", []string{"backtest"}, "no data source"},
		{"strategy", []string{"backtest", "--data", data, "--strategy", "zz"}, "unknown strategy"},
		{"params", []string{"backtest", "--data", data, "--strategy", "ma", "-p", "maType=WMA"}, "maType"},
		{"param syntax", []string{"backtest", "--data", data, "-p", "oops"}, "key=value"},
		{"size", []string{"backtest", "--data", data, "--size", "2"}, "position size"},
		{"missing file", []string{"backtest", "--data", filepath.Join(t.TempDir(), "none.csv")}, "none.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSweepCmd(t *testing.T) {
	data := writeBars(t, 150)

	out, err := run(t, "sweep", "--data", data, "--strategy", "ma",
		"--axis", "fastPeriod=3,5", "--axis", "slowPeriod=10,20", "--rank", "sharpe", "--workers", "2", "--json")
	require.NoError(t, err)

	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 4)
	for _, r := range results {
		assert.NotEmpty(t, r["runId"])
		assert.Empty(t, r["error"])
	}

	out, err = run(t, "sweep", "--data", data, "--strategy", "ma",
		"--axis", "fastPeriod=3,5,8", "--top", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "3 jobs ranked by return")
	assert.Contains(t, out, "RUN ID")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 5, "title, blank, header and two rows")

	_, err = run(t, "sweep", "--data", data, "--rank", "luck")
	assert.Error(t, err)
	_, err = run(t, "sweep", "--data", data, "--axis", "novalues")
	assert.Error(t, err)
}

func TestIndicatorsCmd(t *testing.T) {
	data := writeBars(t, 60)

	out, err := run(t, "indicators", "--data", data, "--ind", "sma,macd", "--period", "5", "--tail", "3")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "time,close,sma5,macd,macd_signal,macd_hist", lines[0])
	for _, l := range lines[1:] {
		assert.Len(t, strings.Split(l, ","), 6)
		assert.NotContains(t, l, ",,", "warm by the tail")
	}

	out, err = run(t, "indicators", "--data", data, "--ind", "rsi,bollinger,atr,adx", "--period", "10")
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 61)
	assert.Equal(t, "time,close,rsi14,boll_upper,boll_middle,boll_lower,atr10,adx10", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], ",,,,,,"), "nothing is ready on the first bar")
	assert.NotContains(t, lines[60], ",,", "adx10 is ready by bar 19")

	_, err = run(t, "indicators", "--data", data, "--ind", "vwap")
	assert.Error(t, err)
	_, err = run(t, "indicators", "--data", data, "--period", "0")
	assert.Error(t, err)
}

func TestTrendsCmd(t *testing.T) {
	data := writeBars(t, 100)

	out, err := run(t, "trends", "--data", data, "--adaptive", "--json")
	require.NoError(t, err)
	var got struct {
		Adaptive *struct {
			DataLength int `json:"dataLength"`
		} `json:"adaptive"`
		Segments []map[string]any `json:"segments"`
		Stats    struct {
			Total int `json:"total"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotNil(t, got.Adaptive)
	assert.Equal(t, 100, got.Adaptive.DataLength)
	assert.Equal(t, len(got.Segments), got.Stats.Total)
	assert.NotZero(t, got.Stats.Total)

	out, err = run(t, "trends", "--data", data, "--merge", "--threshold", "0.5")
	require.NoError(t, err)
	assert.Contains(t, out, "sideways within 0.50%")
	assert.Contains(t, out, "segments:")

	_, err = run(t, "trends", "--data", data, "--min-length", "0")
	assert.Error(t, err)
}

func TestDataCmd(t *testing.T) {
	data := writeBars(t, 50)
	db := filepath.Join(t.TempDir(), "bars.db")

	out, err := run(t, "data", "import", data, "--db", db, "--symbol", "BTC", "--interval", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 50 bars as BTC/1h")

	out, err = run(t, "data", "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "BTC")
	assert.Contains(t, out, "50")

	out, err = run(t, "backtest", "--db", db, "--symbol", "BTC", "--interval", "1h", "--strategy", "boll")
	require.NoError(t, err)
	assert.Contains(t, out, "BTC/1h")
	assert.Contains(t, out, "Bars:          50")

	_, err = run(t, "backtest", "--db", db, "--symbol", "ETH", "--interval", "1h")
	assert.Error(t, err)

	out, err = run(t, "data", "delete", "BTC", "1h", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 50 bars")

	out, err = run(t, "data", "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No series stored")

	_, err = run(t, "data", "import", data, "--db", db)
	assert.Error(t, err, "symbol is required")
}

func TestDataFetch(t *testing.T) {
	var raw bytes.Buffer
	for _, rec := range [][5]uint32{
		{1000, 110002, 110000, 0, 0},
		{90_000, 110010, 110006, 0, 0},
	} {
		require.NoError(t, binary.Write(&raw, binary.BigEndian, rec))
	}
	var bi5 bytes.Buffer
	zw, err := lzma.NewWriter(&bi5)
	require.NoError(t, err)
	_, err = zw.Write(raw.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/EURUSD/2026/00/05/13h_ticks.bi5" {
			http.NotFound(w, r)
			return
		}
		w.Write(bi5.Bytes())
	}))
	defer srv.Close()

	db := filepath.Join(t.TempDir(), "fx.db")
	out, err := run(t, "data", "fetch", "--db", db, "--base", srv.URL, "--symbol", "EURUSD",
		"--from", "2026-01-05T13", "--to", "2026-01-05T15", "--interval", "1m")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Stored 2 bars as EURUSD/1m")
	assert.Contains(t, out, "Hours: 2 (1 missing), ticks: 2")

	out, err = run(t, "data", "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "2026-01-05T13:00:00Z")
	assert.Contains(t, out, "2026-01-05T13:01:00Z")

	_, err = run(t, "data", "fetch", "--db", db, "--base", srv.URL, "--symbol", "EURUSD",
		"--from", "2026-01-06", "--to", "2026-01-06T02")
	assert.ErrorContains(t, err, "no ticks")

	_, err = run(t, "data", "fetch", "--db", db, "--symbol", "EURUSD", "--from", "2026-01-06", "--to", "2026-01-05")
	assert.ErrorContains(t, err, "--to must be after --from")
}

func TestConfigCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quantlab.yaml")

	out, err := run(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Created default configuration")

	out, err = run(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Configuration valid")
	assert.Contains(t, out, "Strategy: ma")

	out, err = run(t, "config", "show", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "initial-capital: 100000")
	assert.Contains(t, out, "kind: ma")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"backtest":{"positionSize":5}}`), 0o644))
	_, err = run(t, "config", "validate", "-f", bad)
	assert.ErrorContains(t, err, "validation failed")
}

func TestConfigFileDrivesBacktest(t *testing.T) {
	data := writeBars(t, 90)
	path := filepath.Join(t.TempDir(), "run.yaml")
	cfg := fmt.Sprintf(`backtest:
  initial-capital: 5000
  position-size: 0.5
strategy:
  kind: bollExtreme
data:
  file: %s
`, data)
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))

	out, err := run(t, "backtest", "-c", path, "--format", "json")
	require.NoError(t, err)

	var got struct {
		Strategy string          `json:"strategy"`
		Result   backtest.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 5000.0, got.Result.InitialCapital)
	assert.Equal(t, 0.5, got.Result.Config.PositionSize)
	assert.NotEmpty(t, got.Strategy)
}
