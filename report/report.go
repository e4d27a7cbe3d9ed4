// Package report renders backtest results as plain text, Org-mode and CSV.
// Everything writes to an io.Writer, nothing touches the filesystem.
package report

import (
	"time"

	"github.com/rustyeddy/quantlab/backtest"
	"github.com/rustyeddy/quantlab/metrics"
	"github.com/rustyeddy/quantlab/strategies"
)

// Run is one finished backtest plus the context needed to describe it.
type Run struct {
	RunID   string
	Created time.Time

	// Dataset names the bar source, a file path or symbol/interval.
	Dataset string

	Kind     strategies.Kind
	Strategy string // display name, e.g. MA_CROSS(SMA,5,20)
	Params   strategies.Params

	Result  backtest.Result
	Metrics metrics.Metrics

	// Currency prefixes money amounts. Empty means "$".
	Currency string

	Notes []string
}

// Start is the time of the first equity point, zero without one.
func (r Run) Start() time.Time {
	if len(r.Result.EquityCurve) == 0 {
		return time.Time{}
	}
	return time.UnixMilli(r.Result.EquityCurve[0].Timestamp).UTC()
}

// End is the time of the last equity point, zero without one.
func (r Run) End() time.Time {
	n := len(r.Result.EquityCurve)
	if n == 0 {
		return time.Time{}
	}
	return time.UnixMilli(r.Result.EquityCurve[n-1].Timestamp).UTC()
}

func (r Run) money(v float64) string {
	sym := r.Currency
	if sym == "" {
		sym = "$"
	}
	return metrics.FormatCurrency(v, sym)
}

func orTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func msTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
