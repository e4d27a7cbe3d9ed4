package report

import (
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/rustyeddy/quantlab/backtest"
	"github.com/rustyeddy/quantlab/metrics"
)

var orgFuncs = template.FuncMap{
	"mul100":  func(x float64) float64 { return x * 100.0 },
	"orTime":  orTime,
	"orDash":  orDash,
	"pct":     func(v float64) string { return metrics.FormatPercent(v, 2) },
	"num":     func(v float64) string { return metrics.FormatNumber(v, 2) },
	"msTime":  msTime,
	"keys":    sortedKeys,
	"isClose": func(a backtest.Action) bool { return a.IsClose() },
	"day": func(t time.Time) string {
		if t.IsZero() {
			return "(date?)"
		}
		return t.Format("2006-01-02")
	},
}

var orgTemplate = template.Must(template.New("org").Funcs(orgFuncs).Parse(OrgTemplate))

// orgView is what the template sees.
type orgView struct {
	Run
	Money func(float64) string
}

// WriteOrg renders r as an Org-mode entry with a properties drawer,
// parameter and performance sections and the closing-trade ledger.
func WriteOrg(w io.Writer, r Run) error {
	if err := orgTemplate.Execute(w, orgView{Run: r, Money: r.money}); err != nil {
		return fmt.Errorf("report: render org: %w", err)
	}
	return nil
}

const OrgTemplate = `* BACKTEST: {{orDash .Strategy}} {{orDash .Dataset}}
:PROPERTIES:
:RUN_ID:      {{orDash .RunID}}
:STRATEGY:    {{orDash (print .Kind)}}
:DATASET:     {{orDash .Dataset}}
:START_DATE:  {{day .Start}}
:END_DATE:    {{day .End}}
:BARS:        {{len .Result.EquityCurve}}
:START_BAL:   {{printf "%.2f" .Result.InitialCapital}}
:END_BAL:     {{printf "%.2f" .Metrics.FinalCapital}}
:NET_PL:      {{printf "%.2f" .Metrics.TotalReturn}}
:RETURN_PCT:  {{num .Metrics.TotalReturnPercent}}
:MAX_DD_PCT:  {{num .Metrics.MaxDrawdownPercent}}
:TRADES:      {{.Metrics.TotalTrades}}
:WINS:        {{.Metrics.WinningTrades}}
:LOSSES:      {{.Metrics.LosingTrades}}
:WIN_RATE:    {{num .Metrics.WinRate}}
:PROFIT_FAC:  {{.Metrics.ProfitFactor}}
:SHARPE:      {{num .Metrics.SharpeRatio}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Parameters
| Parameter | Value |
|-----------+-------|
{{- $p := .Params}}
{{- range keys .Params}}
| {{.}} | {{index $p .}} |
{{- end}}
| Position Size | {{pct (mul100 .Result.Config.PositionSize)}} |
| Commission | {{printf "%.3f" (mul100 .Result.Config.Commission)}}% |
| Slippage | {{printf "%.3f" (mul100 .Result.Config.Slippage)}}% |
| Allow Short | {{.Result.Config.AllowShort}} |

** Performance Summary
- Net P/L:          *{{call .Money .Metrics.TotalReturn}}*
- Return:           *{{pct .Metrics.TotalReturnPercent}}*
- Max Drawdown:     *{{call .Money .Metrics.MaxDrawdown}} ({{pct .Metrics.MaxDrawdownPercent}})*
- Win Rate:         *{{pct .Metrics.WinRate}}*
- Profit Factor:    *{{.Metrics.ProfitFactor}}*
- P/L Ratio:        *{{.Metrics.ProfitLossRatio}}*
- Sharpe Ratio:     *{{num .Metrics.SharpeRatio}}*
- Avg Holding:      *{{.Metrics.AvgHoldingPeriodText}}*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Metrics.WinningTrades}} |
| Losses  | {{.Metrics.LosingTrades}} |
| Total   | {{.Metrics.TotalTrades}} |
| Max win streak  | {{.Metrics.MaxConsecutiveWins}} |
| Max loss streak | {{.Metrics.MaxConsecutiveLosses}} |

** Trades
| # | Closed | Action | Price | P/L | P/L % | Reason |
|---+--------+--------+-------+-----+-------+--------|
{{- range .Result.Trades}}
{{- if isClose .Action}}
| {{.ID}} | {{msTime .Timestamp}} | {{.Action}} | {{printf "%.4f" .Price}} | {{printf "%.2f" .PnL}} | {{pct .PnLPercent}} | {{.Signal}} |
{{- end}}
{{- end}}

{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
