package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/rustyeddy/quantlab/metrics"
	"github.com/rustyeddy/quantlab/strategies"
	"github.com/rustyeddy/quantlab/sweep"
)

const rule = "--------------------------------------------------"

// PrintRun writes a human readable summary of r.
func PrintRun(w io.Writer, r Run) {
	m := r.Metrics

	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", orDash(r.RunID))
	fmt.Fprintf(w, "Created:       %s\n", orTime(r.Created).Format(time.RFC3339))
	fmt.Fprintf(w, "Strategy:      %s\n", orDash(r.Strategy))
	fmt.Fprintf(w, "Dataset:       %s\n", orDash(r.Dataset))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, rule)
	if start, end := r.Start(), r.End(); !start.IsZero() {
		fmt.Fprintf(w, "Start:         %s\n", start.Format(time.RFC3339))
		fmt.Fprintf(w, "End:           %s\n", end.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Bars:          %d\n", len(r.Result.EquityCurve))

	if len(r.Params) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Strategy Parameters")
		fmt.Fprintln(w, rule)
		for _, k := range sortedKeys(r.Params) {
			fmt.Fprintf(w, "%-14s %v\n", k+":", r.Params[k])
		}
	}

	cfg := r.Result.Config
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Backtest Configuration")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Position Size: %.2f%%\n", cfg.PositionSize*100)
	fmt.Fprintf(w, "Commission:    %.3f%%\n", cfg.Commission*100)
	fmt.Fprintf(w, "Slippage:      %.3f%%\n", cfg.Slippage*100)
	fmt.Fprintf(w, "Allow Short:   %t\n", cfg.AllowShort)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Trades:        %d\n", m.TotalTrades)
	fmt.Fprintf(w, "Wins:          %d\n", m.WinningTrades)
	fmt.Fprintf(w, "Losses:        %d\n", m.LosingTrades)
	fmt.Fprintf(w, "Win Rate:      %s\n", metrics.FormatPercent(m.WinRate, 2))
	fmt.Fprintf(w, "Avg Win:       %s\n", r.money(m.AvgWin))
	fmt.Fprintf(w, "Avg Loss:      %s\n", r.money(m.AvgLoss))
	fmt.Fprintf(w, "P/L Ratio:     %s\n", m.ProfitLossRatio)
	fmt.Fprintf(w, "Max Win Run:   %d\n", m.MaxConsecutiveWins)
	fmt.Fprintf(w, "Max Loss Run:  %d\n", m.MaxConsecutiveLosses)
	fmt.Fprintf(w, "Avg Holding:   %s\n", m.AvgHoldingPeriodText)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Start Balance: %s\n", r.money(r.Result.InitialCapital))
	fmt.Fprintf(w, "End Balance:   %s\n", r.money(m.FinalCapital))
	fmt.Fprintf(w, "Net P/L:       %s\n", r.money(m.TotalReturn))
	fmt.Fprintf(w, "Return:        %s\n", metrics.FormatPercent(m.TotalReturnPercent, 2))
	fmt.Fprintf(w, "Profit Factor: %s\n", m.ProfitFactor)
	fmt.Fprintf(w, "Max Drawdown:  %s (%s)\n", r.money(m.MaxDrawdown), metrics.FormatPercent(m.MaxDrawdownPercent, 2))
	fmt.Fprintf(w, "Sharpe Ratio:  %s\n", metrics.FormatNumber(m.SharpeRatio, 2))

	if len(r.Notes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Observations")
		fmt.Fprintln(w, rule)
		for _, note := range r.Notes {
			fmt.Fprintf(w, "- %s\n", note)
		}
	}

	fmt.Fprintln(w)
}

// PrintTrades writes the trade ledger as an aligned table.
func PrintTrades(w io.Writer, r Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tACTION\tPRICE\tQTY\tFEE\tPNL\tPNL%\tREASON")
	for _, t := range r.Result.Trades {
		pnl, pct := "", ""
		if t.Action.IsClose() {
			pnl = r.money(t.PnL)
			pct = metrics.FormatPercent(t.PnLPercent, 2)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.4f\t%.6f\t%.2f\t%s\t%s\t%s\n",
			t.ID, msTime(t.Timestamp), t.Action, t.Price, t.Quantity, t.Fee, pnl, pct, t.Signal)
	}
	return tw.Flush()
}

// PrintSignals writes signals as an aligned table.
func PrintSignals(w io.Writer, signals []strategies.Signal) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tTIME\tSIDE\tPRICE\tREASON")
	for _, s := range signals {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.4f\t%s\n", s.Index, msTime(s.Timestamp), s.Side, s.Price, s.Reason)
	}
	return tw.Flush()
}

// PrintSweep writes ranked sweep results, one row per job.
func PrintSweep(w io.Writer, results []sweep.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTRATEGY\tRETURN\tTRADES\tWIN%\tPF\tMAX DD\tSHARPE\tRUN ID")
	for i, res := range results {
		name := res.Name
		if name == "" {
			name = string(res.Job.Kind)
		}
		if res.Error != "" {
			fmt.Fprintf(tw, "%d\t%s\terror: %s\t\t\t\t\t\t%s\n", i+1, name, res.Error, res.RunID)
			continue
		}
		m := res.Metrics
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n", i+1, name,
			metrics.FormatPercent(m.TotalReturnPercent, 2),
			m.TotalTrades,
			metrics.FormatPercent(m.WinRate, 1),
			m.ProfitFactor,
			metrics.FormatPercent(m.MaxDrawdownPercent, 2),
			metrics.FormatNumber(m.SharpeRatio, 2),
			res.RunID)
	}
	return tw.Flush()
}

func sortedKeys(p strategies.Params) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
