package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rustyeddy/quantlab/backtest"
	"github.com/rustyeddy/quantlab/metrics"
	"github.com/rustyeddy/quantlab/strategies"
)

var (
	TradesHeader  = []string{"trade_id", "time", "type", "action", "price", "quantity", "fee", "pnl", "pnl_percent", "holding_ms", "signal"}
	EquityHeader  = []string{"time", "timestamp", "equity", "price", "drawdown", "drawdown_percent"}
	SignalsHeader = []string{"index", "time", "side", "price", "reason"}
)

// WriteTradesCSV writes the trade ledger with a header row. Opening trades
// leave the pnl columns empty.
func WriteTradesCSV(w io.Writer, trades []backtest.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TradesHeader); err != nil {
		return err
	}
	for _, t := range trades {
		pnl, pct, hold := "", "", ""
		if t.Action.IsClose() {
			pnl, pct = f(t.PnL), f(t.PnLPercent)
			hold = strconv.FormatInt(t.HoldingPeriod, 10)
		}
		if err := cw.Write([]string{
			strconv.Itoa(t.ID),
			msTime(t.Timestamp),
			t.Type.String(),
			string(t.Action),
			f(t.Price),
			f(t.Quantity),
			f(t.Fee),
			pnl,
			pct,
			hold,
			t.Signal,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEquityCSV writes one row per bar with the running drawdown.
func WriteEquityCSV(w io.Writer, curve []backtest.EquityPoint) error {
	dd := metrics.Drawdown(curve)

	cw := csv.NewWriter(w)
	if err := cw.Write(EquityHeader); err != nil {
		return err
	}
	for i, p := range curve {
		if err := cw.Write([]string{
			msTime(p.Timestamp),
			strconv.FormatInt(p.Timestamp, 10),
			f(p.Equity),
			f(p.Price),
			f(dd.Curve[i].Drawdown),
			f(dd.Curve[i].DrawdownPercent),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSignalsCSV writes signals with a header row.
func WriteSignalsCSV(w io.Writer, signals []strategies.Signal) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SignalsHeader); err != nil {
		return err
	}
	for _, s := range signals {
		if err := cw.Write([]string{
			strconv.Itoa(s.Index),
			msTime(s.Timestamp),
			s.Side.String(),
			f(s.Price),
			s.Reason,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
