// Package backtest simulates one position at a time against a bar series
// driven by strategy signals.
package backtest

import (
	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/strategies"
)

// state is threaded through the bars by value. Nothing outside one Run
// ever sees it.
type state struct {
	cash   float64
	pos    Position
	lastID int
	trades []Trade
	equity []EquityPoint
}

// Run replays bars and signals through the engine.
//
// Only the first signal for a given bar index is honored. Equity for a bar
// is recorded before that bar's signal is acted on. Signals that do not fit
// the current position are ignored. Any position left open after the last
// bar is closed at its close, without slippage.
//
// Run never fails: bad numbers in the bars flow through into the result.
func Run(bars []market.Bar, signals []strategies.Signal, cfg Config) Result {
	bySignal := make(map[int]strategies.Signal, len(signals))
	for _, s := range signals {
		if _, ok := bySignal[s.Index]; !ok {
			bySignal[s.Index] = s
		}
	}

	st := state{
		cash:   cfg.InitialCapital,
		trades: []Trade{},
		equity: make([]EquityPoint, 0, len(bars)),
	}
	for i, bar := range bars {
		sig, ok := bySignal[i]
		var sp *strategies.Signal
		if ok {
			sp = &sig
		}
		st = step(st, bar, sp, cfg)
	}
	if len(bars) > 0 {
		st = closeAtEnd(st, bars[len(bars)-1], cfg)
	}

	return Result{
		InitialCapital: cfg.InitialCapital,
		FinalCapital:   st.cash,
		Trades:         st.trades,
		EquityCurve:    st.equity,
		Config:         cfg,
	}
}

// step marks the position to the bar and then applies sig, if any.
func step(st state, bar market.Bar, sig *strategies.Signal, cfg Config) state {
	st.equity = append(st.equity, EquityPoint{
		Timestamp: bar.Timestamp,
		Equity:    markToMarket(st, bar.Close),
		Price:     bar.Close,
	})
	if sig == nil {
		return st
	}

	switch {
	case sig.Side == strategies.Buy && st.pos.State == Flat:
		return open(st, bar, Long, sig.Reason, cfg)
	case sig.Side == strategies.Buy && st.pos.State == Short:
		return closeShort(st, bar, bar.Close*(1+cfg.Slippage), sig.Reason, cfg)
	case sig.Side == strategies.Sell && st.pos.State == Long:
		return closeLong(st, bar, bar.Close*(1-cfg.Slippage), sig.Reason, cfg)
	case sig.Side == strategies.Sell && st.pos.State == Flat && cfg.AllowShort:
		return open(st, bar, Short, sig.Reason, cfg)
	}
	return st
}

// markToMarket values a short symmetrically around its entry price.
func markToMarket(st state, price float64) float64 {
	switch st.pos.State {
	case Long:
		return st.cash + st.pos.Quantity*price
	case Short:
		return st.cash + st.pos.Quantity*(2*st.pos.EntryPrice-price)
	}
	return st.cash
}

// open commits PositionSize of cash. The fee is paid out of the committed
// amount. A long takes the whole commitment out of cash; a short only pays
// the fee since margin is not modeled.
func open(st state, bar market.Bar, side PositionState, reason string, cfg Config) state {
	exec := bar.Close * (1 + cfg.Slippage)
	typ, action := strategies.Buy, OpenLong
	if side == Short {
		exec = bar.Close * (1 - cfg.Slippage)
		typ, action = strategies.Sell, OpenShort
	}

	committed := st.cash * cfg.PositionSize
	fee := committed * cfg.Commission
	qty := (committed - fee) / exec

	if side == Long {
		st.cash -= committed
	} else {
		st.cash -= fee
	}
	st.pos = Position{
		State:          side,
		Quantity:       qty,
		EntryPrice:     exec,
		EntryTimestamp: bar.Timestamp,
	}

	st.lastID++
	st.trades = append(st.trades, Trade{
		ID:        st.lastID,
		Type:      typ,
		Action:    action,
		Timestamp: bar.Timestamp,
		Price:     exec,
		Quantity:  qty,
		Fee:       fee,
		Signal:    reason,
	})
	return st
}

func closeLong(st state, bar market.Bar, exec float64, reason string, cfg Config) state {
	p := st.pos
	value := p.Quantity * exec
	fee := value * cfg.Commission
	pnl := value - fee - p.Quantity*p.EntryPrice

	st.cash += value - fee
	return closed(st, bar, strategies.Sell, CloseLong, exec, fee, pnl, reason)
}

func closeShort(st state, bar market.Bar, exec float64, reason string, cfg Config) state {
	p := st.pos
	fee := p.Quantity * exec * cfg.Commission
	pnl := p.Quantity*(p.EntryPrice-exec) - fee

	st.cash += p.Quantity*p.EntryPrice + pnl
	return closed(st, bar, strategies.Buy, CloseShort, exec, fee, pnl, reason)
}

func closed(st state, bar market.Bar, typ strategies.Side, action Action, exec, fee, pnl float64, reason string) state {
	p := st.pos
	st.lastID++
	st.trades = append(st.trades, Trade{
		ID:            st.lastID,
		Type:          typ,
		Action:        action,
		Timestamp:     bar.Timestamp,
		Price:         exec,
		Quantity:      p.Quantity,
		Fee:           fee,
		Signal:        reason,
		PnL:           pnl,
		PnLPercent:    pnl / (p.Quantity * p.EntryPrice) * 100,
		HoldingPeriod: bar.Timestamp - p.EntryTimestamp,
	})
	st.pos = Position{}
	return st
}

// closeAtEnd force-closes at the raw last close and overwrites the last
// equity point with the resulting cash.
func closeAtEnd(st state, last market.Bar, cfg Config) state {
	switch st.pos.State {
	case Long:
		st = closeLong(st, last, last.Close, EndOfBacktest, cfg)
	case Short:
		st = closeShort(st, last, last.Close, EndOfBacktest, cfg)
	default:
		return st
	}
	if n := len(st.equity); n > 0 {
		st.equity[n-1].Equity = st.cash
	}
	return st
}
