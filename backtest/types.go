package backtest

import (
	"github.com/rustyeddy/quantlab/strategies"
)

// EndOfBacktest tags trades closed because the bars ran out.
const EndOfBacktest = "EndOfBacktest"

// PositionState is the engine's position state.
type PositionState int

const (
	Flat PositionState = iota
	Long
	Short
)

func (s PositionState) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "NONE"
	}
}

// Position is the single open position of a run, if any.
type Position struct {
	State          PositionState
	Quantity       float64
	EntryPrice     float64
	EntryTimestamp int64
}

// Action says what a trade did to the position.
type Action string

const (
	OpenLong   Action = "OPEN_LONG"
	CloseLong  Action = "CLOSE_LONG"
	OpenShort  Action = "OPEN_SHORT"
	CloseShort Action = "CLOSE_SHORT"
)

// IsClose reports whether a closes a position.
func (a Action) IsClose() bool {
	return a == CloseLong || a == CloseShort
}

// Trade is one ledger entry. Opening trades carry zero PnL and no
// holding period.
type Trade struct {
	ID            int             `json:"id"`
	Type          strategies.Side `json:"type"`
	Action        Action          `json:"action"`
	Timestamp     int64           `json:"timestamp"`
	Price         float64         `json:"price"`
	Quantity      float64         `json:"quantity"`
	Fee           float64         `json:"fee"`
	Signal        string          `json:"signal"`
	PnL           float64         `json:"pnl"`
	PnLPercent    float64         `json:"pnlPercent"`
	HoldingPeriod int64           `json:"holdingPeriod"` // ms
}

// EquityPoint is the marked-to-market equity at one bar's close.
type EquityPoint struct {
	Timestamp int64   `json:"timestamp"`
	Equity    float64 `json:"equity"`
	Price     float64 `json:"price"`
}

// Result is everything a run produces.
type Result struct {
	InitialCapital float64       `json:"initialCapital"`
	FinalCapital   float64       `json:"finalCapital"`
	Trades         []Trade       `json:"trades"`
	EquityCurve    []EquityPoint `json:"equityCurve"`
	Config         Config        `json:"config"`
}
