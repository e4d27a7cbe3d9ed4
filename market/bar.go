// Package market holds the OHLCV bar type shared by every stage of the
// backtest pipeline, plus the loaders that turn files into validated series.
package market

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Bar is one OHLCV observation. Timestamp is milliseconds since the epoch.
type Bar struct {
	Timestamp int64   `json:"timestamp" yaml:"timestamp"`
	Open      float64 `json:"open" yaml:"open"`
	High      float64 `json:"high" yaml:"high"`
	Low       float64 `json:"low" yaml:"low"`
	Close     float64 `json:"close" yaml:"close"`
	Volume    float64 `json:"volume" yaml:"volume"`
}

// Time returns the bar open time in UTC.
func (b Bar) Time() time.Time {
	return time.UnixMilli(b.Timestamp).UTC()
}

// BodyHigh is the top of the candle body.
func (b Bar) BodyHigh() float64 { return math.Max(b.Open, b.Close) }

// BodyLow is the bottom of the candle body.
func (b Bar) BodyLow() float64 { return math.Min(b.Open, b.Close) }

// Valid reports whether the bar has a positive timestamp, finite prices and
// a consistent OHLC envelope.
func (b Bar) Valid() bool {
	if b.Timestamp <= 0 {
		return false
	}
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.High >= b.Low &&
		b.High >= b.Open &&
		b.High >= b.Close &&
		b.Low <= b.Open &&
		b.Low <= b.Close
}

var (
	ErrEmptySeries = errors.New("market: empty bar series")
	ErrNotSorted   = errors.New("market: timestamps not strictly increasing")
	ErrInvalidBar  = errors.New("market: invalid bar")
)

// Validate checks the series invariants the backtest core assumes but does
// not enforce itself.
func Validate(bars []Bar) error {
	if len(bars) == 0 {
		return ErrEmptySeries
	}
	for i, b := range bars {
		if !b.Valid() {
			return fmt.Errorf("%w at index %d: %+v", ErrInvalidBar, i, b)
		}
		if i > 0 && b.Timestamp <= bars[i-1].Timestamp {
			return fmt.Errorf("%w at index %d (%d <= %d)", ErrNotSorted, i, b.Timestamp, bars[i-1].Timestamp)
		}
	}
	return nil
}

// Closes extracts the close prices.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Stats is a quick summary of a loaded series.
type Stats struct {
	Count    int       `json:"count"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	MinClose float64   `json:"minClose"`
	MaxClose float64   `json:"maxClose"`
	AvgClose float64   `json:"avgClose"`
}

// Summarize returns Stats for bars, or the zero value when bars is empty.
func Summarize(bars []Bar) Stats {
	if len(bars) == 0 {
		return Stats{}
	}

	s := Stats{
		Count:    len(bars),
		Start:    bars[0].Time(),
		End:      bars[len(bars)-1].Time(),
		MinClose: math.Inf(1),
		MaxClose: math.Inf(-1),
	}
	sum := 0.0
	for _, b := range bars {
		s.MinClose = math.Min(s.MinClose, b.Close)
		s.MaxClose = math.Max(s.MaxClose, b.Close)
		sum += b.Close
	}
	s.AvgClose = sum / float64(len(bars))
	return s
}
