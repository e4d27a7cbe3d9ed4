// Package indicators provides technical analysis indicators for backtesting.
//
// Every indicator exists in two forms: a streaming type that consumes one
// closed bar at a time, and a batch function that folds the streaming type
// over a bar sequence and returns a Series aligned to the input.
package indicators

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/rustyeddy/quantlab/market"
)

// Indicator computes a single streaming value from bars.
// It is deterministic and holds no state outside the value itself.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)" or "RSI(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next *closed* bar and updates internal state.
	Update(b market.Bar)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current indicator value, or 0 when !Ready().
	Value() float64
}

// Series is an indicator output aligned index-for-index with its input bars.
// Slots inside the warm-up window are missing.
type Series struct {
	values []float64
	ok     []bool
}

// NewSeries returns a series of n missing slots.
func NewSeries(n int) Series {
	return Series{
		values: make([]float64, n),
		ok:     make([]bool, n),
	}
}

// SeriesOf builds a fully populated series, mostly useful in tests.
func SeriesOf(vals ...float64) Series {
	s := NewSeries(len(vals))
	for i, v := range vals {
		s.Set(i, v)
	}
	return s
}

// Len is always the length of the input bar sequence.
func (s Series) Len() int { return len(s.values) }

// At returns the value at i and whether it is present.
// Out-of-range indices are reported as missing.
func (s Series) At(i int) (float64, bool) {
	if i < 0 || i >= len(s.values) || !s.ok[i] {
		return 0, false
	}
	return s.values[i], true
}

// Ready reports whether slot i holds a value.
func (s Series) Ready(i int) bool {
	_, ok := s.At(i)
	return ok
}

// Set stores v at i.
func (s Series) Set(i int, v float64) {
	s.values[i] = v
	s.ok[i] = true
}

// Pair returns the values at i-1 and i when both are present.
func (s Series) Pair(i int) (prev, curr float64, ok bool) {
	p, ok1 := s.At(i - 1)
	c, ok2 := s.At(i)
	return p, c, ok1 && ok2
}

// MarshalJSON encodes missing slots, and non-finite values JSON cannot
// carry, as null.
func (s Series) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('[')
	for i := range s.values {
		if i > 0 {
			b.WriteByte(',')
		}
		if !s.ok[i] || math.IsNaN(s.values[i]) || math.IsInf(s.values[i], 0) {
			b.WriteString("null")
			continue
		}
		b.WriteString(strconv.FormatFloat(s.values[i], 'g', -1, 64))
	}
	b.WriteByte(']')
	return b.Bytes(), nil
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *Series) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NewSeries(len(raw))
	for i, v := range raw {
		if v != nil {
			s.Set(i, *v)
		}
	}
	return nil
}

// fold runs ind across bars, recording Value() wherever the indicator is ready.
func fold(ind Indicator, bars []market.Bar) Series {
	out := NewSeries(len(bars))
	for i, b := range bars {
		ind.Update(b)
		if ind.Ready() {
			out.Set(i, ind.Value())
		}
	}
	return out
}
