package indicators

import (
	"fmt"

	"github.com/rustyeddy/quantlab/market"
)

// SimpleMA is a streaming Simple Moving Average of closes.
type SimpleMA struct {
	period int
	window []float64
}

// NewMA creates a new Simple Moving Average indicator with the given period.
func NewMA(period int) *SimpleMA {
	if period <= 0 {
		panic("MA period must be > 0")
	}
	return &SimpleMA{
		period: period,
		window: make([]float64, 0, period),
	}
}

func (m *SimpleMA) Name() string { return fmt.Sprintf("SMA(%d)", m.period) }
func (m *SimpleMA) Warmup() int  { return m.period }
func (m *SimpleMA) Reset()       { m.window = m.window[:0] }

func (m *SimpleMA) Update(b market.Bar) { m.Add(b.Close) }

// Add pushes a raw value, keeping only the last period values.
func (m *SimpleMA) Add(x float64) {
	if len(m.window) == m.period {
		copy(m.window, m.window[1:])
		m.window = m.window[:m.period-1]
	}
	m.window = append(m.window, x)
}

func (m *SimpleMA) Ready() bool {
	return len(m.window) >= m.period
}

func (m *SimpleMA) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return sum(m.window) / float64(m.period)
}

// ExponentialMA is a streaming Exponential Moving Average, seeded with the
// SMA of the first period values.
type ExponentialMA struct {
	period     int
	multiplier float64
	ema        float64
	count      int
	warmup     []float64
}

// NewEMA creates a new Exponential Moving Average indicator with the given period.
func NewEMA(period int) *ExponentialMA {
	if period <= 0 {
		panic("EMA period must be > 0")
	}
	return &ExponentialMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *ExponentialMA) Name() string { return fmt.Sprintf("EMA(%d)", e.period) }
func (e *ExponentialMA) Warmup() int  { return e.period }

func (e *ExponentialMA) Reset() {
	e.ema = 0
	e.count = 0
	e.warmup = e.warmup[:0]
}

func (e *ExponentialMA) Update(b market.Bar) { e.Add(b.Close) }

// Add pushes a raw value. MACD uses this to smooth its own line.
func (e *ExponentialMA) Add(x float64) {
	if e.count < e.period {
		e.warmup = append(e.warmup, x)
		e.count++
		if e.count == e.period {
			e.ema = sum(e.warmup) / float64(e.period)
		}
		return
	}
	e.ema = (x-e.ema)*e.multiplier + e.ema
}

func (e *ExponentialMA) Ready() bool {
	return e.count >= e.period
}

func (e *ExponentialMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.ema
}

// SMA returns the simple moving average of closes. Slots before period-1 are missing.
func SMA(bars []market.Bar, period int) Series {
	if period <= 0 {
		return NewSeries(len(bars))
	}
	return fold(NewMA(period), bars)
}

// EMA returns the exponential moving average of closes. The value at
// period-1 equals SMA at the same index.
func EMA(bars []market.Bar, period int) Series {
	if period <= 0 {
		return NewSeries(len(bars))
	}
	return fold(NewEMA(period), bars)
}

// MAType selects the moving average used by crossover strategies.
type MAType string

const (
	MATypeSMA MAType = "SMA"
	MATypeEMA MAType = "EMA"
)

// MA dispatches to SMA or EMA.
func MA(bars []market.Bar, period int, typ MAType) Series {
	if typ == MATypeEMA {
		return EMA(bars, period)
	}
	return SMA(bars, period)
}

// sum adds newest-first so window means match a trailing lookback
// summed from the current bar backwards, bit for bit.
func sum(xs []float64) float64 {
	total := 0.0
	for i := len(xs) - 1; i >= 0; i-- {
		total += xs[i]
	}
	return total
}
