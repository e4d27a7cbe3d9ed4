package indicators

import (
	"fmt"

	"github.com/rustyeddy/quantlab/market"
)

// MACDResult holds the three MACD series, aligned to the input bars.
type MACDResult struct {
	MACD      Series `json:"macd"`
	Signal    Series `json:"signal"`
	Histogram Series `json:"histogram"`
}

// MACDLine is a streaming MACD. Value returns the MACD line once both EMAs
// are ready. The signal line is an EMA of the MACD values, seeded by the
// SMA of the first signal-period of them.
type MACDLine struct {
	fast, slow, signal int

	fastEMA   *ExponentialMA
	slowEMA   *ExponentialMA
	signalEMA *ExponentialMA
}

func NewMACD(fast, slow, signal int) *MACDLine {
	if fast <= 0 || slow <= 0 || signal <= 0 {
		panic("MACD periods must be > 0")
	}
	return &MACDLine{
		fast:      fast,
		slow:      slow,
		signal:    signal,
		fastEMA:   NewEMA(fast),
		slowEMA:   NewEMA(slow),
		signalEMA: NewEMA(signal),
	}
}

func (m *MACDLine) Name() string {
	return fmt.Sprintf("MACD(%d,%d,%d)", m.fast, m.slow, m.signal)
}

func (m *MACDLine) Warmup() int {
	return max(m.fast, m.slow)
}

func (m *MACDLine) Reset() {
	m.fastEMA.Reset()
	m.slowEMA.Reset()
	m.signalEMA.Reset()
}

func (m *MACDLine) Update(b market.Bar) {
	m.fastEMA.Update(b)
	m.slowEMA.Update(b)
	if m.Ready() {
		m.signalEMA.Add(m.Value())
	}
}

func (m *MACDLine) Ready() bool {
	return m.fastEMA.Ready() && m.slowEMA.Ready()
}

func (m *MACDLine) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.fastEMA.Value() - m.slowEMA.Value()
}

func (m *MACDLine) SignalReady() bool { return m.signalEMA.Ready() }
func (m *MACDLine) Signal() float64   { return m.signalEMA.Value() }

// Histogram is (macd - signal) * 2.
func (m *MACDLine) Histogram() float64 {
	if !m.SignalReady() {
		return 0
	}
	return (m.Value() - m.Signal()) * 2
}

// MACD returns the MACD line, its signal and the histogram for closes.
func MACD(bars []market.Bar, fast, slow, signal int) MACDResult {
	out := MACDResult{
		MACD:      NewSeries(len(bars)),
		Signal:    NewSeries(len(bars)),
		Histogram: NewSeries(len(bars)),
	}
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return out
	}

	m := NewMACD(fast, slow, signal)
	for i, b := range bars {
		m.Update(b)
		if !m.Ready() {
			continue
		}
		out.MACD.Set(i, m.Value())
		if m.SignalReady() {
			out.Signal.Set(i, m.Signal())
			out.Histogram.Set(i, m.Histogram())
		}
	}
	return out
}
