package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/quantlab/market"
)

// Bands holds the three Bollinger lines, aligned to the input bars.
type Bands struct {
	Upper  Series `json:"upper"`
	Middle Series `json:"middle"`
	Lower  Series `json:"lower"`
}

// BollingerBands is a streaming Bollinger Bands indicator. Value returns
// the middle line; Upper and Lower return the envelope.
type BollingerBands struct {
	period int
	mult   float64
	window []float64
}

func NewBollinger(period int, mult float64) *BollingerBands {
	if period <= 0 {
		panic("Bollinger period must be > 0")
	}
	return &BollingerBands{
		period: period,
		mult:   mult,
		window: make([]float64, 0, period),
	}
}

func (b *BollingerBands) Name() string {
	return fmt.Sprintf("BOLL(%d,%g)", b.period, b.mult)
}

func (b *BollingerBands) Warmup() int { return b.period }
func (b *BollingerBands) Reset()      { b.window = b.window[:0] }

func (b *BollingerBands) Update(bar market.Bar) {
	b.window = push(b.window, bar.Close, b.period)
}

func (b *BollingerBands) Ready() bool {
	return len(b.window) >= b.period
}

func (b *BollingerBands) Value() float64 {
	if !b.Ready() {
		return 0
	}
	return sum(b.window) / float64(b.period)
}

// StdDev is the population standard deviation of the window.
func (b *BollingerBands) StdDev() float64 {
	if !b.Ready() {
		return 0
	}
	mean := b.Value()
	ss := 0.0
	for i := len(b.window) - 1; i >= 0; i-- {
		d := b.window[i] - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(b.period))
}

func (b *BollingerBands) Upper() float64 {
	return b.Value() + b.mult*b.StdDev()
}

func (b *BollingerBands) Lower() float64 {
	return b.Value() - b.mult*b.StdDev()
}

// Bollinger returns the bands for closes. The middle line equals SMA(period).
func Bollinger(bars []market.Bar, period int, mult float64) Bands {
	out := Bands{
		Upper:  NewSeries(len(bars)),
		Middle: NewSeries(len(bars)),
		Lower:  NewSeries(len(bars)),
	}
	if period <= 0 {
		return out
	}

	bb := NewBollinger(period, mult)
	for i, bar := range bars {
		bb.Update(bar)
		if !bb.Ready() {
			continue
		}
		mid := bb.Value()
		width := mult * bb.StdDev()
		out.Middle.Set(i, mid)
		out.Upper.Set(i, mid+width)
		out.Lower.Set(i, mid-width)
	}
	return out
}
