package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/quantlab/market"
)

// ATR is a streaming Average True Range indicator
type ATR struct {
	period      int
	atr         float64
	count       int
	warmupSum   float64
	prevBar     market.Bar
	hasPrevious bool
}

// NewATR creates a new Average True Range indicator with the given period
func NewATR(period int) *ATR {
	if period <= 0 {
		panic("ATR period must be > 0")
	}
	return &ATR{
		period: period,
	}
}

func (a *ATR) Name() string {
	return fmt.Sprintf("ATR(%d)", a.period)
}

func (a *ATR) Warmup() int {
	// TR needs the previous bar
	return a.period + 1
}

func (a *ATR) Reset() {
	a.atr = 0
	a.count = 0
	a.warmupSum = 0
	a.hasPrevious = false
}

func (a *ATR) Update(b market.Bar) {
	if !a.hasPrevious {
		a.prevBar = b
		a.hasPrevious = true
		return
	}

	tr := TrueRange(b, a.prevBar)
	a.prevBar = b

	if a.count < a.period {
		a.warmupSum += tr
		a.count++
		if a.count == a.period {
			a.atr = a.warmupSum / float64(a.period)
		}
		return
	}

	// Wilder's smoothing
	a.atr = (a.atr*float64(a.period-1) + tr) / float64(a.period)
}

func (a *ATR) Ready() bool {
	return a.count >= a.period
}

func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	return a.atr
}

// ATRSeries returns Wilder ATR over bars. Slots before index period are missing.
func ATRSeries(bars []market.Bar, period int) Series {
	if period <= 0 {
		return NewSeries(len(bars))
	}
	return fold(NewATR(period), bars)
}

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(current, previous market.Bar) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)

	return math.Max(highLow, math.Max(highClose, lowClose))
}
