package indicators

import (
	"fmt"

	"github.com/rustyeddy/quantlab/market"
)

// DefaultRSIPeriod is the conventional RSI lookback.
const DefaultRSIPeriod = 14

// RelativeStrength is a streaming Relative Strength Index.
//
// Average gain and loss are the plain mean of the trailing period deltas,
// recomputed on every bar. This is not Wilder smoothing and downstream
// signals depend on the difference.
type RelativeStrength struct {
	period int

	gains  []float64
	losses []float64

	prev     float64
	havePrev bool
	deltas   int
}

func NewRSI(period int) *RelativeStrength {
	if period <= 0 {
		panic("RSI period must be > 0")
	}
	return &RelativeStrength{
		period: period,
		gains:  make([]float64, 0, period),
		losses: make([]float64, 0, period),
	}
}

func (r *RelativeStrength) Name() string { return fmt.Sprintf("RSI(%d)", r.period) }

// Warmup counts bars: period deltas need period+1 closes.
func (r *RelativeStrength) Warmup() int { return r.period + 1 }

func (r *RelativeStrength) Reset() {
	r.gains = r.gains[:0]
	r.losses = r.losses[:0]
	r.prev = 0
	r.havePrev = false
	r.deltas = 0
}

func (r *RelativeStrength) Update(b market.Bar) { r.Add(b.Close) }

func (r *RelativeStrength) Add(x float64) {
	if !r.havePrev {
		r.prev = x
		r.havePrev = true
		return
	}

	change := x - r.prev
	r.prev = x

	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else if change < 0 {
		loss = -change
	}

	r.gains = push(r.gains, gain, r.period)
	r.losses = push(r.losses, loss, r.period)
	r.deltas++
}

func (r *RelativeStrength) Ready() bool {
	return len(r.gains) >= r.period
}

func (r *RelativeStrength) Value() float64 {
	if !r.Ready() {
		return 0
	}
	// The first reading sums oldest-first, later readings newest-first.
	total := sum
	if r.deltas == r.period {
		total = sumForward
	}
	avgGain := total(r.gains) / float64(r.period)
	avgLoss := total(r.losses) / float64(r.period)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// RSI returns the RSI series. Slots before index period are missing.
func RSI(bars []market.Bar, period int) Series {
	if period <= 0 {
		return NewSeries(len(bars))
	}
	return fold(NewRSI(period), bars)
}

// push appends x to a window capped at n, dropping the oldest value.
func push(window []float64, x float64, n int) []float64 {
	if len(window) == n {
		copy(window, window[1:])
		window = window[:n-1]
	}
	return append(window, x)
}

func sumForward(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}
