package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/quantlab/market"
)

// ADX is a streaming Average Directional Index (Wilder). Value returns the
// ADX line; PlusDI and MinusDI expose the directional indicators behind it.
//
// The first N periods (bar-to-bar deltas) seed the smoothed TR, +DM and -DM.
// The ADX itself is seeded with the mean of the first N DX values, so the
// first value lands on bar 2N-1.
type ADX struct {
	n int

	prev    market.Bar
	hasPrev bool
	periods int
	ready   bool

	sumTR, sumPlusDM, sumMinusDM float64
	smTR, smPlusDM, smMinusDM    float64

	adx, plusDI, minusDI, lastDX float64
	dxSum                        float64
	dxCount                      int
}

func NewADX(period int) *ADX {
	if period <= 0 {
		panic("ADX period must be > 0")
	}
	return &ADX{n: period}
}

func (a *ADX) Name() string { return fmt.Sprintf("ADX(%d)", a.n) }
func (a *ADX) Warmup() int  { return 2 * a.n }
func (a *ADX) Ready() bool  { return a.ready }

func (a *ADX) Reset() { *a = ADX{n: a.n} }

func (a *ADX) Value() float64 {
	if !a.ready {
		return 0
	}
	return a.adx
}

func (a *ADX) PlusDI() float64  { return a.plusDI }
func (a *ADX) MinusDI() float64 { return a.minusDI }
func (a *ADX) DX() float64      { return a.lastDX }

func (a *ADX) Update(b market.Bar) {
	if !a.hasPrev {
		a.prev = b
		a.hasPrev = true
		return
	}

	tr := TrueRange(b, a.prev)
	up := b.High - a.prev.High
	down := a.prev.Low - b.Low
	a.prev = b

	var plusDM, minusDM float64
	if up > down && up > 0 {
		plusDM = up
	}
	if down > up && down > 0 {
		minusDM = down
	}

	a.periods++
	if a.periods <= a.n {
		a.sumTR += tr
		a.sumPlusDM += plusDM
		a.sumMinusDM += minusDM
		if a.periods == a.n {
			a.smTR, a.smPlusDM, a.smMinusDM = a.sumTR, a.sumPlusDM, a.sumMinusDM
			a.plusDI, a.minusDI = directional(a.smPlusDM, a.smMinusDM, a.smTR)
			a.lastDX = directionalIndex(a.plusDI, a.minusDI)
			a.dxSum, a.dxCount = a.lastDX, 1
			a.seed()
		}
		return
	}

	nf := float64(a.n)
	a.smTR = a.smTR - a.smTR/nf + tr
	a.smPlusDM = a.smPlusDM - a.smPlusDM/nf + plusDM
	a.smMinusDM = a.smMinusDM - a.smMinusDM/nf + minusDM
	a.plusDI, a.minusDI = directional(a.smPlusDM, a.smMinusDM, a.smTR)
	a.lastDX = directionalIndex(a.plusDI, a.minusDI)

	if a.ready {
		a.adx = (a.adx*(nf-1) + a.lastDX) / nf
		return
	}
	a.dxSum += a.lastDX
	a.dxCount++
	a.seed()
}

// seed turns the DX sum into the first ADX once N DX values are in.
func (a *ADX) seed() {
	if a.dxCount >= a.n {
		a.adx = a.dxSum / float64(a.n)
		a.ready = true
	}
}

func directional(smPlusDM, smMinusDM, smTR float64) (plusDI, minusDI float64) {
	if smTR <= 0 {
		return 0, 0
	}
	return 100 * smPlusDM / smTR, 100 * smMinusDM / smTR
}

func directionalIndex(plusDI, minusDI float64) float64 {
	den := plusDI + minusDI
	if den <= 0 {
		return 0
	}
	return 100 * math.Abs(plusDI-minusDI) / den
}

// ADXSeries returns the Wilder ADX over bars. Slots before index 2*period-1
// are missing.
func ADXSeries(bars []market.Bar, period int) Series {
	if period <= 0 {
		return NewSeries(len(bars))
	}
	return fold(NewADX(period), bars)
}
