package trend

import (
	"math"
	"sort"

	"github.com/rustyeddy/quantlab/indicators"
	"github.com/rustyeddy/quantlab/market"
)

const (
	// minAdaptiveBars is the shortest series Adaptive will measure.
	minAdaptiveBars = 20

	atrPeriod = 14
)

// Volatility describes bar-over-bar moves, all in percent and rounded to
// three decimals.
type Volatility struct {
	MedianAbsReturn float64 `json:"medianAbsReturn"`
	MeanAbsReturn   float64 `json:"meanAbsReturn"`
	StdReturn       float64 `json:"stdReturn"`
	ATRPercent      float64 `json:"atrPercent"`
}

// AdaptiveResult is a suggested Options plus the measurements behind it.
type AdaptiveResult struct {
	Options    Options     `json:"options"`
	DataLength int         `json:"dataLength"`
	Stats      *Volatility `json:"stats,omitempty"` // nil below 20 bars
}

// Adaptive suggests Detect options from the series' own volatility: the
// sideways band is half the median absolute move, at least 0.1%, and the
// minimum length grows by one per thousand bars between 2 and 10.
// Series shorter than 20 bars get DefaultOptions.
func Adaptive(bars []market.Bar) AdaptiveResult {
	n := len(bars)
	res := AdaptiveResult{Options: DefaultOptions(), DataLength: n}
	if n < minAdaptiveBars {
		return res
	}

	returns := make([]float64, 0, n-1)
	abs := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		r := (bars[i].Close - bars[i-1].Close) / bars[i-1].Close * 100
		returns = append(returns, r)
		abs = append(abs, math.Abs(r))
	}

	median := medianOf(abs)
	meanAbs := mean(abs)

	meanRet := mean(returns)
	variance := 0.0
	for _, r := range returns {
		variance += (r - meanRet) * (r - meanRet)
	}
	std := math.Sqrt(variance / float64(len(returns)))

	// ATR here is a plain mean of true ranges from bar 14 on, relative to
	// the mean close of every bar after the first.
	trSum, trCount, closeSum := 0.0, 0, 0.0
	for i := 1; i < n; i++ {
		if i >= atrPeriod {
			trSum += indicators.TrueRange(bars[i], bars[i-1])
			trCount++
		}
		closeSum += bars[i].Close
	}
	avgATR := 0.0
	if trCount > 0 {
		avgATR = trSum / float64(trCount)
	}
	avgClose := closeSum / float64(n-1)
	atrPct := 0.0
	if avgClose > 0 {
		atrPct = avgATR / avgClose * 100
	}

	res.Options = Options{
		SidewaysThreshold: math.Max(0.1, round(median*0.5, 1)),
		MinLength:         min(10, max(2, int(math.Round(float64(n)/1000)))),
	}
	res.Stats = &Volatility{
		MedianAbsReturn: round(median, 3),
		MeanAbsReturn:   round(meanAbs, 3),
		StdReturn:       round(std, 3),
		ATRPercent:      round(atrPct, 3),
	}
	return res
}

func mean(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func medianOf(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
