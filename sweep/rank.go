package sweep

import (
	"fmt"
	"math"
	"sort"
)

// RankBy names the metric results are ordered by.
type RankBy string

const (
	ByReturn       RankBy = "return"
	BySharpe       RankBy = "sharpe"
	ByProfitFactor RankBy = "profitFactor"
	ByWinRate      RankBy = "winRate"
	ByDrawdown     RankBy = "drawdown"
)

// ParseRankBy resolves a ranking key. The empty string means ByReturn.
func ParseRankBy(s string) (RankBy, error) {
	switch r := RankBy(s); r {
	case "":
		return ByReturn, nil
	case ByReturn, BySharpe, ByProfitFactor, ByWinRate, ByDrawdown:
		return r, nil
	}
	return "", fmt.Errorf("sweep: unknown rank key %q", s)
}

// score is higher-is-better. NaN sorts last.
func (r RankBy) score(res Result) float64 {
	m := res.Metrics
	var v float64
	switch r {
	case BySharpe:
		v = m.SharpeRatio
	case ByProfitFactor:
		v = m.ProfitFactor.Float64()
	case ByWinRate:
		v = m.WinRate
	case ByDrawdown:
		v = -m.MaxDrawdownPercent
	default:
		v = m.TotalReturnPercent
	}
	if math.IsNaN(v) {
		return math.Inf(-1)
	}
	return v
}

// Rank sorts results best first in place. Failed jobs go last and ties
// keep job order.
func Rank(results []Result, by RankBy) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if (a.Error == "") != (b.Error == "") {
			return a.Error == ""
		}
		return by.score(a) > by.score(b)
	})
}
