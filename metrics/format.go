package metrics

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Ratio is a float that may legitimately be infinite. JSON has no
// infinity, so it is written as the strings "Infinity" and "-Infinity".
type Ratio float64

func (r Ratio) Float64() float64 { return float64(r) }

func (r Ratio) IsInf() bool { return math.IsInf(float64(r), 0) }

func (r Ratio) MarshalJSON() ([]byte, error) {
	f := float64(r)
	switch {
	case math.IsInf(f, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Infinity"`), nil
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

func (r *Ratio) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case `"Infinity"`:
		*r = Ratio(math.Inf(1))
		return nil
	case `"-Infinity"`:
		*r = Ratio(math.Inf(-1))
		return nil
	case `"NaN"`:
		*r = Ratio(math.NaN())
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("metrics: invalid ratio %s", b)
	}
	*r = Ratio(f)
	return nil
}

func (r Ratio) String() string { return FormatNumber(float64(r), 2) }

// FormatHoldingPeriod renders d as "N.N hours" under a day and "N.N days"
// otherwise. Zero renders as "-".
func FormatHoldingPeriod(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	hours := d.Hours()
	if hours < 24 {
		return fmt.Sprintf("%.1f hours", hours)
	}
	return fmt.Sprintf("%.1f days", hours/24)
}

// FormatNumber prints v with fixed decimals, "∞" for infinities and "-"
// for NaN.
func FormatNumber(v float64, decimals int) string {
	switch {
	case math.IsNaN(v):
		return "-"
	case math.IsInf(v, 1):
		return "∞"
	case math.IsInf(v, -1):
		return "-∞"
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// FormatPercent is FormatNumber with a percent sign.
func FormatPercent(v float64, decimals int) string {
	s := FormatNumber(v, decimals)
	if s == "-" {
		return s
	}
	return s + "%"
}

// FormatCurrency prints v with two decimals, thousands separators and a
// leading symbol, e.g. -$1,234.50.
func FormatCurrency(v float64, symbol string) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return FormatNumber(v, 2)
	}
	s := strconv.FormatFloat(math.Abs(v), 'f', 2, 64)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := symbol + b.String() + "." + frac
	if v < 0 {
		return "-" + out
	}
	return out
}
