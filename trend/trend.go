// Package trend splits a bar series into up, down and sideways segments.
package trend

import (
	"math"

	"github.com/rustyeddy/quantlab/market"
)

// Type is the direction of a segment.
type Type string

const (
	Up       Type = "up"
	Down     Type = "down"
	Sideways Type = "sideways"
)

// Segment is a run of consecutive bars moving the same way. Neighboring
// segments share their boundary bar.
type Segment struct {
	Type           Type    `json:"type"`
	StartIndex     int     `json:"startIndex"`
	EndIndex       int     `json:"endIndex"`
	StartTimestamp int64   `json:"startTimestamp"`
	EndTimestamp   int64   `json:"endTimestamp"`
	StartPrice     float64 `json:"startPrice"`
	EndPrice       float64 `json:"endPrice"`
	Length         int     `json:"length"`
}

// ChangePercent is the close-to-close move over the segment.
func (s Segment) ChangePercent() float64 {
	return (s.EndPrice - s.StartPrice) / s.StartPrice * 100
}

// Options tunes Detect.
type Options struct {
	// MinLength is the fewest bars, boundaries included, a segment needs
	// to be reported.
	MinLength int `json:"minLength" yaml:"min-length"`

	// SidewaysThreshold is the bar-over-bar percent move that still
	// counts as sideways.
	SidewaysThreshold float64 `json:"sidewaysThreshold" yaml:"sideways-threshold"`
}

// DefaultOptions is a minimum length of 2 and a 1% sideways band.
func DefaultOptions() Options {
	return Options{MinLength: 2, SidewaysThreshold: 1}
}

func classify(prev, curr, threshold float64) Type {
	change := (curr - prev) / prev * 100
	switch {
	case change > threshold:
		return Up
	case change < -threshold:
		return Down
	}
	return Sideways
}

// Detect classifies every bar against the one before it and groups equal
// classifications into segments. Segments shorter than MinLength are
// dropped.
func Detect(bars []market.Bar, opts Options) []Segment {
	if len(bars) < 2 {
		return nil
	}

	var out []Segment
	emit := func(typ Type, start, end int) {
		n := end - start + 1
		if n < opts.MinLength {
			return
		}
		out = append(out, Segment{
			Type:           typ,
			StartIndex:     start,
			EndIndex:       end,
			StartTimestamp: bars[start].Timestamp,
			EndTimestamp:   bars[end].Timestamp,
			StartPrice:     bars[start].Close,
			EndPrice:       bars[end].Close,
			Length:         n,
		})
	}

	current := classify(bars[0].Close, bars[1].Close, opts.SidewaysThreshold)
	start := 0
	for i := 2; i < len(bars); i++ {
		t := classify(bars[i-1].Close, bars[i].Close, opts.SidewaysThreshold)
		if t == current {
			continue
		}
		emit(current, start, i-1)
		current = t
		start = i - 1
	}
	emit(current, start, len(bars)-1)
	return out
}

// Merge joins a segment with the next one when they have the same type and
// the next starts on the bar right after this one ends.
func Merge(segs []Segment) []Segment {
	if len(segs) < 2 {
		return segs
	}

	out := make([]Segment, 0, len(segs))
	cur := segs[0]
	for _, next := range segs[1:] {
		if next.Type == cur.Type && next.StartIndex == cur.EndIndex+1 {
			cur.EndIndex = next.EndIndex
			cur.EndTimestamp = next.EndTimestamp
			cur.EndPrice = next.EndPrice
			cur.Length = cur.EndIndex - cur.StartIndex + 1
			continue
		}
		out = append(out, cur)
		cur = next
	}
	return append(out, cur)
}

// Stats counts segments by type.
type Stats struct {
	Total     int     `json:"total"`
	Up        int     `json:"up"`
	Down      int     `json:"down"`
	Sideways  int     `json:"sideways"`
	AvgLength float64 `json:"avgLength"`
}

// Summarize counts segments and averages their length to one decimal.
func Summarize(segs []Segment) Stats {
	st := Stats{Total: len(segs)}
	if len(segs) == 0 {
		return st
	}

	total := 0
	for _, s := range segs {
		total += s.Length
		switch s.Type {
		case Up:
			st.Up++
		case Down:
			st.Down++
		case Sideways:
			st.Sideways++
		}
	}
	st.AvgLength = round(float64(total)/float64(len(segs)), 1)
	return st
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
