package indicators

import (
	"testing"

	"github.com/rustyeddy/quantlab/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rangeBars(closes ...float64) []market.Bar {
	bars := barsFromCloses(closes...)
	for i := range bars {
		bars[i].High += 1
		bars[i].Low -= 1
	}
	return bars
}

func TestADXSteadyTrend(t *testing.T) {
	t.Parallel()

	up := rangeBars(1, 2, 3, 4, 5, 6, 7, 8)
	s := ADXSeries(up, 3)
	assertSeries(t, []any{nil, nil, nil, nil, nil, 100.0, 100.0, 100.0}, s)

	a := NewADX(3)
	for _, b := range up {
		a.Update(b)
	}
	assert.InDelta(t, 50, a.PlusDI(), eps, "+DM 1 over TR 2")
	assert.Zero(t, a.MinusDI())
	assert.Equal(t, 100.0, a.DX())

	down := rangeBars(8, 7, 6, 5, 4, 3, 2, 1)
	v, ok := ADXSeries(down, 3).At(7)
	require.True(t, ok)
	assert.Equal(t, 100.0, v, "direction does not matter, only strength")
}

func TestADXFlat(t *testing.T) {
	t.Parallel()

	s := ADXSeries(rangeBars(5, 5, 5, 5, 5, 5, 5), 2)
	v, ok := s.At(3)
	require.True(t, ok)
	assert.Zero(t, v)
	_, ok = s.At(2)
	assert.False(t, ok)
}

func TestADXStreaming(t *testing.T) {
	t.Parallel()

	bars := rangeBars(10, 11, 10.5, 12, 11.5, 13, 12, 14, 13.5, 15, 14, 16)
	batch := ADXSeries(bars, 3)

	a := NewADX(3)
	assert.Equal(t, "ADX(3)", a.Name())
	assert.Equal(t, 6, a.Warmup())
	for i, b := range bars {
		a.Update(b)
		want, ok := batch.At(i)
		assert.Equal(t, ok, a.Ready(), "bar %d", i)
		if ok {
			assert.InDelta(t, want, a.Value(), eps)
			assert.GreaterOrEqual(t, a.Value(), 0.0)
			assert.LessOrEqual(t, a.Value(), 100.0)
		}
	}

	a.Reset()
	assert.False(t, a.Ready())
	assert.Zero(t, a.Value())
	assert.Equal(t, len(bars), ADXSeries(bars, 0).Len())
}
