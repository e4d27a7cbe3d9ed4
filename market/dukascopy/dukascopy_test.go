package dukascopy

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz/lzma"
)

type rawTick struct {
	ms       uint32
	ask, bid uint32
	av, bv   float32
}

func encode(t *testing.T, ticks ...rawTick) []byte {
	t.Helper()

	var raw bytes.Buffer
	for _, tk := range ticks {
		for _, v := range []uint32{tk.ms, tk.ask, tk.bid, math.Float32bits(tk.av), math.Float32bits(tk.bv)} {
			require.NoError(t, binary.Write(&raw, binary.BigEndian, v))
		}
	}

	var out bytes.Buffer
	w, err := lzma.NewWriter(&out)
	require.NoError(t, err)
	_, err = w.Write(raw.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return out.Bytes()
}

var hour0 = time.Date(2026, time.January, 5, 13, 0, 0, 0, time.UTC)

func TestHourURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://datafeed.dukascopy.com/datafeed/EURUSD/2026/00/05/13h_ticks.bi5",
		HourURL(DefaultBaseURL, "eurusd", hour0))
	assert.Equal(t, "http://x/USDJPY/2025/11/31/00h_ticks.bi5",
		HourURL("http://x/", "USDJPY", time.Date(2025, time.December, 31, 0, 30, 0, 0, time.UTC)))
}

func TestPointValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1e5, PointValue("EURUSD"))
	assert.Equal(t, 1e3, PointValue("usdjpy"))
}

func TestDecode(t *testing.T) {
	t.Parallel()

	data := encode(t,
		rawTick{ms: 0, ask: 110002, bid: 110000, av: 1.5, bv: 2},
		rawTick{ms: 61_000, ask: 110012, bid: 110008, av: 0.5, bv: 0.25},
	)
	ticks, err := Decode(bytes.NewReader(data), hour0.Add(20*time.Minute), 1e5)
	require.NoError(t, err)
	require.Len(t, ticks, 2)

	assert.Equal(t, hour0.UnixMilli(), ticks[0].Timestamp, "offsets count from the top of the hour")
	assert.InDelta(t, 1.10002, ticks[0].Ask, 1e-12)
	assert.InDelta(t, 1.10000, ticks[0].Bid, 1e-12)
	assert.InDelta(t, 1.10001, ticks[0].Mid(), 1e-12)
	assert.Equal(t, 1.5, ticks[0].AskVolume)
	assert.Equal(t, hour0.UnixMilli()+61_000, ticks[1].Timestamp)
	assert.Equal(t, 0.25, ticks[1].BidVolume)

	ticks, err = Decode(bytes.NewReader(nil), hour0, 1e5)
	require.NoError(t, err)
	assert.Empty(t, ticks)

	_, err = Decode(bytes.NewReader(bytes.Repeat([]byte{0xff}, 32)), hour0, 1e5)
	assert.Error(t, err, "invalid lzma properties")
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	ms := hour0.UnixMilli()
	ticks := []Tick{
		{Timestamp: ms, Ask: 1.2, Bid: 1.0, AskVolume: 1, BidVolume: 1},
		{Timestamp: ms + 60_000, Ask: 1.5, Bid: 1.3, AskVolume: 1},
		{Timestamp: ms + 120_000, Ask: 0.9, Bid: 0.7, BidVolume: 2},
		{Timestamp: ms + 16*60_000, Ask: 1.05, Bid: 1.05},
	}

	bars := Aggregate(ticks, 15*time.Minute)
	require.Len(t, bars, 2)
	assert.Equal(t, ms, bars[0].Timestamp)
	assert.InDelta(t, 1.1, bars[0].Open, 1e-12)
	assert.InDelta(t, 1.4, bars[0].High, 1e-12)
	assert.InDelta(t, 0.8, bars[0].Low, 1e-12)
	assert.InDelta(t, 0.8, bars[0].Close, 1e-12)
	assert.Equal(t, 5.0, bars[0].Volume)
	assert.Equal(t, ms+15*60_000, bars[1].Timestamp)
	assert.True(t, bars[1].Valid())

	hourly := Aggregate(ticks, time.Hour)
	require.Len(t, hourly, 1)
	assert.InDelta(t, 1.05, hourly[0].Close, 1e-12)

	assert.Nil(t, Aggregate(ticks, 0))
}

func TestParseInterval(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]time.Duration{
		"1m":  time.Minute,
		"15m": 15 * time.Minute,
		"4h":  4 * time.Hour,
		"1d":  24 * time.Hour,
	} {
		got, err := ParseInterval(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "x", "0h", "-1h", "d"} {
		_, err := ParseInterval(bad)
		assert.Error(t, err, bad)
	}
}

func TestFetch(t *testing.T) {
	t.Parallel()

	files := map[string][]byte{
		"/EURUSD/2026/00/05/13h_ticks.bi5": encode(t,
			rawTick{ms: 1000, ask: 110002, bid: 110000},
			rawTick{ms: 2000, ask: 110004, bid: 110002}),
		"/EURUSD/2026/00/05/14h_ticks.bi5": {},
		"/EURUSD/2026/00/05/16h_ticks.bi5": encode(t, rawTick{ms: 0, ask: 110100, bid: 110100}),
	}
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: srv.Client(), Workers: 2}
	ticks, st, err := c.Fetch(context.Background(), "EURUSD", hour0.Add(10*time.Minute), hour0.Add(4*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, FetchStats{Hours: 4, Missing: 1, Ticks: 3}, st)
	assert.Equal(t, int32(4), calls.Load())
	require.Len(t, ticks, 3)
	assert.Equal(t, hour0.UnixMilli()+1000, ticks[0].Timestamp)
	assert.Equal(t, hour0.Add(3*time.Hour).UnixMilli(), ticks[2].Timestamp)

	bars := Aggregate(ticks, time.Hour)
	require.Len(t, bars, 2)
	assert.InDelta(t, 1.10003, bars[0].Close, 1e-12)

	one, err := c.FetchHour(context.Background(), "EURUSD", hour0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, one)
}

func TestFetchErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: srv.Client(), Workers: 1}
	_, _, err := c.Fetch(context.Background(), "EURUSD", hour0, hour0.Add(2*time.Hour))
	assert.ErrorContains(t, err, "http status 500")

	_, _, err = c.Fetch(context.Background(), "EURUSD", hour0, hour0)
	assert.ErrorContains(t, err, "empty range")
}
