// Package dukascopy downloads hourly tick files from the Dukascopy datafeed
// and turns them into OHLCV bars.
//
// Each hour is an LZMA compressed .bi5 file of 20-byte big-endian records:
// milliseconds into the hour, ask and bid in integer points, then ask and
// bid volume as float32.
package dukascopy

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/rustyeddy/quantlab/market"
	"github.com/ulikunitz/xz/lzma"
	"golang.org/x/sync/errgroup"
)

const DefaultBaseURL = "https://datafeed.dukascopy.com/datafeed"

const recordSize = 20

// Tick is one quote.
type Tick struct {
	Timestamp int64   `json:"timestamp"` // epoch ms
	Ask       float64 `json:"ask"`
	Bid       float64 `json:"bid"`
	AskVolume float64 `json:"askVolume"`
	BidVolume float64 `json:"bidVolume"`
}

func (t Tick) Mid() float64 { return (t.Ask + t.Bid) / 2 }

// PointValue is the divisor from stored integer points to prices: 1000 for
// JPY crosses, 100000 otherwise.
func PointValue(symbol string) float64 {
	if strings.Contains(strings.ToUpper(symbol), "JPY") {
		return 1e3
	}
	return 1e5
}

// HourURL is the tick file for the hour starting at t. Months are zero based
// in the path.
func HourURL(base, symbol string, t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s/%s/%04d/%02d/%02d/%02dh_ticks.bi5",
		strings.TrimRight(base, "/"), strings.ToUpper(symbol),
		t.Year(), int(t.Month())-1, t.Day(), t.Hour())
}

// Decode reads one compressed hour of ticks. An empty body means the hour
// had no quotes.
func Decode(r io.Reader, hour time.Time, point float64) ([]Tick, error) {
	br := bufio.NewReader(r)
	if _, err := br.Peek(1); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("dukascopy: %w", err)
	}

	zr, err := lzma.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("dukascopy: open lzma: %w", err)
	}

	start := hour.UTC().Truncate(time.Hour).UnixMilli()
	var (
		ticks []Tick
		rec   [recordSize]byte
	)
	for {
		_, err := io.ReadFull(zr, rec[:])
		if err == io.EOF {
			return ticks, nil
		}
		if err != nil {
			return nil, fmt.Errorf("dukascopy: read record %d: %w", len(ticks), err)
		}
		ticks = append(ticks, Tick{
			Timestamp: start + int64(binary.BigEndian.Uint32(rec[0:4])),
			Ask:       float64(binary.BigEndian.Uint32(rec[4:8])) / point,
			Bid:       float64(binary.BigEndian.Uint32(rec[8:12])) / point,
			AskVolume: float64(math.Float32frombits(binary.BigEndian.Uint32(rec[12:16]))),
			BidVolume: float64(math.Float32frombits(binary.BigEndian.Uint32(rec[16:20]))),
		})
	}
}

// Aggregate buckets ticks into bars of width interval using the mid price.
// Volume is ask plus bid volume. Ticks must be in time order.
func Aggregate(ticks []Tick, interval time.Duration) []market.Bar {
	width := interval.Milliseconds()
	if width <= 0 {
		return nil
	}

	var bars []market.Bar
	for _, t := range ticks {
		bucket := t.Timestamp - t.Timestamp%width
		px := t.Mid()
		vol := t.AskVolume + t.BidVolume

		if n := len(bars); n > 0 && bars[n-1].Timestamp == bucket {
			b := &bars[n-1]
			b.High = math.Max(b.High, px)
			b.Low = math.Min(b.Low, px)
			b.Close = px
			b.Volume += vol
			continue
		}
		bars = append(bars, market.Bar{Timestamp: bucket, Open: px, High: px, Low: px, Close: px, Volume: vol})
	}
	return bars
}

// ParseInterval accepts Go durations plus a "d" suffix for days, e.g.
// "15m", "4h", "1d".
func ParseInterval(s string) (time.Duration, error) {
	var (
		d   time.Duration
		err error
	)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		d, err = time.ParseDuration(days + "h")
		d *= 24
	} else {
		d, err = time.ParseDuration(s)
	}
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("dukascopy: invalid interval %q", s)
	}
	return d, nil
}

// Client downloads tick hours.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	// Workers bounds concurrent downloads. Zero means one per CPU.
	Workers int
}

// NewClient returns a Client for the public datafeed.
func NewClient() *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		HTTP:    &http.Client{Timeout: 45 * time.Second},
	}
}

var errMissing = errors.New("dukascopy: hour not found")

// FetchHour downloads and decodes one hour. A 404 yields no ticks and no
// error.
func (c *Client) FetchHour(ctx context.Context, symbol string, hour time.Time) ([]Tick, error) {
	ticks, err := c.fetchHour(ctx, symbol, hour)
	if errors.Is(err, errMissing) {
		return nil, nil
	}
	return ticks, err
}

func (c *Client) fetchHour(ctx context.Context, symbol string, hour time.Time) ([]Tick, error) {
	url := HourURL(c.BaseURL, symbol, hour)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "quantlab")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errMissing
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("dukascopy: GET %s: http status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("dukascopy: GET %s: %w", url, err)
	}
	ticks, err := Decode(bytes.NewReader(body), hour, PointValue(symbol))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	return ticks, nil
}

// FetchStats counts what a Fetch saw.
type FetchStats struct {
	Hours   int `json:"hours"`
	Missing int `json:"missing"`
	Ticks   int `json:"ticks"`
}

// Fetch downloads every hour in [from, to) on a bounded worker pool and
// returns the ticks in time order. Missing hours are skipped; any other
// failure cancels the remaining downloads.
func (c *Client) Fetch(ctx context.Context, symbol string, from, to time.Time) ([]Tick, FetchStats, error) {
	from = from.UTC().Truncate(time.Hour)
	to = to.UTC()

	var hours []time.Time
	for t := from; t.Before(to); t = t.Add(time.Hour) {
		hours = append(hours, t)
	}
	st := FetchStats{Hours: len(hours)}
	if len(hours) == 0 {
		return nil, st, fmt.Errorf("dukascopy: empty range %s to %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	workers := c.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	perHour := make([][]Tick, len(hours))
	missing := make([]bool, len(hours))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, h := range hours {
		g.Go(func() error {
			ticks, err := c.fetchHour(gctx, symbol, h)
			if errors.Is(err, errMissing) {
				missing[i] = true
				log.Printf("dukascopy: %s %s missing", symbol, h.Format("2006-01-02T15"))
				return nil
			}
			if err != nil {
				return err
			}
			perHour[i] = ticks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, st, err
	}

	var out []Tick
	for i, ticks := range perHour {
		if missing[i] {
			st.Missing++
		}
		out = append(out, ticks...)
	}
	st.Ticks = len(out)
	return out, st, nil
}
