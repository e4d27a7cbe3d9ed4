package market

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrNoValidBars is returned when a source parses but yields no usable bar.
var ErrNoValidBars = errors.New("market: no valid bars found")

// column aliases accepted in CSV headers and JSON object keys.
var fieldAliases = map[string][]string{
	"timestamp": {"timestamp", "time", "date", "datetime", "ts"},
	"open":      {"open", "o", "openprice"},
	"high":      {"high", "h", "highprice"},
	"low":       {"low", "l", "lowprice"},
	"close":     {"close", "c", "closeprice"},
	"volume":    {"volume", "vol", "v"},
}

var requiredFields = []string{"timestamp", "open", "high", "low", "close"}

var nan = math.NaN()

// LoadFile loads bars from a .csv or .json file.
func LoadFile(path string) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(f)
	case ".json":
		return LoadJSON(f)
	default:
		return nil, fmt.Errorf("market: unsupported file type %q (want .csv or .json)", filepath.Ext(path))
	}
}

// LoadCSV reads a headered CSV. Rows that fail validation are dropped, the
// result is sorted by timestamp and later duplicates of a timestamp are ignored.
func LoadCSV(r io.Reader) ([]Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("market: csv has no header")
	}
	if err != nil {
		return nil, fmt.Errorf("market: read csv header: %w", err)
	}

	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var bars []Bar
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("market: read csv: %w", err)
		}
		if len(row) < len(header) {
			continue
		}

		get := func(field string) string {
			idx, ok := cols[field]
			if !ok {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		b := Bar{
			Timestamp: ParseTimestamp(get("timestamp")),
			Open:      parseFloat(get("open")),
			High:      parseFloat(get("high")),
			Low:       parseFloat(get("low")),
			Close:     parseFloat(get("close")),
			Volume:    parseVolume(get("volume")),
		}
		if b.Valid() {
			bars = append(bars, b)
		}
	}

	return normalize(bars)
}

// LoadJSON reads a JSON array whose elements are either
// [timestamp, open, high, low, close, volume, ...] rows or objects keyed by
// any of the accepted aliases. Numbers may be encoded as strings.
func LoadJSON(r io.Reader) ([]Bar, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var items []json.RawMessage
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("market: parse json: %w", err)
	}

	bars := make([]Bar, 0, len(items))
	for i, raw := range items {
		b, err := decodeJSONBar(raw)
		if err != nil {
			return nil, fmt.Errorf("market: json item %d: %w", i, err)
		}
		if b.Valid() {
			bars = append(bars, b)
		}
	}

	return normalize(bars)
}

func decodeJSONBar(raw json.RawMessage) (Bar, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var row []any
		if err := unmarshalNumbers(raw, &row); err != nil {
			return Bar{}, err
		}
		at := func(i int) string {
			if i >= len(row) {
				return ""
			}
			return scalarString(row[i])
		}
		return Bar{
			Timestamp: ParseTimestamp(at(0)),
			Open:      parseFloat(at(1)),
			High:      parseFloat(at(2)),
			Low:       parseFloat(at(3)),
			Close:     parseFloat(at(4)),
			Volume:    parseVolume(at(5)),
		}, nil
	}

	var obj map[string]any
	if err := unmarshalNumbers(raw, &obj); err != nil {
		return Bar{}, err
	}
	lower := make(map[string]any, len(obj))
	for k, v := range obj {
		lower[strings.ToLower(strings.TrimSpace(k))] = v
	}
	get := func(field string) string {
		for _, alias := range fieldAliases[field] {
			if v, ok := lower[alias]; ok && v != nil {
				return scalarString(v)
			}
		}
		return ""
	}
	return Bar{
		Timestamp: ParseTimestamp(get("timestamp")),
		Open:      parseFloat(get("open")),
		High:      parseFloat(get("high")),
		Low:       parseFloat(get("low")),
		Close:     parseFloat(get("close")),
		Volume:    parseVolume(get("volume")),
	}, nil
}

func unmarshalNumbers(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func mapColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int)
	for field, aliases := range fieldAliases {
		for i, h := range header {
			name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
			if contains(aliases, name) {
				cols[field] = i
				break
			}
		}
	}
	for _, field := range requiredFields {
		if _, ok := cols[field]; !ok {
			return nil, fmt.Errorf("market: csv missing required column %q", field)
		}
	}
	return cols, nil
}

// normalize sorts by timestamp and keeps the first bar of any duplicate
// timestamp so the series is strictly increasing.
func normalize(bars []Bar) ([]Bar, error) {
	if len(bars) == 0 {
		return nil, ErrNoValidBars
	}
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp < bars[j].Timestamp
	})

	out := bars[:1]
	for _, b := range bars[1:] {
		if b.Timestamp == out[len(out)-1].Timestamp {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// ParseTimestamp converts a numeric or date string into epoch milliseconds.
// Numbers below 1e10 are taken as seconds. It returns 0 when s cannot be parsed.
func ParseTimestamp(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if n < 1e10 {
			return int64(n * 1000)
		}
		return int64(n)
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nan
	}
	return v
}

func parseVolume(s string) float64 {
	if strings.TrimSpace(s) == "" {
		return 0
	}
	v := parseFloat(s)
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
