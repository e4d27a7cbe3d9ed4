package market

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCSV(t *testing.T) {
	t.Parallel()

	in := `Date,Open,High,Low,Close,Vol
2024-01-03,101,103,100,102,2000
2024-01-02,100,102,99,101,1000
2024-01-02,1,1,1,1,1
2024-01-04,"102",104,101,103,
2024-01-05,bad,104,101,103,10
2024-01-06,103,102,101,103,10
`
	bars, err := LoadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, int64(1704153600000), bars[0].Timestamp)
	assert.Equal(t, 101.0, bars[0].Close, "first row for a duplicate timestamp wins after sort")
	assert.Equal(t, 102.0, bars[1].Close)
	assert.Equal(t, 0.0, bars[2].Volume, "missing volume loads as zero")
	assert.NoError(t, Validate(bars))
}

func TestLoadCSVMissingColumn(t *testing.T) {
	t.Parallel()

	_, err := LoadCSV(strings.NewReader("time,open,high,low\n1,1,1,1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"close"`)
}

func TestLoadCSVNoValidRows(t *testing.T) {
	t.Parallel()

	_, err := LoadCSV(strings.NewReader("ts,o,h,l,c\n0,1,1,1,1\n"))
	assert.ErrorIs(t, err, ErrNoValidBars)
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()

	t.Run("row arrays in seconds", func(t *testing.T) {
		t.Parallel()

		in := `[[1700000060,"10","11","9","10.5","5"],[1700000000,10,11,9,10,0]]`
		bars, err := LoadJSON(strings.NewReader(in))
		require.NoError(t, err)
		require.Len(t, bars, 2)
		assert.Equal(t, int64(1700000000000), bars[0].Timestamp)
		assert.Equal(t, 10.5, bars[1].Close)
		assert.Equal(t, 5.0, bars[1].Volume)
	})

	t.Run("objects with aliases", func(t *testing.T) {
		t.Parallel()

		in := `[{"ts": 1700000000000, "o": 1, "h": 2, "l": 0.5, "c": 1.5},
		        {"Time": "2023-11-14T22:14:20Z", "Open": 1.5, "High": 2, "Low": 1, "Close": 1.8, "volume": 3}]`
		bars, err := LoadJSON(strings.NewReader(in))
		require.NoError(t, err)
		require.Len(t, bars, 2)
		assert.Equal(t, 1.5, bars[0].Close)
		assert.Equal(t, 3.0, bars[1].Volume)
	})

	t.Run("not an array", func(t *testing.T) {
		t.Parallel()

		_, err := LoadJSON(strings.NewReader(`{"close": 1}`))
		assert.Error(t, err)
	})
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "bars.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("timestamp,open,high,low,close\n1700000000,1,2,1,2\n"), 0o644))

	bars, err := LoadFile(csvPath)
	require.NoError(t, err)
	assert.Len(t, bars, 1)

	txtPath := filepath.Join(dir, "bars.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("x"), 0o644))
	_, err = LoadFile(txtPath)
	assert.Error(t, err)
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int64
	}{
		{"1700000000", 1700000000000},
		{"1700000000000", 1700000000000},
		{"2024-01-02", 1704153600000},
		{"2024-01-02 00:00:01", 1704153601000},
		{"", 0},
		{"yesterday", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseTimestamp(tt.in), tt.in)
	}
}
