package store

import (
	"context"
	"fmt"

	"github.com/rustyeddy/quantlab/market"
)

// Series identifies a stored bar series.
type Series struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Count    int    `json:"count"`
	First    int64  `json:"first"`
	Last     int64  `json:"last"`
}

// ImportBars writes bars under symbol/interval in one transaction. Bars
// already stored at the same timestamp are replaced.
func (s *SQLite) ImportBars(ctx context.Context, symbol, interval string, bars []market.Bar) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars
		(symbol, interval, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, b := range bars {
		if _, err := stmt.ExecContext(ctx, symbol, interval, b.Timestamp, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return 0, fmt.Errorf("store: insert bar %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(bars), nil
}

// LoadBars returns the bars for symbol/interval with timestamps in
// [from, to], oldest first. A zero to means no upper bound.
func (s *SQLite) LoadBars(ctx context.Context, symbol, interval string, from, to int64) ([]market.Bar, error) {
	if to == 0 {
		to = 1<<63 - 1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND interval = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC`, symbol, interval, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Bar
	for rows.Next() {
		var b market.Bar
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: bars for %s/%s", ErrNotFound, symbol, interval)
	}
	return out, nil
}

// ListSeries reports every stored symbol/interval pair.
func (s *SQLite) ListSeries(ctx context.Context) ([]Series, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, interval, COUNT(*), MIN(timestamp), MAX(timestamp)
		FROM bars
		GROUP BY symbol, interval
		ORDER BY symbol, interval`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Series
	for rows.Next() {
		var ser Series
		if err := rows.Scan(&ser.Symbol, &ser.Interval, &ser.Count, &ser.First, &ser.Last); err != nil {
			return nil, err
		}
		out = append(out, ser)
	}
	return out, rows.Err()
}

// DeleteSeries removes every bar of symbol/interval.
func (s *SQLite) DeleteSeries(ctx context.Context, symbol, interval string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bars WHERE symbol = ? AND interval = ?`, symbol, interval)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
