package api

import (
	"github.com/rustyeddy/quantlab/backtest"
	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/metrics"
	"github.com/rustyeddy/quantlab/strategies"
	"github.com/rustyeddy/quantlab/sweep"
	"github.com/rustyeddy/quantlab/trend"
)

// DataSource picks the bars a request runs on: inline bars, or a series
// from the bar store.
type DataSource struct {
	Bars     []market.Bar `json:"bars,omitempty"`
	Symbol   string       `json:"symbol,omitempty"`
	Interval string       `json:"interval,omitempty"`
	From     int64        `json:"from,omitempty"`
	To       int64        `json:"to,omitempty"`
}

// IndicatorSpec names one indicator and its parameters. Unset periods take
// the usual defaults (20, RSI 14, MACD 12/26/9, 2 standard deviations).
type IndicatorSpec struct {
	Type   string  `json:"type"` // sma, ema, rsi, bollinger, macd, atr
	Name   string  `json:"name,omitempty"`
	Period int     `json:"period,omitempty"`
	StdDev float64 `json:"stdDev,omitempty"`
	Fast   int     `json:"fast,omitempty"`
	Slow   int     `json:"slow,omitempty"`
	Signal int     `json:"signal,omitempty"`
}

// IndicatorsRequest is the body of POST /api/v1/indicators.
type IndicatorsRequest struct {
	DataSource
	Indicators []IndicatorSpec `json:"indicators" binding:"required,min=1"`
}

// IndicatorsResponse maps each indicator's name to its output: a Series,
// Bands or MACDResult.
type IndicatorsResponse struct {
	Timestamps []int64        `json:"timestamps"`
	Indicators map[string]any `json:"indicators"`
}

// StrategyRequest is the body of POST /api/v1/signals and /api/v1/backtest.
type StrategyRequest struct {
	DataSource
	Strategy strategies.Kind   `json:"strategy" binding:"required"`
	Params   strategies.Params `json:"params,omitempty"`
	Config   *backtest.Config  `json:"config,omitempty"`
}

// SignalsResponse is the reply to POST /api/v1/signals.
type SignalsResponse struct {
	Strategy string              `json:"strategy"`
	Signals  []strategies.Signal `json:"signals"`
}

// BacktestResponse is the reply to POST /api/v1/backtest.
type BacktestResponse struct {
	RunID    string              `json:"runId"`
	Strategy string              `json:"strategy"`
	Signals  []strategies.Signal `json:"signals"`
	Result   backtest.Result     `json:"result"`
	Metrics  metrics.Metrics     `json:"metrics"`
}

// SweepRequest is the body of POST /api/v1/sweep.
type SweepRequest struct {
	DataSource
	Strategy strategies.Kind   `json:"strategy" binding:"required"`
	Params   strategies.Params `json:"params,omitempty"`
	Axes     map[string][]any  `json:"axes"`
	Config   *backtest.Config  `json:"config,omitempty"`
	RankBy   string            `json:"rankBy,omitempty"`
	Top      int               `json:"top,omitempty"`
}

// SweepResponse is the reply to POST /api/v1/sweep, best first.
type SweepResponse struct {
	Total   int            `json:"total"`
	RankBy  sweep.RankBy   `json:"rankBy"`
	Results []sweep.Result `json:"results"`
}

// TrendsRequest is the body of POST /api/v1/trends. Options default to the
// adaptive suggestion when Adaptive is set, and to trend.DefaultOptions
// otherwise.
type TrendsRequest struct {
	DataSource
	Options  *trend.Options `json:"options,omitempty"`
	Adaptive bool           `json:"adaptive,omitempty"`
	Merge    bool           `json:"merge,omitempty"`
}

// TrendsResponse is the reply to POST /api/v1/trends.
type TrendsResponse struct {
	Options  trend.Options         `json:"options"`
	Adaptive *trend.AdaptiveResult `json:"adaptive,omitempty"`
	Segments []trend.Segment       `json:"segments"`
	Stats    trend.Stats           `json:"stats"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
