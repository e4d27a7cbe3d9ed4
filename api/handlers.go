package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rustyeddy/quantlab/backtest"
	"github.com/rustyeddy/quantlab/indicators"
	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/metrics"
	"github.com/rustyeddy/quantlab/pkg/id"
	"github.com/rustyeddy/quantlab/store"
	"github.com/rustyeddy/quantlab/strategies"
	"github.com/rustyeddy/quantlab/sweep"
	"github.com/rustyeddy/quantlab/trend"
)

// maxSweepJobs caps the grid a single request may expand to.
const maxSweepJobs = 2000

// maxIndicatorPeriod bounds every lookback an indicator request may ask for.
const maxIndicatorPeriod = 500

var errNoStore = errors.New("no bar store configured, send bars inline")

// ListStrategies handles GET /api/v1/strategies
func (s *Server) ListStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, strategies.List())
}

// GetStrategy handles GET /api/v1/strategies/:kind
func (s *Server) GetStrategy(c *gin.Context) {
	info, err := strategies.Describe(strategies.Kind(c.Param("kind")))
	if err != nil {
		abort(c, http.StatusNotFound, "UNKNOWN_STRATEGY", err.Error())
		return
	}
	c.JSON(http.StatusOK, info)
}

// ListSeries handles GET /api/v1/series
func (s *Server) ListSeries(c *gin.Context) {
	if s.bars == nil {
		abort(c, http.StatusServiceUnavailable, "NO_STORE", errNoStore.Error())
		return
	}
	series, err := s.bars.ListSeries(c.Request.Context())
	if err != nil {
		abort(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	if series == nil {
		series = []store.Series{}
	}
	c.JSON(http.StatusOK, series)
}

// Indicators handles POST /api/v1/indicators
func (s *Server) Indicators(c *gin.Context) {
	var req IndicatorsRequest
	if !bind(c, &req) {
		return
	}
	bars, ok := s.loadBars(c, req.DataSource)
	if !ok {
		return
	}

	out := IndicatorsResponse{
		Timestamps: make([]int64, len(bars)),
		Indicators: make(map[string]any, len(req.Indicators)),
	}
	for i, b := range bars {
		out.Timestamps[i] = b.Timestamp
	}
	for _, spec := range req.Indicators {
		name, val, err := computeIndicator(bars, spec)
		if err != nil {
			abort(c, http.StatusBadRequest, "INVALID_INDICATOR", err.Error())
			return
		}
		out.Indicators[name] = val
	}
	c.JSON(http.StatusOK, out)
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func computeIndicator(bars []market.Bar, spec IndicatorSpec) (string, any, error) {
	if spec.Period < 0 || spec.Fast < 0 || spec.Slow < 0 || spec.Signal < 0 || spec.StdDev < 0 {
		return "", nil, fmt.Errorf("%s: periods and stdDev must be positive", spec.Type)
	}
	if max(spec.Period, spec.Fast, spec.Slow, spec.Signal) > maxIndicatorPeriod {
		return "", nil, fmt.Errorf("%s: periods must be at most %d", spec.Type, maxIndicatorPeriod)
	}
	typ := strings.ToLower(spec.Type)
	period := spec.Period
	var (
		name string
		val  any
	)
	switch typ {
	case "sma":
		period = orDefault(period, 20)
		name, val = fmt.Sprintf("SMA%d", period), indicators.SMA(bars, period)
	case "ema":
		period = orDefault(period, 20)
		name, val = fmt.Sprintf("EMA%d", period), indicators.EMA(bars, period)
	case "rsi":
		period = orDefault(period, indicators.DefaultRSIPeriod)
		name, val = fmt.Sprintf("RSI%d", period), indicators.RSI(bars, period)
	case "atr":
		period = orDefault(period, 14)
		name, val = fmt.Sprintf("ATR%d", period), indicators.ATRSeries(bars, period)
	case "adx":
		period = orDefault(period, 14)
		name, val = fmt.Sprintf("ADX%d", period), indicators.ADXSeries(bars, period)
	case "bollinger", "boll":
		period = orDefault(period, 20)
		mult := spec.StdDev
		if mult == 0 {
			mult = 2
		}
		name, val = fmt.Sprintf("BOLL%d", period), indicators.Bollinger(bars, period, mult)
	case "macd":
		fast, slow, sig := orDefault(spec.Fast, 12), orDefault(spec.Slow, 26), orDefault(spec.Signal, 9)
		name, val = fmt.Sprintf("MACD%d_%d_%d", fast, slow, sig), indicators.MACD(bars, fast, slow, sig)
	default:
		return "", nil, fmt.Errorf("unknown indicator type %q", spec.Type)
	}
	if spec.Name != "" {
		name = spec.Name
	}
	return name, val, nil
}

// Signals handles POST /api/v1/signals
func (s *Server) Signals(c *gin.Context) {
	var req StrategyRequest
	if !bind(c, &req) {
		return
	}
	strat, ok := newStrategy(c, req.Strategy, req.Params)
	if !ok {
		return
	}
	bars, ok := s.loadBars(c, req.DataSource)
	if !ok {
		return
	}

	signals := strat.GenerateSignals(bars)
	if signals == nil {
		signals = []strategies.Signal{}
	}
	c.JSON(http.StatusOK, SignalsResponse{Strategy: strat.Name(), Signals: signals})
}

// Backtest handles POST /api/v1/backtest
func (s *Server) Backtest(c *gin.Context) {
	var req StrategyRequest
	if !bind(c, &req) {
		return
	}
	strat, ok := newStrategy(c, req.Strategy, req.Params)
	if !ok {
		return
	}
	cfg, ok := s.backtestConfig(c, req.Config)
	if !ok {
		return
	}
	bars, ok := s.loadBars(c, req.DataSource)
	if !ok {
		return
	}

	signals := strat.GenerateSignals(bars)
	res := backtest.Run(bars, signals, cfg)
	if signals == nil {
		signals = []strategies.Signal{}
	}
	if res.Trades == nil {
		res.Trades = []backtest.Trade{}
	}
	c.JSON(http.StatusOK, BacktestResponse{
		RunID:    id.New(),
		Strategy: strat.Name(),
		Signals:  signals,
		Result:   res,
		Metrics:  metrics.Compute(res, s.cfg.Metrics.Options()...),
	})
}

// Sweep handles POST /api/v1/sweep
func (s *Server) Sweep(c *gin.Context) {
	var req SweepRequest
	if !bind(c, &req) {
		return
	}
	if _, err := strategies.ParseKind(string(req.Strategy)); err != nil {
		abort(c, http.StatusBadRequest, "UNKNOWN_STRATEGY", err.Error())
		return
	}
	by, err := sweep.ParseRankBy(req.RankBy)
	if err != nil {
		abort(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	cfg, ok := s.backtestConfig(c, req.Config)
	if !ok {
		return
	}

	if n := sweep.GridSize(req.Axes); n > maxSweepJobs {
		abort(c, http.StatusBadRequest, "SWEEP_TOO_LARGE",
			fmt.Sprintf("grid expands to %d jobs, limit is %d", n, maxSweepJobs))
		return
	}
	jobs := sweep.Grid(req.Strategy, req.Params, req.Axes, cfg)
	bars, ok := s.loadBars(c, req.DataSource)
	if !ok {
		return
	}

	results, err := sweep.Run(c.Request.Context(), bars, jobs, sweep.Options{
		Workers: s.cfg.Sweep.Workers,
		Metrics: s.cfg.Metrics.Options(),
	})
	if err != nil {
		abort(c, http.StatusServiceUnavailable, "CANCELLED", err.Error())
		return
	}
	sweep.Rank(results, by)
	if req.Top > 0 && req.Top < len(results) {
		results = results[:req.Top]
	}
	c.JSON(http.StatusOK, SweepResponse{Total: len(jobs), RankBy: by, Results: results})
}

// Trends handles POST /api/v1/trends
func (s *Server) Trends(c *gin.Context) {
	var req TrendsRequest
	if !bind(c, &req) {
		return
	}
	bars, ok := s.loadBars(c, req.DataSource)
	if !ok {
		return
	}

	var out TrendsResponse
	out.Options = s.cfg.Trend
	if req.Adaptive {
		ad := trend.Adaptive(bars)
		out.Adaptive = &ad
		out.Options = ad.Options
	}
	if req.Options != nil {
		out.Options = *req.Options
	}
	if out.Options.MinLength < 1 || out.Options.SidewaysThreshold < 0 {
		abort(c, http.StatusBadRequest, "INVALID_OPTIONS", "minLength must be >= 1 and sidewaysThreshold >= 0")
		return
	}

	segs := trend.Detect(bars, out.Options)
	if req.Merge {
		segs = trend.Merge(segs)
	}
	if segs == nil {
		segs = []trend.Segment{}
	}
	out.Segments = segs
	out.Stats = trend.Summarize(segs)
	c.JSON(http.StatusOK, out)
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		abort(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return false
	}
	return true
}

func newStrategy(c *gin.Context, kind strategies.Kind, params strategies.Params) (strategies.Strategy, bool) {
	strat, err := strategies.New(kind, params)
	switch {
	case errors.Is(err, strategies.ErrUnknownStrategy):
		abort(c, http.StatusBadRequest, "UNKNOWN_STRATEGY", err.Error())
		return nil, false
	case err != nil:
		abort(c, http.StatusBadRequest, "INVALID_PARAMS", err.Error())
		return nil, false
	}
	return strat, true
}

func (s *Server) backtestConfig(c *gin.Context, override *backtest.Config) (backtest.Config, bool) {
	cfg := s.cfg.Backtest
	if override != nil {
		cfg = *override
	}
	if err := cfg.Validate(); err != nil {
		abort(c, http.StatusBadRequest, "INVALID_CONFIG", err.Error())
		return cfg, false
	}
	return cfg, true
}

// loadBars resolves the request's bars and checks the series invariants.
func (s *Server) loadBars(c *gin.Context, src DataSource) ([]market.Bar, bool) {
	bars := src.Bars
	switch {
	case len(bars) > 0:
	case src.Symbol != "":
		if s.bars == nil {
			abort(c, http.StatusServiceUnavailable, "NO_STORE", errNoStore.Error())
			return nil, false
		}
		interval := src.Interval
		if interval == "" {
			interval = s.cfg.Data.Interval
		}
		var err error
		bars, err = s.bars.LoadBars(c.Request.Context(), src.Symbol, interval, src.From, src.To)
		if errors.Is(err, store.ErrNotFound) {
			abort(c, http.StatusNotFound, "NO_DATA", err.Error())
			return nil, false
		}
		if err != nil {
			abort(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
			return nil, false
		}
	default:
		abort(c, http.StatusBadRequest, "INVALID_REQUEST", "either bars or symbol is required")
		return nil, false
	}

	if err := market.Validate(bars); err != nil {
		abort(c, http.StatusBadRequest, "INVALID_BARS", err.Error())
		return nil, false
	}
	return bars, true
}
