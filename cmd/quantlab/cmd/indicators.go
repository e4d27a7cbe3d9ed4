package cmd

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/rustyeddy/quantlab/indicators"
	"github.com/rustyeddy/quantlab/market"
	"github.com/spf13/cobra"
)

type indicatorOptions struct {
	data dataFlags

	names  []string
	period    int
	rsiPeriod int
	stddev    float64
	fast   int
	slow   int
	signal int
	tail   int
}

func newIndicatorsCmd(root *rootOptions) *cobra.Command {
	o := &indicatorOptions{}

	cmd := &cobra.Command{
		Use:   "indicators",
		Short: "Compute indicators over a bar series as CSV",
		Long: `Indicators writes one CSV row per bar with the close and every requested
indicator. Bars still warming up have empty cells.

Indicators: sma, ema, rsi, bollinger, macd, atr, adx

Example:
  quantlab indicators --data btc.csv --ind sma,ema --period 20 --tail 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			o.data.apply(cfg)
			bars, _, err := loadBars(cmd.Context(), cfg.Data)
			if err != nil {
				return err
			}
			return writeIndicators(cmd, bars, o)
		},
	}

	o.data.register(cmd)
	cmd.Flags().StringSliceVar(&o.names, "ind", []string{"sma"}, "indicators to compute")
	cmd.Flags().IntVar(&o.period, "period", 20, "period for sma, ema, bollinger, atr and adx")
	cmd.Flags().IntVar(&o.rsiPeriod, "rsi-period", indicators.DefaultRSIPeriod, "rsi period")
	cmd.Flags().Float64Var(&o.stddev, "stddev", 2, "bollinger band width in standard deviations")
	cmd.Flags().IntVar(&o.fast, "fast", 12, "macd fast EMA")
	cmd.Flags().IntVar(&o.slow, "slow", 26, "macd slow EMA")
	cmd.Flags().IntVar(&o.signal, "signal", 9, "macd signal EMA")
	cmd.Flags().IntVar(&o.tail, "tail", 0, "only print the last N rows")
	return cmd
}

type column struct {
	name   string
	series indicators.Series
}

func indicatorColumns(bars []market.Bar, o *indicatorOptions) ([]column, error) {
	if o.period <= 0 || o.rsiPeriod <= 0 || o.fast <= 0 || o.slow <= 0 || o.signal <= 0 {
		return nil, fmt.Errorf("indicator periods must be positive")
	}
	if o.stddev <= 0 {
		return nil, fmt.Errorf("stddev must be positive")
	}

	var cols []column
	for _, name := range o.names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "sma":
			cols = append(cols, column{fmt.Sprintf("sma%d", o.period), indicators.SMA(bars, o.period)})
		case "ema":
			cols = append(cols, column{fmt.Sprintf("ema%d", o.period), indicators.EMA(bars, o.period)})
		case "rsi":
			cols = append(cols, column{fmt.Sprintf("rsi%d", o.rsiPeriod), indicators.RSI(bars, o.rsiPeriod)})
		case "atr":
			cols = append(cols, column{fmt.Sprintf("atr%d", o.period), indicators.ATRSeries(bars, o.period)})
		case "adx":
			cols = append(cols, column{fmt.Sprintf("adx%d", o.period), indicators.ADXSeries(bars, o.period)})
		case "bollinger", "boll":
			b := indicators.Bollinger(bars, o.period, o.stddev)
			cols = append(cols,
				column{"boll_upper", b.Upper},
				column{"boll_middle", b.Middle},
				column{"boll_lower", b.Lower})
		case "macd":
			m := indicators.MACD(bars, o.fast, o.slow, o.signal)
			cols = append(cols,
				column{"macd", m.MACD},
				column{"macd_signal", m.Signal},
				column{"macd_hist", m.Histogram})
		default:
			return nil, fmt.Errorf("unknown indicator %q", name)
		}
	}
	return cols, nil
}

func writeIndicators(cmd *cobra.Command, bars []market.Bar, o *indicatorOptions) error {
	cols, err := indicatorColumns(bars, o)
	if err != nil {
		return err
	}

	w := csv.NewWriter(cmd.OutOrStdout())
	header := []string{"time", "close"}
	for _, c := range cols {
		header = append(header, c.name)
	}
	if err := w.Write(header); err != nil {
		return err
	}

	start := 0
	if o.tail > 0 && o.tail < len(bars) {
		start = len(bars) - o.tail
	}
	for i := start; i < len(bars); i++ {
		row := []string{bars[i].Time().Format("2006-01-02T15:04:05Z"), strconv.FormatFloat(bars[i].Close, 'f', -1, 64)}
		for _, c := range cols {
			v, ok := c.series.At(i)
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
