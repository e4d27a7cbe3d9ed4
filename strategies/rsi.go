package strategies

import (
	"fmt"

	"github.com/rustyeddy/quantlab/indicators"
	"github.com/rustyeddy/quantlab/market"
)

// RSIReversal buys when RSI climbs back through the oversold line and
// sells when it falls back through the overbought line.
type RSIReversal struct {
	Period     int
	Overbought float64
	Oversold   float64
}

func rsiInfo() Info {
	return Info{
		Key:         KindRSI,
		Name:        "RSI Overbought/Oversold",
		Description: "Buy when RSI crosses up through oversold, sell when it crosses down through overbought",
		Params: []ParamSpec{
			{Key: "period", Label: "RSI period", Type: "number", Min: 2, Max: 50, Default: 14},
			{Key: "overbought", Label: "Overbought", Type: "number", Min: 50, Max: 95, Default: 70},
			{Key: "oversold", Label: "Oversold", Type: "number", Min: 5, Max: 50, Default: 30},
		},
		Defaults: Params{"period": indicators.DefaultRSIPeriod, "overbought": 70, "oversold": 30},
	}
}

func newRSIReversal(p Params) (*RSIReversal, error) {
	period, err := p.Int("period")
	if err != nil {
		return nil, err
	}
	ob, err := p.Float("overbought")
	if err != nil {
		return nil, err
	}
	osold, err := p.Float("oversold")
	if err != nil {
		return nil, err
	}
	if err := requirePositive("period", period); err != nil {
		return nil, err
	}
	return &RSIReversal{Period: period, Overbought: ob, Oversold: osold}, nil
}

func (r *RSIReversal) Kind() Kind { return KindRSI }

func (r *RSIReversal) Name() string {
	return fmt.Sprintf("RSI(%d,%g,%g)", r.Period, r.Overbought, r.Oversold)
}

func (r *RSIReversal) GenerateSignals(bars []market.Bar) []Signal {
	rsi := indicators.RSI(bars, r.Period)

	var signals []Signal
	for i := 1; i < len(bars); i++ {
		prev, curr, ok := rsi.Pair(i)
		if !ok {
			continue
		}
		ind := map[string]float64{"rsi": curr}

		if prev < r.Oversold && curr >= r.Oversold {
			reason := fmt.Sprintf("RSI(%d) crossed above oversold %g", r.Period, r.Oversold)
			signals = append(signals, newSignal(bars, i, Buy, reason, ind))
		}
		if prev > r.Overbought && curr <= r.Overbought {
			reason := fmt.Sprintf("RSI(%d) crossed below overbought %g", r.Period, r.Overbought)
			signals = append(signals, newSignal(bars, i, Sell, reason, ind))
		}
	}
	return signals
}
