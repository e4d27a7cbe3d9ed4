package strategies

import (
	"fmt"

	"github.com/rustyeddy/quantlab/indicators"
	"github.com/rustyeddy/quantlab/market"
)

// BollMode selects how BollBands reads the bands.
type BollMode string

const (
	// BollReversion fades touches of a band that close back inside it.
	BollReversion BollMode = "reversion"
	// BollBreakout follows closes that cross out of the bands.
	BollBreakout BollMode = "breakout"
)

// BollBands trades Bollinger Band touches or breakouts depending on Mode.
type BollBands struct {
	Period int
	StdDev float64
	Mode   BollMode
}

func bollInfo() Info {
	return Info{
		Key:         KindBoll,
		Name:        "Bollinger Bands",
		Description: "Reversion: buy at the lower band, sell at the upper band. Breakout: buy above the upper band, sell below the lower band",
		Params: []ParamSpec{
			{Key: "period", Label: "Period", Type: "number", Min: 5, Max: 50, Default: 20},
			{Key: "stdDev", Label: "StdDev multiplier", Type: "number", Min: 1, Max: 4, Step: 0.5, Default: 2},
			{Key: "mode", Label: "Mode", Type: "select", Options: []string{string(BollReversion), string(BollBreakout)}, Default: string(BollReversion)},
		},
		Defaults: Params{"period": 20, "stdDev": 2, "mode": string(BollReversion)},
	}
}

func newBollBands(p Params) (*BollBands, error) {
	period, err := p.Int("period")
	if err != nil {
		return nil, err
	}
	sd, err := p.Float("stdDev")
	if err != nil {
		return nil, err
	}
	mode, err := p.String("mode")
	if err != nil {
		return nil, err
	}
	if err := requirePositive("period", period); err != nil {
		return nil, err
	}

	m := BollMode(mode)
	if m != BollReversion && m != BollBreakout {
		return nil, fmt.Errorf("%w: mode must be reversion or breakout, got %q", ErrInvalidParams, mode)
	}
	return &BollBands{Period: period, StdDev: sd, Mode: m}, nil
}

func (b *BollBands) Kind() Kind { return KindBoll }

func (b *BollBands) Name() string {
	return fmt.Sprintf("BOLL(%d,%g,%s)", b.Period, b.StdDev, b.Mode)
}

func (b *BollBands) GenerateSignals(bars []market.Bar) []Signal {
	bands := indicators.Bollinger(bars, b.Period, b.StdDev)

	var signals []Signal
	for i := 1; i < len(bars); i++ {
		prevUpper, upper, ok1 := bands.Upper.Pair(i)
		prevLower, lower, ok2 := bands.Lower.Pair(i)
		if !ok1 || !ok2 {
			continue
		}
		middle, _ := bands.Middle.At(i)
		ind := map[string]float64{"upper": upper, "middle": middle, "lower": lower}

		bar := bars[i]
		prevClose := bars[i-1].Close

		if b.Mode == BollReversion {
			if bar.Low <= lower && bar.Close > lower {
				reason := fmt.Sprintf("price touched lower band (%.2f) and rebounded", lower)
				signals = append(signals, newSignal(bars, i, Buy, reason, ind))
			}
			if bar.High >= upper && bar.Close < upper {
				reason := fmt.Sprintf("price touched upper band (%.2f) and fell back", upper)
				signals = append(signals, newSignal(bars, i, Sell, reason, ind))
			}
			continue
		}

		if prevClose <= prevUpper && bar.Close > upper {
			reason := fmt.Sprintf("price broke above upper band (%.2f)", upper)
			signals = append(signals, newSignal(bars, i, Buy, reason, ind))
		}
		if prevClose >= prevLower && bar.Close < lower {
			reason := fmt.Sprintf("price broke below lower band (%.2f)", lower)
			signals = append(signals, newSignal(bars, i, Sell, reason, ind))
		}
	}
	return signals
}
