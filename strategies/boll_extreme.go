package strategies

import (
	"fmt"

	"github.com/rustyeddy/quantlab/indicators"
	"github.com/rustyeddy/quantlab/market"
)

// BollExtreme opens against a bar whose whole body sits outside the bands
// and closes once price returns to the middle band.
//
// It keeps its own none/long/short state for one GenerateSignals call. That
// state is not the engine's position: the engine may ignore a signal this
// strategy believes opened a trade.
type BollExtreme struct {
	Period int
	StdDev float64
}

type extremeState int

const (
	extremeNone extremeState = iota
	extremeLong
	extremeShort
)

func bollExtremeInfo() Info {
	return Info{
		Key:         KindBollExtreme,
		Name:        "Bollinger Extreme Reversion",
		Description: "Go long when the body is fully below the lower band, short when fully above the upper band, exit at the middle band",
		Params: []ParamSpec{
			{Key: "period", Label: "BOLL period", Type: "number", Min: 10, Max: 50, Default: 20},
			{Key: "stdDev", Label: "StdDev multiplier", Type: "number", Min: 1, Max: 4, Step: 0.1, Default: 2},
		},
		Defaults: Params{"period": 20, "stdDev": 2},
	}
}

func newBollExtreme(p Params) (*BollExtreme, error) {
	period, err := p.Int("period")
	if err != nil {
		return nil, err
	}
	sd, err := p.Float("stdDev")
	if err != nil {
		return nil, err
	}
	if err := requirePositive("period", period); err != nil {
		return nil, err
	}
	return &BollExtreme{Period: period, StdDev: sd}, nil
}

func (b *BollExtreme) Kind() Kind { return KindBollExtreme }

func (b *BollExtreme) Name() string {
	return fmt.Sprintf("BOLL_EXTREME(%d,%g)", b.Period, b.StdDev)
}

func (b *BollExtreme) GenerateSignals(bars []market.Bar) []Signal {
	bands := indicators.Bollinger(bars, b.Period, b.StdDev)

	var signals []Signal
	state := extremeNone
	for i := 1; i < len(bars); i++ {
		upper, ok1 := bands.Upper.At(i)
		lower, ok2 := bands.Lower.At(i)
		if !ok1 || !ok2 {
			continue
		}
		middle, _ := bands.Middle.At(i)
		ind := map[string]float64{"upper": upper, "middle": middle, "lower": lower}
		bar := bars[i]

		switch state {
		case extremeNone:
			if bar.BodyHigh() < lower {
				reason := fmt.Sprintf("body pierced lower band (%.2f), open long", lower)
				signals = append(signals, newSignal(bars, i, Buy, reason, ind))
				state = extremeLong
			} else if bar.BodyLow() > upper {
				reason := fmt.Sprintf("body pierced upper band (%.2f), open short", upper)
				signals = append(signals, newSignal(bars, i, Sell, reason, ind))
				state = extremeShort
			}
		case extremeLong:
			if bar.Close >= middle {
				reason := fmt.Sprintf("price returned to middle band (%.2f), close long", middle)
				signals = append(signals, newSignal(bars, i, Sell, reason, ind))
				state = extremeNone
			}
		case extremeShort:
			if bar.Close <= middle {
				reason := fmt.Sprintf("price returned to middle band (%.2f), close short", middle)
				signals = append(signals, newSignal(bars, i, Buy, reason, ind))
				state = extremeNone
			}
		}
	}
	return signals
}
