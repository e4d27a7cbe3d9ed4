package strategies

import (
	"fmt"

	"github.com/rustyeddy/quantlab/indicators"
	"github.com/rustyeddy/quantlab/market"
)

// MACross emits BUY when the fast moving average moves from at or below
// the slow one to above it (golden cross) and SELL on the inverse (death
// cross). It does not track positions.
type MACross struct {
	FastPeriod int
	SlowPeriod int
	MAType     indicators.MAType
}

func maInfo() Info {
	return Info{
		Key:         KindMA,
		Name:        "MA Crossover",
		Description: "Buy when the fast MA crosses above the slow MA, sell when it crosses below",
		Params: []ParamSpec{
			{Key: "fastPeriod", Label: "Fast period", Type: "number", Min: 2, Max: 50, Default: 5},
			{Key: "slowPeriod", Label: "Slow period", Type: "number", Min: 5, Max: 200, Default: 20},
			{Key: "maType", Label: "MA type", Type: "select", Options: []string{"SMA", "EMA"}, Default: "SMA"},
		},
		Defaults: Params{"fastPeriod": 5, "slowPeriod": 20, "maType": "SMA"},
	}
}

func newMACross(p Params) (*MACross, error) {
	fast, err := p.Int("fastPeriod")
	if err != nil {
		return nil, err
	}
	slow, err := p.Int("slowPeriod")
	if err != nil {
		return nil, err
	}
	typ, err := p.String("maType")
	if err != nil {
		return nil, err
	}
	if err := requirePositive("fastPeriod", fast); err != nil {
		return nil, err
	}
	if err := requirePositive("slowPeriod", slow); err != nil {
		return nil, err
	}

	mt := indicators.MAType(typ)
	if mt != indicators.MATypeSMA && mt != indicators.MATypeEMA {
		return nil, fmt.Errorf("%w: maType must be SMA or EMA, got %q", ErrInvalidParams, typ)
	}
	return &MACross{FastPeriod: fast, SlowPeriod: slow, MAType: mt}, nil
}

func (x *MACross) Kind() Kind { return KindMA }

func (x *MACross) Name() string {
	return fmt.Sprintf("MA_CROSS(%s,%d,%d)", x.MAType, x.FastPeriod, x.SlowPeriod)
}

func (x *MACross) GenerateSignals(bars []market.Bar) []Signal {
	fast := indicators.MA(bars, x.FastPeriod, x.MAType)
	slow := indicators.MA(bars, x.SlowPeriod, x.MAType)

	var signals []Signal
	for i := 1; i < len(bars); i++ {
		pf, cf, ok1 := fast.Pair(i)
		ps, cs, ok2 := slow.Pair(i)
		if !ok1 || !ok2 {
			continue
		}

		prevAbove := pf > ps
		currAbove := cf > cs
		ind := map[string]float64{"fastMA": cf, "slowMA": cs}

		switch {
		case !prevAbove && currAbove:
			reason := fmt.Sprintf("%s%d crossed above %s%d (golden cross)",
				x.MAType, x.FastPeriod, x.MAType, x.SlowPeriod)
			signals = append(signals, newSignal(bars, i, Buy, reason, ind))
		case prevAbove && !currAbove:
			reason := fmt.Sprintf("%s%d crossed below %s%d (death cross)",
				x.MAType, x.FastPeriod, x.MAType, x.SlowPeriod)
			signals = append(signals, newSignal(bars, i, Sell, reason, ind))
		}
	}
	return signals
}
