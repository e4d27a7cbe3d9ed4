package strategies

import (
	"fmt"

	"github.com/rustyeddy/quantlab/indicators"
	"github.com/rustyeddy/quantlab/market"
)

// MACDCross buys when the MACD line crosses above its signal line and
// sells on the inverse.
type MACDCross struct {
	FastPeriod   int
	SlowPeriod   int
	SignalPeriod int
}

func macdInfo() Info {
	return Info{
		Key:         KindMACD,
		Name:        "MACD Crossover",
		Description: "Buy when MACD crosses above the signal line, sell when it crosses below",
		Params: []ParamSpec{
			{Key: "fastPeriod", Label: "Fast period", Type: "number", Min: 2, Max: 50, Default: 12},
			{Key: "slowPeriod", Label: "Slow period", Type: "number", Min: 10, Max: 100, Default: 26},
			{Key: "signalPeriod", Label: "Signal period", Type: "number", Min: 2, Max: 50, Default: 9},
		},
		Defaults: Params{"fastPeriod": 12, "slowPeriod": 26, "signalPeriod": 9},
	}
}

func newMACDCross(p Params) (*MACDCross, error) {
	out := &MACDCross{}
	fields := []struct {
		key string
		dst *int
	}{
		{"fastPeriod", &out.FastPeriod},
		{"slowPeriod", &out.SlowPeriod},
		{"signalPeriod", &out.SignalPeriod},
	}
	for _, f := range fields {
		v, err := p.Int(f.key)
		if err != nil {
			return nil, err
		}
		if err := requirePositive(f.key, v); err != nil {
			return nil, err
		}
		*f.dst = v
	}
	return out, nil
}

func (m *MACDCross) Kind() Kind { return KindMACD }

func (m *MACDCross) Name() string {
	return fmt.Sprintf("MACD(%d,%d,%d)", m.FastPeriod, m.SlowPeriod, m.SignalPeriod)
}

func (m *MACDCross) GenerateSignals(bars []market.Bar) []Signal {
	res := indicators.MACD(bars, m.FastPeriod, m.SlowPeriod, m.SignalPeriod)

	var signals []Signal
	for i := 1; i < len(bars); i++ {
		pm, cm, ok1 := res.MACD.Pair(i)
		ps, cs, ok2 := res.Signal.Pair(i)
		if !ok1 || !ok2 {
			continue
		}

		prevAbove := pm > ps
		currAbove := cm > cs
		ind := map[string]float64{"macd": cm, "signal": cs}

		switch {
		case !prevAbove && currAbove:
			reason := fmt.Sprintf("%s golden cross", m.Name())
			signals = append(signals, newSignal(bars, i, Buy, reason, ind))
		case prevAbove && !currAbove:
			reason := fmt.Sprintf("%s death cross", m.Name())
			signals = append(signals, newSignal(bars, i, Sell, reason, ind))
		}
	}
	return signals
}
