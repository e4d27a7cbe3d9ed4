// Package strategies turns a bar sequence into BUY/SELL signals.
//
// The set of strategies is closed: each Kind maps to one implementation
// selected by New. Adding a strategy means adding a Kind and a case.
package strategies

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/rustyeddy/quantlab/market"
)

var (
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrInvalidParams   = errors.New("invalid strategy params")
)

// Kind is the stable key of a strategy.
type Kind string

const (
	KindMA          Kind = "ma"
	KindRSI         Kind = "rsi"
	KindBoll        Kind = "boll"
	KindMACD        Kind = "macd"
	KindBollExtreme Kind = "bollExtreme"
)

// Kinds lists every strategy in display order.
func Kinds() []Kind {
	return []Kind{KindMA, KindRSI, KindBoll, KindMACD, KindBollExtreme}
}

// ParseKind resolves a strategy key.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// Strategy generates signals for a whole bar sequence. Implementations are
// pure: the same bars always produce the same signals and nothing is kept
// between calls.
type Strategy interface {
	Kind() Kind
	Name() string
	GenerateSignals(bars []market.Bar) []Signal
}

// Side is the direction of a signal or trade.
type Side int

const (
	Buy Side = iota + 1
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "NONE"
	}
}

func (s Side) MarshalText() ([]byte, error) {
	if s != Buy && s != Sell {
		return nil, fmt.Errorf("invalid side %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(b []byte) error {
	switch string(b) {
	case "BUY":
		*s = Buy
	case "SELL":
		*s = Sell
	default:
		return fmt.Errorf("invalid side %q", string(b))
	}
	return nil
}

// Signal is a discrete trading instruction at one bar.
type Signal struct {
	Index      int                `json:"index"`
	Timestamp  int64              `json:"timestamp"`
	Side       Side               `json:"signal"`
	Reason     string             `json:"reason"`
	Price      float64            `json:"price"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
}

func newSignal(bars []market.Bar, i int, side Side, reason string, ind map[string]float64) Signal {
	return Signal{
		Index:      i,
		Timestamp:  bars[i].Timestamp,
		Side:       side,
		Reason:     reason,
		Price:      bars[i].Close,
		Indicators: ind,
	}
}

// ParamSpec describes one tunable parameter for a host UI.
type ParamSpec struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Type    string   `json:"type"` // "number" or "select"
	Min     float64  `json:"min,omitempty"`
	Max     float64  `json:"max,omitempty"`
	Step    float64  `json:"step,omitempty"`
	Options []string `json:"options,omitempty"`
	Default any      `json:"default"`
}

// Info is the static metadata of a strategy.
type Info struct {
	Key         Kind        `json:"key"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []ParamSpec `json:"params"`
	Defaults    Params      `json:"defaults"`
}

func (i Info) JSON() ([]byte, error) {
	return json.Marshal(i)
}

// Describe returns the metadata for kind.
func Describe(kind Kind) (Info, error) {
	switch kind {
	case KindMA:
		return maInfo(), nil
	case KindRSI:
		return rsiInfo(), nil
	case KindBoll:
		return bollInfo(), nil
	case KindMACD:
		return macdInfo(), nil
	case KindBollExtreme:
		return bollExtremeInfo(), nil
	}
	return Info{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, string(kind))
}

// List returns metadata for every strategy in display order.
func List() []Info {
	kinds := Kinds()
	out := make([]Info, 0, len(kinds))
	for _, k := range kinds {
		info, _ := Describe(k)
		out = append(out, info)
	}
	return out
}

// New builds the strategy for kind. params are merged over the kind's
// defaults; a nil map means all defaults.
func New(kind Kind, params Params) (Strategy, error) {
	info, err := Describe(kind)
	if err != nil {
		return nil, err
	}
	p := info.Defaults.Merge(params)
	if err := checkRanges(info.Params, p); err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}

	var s Strategy
	switch kind {
	case KindMA:
		s, err = newMACross(p)
	case KindRSI:
		s, err = newRSIReversal(p)
	case KindBoll:
		s, err = newBollBands(p)
	case KindMACD:
		s, err = newMACDCross(p)
	case KindBollExtreme:
		s, err = newBollExtreme(p)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	return s, nil
}

// Generate is New followed by GenerateSignals.
func Generate(kind Kind, params Params, bars []market.Bar) ([]Signal, error) {
	s, err := New(kind, params)
	if err != nil {
		return nil, err
	}
	return s.GenerateSignals(bars), nil
}

// checkRanges rejects numeric params outside their declared [Min, Max].
func checkRanges(specs []ParamSpec, p Params) error {
	for _, spec := range specs {
		if spec.Type != "number" || spec.Max <= spec.Min {
			continue
		}
		v, err := p.Float(spec.Key)
		if err != nil {
			return err
		}
		if math.IsNaN(v) || v < spec.Min || v > spec.Max {
			return fmt.Errorf("%w: %s must be in [%g, %g], got %g",
				ErrInvalidParams, spec.Key, spec.Min, spec.Max, v)
		}
	}
	return nil
}

func requirePositive(name string, v int) error {
	if v <= 0 {
		return fmt.Errorf("%w: %s must be > 0, got %d", ErrInvalidParams, name, v)
	}
	return nil
}
