package backtest

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid backtest config")

// Config controls capital, sizing and costs for one run.
type Config struct {
	InitialCapital float64 `json:"initialCapital" yaml:"initial-capital"`

	// PositionSize is the fraction of cash committed when opening, in (0, 1].
	PositionSize float64 `json:"positionSize" yaml:"position-size"`

	// Commission is charged on the traded notional, 0.001 is 0.1%.
	Commission float64 `json:"commission" yaml:"commission"`

	// Slippage moves the execution price against the trader by a fixed fraction.
	Slippage float64 `json:"slippage" yaml:"slippage"`

	AllowShort bool `json:"allowShort" yaml:"allow-short"`
}

// DefaultConfig returns 100k capital, full sizing, 0.1% commission and
// 0.05% slippage with shorting disabled.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 100000,
		PositionSize:   1,
		Commission:     0.001,
		Slippage:       0.0005,
		AllowShort:     false,
	}
}

// Validate checks the config ranges.
func (c Config) Validate() error {
	if !(c.InitialCapital > 0) {
		return fmt.Errorf("%w: initial capital must be > 0, got %g", ErrInvalidConfig, c.InitialCapital)
	}
	if !(c.PositionSize > 0 && c.PositionSize <= 1) {
		return fmt.Errorf("%w: position size must be in (0, 1], got %g", ErrInvalidConfig, c.PositionSize)
	}
	if !(c.Commission >= 0) {
		return fmt.Errorf("%w: commission must be >= 0, got %g", ErrInvalidConfig, c.Commission)
	}
	if !(c.Slippage >= 0) {
		return fmt.Errorf("%w: slippage must be >= 0, got %g", ErrInvalidConfig, c.Slippage)
	}
	return nil
}
