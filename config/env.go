package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rustyeddy/quantlab/strategies"
)

// EnvPrefix starts every environment key the config reads.
const EnvPrefix = "QUANTLAB_"

// Environ collects QUANTLAB_* settings from the given .env files, in order,
// then from the process environment. Later sources win. Missing files are
// skipped.
func Environ(files ...string) (map[string]string, error) {
	env := map[string]string{}
	for _, f := range files {
		vals, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read env file %s: %w", f, err)
		}
		for k, v := range vals {
			if strings.HasPrefix(k, EnvPrefix) {
				env[k] = v
			}
		}
	}
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}
	return env, nil
}

// ApplyEnv overrides c with the recognised keys of env:
//
//	QUANTLAB_INITIAL_CAPITAL  QUANTLAB_POSITION_SIZE  QUANTLAB_COMMISSION
//	QUANTLAB_SLIPPAGE         QUANTLAB_ALLOW_SHORT    QUANTLAB_STRATEGY
//	QUANTLAB_DATA_FILE        QUANTLAB_DB_PATH        QUANTLAB_SYMBOL
//	QUANTLAB_INTERVAL         QUANTLAB_RISK_FREE_RATE QUANTLAB_WORKERS
//	QUANTLAB_ADDR             QUANTLAB_CORS_ORIGINS (comma separated)
//
// Unknown keys are ignored.
func (c *Config) ApplyEnv(env map[string]string) error {
	floats := map[string]*float64{
		"INITIAL_CAPITAL": &c.Backtest.InitialCapital,
		"POSITION_SIZE":   &c.Backtest.PositionSize,
		"COMMISSION":      &c.Backtest.Commission,
		"SLIPPAGE":        &c.Backtest.Slippage,
		"RISK_FREE_RATE":  &c.Metrics.RiskFreeRate,
	}
	for key, dst := range floats {
		v, ok := env[EnvPrefix+key]
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = f
	}

	strs := map[string]*string{
		"DATA_FILE": &c.Data.File,
		"DB_PATH":   &c.Data.DBPath,
		"SYMBOL":    &c.Data.Symbol,
		"INTERVAL":  &c.Data.Interval,
		"ADDR":      &c.Server.Addr,
	}
	for key, dst := range strs {
		if v, ok := env[EnvPrefix+key]; ok {
			*dst = strings.TrimSpace(v)
		}
	}

	if v, ok := env[EnvPrefix+"ALLOW_SHORT"]; ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sALLOW_SHORT: %w", EnvPrefix, err)
		}
		c.Backtest.AllowShort = b
	}
	if v, ok := env[EnvPrefix+"WORKERS"]; ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sWORKERS: %w", EnvPrefix, err)
		}
		c.Sweep.Workers = n
	}
	if v, ok := env[EnvPrefix+"STRATEGY"]; ok {
		kind, err := strategies.ParseKind(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sSTRATEGY: %w", EnvPrefix, err)
		}
		if kind != c.Strategy.Kind {
			// params of another kind do not carry over
			c.Strategy = StrategyConfig{Kind: kind, Params: strategies.Params{}}
		}
	}
	if v, ok := env[EnvPrefix+"CORS_ORIGINS"]; ok {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.AllowedOrigins = origins
	}
	return nil
}

// Load reads path (when non-empty) or starts from Default, applies the
// environment from envFiles and the process, and validates the result.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}

	env, err := Environ(envFiles...)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(env); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
