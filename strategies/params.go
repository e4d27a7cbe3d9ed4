package strategies

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Params carries strategy parameters across the host boundary, typically
// decoded from JSON, YAML or query strings.
type Params map[string]any

// Merge returns a copy of p with every key of over applied on top.
func (p Params) Merge(over Params) Params {
	out := make(Params, len(p)+len(over))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Float returns key as a float64. Numbers of any Go numeric type,
// json.Number and numeric strings are accepted.
func (p Params) Float(key string) (float64, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", ErrInvalidParams, key)
	}

	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrInvalidParams, key, err)
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number: %q", ErrInvalidParams, key, x)
		}
		f = n
	default:
		return 0, fmt.Errorf("%w: %q has type %T", ErrInvalidParams, key, v)
	}
	return f, nil
}

// Int returns key as an int. Floats must be whole numbers.
func (p Params) Int(key string) (int, error) {
	f, err := p.Float(key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q must be an integer, got %g", ErrInvalidParams, key, f)
	}
	return int(f), nil
}

// String returns key as a string.
func (p Params) String(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", ErrInvalidParams, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q has type %T, want string", ErrInvalidParams, key, v)
	}
	return s, nil
}

// ParseParams converts key=value pairs, as given on a command line, into Params.
// Values stay strings; the typed accessors convert them.
func ParseParams(pairs []string) (Params, error) {
	out := make(Params, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: expected key=value, got %q", ErrInvalidParams, kv)
		}
		out[k] = v
	}
	return out, nil
}
