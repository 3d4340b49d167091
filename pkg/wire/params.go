package wire

import (
	"math"
)

// Params holds decoded command parameters. JSON numbers arrive as float64;
// the accessors below enforce the protocol's type contracts explicitly
// rather than coercing, so a fractional motor index or a string intensity
// is rejected, not rounded.
type Params map[string]any

// String returns the named parameter as a non-empty string.
func (p Params) String(key string) (string, bool) {
	v, exists := p[key]
	if !exists {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// StringOr returns the named string parameter or def when absent/invalid.
func (p Params) StringOr(key, def string) string {
	if s, ok := p.String(key); ok {
		return s
	}
	return def
}

// Int returns the named parameter as an integer. A JSON number with a
// fractional part is not an integer.
func (p Params) Int(key string) (int, bool) {
	v, exists := p[key]
	if !exists {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

// IntOr returns the named integer parameter or def when absent. An invalid
// value still reports false so callers can reject it.
func (p Params) IntOr(key string, def int) (int, bool) {
	if _, exists := p[key]; !exists {
		return def, true
	}
	return p.Int(key)
}

// Float returns the named parameter as a number. Integers are numbers.
func (p Params) Float(key string) (float64, bool) {
	v, exists := p[key]
	if !exists {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// FloatOr returns the named number parameter or def when absent.
func (p Params) FloatOr(key string, def float64) (float64, bool) {
	if _, exists := p[key]; !exists {
		return def, true
	}
	return p.Float(key)
}

// Bool returns the named parameter as a boolean.
func (p Params) Bool(key string) (bool, bool) {
	v, exists := p[key]
	if !exists {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// BoolOr returns the named boolean parameter or def when absent/invalid.
func (p Params) BoolOr(key string, def bool) bool {
	if b, ok := p.Bool(key); ok {
		return b
	}
	return def
}

// List returns the named parameter as a non-empty JSON array.
func (p Params) List(key string) ([]any, bool) {
	v, exists := p[key]
	if !exists {
		return nil, false
	}
	l, ok := v.([]any)
	if !ok || len(l) == 0 {
		return nil, false
	}
	return l, true
}
