package rpc

import (
	"encoding/json"
	"fmt"
)

// Args wraps the positional arguments of a call with typed accessor
// methods. Each argument stays JSON-encoded until accessed, so handlers
// pay only for what they read and can decode into their own types.
type Args []json.RawMessage

// Len returns the number of arguments.
func (a Args) Len() int {
	return len(a)
}

// Has returns true if an argument exists at position i.
func (a Args) Has(i int) bool {
	return i >= 0 && i < len(a)
}

// Raw returns the still-encoded argument at position i, or nil if out of
// range.
func (a Args) Raw(i int) json.RawMessage {
	if !a.Has(i) {
		return nil
	}
	return a[i]
}

// Decode unmarshals the argument at position i into v.
func (a Args) Decode(i int, v any) error {
	if !a.Has(i) {
		return fmt.Errorf("argument %d is required", i)
	}
	if err := json.Unmarshal(a[i], v); err != nil {
		return fmt.Errorf("argument %d: %w", i, err)
	}
	return nil
}

// Any decodes the argument at position i into its natural Go form
// (string, float64, bool, []any, map[string]any, nil).
func (a Args) Any(i int) (any, error) {
	var v any
	if err := a.Decode(i, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// String gets a required string argument.
func (a Args) String(i int) (string, error) {
	if !a.Has(i) {
		return "", fmt.Errorf("argument %d is required", i)
	}
	var s string
	if err := json.Unmarshal(a[i], &s); err != nil {
		return "", fmt.Errorf("argument %d must be a string", i)
	}
	return s, nil
}

// StringOr gets an optional string argument with a default.
func (a Args) StringOr(i int, defaultVal string) string {
	s, err := a.String(i)
	if err != nil {
		return defaultVal
	}
	return s
}

// Int gets a required integer argument.
// Fractional JSON numbers are truncated toward zero.
func (a Args) Int(i int) (int, error) {
	f, err := a.Float(i)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// IntOr gets an optional integer argument with a default.
func (a Args) IntOr(i int, defaultVal int) int {
	n, err := a.Int(i)
	if err != nil {
		return defaultVal
	}
	return n
}

// Float gets a required float64 argument.
func (a Args) Float(i int) (float64, error) {
	if !a.Has(i) {
		return 0, fmt.Errorf("argument %d is required", i)
	}
	var f float64
	if err := json.Unmarshal(a[i], &f); err != nil {
		return 0, fmt.Errorf("argument %d must be a number", i)
	}
	return f, nil
}

// FloatOr gets an optional float64 argument with a default.
func (a Args) FloatOr(i int, defaultVal float64) float64 {
	f, err := a.Float(i)
	if err != nil {
		return defaultVal
	}
	return f
}

// Bool gets a required boolean argument.
func (a Args) Bool(i int) (bool, error) {
	if !a.Has(i) {
		return false, fmt.Errorf("argument %d is required", i)
	}
	var b bool
	if err := json.Unmarshal(a[i], &b); err != nil {
		return false, fmt.Errorf("argument %d must be a boolean", i)
	}
	return b, nil
}

// BoolOr gets an optional boolean argument with a default.
func (a Args) BoolOr(i int, defaultVal bool) bool {
	b, err := a.Bool(i)
	if err != nil {
		return defaultVal
	}
	return b
}

// StringSlice gets a required string slice argument.
func (a Args) StringSlice(i int) ([]string, error) {
	if !a.Has(i) {
		return nil, fmt.Errorf("argument %d is required", i)
	}
	var s []string
	if err := json.Unmarshal(a[i], &s); err != nil {
		return nil, fmt.Errorf("argument %d must be an array of strings", i)
	}
	return s, nil
}
