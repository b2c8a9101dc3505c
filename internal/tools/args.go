package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Args are the primitive arguments of one tool call, as decoded from JSON
// or parsed from a command line.
type Args map[string]any

// Has reports whether name was supplied.
func (a Args) Has(name string) bool {
	v, ok := a[name]
	return ok && v != nil
}

// String returns name as a string, or def when absent.
func (a Args) String(name, def string) string {
	v, ok := a[name]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Float returns name as a float64, or def when absent or not numeric.
func (a Args) Float(name string, def float64) float64 {
	f, ok := toFloat(a[name])
	if !ok {
		return def
	}
	return f
}

// Int returns name as an int, or def when absent or not numeric.
// Fractional numbers are truncated.
func (a Args) Int(name string, def int) int {
	f, ok := toFloat(a[name])
	if !ok {
		return def
	}
	return int(f)
}

// Bool returns name as a bool, or def when absent.
func (a Args) Bool(name string, def bool) bool {
	switch v := a[name].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

// StringSlice returns name as a list of strings. A single string is split
// on commas.
func (a Args) StringSlice(name string) []string {
	switch v := a[name].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}

// Objects returns name as a list of argument maps, for list-of-record
// arguments such as add_positions.
func (a Args) Objects(name string) []Args {
	items, ok := a[name].([]any)
	if !ok {
		return nil
	}
	out := make([]Args, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Args(m))
		}
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// check verifies that a supplied value has the declared type.
func check(p Param, v any) error {
	switch p.Type {
	case TypeNumber, TypeInteger:
		if _, ok := toFloat(v); !ok {
			return fmt.Errorf("argument %s must be a number", p.Name)
		}
	case TypeBoolean:
		switch b := v.(type) {
		case bool:
		case string:
			if _, err := strconv.ParseBool(b); err != nil {
				return fmt.Errorf("argument %s must be a boolean", p.Name)
			}
		default:
			return fmt.Errorf("argument %s must be a boolean", p.Name)
		}
	case TypeArray:
		switch v.(type) {
		case []any, []string, string:
		default:
			return fmt.Errorf("argument %s must be an array", p.Name)
		}
	case TypeString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("argument %s must be a string", p.Name)
		}
	}
	return nil
}
