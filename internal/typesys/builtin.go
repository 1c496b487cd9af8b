package typesys

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Built-in type names.
const (
	TypeNameString   = "string"
	TypeNameInteger  = "integer"
	TypeNameNumber   = "number"
	TypeNameBoolean  = "boolean"
	TypeNameDuration = "duration"
)

// builtins returns one instance of every built-in descriptor.
func builtins() []Type {
	return []Type{
		String(),
		Integer(),
		Number(),
		Boolean(),
		Duration(),
	}
}

// String returns the built-in string descriptor.
func String() Type { return stringType{} }

// Integer returns the built-in integer descriptor.
func Integer() Type { return intType{name: TypeNameInteger} }

// Number returns the built-in floating-point descriptor.
func Number() Type { return floatType{name: TypeNameNumber} }

// Boolean returns the built-in boolean descriptor.
func Boolean() Type { return boolType{} }

// Duration returns the built-in duration descriptor.
func Duration() Type { return durationType{} }

type stringType struct{}

func (stringType) Name() string { return TypeNameString }

func (stringType) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

func (stringType) Parse(_ context.Context, s string) (any, error) {
	return s, nil
}

func (stringType) Serialize(_ context.Context, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", value)
	}
	return s, nil
}

type intType struct {
	name string
}

func (t intType) Name() string { return t.name }

func (t intType) Validate(value any) error {
	if _, ok := toInt64(value); !ok {
		return fmt.Errorf("expected integer, got %T", value)
	}
	return nil
}

func (t intType) Parse(_ context.Context, s string) (any, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing integer %q: %w", s, err)
	}
	return int(n), nil
}

func (t intType) Serialize(_ context.Context, value any) (string, error) {
	n, ok := toInt64(value)
	if !ok {
		return "", fmt.Errorf("expected integer, got %T", value)
	}
	return strconv.FormatInt(n, 10), nil
}

type floatType struct {
	name string
}

func (t floatType) Name() string { return t.name }

func (t floatType) Validate(value any) error {
	if _, ok := toFloat64(value); !ok {
		return fmt.Errorf("expected number, got %T", value)
	}
	return nil
}

func (t floatType) Parse(_ context.Context, s string) (any, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing number %q: %w", s, err)
	}
	return f, nil
}

func (t floatType) Serialize(_ context.Context, value any) (string, error) {
	f, ok := toFloat64(value)
	if !ok {
		return "", fmt.Errorf("expected number, got %T", value)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

type boolType struct{}

func (boolType) Name() string { return TypeNameBoolean }

func (boolType) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected boolean, got %T", value)
	}
	return nil
}

func (boolType) Parse(_ context.Context, s string) (any, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("parsing boolean %q: %w", s, err)
	}
	return b, nil
}

func (boolType) Serialize(_ context.Context, value any) (string, error) {
	b, ok := value.(bool)
	if !ok {
		return "", fmt.Errorf("expected boolean, got %T", value)
	}
	return strconv.FormatBool(b), nil
}

type durationType struct{}

func (durationType) Name() string { return TypeNameDuration }

// Validate accepts a time.Duration or a duration string (e.g. "500ms").
func (durationType) Validate(value any) error {
	switch v := value.(type) {
	case time.Duration:
		return nil
	case string:
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		return nil
	default:
		return fmt.Errorf("expected duration, got %T", value)
	}
}

func (durationType) Parse(_ context.Context, s string) (any, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, fmt.Errorf("parsing duration %q: %w", s, err)
	}
	return d, nil
}

func (durationType) Serialize(_ context.Context, value any) (string, error) {
	switch v := value.(type) {
	case time.Duration:
		return v.String(), nil
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return "", fmt.Errorf("invalid duration %q: %w", v, err)
		}
		return d.String(), nil
	default:
		return "", fmt.Errorf("expected duration, got %T", value)
	}
}

// toInt64 normalizes any integer kind to int64.
func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	default:
		return 0, false
	}
}

// toFloat64 normalizes numeric kinds to float64.
// Integers are acceptable for number-typed settings.
func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		if n, ok := toInt64(value); ok {
			return float64(n), true
		}
		return 0, false
	}
}
