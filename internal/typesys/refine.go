package typesys

import (
	"context"
	"fmt"
	"regexp"
)

// Refined descriptors wrap a built-in descriptor with an extra
// constraint. Extensions declare them under their own names, so a
// constrained setting is still just a named type to the registry.

// Enum creates a string descriptor restricted to a fixed set of
// values, registered under name.
func Enum(name string, values ...string) Type {
	return enumType{name: name, values: values}
}

type enumType struct {
	name   string
	values []string
}

func (t enumType) Name() string { return t.name }

func (t enumType) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	for _, v := range t.values {
		if v == s {
			return nil
		}
	}
	return fmt.Errorf("value %q must be one of %v", s, t.values)
}

func (t enumType) Parse(_ context.Context, s string) (any, error) {
	if err := t.Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (t enumType) Serialize(_ context.Context, value any) (string, error) {
	if err := t.Validate(value); err != nil {
		return "", err
	}
	return value.(string), nil
}

// IntRange creates an integer descriptor restricted to [min, max],
// registered under name.
func IntRange(name string, min, max int64) Type {
	return rangeType{
		Type: intType{name: name},
		min:  float64(min),
		max:  float64(max),
	}
}

// FloatRange creates a number descriptor restricted to [min, max],
// registered under name.
func FloatRange(name string, min, max float64) Type {
	return rangeType{
		Type: floatType{name: name},
		min:  min,
		max:  max,
	}
}

type rangeType struct {
	Type
	min, max float64
}

func (t rangeType) Validate(value any) error {
	if err := t.Type.Validate(value); err != nil {
		return err
	}
	f, _ := toFloat64(value)
	if f < t.min {
		return fmt.Errorf("value %v is less than minimum %v", value, t.min)
	}
	if f > t.max {
		return fmt.Errorf("value %v is greater than maximum %v", value, t.max)
	}
	return nil
}

func (t rangeType) Parse(ctx context.Context, s string) (any, error) {
	v, err := t.Type.Parse(ctx, s)
	if err != nil {
		return nil, err
	}
	if err := t.Validate(v); err != nil {
		return nil, err
	}
	return v, nil
}

// Pattern creates a string descriptor whose values must match the
// regular expression expr, registered under name.
func Pattern(name, expr string) (Type, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern for type %s: %w", name, err)
	}
	return patternType{name: name, re: re}, nil
}

type patternType struct {
	name string
	re   *regexp.Regexp
}

func (t patternType) Name() string { return t.name }

func (t patternType) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	if !t.re.MatchString(s) {
		return fmt.Errorf("value %q does not match pattern %s", s, t.re.String())
	}
	return nil
}

func (t patternType) Parse(_ context.Context, s string) (any, error) {
	if err := t.Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (t patternType) Serialize(_ context.Context, value any) (string, error) {
	if err := t.Validate(value); err != nil {
		return "", err
	}
	return value.(string), nil
}
