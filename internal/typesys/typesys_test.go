package typesys

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRegistry_Resolve(t *testing.T) {
	r := NewWithBuiltins()
	ctx := context.Background()

	for _, name := range []string{"string", "integer", "number", "boolean", "duration"} {
		typ, err := r.Resolve(ctx, name)
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", name, err)
		}
		if typ.Name() != name {
			t.Errorf("Resolve(%q) returned type named %q", name, typ.Name())
		}
	}
}

func TestRegistry_Resolve_Unknown(t *testing.T) {
	r := NewWithBuiltins()

	_, err := r.Resolve(context.Background(), "quaternion")
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
}

func TestRegistry_Resolve_Cancelled(t *testing.T) {
	r := NewWithBuiltins()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Resolve(ctx, "string"); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestRegistry_RegisterType_Duplicate(t *testing.T) {
	r := NewRegistry()

	if err := r.RegisterType(Enum("mode", "a", "b")); err != nil {
		t.Fatalf("RegisterType failed: %v", err)
	}
	err := r.RegisterType(Enum("mode", "c"))
	if !errors.Is(err, ErrTypeExists) {
		t.Errorf("expected ErrTypeExists, got %v", err)
	}
}

func TestBuiltin_Validate(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		value   any
		wantErr bool
	}{
		{"string ok", String(), "hello", false},
		{"string wrong type", String(), 42, true},
		{"integer ok", Integer(), 4, false},
		{"integer int64", Integer(), int64(4), false},
		{"integer uint", Integer(), uint(4), false},
		{"integer float rejected", Integer(), 4.5, true},
		{"number ok", Number(), 1.5, false},
		{"number from int", Number(), 3, false},
		{"number wrong type", Number(), "1.5", true},
		{"boolean ok", Boolean(), true, false},
		{"boolean wrong type", Boolean(), "true", true},
		{"duration from value", Duration(), 500 * time.Millisecond, false},
		{"duration from string", Duration(), "500ms", false},
		{"duration bad string", Duration(), "fast", true},
		{"duration wrong type", Duration(), 500, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.typ.Validate(tt.value)
			if tt.wantErr && err == nil {
				t.Errorf("Validate(%v) expected error", tt.value)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate(%v) failed: %v", tt.value, err)
			}
		})
	}
}

func TestBuiltin_ParseSerialize(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		typ    Type
		raw    string
		parsed any
	}{
		{"string", String(), "dark", "dark"},
		{"integer", Integer(), "4", 4},
		{"number", Number(), "1.5", 1.5},
		{"number integral", Number(), "4", 4.0},
		{"boolean", Boolean(), "true", true},
		{"duration", Duration(), "1m30s", 90 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.typ.Parse(ctx, tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.raw, err)
			}
			if v != tt.parsed {
				t.Errorf("Parse(%q) = %v (%T), want %v (%T)", tt.raw, v, v, tt.parsed, tt.parsed)
			}

			s, err := tt.typ.Serialize(ctx, v)
			if err != nil {
				t.Fatalf("Serialize(%v) failed: %v", v, err)
			}
			round, err := tt.typ.Parse(ctx, s)
			if err != nil {
				t.Fatalf("Parse(Serialize(%v)) failed: %v", v, err)
			}
			if round != v {
				t.Errorf("round trip changed value: %v -> %q -> %v", v, s, round)
			}
		})
	}
}

func TestBuiltin_Parse_Invalid(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		typ  Type
		raw  string
	}{
		{"integer", Integer(), "four"},
		{"number", Number(), "x"},
		{"boolean", Boolean(), "yes please"},
		{"duration", Duration(), "eventually"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.typ.Parse(ctx, tt.raw); err == nil {
				t.Errorf("Parse(%q) expected error", tt.raw)
			}
		})
	}
}

func TestEnum(t *testing.T) {
	e := Enum("wordWrap", "off", "on", "bounded")

	if e.Name() != "wordWrap" {
		t.Errorf("Name = %q, want wordWrap", e.Name())
	}
	if err := e.Validate("on"); err != nil {
		t.Errorf("Validate(on) failed: %v", err)
	}
	if err := e.Validate("sideways"); err == nil {
		t.Error("expected error for value outside enum")
	}
	if err := e.Validate(1); err == nil {
		t.Error("expected error for non-string value")
	}
	if _, err := e.Parse(context.Background(), "sideways"); err == nil {
		t.Error("expected parse error for value outside enum")
	}
}

func TestIntRange(t *testing.T) {
	r := IntRange("tabSize", 1, 16)

	if err := r.Validate(4); err != nil {
		t.Errorf("Validate(4) failed: %v", err)
	}
	if err := r.Validate(0); err == nil {
		t.Error("expected error below minimum")
	}
	if err := r.Validate(17); err == nil {
		t.Error("expected error above maximum")
	}

	// Parse enforces the range too.
	if _, err := r.Parse(context.Background(), "99"); err == nil {
		t.Error("expected parse error above maximum")
	}
	v, err := r.Parse(context.Background(), "8")
	if err != nil {
		t.Fatalf("Parse(8) failed: %v", err)
	}
	if v != 8 {
		t.Errorf("Parse(8) = %v, want 8", v)
	}
}

func TestFloatRange(t *testing.T) {
	r := FloatRange("lineHeight", 1.0, 3.0)

	if err := r.Validate(1.5); err != nil {
		t.Errorf("Validate(1.5) failed: %v", err)
	}
	if err := r.Validate(0.5); err == nil {
		t.Error("expected error below minimum")
	}
}

func TestPattern(t *testing.T) {
	p, err := Pattern("hexColor", `^#[0-9a-fA-F]{6}$`)
	if err != nil {
		t.Fatalf("Pattern failed: %v", err)
	}

	if err := p.Validate("#1a2b3c"); err != nil {
		t.Errorf("Validate(#1a2b3c) failed: %v", err)
	}
	if err := p.Validate("red"); err == nil {
		t.Error("expected error for non-matching value")
	}

	if _, err := Pattern("bad", `(`); err == nil {
		t.Error("expected error for invalid pattern")
	}
}
