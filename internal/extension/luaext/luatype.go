package luaext

import (
	"context"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// luaType is a setting type whose validate/parse/serialize run as Lua
// functions. It satisfies typesys.Type.
//
// All calls into the Lua state are serialized through mu, shared by
// every type declared from the same script.
type luaType struct {
	name string
	L    *lua.LState
	mu   *sync.Mutex

	validate  *lua.LFunction
	parse     *lua.LFunction // nil: strings pass through
	serialize *lua.LFunction // nil: value must already be a string
}

func (t *luaType) Name() string { return t.name }

// Validate calls the script's validate function. The function returns
// a truthy value to accept, or false plus an optional message.
func (t *luaType) Validate(value any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.validateLocked(value)
}

func (t *luaType) validateLocked(value any) error {
	lv, err := toLua(t.L, value)
	if err != nil {
		return fmt.Errorf("type %s: %w", t.name, err)
	}

	if err := t.L.CallByParam(lua.P{Fn: t.validate, NRet: 2, Protect: true}, lv); err != nil {
		return fmt.Errorf("type %s: validate: %w", t.name, err)
	}
	ok := t.L.Get(-2)
	msg := t.L.Get(-1)
	t.L.Pop(2)

	if lua.LVAsBool(ok) {
		return nil
	}
	if s, isStr := msg.(lua.LString); isStr {
		return fmt.Errorf("invalid value %v: %s", value, string(s))
	}
	return fmt.Errorf("invalid value %v for type %s", value, t.name)
}

// Parse converts the persisted string through the script's parse
// function, then validates the result.
func (t *luaType) Parse(ctx context.Context, s string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var value any = s
	if t.parse != nil {
		if err := t.L.CallByParam(lua.P{Fn: t.parse, NRet: 1, Protect: true}, lua.LString(s)); err != nil {
			return nil, fmt.Errorf("type %s: parse %q: %w", t.name, s, err)
		}
		ret := t.L.Get(-1)
		t.L.Pop(1)
		if ret == lua.LNil {
			return nil, fmt.Errorf("type %s: cannot parse %q", t.name, s)
		}
		value = fromLua(ret)
	}

	if err := t.validateLocked(value); err != nil {
		return nil, err
	}
	return value, nil
}

// Serialize converts a value back to its persisted string form.
func (t *luaType) Serialize(ctx context.Context, value any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.serialize == nil {
		s, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("type %s: expected string, got %T", t.name, value)
		}
		return s, nil
	}

	lv, err := toLua(t.L, value)
	if err != nil {
		return "", fmt.Errorf("type %s: %w", t.name, err)
	}
	if err := t.L.CallByParam(lua.P{Fn: t.serialize, NRet: 1, Protect: true}, lv); err != nil {
		return "", fmt.Errorf("type %s: serialize: %w", t.name, err)
	}
	ret := t.L.Get(-1)
	t.L.Pop(1)

	s, ok := ret.(lua.LString)
	if !ok {
		return "", fmt.Errorf("type %s: serialize returned %s, want string", t.name, ret.Type())
	}
	return string(s), nil
}

// toLua converts a Go value into a Lua value.
func toLua(L *lua.LState, value any) (lua.LValue, error) {
	switch v := value.(type) {
	case nil:
		return lua.LNil, nil
	case bool:
		return lua.LBool(v), nil
	case string:
		return lua.LString(v), nil
	case int:
		return lua.LNumber(v), nil
	case int64:
		return lua.LNumber(v), nil
	case float64:
		return lua.LNumber(v), nil
	case []any:
		tbl := L.NewTable()
		for _, item := range v {
			lv, err := toLua(L, item)
			if err != nil {
				return nil, err
			}
			tbl.Append(lv)
		}
		return tbl, nil
	case map[string]any:
		tbl := L.NewTable()
		for key, item := range v {
			lv, err := toLua(L, item)
			if err != nil {
				return nil, err
			}
			L.SetField(tbl, key, lv)
		}
		return tbl, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to a Lua value", value)
	}
}

// fromLua converts a Lua value into a Go value. Integral numbers
// become int, matching how manifests and built-in integer settings
// represent values.
func fromLua(lv lua.LValue) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		return tableToGo(v)
	default:
		return nil
	}
}

// tableToGo converts a table to a slice when it is a contiguous array,
// otherwise to a map.
func tableToGo(t *lua.LTable) any {
	n := t.Len()
	if n > 0 {
		arr := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			arr = append(arr, fromLua(t.RawGetInt(i)))
		}
		return arr
	}

	m := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		m[k.String()] = fromLua(v)
	})
	return m
}
