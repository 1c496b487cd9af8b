// Package luaext runs extension scripts that declare settings and
// setting types in Lua.
//
// A script receives a `prefkit` table with two functions:
//
//	prefkit.setting{name=..., type=..., default=..., description=...}
//	prefkit.type{name=..., validate=..., parse=..., serialize=...}
//
// Declared names are namespaced under the extension name. Types
// declared from Lua satisfy typesys.Type; their functions run on the
// script's Lua state, which is not goroutine-safe, so all calls are
// serialized through a per-state mutex.
package luaext

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/prefkit/internal/extension"
	"github.com/dshills/prefkit/internal/typesys"
)

// Runner executes extension scripts. It implements
// extension.ScriptRunner.
//
// States stay open after RunScript returns because declared types keep
// references into them; Close releases all of them.
type Runner struct {
	mu     sync.Mutex
	states []*lua.LState
	closed bool
}

// NewRunner creates a Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// RunScript executes the script at path in a fresh sandboxed state and
// returns the declarations it produced.
func (r *Runner) RunScript(extName, path string) (extension.ScriptResult, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return extension.ScriptResult{}, fmt.Errorf("lua runner is closed")
	}
	r.mu.Unlock()

	L := newSandboxedState()
	c := &collector{ext: extName, L: L, stateMu: &sync.Mutex{}}
	c.install()

	if err := L.DoFile(path); err != nil {
		L.Close()
		return extension.ScriptResult{}, fmt.Errorf("running %s: %w", path, err)
	}

	r.mu.Lock()
	r.states = append(r.states, L)
	r.mu.Unlock()

	return extension.ScriptResult{Settings: c.settings, Types: c.types}, nil
}

// Close releases every Lua state. Types declared by scripts must not
// be used afterwards.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	for _, L := range r.states {
		L.Close()
	}
	r.states = nil
}

// collector accumulates a script's declarations.
type collector struct {
	ext     string
	L       *lua.LState
	stateMu *sync.Mutex

	settings []extension.Declaration
	types    []typesys.Type
}

// install publishes the prefkit table into the state.
func (c *collector) install() {
	mod := c.L.NewTable()
	c.L.SetField(mod, "setting", c.L.NewFunction(c.declareSetting))
	c.L.SetField(mod, "type", c.L.NewFunction(c.declareType))
	c.L.SetField(mod, "extension", lua.LString(c.ext))
	c.L.SetGlobal("prefkit", mod)
}

// declareSetting implements prefkit.setting{...}.
func (c *collector) declareSetting(L *lua.LState) int {
	tbl := L.CheckTable(1)

	name := stringField(L, tbl, "name")
	typeName := stringField(L, tbl, "type")
	if name == "" || typeName == "" {
		L.RaiseError("prefkit.setting: name and type are required")
		return 0
	}

	def := fromLua(L.GetField(tbl, "default"))
	if def == nil {
		L.RaiseError("prefkit.setting: default is required")
		return 0
	}

	decl := extension.Declaration{
		Name:        c.ext + "." + name,
		Type:        c.qualify(typeName),
		Default:     def,
		Description: stringField(L, tbl, "description"),
	}
	if tags, ok := fromLua(L.GetField(tbl, "tags")).([]any); ok {
		for _, tag := range tags {
			if s, ok := tag.(string); ok {
				decl.Tags = append(decl.Tags, s)
			}
		}
	}

	c.settings = append(c.settings, decl)
	return 0
}

// qualify resolves a script-side type reference: built-in names pass
// through, anything else refers to a type declared by this extension.
func (c *collector) qualify(typeName string) string {
	switch typeName {
	case typesys.TypeNameString, typesys.TypeNameInteger, typesys.TypeNameNumber,
		typesys.TypeNameBoolean, typesys.TypeNameDuration:
		return typeName
	}
	return c.ext + "." + typeName
}

// declareType implements prefkit.type{...}.
func (c *collector) declareType(L *lua.LState) int {
	tbl := L.CheckTable(1)

	name := stringField(L, tbl, "name")
	if name == "" {
		L.RaiseError("prefkit.type: name is required")
		return 0
	}

	validate, ok := L.GetField(tbl, "validate").(*lua.LFunction)
	if !ok {
		L.RaiseError("prefkit.type: validate function is required")
		return 0
	}

	t := &luaType{
		name:     c.ext + "." + name,
		L:        c.L,
		mu:       c.stateMu,
		validate: validate,
	}
	if fn, ok := L.GetField(tbl, "parse").(*lua.LFunction); ok {
		t.parse = fn
	}
	if fn, ok := L.GetField(tbl, "serialize").(*lua.LFunction); ok {
		t.serialize = fn
	}

	c.types = append(c.types, t)
	return 0
}

func stringField(L *lua.LState, tbl *lua.LTable, key string) string {
	if s, ok := L.GetField(tbl, key).(lua.LString); ok {
		return string(s)
	}
	return ""
}

// newSandboxedState creates a state with only the safe libraries and
// the loading primitives removed, so scripts cannot touch the
// filesystem, network or process.
func newSandboxedState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	// Loading arbitrary code would bypass the sandbox.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}
