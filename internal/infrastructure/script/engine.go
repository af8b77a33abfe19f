// Package script evaluates flow transition conditions written in Lua.
//
// Conditions are expressions over a global `flags` table that the game fills
// through Set. Each condition is compiled once and evaluated in protected mode,
// so a runtime error surfaces as an error instead of a panic.
package script

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

const flagsTable = "flags"

// Engine wraps a single gopher-lua VM. Access is serialized.
type Engine struct {
	mu    sync.Mutex
	vm    *lua.LState
	flags *lua.LTable
	log   *zap.Logger
}

// NewEngine creates an engine with an empty flags table.
func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	flags := vm.NewTable()
	vm.SetGlobal(flagsTable, flags)
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	return &Engine{vm: vm, flags: flags, log: log.Named("script")}
}

// Close releases the VM.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}

// Exec runs a chunk, typically helper functions used by conditions.
func (e *Engine) Exec(src string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("failed to run script: %w", err)
	}
	return nil
}

// Set stores a flag. Supported values are nil, bool, string, and Go numbers.
func (e *Engine) Set(key string, v any) error {
	lv, err := toLua(v)
	if err != nil {
		return fmt.Errorf("flag %s: %w", key, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flags.RawSetString(key, lv)
	return nil
}

// Flag returns a flag as a Go value.
func (e *Engine) Flag(key string) any {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch v := e.flags.RawGetString(key).(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	default:
		return nil
	}
}

func toLua(v any) (lua.LValue, error) {
	switch x := v.(type) {
	case nil:
		return lua.LNil, nil
	case bool:
		return lua.LBool(x), nil
	case string:
		return lua.LString(x), nil
	case int:
		return lua.LNumber(x), nil
	case int64:
		return lua.LNumber(x), nil
	case float64:
		return lua.LNumber(x), nil
	default:
		return nil, fmt.Errorf("unsupported value %T", v)
	}
}

// Compile turns a boolean expression into a condition.
func (e *Engine) Compile(expr string) (*Condition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn, err := e.vm.LoadString("return " + expr)
	if err != nil {
		return nil, fmt.Errorf("failed to compile condition %q: %w", expr, err)
	}
	return &Condition{engine: e, src: expr, fn: fn}, nil
}

// Condition is a compiled Lua expression.
type Condition struct {
	engine *Engine
	src    string
	fn     *lua.LFunction
}

// Evaluate runs the expression. Lua truthiness applies: only nil and false
// are false.
func (c *Condition) Evaluate() (bool, error) {
	e := c.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.vm.CallByParam(lua.P{
		Fn:      c.fn,
		NRet:    1,
		Protect: true,
	}); err != nil {
		e.log.Debug("condition error", zap.String("condition", c.src), zap.Error(err))
		return false, err
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	return lua.LVAsBool(ret), nil
}

func (c *Condition) String() string {
	return c.src
}
