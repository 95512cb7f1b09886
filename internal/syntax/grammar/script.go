package grammar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/textmodel/internal/syntax/tokenizer"
)

// DefaultCallTimeout bounds each call into a grammar script.
const DefaultCallTimeout = 100 * time.Millisecond

// Script runs the Lua functions a grammar's rules refer to by name.
//
// A tokenFunc receives (value, groups, state) and returns one token type
// or a table of one type per group. A nextFunc receives (current, stack)
// and returns the next state and optionally a new stack table.
//
// Only the base, table, string and math libraries are loaded.
type Script struct {
	mu      sync.Mutex
	L       *lua.LState
	timeout time.Duration
	logger  *slog.Logger
	closed  bool
}

// ScriptOption configures a Script.
type ScriptOption func(*Script)

// WithCallTimeout bounds each script call.
func WithCallTimeout(d time.Duration) ScriptOption {
	return func(s *Script) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithScriptLogger sets the logger.
func WithScriptLogger(l *slog.Logger) ScriptOption {
	return func(s *Script) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScript runs source in a fresh sandboxed state.
func NewScript(source string, opts ...ScriptOption) (*Script, error) {
	s := &Script{
		timeout: DefaultCallTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	s.L = L

	if err := s.do(func() error { return L.DoString(source) }); err != nil {
		L.Close()
		return nil, fmt.Errorf("running grammar script: %w", err)
	}
	return s, nil
}

// do runs fn under the call timeout with panic recovery. The caller holds
// no lock.
func (s *Script) do(fn func() error) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// HasFunction reports whether name is a global function.
func (s *Script) HasFunction(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	return s.L.GetGlobal(name).Type() == lua.LTFunction
}

// call invokes the global function name and returns its results.
func (s *Script) call(name string, nret int, args ...lua.LValue) ([]lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrScriptClosed
	}

	fn := s.L.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	err := s.do(func() error {
		return s.L.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...)
	})
	if err != nil {
		return nil, err
	}
	out := make([]lua.LValue, nret)
	for i := nret - 1; i >= 0; i-- {
		out[i] = s.L.Get(-1)
		s.L.Pop(1)
	}
	return out, nil
}

func (s *Script) stringList(values []string) *lua.LTable {
	t := s.L.NewTable()
	for _, v := range values {
		t.Append(lua.LString(v))
	}
	return t
}

func fromList(v lua.LValue) ([]string, bool) {
	t, ok := v.(*lua.LTable)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, t.Len())
	for i := 1; i <= t.Len(); i++ {
		out = append(out, lua.LVAsString(t.RawGetInt(i)))
	}
	return out, true
}

// Classification wraps the tokenFunc name. A failing call classifies the
// match as text.
func (s *Script) Classification(name string) tokenizer.Computed {
	return func(m tokenizer.Match) []string {
		s.mu.Lock()
		groups := s.stringList(m.Groups)
		s.mu.Unlock()

		res, err := s.call(name, 1, lua.LString(m.Value), groups, lua.LString(m.State.Current()))
		if err != nil {
			s.logger.Warn("grammar token function failed", "function", name, "error", err)
			return []string{tokenizer.TypeText}
		}
		if types, ok := fromList(res[0]); ok {
			return types
		}
		if str, ok := res[0].(lua.LString); ok {
			return []string{string(str)}
		}
		s.logger.Warn("grammar token function returned no type", "function", name, "value", res[0].String())
		return []string{tokenizer.TypeText}
	}
}

// Transition wraps the nextFunc name. A failing call leaves the state
// unchanged.
func (s *Script) Transition(name string) tokenizer.NextFunc {
	return func(current string, stack []string) (string, []string) {
		s.mu.Lock()
		st := s.stringList(stack)
		s.mu.Unlock()

		res, err := s.call(name, 2, lua.LString(current), st)
		if err != nil {
			s.logger.Warn("grammar next function failed", "function", name, "error", err)
			return current, stack
		}
		next, ok := res[0].(lua.LString)
		if !ok {
			s.logger.Warn("grammar next function returned no state", "function", name, "value", res[0].String())
			return current, stack
		}
		if newStack, ok := fromList(res[1]); ok {
			stack = newStack
		}
		return string(next), stack
	}
}

// Close releases the Lua state.
func (s *Script) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.L.Close()
		s.closed = true
	}
}
