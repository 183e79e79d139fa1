package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/nerrad567/switchboard-core/internal/action"
	"github.com/nerrad567/switchboard-core/internal/event"
	"github.com/nerrad567/switchboard-core/internal/globals"
)

// ScriptAction returns a leaf action that runs source as a sandboxed Lua
// script. Each execution builds a fresh interpreter, so concurrent runs
// never share Lua state.
//
// The script sees a global `sb` table:
//
//	sb.event            trigger event (nil for manual runs): id, type,
//	                    source, payload, text, timestamp
//	sb.globals.get(k)   stored global as a native Lua value, or nil
//	sb.globals.set(k,v) store a global, kind picked from the Lua type
//	sb.globals.exists(k)
//	sb.globals.delete(k)
//	sb.trigger(v)       submit a plugin event carrying v, returns its id
//
// print output lands in the host log. The interpreter carries the run
// context, so a cancelled run interrupts the script mid-execution; the
// action treats that interruption as a clean stop, not a failure.
func (p *Plugin) ScriptAction(name, description, source string) *action.Item {
	return action.NewItem(name, description, p.ID(), p.scriptBehaviour(name, source))
}

func (p *Plugin) scriptBehaviour(name, source string) action.Behaviour {
	return func(execCtx *action.ExecutionContext) error {
		L := newScriptState()
		defer L.Close()
		L.SetContext(execCtx.Context())

		p.installBridge(L, execCtx)

		started := time.Now()
		if err := L.DoString(source); err != nil {
			if execCtx.Cancelled() {
				return nil
			}
			return fmt.Errorf("script %q: %w", name, err)
		}
		p.logger.Debug("script completed",
			"script", name,
			"duration_ms", time.Since(started).Milliseconds(),
		)
		return nil
	}
}

// newScriptState builds a fresh interpreter with the base, table, string
// and math libraries and no way to reach the filesystem or load further
// chunks.
func newScriptState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// The base library brings the chunk loaders along; scripts get none
	// of them.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

// installBridge wires the host into the interpreter for one execution.
func (p *Plugin) installBridge(L *lua.LState, execCtx *action.ExecutionContext) {
	sb := L.NewTable()
	if evt, ok := execCtx.Event(); ok {
		L.SetField(sb, "event", eventTable(L, evt))
	}
	L.SetField(sb, "globals", p.globalsModule(L, execCtx))
	L.SetField(sb, "trigger", L.NewFunction(p.triggerFunc(execCtx)))
	L.SetGlobal("sb", sb)

	L.SetGlobal("print", L.NewFunction(p.printFunc()))
}

// eventTable renders the trigger event for script consumption.
func eventTable(L *lua.LState, evt event.Event) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "id", lua.LString(evt.ID))
	L.SetField(t, "type", lua.LString(string(evt.Type)))
	L.SetField(t, "source", lua.LString(evt.Source))
	L.SetField(t, "payload", payloadValue(L, evt.Payload))
	L.SetField(t, "text", lua.LString(evt.Payload.Text()))
	L.SetField(t, "timestamp", lua.LString(evt.Timestamp.Format(time.RFC3339Nano)))
	return t
}

// globalsModule exposes the globals store. Store failures other than a
// plain miss raise Lua errors, failing the script unless it pcalls.
func (p *Plugin) globalsModule(L *lua.LState, execCtx *action.ExecutionContext) *lua.LTable {
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"get": func(L *lua.LState) int {
			key := L.CheckString(1)
			value, err := p.store.Get(execCtx.Context(), key)
			if errors.Is(err, globals.ErrNotFound) {
				L.Push(lua.LNil)
				return 1
			}
			if err != nil {
				L.RaiseError("globals.get %s: %s", key, err)
				return 0
			}
			L.Push(globalValue(L, value))
			return 1
		},
		"set": func(L *lua.LState) int {
			key := L.CheckString(1)
			value, err := globalFromLua(L.CheckAny(2))
			if err != nil {
				L.ArgError(2, err.Error())
				return 0
			}
			if err := p.store.Set(execCtx.Context(), key, value); err != nil {
				L.RaiseError("globals.set %s: %s", key, err)
			}
			return 0
		},
		"exists": func(L *lua.LState) int {
			key := L.CheckString(1)
			exists, err := p.store.Exists(execCtx.Context(), key)
			if err != nil {
				L.RaiseError("globals.exists %s: %s", key, err)
				return 0
			}
			L.Push(lua.LBool(exists))
			return 1
		},
		"delete": func(L *lua.LState) int {
			key := L.CheckString(1)
			if err := p.store.Delete(execCtx.Context(), key); err != nil {
				L.RaiseError("globals.delete %s: %s", key, err)
			}
			return 0
		},
	})
}

// triggerFunc submits a plugin event built from the script's argument and
// returns the new event's id.
func (p *Plugin) triggerFunc(execCtx *action.ExecutionContext) lua.LGFunction {
	return func(L *lua.LState) int {
		payload, err := payloadFromLua(L.Get(1))
		if err != nil {
			L.ArgError(1, err.Error())
			return 0
		}
		evt := event.New(event.TypePlugin, payload, ScriptSource)
		if _, err := p.bus.Submit(execCtx.Context(), evt); err != nil {
			L.RaiseError("trigger: %s", err)
			return 0
		}
		L.Push(lua.LString(evt.ID))
		return 1
	}
}

// printFunc routes script print output to the host log, tab-joined like
// Lua's own print.
func (p *Plugin) printFunc() lua.LGFunction {
	return func(L *lua.LState) int {
		top := L.GetTop()
		parts := make([]string, 0, top)
		for i := 1; i <= top; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		p.logger.Info("script output", "message", strings.Join(parts, "\t"))
		return 0
	}
}
