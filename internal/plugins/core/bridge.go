package core

import (
	"encoding/json"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/nerrad567/switchboard-core/internal/event"
	"github.com/nerrad567/switchboard-core/internal/globals"
)

// luaToGo converts a Lua value into the shapes encoding/json understands.
// Tables with contiguous 1..n integer keys become slices, anything else a
// map. Cycles are broken by dropping the repeated table.
func luaToGo(lv lua.LValue) any {
	return luaToGoVisited(lv, map[*lua.LTable]bool{})
}

func luaToGoVisited(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		return tableToGo(v, visited)
	default:
		return nil
	}
}

func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	n := t.Len()
	count := 0
	arraylike := n > 0
	t.ForEach(func(k, _ lua.LValue) {
		count++
		kn, ok := k.(lua.LNumber)
		if !ok || float64(kn) != float64(int(kn)) || int(kn) < 1 || int(kn) > n {
			arraylike = false
		}
	})

	if arraylike && count == n {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = luaToGoVisited(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		m[k.String()] = luaToGoVisited(v, visited)
	})
	return m
}

// goToLua converts a JSON-decoded Go value into its Lua counterpart.
func goToLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case float64:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		t := L.NewTable()
		for i, item := range val {
			t.RawSetInt(i+1, goToLua(L, item))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		for key, item := range val {
			t.RawSetString(key, goToLua(L, item))
		}
		return t
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}

// globalValue renders a stored global as a native Lua value. JSON values
// decode into tables; binary values arrive as Lua strings, which carry
// arbitrary bytes.
func globalValue(L *lua.LState, v globals.Value) lua.LValue {
	switch v.Kind() {
	case globals.KindString:
		s, _ := v.AsString()
		return lua.LString(s)
	case globals.KindInteger:
		n, _ := v.AsInteger()
		return lua.LNumber(n)
	case globals.KindFloat:
		f, _ := v.AsFloat()
		return lua.LNumber(f)
	case globals.KindBoolean:
		b, _ := v.AsBoolean()
		return lua.LBool(b)
	case globals.KindBinary:
		data, _ := v.AsBinary()
		return lua.LString(data)
	case globals.KindJSON:
		raw, _ := v.AsJSON()
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return lua.LString(string(raw))
		}
		return goToLua(L, decoded)
	default:
		return lua.LNil
	}
}

// globalFromLua picks the stored kind from the Lua type: booleans,
// integral numbers, fractional numbers and strings map to their obvious
// kinds, tables are stored as JSON.
func globalFromLua(lv lua.LValue) (globals.Value, error) {
	switch v := lv.(type) {
	case lua.LBool:
		return globals.BooleanValue(bool(v)), nil
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return globals.IntegerValue(int64(f)), nil
		}
		return globals.FloatValue(f), nil
	case lua.LString:
		return globals.StringValue(string(v)), nil
	case *lua.LTable:
		raw, err := json.Marshal(luaToGo(v))
		if err != nil {
			return globals.Value{}, fmt.Errorf("table not representable as JSON: %w", err)
		}
		return globals.JSONValue(raw), nil
	default:
		return globals.Value{}, fmt.Errorf("unsupported type %s", lv.Type())
	}
}

// payloadFromLua builds an event payload from a Lua value. Nil or a
// missing argument yields the empty payload; tables become custom JSON
// payloads.
func payloadFromLua(lv lua.LValue) (event.Payload, error) {
	switch v := lv.(type) {
	case *lua.LNilType:
		return event.EmptyPayload(), nil
	case lua.LBool:
		return event.BooleanPayload(bool(v)), nil
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return event.NumberPayload(int64(f)), nil
		}
		return event.FloatPayload(f), nil
	case lua.LString:
		return event.TextPayload(string(v)), nil
	case *lua.LTable:
		raw, err := json.Marshal(luaToGo(v))
		if err != nil {
			return event.Payload{}, fmt.Errorf("table not representable as JSON: %w", err)
		}
		return event.CustomPayload(raw), nil
	default:
		return event.Payload{}, fmt.Errorf("unsupported type %s", lv.Type())
	}
}

// payloadValue renders an event payload as a native Lua value.
func payloadValue(L *lua.LState, p event.Payload) lua.LValue {
	switch p.Kind() {
	case event.PayloadText:
		s, _ := p.AsText()
		return lua.LString(s)
	case event.PayloadNumber:
		n, _ := p.AsNumber()
		return lua.LNumber(n)
	case event.PayloadFloat:
		f, _ := p.AsFloat()
		return lua.LNumber(f)
	case event.PayloadBoolean:
		b, _ := p.AsBoolean()
		return lua.LBool(b)
	case event.PayloadCustom:
		raw, _ := p.AsCustom()
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return lua.LString(string(raw))
		}
		return goToLua(L, decoded)
	default:
		return lua.LNil
	}
}
