// Package core provides the built-in core automation plugin: the action
// factories macros are assembled from and a debug handler that traces
// every dispatched event.
//
// Actions are created through the plugin so they carry its reserved ID
// and its wiring to the dispatcher and the globals store:
//
//	p := core.New(dispatcher, store)
//	macro.Root = action.NewGroup("morning", "", p.ID(),
//	    p.SetGlobalAction("mark", "", "last_wake", globals.StringValue("alarm")),
//	    p.ScriptAction("announce", "", `sb.trigger("coffee")`),
//	)
//
// Scripts run in a throwaway Lua interpreter with the base, table, string
// and math libraries only. There is no filesystem, no process access and
// no chunk loading; the host is reachable solely through the sb bridge
// described on ScriptAction.
package core
