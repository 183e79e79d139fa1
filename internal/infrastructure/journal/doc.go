// Package journal records Switchboard activity in InfluxDB.
//
// Two measurements are written: "events" (one point per dispatched event,
// tagged by type and source) and "macro_runs" (one point per finished run,
// tagged by macro and final status, carrying the duration). Writes are
// batched and non-blocking; failures surface through an error callback
// rather than to the caller, so a slow or absent InfluxDB never stalls
// dispatch or macro execution.
//
// The journal is optional. When disabled in configuration, Connect returns
// ErrDisabled and callers run without it; the SQLite event log and run
// history remain the durable records either way.
//
// Usage:
//
//	client, err := journal.Connect(cfg.InfluxDB)
//	if err != nil {
//	    // journal.ErrDisabled is expected when turned off
//	}
//	defer client.Close()
//
//	dispatcher.RegisterHandler(journal.NewEventHandler(client))
//	engine := macro.NewEngine(registry, repo, hub, client, logger)
package journal
