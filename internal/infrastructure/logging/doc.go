// Package logging wraps log/slog for Switchboard Core.
//
// New builds the single Logger the rest of the application shares, from
// the logging section of the config:
//
//	logging:
//	  level: "info"    # debug, info, warn, error
//	  format: "json"   # json for machines, text for humans
//	  output: "stdout" # or stderr
//
// Every entry carries service and version fields. Components derive
// their own child via With:
//
//	log := logger.With("component", "dispatcher")
//	log.Info("event submitted", "event_id", evt.ID)
//
// Secrets never go into log fields. When a credential has to be
// referenced at all, log a short prefix, not the value.
package logging
