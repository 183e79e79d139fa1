package journal

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/switchboard-core/internal/event"
	"github.com/nerrad567/switchboard-core/internal/macro"
)

var _ macro.RunJournal = (*Client)(nil)

// RecordEvent writes one dispatched event to the journal.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Event type and source become tags so dashboards can break activity down
// by emitter.
//
// Example:
//
//	client.RecordEvent(evt) // point: events,event_type=keypress,source=remote
func (c *Client) RecordEvent(evt event.Event) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{
		"event_type": string(evt.Type),
	}
	if evt.Source != "" {
		tags["source"] = evt.Source
	}

	point := write.NewPoint(
		"events",
		tags,
		map[string]any{
			"count":   1,
			"payload": evt.Payload.Text(),
		},
		evt.Timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// RecordRun writes one finished macro run to the journal.
//
// Satisfies the run journal interface consumed by the macro engine, which
// calls it once per run after the final state is known.
//
// Parameters:
//   - macroID: The macro the run belonged to
//   - macroName: Human-readable name, stored as a field to keep tag cardinality low
//   - status: Final run status (completed, failed, cancelled)
//   - duration: Wall-clock run time
func (c *Client) RecordRun(macroID, macroName string, status macro.RunStatus, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"macro_runs",
		map[string]string{
			"macro_id": macroID,
			"status":   string(status),
		},
		map[string]any{
			"duration_ms": duration.Milliseconds(),
			"macro_name":  macroName,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods, such as
// plugin-specific telemetry.
//
// Example:
//
//	client.WritePoint("plugin_stats",
//	    map[string]string{"plugin_id": id},
//	    map[string]any{"events_emitted": 17})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., replayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
