package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemStatus represents the complete system status response.
type SystemStatus struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeStatus    `json:"runtime"`
	WebSocket     WSStatus         `json:"websocket"`
	Plugins       PluginStatus     `json:"plugins"`
	Macros        MacroStatus      `json:"macros"`
	Dispatcher    DispatcherStatus `json:"dispatcher"`
}

// RuntimeStatus contains Go runtime statistics.
type RuntimeStatus struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSStatus contains WebSocket hub statistics.
type WSStatus struct {
	ConnectedClients int `json:"connected_clients"`
}

// PluginStatus contains plugin registry statistics.
type PluginStatus struct {
	Total   int            `json:"total"`
	ByState map[string]int `json:"by_state"`
}

// MacroStatus contains macro registry and engine statistics.
type MacroStatus struct {
	Total      int `json:"total"`
	Enabled    int `json:"enabled"`
	ActiveRuns int `json:"active_runs"`
}

// DispatcherStatus contains event dispatcher statistics.
type DispatcherStatus struct {
	Handlers int `json:"handlers"`
}

// handleStatus returns a snapshot of the whole engine: runtime stats plus
// per-subsystem counts.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	status := SystemStatus{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeStatus{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Dispatcher: DispatcherStatus{
			Handlers: s.dispatcher.HandlerCount(),
		},
	}

	if s.hub != nil {
		status.WebSocket = WSStatus{ConnectedClients: s.hub.ClientCount()}
	}

	// Plugin registry stats
	infos := s.plugins.List()
	status.Plugins = PluginStatus{
		Total:   len(infos),
		ByState: make(map[string]int),
	}
	for _, info := range infos {
		status.Plugins.ByState[string(info.State)]++
	}

	// Macro registry and engine stats
	macros := s.macros.List()
	status.Macros = MacroStatus{
		Total:      len(macros),
		ActiveRuns: s.engine.ActiveRunCount(),
	}
	for _, m := range macros {
		if m.Enabled {
			status.Macros.Enabled++
		}
	}

	writeJSON(w, http.StatusOK, status)
}
