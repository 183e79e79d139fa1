package plugin

// Reserved plugin IDs claimed by the built-in plugins. Register rejects
// them; the host installs the built-ins via RegisterBuiltin.
const (
	// CorePluginID identifies the core automation plugin (script,
	// trigger-event and set-global actions, debug event handler).
	CorePluginID = "{9D499A2C-72B6-40B0-8C8C-995831B10BB4}"

	// SystemPluginID identifies the system plugin (startup/shutdown
	// events).
	SystemPluginID = "{A21F443B-221D-44E4-8596-E1ED7100E0A4}"

	// WindowPluginID identifies the window plugin.
	WindowPluginID = "{E974D074-B0A3-4D0C-BBD1-992475DDD69D}"

	// MousePluginID identifies the mouse plugin.
	MousePluginID = "{6B1751BF-F94E-4260-AB7E-64C0693FD959}"
)

// ReservedIDs returns the plugin IDs reserved for built-ins.
func ReservedIDs() []string {
	return []string{CorePluginID, SystemPluginID, WindowPluginID, MousePluginID}
}

// IsReservedID reports whether id is reserved for a built-in plugin.
func IsReservedID(id string) bool {
	switch id {
	case CorePluginID, SystemPluginID, WindowPluginID, MousePluginID:
		return true
	}
	return false
}
