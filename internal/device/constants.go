// Package device holds the per-attached-device data model: features,
// profiles, modes, bindings, and the keymap. It owns no I/O; the vtable
// package defines how the core reaches out to the physical device.
package device

// Platform-defined constants. Real deployments size these
// per device family; the values below are reasonable defaults for a
// full-size extended keyboard. They are compile-time constants shared
// by every device; NewDevice's opts do not change them.
const (
	ModeCount        = 6
	OutfifoMax       = 16
	NKeysExtended    = 196
	ScrollMin        = 0
	ScrollMax        = 30
	ScrollAccelerated = -1

	USBDelayMin = 2
	USBDelayMax = 10
)

// PollRate enumerates the USB polling intervals a device can run at,
// ordered from slowest to fastest so numeric comparison (POLLRATE)
// rejects anything faster than a device's MaxPollRate.
type PollRate int

const (
	PollRateUnknown PollRate = iota
	PollRate8ms
	PollRate4ms
	PollRate2ms
	PollRate1ms
	PollRate05ms
	PollRate025ms
	PollRate01ms
)

// PollRateByToken maps the seven literal POLLRATE argument strings to
// their enum value.
var PollRateByToken = map[string]PollRate{
	"8":    PollRate8ms,
	"4":    PollRate4ms,
	"2":    PollRate2ms,
	"1":    PollRate1ms,
	"0.5":  PollRate05ms,
	"0.25": PollRate025ms,
	"0.1":  PollRate01ms,
}

// Platform selects which legacy/host-specific verbs are live. LAYOUT
// is demoted to a no-op at recognition time on PlatformLinux;
// ACCEL/SCROLLSPEED are demoted on every platform but
// PlatformMacLegacy.
type Platform int

const (
	PlatformLinux Platform = iota
	PlatformMac
	PlatformMacLegacy
)
