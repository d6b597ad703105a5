// Package vtable defines the device operations interface the command
// core invokes. It is deliberately thin: every method
// returns only a success/failure signal, never exposing how a given
// device family lays out its wire protocol. Concrete implementations —
// one per supported keyboard/mouse model — live outside this module;
// internal/refdevice ships a reference implementation used by tests
// and the demo binary.
package vtable

import (
	"ckbcored/internal/device"
	"ckbcored/internal/verb"
)

// HandlerFunc is the common shape for most vtable calls: it receives
// the device, the mode the command applies to, the notification
// channel selected for this line, a key index or flag (-1/0 when
// unused), and the argument word (or the right-hand half after a
// colon split). It returns nil on success, non-zero-equivalent error
// on transient failure — the retry harness in internal/command treats
// any non-nil error as "ask the transport to reset and try again".
type HandlerFunc func(d *device.Device, mode *device.Mode, channel int, key int, word string) error

// MacroFunc is the two-sided handler used for MACRO/DPI colon-split
// arguments: it receives the left and right halves
// separately instead of a resolved key index.
type MacroFunc func(d *device.Device, mode *device.Mode, channel int, left, right string) error

// Ops is the vtable contract. The core never inspects an
// implementation's internals — only the error each call returns.
type Ops interface {
	Active(d *device.Device, mode *device.Mode, channel int) error
	Idle(d *device.Device, mode *device.Mode, channel int) error
	Reset(d *device.Device, mode *device.Mode, channel int, word string) error
	Get(d *device.Device, mode *device.Mode, channel int, word string) error
	FWUpdate(d *device.Device, mode *device.Mode, channel int, word string) error
	EraseProfile(d *device.Device, mode *device.Mode, channel int) error
	Macro(d *device.Device, mode *device.Mode, channel int, key int, word string) error
	RGB(d *device.Device, mode *device.Mode, channel int, key int, word string) error

	PollRate(d *device.Device, rate device.PollRate) error
	UpdateRGB(d *device.Device, force bool) error
	UpdateDPI(d *device.Device, force bool) error
	SetModeIndex(d *device.Device, index int) error

	// DoCmd looks up the whole-word/per-key handler for verb, or nil
	// if this implementation doesn't support it.
	DoCmd(v verb.Verb) HandlerFunc
	// DoIO looks up the HWLOAD/HWSAVE handler for verb.
	DoIO(v verb.Verb) HandlerFunc
	// DoMacro looks up the MACRO/DPI colon-split handler for verb.
	DoMacro(v verb.Verb) MacroFunc
}

// Transport is the USB-reset side channel the retry harness calls on
// a transient vtable failure. It is separate from Ops
// because reset is a property of the physical link, not of any one
// device command.
type Transport interface {
	TryReset(d *device.Device) error
}
