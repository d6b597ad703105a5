package device

import (
	"sync"
	"time"
)

// Device is the per-attached-device context.
type Device struct {
	Name string

	Features      FeatureSet
	Active        bool
	NeedsFWUpdate bool
	Debug         bool

	USBDelayMS  int
	Dither      int
	ScrollRate  int
	MaxPollRate PollRate

	IsMouse     bool
	IsFullRange bool
	Platform    Platform

	Keymap          [NKeysExtended]KeymapEntry
	LastRGB         time.Time
	EncounteredLEDs [NKeysExtended]bool

	Profile *Profile

	// VTable holds a vtable.Ops implementation. Typed as any here to
	// avoid an import cycle (vtable.Ops methods take *Device); callers
	// that have both packages imported type-assert it, e.g.
	// d.VTable.(vtable.Ops).
	VTable any

	imutex sync.Mutex
}

// Option configures a Device at construction time.
type Option func(*Device)

// WithFeatures sets the initial feature bitset.
func WithFeatures(f FeatureSet) Option { return func(d *Device) { d.Features = f } }

// WithMouse marks the device as a mouse (affects FPS's per_frame
// divisor).
func WithMouse(isMouse bool) Option { return func(d *Device) { d.IsMouse = isMouse } }

// WithFullRange marks the device as a full-range keyboard.
func WithFullRange(isFullRange bool) Option { return func(d *Device) { d.IsFullRange = isFullRange } }

// WithMaxPollRate sets the device's poll-rate ceiling.
func WithMaxPollRate(r PollRate) Option { return func(d *Device) { d.MaxPollRate = r } }

// WithPlatform sets which legacy verbs are live.
func WithPlatform(p Platform) Option { return func(d *Device) { d.Platform = p } }

// WithDebug enables the encountered-LEDs scratch bookkeeping.
func WithDebug(debug bool) Option { return func(d *Device) { d.Debug = debug } }

// NewDevice builds a device in its initial state: inactive, firmware
// OK, usb delay at its minimum, layout defaulted to ANSI, profile with
// a single fresh Profile.
func NewDevice(name string, opts ...Option) *Device {
	d := &Device{
		Name:       name,
		Features:   FeatAnsi,
		USBDelayMS: USBDelayMin,
		Profile:    NewProfile(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// SetVTable attaches the device operations interface. Kept as a method
// (rather than a constructor option) so daemon wiring can attach it
// after both the device and its driver need to reference each other.
func (d *Device) SetVTable(ops any) { d.VTable = ops }

// ClampUSBDelay keeps USBDelayMS inside [USBDelayMin, USBDelayMax].
func (d *Device) ClampUSBDelay() {
	if d.USBDelayMS < USBDelayMin {
		d.USBDelayMS = USBDelayMin
	} else if d.USBDelayMS > USBDelayMax {
		d.USBDelayMS = USBDelayMax
	}
}

// Lock acquires the mode-switch mutex.
func (d *Device) Lock() { d.imutex.Lock() }

// Unlock releases the mode-switch mutex.
func (d *Device) Unlock() { d.imutex.Unlock() }

// SetCurrentMode commits mode as the profile's current mode under
// imutex, clearing the outgoing mode's triggered macro flags first.
// Returns the 0-based index of the new current mode for SetModeIndex.
func (d *Device) SetCurrentMode(mode *Mode) int {
	d.Lock()
	defer d.Unlock()
	d.Profile.CurrentMode.Binding.ClearTriggered()
	d.Profile.CurrentMode = mode
	return d.Profile.IndexOf(mode)
}

// ReplaceProfile installs a freshly erased profile, invalidating any
// previously captured *Profile/*Mode pointers — callers must re-fetch
// through Device.Profile / Device.Profile.CurrentMode afterward
// (see ERASEPROFILE).
func (d *Device) ReplaceProfile(p *Profile) { d.Profile = p }
