// Package refdevice is the reference vtable.Ops implementation: it
// gives every domain dependency (MQTT telemetry, Lua macro playback,
// a fake USB transport) a concrete home without pretending to encode
// a real USB wire protocol — RGB/DPI state lives in an in-memory map,
// "transport" is a fake that can be told to fail on command, and
// MACRO playback runs Lua scripts through a single-worker engine. It
// exists for tests and the demo binary, not for driving real hardware.
package refdevice

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"ckbcored/internal/device"
	"ckbcored/internal/notify"
	"ckbcored/internal/verb"
	"ckbcored/internal/vtable"
)

// Reference is a vtable.Ops implementation backed entirely by
// in-memory state.
type Reference struct {
	Transport *FakeTransport
	Telemetry *Telemetry
	Macros    *MacroEngine
	Notify    *notify.Registry

	mu     sync.Mutex
	rgb    map[int]string // key index -> colour word
	dpi    map[int]string
	bound  map[int]string // key index -> bound macro name
	dither int
}

// NewReference builds a Reference. telemetry and macros may be nil to
// disable those concerns entirely; notifier may be nil, in which case
// Get and other observer verbs merely log instead of writing to a
// channel.
func NewReference(telemetry *Telemetry, macros *MacroEngine, notifier *notify.Registry) *Reference {
	return &Reference{
		Transport: NewFakeTransport(),
		Telemetry: telemetry,
		Macros:    macros,
		Notify:    notifier,
		rgb:       make(map[int]string),
		dpi:       make(map[int]string),
		bound:     make(map[int]string),
	}
}

func (r *Reference) publish(d *device.Device, subtopic string, payload interface{}) {
	if r.Telemetry == nil {
		return
	}
	r.Telemetry.Publish(d.Name, subtopic, payload)
}

// Active implements vtable.Ops.
func (r *Reference) Active(d *device.Device, mode *device.Mode, channel int) error {
	if err := r.Transport.Fail(); err != nil {
		return err
	}
	d.Active = true
	r.publish(d, "active", true)
	return nil
}

// Idle implements vtable.Ops.
func (r *Reference) Idle(d *device.Device, mode *device.Mode, channel int) error {
	if err := r.Transport.Fail(); err != nil {
		return err
	}
	d.Active = false
	r.publish(d, "active", false)
	return nil
}

// Reset implements vtable.Ops. Reset itself is never retried so it ignores the fake transport's induced-failure queue.
func (r *Reference) Reset(d *device.Device, mode *device.Mode, channel int, word string) error {
	log.Printf("[Refdevice] %s: RESET %q", d.Name, word)
	return nil
}

// Get implements vtable.Ops by echoing a canned status string to the
// selected notification channel.
func (r *Reference) Get(d *device.Device, mode *device.Mode, channel int, word string) error {
	status := fmt.Sprintf("get %s active=%v", word, d.Active)
	if r.Notify != nil {
		r.Notify.Write(d, channel, status)
	}
	log.Printf("[Refdevice] %s: GET %q on channel %d -> active=%v", d.Name, word, channel, d.Active)
	return nil
}

// FWUpdate implements vtable.Ops. It never uses the retry harness:
// a failure here means the line aborts and the device is dropped.
func (r *Reference) FWUpdate(d *device.Device, mode *device.Mode, channel int, word string) error {
	log.Printf("[Refdevice] %s: FWUPDATE %q", d.Name, word)
	d.NeedsFWUpdate = true
	return nil
}

// EraseProfile implements vtable.Ops by installing a fresh profile.
func (r *Reference) EraseProfile(d *device.Device, mode *device.Mode, channel int) error {
	d.ReplaceProfile(device.NewProfile())
	r.mu.Lock()
	r.rgb = make(map[int]string)
	r.dpi = make(map[int]string)
	r.bound = make(map[int]string)
	r.mu.Unlock()
	log.Printf("[Refdevice] %s: profile erased", d.Name)
	return nil
}

// Macro implements vtable.Ops's bare "macro clear" case; the
// colon-split "macro <keys>:<name>" form goes through DoMacro instead.
func (r *Reference) Macro(d *device.Device, mode *device.Mode, channel int, key int, word string) error {
	if r.Macros != nil {
		r.Macros.Stop()
	}
	r.mu.Lock()
	r.bound = make(map[int]string)
	r.mu.Unlock()
	log.Printf("[Refdevice] %s: macros cleared", d.Name)
	return nil
}

// RGB implements vtable.Ops for the broadcast hex-literal form; the
// colon-split per-key form goes through DoCmd(verb.RGB) instead.
func (r *Reference) RGB(d *device.Device, mode *device.Mode, channel int, key int, word string) error {
	if err := r.Transport.Fail(); err != nil {
		return err
	}
	r.mu.Lock()
	r.rgb[key] = word
	r.mu.Unlock()
	if d.Debug && key >= 0 && key < device.NKeysExtended {
		d.EncounteredLEDs[key] = true
	}
	return nil
}

// PollRate implements vtable.Ops.
func (r *Reference) PollRate(d *device.Device, rate device.PollRate) error {
	if err := r.Transport.Fail(); err != nil {
		return err
	}
	log.Printf("[Refdevice] %s: poll rate set to %dms", d.Name, rate)
	return nil
}

// UpdateRGB implements vtable.Ops's post-line RGB flush. force re-sends every key regardless of whether it changed
// since the last flush; the reference implementation has no cheaper
// path to take, so force is only reflected in the published telemetry
// payload.
func (r *Reference) UpdateRGB(d *device.Device, force bool) error {
	if err := r.Transport.Fail(); err != nil {
		return err
	}
	r.mu.Lock()
	n := len(r.rgb)
	r.mu.Unlock()
	r.publish(d, "rgb", fmt.Sprintf("keys=%d force=%v", n, force))
	return nil
}

// UpdateDPI implements vtable.Ops's post-line DPI flush.
func (r *Reference) UpdateDPI(d *device.Device, force bool) error {
	if err := r.Transport.Fail(); err != nil {
		return err
	}
	r.mu.Lock()
	n := len(r.dpi)
	r.mu.Unlock()
	r.publish(d, "dpi", fmt.Sprintf("stages=%d force=%v", n, force))
	return nil
}

// SetModeIndex implements vtable.Ops's SWITCH side effect.
func (r *Reference) SetModeIndex(d *device.Device, index int) error {
	r.publish(d, "mode", index)
	if r.Notify != nil {
		r.Notify.Write(d, 0, fmt.Sprintf("mode %d", index))
	}
	return nil
}

// DoCmd implements vtable.Ops. It serves the whole-word direct family
// and the colon-split per-key RGB/Bind/Unbind/Rebind family.
func (r *Reference) DoCmd(v verb.Verb) vtable.HandlerFunc {
	switch v {
	case verb.RGB:
		return r.doPerKeyRGB
	case verb.Bind:
		return r.doBind
	case verb.Unbind:
		return r.doUnbind
	case verb.Rebind:
		return r.doRebind
	case verb.Name, verb.ProfileName, verb.ID, verb.ProfileID:
		return r.doLabel
	case verb.Erase, verb.IOff, verb.Ion, verb.IAuto, verb.INotify,
		verb.DPISel, verb.Lift, verb.Snap:
		return r.doLogOnly
	default:
		return nil
	}
}

// DoIO implements vtable.Ops for HWLOAD/HWSAVE.
func (r *Reference) DoIO(v verb.Verb) vtable.HandlerFunc {
	switch v {
	case verb.HWLoad, verb.HWSave:
		return func(d *device.Device, mode *device.Mode, channel int, key int, word string) error {
			if err := r.Transport.Fail(); err != nil {
				return err
			}
			log.Printf("[Refdevice] %s: %s", d.Name, strings.ToUpper(v.String()))
			return nil
		}
	default:
		return nil
	}
}

// DoMacro implements vtable.Ops for the MACRO/DPI colon-split family.
func (r *Reference) DoMacro(v verb.Verb) vtable.MacroFunc {
	switch v {
	case verb.Macro:
		return r.doMacroBind
	case verb.DPI:
		return r.doDPIStage
	default:
		return nil
	}
}

func (r *Reference) doPerKeyRGB(d *device.Device, mode *device.Mode, channel int, key int, word string) error {
	if err := r.Transport.Fail(); err != nil {
		return err
	}
	r.mu.Lock()
	r.rgb[key] = word
	r.mu.Unlock()
	if d.Debug && key >= 0 && key < device.NKeysExtended {
		d.EncounteredLEDs[key] = true
	}
	return nil
}

func (r *Reference) doBind(d *device.Device, mode *device.Mode, channel int, key int, word string) error {
	r.mu.Lock()
	r.bound[key] = word
	r.mu.Unlock()
	if r.Notify != nil {
		r.Notify.Write(d, channel, fmt.Sprintf("bind %d %s", key, word))
	}
	return nil
}

func (r *Reference) doUnbind(d *device.Device, mode *device.Mode, channel int, key int, word string) error {
	r.mu.Lock()
	delete(r.bound, key)
	r.mu.Unlock()
	if r.Notify != nil {
		r.Notify.Write(d, channel, fmt.Sprintf("unbind %d", key))
	}
	return nil
}

func (r *Reference) doRebind(d *device.Device, mode *device.Mode, channel int, key int, word string) error {
	return r.doBind(d, mode, channel, key, word)
}

func (r *Reference) doLabel(d *device.Device, mode *device.Mode, channel int, key int, word string) error {
	log.Printf("[Refdevice] %s: label set to %q", d.Name, word)
	return nil
}

func (r *Reference) doLogOnly(d *device.Device, mode *device.Mode, channel int, key int, word string) error {
	log.Printf("[Refdevice] %s: whole-word command, arg %q", d.Name, word)
	return nil
}

// doMacroBind handles "macro <keys>:<name>[.lua]": left is the raw,
// unresolved key-selector text (do_macro gets both halves verbatim,
// unlike do_cmd which only sees one resolved key at a time), right
// names the Lua script to play back through the macro engine.
func (r *Reference) doMacroBind(d *device.Device, mode *device.Mode, channel int, left, right string) error {
	r.mu.Lock()
	r.bound[hashKeySelector(left)] = right
	r.mu.Unlock()
	if r.Macros != nil {
		r.Macros.Play(right, hashKeySelector(left))
	}
	return nil
}

// doDPIStage handles "dpi <stage>:<x>,<y>" (or a bare "dpi <stage>:<n>"
// for symmetric sensitivity), storing the raw right-hand text.
func (r *Reference) doDPIStage(d *device.Device, mode *device.Mode, channel int, left, right string) error {
	if err := r.Transport.Fail(); err != nil {
		return err
	}
	stage, err := strconv.Atoi(left)
	if err != nil {
		stage = hashKeySelector(left)
	}
	r.mu.Lock()
	r.dpi[stage] = right
	r.mu.Unlock()
	return nil
}

// hashKeySelector folds an unresolved key-selector string into a
// stable int key for the bound/rgb maps when it isn't already a plain
// decimal stage number. It only needs to be stable and cheap, not
// collision-free across unrelated devices.
func hashKeySelector(s string) int {
	h := 0
	for _, c := range s {
		h = h*31 + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
