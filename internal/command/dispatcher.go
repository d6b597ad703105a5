// Package command implements the per-device command interpreter:
// the tokenizer, notification-channel selector, gate, dispatcher,
// retry-with-reset harness, and post-line RGB/DPI flush. It is the
// hard part of the daemon — everything else (device discovery, USB
// transport, concrete per-model vtables) is an external collaborator
// reached only through the interfaces in internal/vtable.
package command

import (
	"fmt"
	"log"
	"regexp"
	"strconv"

	"ckbcored/internal/device"
	"ckbcored/internal/vtable"
	"ckbcored/internal/verb"
)

// HertzLim is the minimum spacing, in nanoseconds, between two RGB
// flushes: 16,528,925 ns, approximately 60.5 Hz.
const HertzLim = 16_528_925

var rgbHexRe = regexp.MustCompile(`^[0-9a-f]{6}$`)

// Dispatcher processes command lines against a device. One Dispatcher
// can safely serve many devices as long as each device's lines are
// only ever fed to ProcessLine from a single goroutine at a time.
type Dispatcher struct {
	// OutfifoMax bounds the @N notification-channel selector.
	OutfifoMax int
	// Notifier handles NOTIFYON/NOTIFYOFF node lifecycle.
	Notifier Notifier
	// Transport supplies the USB reset the retry harness calls on a
	// transient vtable failure.
	Transport vtable.Transport
	// Logger receives the one user-visible error case: POLLRATE
	// requested above a device's max poll rate. Defaults to
	// log.Default() when nil.
	Logger *log.Logger
}

func (disp *Dispatcher) logger() *log.Logger {
	if disp.Logger != nil {
		return disp.Logger
	}
	return log.Default()
}

func (disp *Dispatcher) outfifoMax() int {
	if disp.OutfifoMax > 0 {
		return disp.OutfifoMax
	}
	return device.OutfifoMax
}

func (disp *Dispatcher) notifier() Notifier {
	if disp.Notifier != nil {
		return disp.Notifier
	}
	return NoopNotifier{}
}

// ProcessLine parses and executes one command line against d. It
// returns nil when the line was fully processed (even if individual
// words were silently rejected) and a non-nil error when the
// device is unrecoverable and the caller should drop it.
func (disp *Dispatcher) ProcessLine(d *device.Device, line string) error {
	ops, ok := d.VTable.(vtable.Ops)
	if !ok || ops == nil {
		return fmt.Errorf("command: device %q has no vtable attached", d.Name)
	}

	profile := d.Profile
	mode := profile.CurrentMode
	channel := 0
	current := verb.None

	for _, word := range Tokenize(line) {
		if v := verb.Lookup(word); v != verb.None {
			v = demotePlatformVerb(v, d.Platform)
			current = v
			if !verb.IsAction(v) {
				// Non-action verb: record it as pending and wait for
				// the next word to supply its argument.
				continue
			}
			// Action verb: word itself carries no data, fall through
			// to gate+dispatch using word only because handlers for
			// action verbs ignore it.
		} else if n, isSelector := parseNotifyToken(word, disp.outfifoMax()); isSelector {
			channel = n
			continue
		}
		// word is now either an action verb's own text, or the
		// argument to whatever verb is pending in `current`.

		if !disp.admit(d, current) {
			continue
		}

		if disp.dispatchAlwaysAvailable(d, ops, &profile, &mode, channel, current, word) {
			continue
		}

		if !d.Active {
			if current == verb.Active {
				if err := tryWithReset(d, disp.reset, func() error { return ops.Active(d, mode, channel) }); err != nil {
					return err
				}
			}
			continue
		}

		if handled, err := disp.dispatchActiveOnly(d, ops, &profile, &mode, channel, current, word); handled {
			if err != nil {
				return err
			}
			continue
		}
	}

	return disp.flush(d, ops, current)
}

// admit is the gate: a word is admissible iff its verb
// is not None, its capability requirements are satisfied, and either
// the device doesn't need a firmware update or the verb is one of the
// few allowed while bricked.
func (disp *Dispatcher) admit(d *device.Device, v verb.Verb) bool {
	if v == verb.None {
		return false
	}
	if req := verb.RequiredFeature(v); req != verb.FeatureNone && !d.Features.Has(requiredFlag(req)) {
		return false
	}
	if d.NeedsFWUpdate && !verb.IsFWUpdateOnly(v) {
		return false
	}
	return true
}

func requiredFlag(f verb.Feature) device.FeatureSet {
	switch f {
	case verb.FeatureBind:
		return device.FeatBind
	case verb.FeatureNotify:
		return device.FeatNotify
	case verb.FeatureAdjRate:
		return device.FeatAdjRate
	default:
		return 0
	}
}

// demotePlatformVerb silently drops verbs that only exist on a
// platform other than d's.
func demotePlatformVerb(v verb.Verb, platform device.Platform) verb.Verb {
	switch v {
	case verb.Layout:
		if platform == device.PlatformLinux {
			return verb.None
		}
	case verb.Accel, verb.ScrollSpeed:
		if platform != device.PlatformMacLegacy {
			return verb.None
		}
	}
	return v
}

func (disp *Dispatcher) reset(d *device.Device) error {
	if disp.Transport == nil {
		return fmt.Errorf("command: no transport configured to reset %q", d.Name)
	}
	return disp.Transport.TryReset(d)
}

// dispatchAlwaysAvailable handles the always-available family:
// verbs handled before the activation gate, so they run even when the
// device is idle. While the device needs a firmware update, admit has
// already dropped all of them except NOTIFYON/NOTIFYOFF/RESET. Reports
// whether it handled (and thus fully consumed) the current verb.
func (disp *Dispatcher) dispatchAlwaysAvailable(d *device.Device, ops vtable.Ops, profile **device.Profile, mode **device.Mode, channel int, v verb.Verb, word string) bool {
	switch v {
	case verb.NotifyOn:
		if n, err := strconv.Atoi(word); err == nil {
			disp.notifier().Create(d, n)
		}
		return true
	case verb.NotifyOff:
		if n, err := strconv.Atoi(word); err == nil && n != 0 {
			disp.notifier().Destroy(d, n)
		}
		return true
	case verb.Get:
		_ = ops.Get(d, *mode, channel, word)
		return true
	case verb.Layout:
		switch word {
		case "ansi":
			d.Features = d.Features.SetLayout(true)
		case "iso":
			d.Features = d.Features.SetLayout(false)
		}
		return true
	case verb.Accel:
		switch word {
		case "on":
			d.Features |= device.FeatMouseAccel
		case "off":
			d.Features &^= device.FeatMouseAccel
		}
		return true
	case verb.ScrollSpeed:
		if n, err := strconv.Atoi(word); err == nil {
			if n < device.ScrollMin {
				n = device.ScrollAccelerated
			} else if n > device.ScrollMax {
				n = device.ScrollMax
			}
			d.ScrollRate = n
		}
		return true
	case verb.Mode:
		if n, err := strconv.Atoi(word); err == nil {
			if m := (*profile).ModeAt(n); m != nil {
				*mode = m
			}
		}
		return true
	case verb.FPS:
		if n, err := strconv.ParseUint(word, 10, 32); err == nil && n > 0 {
			perFrame := 5
			switch {
			case d.IsMouse:
				perFrame = 2
			case d.IsFullRange:
				perFrame = 14
			}
			delay := 1000 / int(n) / perFrame
			if delay < device.USBDelayMin {
				delay = device.USBDelayMin
			} else if delay > device.USBDelayMax {
				delay = device.USBDelayMax
			}
			d.USBDelayMS = delay
		}
		return true
	case verb.Dither:
		if n, err := strconv.Atoi(word); err == nil && (n == 0 || n == 1) {
			d.Dither = n
			(*profile).CurrentMode.Light.ForceUpdate = true
			(*mode).Light.ForceUpdate = true
		}
		return true
	case verb.Delay:
		// Accepted, no effect.
		return true
	case verb.Reset:
		_ = ops.Reset(d, *mode, channel, word)
		return true
	}
	return false
}
