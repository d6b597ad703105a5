package command

import (
	"ckbcored/internal/device"
	"ckbcored/internal/vtable"
	"ckbcored/internal/verb"
)

// directFamily is the whole-word verbs that just hand the argument
// word straight to the per-verb handler.
var directFamily = map[verb.Verb]bool{
	verb.Erase: true, verb.Name: true, verb.IOff: true, verb.Ion: true,
	verb.IAuto: true, verb.INotify: true, verb.ProfileName: true,
	verb.ID: true, verb.ProfileID: true, verb.DPISel: true,
	verb.Lift: true, verb.Snap: true,
}

// dispatchActiveOnly handles every verb that only runs once the
// device is active. handled reports whether v was
// consumed here; err is non-nil only when the device must be dropped.
func (disp *Dispatcher) dispatchActiveOnly(d *device.Device, ops vtable.Ops, profile **device.Profile, mode **device.Mode, channel int, v verb.Verb, word string) (handled bool, err error) {
	switch v {
	case verb.Idle:
		err = tryWithReset(d, disp.reset, func() error { return ops.Idle(d, *mode, channel) })
		return true, err

	case verb.Switch:
		if (*profile).CurrentMode != *mode {
			idx := d.SetCurrentMode(*mode)
			_ = ops.SetModeIndex(d, idx)
		}
		return true, nil

	case verb.HWLoad, verb.HWSave:
		saved := d.USBDelayMS
		if d.USBDelayMS < 10 {
			d.USBDelayMS = 10
		}
		io := ops.DoIO(v)
		if io != nil {
			if e := tryWithReset(d, disp.reset, func() error { return io(d, *mode, channel, 1, "") }); e != nil {
				return true, e
			}
		}
		if e := tryWithReset(d, disp.reset, func() error { return ops.UpdateRGB(d, true) }); e != nil {
			return true, e
		}
		d.USBDelayMS = saved
		return true, nil

	case verb.FWUpdate:
		if e := ops.FWUpdate(d, *mode, channel, word); e != nil {
			return true, errDeviceLost
		}
		return true, nil

	case verb.PollRate:
		rate, known := device.PollRateByToken[word]
		if !known {
			return true, nil
		}
		if rate > d.MaxPollRate {
			disp.logger().Printf("[Command] poll rate %s ms is not supported by device %q", word, d.Name)
			return true, nil
		}
		err = tryWithReset(d, disp.reset, func() error { return ops.PollRate(d, rate) })
		return true, err

	case verb.EraseProfile:
		_ = ops.EraseProfile(d, *mode, channel)
		*profile = d.Profile
		*mode = (*profile).CurrentMode
		return true, nil

	case verb.RGB:
		if rgbHexRe.MatchString(word) {
			for i := 0; i < device.NKeysExtended; i++ {
				_ = ops.RGB(d, *mode, -1, i, word)
			}
			return true, nil
		}
		// Falls through to the colon-split family below.

	case verb.Macro:
		if word == "clear" {
			_ = ops.Macro(d, *mode, channel, 0, "")
			return true, nil
		}
		// Falls through to the colon-split family below.
	}

	if directFamily[v] {
		if fn := ops.DoCmd(v); fn != nil {
			_ = fn(d, *mode, channel, 0, word)
		}
		return true, nil
	}

	switch v {
	case verb.RGB, verb.Macro, verb.Bind, verb.Unbind, verb.Rebind, verb.DPI, verb.HWAnim:
		disp.dispatchColonSplit(d, ops, *mode, channel, v, word)
		return true, nil
	}

	return false, nil
}

// dispatchColonSplit implements the colon-split family: split the
// argument at the first ':' and either hand both halves to a
// do_macro handler (MACRO/DPI) or resolve the left half as a key
// selector list and call do_cmd once per resolved key.
func (disp *Dispatcher) dispatchColonSplit(d *device.Device, ops vtable.Ops, mode *device.Mode, channel int, v verb.Verb, word string) {
	left, right, ok := splitColon(word)
	if !ok {
		return
	}

	if v == verb.Macro || v == verb.DPI {
		if fn := ops.DoMacro(v); fn != nil {
			_ = fn(d, mode, channel, left, right)
		}
		return
	}

	fn := ops.DoCmd(v)
	if fn == nil {
		return
	}
	for _, key := range resolveKeySelectors(d, left) {
		_ = fn(d, mode, channel, key, right)
	}
}
