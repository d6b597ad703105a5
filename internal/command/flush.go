package command

import (
	"time"

	"ckbcored/internal/device"
	"ckbcored/internal/vtable"
	"ckbcored/internal/verb"
)

// flush is the post-line phase: rate-limit RGB flushes,
// then issue one RGB and one DPI update, skipped entirely while the
// device needs a firmware update.
func (disp *Dispatcher) flush(d *device.Device, ops vtable.Ops, lastVerb verb.Verb) error {
	if d.NeedsFWUpdate {
		return nil
	}

	if lastVerb == verb.RGB {
		now := time.Now()
		diff := diffNs(now, d.LastRGB)
		if diff > 0 && diff < HertzLim {
			time.Sleep(time.Duration(HertzLim - diff))
			now = time.Now()
		}
		d.LastRGB = now
	}

	if err := tryWithReset(d, disp.reset, func() error { return ops.UpdateRGB(d, false) }); err != nil {
		return err
	}
	if err := tryWithReset(d, disp.reset, func() error { return ops.UpdateDPI(d, false) }); err != nil {
		return err
	}

	if d.Debug && lastVerb == verb.RGB {
		for i := range d.EncounteredLEDs {
			d.EncounteredLEDs[i] = false
		}
	}

	return nil
}

// maxDurationNs is the largest representable nanosecond gap, the
// ceiling a saturating diff clamps to instead of overflowing.
const maxDurationNs = int64(1<<63 - 1)

// diffNs computes now-last in nanoseconds, saturating to maxDurationNs
// instead of overflowing — matching the anti-overflow contract
// for timespec_diff_ns. time.Time.Sub already returns a saturated
// time.Duration for any realistic device uptime, but the explicit
// check here documents and preserves the contract rather than relying
// on that implementation detail.
func diffNs(now, last time.Time) int64 {
	if last.IsZero() {
		return maxDurationNs
	}
	d := now.Sub(last)
	if d < 0 {
		return int64(d)
	}
	ns := d.Nanoseconds()
	if ns < 0 {
		// Sub saturated to time.Duration's max; report the same ceiling.
		return maxDurationNs
	}
	return ns
}
