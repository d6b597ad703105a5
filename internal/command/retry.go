package command

import "ckbcored/internal/device"

// tryWithReset is the retry-with-reset combinator:
// call action; while it fails, ask the transport to reset the device
// and try again. If the reset itself fails, the line is aborted by
// returning an error up to the caller, who tears the device down.
func tryWithReset(d *device.Device, reset func(*device.Device) error, action func() error) error {
	for {
		if err := action(); err == nil {
			return nil
		}
		if err := reset(d); err != nil {
			return errDeviceLost
		}
	}
}
