package command

import "errors"

// errDeviceLost signals that the line handler must return 1 to its
// caller: the device is unrecoverable and
// the owning control thread should drop it.
var errDeviceLost = errors.New("command: device lost, reset failed")

// IsDeviceLost reports whether err means the caller should tear the
// device down, matching the C core's "return 1" contract.
func IsDeviceLost(err error) bool { return errors.Is(err, errDeviceLost) }
