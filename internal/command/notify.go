package command

import "ckbcored/internal/device"

// Notifier creates and destroys notification-channel nodes. The concrete node — a FIFO file, a
// WebSocket subscription, whatever a given deployment exposes — lives
// outside the core; internal/notify ships one implementation.
type Notifier interface {
	Create(d *device.Device, channel int)
	Destroy(d *device.Device, channel int)
}

// NoopNotifier discards every create/destroy call. Useful as a
// Dispatcher default so callers that don't care about notification
// nodes don't need to supply one.
type NoopNotifier struct{}

func (NoopNotifier) Create(*device.Device, int)  {}
func (NoopNotifier) Destroy(*device.Device, int) {}
