package refdevice

import (
	"errors"
	"log"
	"sync/atomic"

	"ckbcored/internal/device"
)

// errInduced is returned by FakeTransport while a device is in its
// induced-failure window, standing in for a dropped USB write.
var errInduced = errors.New("refdevice: induced transport failure")

// FakeTransport is an in-memory stand-in for a USB link: it never
// talks to real hardware, but it can be told to fail the next N
// operations so tests can exercise the retry-with-reset harness
// without a physical device.
type FakeTransport struct {
	failing atomic.Int32
	resets  atomic.Int32
}

// NewFakeTransport returns a transport that succeeds until FailNext is
// called.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{}
}

// FailNext arranges for the next n calls routed through Fail to report
// errInduced.
func (t *FakeTransport) FailNext(n int) {
	t.failing.Store(int32(n))
}

// Fail is called by Reference's Ops methods before doing their
// (simulated) work; it consumes one unit of induced failure if any is
// armed.
func (t *FakeTransport) Fail() error {
	for {
		n := t.failing.Load()
		if n <= 0 {
			return nil
		}
		if t.failing.CompareAndSwap(n, n-1) {
			return errInduced
		}
	}
}

// TryReset implements vtable.Transport. It always succeeds: a fake
// reset just clears any still-armed failure count and logs, mirroring
// a real transport's USB re-enumeration clearing a jammed endpoint.
func (t *FakeTransport) TryReset(d *device.Device) error {
	t.resets.Add(1)
	t.failing.Store(0)
	log.Printf("[Refdevice] %s: transport reset (reset #%d)", d.Name, t.resets.Load())
	return nil
}

// Resets reports how many times TryReset has been called, for tests
// asserting the retry harness actually invoked it.
func (t *FakeTransport) Resets() int { return int(t.resets.Load()) }
