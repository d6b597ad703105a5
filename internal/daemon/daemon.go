// Package daemon owns the per-device control thread: one
// goroutine per attached device draining its input line-by-line and
// serially feeding them to the command dispatcher, paced by a token
// bucket derived from the device's usb_delay. Device discovery and USB
// attachment are external collaborators; this package only manages
// devices already known to it.
package daemon

import (
	"context"
	"log"
	"sync"

	"golang.org/x/time/rate"

	"ckbcored/internal/command"
	"ckbcored/internal/device"
)

// Handle is what callers use to talk to one managed device: Send
// enqueues a line exactly like a client writing to the device's input
// FIFO.
type Handle struct {
	Device  *device.Device
	lines   chan string
	done    chan struct{}
	limiter *rate.Limiter
}

// Send enqueues line for processing on this device's control thread.
// It never blocks the caller for long: the channel is buffered, and a
// full buffer drops the line with a log line rather than stalling.
func (h *Handle) Send(line string) {
	select {
	case h.lines <- line:
	default:
		log.Printf("[Daemon] %s: input queue full, dropping line %q", h.Device.Name, line)
	}
}

// Done returns a channel that's closed once this device's control
// thread has exited (device lost, or Registry.Detach was called).
func (h *Handle) Done() <-chan struct{} { return h.done }

// Registry manages the set of currently attached devices' control
// threads.
type Registry struct {
	Dispatcher *command.Dispatcher

	mu      sync.Mutex
	devices map[string]*Handle
	onLost  func(name string)
}

// NewRegistry creates an empty registry driven by disp. onLost, if
// non-nil, is called (from the device's own control goroutine) when a
// line handler reports the device as unrecoverable.
func NewRegistry(disp *command.Dispatcher, onLost func(name string)) *Registry {
	return &Registry{
		Dispatcher: disp,
		devices:    make(map[string]*Handle),
		onLost:     onLost,
	}
}

// Attach starts a control thread for d and returns its Handle. d.Name
// must be unique among currently attached devices.
func (r *Registry) Attach(ctx context.Context, d *device.Device) *Handle {
	h := &Handle{
		Device:  d,
		lines:   make(chan string, 64),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(usbRate(d), 4),
	}

	r.mu.Lock()
	r.devices[d.Name] = h
	r.mu.Unlock()

	go r.run(ctx, h)

	return h
}

// Detach stops the control thread for the named device, if attached.
func (r *Registry) Detach(name string) {
	r.mu.Lock()
	h, ok := r.devices[name]
	if ok {
		delete(r.devices, name)
	}
	r.mu.Unlock()
	if ok {
		close(h.lines)
	}
}

// Get returns the handle for an attached device, or nil.
func (r *Registry) Get(name string) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.devices[name]
}

// usbRate derives a per-device line-admission rate from its current
// USB transaction delay: a device
// polled every usb_delay ms can't usefully accept control lines any
// faster than that, so the control thread paces itself to roughly one
// line per delay window, with a small burst allowance for multi-word
// lines arriving back to back.
func usbRate(d *device.Device) rate.Limit {
	delay := d.USBDelayMS
	if delay < device.USBDelayMin {
		delay = device.USBDelayMin
	}
	return rate.Limit(1000.0 / float64(delay))
}

func (r *Registry) run(ctx context.Context, h *Handle) {
	defer close(h.done)
	defer func() {
		r.mu.Lock()
		delete(r.devices, h.Device.Name)
		r.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-h.lines:
			if !ok {
				return
			}
			if err := h.limiter.Wait(ctx); err != nil {
				return
			}
			if err := r.Dispatcher.ProcessLine(h.Device, line); err != nil {
				log.Printf("[Daemon] %s: line handler reported device lost: %v", h.Device.Name, err)
				if r.onLost != nil {
					r.onLost(h.Device.Name)
				}
				return
			}
		}
	}
}
