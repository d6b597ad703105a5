// Package notify implements the notification-channel subsystem: the
// per-device table of "@N" output channels that GET and other
// observer commands write replies to. Channel 0 is
// permanent; NOTIFYON/NOTIFYOFF create and destroy the rest.
//
// In addition to the in-process table, Registry mirrors every write to
// a WebSocket hub so external monitors can observe notification
// traffic live — an ambient observability concern the core dispatcher
// itself has no need of, since it only touches the in-process table.
package notify

import (
	"log"
	"sync"

	"ckbcored/internal/device"
)

// Channel is a single notification node: its number and whether it
// has been destroyed.
type Channel struct {
	Number int
	live   bool
}

// Registry tracks the live notification channels for one device and
// fans every write out to any subscribed monitors.
type Registry struct {
	mu       sync.RWMutex
	channels map[int]*Channel

	subMu sync.RWMutex
	subs  []chan Delivery
}

// Delivery is one write to a notification channel, as observed by a
// monitor subscriber.
type Delivery struct {
	Device  string
	Channel int
	Data    string
}

// NewRegistry returns a registry with the permanent channel 0 already
// present.
func NewRegistry() *Registry {
	r := &Registry{channels: make(map[int]*Channel)}
	r.channels[0] = &Channel{Number: 0, live: true}
	return r
}

// Create opens channel n. Creating an already
// open channel, or channel 0, is a harmless no-op.
func (r *Registry) Create(d *device.Device, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.channels[n]; exists {
		return
	}
	r.channels[n] = &Channel{Number: n, live: true}
	log.Printf("[Notify] %s: opened channel %d", d.Name, n)
}

// Destroy closes channel n. Channel 0 can
// never be removed.
func (r *Registry) Destroy(d *device.Device, n int) {
	if n == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.channels[n]; !exists {
		return
	}
	delete(r.channels, n)
	log.Printf("[Notify] %s: closed channel %d", d.Name, n)
}

// IsOpen reports whether channel n currently exists.
func (r *Registry) IsOpen(n int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.channels[n]
	return ok
}

// Open returns the set of currently open channel numbers, for tests
// asserting the NOTIFYON/NOTIFYOFF round-trip.
func (r *Registry) Open() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int, 0, len(r.channels))
	for n := range r.channels {
		out = append(out, n)
	}
	return out
}

// Write delivers data on channel n, dropping it if the channel isn't
// open, and mirrors it to every subscribed monitor.
func (r *Registry) Write(d *device.Device, n int, data string) {
	if !r.IsOpen(n) {
		return
	}
	r.subMu.RLock()
	defer r.subMu.RUnlock()
	for _, sub := range r.subs {
		select {
		case sub <- Delivery{Device: d.Name, Channel: n, Data: data}:
		default:
			// Slow monitor; drop rather than block the control thread.
		}
	}
}

// Subscribe returns a channel receiving every Write delivery across
// all devices sharing this registry.
func (r *Registry) Subscribe() chan Delivery {
	ch := make(chan Delivery, 64)
	r.subMu.Lock()
	defer r.subMu.Unlock()
	r.subs = append(r.subs, ch)
	return ch
}
