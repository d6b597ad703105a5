package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ckbcored/internal/device"
)

func TestNewRegistryHasPermanentChannelZero(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.IsOpen(0), "channel 0 must be open on a fresh registry")
}

func TestChannelZeroCannotBeDestroyed(t *testing.T) {
	r := NewRegistry()
	d := device.NewDevice("kb-0")

	r.Destroy(d, 0)
	assert.True(t, r.IsOpen(0), "Destroy(0) must be a no-op")
}

func TestNotifyOnNotifyOffRoundTrip(t *testing.T) {
	r := NewRegistry()
	d := device.NewDevice("kb-0")

	require.False(t, r.IsOpen(5), "channel 5 should start closed")

	r.Create(d, 5)
	assert.True(t, r.IsOpen(5), "Create(5) should open channel 5")

	r.Destroy(d, 5)
	assert.False(t, r.IsOpen(5), "Destroy(5) should close channel 5")
}

func TestCreateAlreadyOpenIsNoop(t *testing.T) {
	r := NewRegistry()
	d := device.NewDevice("kb-0")

	r.Create(d, 3)
	r.Create(d, 3)

	count := 0
	for _, n := range r.Open() {
		if n == 3 {
			count++
		}
	}
	assert.Equal(t, 1, count, "channel 3 should appear exactly once in Open()")
}

func TestDestroyUnopenedChannelIsNoop(t *testing.T) {
	r := NewRegistry()
	d := device.NewDevice("kb-0")

	before := len(r.Open())
	r.Destroy(d, 9)
	after := len(r.Open())

	assert.Equal(t, before, after, "Destroy on an unopened channel should not change the open set")
}

func TestWriteDropsOnClosedChannel(t *testing.T) {
	r := NewRegistry()
	d := device.NewDevice("kb-0")
	sub := r.Subscribe()

	r.Write(d, 7, "hello")

	select {
	case delivery := <-sub:
		t.Fatalf("unexpected delivery on closed channel: %+v", delivery)
	default:
	}
}

func TestWriteDeliversToSubscriber(t *testing.T) {
	r := NewRegistry()
	d := device.NewDevice("kb-0")
	r.Create(d, 2)
	sub := r.Subscribe()

	r.Write(d, 2, "payload")

	select {
	case delivery := <-sub:
		assert.Equal(t, d.Name, delivery.Device)
		assert.Equal(t, 2, delivery.Channel)
		assert.Equal(t, "payload", delivery.Data)
	default:
		t.Fatal("expected a delivery on the subscriber channel")
	}
}

func TestWriteFansOutToAllSubscribers(t *testing.T) {
	r := NewRegistry()
	d := device.NewDevice("kb-0")
	r.Create(d, 1)

	subA := r.Subscribe()
	subB := r.Subscribe()

	r.Write(d, 1, "broadcast")

	for name, sub := range map[string]chan Delivery{"A": subA, "B": subB} {
		select {
		case delivery := <-sub:
			assert.Equal(t, "broadcast", delivery.Data, "subscriber %s", name)
		default:
			t.Errorf("subscriber %s received nothing", name)
		}
	}
}

func TestWriteDropsOnFullSubscriberBuffer(t *testing.T) {
	r := NewRegistry()
	d := device.NewDevice("kb-0")
	r.Create(d, 1)
	sub := r.Subscribe()

	for i := 0; i < cap(sub)+10; i++ {
		r.Write(d, 1, "x")
	}

	assert.Equal(t, cap(sub), len(sub), "buffered subscriber should be full")
}
