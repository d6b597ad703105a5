package command

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ckbcored/internal/device"
	"ckbcored/internal/vtable"
	"ckbcored/internal/verb"
)

// fakeOps is a minimal vtable.Ops recording every call it receives, for
// asserting the dispatcher's call sequence against the worked
// scenarios below without pulling in internal/refdevice.
type fakeOps struct {
	activeCalls   int
	idleCalls     int
	rgbCalls      []rgbCall
	updateRGB     []bool
	updateDPI     []bool
	modeIndex     []int
	getCalls      []string
	resetCalls    []string
	fwupdateCalls []string
	fwupdateErr   error
	pollRateCalls []device.PollRate

	doCmd map[verb.Verb]vtable.HandlerFunc
}

type rgbCall struct {
	key  int
	word string
}

func newFakeOps() *fakeOps {
	return &fakeOps{doCmd: make(map[verb.Verb]vtable.HandlerFunc)}
}

func (f *fakeOps) Active(d *device.Device, mode *device.Mode, channel int) error {
	f.activeCalls++
	return nil
}
func (f *fakeOps) Idle(d *device.Device, mode *device.Mode, channel int) error {
	f.idleCalls++
	return nil
}
func (f *fakeOps) Reset(d *device.Device, mode *device.Mode, channel int, word string) error {
	f.resetCalls = append(f.resetCalls, word)
	return nil
}
func (f *fakeOps) Get(d *device.Device, mode *device.Mode, channel int, word string) error {
	f.getCalls = append(f.getCalls, word)
	return nil
}
func (f *fakeOps) FWUpdate(d *device.Device, mode *device.Mode, channel int, word string) error {
	f.fwupdateCalls = append(f.fwupdateCalls, word)
	return f.fwupdateErr
}
func (f *fakeOps) EraseProfile(d *device.Device, mode *device.Mode, channel int) error { return nil }
func (f *fakeOps) Macro(d *device.Device, mode *device.Mode, channel int, key int, word string) error {
	return nil
}
func (f *fakeOps) RGB(d *device.Device, mode *device.Mode, channel int, key int, word string) error {
	f.rgbCalls = append(f.rgbCalls, rgbCall{key, word})
	return nil
}
func (f *fakeOps) PollRate(d *device.Device, rate device.PollRate) error {
	f.pollRateCalls = append(f.pollRateCalls, rate)
	return nil
}
func (f *fakeOps) UpdateRGB(d *device.Device, force bool) error {
	f.updateRGB = append(f.updateRGB, force)
	return nil
}
func (f *fakeOps) UpdateDPI(d *device.Device, force bool) error {
	f.updateDPI = append(f.updateDPI, force)
	return nil
}
func (f *fakeOps) SetModeIndex(d *device.Device, index int) error {
	f.modeIndex = append(f.modeIndex, index)
	return nil
}
func (f *fakeOps) DoCmd(v verb.Verb) vtable.HandlerFunc { return f.doCmd[v] }
func (f *fakeOps) DoIO(v verb.Verb) vtable.HandlerFunc  { return nil }
func (f *fakeOps) DoMacro(v verb.Verb) vtable.MacroFunc { return nil }

type noopTransport struct{}

func (noopTransport) TryReset(d *device.Device) error { return nil }

func newTestDevice(opts ...device.Option) (*device.Device, *fakeOps) {
	ops := newFakeOps()
	d := device.NewDevice("test-device", opts...)
	d.SetVTable(ops)
	return d, ops
}

func newTestDispatcher() *Dispatcher {
	return &Dispatcher{
		OutfifoMax: device.OutfifoMax,
		Notifier:   NoopNotifier{},
		Transport:  noopTransport{},
	}
}

func TestTokenize(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"active", []string{"active"}},
		{"mode 2 switch", []string{"mode", "2", "switch"}},
		{"  leading  spaces ", []string{"leading", "spaces"}},
		{"tab\tnot\tsplit", []string{"tab\tnot\tsplit"}},
	}
	for _, c := range cases {
		got := Tokenize(c.in)
		assert.Equal(t, c.want, got, "Tokenize(%q)", c.in)
	}
}

// Scenario 1: ACTIVE on an inactive device calls
// vtable.Active exactly once.
func TestScenario1Active(t *testing.T) {
	d, ops := newTestDevice()
	disp := newTestDispatcher()

	require.NoError(t, disp.ProcessLine(d, "active"))
	assert.Equal(t, 1, ops.activeCalls)
}

// Scenario 2: MODE 2 SWITCH advances current_mode and invokes
// SetModeIndex, clearing the outgoing mode's triggered macros.
func TestScenario2ModeSwitch(t *testing.T) {
	d, ops := newTestDevice()
	d.Active = true
	d.Profile.Modes[0].Binding.Macros = []device.Macro{{Name: "m1", Triggered: true}}

	disp := newTestDispatcher()
	require.NoError(t, disp.ProcessLine(d, "mode 2 switch"))

	assert.Same(t, &d.Profile.Modes[1], d.Profile.CurrentMode, "current mode did not advance to mode[1]")
	assert.Equal(t, []int{1}, ops.modeIndex)
	assert.False(t, d.Profile.Modes[0].Binding.Macros[0].Triggered, "outgoing mode's macro still triggered after switch")
}

// Scenario 3: @3 RGB ff0080 on an active device issues one RGB call
// per key index, then one UpdateRGB and one UpdateDPI flush call.
func TestScenario3RGBBroadcast(t *testing.T) {
	d, ops := newTestDevice()
	d.Active = true

	disp := newTestDispatcher()
	require.NoError(t, disp.ProcessLine(d, "@3 rgb ff0080"))

	require.Len(t, ops.rgbCalls, device.NKeysExtended)
	for _, c := range ops.rgbCalls {
		assert.GreaterOrEqual(t, c.key, 0)
		assert.Less(t, c.key, device.NKeysExtended)
		assert.Equal(t, "ff0080", c.word)
	}
	assert.Len(t, ops.updateRGB, 1)
	assert.Len(t, ops.updateDPI, 1)
	assert.LessOrEqual(t, time.Since(d.LastRGB), time.Duration(HertzLim), "last_rgb not updated close to now")
}

// Scenario 4: BIND a,b,#5:macro1 with FEAT_BIND resolves three
// scancodes and invokes do_cmd[BIND] once per key with the shared
// right-hand word.
func TestScenario4Bind(t *testing.T) {
	d, ops := newTestDevice(device.WithFeatures(device.FeatAnsi | device.FeatBind))
	d.Active = true
	d.Keymap[7] = device.KeymapEntry{Name: "a"}
	d.Keymap[8] = device.KeymapEntry{Name: "b"}

	var calls []rgbCall
	ops.doCmd[verb.Bind] = func(dd *device.Device, mode *device.Mode, channel int, key int, word string) error {
		calls = append(calls, rgbCall{key, word})
		return nil
	}

	disp := newTestDispatcher()
	require.NoError(t, disp.ProcessLine(d, "bind a,b,#5:macro1"))

	require.Len(t, calls, 3)
	wantKeys := map[int]bool{7: true, 8: true, 5: true}
	for _, c := range calls {
		assert.True(t, wantKeys[c.key], "unexpected bind key %d", c.key)
		assert.Equal(t, "macro1", c.word)
	}
}

// Scenario 4b: without FEAT_BIND, BIND is gated out entirely.
func TestScenario4BindRequiresFeature(t *testing.T) {
	d, ops := newTestDevice()
	d.Active = true

	called := false
	ops.doCmd[verb.Bind] = func(dd *device.Device, mode *device.Mode, channel int, key int, word string) error {
		called = true
		return nil
	}

	disp := newTestDispatcher()
	require.NoError(t, disp.ProcessLine(d, "bind a:macro1"))
	assert.False(t, called, "bind dispatched without FEAT_BIND")
}

// Scenario 5: FWUPDATE returning an error aborts the line immediately
// with no flush.
func TestScenario5FWUpdateFailureAbortsLine(t *testing.T) {
	d, ops := newTestDevice()
	d.Active = true
	ops.fwupdateErr = errors.New("flash write failed")

	disp := newTestDispatcher()
	err := disp.ProcessLine(d, "fwupdate /tmp/blob")
	require.True(t, IsDeviceLost(err), "ProcessLine error = %v, want device-lost", err)
	assert.Empty(t, ops.updateRGB, "flush ran after fwupdate failure")
	assert.Empty(t, ops.updateDPI, "flush ran after fwupdate failure")
}

// Scenario 6: POLLRATE above max_pollrate is rejected with no vtable
// call (the user-visible log line itself isn't asserted here).
func TestScenario6PollRateRejected(t *testing.T) {
	d, ops := newTestDevice(device.WithFeatures(device.FeatAnsi|device.FeatAdjRate), device.WithMaxPollRate(device.PollRate1ms))
	d.Active = true

	disp := newTestDispatcher()
	require.NoError(t, disp.ProcessLine(d, "pollrate 0.1"))
	assert.Empty(t, ops.pollRateCalls)
}

func TestPollRateAcceptedWithinLimit(t *testing.T) {
	d, ops := newTestDevice(device.WithFeatures(device.FeatAnsi|device.FeatAdjRate), device.WithMaxPollRate(device.PollRate1ms))
	d.Active = true

	disp := newTestDispatcher()
	require.NoError(t, disp.ProcessLine(d, "pollrate 1"))
	assert.Equal(t, []device.PollRate{device.PollRate1ms}, ops.pollRateCalls)
}

// The always-available family runs even on an idle, inactive device.
func TestAlwaysAvailableOnIdleDevice(t *testing.T) {
	d, ops := newTestDevice()
	disp := newTestDispatcher()

	require.NoError(t, disp.ProcessLine(d, "get status"))
	assert.Equal(t, []string{"status"}, ops.getCalls)
}

// The firmware-brick gate allows only FWUPDATE/NOTIFYON/NOTIFYOFF/RESET.
func TestFWBrickGateBlocksOtherVerbs(t *testing.T) {
	d, ops := newTestDevice()
	d.Active = true
	d.NeedsFWUpdate = true

	disp := newTestDispatcher()
	require.NoError(t, disp.ProcessLine(d, "active"))
	assert.Equal(t, 0, ops.activeCalls, "active dispatched while bricked")

	require.NoError(t, disp.ProcessLine(d, "reset now"))
	assert.Len(t, ops.resetCalls, 1, "reset not allowed while bricked")
}

// Round-trip: NOTIFYON N then NOTIFYOFF N returns the channel set to
// its prior state.
func TestNotifyOnOffRoundTrip(t *testing.T) {
	d, _ := newTestDevice()
	notifier := &recordingNotifier{}
	disp := &Dispatcher{OutfifoMax: device.OutfifoMax, Notifier: notifier, Transport: noopTransport{}}

	require.NoError(t, disp.ProcessLine(d, "notifyon 2"))
	require.NoError(t, disp.ProcessLine(d, "notifyoff 2"))
	assert.Equal(t, 1, notifier.created)
	assert.Equal(t, 1, notifier.destroyed)
}

type recordingNotifier struct {
	created, destroyed int
}

func (r *recordingNotifier) Create(d *device.Device, channel int)  { r.created++ }
func (r *recordingNotifier) Destroy(d *device.Device, channel int) { r.destroyed++ }

// Boundary: FPS at small/large/huge values always leaves usb_delay
// clamped to [2,10].
func TestFPSBoundaryClampsUSBDelay(t *testing.T) {
	for _, fps := range []string{"0", "1", "500", "100000"} {
		d, _ := newTestDevice()
		disp := newTestDispatcher()
		require.NoError(t, disp.ProcessLine(d, "fps "+fps))
		assert.GreaterOrEqual(t, d.USBDelayMS, device.USBDelayMin, "fps %s", fps)
		assert.LessOrEqual(t, d.USBDelayMS, device.USBDelayMax, "fps %s", fps)
	}
}

// Boundary: MODE 0 and MODE_COUNT+1 are out of range and ignored.
func TestModeOutOfRangeIgnored(t *testing.T) {
	for _, n := range []string{"0", "7"} {
		d, _ := newTestDevice()
		d.Active = true
		before := d.Profile.CurrentMode
		disp := newTestDispatcher()
		require.NoError(t, disp.ProcessLine(d, "mode "+n+" switch"))
		assert.Same(t, before, d.Profile.CurrentMode, "mode %s: current mode changed, want unchanged", n)
	}
}

// Boundary: @OUTFIFO_MAX is out of range and leaves the channel as it
// was.
func TestNotifySelectorOutOfRangeIgnored(t *testing.T) {
	d, ops := newTestDevice()
	d.Active = true

	disp := newTestDispatcher()
	line := "@" + itoa(device.OutfifoMax) + " get x"
	require.NoError(t, disp.ProcessLine(d, line))
	assert.Len(t, ops.getCalls, 1)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// Boundary: RGB hex matching is exactly six lowercase hex digits.
func TestRGBHexBoundary(t *testing.T) {
	assert.True(t, rgbHexRe.MatchString("abcdef"))
	assert.False(t, rgbHexRe.MatchString("abcdefg"))
	assert.False(t, rgbHexRe.MatchString("abcde"))
}

// Two consecutive identical lines produce identical device state
// (modulo last_rgb).
func TestIdempotentRepeatedLine(t *testing.T) {
	d, _ := newTestDevice()
	d.Active = true
	disp := newTestDispatcher()

	require.NoError(t, disp.ProcessLine(d, "dither 1"))
	first := d.Dither
	require.NoError(t, disp.ProcessLine(d, "dither 1"))
	assert.Equal(t, first, d.Dither, "dither changed across identical repeated lines")
}

// The retry harness loops until a successful reset, never returning an
// error as long as reset keeps succeeding.
func TestRetryWithResetLoopsUntilSuccess(t *testing.T) {
	attempts := 0
	resets := 0
	action := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}
	reset := func(d *device.Device) error {
		resets++
		return nil
	}

	d, _ := newTestDevice()
	require.NoError(t, tryWithReset(d, reset, action))
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 2, resets)
}

// A reset failure surfaces as errDeviceLost immediately.
func TestRetryWithResetFailsWhenResetFails(t *testing.T) {
	action := func() error { return errors.New("transient") }
	reset := func(d *device.Device) error { return errors.New("reset failed") }

	d, _ := newTestDevice()
	err := tryWithReset(d, reset, action)
	assert.True(t, IsDeviceLost(err), "err = %v, want device-lost", err)
}
