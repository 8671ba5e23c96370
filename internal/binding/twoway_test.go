package binding

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nerrad567/gray-logic-miio/internal/accessory"
	"github.com/nerrad567/gray-logic-miio/internal/device"
)

func outletHarness(t *testing.T, d *fakeDevice) (*harness, *TwoWay[bool], *accessory.Characteristic) {
	t.Helper()
	h := newHarness(t)
	b := WireOutlet(h.env, h.acc, d, d)
	on, err := h.acc.Find(accessory.ServiceOutlet, accessory.CharOn)
	if err != nil {
		t.Fatalf("Find(On) error = %v", err)
	}
	return h, b, on
}

func TestBind_SeedsCacheAndEndpoint(t *testing.T) {
	d := newFakeDevice("plug")
	d.power = func() (bool, error) { return true, nil }
	h, b, on := outletHarness(t, d)

	if get(on) != false {
		t.Errorf("get before seed = %v, want false", get(on))
	}
	h.settle()

	if !b.Value() || on.Value() != true || get(on) != true {
		t.Errorf("after seed: cache=%v endpoint=%v get=%v, want true", b.Value(), on.Value(), get(on))
	}
	if in, _ := h.acc.Find(accessory.ServiceOutlet, accessory.CharOutletInUse); in.Value() != true {
		t.Error("OutletInUse not defaulted to true")
	}
}

func TestBind_GetNeverReadsDevice(t *testing.T) {
	d := newFakeDevice("plug")
	h, _, on := outletHarness(t, d)
	h.settle()

	for range 3 {
		get(on)
	}
	if diff := cmp.Diff([]string{"Power"}, d.Calls()); diff != "" {
		t.Errorf("device calls mismatch (-want +got):\n%s", diff)
	}
}

func TestBind_SeedDoesNotOverwritePush(t *testing.T) {
	gate := make(chan struct{})
	d := newFakeDevice("plug")
	d.power = func() (bool, error) {
		<-gate
		return true, nil
	}
	h, b, on := outletHarness(t, d)

	d.emit(device.EventPowerChanged, device.Payload{Value: false})
	h.loop.Flush()
	d.emit(device.EventPowerChanged, device.Payload{Value: "on"})
	h.loop.Flush()
	d.emit(device.EventPowerChanged, device.Payload{Value: false})
	h.loop.Flush()

	close(gate)
	h.settle()

	if b.Value() || on.Value() != false {
		t.Errorf("seed overwrote push: cache=%v endpoint=%v", b.Value(), on.Value())
	}
}

func TestBind_SeedDoesNotOverwriteSet(t *testing.T) {
	gate := make(chan struct{})
	d := newFakeDevice("plug")
	d.power = func() (bool, error) {
		<-gate
		return false, nil
	}
	h, b, on := outletHarness(t, d)

	var c completion
	on.HandleSet(true, c.done)
	h.runUntil(func() bool { return c.called })

	close(gate)
	h.settle()

	if !b.Value() || on.Value() != true {
		t.Errorf("seed overwrote set: cache=%v endpoint=%v", b.Value(), on.Value())
	}
}

func TestBind_RedundantSetIsNoop(t *testing.T) {
	d := newFakeDevice("plug")
	h, _, on := outletHarness(t, d)
	h.settle()

	var c completion
	on.HandleSet(false, c.done)
	if !c.called || c.err != nil {
		t.Fatalf("redundant set: called=%v err=%v, want immediate success", c.called, c.err)
	}
	h.settle()
	for _, call := range d.Calls() {
		if call != "Power" {
			t.Errorf("unexpected device call %q", call)
		}
	}
}

func TestBind_SetCompletesAfterWrite(t *testing.T) {
	gate := make(chan struct{})
	d := newFakeDevice("plug")
	d.changePower = func(bool) error {
		<-gate
		return nil
	}
	h, b, on := outletHarness(t, d)
	h.settle()

	var c completion
	on.HandleSet(true, c.done)
	if !b.Value() {
		t.Error("cache not updated optimistically")
	}
	h.loop.Flush()
	if c.called {
		t.Fatal("set completed before the write settled")
	}

	// A second identical set while the first is in flight is redundant.
	var again completion
	on.HandleSet(true, again.done)
	if !again.called || again.err != nil {
		t.Errorf("second set: called=%v err=%v", again.called, again.err)
	}

	close(gate)
	h.settle()
	if !c.called || c.err != nil {
		t.Errorf("set: called=%v err=%v, want success", c.called, c.err)
	}
	if diff := cmp.Diff([]string{"Power", "ChangePower(true)"}, d.Calls()); diff != "" {
		t.Errorf("device calls mismatch (-want +got):\n%s", diff)
	}
}

func TestBind_WriteFailureKeepsOptimisticCache(t *testing.T) {
	fail := errors.New("gateway timeout")
	d := newFakeDevice("plug")
	d.changePower = func(bool) error { return fail }
	h, b, on := outletHarness(t, d)
	h.settle()

	var c completion
	on.HandleSet(true, c.done)
	h.settle()

	if !errors.Is(c.err, fail) {
		t.Errorf("set error = %v, want %v", c.err, fail)
	}
	if !b.Value() || get(on) != true {
		t.Errorf("cache rolled back: cache=%v get=%v", b.Value(), get(on))
	}
	if !h.logger.has("warn", "device write failed") {
		t.Error("write failure not logged")
	}
}

func TestBind_PushDuringInFlightSetWins(t *testing.T) {
	gate := make(chan struct{})
	d := newFakeDevice("plug")
	d.changePower = func(bool) error {
		<-gate
		return nil
	}
	h, b, on := outletHarness(t, d)
	h.settle()

	var c completion
	on.HandleSet(true, c.done)
	h.loop.Flush()

	d.emit(device.EventPowerChanged, device.Payload{Value: false})
	h.loop.Flush()
	close(gate)
	h.settle()

	if !c.called || c.err != nil {
		t.Errorf("set: called=%v err=%v", c.called, c.err)
	}
	if b.Value() || on.Value() != false {
		t.Errorf("write completion overwrote push: cache=%v endpoint=%v", b.Value(), on.Value())
	}
}

func TestBind_WrongValueType(t *testing.T) {
	d := newFakeDevice("plug")
	h, _, on := outletHarness(t, d)
	h.settle()

	var c completion
	on.HandleSet("yes", c.done)
	if !errors.Is(c.err, ErrInvalidValue) {
		t.Errorf("set error = %v, want ErrInvalidValue", c.err)
	}
}

func TestBind_UndecodablePushIgnored(t *testing.T) {
	d := newFakeDevice("plug")
	d.power = func() (bool, error) { return true, nil }
	h, b, _ := outletHarness(t, d)
	h.settle()

	d.emit(device.EventPowerChanged, device.Payload{Value: []int{1}})
	h.settle()
	if !b.Value() {
		t.Error("undecodable push changed the cache")
	}
	if !h.logger.has("warn", "ignoring undecodable push") {
		t.Error("undecodable push not logged")
	}
}

func TestBind_SeedFailureLeavesDefault(t *testing.T) {
	d := newFakeDevice("plug")
	d.power = func() (bool, error) { return false, errors.New("offline") }
	h, b, on := outletHarness(t, d)
	h.settle()

	if b.Value() || on.Value() != false {
		t.Error("failed seed changed the cache")
	}
	if !h.logger.has("warn", "initial read failed") {
		t.Error("seed failure not logged")
	}
}
