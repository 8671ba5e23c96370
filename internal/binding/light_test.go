package binding

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nerrad567/gray-logic-miio/internal/accessory"
	"github.com/nerrad567/gray-logic-miio/internal/device"
)

var dimmableLight = []device.Tag{
	device.TagLight, device.TagSwitchablePower, device.TagBrightness, device.TagDimmable,
}

type lightHarness struct {
	*harness
	light      *Light
	power      *accessory.Characteristic
	brightness *accessory.Characteristic
}

func newLightHarness(t *testing.T, d *fakeDevice) *lightHarness {
	t.Helper()
	h := newHarness(t)
	light := WireLight(h.env, h.acc, d, d)
	s := h.acc.Service(accessory.ServiceLightbulb)
	if s == nil {
		t.Fatal("no Lightbulb service")
	}
	lh := &lightHarness{harness: h, light: light}
	lh.power, _ = s.Lookup(accessory.CharOn)
	lh.brightness, _ = s.Lookup(accessory.CharBrightness)
	return lh
}

func (h *lightHarness) set(c *accessory.Characteristic, v any) error {
	h.t.Helper()
	var done completion
	c.HandleSet(v, done.done)
	h.settle()
	if !done.called {
		h.t.Fatal("set never completed")
	}
	return done.err
}

func TestWireLight_PlainPower(t *testing.T) {
	d := newFakeDevice("bulb", device.TagLight, device.TagSwitchablePower)
	h := newLightHarness(t, d)
	h.settle()

	if h.light.Power == nil || h.light.Brightness != nil || h.light.Color != nil {
		t.Fatalf("light = %+v, want plain power only", h.light)
	}
	if h.brightness != nil {
		t.Error("plain light has a Brightness characteristic")
	}
	if !h.power.Writable() {
		t.Error("On is not writable")
	}
}

func TestBrightnessPower_RestoresLastBrightness(t *testing.T) {
	d := newFakeDevice("gw", dimmableLight...)
	d.brightness = func() (int, error) { return 75, nil }
	h := newLightHarness(t, d)
	h.settle()

	if get(h.power) != true || get(h.brightness) != 75 {
		t.Fatalf("after seed: power=%v brightness=%v", get(h.power), get(h.brightness))
	}

	if err := h.set(h.power, false); err != nil {
		t.Fatalf("power off error = %v", err)
	}
	if err := h.set(h.power, true); err != nil {
		t.Fatalf("power on error = %v", err)
	}

	want := []string{"Brightness", "ChangePower(false)", "ChangeBrightness(75)"}
	if diff := cmp.Diff(want, d.Calls()); diff != "" {
		t.Errorf("device calls mismatch (-want +got):\n%s", diff)
	}
}

func TestBrightnessPower_DefaultBrightnessBeforeRead(t *testing.T) {
	d := newFakeDevice("gw", dimmableLight...)
	d.brightness = func() (int, error) { return 0, errors.New("offline") }
	h := newLightHarness(t, d)
	h.settle()

	if err := h.set(h.power, true); err != nil {
		t.Fatalf("power on error = %v", err)
	}
	want := []string{"Brightness", "ChangeBrightness(50)"}
	if diff := cmp.Diff(want, d.Calls()); diff != "" {
		t.Errorf("device calls mismatch (-want +got):\n%s", diff)
	}
}

func TestBrightnessPower_RedundantPowerSet(t *testing.T) {
	d := newFakeDevice("gw", dimmableLight...)
	h := newLightHarness(t, d)
	h.settle()

	if err := h.set(h.power, false); err != nil {
		t.Fatalf("power off error = %v", err)
	}
	if diff := cmp.Diff([]string{"Brightness"}, d.Calls()); diff != "" {
		t.Errorf("redundant power off reached the device (-want +got):\n%s", diff)
	}
}

func TestBrightnessPower_ZeroPushIsPowerOff(t *testing.T) {
	d := newFakeDevice("gw", dimmableLight...)
	d.brightness = func() (int, error) { return 75, nil }
	h := newLightHarness(t, d)
	h.settle()

	d.emit(device.EventBrightnessChanged, device.Payload{Value: 0})
	h.settle()

	if h.power.Value() != false || get(h.power) != false {
		t.Errorf("power = %v, want false", h.power.Value())
	}
	if h.brightness.Value() != 75 || h.light.Brightness.Level() != 75 {
		t.Errorf("brightness = %v level=%d, want untouched 75", h.brightness.Value(), h.light.Brightness.Level())
	}

	// A non-zero push turns it back on.
	d.emit(device.EventBrightnessChanged, device.Payload{Value: 30.0})
	h.settle()
	if h.power.Value() != true || h.brightness.Value() != 30 {
		t.Errorf("after push 30: power=%v brightness=%v", h.power.Value(), h.brightness.Value())
	}
}

func TestBrightnessPower_SetBrightness(t *testing.T) {
	d := newFakeDevice("gw", dimmableLight...)
	d.brightness = func() (int, error) { return 40, nil }
	h := newLightHarness(t, d)
	h.settle()

	if err := h.set(h.brightness, 80); err != nil {
		t.Fatalf("brightness set error = %v", err)
	}
	if err := h.set(h.brightness, 0); err != nil {
		t.Fatalf("brightness set error = %v", err)
	}
	if get(h.power) != false || h.light.Brightness.Level() != 80 {
		t.Errorf("after 0: power=%v level=%d, want off at 80", get(h.power), h.light.Brightness.Level())
	}
	if h.brightness.Value() != 80 || get(h.brightness) != 80 {
		t.Errorf("after 0: brightness = %v, want kept 80", h.brightness.Value())
	}
	if err := h.set(h.power, true); err != nil {
		t.Fatalf("power on error = %v", err)
	}

	want := []string{"Brightness", "ChangeBrightness(80)", "ChangeBrightness(0)", "ChangeBrightness(80)"}
	if diff := cmp.Diff(want, d.Calls()); diff != "" {
		t.Errorf("device calls mismatch (-want +got):\n%s", diff)
	}
}

func TestBrightnessPower_ZeroWhileOffKeepsLevel(t *testing.T) {
	d := newFakeDevice("gw", dimmableLight...)
	d.brightness = func() (int, error) { return 75, nil }
	h := newLightHarness(t, d)
	h.settle()
	d.emit(device.EventBrightnessChanged, device.Payload{Value: 0})
	h.settle()

	if err := h.set(h.brightness, 0); err != nil {
		t.Fatalf("brightness set error = %v", err)
	}
	if h.brightness.Value() != 75 || h.power.Value() != false {
		t.Errorf("brightness=%v power=%v, want 75 and off", h.brightness.Value(), h.power.Value())
	}
	if diff := cmp.Diff([]string{"Brightness"}, d.Calls()); diff != "" {
		t.Errorf("device calls mismatch (-want +got):\n%s", diff)
	}
}

func TestBrightnessPower_SeedDoesNotOverwritePush(t *testing.T) {
	gate := make(chan struct{})
	d := newFakeDevice("gw", dimmableLight...)
	d.brightness = func() (int, error) {
		<-gate
		return 10, nil
	}
	h := newLightHarness(t, d)

	d.emit(device.EventBrightnessChanged, device.Payload{Value: 90})
	h.loop.Flush()
	close(gate)
	h.settle()

	if h.light.Brightness.Level() != 90 {
		t.Errorf("Level() = %d, want pushed 90", h.light.Brightness.Level())
	}
}

func TestBrightnessPower_WriteFailurePropagates(t *testing.T) {
	fail := errors.New("no reply")
	d := newFakeDevice("gw", dimmableLight...)
	d.changeBrightness = func(int) error { return fail }
	h := newLightHarness(t, d)
	h.settle()

	if err := h.set(h.power, true); !errors.Is(err, fail) {
		t.Errorf("power on error = %v, want %v", err, fail)
	}
	if get(h.power) != true {
		t.Error("optimistic power state rolled back")
	}
}
