package binding

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nerrad567/gray-logic-miio/internal/accessory"
	"github.com/nerrad567/gray-logic-miio/internal/device"
)

var colorLight = []device.Tag{
	device.TagLight, device.TagSwitchablePower, device.TagBrightness, device.TagDimmable, device.TagColorable,
}

func TestPackRGB(t *testing.T) {
	tests := []struct {
		name       string
		brightness int
		hue, sat   float64
		want       uint32
	}{
		{"blue at 75", 75, 240, 100, 0x4B0000FF},
		{"red at full", 100, 0, 100, 0x64FF0000},
		{"green at 1", 1, 120, 100, 0x0100FF00},
		{"grey", 50, 200, 0, 0x32808080},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PackRGB(tt.brightness, tt.hue, tt.sat); got != tt.want {
				t.Errorf("PackRGB() = %#x, want %#x", got, tt.want)
			}
		})
	}
}

// colorDevice returns a dimmable colour light at brightness 75 reporting
// start as its colour until setColor changes it.
func colorDevice(start device.HSL) (d *fakeDevice, setColor func(device.HSL)) {
	d = newFakeDevice("gw", colorLight...)
	var mu sync.Mutex
	current := start
	d.brightness = func() (int, error) { return 75, nil }
	d.color = func() (device.HSL, error) {
		mu.Lock()
		defer mu.Unlock()
		return current, nil
	}
	return d, func(hsl device.HSL) {
		mu.Lock()
		current = hsl
		mu.Unlock()
	}
}

func setRGBCalls(d *fakeDevice) []string {
	var out []string
	for _, c := range d.Calls() {
		if len(c) > 6 && c[:6] == "SetRGB" {
			out = append(out, c)
		}
	}
	return out
}

func TestColor_SeedsHueAndSaturation(t *testing.T) {
	d, _ := colorDevice(device.HSL{Hue: 120, Saturation: 50})
	h := newLightHarness(t, d)
	h.settle()

	s := h.acc.Service(accessory.ServiceLightbulb)
	if get(s.Characteristic(accessory.CharHue)) != 120.0 || get(s.Characteristic(accessory.CharSaturation)) != 50.0 {
		t.Errorf("seeded hue=%v sat=%v", h.light.Color.Hue(), h.light.Color.Saturation())
	}
}

func TestColor_CoalescesHueAndSaturation(t *testing.T) {
	d, _ := colorDevice(device.HSL{Hue: 120, Saturation: 50})
	h := newLightHarness(t, d)
	h.settle()

	s := h.acc.Service(accessory.ServiceLightbulb)
	var hue, sat completion
	s.Characteristic(accessory.CharHue).HandleSet(240.0, hue.done)
	s.Characteristic(accessory.CharSaturation).HandleSet(100.0, sat.done)
	if !hue.called || hue.err != nil || !sat.called || sat.err != nil {
		t.Errorf("colour sets not completed when queued: hue=%+v sat=%+v", hue, sat)
	}
	if len(setRGBCalls(d)) != 0 {
		t.Fatal("SetRGB sent before the loop ran")
	}
	h.settle()

	want := []string{fmt.Sprintf("SetRGB(%#x)", uint32(0x4B0000FF))}
	if diff := cmp.Diff(want, setRGBCalls(d)); diff != "" {
		t.Errorf("SetRGB calls mismatch (-want +got):\n%s", diff)
	}
}

func TestColor_HueZeroIsRespected(t *testing.T) {
	d, _ := colorDevice(device.HSL{Hue: 120, Saturation: 100})
	h := newLightHarness(t, d)
	h.settle()

	var done completion
	h.acc.Service(accessory.ServiceLightbulb).Characteristic(accessory.CharHue).HandleSet(0.0, done.done)
	h.settle()

	want := []string{fmt.Sprintf("SetRGB(%#x)", PackRGB(75, 0, 100))}
	if diff := cmp.Diff(want, setRGBCalls(d)); diff != "" {
		t.Errorf("SetRGB calls mismatch (-want +got):\n%s", diff)
	}
}

func TestColor_WritesDuringFlushStartSecondWindow(t *testing.T) {
	d, setColor := colorDevice(device.HSL{Hue: 120, Saturation: 50})
	gate := make(chan struct{})
	entered := make(chan struct{}, 2)
	var once sync.Once
	d.setRGB = func(uint32) error {
		entered <- struct{}{}
		once.Do(func() {
			setColor(device.HSL{Hue: 240, Saturation: 50})
			<-gate
		})
		return nil
	}
	h := newLightHarness(t, d)
	h.settle()

	s := h.acc.Service(accessory.ServiceLightbulb)
	var first, second completion
	s.Characteristic(accessory.CharHue).HandleSet(240.0, first.done)
	h.runUntil(func() bool { return len(entered) > 0 })

	s.Characteristic(accessory.CharSaturation).HandleSet(100.0, second.done)
	close(gate)
	h.settle()

	if !first.called || !second.called {
		t.Fatalf("completions: first=%+v second=%+v", first, second)
	}
	want := []string{
		fmt.Sprintf("SetRGB(%#x)", PackRGB(75, 240, 50)),
		fmt.Sprintf("SetRGB(%#x)", PackRGB(75, 240, 100)),
	}
	if diff := cmp.Diff(want, setRGBCalls(d)); diff != "" {
		t.Errorf("SetRGB calls mismatch (-want +got):\n%s", diff)
	}
}

func TestColor_ColorOnlyLightUsesFullBrightness(t *testing.T) {
	d := newFakeDevice("bulb", device.TagLight, device.TagSwitchablePower, device.TagColorable)
	h := newLightHarness(t, d)
	h.settle()

	var done completion
	h.light.Color.SetSaturation(100, done.done)
	h.settle()

	want := []string{fmt.Sprintf("SetRGB(%#x)", PackRGB(100, 0, 100))}
	if diff := cmp.Diff(want, setRGBCalls(d)); diff != "" {
		t.Errorf("SetRGB calls mismatch (-want +got):\n%s", diff)
	}
}

func TestColor_ReadFailureSkipsWrite(t *testing.T) {
	d, _ := colorDevice(device.HSL{Hue: 120, Saturation: 50})
	h := newLightHarness(t, d)
	h.settle()

	d.color = func() (device.HSL, error) { return device.HSL{}, fmt.Errorf("timeout") }
	var done completion
	h.light.Color.SetHue(10, done.done)
	h.settle()

	if !done.called || done.err != nil {
		t.Errorf("completion = %+v, want immediate success", done)
	}
	if len(setRGBCalls(d)) != 0 {
		t.Error("SetRGB sent without a current colour")
	}
	if !h.logger.has("warn", "reading current colour failed") {
		t.Error("read failure not logged")
	}
	if h.light.Color.Hue() != 10 {
		t.Errorf("Hue() = %v, want optimistic 10", h.light.Color.Hue())
	}
}

func TestColor_WriteFailureIsLogged(t *testing.T) {
	d, _ := colorDevice(device.HSL{Hue: 120, Saturation: 50})
	d.setRGB = func(uint32) error { return fmt.Errorf("gateway offline") }
	h := newLightHarness(t, d)
	h.settle()

	hue := h.acc.Service(accessory.ServiceLightbulb).Characteristic(accessory.CharHue)
	if err := h.set(hue, 200.0); err != nil {
		t.Errorf("set error = %v, want nil", err)
	}
	if !h.logger.has("warn", "device write failed") {
		t.Error("write failure not logged")
	}
	if hue.Value() != 200.0 {
		t.Errorf("hue = %v, want optimistic 200", hue.Value())
	}
}

// A host writes hue, waits for it, then writes saturation. The second write
// lands while the colour read is in flight and joins the same command.
func TestColor_SequentialHostWritesShareOneCommand(t *testing.T) {
	d, _ := colorDevice(device.HSL{Hue: 120, Saturation: 50})
	h := newLightHarness(t, d)
	h.settle()

	gate := make(chan struct{})
	reading := make(chan struct{}, 1)
	d.color = func() (device.HSL, error) {
		reading <- struct{}{}
		<-gate
		return device.HSL{Hue: 120, Saturation: 50}, nil
	}

	s := h.acc.Service(accessory.ServiceLightbulb)
	var hue, sat completion
	s.Characteristic(accessory.CharHue).HandleSet(240.0, hue.done)
	if !hue.called {
		t.Fatal("hue set did not complete when queued")
	}
	h.runUntil(func() bool { return len(reading) > 0 })

	s.Characteristic(accessory.CharSaturation).HandleSet(100.0, sat.done)
	close(gate)
	h.settle()

	want := []string{fmt.Sprintf("SetRGB(%#x)", PackRGB(75, 240, 100))}
	if diff := cmp.Diff(want, setRGBCalls(d)); diff != "" {
		t.Errorf("SetRGB calls mismatch (-want +got):\n%s", diff)
	}
}

func TestColor_PushUpdatesBoth(t *testing.T) {
	d, _ := colorDevice(device.HSL{})
	h := newLightHarness(t, d)
	h.settle()

	d.emit(device.EventColorChanged, device.Payload{Value: map[string]any{"hue": 30.0, "saturation": 80.0}})
	h.settle()
	s := h.acc.Service(accessory.ServiceLightbulb)
	if s.Characteristic(accessory.CharHue).Value() != 30.0 || s.Characteristic(accessory.CharSaturation).Value() != 80.0 {
		t.Errorf("push not applied: hue=%v sat=%v", h.light.Color.Hue(), h.light.Color.Saturation())
	}
}
