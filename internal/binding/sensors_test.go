package binding

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nerrad567/gray-logic-miio/internal/accessory"
	"github.com/nerrad567/gray-logic-miio/internal/device"
)

type valueRecorder struct {
	mu     sync.Mutex
	values []any
}

func (r *valueRecorder) CharacteristicUpdated(_ *accessory.Characteristic, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *valueRecorder) ReachabilityUpdated(*accessory.Accessory, bool) {}

func TestWireTemperature(t *testing.T) {
	d := newFakeDevice("sensor_ht", device.TagTemperature)
	d.temperature = func() (float64, error) { return 21.5, nil }
	h := newHarness(t)
	b := WireTemperature(h.env, h.acc, d, d)
	h.settle()

	c, _ := h.acc.Find(accessory.ServiceTemperatureSensor, accessory.CharCurrentTemperature)
	if c.Value() != 21.5 || b.Value() != 21.5 {
		t.Errorf("temperature = %v, want 21.5", c.Value())
	}
	if c.Writable() {
		t.Error("temperature is writable")
	}

	d.emit(device.EventTemperatureChanged, device.Payload{Value: map[string]any{"value": 19.25, "unit": "C"}})
	h.settle()
	if get(c) != 19.25 {
		t.Errorf("after push temperature = %v, want 19.25", get(c))
	}
}

func TestWireHumidity(t *testing.T) {
	d := newFakeDevice("sensor_ht", device.TagRelativeHumidity)
	d.humidity = func() (float64, error) { return 48, nil }
	h := newHarness(t)
	WireHumidity(h.env, h.acc, d, d)
	h.settle()

	c, _ := h.acc.Find(accessory.ServiceHumiditySensor, accessory.CharCurrentRelativeHumidity)
	if c.Value() != 48.0 {
		t.Errorf("humidity = %v, want 48", c.Value())
	}
}

func TestWireIlluminance(t *testing.T) {
	tests := []struct {
		name      string
		tags      []device.Tag
		seed      float64
		push      float64
		wantSeed  float64
		wantAfter float64
	}{
		{"gateway offset", []device.Tag{device.TagGateway, device.TagIlluminance}, 500, 1000, 230, 730},
		{"gateway floor", []device.Tag{device.TagGateway, device.TagIlluminance}, 100, 270, 0, 0},
		{"sensor unchanged", []device.Tag{device.TagIlluminance}, 500, 1000, 500, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDevice("lux", tt.tags...)
			d.illuminance = func() (float64, error) { return tt.seed, nil }
			h := newHarness(t)
			WireIlluminance(h.env, h.acc, d, d)
			h.settle()

			c, _ := h.acc.Find(accessory.ServiceLightSensor, accessory.CharCurrentAmbientLightLevel)
			if c.Value() != tt.wantSeed {
				t.Errorf("seeded = %v, want %v", c.Value(), tt.wantSeed)
			}
			d.emit(device.EventIlluminanceChanged, device.Payload{Value: tt.push})
			h.settle()
			if c.Value() != tt.wantAfter {
				t.Errorf("after push = %v, want %v", c.Value(), tt.wantAfter)
			}
			if c.Props().Max != 1200 {
				t.Errorf("Props().Max = %v, want 1200", c.Props().Max)
			}
		})
	}
}

func TestWireBattery(t *testing.T) {
	d := newFakeDevice("magnet", device.TagBatteryLevel)
	d.battery = func() (int, error) { return 87, nil }
	h := newHarness(t)
	WireBattery(h.env, h.acc, d, d)
	h.settle()

	s := h.acc.Service(accessory.ServiceBattery)
	if s.Characteristic(accessory.CharBatteryLevel).Value() != 87 {
		t.Errorf("battery = %v, want 87", s.Characteristic(accessory.CharBatteryLevel).Value())
	}
	if s.Characteristic(accessory.CharChargingState).Value() != accessory.ChargingStateNotChargeable {
		t.Error("ChargingState is not NOT_CHARGEABLE")
	}
	if h.acc.HasRealServices() {
		t.Error("battery alone counts as a real service")
	}
}

func TestWireButton(t *testing.T) {
	d := newFakeDevice("switch", device.TagActions)
	h := newHarness(t)
	rec := &valueRecorder{}
	h.acc.Subscribe(rec)
	WireButton(h.env, h.acc, d)

	for _, action := range []string{"click", "double_click", "shake", "long_click_press"} {
		d.emit(device.EventAction, device.Payload{Action: action})
	}
	h.settle()

	want := []any{accessory.SwitchSinglePress, accessory.SwitchDoublePress, accessory.SwitchLongPress}
	if diff := cmp.Diff(want, rec.values); diff != "" {
		t.Errorf("switch events mismatch (-want +got):\n%s", diff)
	}
	if !h.logger.has("debug", "action not mapped, ignoring") {
		t.Error("unmapped action not logged")
	}
}

func TestWireMotion(t *testing.T) {
	d := newFakeDevice("motion", device.TagMotion)
	h := newHarness(t)
	rec := &valueRecorder{}
	h.acc.Subscribe(rec)
	c := WireMotion(h.env, h.acc, d)
	h.settle()

	if len(rec.values) != 0 {
		t.Errorf("motion seeded with %v; it has no initial read", rec.values)
	}

	d.emit(device.EventMovement, device.Payload{})
	h.settle()
	if c.Value() != true {
		t.Error("movement did not set MotionDetected")
	}
	d.emit(device.EventInactivity, device.Payload{})
	h.settle()
	if c.Value() != false {
		t.Error("inactivity did not clear MotionDetected")
	}
}
