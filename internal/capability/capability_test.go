package capability

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nerrad567/gray-logic-miio/internal/accessory"
	"github.com/nerrad567/gray-logic-miio/internal/binding"
	"github.com/nerrad567/gray-logic-miio/internal/device"
	"github.com/nerrad567/gray-logic-miio/internal/loop"
)

// bareDevice implements device.Device and no facets.
type bareDevice struct {
	id   string
	tags device.TagSet
}

func (d *bareDevice) ID() string                      { return d.id }
func (d *bareDevice) Model() string                   { return "lumi.test" }
func (d *bareDevice) Tags() device.TagSet             { return d.tags }
func (d *bareDevice) Children() []device.Device       { return nil }
func (d *bareDevice) On(device.Event, device.Handler) {}
func (d *bareDevice) Poll(context.Context) error      { return nil }

// plugDevice adds power.
type plugDevice struct {
	bareDevice
}

func (d *plugDevice) Power(context.Context) (bool, error)     { return true, nil }
func (d *plugDevice) ChangePower(context.Context, bool) error { return nil }

type warnLogger struct {
	mu    sync.Mutex
	warns int
}

func (l *warnLogger) Debug(string, ...any) {}
func (l *warnLogger) Info(string, ...any)  {}
func (l *warnLogger) Error(string, ...any) {}
func (l *warnLogger) Warn(string, ...any) {
	l.mu.Lock()
	l.warns++
	l.mu.Unlock()
}

func bare(tags ...device.Tag) *bareDevice {
	return &bareDevice{id: "dev", tags: device.NewTagSet(tags...)}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name string
		tags []device.Tag
		want []Capability
	}{
		{"no tags", nil, nil},
		{"unknown tags", []device.Tag{"cap:vacuum"}, nil},
		{
			name: "table order regardless of tag order",
			tags: []device.Tag{
				device.TagSwitchablePower, device.TagRelativeHumidity, device.TagBatteryLevel,
				device.TagIlluminance, device.TagMotion, device.TagTemperature, device.TagActions,
			},
			want: []Capability{Actions, Temperature, Motion, Illuminance, BatteryLevel, RelativeHumidity, SwitchablePower},
		},
		{
			name: "light replaces per-tag wiring",
			tags: []device.Tag{device.TagLight, device.TagSwitchablePower, device.TagIlluminance},
			want: []Capability{Light},
		},
		{
			name: "light type alone is not a light",
			tags: []device.Tag{device.TagLight, device.TagIlluminance},
			want: []Capability{Illuminance},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Select(bare(tt.tags...))); diff != "" {
				t.Errorf("Select() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type recordingVisitor struct {
	visited []string
}

func (v *recordingVisitor) VisitActions()          { v.visited = append(v.visited, "actions") }
func (v *recordingVisitor) VisitTemperature()      { v.visited = append(v.visited, "temperature") }
func (v *recordingVisitor) VisitMotion()           { v.visited = append(v.visited, "motion") }
func (v *recordingVisitor) VisitIlluminance()      { v.visited = append(v.visited, "illuminance") }
func (v *recordingVisitor) VisitBatteryLevel()     { v.visited = append(v.visited, "battery-level") }
func (v *recordingVisitor) VisitRelativeHumidity() { v.visited = append(v.visited, "relative-humidity") }
func (v *recordingVisitor) VisitSwitchablePower()  { v.visited = append(v.visited, "switchable-power") }
func (v *recordingVisitor) VisitLight()            { v.visited = append(v.visited, "light") }

func TestAccept_DispatchesEveryCapability(t *testing.T) {
	v := &recordingVisitor{}
	var want []string
	for c := Actions; c <= Light; c++ {
		c.Accept(v)
		want = append(want, c.String())
	}
	if diff := cmp.Diff(want, v.visited); diff != "" {
		t.Errorf("visited mismatch (-want +got):\n%s", diff)
	}
}

func newEnv(t *testing.T) (binding.Env, *loop.Loop, *warnLogger) {
	t.Helper()
	l := loop.New()
	logger := &warnLogger{}
	return binding.NewEnv(context.Background(), l, logger), l, logger
}

func settle(t *testing.T, l *loop.Loop) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.Settle(ctx); err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
}

func TestDecorate_Plug(t *testing.T) {
	env, l, _ := newEnv(t)
	dev := &plugDevice{bareDevice{id: "plug", tags: device.NewTagSet(device.TagSwitchablePower)}}
	acc := accessory.New("uuid", "lumi.plug plug", l)

	wired := NewRegistry(env).Decorate(acc, dev)
	settle(t, l)

	if diff := cmp.Diff([]Capability{SwitchablePower}, wired); diff != "" {
		t.Errorf("wired mismatch (-want +got):\n%s", diff)
	}
	if acc.Service(accessory.ServiceOutlet) == nil || !acc.HasRealServices() {
		t.Error("plug has no Outlet service")
	}
}

func TestDecorate_LightGetsOnlyLightbulb(t *testing.T) {
	env, l, _ := newEnv(t)
	dev := &plugDevice{bareDevice{id: "gw", tags: device.NewTagSet(device.TagLight, device.TagSwitchablePower)}}
	acc := accessory.New("uuid", "gateway gw", l)

	NewRegistry(env).Decorate(acc, dev)
	settle(t, l)

	if acc.Service(accessory.ServiceLightbulb) == nil {
		t.Error("light has no Lightbulb service")
	}
	if acc.Service(accessory.ServiceOutlet) != nil {
		t.Error("light also got the switchable-power wiring")
	}
}

func TestDecorate_SkipsMissingFacet(t *testing.T) {
	env, l, logger := newEnv(t)
	dev := bare(device.TagTemperature, device.TagBatteryLevel)
	acc := accessory.New("uuid", "sensor", l)

	wired := NewRegistry(env).Decorate(acc, dev)
	settle(t, l)

	if len(wired) != 0 {
		t.Errorf("wired = %v, want none", wired)
	}
	if logger.warns != 2 {
		t.Errorf("warnings = %d, want 2", logger.warns)
	}
	if acc.HasRealServices() {
		t.Error("accessory has services without any wiring")
	}
}

func TestDecorate_EventOnlyCapabilities(t *testing.T) {
	env, l, _ := newEnv(t)
	dev := bare(device.TagActions, device.TagMotion)
	acc := accessory.New("uuid", "switch", l)

	wired := NewRegistry(env).Decorate(acc, dev)
	settle(t, l)

	if diff := cmp.Diff([]Capability{Actions, Motion}, wired); diff != "" {
		t.Errorf("wired mismatch (-want +got):\n%s", diff)
	}
	if acc.Service(accessory.ServiceStatelessProgrammableSwitch) == nil || acc.Service(accessory.ServiceMotionSensor) == nil {
		t.Error("missing switch or motion service")
	}
}
