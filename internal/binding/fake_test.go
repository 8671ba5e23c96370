package binding

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-miio/internal/accessory"
	"github.com/nerrad567/gray-logic-miio/internal/device"
	"github.com/nerrad567/gray-logic-miio/internal/loop"
)

// fakeDevice implements device.Device and every facet. Unset functions
// return zero values.
type fakeDevice struct {
	id   string
	tags device.TagSet

	mu       sync.Mutex
	handlers map[device.Event][]device.Handler
	calls    []string

	power            func() (bool, error)
	changePower      func(bool) error
	brightness       func() (int, error)
	changeBrightness func(int) error
	color            func() (device.HSL, error)
	setRGB           func(uint32) error
	temperature      func() (float64, error)
	humidity         func() (float64, error)
	illuminance      func() (float64, error)
	battery          func() (int, error)
}

func newFakeDevice(id string, tags ...device.Tag) *fakeDevice {
	return &fakeDevice{
		id:       id,
		tags:     device.NewTagSet(tags...),
		handlers: make(map[device.Event][]device.Handler),
	}
}

func (d *fakeDevice) ID() string                 { return d.id }
func (d *fakeDevice) Model() string              { return "lumi.test" }
func (d *fakeDevice) Tags() device.TagSet        { return d.tags }
func (d *fakeDevice) Children() []device.Device  { return nil }
func (d *fakeDevice) Poll(context.Context) error { return nil }

func (d *fakeDevice) On(event device.Event, h device.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[event] = append(d.handlers[event], h)
}

func (d *fakeDevice) emit(event device.Event, p device.Payload) {
	d.mu.Lock()
	hs := append([]device.Handler(nil), d.handlers[event]...)
	d.mu.Unlock()
	for _, h := range hs {
		h(p)
	}
}

func (d *fakeDevice) record(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
}

func (d *fakeDevice) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *fakeDevice) Power(context.Context) (bool, error) {
	d.record("Power")
	if d.power == nil {
		return false, nil
	}
	return d.power()
}

func (d *fakeDevice) ChangePower(_ context.Context, on bool) error {
	d.record("ChangePower(%v)", on)
	if d.changePower == nil {
		return nil
	}
	return d.changePower(on)
}

func (d *fakeDevice) Brightness(context.Context) (int, error) {
	d.record("Brightness")
	if d.brightness == nil {
		return 0, nil
	}
	return d.brightness()
}

func (d *fakeDevice) ChangeBrightness(_ context.Context, level int) error {
	d.record("ChangeBrightness(%d)", level)
	if d.changeBrightness == nil {
		return nil
	}
	return d.changeBrightness(level)
}

func (d *fakeDevice) Color(context.Context) (device.HSL, error) {
	d.record("Color")
	if d.color == nil {
		return device.HSL{}, nil
	}
	return d.color()
}

func (d *fakeDevice) SetRGB(_ context.Context, packed uint32) error {
	d.record("SetRGB(%#x)", packed)
	if d.setRGB == nil {
		return nil
	}
	return d.setRGB(packed)
}

func (d *fakeDevice) Temperature(context.Context) (float64, error) {
	if d.temperature == nil {
		return 0, nil
	}
	return d.temperature()
}

func (d *fakeDevice) RelativeHumidity(context.Context) (float64, error) {
	if d.humidity == nil {
		return 0, nil
	}
	return d.humidity()
}

func (d *fakeDevice) Illuminance(context.Context) (float64, error) {
	if d.illuminance == nil {
		return 0, nil
	}
	return d.illuminance()
}

func (d *fakeDevice) BatteryLevel(context.Context) (int, error) {
	if d.battery == nil {
		return 0, nil
	}
	return d.battery()
}

type logEntry struct {
	level string
	msg   string
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg})
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.log("debug", msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.log("info", msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.log("warn", msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.log("error", msg) }

func (l *recordingLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

type harness struct {
	t      *testing.T
	loop   *loop.Loop
	env    Env
	logger *recordingLogger
	acc    *accessory.Accessory
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	l := loop.New()
	logger := &recordingLogger{}
	return &harness{
		t:      t,
		loop:   l,
		env:    NewEnv(context.Background(), l, logger),
		logger: logger,
		acc:    accessory.New("uuid-1", "lumi.test 1", l),
	}
}

// settle runs the loop until nothing is queued or in flight.
func (h *harness) settle() {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.loop.Settle(ctx); err != nil {
		h.t.Fatalf("loop did not settle: %v", err)
	}
}

// runUntil flushes the loop until cond holds.
func (h *harness) runUntil(cond func() bool) {
	h.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			h.t.Fatal("condition not reached")
		}
		h.loop.Flush()
		time.Sleep(time.Millisecond)
	}
}

// get reads c through its get handler.
func get(c *accessory.Characteristic) any {
	var out any
	c.HandleGet(func(v any, _ error) { out = v })
	return out
}

// completion records a set's done callback.
type completion struct {
	called bool
	err    error
}

func (c *completion) done(err error) {
	c.called = true
	c.err = err
}
