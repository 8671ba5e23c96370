package capability

import (
	"github.com/nerrad567/gray-logic-miio/internal/accessory"
	"github.com/nerrad567/gray-logic-miio/internal/binding"
	"github.com/nerrad567/gray-logic-miio/internal/device"
)

// Registry decorates accessories with the services their devices support.
type Registry struct {
	env binding.Env
}

// NewRegistry creates a Registry whose bindings run in env.
func NewRegistry(env binding.Env) *Registry {
	return &Registry{env: env}
}

// Decorate wires every selected capability of dev onto acc and returns the
// ones it wired. Call it on the loop.
func (r *Registry) Decorate(acc *accessory.Accessory, dev device.Device) []Capability {
	r.env.Logger.Debug("decorating accessory",
		"device", dev.ID(), "model", dev.Model(), "tags", dev.Tags().Tags())

	w := &wiring{env: r.env, acc: acc, dev: dev}
	for _, c := range Select(dev) {
		w.current = c
		c.Accept(w)
	}
	return w.wired
}

// wiring is the Visitor that builds bindings for one device.
type wiring struct {
	env     binding.Env
	acc     *accessory.Accessory
	dev     device.Device
	current Capability
	wired   []Capability
}

func (w *wiring) missing(facet string) {
	w.env.Logger.Warn("device does not implement capability, skipping",
		"device", w.dev.ID(), "capability", w.current.String(), "interface", facet)
}

func (w *wiring) done() {
	w.wired = append(w.wired, w.current)
}

func (w *wiring) VisitActions() {
	binding.WireButton(w.env, w.acc, w.dev)
	w.done()
}

func (w *wiring) VisitTemperature() {
	th, ok := w.dev.(device.Thermometer)
	if !ok {
		w.missing("Thermometer")
		return
	}
	binding.WireTemperature(w.env, w.acc, w.dev, th)
	w.done()
}

func (w *wiring) VisitMotion() {
	binding.WireMotion(w.env, w.acc, w.dev)
	w.done()
}

func (w *wiring) VisitIlluminance() {
	ls, ok := w.dev.(device.LightSensor)
	if !ok {
		w.missing("LightSensor")
		return
	}
	binding.WireIlluminance(w.env, w.acc, w.dev, ls)
	w.done()
}

func (w *wiring) VisitBatteryLevel() {
	bm, ok := w.dev.(device.BatteryMonitor)
	if !ok {
		w.missing("BatteryMonitor")
		return
	}
	binding.WireBattery(w.env, w.acc, w.dev, bm)
	w.done()
}

func (w *wiring) VisitRelativeHumidity() {
	hy, ok := w.dev.(device.Hygrometer)
	if !ok {
		w.missing("Hygrometer")
		return
	}
	binding.WireHumidity(w.env, w.acc, w.dev, hy)
	w.done()
}

func (w *wiring) VisitSwitchablePower() {
	sw, ok := w.dev.(device.Switchable)
	if !ok {
		w.missing("Switchable")
		return
	}
	binding.WireOutlet(w.env, w.acc, w.dev, sw)
	w.done()
}

func (w *wiring) VisitLight() {
	sw, ok := w.dev.(device.Switchable)
	if !ok {
		w.missing("Switchable")
		return
	}
	binding.WireLight(w.env, w.acc, w.dev, sw)
	w.done()
}
