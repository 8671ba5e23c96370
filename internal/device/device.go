package device

import "context"

// Event names emitted by devices.
type Event string

const (
	EventAction                  Event = "action"
	EventMovement                Event = "movement"
	EventInactivity              Event = "inactivity"
	EventTemperatureChanged      Event = "temperatureChanged"
	EventRelativeHumidityChanged Event = "relativeHumidityChanged"
	EventIlluminanceChanged      Event = "illuminanceChanged"
	EventBatteryLevelChanged     Event = "batteryLevelChanged"
	EventPowerChanged            Event = "powerChanged"
	EventBrightnessChanged       Event = "brightnessChanged"
	EventColorChanged            Event = "colorChanged"
)

// Payload carries an event's data. Value holds the new property value for
// change events; Action names the action for EventAction.
type Payload struct {
	Value  any            `json:"value,omitempty"`
	Action string         `json:"action,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// Handler receives device events.
type Handler func(Payload)

// Device is a gateway or one of its sub-devices.
type Device interface {
	ID() string
	Model() string
	Tags() TagSet
	Children() []Device

	// On registers h for event. Handlers are never removed.
	On(event Event, h Handler)

	// Poll issues a cheap liveness probe.
	Poll(ctx context.Context) error
}

// Thermometer reads temperature in degrees Celsius.
type Thermometer interface {
	Temperature(ctx context.Context) (float64, error)
}

// Hygrometer reads relative humidity in percent.
type Hygrometer interface {
	RelativeHumidity(ctx context.Context) (float64, error)
}

// LightSensor reads illuminance in lux.
type LightSensor interface {
	Illuminance(ctx context.Context) (float64, error)
}

// BatteryMonitor reads the battery level in percent.
type BatteryMonitor interface {
	BatteryLevel(ctx context.Context) (int, error)
}

// Switchable reads and changes the power state.
type Switchable interface {
	Power(ctx context.Context) (bool, error)
	ChangePower(ctx context.Context, on bool) error
}

// Dimmable reads and changes brightness in percent.
type Dimmable interface {
	Brightness(ctx context.Context) (int, error)
	ChangeBrightness(ctx context.Context, level int) error
}

// Colorable reads the current colour and writes a packed colour command.
type Colorable interface {
	Color(ctx context.Context) (HSL, error)

	// SetRGB sends brightness<<24 | r<<16 | g<<8 | b.
	SetRGB(ctx context.Context, packed uint32) error
}

// HSL is a colour with Hue in degrees [0, 360) and Saturation and Lightness
// in percent [0, 100].
type HSL struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Lightness  float64 `json:"lightness"`
}

// Matches reports whether d carries every tag.
func Matches(d Device, tags ...Tag) bool {
	return d.Tags().Has(tags...)
}
