package miio

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-miio/internal/device"
)

// Property names understood by the agent.
const (
	PropertyPower            = "power"
	PropertyBrightness       = "brightness"
	PropertyColor            = "color"
	PropertyTemperature      = "temperature"
	PropertyRelativeHumidity = "relativeHumidity"
	PropertyIlluminance      = "illuminance"
	PropertyBatteryLevel     = "batteryLevel"
)

// Device is a gateway or sub-device reached through the agent.
type Device struct {
	client    *Client
	id        string
	model     string
	tags      device.TagSet
	children  []device.Device
	gatewayID string
}

var (
	_ device.Device         = (*Device)(nil)
	_ device.Thermometer    = (*Device)(nil)
	_ device.Hygrometer     = (*Device)(nil)
	_ device.LightSensor    = (*Device)(nil)
	_ device.BatteryMonitor = (*Device)(nil)
	_ device.Switchable     = (*Device)(nil)
	_ device.Dimmable       = (*Device)(nil)
	_ device.Colorable      = (*Device)(nil)
)

func (d *Device) ID() string                { return d.id }
func (d *Device) Model() string             { return d.model }
func (d *Device) Tags() device.TagSet       { return d.tags }
func (d *Device) Children() []device.Device { return d.children }

// On registers h for events the agent publishes for this device.
func (d *Device) On(event device.Event, h device.Handler) {
	d.client.on(d.id, event, h)
}

// Poll asks the agent to probe the device.
func (d *Device) Poll(ctx context.Context) error {
	return d.client.poll(ctx, d.id)
}

func (d *Device) Temperature(ctx context.Context) (float64, error) {
	return d.readFloat(ctx, PropertyTemperature)
}

func (d *Device) RelativeHumidity(ctx context.Context) (float64, error) {
	return d.readFloat(ctx, PropertyRelativeHumidity)
}

func (d *Device) Illuminance(ctx context.Context) (float64, error) {
	return d.readFloat(ctx, PropertyIlluminance)
}

func (d *Device) BatteryLevel(ctx context.Context) (int, error) {
	v, err := d.client.read(ctx, d.id, PropertyBatteryLevel)
	if err != nil {
		return 0, err
	}
	return device.AsInt(v)
}

func (d *Device) Power(ctx context.Context) (bool, error) {
	v, err := d.client.read(ctx, d.id, PropertyPower)
	if err != nil {
		return false, err
	}
	return device.AsBool(v)
}

func (d *Device) ChangePower(ctx context.Context, on bool) error {
	return d.client.write(ctx, d.id, PropertyPower, on)
}

func (d *Device) Brightness(ctx context.Context) (int, error) {
	v, err := d.client.read(ctx, d.id, PropertyBrightness)
	if err != nil {
		return 0, err
	}
	return device.AsInt(v)
}

func (d *Device) ChangeBrightness(ctx context.Context, level int) error {
	return d.client.write(ctx, d.id, PropertyBrightness, level)
}

func (d *Device) Color(ctx context.Context) (device.HSL, error) {
	v, err := d.client.read(ctx, d.id, PropertyColor)
	if err != nil {
		return device.HSL{}, err
	}
	return device.AsHSL(v)
}

// SetRGB sends set_rgb to the device's gateway, which owns the light.
func (d *Device) SetRGB(ctx context.Context, packed uint32) error {
	return d.client.call(ctx, d.gatewayID, "set_rgb", []any{packed}, "rgb")
}

func (d *Device) readFloat(ctx context.Context, property string) (float64, error) {
	v, err := d.client.read(ctx, d.id, property)
	if err != nil {
		return 0, err
	}
	f, err := device.AsFloat(v)
	if err != nil {
		return 0, fmt.Errorf("%s of %s: %w", property, d.id, err)
	}
	return f, nil
}
