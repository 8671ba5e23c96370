package binding

import (
	"github.com/nerrad567/gray-logic-miio/internal/accessory"
	"github.com/nerrad567/gray-logic-miio/internal/device"
)

// Gateways report illuminance this many lux too high.
const gatewayIlluminanceOffset = 270

// maxIlluminance is the light sensor's reported range ceiling in lux.
const maxIlluminance = 1200

// WireTemperature adds a read-only TemperatureSensor service.
func WireTemperature(env Env, acc *accessory.Accessory, dev device.Device, th device.Thermometer) *TwoWay[float64] {
	env.Logger.Debug("adding temperature sensor service", "device", dev.ID())

	s := acc.FindOrCreateService(accessory.ServiceTemperatureSensor, "Temperature")
	return Bind(env, Config[float64]{
		Name:     "temperature",
		Endpoint: s.Characteristic(accessory.CharCurrentTemperature),
		Device:   dev,
		Event:    device.EventTemperatureChanged,
		Decode:   decodeFloat,
		Read:     th.Temperature,
	})
}

// WireHumidity adds a read-only HumiditySensor service.
func WireHumidity(env Env, acc *accessory.Accessory, dev device.Device, hy device.Hygrometer) *TwoWay[float64] {
	env.Logger.Debug("adding humidity sensor service", "device", dev.ID())

	s := acc.FindOrCreateService(accessory.ServiceHumiditySensor, "Humidity")
	return Bind(env, Config[float64]{
		Name:     "relative-humidity",
		Endpoint: s.Characteristic(accessory.CharCurrentRelativeHumidity),
		Device:   dev,
		Event:    device.EventRelativeHumidityChanged,
		Decode:   decodeFloat,
		Read:     hy.RelativeHumidity,
	})
}

// WireIlluminance adds a read-only LightSensor service. Readings from
// gateways are corrected by a fixed offset and floored at zero.
func WireIlluminance(env Env, acc *accessory.Accessory, dev device.Device, ls device.LightSensor) *TwoWay[float64] {
	env.Logger.Debug("adding light sensor service", "device", dev.ID())

	s := acc.FindOrCreateService(accessory.ServiceLightSensor, "Light Sensor")
	level := s.Characteristic(accessory.CharCurrentAmbientLightLevel)
	props := level.Props()
	props.Max = maxIlluminance
	level.SetProps(props)

	var correct func(float64) float64
	if device.Matches(dev, device.TagGateway) {
		correct = func(lux float64) float64 {
			return max(lux-gatewayIlluminanceOffset, 0)
		}
	}

	return Bind(env, Config[float64]{
		Name:     "illuminance",
		Endpoint: level,
		Device:   dev,
		Event:    device.EventIlluminanceChanged,
		Decode:   decodeFloat,
		Map:      correct,
		Read:     ls.Illuminance,
	})
}

// WireBattery adds a BatteryService. The devices are not chargeable.
func WireBattery(env Env, acc *accessory.Accessory, dev device.Device, bm device.BatteryMonitor) *TwoWay[int] {
	env.Logger.Debug("adding battery service", "device", dev.ID())

	s := acc.FindOrCreateService(accessory.ServiceBattery, "Battery Level")
	s.UpdateCharacteristic(accessory.CharChargingState, accessory.ChargingStateNotChargeable)
	return Bind(env, Config[int]{
		Name:     "battery-level",
		Endpoint: s.Characteristic(accessory.CharBatteryLevel),
		Device:   dev,
		Event:    device.EventBatteryLevelChanged,
		Decode:   decodeInt,
		Read:     bm.BatteryLevel,
	})
}
