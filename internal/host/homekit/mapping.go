package homekit

import (
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"

	model "github.com/nerrad567/gray-logic-miio/internal/accessory"
	"github.com/nerrad567/gray-logic-miio/internal/device"
)

// hapCharacteristic pairs a HAP characteristic with typed accessors.
type hapCharacteristic struct {
	c   *characteristic.C
	set func(v any)
	get func() any

	setMin func(float64)
	setMax func(float64)
}

func boolCharacteristic(b *characteristic.Bool) *hapCharacteristic {
	return &hapCharacteristic{
		c: b.C,
		set: func(v any) {
			if on, err := device.AsBool(v); err == nil {
				b.SetValue(on)
			}
		},
		get: func() any { return b.Value() },
	}
}

func intCharacteristic(i *characteristic.Int) *hapCharacteristic {
	return &hapCharacteristic{
		c: i.C,
		set: func(v any) {
			if n, err := device.AsInt(v); err == nil {
				i.SetValue(n)
			}
		},
		get:    func() any { return i.Value() },
		setMin: func(f float64) { i.SetMinValue(int(f)) },
		setMax: func(f float64) { i.SetMaxValue(int(f)) },
	}
}

func floatCharacteristic(f *characteristic.Float) *hapCharacteristic {
	return &hapCharacteristic{
		c: f.C,
		set: func(v any) {
			if n, err := device.AsFloat(v); err == nil {
				f.SetValue(n)
			}
		},
		get:    func() any { return f.Value() },
		setMin: func(v float64) { f.SetMinValue(v) },
		setMax: func(v float64) { f.SetMaxValue(v) },
	}
}

// newCharacteristic returns the HAP characteristic for t, or false when t
// has no HAP counterpart.
func newCharacteristic(t model.CharacteristicType) (*hapCharacteristic, bool) {
	switch t {
	case model.CharOn:
		return boolCharacteristic(characteristic.NewOn().Bool), true
	case model.CharOutletInUse:
		return boolCharacteristic(characteristic.NewOutletInUse().Bool), true
	case model.CharMotionDetected:
		return boolCharacteristic(characteristic.NewMotionDetected().Bool), true
	case model.CharBrightness:
		return intCharacteristic(characteristic.NewBrightness().Int), true
	case model.CharBatteryLevel:
		return intCharacteristic(characteristic.NewBatteryLevel().Int), true
	case model.CharChargingState:
		return intCharacteristic(characteristic.NewChargingState().Int), true
	case model.CharProgrammableSwitchEvent:
		return intCharacteristic(characteristic.NewProgrammableSwitchEvent().Int), true
	case model.CharHue:
		return floatCharacteristic(characteristic.NewHue().Float), true
	case model.CharSaturation:
		return floatCharacteristic(characteristic.NewSaturation().Float), true
	case model.CharCurrentTemperature:
		return floatCharacteristic(characteristic.NewCurrentTemperature().Float), true
	case model.CharCurrentRelativeHumidity:
		return floatCharacteristic(characteristic.NewCurrentRelativeHumidity().Float), true
	case model.CharCurrentAmbientLightLevel:
		return floatCharacteristic(characteristic.NewCurrentAmbientLightLevel().Float), true
	}
	return nil, false
}

// serviceTypes maps services to HAP service type ids.
var serviceTypes = map[model.ServiceType]string{
	model.ServiceLightbulb:                   service.TypeLightbulb,
	model.ServiceOutlet:                      service.TypeOutlet,
	model.ServiceTemperatureSensor:           service.TypeTemperatureSensor,
	model.ServiceHumiditySensor:              service.TypeHumiditySensor,
	model.ServiceLightSensor:                 service.TypeLightSensor,
	model.ServiceMotionSensor:                service.TypeMotionSensor,
	model.ServiceBattery:                     service.TypeBatteryService,
	model.ServiceStatelessProgrammableSwitch: service.TypeStatelessProgrammableSwitch,
}

// accessoryType picks the HAP category from the first controllable service.
func accessoryType(acc *model.Accessory) byte {
	for _, s := range acc.Services() {
		switch s.Type {
		case model.ServiceLightbulb:
			return accessory.TypeLightbulb
		case model.ServiceOutlet:
			return accessory.TypeOutlet
		case model.ServiceStatelessProgrammableSwitch:
			return accessory.TypeProgrammableSwitch
		}
	}
	return accessory.TypeSensor
}
