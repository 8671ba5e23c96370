package accessory

// ServiceType names a group of characteristics.
type ServiceType string

const (
	ServiceAccessoryInformation        ServiceType = "AccessoryInformation"
	ServiceLightbulb                   ServiceType = "Lightbulb"
	ServiceOutlet                      ServiceType = "Outlet"
	ServiceTemperatureSensor           ServiceType = "TemperatureSensor"
	ServiceHumiditySensor              ServiceType = "HumiditySensor"
	ServiceLightSensor                 ServiceType = "LightSensor"
	ServiceMotionSensor                ServiceType = "MotionSensor"
	ServiceBattery                     ServiceType = "BatteryService"
	ServiceStatelessProgrammableSwitch ServiceType = "StatelessProgrammableSwitch"
)

// CharacteristicType names a characteristic.
type CharacteristicType string

const (
	CharName         CharacteristicType = "Name"
	CharManufacturer CharacteristicType = "Manufacturer"
	CharModel        CharacteristicType = "Model"
	CharSerialNumber CharacteristicType = "SerialNumber"

	CharOn                       CharacteristicType = "On"
	CharBrightness               CharacteristicType = "Brightness"
	CharHue                      CharacteristicType = "Hue"
	CharSaturation               CharacteristicType = "Saturation"
	CharOutletInUse              CharacteristicType = "OutletInUse"
	CharCurrentTemperature       CharacteristicType = "CurrentTemperature"
	CharCurrentRelativeHumidity  CharacteristicType = "CurrentRelativeHumidity"
	CharCurrentAmbientLightLevel CharacteristicType = "CurrentAmbientLightLevel"
	CharBatteryLevel             CharacteristicType = "BatteryLevel"
	CharChargingState            CharacteristicType = "ChargingState"
	CharMotionDetected           CharacteristicType = "MotionDetected"
	CharProgrammableSwitchEvent  CharacteristicType = "ProgrammableSwitchEvent"
)

// ChargingState values.
const (
	ChargingStateNotCharging   = 0
	ChargingStateCharging      = 1
	ChargingStateNotChargeable = 2
)

// ProgrammableSwitchEvent values.
const (
	SwitchSinglePress = 0
	SwitchDoublePress = 1
	SwitchLongPress   = 2
)

// Format is the value type of a characteristic.
type Format string

const (
	FormatBool   Format = "bool"
	FormatInt    Format = "int"
	FormatFloat  Format = "float"
	FormatString Format = "string"
)

// Props describes the value range of numeric characteristics. A zero Props
// means unbounded.
type Props struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step,omitempty"`
}

func (p Props) bounded() bool {
	return p.Max > p.Min
}

type characteristicSpec struct {
	format Format
	props  Props
}

var characteristicSpecs = map[CharacteristicType]characteristicSpec{
	CharName:         {format: FormatString},
	CharManufacturer: {format: FormatString},
	CharModel:        {format: FormatString},
	CharSerialNumber: {format: FormatString},

	CharOn:                       {format: FormatBool},
	CharBrightness:               {format: FormatInt, props: Props{Min: 0, Max: 100, Step: 1}},
	CharHue:                      {format: FormatFloat, props: Props{Min: 0, Max: 360, Step: 1}},
	CharSaturation:               {format: FormatFloat, props: Props{Min: 0, Max: 100, Step: 1}},
	CharOutletInUse:              {format: FormatBool},
	CharCurrentTemperature:       {format: FormatFloat, props: Props{Min: -270, Max: 100, Step: 0.1}},
	CharCurrentRelativeHumidity:  {format: FormatFloat, props: Props{Min: 0, Max: 100, Step: 1}},
	CharCurrentAmbientLightLevel: {format: FormatFloat, props: Props{Min: 0.0001, Max: 100000}},
	CharBatteryLevel:             {format: FormatInt, props: Props{Min: 0, Max: 100, Step: 1}},
	CharChargingState:            {format: FormatInt, props: Props{Min: 0, Max: 2, Step: 1}},
	CharMotionDetected:           {format: FormatBool},
	CharProgrammableSwitchEvent:  {format: FormatInt, props: Props{Min: 0, Max: 2, Step: 1}},
}

// Format returns the value format of t. Unknown types are strings.
func (t CharacteristicType) Format() Format {
	if spec, ok := characteristicSpecs[t]; ok {
		return spec.format
	}
	return FormatString
}

// DefaultProps returns the standard range of t.
func (t CharacteristicType) DefaultProps() Props {
	return characteristicSpecs[t].props
}

// zeroValue is the value a characteristic holds before anything is pushed.
func (f Format) zeroValue() any {
	switch f {
	case FormatBool:
		return false
	case FormatInt:
		return 0
	case FormatFloat:
		return 0.0
	default:
		return ""
	}
}
