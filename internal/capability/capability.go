// Package capability maps device capability tags to accessory wiring.
//
// The set of capabilities is closed. Each one is dispatched through
// Visitor, so adding a capability means adding a Visitor method, and every
// visitor then fails to compile until it handles it.
package capability

import "github.com/nerrad567/gray-logic-miio/internal/device"

// Capability is one wireable device capability.
type Capability int

const (
	Actions Capability = iota
	Temperature
	Motion
	Illuminance
	BatteryLevel
	RelativeHumidity
	SwitchablePower

	// Light is the composite light wiring. It replaces the per-tag wiring
	// for devices it matches.
	Light
)

// Visitor has one method per capability.
type Visitor interface {
	VisitActions()
	VisitTemperature()
	VisitMotion()
	VisitIlluminance()
	VisitBatteryLevel()
	VisitRelativeHumidity()
	VisitSwitchablePower()
	VisitLight()
}

// Accept calls the Visitor method for c.
func (c Capability) Accept(v Visitor) {
	switch c {
	case Actions:
		v.VisitActions()
	case Temperature:
		v.VisitTemperature()
	case Motion:
		v.VisitMotion()
	case Illuminance:
		v.VisitIlluminance()
	case BatteryLevel:
		v.VisitBatteryLevel()
	case RelativeHumidity:
		v.VisitRelativeHumidity()
	case SwitchablePower:
		v.VisitSwitchablePower()
	case Light:
		v.VisitLight()
	}
}

// Tags returns the tags a device must carry, all of them, to match c.
func (c Capability) Tags() []device.Tag {
	switch c {
	case Actions:
		return []device.Tag{device.TagActions}
	case Temperature:
		return []device.Tag{device.TagTemperature}
	case Motion:
		return []device.Tag{device.TagMotion}
	case Illuminance:
		return []device.Tag{device.TagIlluminance}
	case BatteryLevel:
		return []device.Tag{device.TagBatteryLevel}
	case RelativeHumidity:
		return []device.Tag{device.TagRelativeHumidity}
	case SwitchablePower:
		return []device.Tag{device.TagSwitchablePower}
	case Light:
		return []device.Tag{device.TagLight, device.TagSwitchablePower}
	}
	return nil
}

func (c Capability) String() string {
	switch c {
	case Actions:
		return "actions"
	case Temperature:
		return "temperature"
	case Motion:
		return "motion"
	case Illuminance:
		return "illuminance"
	case BatteryLevel:
		return "battery-level"
	case RelativeHumidity:
		return "relative-humidity"
	case SwitchablePower:
		return "switchable-power"
	case Light:
		return "light"
	}
	return "unknown"
}

// table is the per-tag wiring order.
var table = []Capability{
	Actions,
	Temperature,
	Motion,
	Illuminance,
	BatteryLevel,
	RelativeHumidity,
	SwitchablePower,
}

// Select returns the capabilities to wire for dev, in wiring order. A
// light gets Light alone.
func Select(dev device.Device) []Capability {
	if device.Matches(dev, Light.Tags()...) {
		return []Capability{Light}
	}

	var caps []Capability
	for _, c := range table {
		if device.Matches(dev, c.Tags()...) {
			caps = append(caps, c)
		}
	}
	return caps
}
