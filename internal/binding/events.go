package binding

import (
	"github.com/nerrad567/gray-logic-miio/internal/accessory"
	"github.com/nerrad567/gray-logic-miio/internal/device"
)

// buttonActions maps device action names to programmable switch events.
var buttonActions = map[string]int{
	"click":            accessory.SwitchSinglePress,
	"double_click":     accessory.SwitchDoublePress,
	"long_click_press": accessory.SwitchLongPress,
}

// WireButton adds a StatelessProgrammableSwitch service fed by the device's
// action events. Unknown actions are dropped.
func WireButton(env Env, acc *accessory.Accessory, dev device.Device) *accessory.Characteristic {
	env.Logger.Debug("adding switch service", "device", dev.ID())

	s := acc.FindOrCreateService(accessory.ServiceStatelessProgrammableSwitch, "Click")
	event := s.Characteristic(accessory.CharProgrammableSwitchEvent)

	dev.On(device.EventAction, func(p device.Payload) {
		env.Loop.Post(func() {
			press, ok := buttonActions[p.Action]
			if !ok {
				env.Logger.Debug("action not mapped, ignoring",
					"device", dev.ID(), "action", p.Action)
				return
			}
			env.Logger.Debug("button pressed", "device", dev.ID(), "action", p.Action)
			event.UpdateValue(press)
		})
	})
	return event
}

// WireMotion adds a MotionSensor service. It is driven by movement and
// inactivity events only; the device has no readable motion state.
func WireMotion(env Env, acc *accessory.Accessory, dev device.Device) *accessory.Characteristic {
	env.Logger.Debug("adding motion sensor service", "device", dev.ID())

	s := acc.FindOrCreateService(accessory.ServiceMotionSensor, "Motion")
	detected := s.Characteristic(accessory.CharMotionDetected)

	dev.On(device.EventMovement, func(device.Payload) {
		env.Loop.Post(func() { detected.UpdateValue(true) })
	})
	dev.On(device.EventInactivity, func(device.Payload) {
		env.Loop.Post(func() { detected.UpdateValue(false) })
	})
	return detected
}
