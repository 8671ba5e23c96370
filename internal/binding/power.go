package binding

import (
	"github.com/nerrad567/gray-logic-miio/internal/accessory"
	"github.com/nerrad567/gray-logic-miio/internal/device"
)

// BindPower binds an On characteristic to the device's power property.
func BindPower(env Env, on *accessory.Characteristic, dev device.Device, sw device.Switchable) *TwoWay[bool] {
	return Bind(env, Config[bool]{
		Name:     "power",
		Endpoint: on,
		Device:   dev,
		Event:    device.EventPowerChanged,
		Decode:   decodeBool,
		Read:     sw.Power,
		Write:    sw.ChangePower,
	})
}

// WireOutlet adds an Outlet service bound to the device's power. The outlet
// reports itself in use since the device cannot tell.
func WireOutlet(env Env, acc *accessory.Accessory, dev device.Device, sw device.Switchable) *TwoWay[bool] {
	env.Logger.Debug("adding outlet service", "device", dev.ID())

	s := acc.FindOrCreateService(accessory.ServiceOutlet, "Plug")
	s.UpdateCharacteristic(accessory.CharOutletInUse, true)
	return BindPower(env, s.Characteristic(accessory.CharOn), dev, sw)
}
