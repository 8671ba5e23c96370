// Package homekit exposes accessories as HomeKit accessories behind one
// bridge, using github.com/brutella/hap.
//
// Remote writes go through accessory.Characteristic.Set and answer the
// controller once the device write has settled. Remote reads go through
// Characteristic.Get and fail with a communication error while the
// accessory is unreachable. Pushed values are mirrored with SetValue.
//
// The HAP accessory list is fixed when Serve starts. Accessories published
// later are exposed after a restart.
package homekit
