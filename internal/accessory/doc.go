// Package accessory models the host-facing side of the bridge: accessories
// made of services, each holding named characteristics.
//
// A Characteristic is the endpoint facade. The binding engine registers get
// and set handlers on it and pushes device values with UpdateValue; hosts
// (HomeKit, the MQTT endpoint surface, the status API) call Get and Set,
// which hop onto the event loop and wait for the handler to complete.
//
// Handler registration, HandleGet, HandleSet and UpdateValue must run on the
// loop. Reads of cached values, snapshots and reachability are safe from any
// goroutine.
package accessory
