// Package miio implements the device facade over MQTT.
//
// The miio wire protocol (UDP, token handshake, encryption) is spoken by an
// external agent. This package exchanges JSON messages with it:
//
//	{prefix}/request/{bridge}/{request_id}   bridge -> agent
//	{prefix}/response/{bridge}/{request_id}  agent -> bridge
//	{prefix}/event/{device_id}/{event}       agent -> bridge
//
// Requests carry an action (resolve, read, write, call, poll, ping) and are
// correlated with their response by request id. A request that gets no
// response within the configured timeout fails with ErrTimeout.
//
// Resolve returns the gateway as a device.Device whose children are the
// sub-devices paired with it. Every Device implements all facet interfaces
// of package device; the capability tags decide which ones are used.
package miio
