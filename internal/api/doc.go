// Package api implements the status REST API and WebSocket event stream of
// the miio bridge.
//
// This package provides:
//   - Gateway supervisor status
//   - Accessory snapshots and characteristic reads and writes
//   - A WebSocket hub broadcasting characteristic pushes and reachability
//     changes
//   - Middleware stack (request ID, logging, recovery, body size limit)
//
// # Architecture
//
// Reads and writes go through accessory.Characteristic.Get and Set, the
// same path the HomeKit and MQTT hosts use, so a write through the API
// follows the two-way binding rules. The Hub is an accessory.Observer and
// is subscribed to every accessory by the platform.
//
// The API has no authentication and is meant for a trusted network.
package api
