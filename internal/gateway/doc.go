// Package gateway connects configured miio gateways and keeps their
// accessories' reachability current.
//
// Each gateway is run by a Supervisor:
//
//	discovering -> attached -> polling <-> unreachable
//	     |
//	     v
//	   failed
//
// Discovery resolves the gateway from its connection parameters. A device
// that is not a gateway is a configuration error and is not retried. Any
// other discovery failure is retried exactly once, immediately; a second
// failure is terminal. Once attached, the gateway and every child device are
// handed to the platform, and the gateway is polled at a fixed interval for
// as long as the bridge runs.
//
// A Manager runs one Supervisor per configured gateway and reports each
// terminal failure once. The HealthReporter publishes the bridge's overall
// health to MQTT.
package gateway
