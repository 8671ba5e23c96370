package gateway

import "errors"

var (
	// ErrNotGateway is returned when the configured address answers as a
	// device other than a gateway.
	ErrNotGateway = errors.New("gateway: device is not a gateway")

	// ErrDiscoveryFailed is returned when both discovery attempts failed.
	ErrDiscoveryFailed = errors.New("gateway: discovery failed")
)
