package miio

import "errors"

// Domain errors for the miio bridge package.
var (
	// ErrNotConnected is returned when a request is made while the MQTT
	// client is disconnected.
	ErrNotConnected = errors.New("miio: not connected to broker")

	// ErrTimeout is returned when the agent does not answer in time.
	ErrTimeout = errors.New("miio: request timed out")

	// ErrRequestFailed is returned when the agent answers with an error.
	ErrRequestFailed = errors.New("miio: request failed")

	// ErrInvalidResponse is returned when a response cannot be decoded.
	ErrInvalidResponse = errors.New("miio: invalid response")
)
