package mqtthost

import (
	"time"

	"github.com/nerrad567/gray-logic-miio/internal/accessory"
)

// CommandMessage asks the bridge to set one characteristic.
// Topic: {prefix}/command/{uuid}
type CommandMessage struct {
	ID             string                       `json:"id"`
	Service        accessory.ServiceType        `json:"service"`
	Characteristic accessory.CharacteristicType `json:"characteristic"`
	Value          any                          `json:"value"`
}

// AckStatus is the outcome of a command.
type AckStatus string

const (
	// AckAccepted means the device accepted the write.
	AckAccepted AckStatus = "accepted"

	// AckFailed means the write was rejected or the device failed.
	AckFailed AckStatus = "failed"
)

// AckMessage acknowledges a command.
// Topic: {prefix}/ack/{uuid}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Accessory string    `json:"accessory"`
	Status    AckStatus `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError describes a failed command.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes used in acks and responses.
const (
	ErrCodeInvalidMessage = "INVALID_MESSAGE"
	ErrCodeUnknownTarget  = "UNKNOWN_TARGET"
	ErrCodeInvalidValue   = "INVALID_VALUE"
	ErrCodeReadOnly       = "READ_ONLY"
	ErrCodeDeviceFailed   = "DEVICE_FAILED"
)

// RequestMessage asks for the current value of one characteristic.
// Topic: {prefix}/request/{request_id}
type RequestMessage struct {
	RequestID      string                       `json:"request_id"`
	Accessory      string                       `json:"accessory"`
	Service        accessory.ServiceType        `json:"service"`
	Characteristic accessory.CharacteristicType `json:"characteristic"`
}

// ResponseMessage answers a RequestMessage.
// Topic: {prefix}/response/{request_id}
type ResponseMessage struct {
	RequestID string    `json:"request_id"`
	Success   bool      `json:"success"`
	Value     any       `json:"value,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Error     *AckError `json:"error,omitempty"`
}

// StateMessage is a pushed characteristic value.
type StateMessage struct {
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// ReachabilityMessage is a reachability change.
type ReachabilityMessage struct {
	Reachable bool      `json:"reachable"`
	Timestamp time.Time `json:"timestamp"`
}
