package miio

import (
	"encoding/json"
	"time"
)

// Action is a request type understood by the agent.
type Action string

const (
	// ActionResolve connects to a gateway and returns its device tree.
	ActionResolve Action = "resolve"

	// ActionRead reads one property of a device.
	ActionRead Action = "read"

	// ActionWrite changes one property of a device.
	ActionWrite Action = "write"

	// ActionCall invokes a raw miio method on a device.
	ActionCall Action = "call"

	// ActionPoll probes a device for liveness.
	ActionPoll Action = "poll"

	// ActionPing checks that the agent itself is answering.
	ActionPing Action = "ping"
)

// RequestMessage is sent from the bridge to the agent.
// Topic: {prefix}/request/{bridge}/{request_id}
type RequestMessage struct {
	// RequestID uniquely identifies this request for correlation.
	RequestID string `json:"request_id"`

	// Timestamp is when the request was issued (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	Action Action `json:"action"`

	// DeviceID is the target device, for every action except resolve and ping.
	DeviceID string `json:"device_id,omitempty"`

	// Gateway carries the connection parameters for resolve.
	Gateway *GatewayParams `json:"gateway,omitempty"`

	// Property and Value are used by read and write.
	Property string `json:"property,omitempty"`
	Value    any    `json:"value,omitempty"`

	// Method, Params and Refresh are used by call. Refresh names the
	// properties the agent should re-read after the call.
	Method  string   `json:"method,omitempty"`
	Params  []any    `json:"params,omitempty"`
	Refresh []string `json:"refresh,omitempty"`
}

// GatewayParams are a gateway's connection parameters.
type GatewayParams struct {
	Address string `json:"address"`
	Token   string `json:"token,omitempty"`
	Model   string `json:"model,omitempty"`
}

// ResponseMessage is sent from the agent in response to a request.
// Topic: {prefix}/response/{bridge}/{request_id}
type ResponseMessage struct {
	// RequestID is the ID from the original request.
	RequestID string `json:"request_id"`

	// Timestamp is when the response was generated (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Success indicates whether the request succeeded.
	Success bool `json:"success"`

	// Data contains the response payload: a DeviceDescriptor for resolve,
	// a ValueData for read.
	Data json.RawMessage `json:"data,omitempty"`

	// Error contains error details (if failed).
	Error *ResponseError `json:"error,omitempty"`
}

// ResponseError contains error details for failed requests.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes reported by the agent.
const (
	ErrCodeDeviceUnreachable = "DEVICE_UNREACHABLE"
	ErrCodeInvalidToken      = "INVALID_TOKEN"
	ErrCodeUnknownDevice     = "UNKNOWN_DEVICE"
	ErrCodeUnknownProperty   = "UNKNOWN_PROPERTY"
	ErrCodeTimeout           = "TIMEOUT"
)

// DeviceDescriptor describes a device and its children.
type DeviceDescriptor struct {
	ID       string             `json:"id"`
	Model    string             `json:"model"`
	Tags     []string           `json:"tags"`
	Children []DeviceDescriptor `json:"children,omitempty"`
}

// ValueData is the data of a read response.
type ValueData struct {
	Value any `json:"value"`
}

// EventMessage is published by the agent when a device emits an event.
// Topic: {prefix}/event/{device_id}/{event}
type EventMessage struct {
	DeviceID  string         `json:"device_id"`
	Event     string         `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	Value     any            `json:"value,omitempty"`
	Action    string         `json:"action,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}
