package mqtthost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-miio/internal/accessory"
	"github.com/nerrad567/gray-logic-miio/internal/binding"
	"github.com/nerrad567/gray-logic-miio/internal/infrastructure/mqtt"
)

const (
	defaultQueueSize      = 256
	defaultCommandTimeout = 15 * time.Second
)

// MQTTClient is the subset of the MQTT client the host uses.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error
	IsConnected() bool
}

// Logger is the logging interface the host uses.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options configures a Host.
type Options struct {
	MQTT   MQTTClient
	Prefix string
	QoS    byte
	Logger Logger

	// QueueSize bounds the outbound queue. Messages are dropped with a
	// warning when it is full.
	QueueSize int

	// CommandTimeout bounds how long a set or get waits for the device.
	CommandTimeout time.Duration
}

type outbound struct {
	topic    string
	payload  []byte
	retained bool
}

// Host publishes accessories and serves set and get commands. It
// implements platform.Host and accessory.Observer.
type Host struct {
	mqtt    MQTTClient
	prefix  string
	qos     byte
	logger  Logger
	timeout time.Duration
	now     func() time.Time

	queue chan outbound

	mu          sync.RWMutex
	accessories map[string]*accessory.Accessory
}

// New creates a Host. Run must be started for anything to be published.
func New(opts Options) *Host {
	size := opts.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	timeout := opts.CommandTimeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	return &Host{
		mqtt:        opts.MQTT,
		prefix:      opts.Prefix,
		qos:         opts.QoS,
		logger:      opts.Logger,
		timeout:     timeout,
		now:         time.Now,
		queue:       make(chan outbound, size),
		accessories: make(map[string]*accessory.Accessory),
	}
}

// Start subscribes to the command and request topics.
func (h *Host) Start() error {
	commands := mqtt.JoinTopic(h.prefix, "command", "+")
	if err := h.mqtt.Subscribe(commands, h.qos, h.handleCommand); err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}
	requests := mqtt.JoinTopic(h.prefix, "request", "+")
	if err := h.mqtt.Subscribe(requests, h.qos, h.handleRequest); err != nil {
		return fmt.Errorf("subscribing to requests: %w", err)
	}
	return nil
}

// Run publishes queued messages until ctx is done.
func (h *Host) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-h.queue:
			if err := h.mqtt.Publish(m.topic, m.payload, h.qos, m.retained); err != nil {
				h.logger.Warn("failed to publish", "topic", m.topic, "error", err)
			}
		}
	}
}

// Publish announces acc and its current state. Called on the loop.
func (h *Host) Publish(acc *accessory.Accessory) error {
	h.mu.Lock()
	h.accessories[acc.UUID] = acc
	h.mu.Unlock()

	snap := acc.Snapshot()
	if err := h.enqueue(mqtt.JoinTopic(h.prefix, "accessory", acc.UUID), snap, true); err != nil {
		return err
	}
	ts := h.now().UTC()
	for _, s := range snap.Services {
		if s.Type == accessory.ServiceAccessoryInformation {
			continue
		}
		for _, c := range s.Characteristics {
			_ = h.enqueue(h.stateTopic(acc.UUID, s.Type, c.Type), StateMessage{Value: c.Value, Timestamp: ts}, true)
		}
	}
	return h.enqueue(mqtt.JoinTopic(h.prefix, "reachability", acc.UUID),
		ReachabilityMessage{Reachable: snap.Reachable, Timestamp: ts}, true)
}

// CharacteristicUpdated publishes a pushed value.
func (h *Host) CharacteristicUpdated(c *accessory.Characteristic, value any) {
	s := c.Service()
	topic := h.stateTopic(s.Accessory().UUID, s.Type, c.Type())
	_ = h.enqueue(topic, StateMessage{Value: value, Timestamp: h.now().UTC()}, true)
}

// ReachabilityUpdated publishes a reachability change.
func (h *Host) ReachabilityUpdated(a *accessory.Accessory, reachable bool) {
	topic := mqtt.JoinTopic(h.prefix, "reachability", a.UUID)
	_ = h.enqueue(topic, ReachabilityMessage{Reachable: reachable, Timestamp: h.now().UTC()}, true)
}

func (h *Host) stateTopic(uuid string, st accessory.ServiceType, ct accessory.CharacteristicType) string {
	return mqtt.JoinTopic(h.prefix, "state", uuid, string(st), string(ct))
}

func (h *Host) enqueue(topic string, msg any, retained bool) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal message", "topic", topic, "error", err)
		return fmt.Errorf("marshalling %s: %w", topic, err)
	}
	select {
	case h.queue <- outbound{topic: topic, payload: payload, retained: retained}:
		return nil
	default:
		h.logger.Warn("outbound queue full, dropping message", "topic", topic)
		return nil
	}
}

func (h *Host) lookup(uuid string) (*accessory.Accessory, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	acc, ok := h.accessories[uuid]
	return acc, ok
}

func (h *Host) handleCommand(topic string, payload []byte) error {
	levels := mqtt.SplitTopic(topic)
	uuid := levels[len(levels)-1]

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		h.logger.Warn("failed to parse command", "topic", topic, "error", err)
		h.ack(uuid, cmd, &AckError{Code: ErrCodeInvalidMessage, Message: err.Error()})
		return nil
	}

	acc, ok := h.lookup(uuid)
	if !ok {
		h.ack(uuid, cmd, &AckError{Code: ErrCodeUnknownTarget, Message: "unknown accessory " + uuid})
		return nil
	}
	c, err := acc.Find(cmd.Service, cmd.Characteristic)
	if err != nil {
		h.ack(uuid, cmd, &AckError{Code: ErrCodeUnknownTarget, Message: err.Error()})
		return nil
	}

	h.logger.Info("received command",
		"command_id", cmd.ID, "accessory", uuid, "characteristic", cmd.Characteristic)

	// Queue here so commands reach the loop in arrival order; only the wait
	// for the device leaves the MQTT callback.
	result, err := c.Submit(cmd.Value)
	if err != nil {
		h.ack(uuid, cmd, errorDetail(err))
		return nil
	}
	go func() {
		timer := time.NewTimer(h.timeout)
		defer timer.Stop()
		select {
		case err := <-result:
			h.ack(uuid, cmd, ackDetail(err))
		case <-timer.C:
			h.ack(uuid, cmd, errorDetail(context.DeadlineExceeded))
		}
	}()
	return nil
}

func (h *Host) handleRequest(topic string, payload []byte) error {
	levels := mqtt.SplitTopic(topic)
	requestID := levels[len(levels)-1]

	var req RequestMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		h.respond(requestID, nil, &AckError{Code: ErrCodeInvalidMessage, Message: err.Error()})
		return nil
	}
	if req.RequestID != "" {
		requestID = req.RequestID
	}

	acc, ok := h.lookup(req.Accessory)
	if !ok {
		h.respond(requestID, nil, &AckError{Code: ErrCodeUnknownTarget, Message: "unknown accessory " + req.Accessory})
		return nil
	}
	c, err := acc.Find(req.Service, req.Characteristic)
	if err != nil {
		h.respond(requestID, nil, &AckError{Code: ErrCodeUnknownTarget, Message: err.Error()})
		return nil
	}

	result := c.Request()
	go func() {
		timer := time.NewTimer(h.timeout)
		defer timer.Stop()
		select {
		case r := <-result:
			h.respond(requestID, r.Value, ackDetail(r.Err))
		case <-timer.C:
			h.respond(requestID, nil, errorDetail(context.DeadlineExceeded))
		}
	}()
	return nil
}

func (h *Host) ack(uuid string, cmd CommandMessage, ackErr *AckError) {
	msg := AckMessage{
		CommandID: cmd.ID,
		Accessory: uuid,
		Status:    AckAccepted,
		Timestamp: h.now().UTC(),
		Error:     ackErr,
	}
	if ackErr != nil {
		msg.Status = AckFailed
		h.logger.Warn("command failed", "command_id", cmd.ID, "code", ackErr.Code, "message", ackErr.Message)
	}
	_ = h.enqueue(mqtt.JoinTopic(h.prefix, "ack", uuid), msg, false)
}

func (h *Host) respond(requestID string, value any, respErr *AckError) {
	msg := ResponseMessage{
		RequestID: requestID,
		Success:   respErr == nil,
		Value:     value,
		Timestamp: h.now().UTC(),
		Error:     respErr,
	}
	_ = h.enqueue(mqtt.JoinTopic(h.prefix, "response", requestID), msg, false)
}

func ackDetail(err error) *AckError {
	if err == nil {
		return nil
	}
	return errorDetail(err)
}

func errorDetail(err error) *AckError {
	code := ErrCodeDeviceFailed
	switch {
	case errors.Is(err, accessory.ErrReadOnly):
		code = ErrCodeReadOnly
	case errors.Is(err, accessory.ErrInvalidValue), errors.Is(err, binding.ErrInvalidValue):
		code = ErrCodeInvalidValue
	}
	return &AckError{Code: code, Message: err.Error()}
}
