package miio

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-miio/internal/device"
	"github.com/nerrad567/gray-logic-miio/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-miio/internal/infrastructure/mqtt"
)

// defaultRequestTimeout applies when the configuration leaves it unset.
const defaultRequestTimeout = 10 * time.Second

// requestQoS is used for every request and subscription.
const requestQoS = 1

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Logger is the logging interface the client uses.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ClientOptions configures a Client.
type ClientOptions struct {
	MQTT     MQTTClient
	BridgeID string
	Config   config.MiioConfig
	Logger   Logger
}

// Client talks to the miio agent. It implements gateway.Resolver.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	mqtt     MQTTClient
	prefix   string
	bridgeID string
	timeout  time.Duration
	logger   Logger
	newID    func() string
	now      func() time.Time

	mu       sync.Mutex
	pending  map[string]chan ResponseMessage
	handlers map[string]map[device.Event][]device.Handler
}

// NewClient creates a Client. Call Start before making requests.
func NewClient(opts ClientOptions) *Client {
	timeout := opts.Config.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		mqtt:     opts.MQTT,
		prefix:   opts.Config.TopicPrefix,
		bridgeID: opts.BridgeID,
		timeout:  timeout,
		logger:   opts.Logger,
		newID:    uuid.NewString,
		now:      time.Now,
		pending:  make(map[string]chan ResponseMessage),
		handlers: make(map[string]map[device.Event][]device.Handler),
	}
}

// Start subscribes to responses and events.
func (c *Client) Start() error {
	responses := mqtt.JoinTopic(c.prefix, "response", c.bridgeID, "+")
	if err := c.mqtt.Subscribe(responses, requestQoS, c.handleResponse); err != nil {
		return fmt.Errorf("subscribing to responses: %w", err)
	}
	events := mqtt.JoinTopic(c.prefix, "event", "#")
	if err := c.mqtt.Subscribe(events, requestQoS, c.handleEvent); err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	c.logger.Info("miio client started", "prefix", c.prefix, "bridge", c.bridgeID)
	return nil
}

// Resolve connects to the gateway described by gw and returns its device
// tree.
func (c *Client) Resolve(ctx context.Context, gw config.GatewayConfig) (device.Device, error) {
	data, err := c.request(ctx, RequestMessage{
		Action:  ActionResolve,
		Gateway: &GatewayParams{Address: gw.Address, Token: gw.Token, Model: gw.Model},
	})
	if err != nil {
		return nil, err
	}

	var desc DeviceDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("%w: resolve: %w", ErrInvalidResponse, err)
	}
	if desc.ID == "" {
		return nil, fmt.Errorf("%w: resolve: device has no id", ErrInvalidResponse)
	}

	root := c.build(desc, desc.ID)
	c.logger.Debug("resolved gateway",
		"address", gw.Address, "device", desc.ID, "model", desc.Model, "children", len(desc.Children))
	return root, nil
}

func (c *Client) build(desc DeviceDescriptor, gatewayID string) *Device {
	tags := make([]device.Tag, 0, len(desc.Tags))
	for _, t := range desc.Tags {
		tags = append(tags, device.Tag(t))
	}
	d := &Device{
		client:    c,
		id:        desc.ID,
		model:     desc.Model,
		tags:      device.NewTagSet(tags...),
		gatewayID: gatewayID,
	}
	for _, child := range desc.Children {
		d.children = append(d.children, c.build(child, gatewayID))
	}
	return d
}

// request publishes req and waits for its response.
func (c *Client) request(ctx context.Context, req RequestMessage) (json.RawMessage, error) {
	if !c.mqtt.IsConnected() {
		return nil, ErrNotConnected
	}

	req.RequestID = c.newID()
	req.Timestamp = c.now().UTC()
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", req.Action, err)
	}

	ch := make(chan ResponseMessage, 1)
	c.mu.Lock()
	c.pending[req.RequestID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, req.RequestID)
		c.mu.Unlock()
	}()

	topic := mqtt.JoinTopic(c.prefix, "request", c.bridgeID, req.RequestID)
	if err := c.mqtt.Publish(topic, payload, requestQoS, false); err != nil {
		return nil, fmt.Errorf("publishing %s request: %w", req.Action, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if !resp.Success {
			if resp.Error == nil {
				return nil, fmt.Errorf("%w: %s", ErrRequestFailed, req.Action)
			}
			return nil, fmt.Errorf("%w: %s: %s: %s", ErrRequestFailed, req.Action, resp.Error.Code, resp.Error.Message)
		}
		return resp.Data, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s %s after %v", ErrTimeout, req.Action, req.DeviceID, c.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) handleResponse(topic string, payload []byte) error {
	var resp ResponseMessage
	if err := json.Unmarshal(payload, &resp); err != nil {
		c.logger.Warn("invalid response payload", "topic", topic, "error", err)
		return nil
	}
	if resp.RequestID == "" {
		levels := mqtt.SplitTopic(topic)
		resp.RequestID = levels[len(levels)-1]
	}

	c.mu.Lock()
	ch, ok := c.pending[resp.RequestID]
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("response for unknown request", "request_id", resp.RequestID)
		return nil
	}

	select {
	case ch <- resp:
	default:
	}
	return nil
}

func (c *Client) handleEvent(topic string, payload []byte) error {
	rest := strings.TrimPrefix(topic, mqtt.JoinTopic(c.prefix, "event")+"/")
	deviceID, event, ok := strings.Cut(rest, "/")
	if !ok || deviceID == "" || event == "" {
		c.logger.Warn("invalid event topic", "topic", topic)
		return nil
	}

	var msg EventMessage
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.logger.Warn("invalid event payload", "topic", topic, "error", err)
			return nil
		}
	}

	c.mu.Lock()
	hs := append([]device.Handler(nil), c.handlers[deviceID][device.Event(event)]...)
	c.mu.Unlock()

	p := device.Payload{Value: msg.Value, Action: msg.Action, Data: msg.Data}
	for _, h := range hs {
		h(p)
	}
	return nil
}

func (c *Client) on(deviceID string, event device.Event, h device.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	byEvent, ok := c.handlers[deviceID]
	if !ok {
		byEvent = make(map[device.Event][]device.Handler)
		c.handlers[deviceID] = byEvent
	}
	byEvent[event] = append(byEvent[event], h)
}

func (c *Client) read(ctx context.Context, deviceID, property string) (any, error) {
	data, err := c.request(ctx, RequestMessage{Action: ActionRead, DeviceID: deviceID, Property: property})
	if err != nil {
		return nil, err
	}
	var v ValueData
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrInvalidResponse, property, err)
	}
	return v.Value, nil
}

func (c *Client) write(ctx context.Context, deviceID, property string, value any) error {
	_, err := c.request(ctx, RequestMessage{Action: ActionWrite, DeviceID: deviceID, Property: property, Value: value})
	return err
}

func (c *Client) call(ctx context.Context, deviceID, method string, params []any, refresh ...string) error {
	_, err := c.request(ctx, RequestMessage{
		Action:   ActionCall,
		DeviceID: deviceID,
		Method:   method,
		Params:   params,
		Refresh:  refresh,
	})
	return err
}

func (c *Client) poll(ctx context.Context, deviceID string) error {
	_, err := c.request(ctx, RequestMessage{Action: ActionPoll, DeviceID: deviceID})
	return err
}

// Ping checks that the agent answers requests at all.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.request(ctx, RequestMessage{Action: ActionPing})
	return err
}
