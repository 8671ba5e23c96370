package miio

import (
	"encoding/json"
	"sync"

	"github.com/nerrad567/gray-logic-miio/internal/infrastructure/mqtt"
)

// MockMQTTClient delivers published messages to matching subscribers and
// answers requests through a responder.
type MockMQTTClient struct {
	mu        sync.Mutex
	connected bool
	handlers  map[string]func(topic string, payload []byte) error
	published []publishedMessage

	// respond maps a request to the agent's response. A nil response
	// means the agent stays silent.
	respond func(RequestMessage) *ResponseMessage
}

type publishedMessage struct {
	Topic   string
	Payload []byte
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{
		connected: true,
		handlers:  make(map[string]func(string, []byte) error),
	}
}

func (m *MockMQTTClient) Publish(topic string, payload []byte, _ byte, _ bool) error {
	m.mu.Lock()
	m.published = append(m.published, publishedMessage{Topic: topic, Payload: payload})
	respond := m.respond
	m.mu.Unlock()

	if respond == nil {
		return nil
	}
	var req RequestMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		return err
	}
	resp := respond(req)
	if resp == nil {
		return nil
	}
	resp.RequestID = req.RequestID
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	go m.Deliver("miio/response/test-bridge/"+req.RequestID, data)
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, _ byte, handler func(string, []byte) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMQTTClient) SetConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}

// Deliver routes an incoming message to every matching subscription.
func (m *MockMQTTClient) Deliver(topic string, payload []byte) {
	m.mu.Lock()
	var hs []func(string, []byte) error
	for filter, h := range m.handlers {
		if mqtt.TopicMatches(filter, topic) {
			hs = append(hs, h)
		}
	}
	m.mu.Unlock()
	for _, h := range hs {
		_ = h(topic, payload)
	}
}

func (m *MockMQTTClient) Requests() []RequestMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RequestMessage, 0, len(m.published))
	for _, p := range m.published {
		var req RequestMessage
		if json.Unmarshal(p.Payload, &req) == nil {
			out = append(out, req)
		}
	}
	return out
}

func (m *MockMQTTClient) Topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.published))
	for i, p := range m.published {
		out[i] = p.Topic
	}
	return out
}

func (m *MockMQTTClient) Subscriptions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.handlers))
	for topic := range m.handlers {
		out = append(out, topic)
	}
	return out
}

type silentLogger struct{}

func (silentLogger) Debug(string, ...any) {}
func (silentLogger) Info(string, ...any)  {}
func (silentLogger) Warn(string, ...any)  {}
func (silentLogger) Error(string, ...any) {}

// ok builds a successful response carrying data.
func ok(data any) *ResponseMessage {
	raw, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	return &ResponseMessage{Success: true, Data: raw}
}
