package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-miio/internal/accessory"
	"github.com/nerrad567/gray-logic-miio/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-miio/internal/infrastructure/logging"
)

// Message types on the event stream.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// Events beyond this many queued for one client are dropped.
	wsSendBufferSize = 256
)

// Event channels.
const (
	ChannelCharacteristic = "characteristic"
	ChannelReachability   = "reachability"
)

// WSMessage is one frame of the event stream, in either direction.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload names the channels of a subscribe or unsubscribe.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// CharacteristicEvent is broadcast on ChannelCharacteristic.
type CharacteristicEvent struct {
	Accessory      string                       `json:"accessory"`
	Service        accessory.ServiceType        `json:"service"`
	Characteristic accessory.CharacteristicType `json:"characteristic"`
	Value          any                          `json:"value"`
}

// ReachabilityEvent is broadcast on ChannelReachability.
type ReachabilityEvent struct {
	Accessory string `json:"accessory"`
	Reachable bool   `json:"reachable"`
}

// Hub fans accessory pushes out to stream clients. It implements
// accessory.Observer; broadcasts never block the loop.
type Hub struct {
	logger  *logging.Logger
	timing  streamTiming
	clients map[*streamClient]struct{}
	mu      sync.RWMutex
}

// streamTiming holds the keepalive settings every client shares.
type streamTiming struct {
	readLimit    int64
	pingInterval time.Duration
	writeWait    time.Duration
}

// readWait is how long a client may stay silent, pongs included.
func (t streamTiming) readWait() time.Duration { return t.pingInterval + t.writeWait }

type streamClient struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	channels map[string]struct{}
	mu       sync.RWMutex
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// NewHub creates a hub with the keepalive settings of cfg.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		logger: logger,
		timing: streamTiming{
			readLimit:    int64(cfg.MaxMessageSize),
			pingInterval: time.Duration(cfg.PingInterval) * time.Second,
			writeWait:    time.Duration(cfg.PongTimeout) * time.Second,
		},
		clients: make(map[*streamClient]struct{}),
	}
}

// Run blocks until the context is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

func (h *Hub) add(c *streamClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("event stream client connected", "clients", n)
}

// remove drops c. Whoever deletes it from the map closes its send channel.
func (h *Hub) remove(c *streamClient) {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if present {
		close(c.send)
	}
	h.logger.Debug("event stream client disconnected", "clients", n)
}

// CharacteristicUpdated broadcasts a pushed value.
func (h *Hub) CharacteristicUpdated(c *accessory.Characteristic, value any) {
	s := c.Service()
	h.Broadcast(ChannelCharacteristic, CharacteristicEvent{
		Accessory:      s.Accessory().UUID,
		Service:        s.Type,
		Characteristic: c.Type(),
		Value:          value,
	})
}

// ReachabilityUpdated broadcasts a reachability change.
func (h *Hub) ReachabilityUpdated(a *accessory.Accessory, reachable bool) {
	h.Broadcast(ChannelReachability, ReachabilityEvent{Accessory: a.UUID, Reachable: reachable})
}

// Broadcast queues an event for the clients subscribed to channel. Clients
// with a full queue miss it.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := encodeFrame(WSMessage{Type: WSTypeEvent, EventType: channel, Payload: payload})
	if err != nil {
		h.logger.Error("encoding event failed", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*streamClient, 0, len(h.clients))
	for c := range h.clients {
		if c.subscribed(channel) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.queue(data)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
		delete(h.clients, c)
	}
}

func encodeFrame(msg WSMessage) ([]byte, error) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return json.Marshal(msg)
}

// handleWebSocket opens an event stream. Channels given in the "channels"
// query parameter are subscribed at once.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &streamClient{
		hub:      s.hub,
		conn:     conn,
		send:     make(chan []byte, wsSendBufferSize),
		channels: make(map[string]struct{}),
	}
	for _, ch := range r.URL.Query()["channels"] {
		c.channels[ch] = struct{}{}
	}

	s.hub.add(c)
	go c.writeLoop()
	go c.readLoop()
}

func (c *streamClient) readLoop() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	t := c.hub.timing
	c.conn.SetReadLimit(t.readLimit)
	//nolint:errcheck // a failed deadline surfaces as a read error
	c.conn.SetReadDeadline(time.Now().Add(t.readWait()))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(t.readWait()))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("event stream read failed", "error", err)
			} else {
				c.hub.logger.Debug("event stream closed", "error", err)
			}
			return
		}
		//nolint:errcheck // a failed deadline surfaces as a read error
		c.conn.SetReadDeadline(time.Now().Add(t.readWait()))
		c.dispatch(frame)
	}
}

// writeLoop owns all writes to the connection, interleaving queued frames
// with keepalive pings.
func (c *streamClient) writeLoop() {
	t := c.hub.timing
	ticker := time.NewTicker(t.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		//nolint:errcheck // a failed deadline surfaces as a write error
		c.conn.SetWriteDeadline(time.Now().Add(t.writeWait))
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				_ = write(websocket.CloseMessage, nil)
				return
			}
			if err := write(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *streamClient) dispatch(frame []byte) {
	var msg WSMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		c.fail("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		c.resubscribe(msg)
	case WSTypePing:
		c.reply(WSMessage{Type: WSTypePong, ID: msg.ID})
	default:
		c.fail(msg.ID, "unknown message type: "+msg.Type)
	}
}

func (c *streamClient) resubscribe(msg WSMessage) {
	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		c.fail(msg.ID, "invalid payload")
		return
	}
	var sub WSSubscribePayload
	if err := json.Unmarshal(raw, &sub); err != nil {
		c.fail(msg.ID, "invalid "+msg.Type+" payload")
		return
	}

	subscribe := msg.Type == WSTypeSubscribe
	c.mu.Lock()
	for _, ch := range sub.Channels {
		if subscribe {
			c.channels[ch] = struct{}{}
		} else {
			delete(c.channels, ch)
		}
	}
	c.mu.Unlock()

	key := "unsubscribed"
	if subscribe {
		key = "subscribed"
	}
	c.reply(WSMessage{Type: WSTypeResponse, ID: msg.ID, Payload: map[string]any{key: sub.Channels}})
}

// queue hands data to the write loop, dropping it when the client is slow
// or already gone.
func (c *streamClient) queue(data []byte) {
	defer func() {
		recover() //nolint:errcheck // send on a channel closed by remove
	}()

	select {
	case c.send <- data:
	default:
	}
}

func (c *streamClient) subscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.channels[channel]
	return ok
}

func (c *streamClient) reply(msg WSMessage) {
	data, err := encodeFrame(msg)
	if err != nil {
		return
	}
	c.queue(data)
}

func (c *streamClient) fail(id, message string) {
	c.reply(WSMessage{Type: WSTypeError, ID: id, Payload: map[string]string{"message": message}})
}
