package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// defaultHealthInterval is how often health is published.
const defaultHealthInterval = 30 * time.Second

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates every gateway is attached and reachable.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates MQTT is down or a gateway failed or is
	// unreachable.
	HealthDegraded HealthStatus = "degraded"

	// HealthStarting indicates gateways are still being discovered.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the bridge is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is published retained to {prefix}/health.
type HealthMessage struct {
	Bridge        string       `json:"bridge"`
	Timestamp     time.Time    `json:"timestamp"`
	Status        HealthStatus `json:"status"`
	Version       string       `json:"version"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Gateways      []Status     `json:"gateways"`
	Accessories   int          `json:"accessories"`
	Reason        string       `json:"reason,omitempty"`
}

// HealthPublisher is the interface for publishing health messages.
// This is typically implemented by an MQTT client.
type HealthPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// StatusSource provides gateway statuses. *Manager implements it.
type StatusSource interface {
	Statuses() []Status
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	BridgeID string
	Version  string
	Topic    string

	// Interval is how often to publish health status.
	// Default: 30 seconds.
	Interval time.Duration

	Publisher HealthPublisher
	Gateways  StatusSource

	// Accessories returns the number of known accessories. Optional.
	Accessories func() int

	Logger Logger
}

// HealthReporter manages periodic health status reporting.
type HealthReporter struct {
	cfg       HealthReporterConfig
	startTime time.Time
	now       func() time.Time

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewHealthReporter creates a new health reporter. Call Start to begin
// reporting.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	if cfg.Interval == 0 {
		cfg.Interval = defaultHealthInterval
	}
	return &HealthReporter{
		cfg:       cfg,
		startTime: time.Now(),
		now:       time.Now,
		done:      make(chan struct{}),
	}
}

// Start begins periodic health reporting until ctx is done or Stop is
// called.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop stops reporting and publishes a final "stopping" status.
// Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		//nolint:errcheck // Best-effort during shutdown, nothing we can do if it fails
		h.publish(HealthStopping, "bridge stopping")
	})
}

// PublishNow publishes the current health status immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publish(status, reason)
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.cfg.Interval)
	defer ticker.Stop()

	if err := h.PublishNow(); err != nil {
		h.logError("failed to publish initial health", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logError("failed to publish health", err)
			}
		}
	}
}

// determineStatus evaluates the current bridge status.
func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.cfg.Publisher == nil || !h.cfg.Publisher.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}

	if h.cfg.Gateways == nil {
		return HealthHealthy, ""
	}
	starting := false
	for _, st := range h.cfg.Gateways.Statuses() {
		switch st.State {
		case StateFailed:
			return HealthDegraded, "gateway " + st.ID + " failed"
		case StateUnreachable:
			return HealthDegraded, "gateway " + st.ID + " unreachable"
		case StateDiscovering:
			starting = true
		}
	}
	if starting {
		return HealthStarting, "discovering gateways"
	}
	return HealthHealthy, ""
}

func (h *HealthReporter) message(status HealthStatus, reason string) HealthMessage {
	msg := HealthMessage{
		Bridge:        h.cfg.BridgeID,
		Timestamp:     h.now().UTC(),
		Status:        status,
		Version:       h.cfg.Version,
		UptimeSeconds: int64(h.now().Sub(h.startTime).Seconds()),
		Gateways:      []Status{},
		Reason:        reason,
	}
	if h.cfg.Gateways != nil {
		msg.Gateways = h.cfg.Gateways.Statuses()
	}
	if h.cfg.Accessories != nil {
		msg.Accessories = h.cfg.Accessories()
	}
	return msg
}

func (h *HealthReporter) publish(status HealthStatus, reason string) error {
	if h.cfg.Publisher == nil {
		return nil
	}

	payload, err := json.Marshal(h.message(status, reason))
	if err != nil {
		return err
	}

	// QoS 1, retained
	return h.cfg.Publisher.Publish(h.cfg.Topic, payload, 1, true)
}

func (h *HealthReporter) logError(msg string, err error) {
	if h.cfg.Logger != nil {
		h.cfg.Logger.Error(msg, "error", err)
	}
}
