package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-miio/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-miio/internal/loop"
)

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Gateways     []config.GatewayConfig
	Resolver     Resolver
	Attacher     Attacher
	Loop         *loop.Loop
	PollInterval time.Duration
	Logger       Logger
}

// Manager runs a Supervisor per configured gateway.
type Manager struct {
	supervisors []*Supervisor
	logger      Logger

	settled chan struct{}
	mu      sync.Mutex
	waiting int
}

// NewManager creates the supervisors. Nothing runs until Run is called.
func NewManager(opts ManagerOptions) *Manager {
	m := &Manager{
		logger:  opts.Logger,
		settled: make(chan struct{}),
		waiting: len(opts.Gateways),
	}
	for _, gw := range opts.Gateways {
		m.supervisors = append(m.supervisors, NewSupervisor(SupervisorOptions{
			Gateway:      gw,
			Resolver:     opts.Resolver,
			Attacher:     opts.Attacher,
			Loop:         opts.Loop,
			PollInterval: opts.PollInterval,
			Logger:       opts.Logger,
			OnSettled:    m.settleOne,
		}))
	}
	if m.waiting == 0 {
		close(m.settled)
	}
	return m
}

func (m *Manager) settleOne() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waiting--
	if m.waiting == 0 {
		close(m.settled)
	}
}

// Run runs every supervisor until ctx is done. A gateway that fails
// terminally is reported once and does not affect the others.
func (m *Manager) Run(ctx context.Context) error {
	var g errgroup.Group
	for _, s := range m.supervisors {
		g.Go(func() error {
			err := s.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				m.logger.Error("gateway could not be attached",
					"gateway", s.opts.Gateway.ID, "address", s.opts.Gateway.Address, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Settled is closed once every gateway has attached or failed.
func (m *Manager) Settled() <-chan struct{} {
	return m.settled
}

// Statuses returns every gateway's status in configuration order.
func (m *Manager) Statuses() []Status {
	out := make([]Status, 0, len(m.supervisors))
	for _, s := range m.supervisors {
		out = append(out, s.Status())
	}
	return out
}

// Status returns the status of the gateway with the given id.
func (m *Manager) Status(id string) (Status, bool) {
	for _, s := range m.supervisors {
		if s.opts.Gateway.ID == id {
			return s.Status(), true
		}
	}
	return Status{}, false
}
