package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-miio/internal/accessory"
	"github.com/nerrad567/gray-logic-miio/internal/device"
	"github.com/nerrad567/gray-logic-miio/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-miio/internal/loop"
)

// discoveryAttempts is the initial attempt plus one retry.
const discoveryAttempts = 2

// Resolver connects to a gateway and returns its device tree.
type Resolver interface {
	Resolve(ctx context.Context, gw config.GatewayConfig) (device.Device, error)
}

// Attacher registers connected devices as accessories. It is called on the
// loop. *platform.Platform implements it.
type Attacher interface {
	AddConnectedDevice(dev device.Device, gatewayID string) *accessory.Accessory
}

// Logger is the logging interface the supervisor uses.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SupervisorOptions configures a Supervisor.
type SupervisorOptions struct {
	Gateway      config.GatewayConfig
	Resolver     Resolver
	Attacher     Attacher
	Loop         *loop.Loop
	PollInterval time.Duration
	Logger       Logger

	// OnSettled is called once, when the gateway attached or failed.
	OnSettled func()
}

// Supervisor runs one gateway's lifecycle.
type Supervisor struct {
	opts SupervisorOptions
	now  func() time.Time

	settleOnce sync.Once

	mu     sync.RWMutex
	status Status
	root   *accessory.Accessory
}

// NewSupervisor creates a Supervisor in the discovering state.
func NewSupervisor(opts SupervisorOptions) *Supervisor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = config.DefaultPollInterval
	}
	s := &Supervisor{opts: opts, now: time.Now}
	s.status = Status{
		ID:      opts.Gateway.ID,
		Address: opts.Gateway.Address,
		Model:   opts.Gateway.Model,
		State:   StateDiscovering,
		Since:   s.now(),
	}
	return s
}

// Run discovers, attaches and then polls the gateway until ctx is done. It
// returns the terminal error when discovery fails, or ctx's error. It does
// not log the terminal error; the caller reports it.
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.settle()

	dev, err := s.discover(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.setState(StateFailed, err)
		}
		return err
	}

	if err := s.attach(ctx, dev); err != nil {
		return err
	}
	s.settle()

	return s.poll(ctx, dev)
}

// Status returns the current status.
func (s *Supervisor) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Supervisor) settle() {
	s.settleOnce.Do(func() {
		if s.opts.OnSettled != nil {
			s.opts.OnSettled()
		}
	})
}

func (s *Supervisor) discover(ctx context.Context) (device.Device, error) {
	gw := s.opts.Gateway
	var lastErr error

	for attempt := 1; attempt <= discoveryAttempts; attempt++ {
		s.opts.Logger.Info("discovering gateway", "gateway", gw.ID, "address", gw.Address, "attempt", attempt)

		dev, err := s.opts.Resolver.Resolve(ctx, gw)
		if err == nil && !device.Matches(dev, device.TagGateway) {
			err = fmt.Errorf("%w: %s answered as %s", ErrNotGateway, gw.Address, dev.Model())
		}
		switch {
		case err == nil:
			return dev, nil
		case errors.Is(err, ErrNotGateway):
			return nil, err
		case ctx.Err() != nil:
			return nil, ctx.Err()
		}

		lastErr = err
		if attempt < discoveryAttempts {
			s.opts.Logger.Warn("gateway discovery failed, retrying", "gateway", gw.ID, "error", err)
		}
	}
	return nil, fmt.Errorf("%w: %s: %w", ErrDiscoveryFailed, gw.ID, lastErr)
}

func (s *Supervisor) attach(ctx context.Context, dev device.Device) error {
	children := dev.Children()
	var root *accessory.Accessory

	err := s.opts.Loop.Call(ctx, func() {
		root = s.opts.Attacher.AddConnectedDevice(dev, s.opts.Gateway.ID)
		for _, child := range children {
			s.opts.Attacher.AddConnectedDevice(child, s.opts.Gateway.ID)
		}
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.root = root
	s.status.Model = dev.Model()
	s.status.Devices = 1 + len(children)
	s.status.Reachable = true
	s.mu.Unlock()
	s.setState(StateAttached, nil)

	s.opts.Logger.Info("gateway attached",
		"gateway", s.opts.Gateway.ID, "model", dev.Model(), "children", len(children))
	return nil
}

func (s *Supervisor) poll(ctx context.Context, dev device.Device) error {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.pollOnce(ctx, dev)
		}
	}
}

func (s *Supervisor) pollOnce(ctx context.Context, dev device.Device) {
	err := dev.Poll(ctx)
	if ctx.Err() != nil {
		return
	}
	reachable := err == nil

	s.mu.Lock()
	root := s.root
	wasReachable := s.status.Reachable
	s.status.Reachable = reachable
	s.status.LastPoll = s.now()
	s.mu.Unlock()

	if reachable {
		s.setState(StatePolling, nil)
	} else {
		s.setState(StateUnreachable, err)
	}
	if wasReachable != reachable {
		if reachable {
			s.opts.Logger.Info("gateway reachable again", "gateway", s.opts.Gateway.ID)
		} else {
			s.opts.Logger.Warn("gateway unreachable", "gateway", s.opts.Gateway.ID, "error", err)
		}
	}

	if root != nil {
		s.opts.Loop.Post(func() { root.UpdateReachability(reachable) })
	}
}

func (s *Supervisor) setState(state State, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.State != state {
		s.status.State = state
		s.status.Since = s.now()
	}
	s.status.Error = ""
	if err != nil {
		s.status.Error = err.Error()
	}
}
