// Package platform owns the accessory lifecycle: restoring known
// accessories, creating accessories for connected devices, decorating them
// and handing them to the hosts.
package platform

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-miio/internal/accessory"
	"github.com/nerrad567/gray-logic-miio/internal/binding"
	"github.com/nerrad567/gray-logic-miio/internal/capability"
	"github.com/nerrad567/gray-logic-miio/internal/device"
	"github.com/nerrad567/gray-logic-miio/internal/loop"
)

// DefaultManufacturer fills the information service when none is configured.
const DefaultManufacturer = "Xiaomi"

// Host is an endpoint surface accessories are published to. Publish is
// called on the loop every time a device connects and must not block.
type Host interface {
	Publish(acc *accessory.Accessory) error
}

// Options configures a Platform.
type Options struct {
	Manufacturer string
	Store        accessory.Store
	Hosts        []Host

	// Observers are subscribed to every accessory before it is decorated.
	Observers []accessory.Observer
}

// Platform tracks every accessory the bridge knows about.
type Platform struct {
	env      binding.Env
	registry *capability.Registry
	opts     Options
	now      func() time.Time

	mu          sync.RWMutex
	accessories map[string]*accessory.Accessory
	decorated   map[string]bool
	known       map[string]accessory.Record
}

// New creates a Platform.
func New(env binding.Env, opts Options) *Platform {
	if opts.Manufacturer == "" {
		opts.Manufacturer = DefaultManufacturer
	}
	return &Platform{
		env:         env,
		registry:    capability.NewRegistry(env),
		opts:        opts,
		now:         time.Now,
		accessories: make(map[string]*accessory.Accessory),
		decorated:   make(map[string]bool),
		known:       make(map[string]accessory.Record),
	}
}

// AccessoryUUID derives the stable accessory UUID of a device.
func AccessoryUUID(deviceID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("miio://"+deviceID)).String()
}

// Restore loads previously registered accessories. They are listed, but
// carry no services until their device connects again.
func (p *Platform) Restore(ctx context.Context) error {
	if p.opts.Store == nil {
		return nil
	}
	records, err := p.opts.Store.List(ctx)
	if err != nil {
		return fmt.Errorf("restoring accessories: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, rec := range records {
		acc := accessory.New(rec.UUID, rec.DisplayName, p.env.Loop)
		acc.SetInfo(accessory.Info{
			Manufacturer: rec.Manufacturer,
			Model:        rec.Model,
			SerialNumber: rec.SerialNumber,
		})
		p.accessories[rec.UUID] = acc
		p.known[rec.UUID] = rec
	}
	p.env.Logger.Info("restored cached accessories", "count", len(records))
	return nil
}

// AddConnectedDevice finds or creates the accessory for dev, decorates it
// and, if it exposes any real service, publishes it to every host and
// persists it when it is new. It must run on the loop.
func (p *Platform) AddConnectedDevice(dev device.Device, gatewayID string) *accessory.Accessory {
	id := AccessoryUUID(dev.ID())

	p.mu.Lock()
	acc, exists := p.accessories[id]
	if !exists {
		acc = accessory.New(id, fmt.Sprintf("%s %s", dev.Model(), dev.ID()), p.env.Loop)
		p.accessories[id] = acc
	}
	alreadyDecorated := p.decorated[id]
	p.decorated[id] = true
	_, isKnown := p.known[id]
	p.mu.Unlock()

	acc.SetInfo(accessory.Info{
		Manufacturer: p.opts.Manufacturer,
		Model:        dev.Model(),
		SerialNumber: dev.ID(),
	})
	acc.UpdateReachability(true)

	if !alreadyDecorated {
		for _, o := range p.opts.Observers {
			acc.Subscribe(o)
		}
		p.registry.Decorate(acc, dev)
	}

	if !acc.HasRealServices() {
		p.env.Logger.Info("no services added, not registering accessory",
			"device", dev.ID(), "model", dev.Model(), "accessory", acc.DisplayName)
		return acc
	}

	for _, h := range p.opts.Hosts {
		if err := h.Publish(acc); err != nil {
			p.env.Logger.Error("publishing accessory failed",
				"accessory", acc.DisplayName, "error", err)
		}
	}

	if !isKnown {
		p.register(acc, dev, gatewayID)
	}
	return acc
}

func (p *Platform) register(acc *accessory.Accessory, dev device.Device, gatewayID string) {
	now := p.now().UTC()
	info := acc.Info()
	rec := accessory.Record{
		UUID:         acc.UUID,
		DeviceID:     dev.ID(),
		DisplayName:  acc.DisplayName,
		Manufacturer: info.Manufacturer,
		Model:        info.Model,
		SerialNumber: info.SerialNumber,
		GatewayID:    gatewayID,
		FirstSeen:    now,
		LastSeen:     now,
	}

	p.mu.Lock()
	p.known[acc.UUID] = rec
	p.mu.Unlock()
	p.env.Logger.Info("registering new accessory", "accessory", acc.DisplayName, "uuid", acc.UUID)

	if p.opts.Store == nil {
		return
	}
	ctx, store := p.env.Context, p.opts.Store
	loop.Await(p.env.Loop, func() (struct{}, error) {
		return struct{}{}, store.Save(ctx, rec)
	}, func(_ struct{}, err error) {
		if err != nil {
			p.env.Logger.Error("saving accessory failed", "accessory", acc.DisplayName, "error", err)
		}
	})
}

// Accessories returns every known accessory sorted by display name.
func (p *Platform) Accessories() []*accessory.Accessory {
	p.mu.RLock()
	out := make([]*accessory.Accessory, 0, len(p.accessories))
	for _, acc := range p.accessories {
		out = append(out, acc)
	}
	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].UUID < out[j].UUID
	})
	return out
}

// Accessory returns the accessory with the given UUID.
func (p *Platform) Accessory(id string) (*accessory.Accessory, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	acc, ok := p.accessories[id]
	return acc, ok
}

// IsNew reports whether the accessory has not been registered yet.
func (p *Platform) IsNew(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.known[id]
	return !ok
}
