package homekit

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/http"
	"sync"
	"time"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/service"

	model "github.com/nerrad567/gray-logic-miio/internal/accessory"
)

// HAP status codes returned from request handlers.
const (
	statusSuccess              = 0
	statusCommunicationFailure = -70402
)

const defaultRequestTimeout = 10 * time.Second

// bridgeAccessoryID is reserved by HAP for the bridge itself.
const bridgeAccessoryID = 1

// Logger is the logging interface the host uses.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options configures a Host.
type Options struct {
	Name         string
	Manufacturer string
	Version      string
	Pin          string
	StoragePath  string
	Address      string
	Logger       Logger

	// RequestTimeout bounds remote reads and writes.
	RequestTimeout time.Duration
}

type mappedAccessory struct {
	source *model.Accessory
	a      *accessory.A
}

// Host maps accessories to HAP accessories. It implements platform.Host and
// accessory.Observer.
type Host struct {
	opts    Options
	timeout time.Duration
	bridge  *accessory.Bridge

	mu              sync.Mutex
	accessories     []*mappedAccessory
	byUUID          map[string]*mappedAccessory
	characteristics map[*model.Characteristic]*hapCharacteristic
	serving         bool
}

// New creates a Host.
func New(opts Options) *Host {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	bridge := accessory.NewBridge(accessory.Info{
		Name:         opts.Name,
		Manufacturer: opts.Manufacturer,
		Model:        "miiobridge",
		Firmware:     opts.Version,
	})
	bridge.A.Id = bridgeAccessoryID
	return &Host{
		opts:            opts,
		timeout:         timeout,
		bridge:          bridge,
		byUUID:          make(map[string]*mappedAccessory),
		characteristics: make(map[*model.Characteristic]*hapCharacteristic),
	}
}

// Publish maps acc. Republishing a mapped accessory is a no-op.
func (h *Host) Publish(acc *model.Accessory) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.byUUID[acc.UUID]; ok {
		return nil
	}
	if h.serving {
		h.opts.Logger.Warn("accessory connected after HomeKit server started, exposed after restart",
			"accessory", acc.DisplayName)
	}

	info := acc.Info()
	a := accessory.New(accessory.Info{
		Name:         acc.DisplayName,
		Manufacturer: info.Manufacturer,
		Model:        info.Model,
		SerialNumber: info.SerialNumber,
	}, accessoryType(acc))
	a.Id = accessoryID(acc.UUID)

	for _, s := range acc.Services() {
		typ, ok := serviceTypes[s.Type]
		if !ok {
			continue
		}
		hs := service.New(typ)
		for _, c := range s.Characteristics() {
			hc, ok := newCharacteristic(c.Type())
			if !ok {
				h.opts.Logger.Debug("characteristic has no HomeKit counterpart", "type", c.Type())
				continue
			}
			h.bind(acc, c, hc)
			hs.AddC(hc.c)
			h.characteristics[c] = hc
		}
		a.AddS(hs)
	}

	m := &mappedAccessory{source: acc, a: a}
	h.accessories = append(h.accessories, m)
	h.byUUID[acc.UUID] = m
	h.opts.Logger.Debug("mapped HomeKit accessory", "accessory", acc.DisplayName, "id", a.Id)
	return nil
}

func (h *Host) bind(acc *model.Accessory, c *model.Characteristic, hc *hapCharacteristic) {
	if p := c.Props(); p.Max > p.Min {
		if hc.setMin != nil {
			hc.setMin(p.Min)
		}
		if hc.setMax != nil {
			hc.setMax(p.Max)
		}
	}
	hc.set(c.Value())

	hc.c.ValueRequestFunc = func(*http.Request) (any, int) {
		if !acc.Reachable() {
			return nil, statusCommunicationFailure
		}
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()
		v, err := c.Get(ctx)
		if err != nil {
			h.opts.Logger.Warn("HomeKit read failed", "accessory", acc.DisplayName, "characteristic", c.Type(), "error", err)
			return nil, statusCommunicationFailure
		}
		return v, statusSuccess
	}

	if !c.Writable() {
		return
	}
	hc.c.SetValueRequestFunc = func(v any, _ *http.Request) (any, int) {
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()
		if err := c.Set(ctx, v); err != nil {
			h.opts.Logger.Warn("HomeKit write failed", "accessory", acc.DisplayName, "characteristic", c.Type(), "error", err)
			return nil, statusCommunicationFailure
		}
		return nil, statusSuccess
	}
}

// CharacteristicUpdated mirrors a pushed value to HomeKit.
func (h *Host) CharacteristicUpdated(c *model.Characteristic, value any) {
	h.mu.Lock()
	hc, ok := h.characteristics[c]
	h.mu.Unlock()
	if ok {
		hc.set(value)
	}
}

// ReachabilityUpdated is a no-op; reads consult the accessory directly.
func (h *Host) ReachabilityUpdated(*model.Accessory, bool) {}

// Serve runs the HAP server with every accessory published so far until
// ctx is done.
func (h *Host) Serve(ctx context.Context) error {
	h.mu.Lock()
	h.serving = true
	as := make([]*accessory.A, 0, len(h.accessories))
	for _, m := range h.accessories {
		as = append(as, m.a)
	}
	h.mu.Unlock()

	server, err := hap.NewServer(hap.NewFsStore(h.opts.StoragePath), h.bridge.A, as...)
	if err != nil {
		return fmt.Errorf("creating HomeKit server: %w", err)
	}
	server.Pin = h.opts.Pin
	if h.opts.Address != "" {
		server.Addr = h.opts.Address
	}

	h.opts.Logger.Info("HomeKit server starting", "accessories", len(as), "address", h.opts.Address)
	if err := server.ListenAndServe(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("HomeKit server: %w", err)
	}
	return nil
}

// accessoryID derives a stable HAP accessory id from the accessory UUID so
// pairings survive restarts.
func accessoryID(uuid string) uint64 {
	f := fnv.New64a()
	f.Write([]byte(uuid))
	id := f.Sum64()
	if id <= bridgeAccessoryID {
		id += bridgeAccessoryID + 1
	}
	return id
}
