package binding

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-miio/internal/accessory"
	"github.com/nerrad567/gray-logic-miio/internal/device"
	"github.com/nerrad567/gray-logic-miio/internal/loop"
)

// Config describes one binding between a characteristic and a device
// property.
type Config[T comparable] struct {
	// Name labels the binding in logs, e.g. "power".
	Name     string
	Endpoint *accessory.Characteristic
	Device   device.Device

	// Event and Decode subscribe the binding to device pushes. Both must be
	// set for pushes to be received.
	Event  device.Event
	Decode func(device.Payload) (T, error)

	// Map transforms seeded and pushed values before they are cached.
	Map func(T) T

	// Read seeds the cache. Optional.
	Read func(ctx context.Context) (T, error)

	// Write applies host writes. A nil Write makes the characteristic
	// read-only.
	Write func(ctx context.Context, v T) error
}

// TwoWay is a binding whose cache mirrors the last value it pushed, pulled
// or was asked to write.
type TwoWay[T comparable] struct {
	env   Env
	cfg   Config[T]
	value T
	gen   uint64
}

// Bind wires cfg.Endpoint to the device property described by cfg and
// issues the seed read.
func Bind[T comparable](env Env, cfg Config[T]) *TwoWay[T] {
	b := &TwoWay[T]{env: env, cfg: cfg}

	cfg.Endpoint.OnGet(func(reply func(any, error)) {
		reply(b.value, nil)
	})
	if cfg.Write != nil {
		cfg.Endpoint.OnSet(b.handleSet)
	}
	if cfg.Event != "" && cfg.Decode != nil {
		cfg.Device.On(cfg.Event, func(p device.Payload) {
			env.Loop.Post(func() { b.handleEvent(p) })
		})
	}
	if cfg.Read != nil {
		b.seed()
	}
	return b
}

// Value returns the cached value.
func (b *TwoWay[T]) Value() T {
	return b.value
}

func (b *TwoWay[T]) handleSet(v any, done func(error)) {
	val, ok := v.(T)
	if !ok {
		done(fmt.Errorf("%w: %s does not accept %T", ErrInvalidValue, b.cfg.Name, v))
		return
	}
	b.Set(val, done)
}

// Set writes v to the device unless it equals the cached value. done is
// called with the write's result.
func (b *TwoWay[T]) Set(v T, done func(error)) {
	if v == b.value {
		done(nil)
		return
	}

	b.env.Logger.Debug("setting device property",
		"binding", b.cfg.Name, "device", b.cfg.Device.ID(), "value", v)
	b.value = v
	b.gen++

	ctx, write := b.env.Context, b.cfg.Write
	loop.Await(b.env.Loop, func() (struct{}, error) {
		return struct{}{}, write(ctx, v)
	}, func(_ struct{}, err error) {
		if err != nil {
			b.env.Logger.Warn("device write failed",
				"binding", b.cfg.Name, "device", b.cfg.Device.ID(), "error", err)
		}
		done(err)
	})
}

// Push caches v, after Map, and pushes it to the characteristic.
func (b *TwoWay[T]) Push(v T) {
	if b.cfg.Map != nil {
		v = b.cfg.Map(v)
	}
	b.value = v
	b.gen++
	b.cfg.Endpoint.UpdateValue(v)
}

func (b *TwoWay[T]) handleEvent(p device.Payload) {
	v, err := b.cfg.Decode(p)
	if err != nil {
		b.env.Logger.Warn("ignoring undecodable push",
			"binding", b.cfg.Name, "device", b.cfg.Device.ID(), "error", err)
		return
	}
	b.env.Logger.Debug("device property changed",
		"binding", b.cfg.Name, "device", b.cfg.Device.ID(), "value", v)
	b.Push(v)
}

func (b *TwoWay[T]) seed() {
	issued := b.gen
	ctx, read := b.env.Context, b.cfg.Read
	loop.Await(b.env.Loop, func() (T, error) {
		return read(ctx)
	}, func(v T, err error) {
		if err != nil {
			b.env.Logger.Warn("initial read failed",
				"binding", b.cfg.Name, "device", b.cfg.Device.ID(), "error", err)
			return
		}
		if b.gen != issued {
			b.env.Logger.Debug("discarding stale initial read",
				"binding", b.cfg.Name, "device", b.cfg.Device.ID())
			return
		}
		b.Push(v)
	})
}

func decodeBool(p device.Payload) (bool, error)     { return device.AsBool(p.Value) }
func decodeInt(p device.Payload) (int, error)       { return device.AsInt(p.Value) }
func decodeFloat(p device.Payload) (float64, error) { return device.AsFloat(p.Value) }
