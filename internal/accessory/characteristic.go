package accessory

import (
	"context"
	"sync"
)

// GetHandler answers a host read by calling reply exactly once.
type GetHandler func(reply func(value any, err error))

// SetHandler applies a host write and calls done exactly once when it has
// settled.
type SetHandler func(value any, done func(err error))

// Characteristic is a named, observable value slot on a service.
type Characteristic struct {
	kind    CharacteristicType
	service *Service

	mu      sync.RWMutex
	value   any
	version uint64
	props   Props
	onGet   GetHandler
	onSet   SetHandler
}

func newCharacteristic(s *Service, kind CharacteristicType) *Characteristic {
	return &Characteristic{
		kind:    kind,
		service: s,
		value:   kind.Format().zeroValue(),
		props:   kind.DefaultProps(),
	}
}

// Type returns the characteristic type.
func (c *Characteristic) Type() CharacteristicType { return c.kind }

// Service returns the owning service.
func (c *Characteristic) Service() *Service { return c.service }

// Value returns the last pushed, set or read value.
func (c *Characteristic) Value() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Props returns the value range.
func (c *Characteristic) Props() Props {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.props
}

// SetProps overrides the value range.
func (c *Characteristic) SetProps(p Props) {
	c.mu.Lock()
	c.props = p
	c.mu.Unlock()
}

// Writable reports whether a set handler is registered.
func (c *Characteristic) Writable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.onSet != nil
}

// OnGet registers the read handler, replacing any previous one.
func (c *Characteristic) OnGet(h GetHandler) {
	c.mu.Lock()
	c.onGet = h
	c.mu.Unlock()
}

// OnSet registers the write handler, replacing any previous one.
func (c *Characteristic) OnSet(h SetHandler) {
	c.mu.Lock()
	c.onSet = h
	c.mu.Unlock()
}

// UpdateValue pushes v to the characteristic and notifies observers. It
// does not invoke the set handler.
func (c *Characteristic) UpdateValue(v any) {
	c.store(v)
	c.service.accessory.notifyCharacteristic(c, v)
}

func (c *Characteristic) store(v any) {
	c.mu.Lock()
	c.value = v
	c.version++
	c.mu.Unlock()
}

func (c *Characteristic) currentVersion() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// HandleGet serves a read on the loop. Without a get handler the cached
// value is returned.
func (c *Characteristic) HandleGet(reply func(value any, err error)) {
	c.mu.RLock()
	h := c.onGet
	c.mu.RUnlock()

	if h == nil {
		reply(c.Value(), nil)
		return
	}

	replied := false
	h(func(v any, err error) {
		if replied {
			return
		}
		replied = true
		if err == nil {
			c.store(v)
		}
		reply(v, err)
	})
}

// HandleSet serves a write on the loop. On success the value is stored and
// observers are notified, unless a push arrived while the write was in
// flight; the pushed value stands.
func (c *Characteristic) HandleSet(v any, done func(err error)) {
	c.mu.RLock()
	h := c.onSet
	c.mu.RUnlock()

	if h == nil {
		done(ErrReadOnly)
		return
	}

	before := c.currentVersion()
	finished := false
	h(v, func(err error) {
		if finished {
			return
		}
		finished = true
		if err == nil && c.currentVersion() == before {
			c.UpdateValue(v)
		}
		done(err)
	})
}

// Result is the outcome of a read queued with Request.
type Result struct {
	Value any
	Err   error
}

// Request queues a read on the loop and returns where its result arrives.
// Reads are served in the order they were requested.
func (c *Characteristic) Request() <-chan Result {
	ch := make(chan Result, 1)
	c.service.accessory.exec.Post(func() {
		c.HandleGet(func(v any, err error) { ch <- Result{Value: v, Err: err} })
	})
	return ch
}

// Get reads the characteristic from a host goroutine.
func (c *Characteristic) Get(ctx context.Context) (any, error) {
	select {
	case r := <-c.Request():
		return r.Value, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Submit coerces v to the characteristic's format and queues the write
// without waiting for it. Writes reach the handler in submission order.
func (c *Characteristic) Submit(v any) (<-chan error, error) {
	if !c.Writable() {
		return nil, ErrReadOnly
	}
	coerced, err := Coerce(c.kind.Format(), c.Props(), v)
	if err != nil {
		return nil, err
	}

	ch := make(chan error, 1)
	c.service.accessory.exec.Post(func() {
		c.HandleSet(coerced, func(err error) { ch <- err })
	})
	return ch, nil
}

// Set writes v from a host goroutine and waits until the write has settled.
func (c *Characteristic) Set(ctx context.Context, v any) error {
	ch, err := c.Submit(v)
	if err != nil {
		return err
	}

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
