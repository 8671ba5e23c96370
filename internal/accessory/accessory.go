package accessory

import "sync"

// Executor runs tasks on the event loop. *loop.Loop implements it.
type Executor interface {
	Post(task func())
}

// Observer is notified, on the loop, of every pushed characteristic value
// and reachability change. Implementations must not block.
type Observer interface {
	CharacteristicUpdated(c *Characteristic, value any)
	ReachabilityUpdated(a *Accessory, reachable bool)
}

// Info is the accessory information service content.
type Info struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	SerialNumber string `json:"serial_number"`
}

// Accessory is one host-visible device.
type Accessory struct {
	UUID        string
	DisplayName string

	exec Executor

	mu        sync.RWMutex
	services  []*Service
	reachable bool
	observers []Observer
}

// New creates an accessory with an information service named displayName.
// New accessories are reachable.
func New(uuid, displayName string, exec Executor) *Accessory {
	a := &Accessory{
		UUID:        uuid,
		DisplayName: displayName,
		exec:        exec,
		reachable:   true,
	}
	info := a.FindOrCreateService(ServiceAccessoryInformation, displayName)
	info.Characteristic(CharName).store(displayName)
	return a
}

// SetInfo fills the information service.
func (a *Accessory) SetInfo(info Info) {
	s := a.FindOrCreateService(ServiceAccessoryInformation, a.DisplayName)
	s.Characteristic(CharManufacturer).store(info.Manufacturer)
	s.Characteristic(CharModel).store(info.Model)
	s.Characteristic(CharSerialNumber).store(info.SerialNumber)
}

// Info returns the information service content.
func (a *Accessory) Info() Info {
	s := a.Service(ServiceAccessoryInformation)
	if s == nil {
		return Info{}
	}
	str := func(t CharacteristicType) string {
		if c, ok := s.Lookup(t); ok {
			if v, ok := c.Value().(string); ok {
				return v
			}
		}
		return ""
	}
	return Info{
		Manufacturer: str(CharManufacturer),
		Model:        str(CharModel),
		SerialNumber: str(CharSerialNumber),
	}
}

// FindOrCreateService returns the accessory's service of type t, adding one
// named name if there is none.
func (a *Accessory) FindOrCreateService(t ServiceType, name string) *Service {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range a.services {
		if s.Type == t {
			return s
		}
	}
	s := &Service{Type: t, Name: name, accessory: a}
	a.services = append(a.services, s)
	return s
}

// Service returns the service of type t, or nil.
func (a *Accessory) Service(t ServiceType) *Service {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, s := range a.services {
		if s.Type == t {
			return s
		}
	}
	return nil
}

// Services returns the services in creation order.
func (a *Accessory) Services() []*Service {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]*Service(nil), a.services...)
}

// HasRealServices reports whether the accessory exposes anything beyond
// its information and battery services. Accessories without real services
// are not registered with hosts.
func (a *Accessory) HasRealServices() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, s := range a.services {
		if s.Type != ServiceAccessoryInformation && s.Type != ServiceBattery {
			return true
		}
	}
	return false
}

// Reachable returns the last reported reachability.
func (a *Accessory) Reachable() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.reachable
}

// UpdateReachability records reachability and notifies observers when it
// changes.
func (a *Accessory) UpdateReachability(reachable bool) {
	a.mu.Lock()
	changed := a.reachable != reachable
	a.reachable = reachable
	observers := append([]Observer(nil), a.observers...)
	a.mu.Unlock()

	if !changed {
		return
	}
	for _, o := range observers {
		o.ReachabilityUpdated(a, reachable)
	}
}

// Subscribe adds an observer.
func (a *Accessory) Subscribe(o Observer) {
	a.mu.Lock()
	a.observers = append(a.observers, o)
	a.mu.Unlock()
}

func (a *Accessory) notifyCharacteristic(c *Characteristic, v any) {
	a.mu.RLock()
	observers := append([]Observer(nil), a.observers...)
	a.mu.RUnlock()

	for _, o := range observers {
		o.CharacteristicUpdated(c, v)
	}
}
