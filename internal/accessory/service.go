package accessory

import "sync"

// Service groups the characteristics of one capability.
type Service struct {
	Type ServiceType
	Name string

	accessory *Accessory

	mu    sync.RWMutex
	chars []*Characteristic
}

// Accessory returns the owning accessory.
func (s *Service) Accessory() *Accessory { return s.accessory }

// Characteristic returns the characteristic of type t, creating it if the
// service does not have one yet.
func (s *Service) Characteristic(t CharacteristicType) *Characteristic {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.chars {
		if c.kind == t {
			return c
		}
	}
	c := newCharacteristic(s, t)
	s.chars = append(s.chars, c)
	return c
}

// Lookup returns the characteristic of type t without creating it.
func (s *Service) Lookup(t CharacteristicType) (*Characteristic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.chars {
		if c.kind == t {
			return c, true
		}
	}
	return nil, false
}

// Characteristics returns the characteristics in creation order.
func (s *Service) Characteristics() []*Characteristic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Characteristic(nil), s.chars...)
}

// UpdateCharacteristic pushes v to the characteristic of type t.
func (s *Service) UpdateCharacteristic(t CharacteristicType, v any) *Service {
	s.Characteristic(t).UpdateValue(v)
	return s
}
