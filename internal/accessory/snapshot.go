package accessory

// Snapshot is a point-in-time, JSON-friendly copy of an accessory.
type Snapshot struct {
	UUID        string            `json:"uuid"`
	DisplayName string            `json:"display_name"`
	Info        Info              `json:"info"`
	Reachable   bool              `json:"reachable"`
	Services    []ServiceSnapshot `json:"services"`
}

// ServiceSnapshot is a copy of one service.
type ServiceSnapshot struct {
	Type            ServiceType              `json:"type"`
	Name            string                   `json:"name"`
	Characteristics []CharacteristicSnapshot `json:"characteristics"`
}

// CharacteristicSnapshot is a copy of one characteristic.
type CharacteristicSnapshot struct {
	Type     CharacteristicType `json:"type"`
	Format   Format             `json:"format"`
	Value    any                `json:"value"`
	Writable bool               `json:"writable"`
	Props    *Props             `json:"props,omitempty"`
}

// Snapshot copies the accessory's current state.
func (a *Accessory) Snapshot() Snapshot {
	snap := Snapshot{
		UUID:        a.UUID,
		DisplayName: a.DisplayName,
		Info:        a.Info(),
		Reachable:   a.Reachable(),
	}
	for _, s := range a.Services() {
		ss := ServiceSnapshot{Type: s.Type, Name: s.Name}
		for _, c := range s.Characteristics() {
			cs := CharacteristicSnapshot{
				Type:     c.Type(),
				Format:   c.Type().Format(),
				Value:    c.Value(),
				Writable: c.Writable(),
			}
			if p := c.Props(); p.bounded() {
				cs.Props = &p
			}
			ss.Characteristics = append(ss.Characteristics, cs)
		}
		snap.Services = append(snap.Services, ss)
	}
	return snap
}

// Find returns the characteristic of type t in the service of type st.
func (a *Accessory) Find(st ServiceType, t CharacteristicType) (*Characteristic, error) {
	s := a.Service(st)
	if s == nil {
		return nil, ErrNotFound
	}
	c, ok := s.Lookup(t)
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}
