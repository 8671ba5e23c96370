package gateway

import "time"

// State is a supervisor's lifecycle state.
type State string

const (
	StateDiscovering State = "discovering"
	StateAttached    State = "attached"
	StatePolling     State = "polling"
	StateUnreachable State = "unreachable"
	StateFailed      State = "failed"
)

// Settled reports whether discovery has finished, successfully or not.
func (s State) Settled() bool {
	return s != StateDiscovering
}

// Status is a point-in-time view of one gateway.
type Status struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	Model     string    `json:"model,omitempty"`
	State     State     `json:"state"`
	Reachable bool      `json:"reachable"`
	Devices   int       `json:"devices"`
	Error     string    `json:"error,omitempty"`
	Since     time.Time `json:"since"`
	LastPoll  time.Time `json:"last_poll,omitzero"`
}
