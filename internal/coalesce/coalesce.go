// Package coalesce merges bursts of writes to the same target into one
// deferred flush.
//
// A Scheduler runs on the event loop. The first Schedule for a key posts a
// flush; further Schedule calls for that key return false until the flush
// has called done. Callers keep their own pending state and read it from
// inside the flush, so every write made before the flush runs is carried by
// it.
package coalesce

import "github.com/nerrad567/gray-logic-miio/internal/accessory"

// Scheduler coalesces flushes per key. It is not safe for concurrent use;
// call it from the loop only.
type Scheduler struct {
	exec   accessory.Executor
	active map[string]bool
}

// New creates a Scheduler that defers flushes through exec.
func New(exec accessory.Executor) *Scheduler {
	return &Scheduler{exec: exec, active: make(map[string]bool)}
}

// Schedule posts flush for key unless one is already scheduled or running.
// It reports whether a new flush was posted. flush must call done exactly
// once, possibly later from another loop task.
func (s *Scheduler) Schedule(key string, flush func(done func())) bool {
	if s.active[key] {
		return false
	}
	s.active[key] = true

	s.exec.Post(func() {
		released := false
		flush(func() {
			if released {
				return
			}
			released = true
			delete(s.active, key)
		})
	})
	return true
}

// Active reports whether a flush for key is scheduled or running.
func (s *Scheduler) Active(key string) bool {
	return s.active[key]
}
