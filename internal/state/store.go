package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/wallboxctl/internal/wallbox"
)

// Snapshot represents the latest controller data available to the UI.
type Snapshot struct {
	Status              wallbox.Status
	HasStatus           bool
	Connected           bool
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
}

// IsOffline returns true when the controller has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot. Only the poller writes.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update records the outcome of one status poll. When err is non-nil the
// previous status is kept, the error is recorded and Connected drops to false.
func (s *Store) Update(status *wallbox.Status, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastUpdated = time.Now()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.Connected = false
		s.snapshot.ConsecutiveFailures++
		return
	}

	if status != nil {
		s.snapshot.Status = *status
		s.snapshot.HasStatus = true
	}
	s.snapshot.Connected = true
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}
