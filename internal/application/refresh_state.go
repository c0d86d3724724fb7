package application

import (
	"sync"
	"time"
)

// RefreshState is this replica's view of feed refreshes.
type RefreshState struct {
	mu         sync.RWMutex
	running    bool
	lastError  string
	lastRunAt  *time.Time
	nextUpdate *time.Time
}

type RefreshSnapshot struct {
	Running    bool
	LastError  string
	LastRunAt  *time.Time
	NextUpdate *time.Time
}

func (r *RefreshState) begin(at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}
	r.running = true
	r.lastRunAt = &at
	return true
}

// finish clears the running flag. A nil outcome keeps the previous error.
func (r *RefreshState) finish(outcome *string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	if outcome != nil {
		r.lastError = *outcome
	}
}

func (r *RefreshState) SetNextUpdate(at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	utc := at.UTC()
	r.nextUpdate = &utc
}

func (r *RefreshState) Snapshot() RefreshSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RefreshSnapshot{
		Running:    r.running,
		LastError:  r.lastError,
		LastRunAt:  r.lastRunAt,
		NextUpdate: r.nextUpdate,
	}
}
