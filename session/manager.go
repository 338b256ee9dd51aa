// Package session enforces the run admission rule: at most one in-flight run
// per thread. The manager tracks active runs only; conversation history lives
// in the store.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/agentwerk/teamrouter/core"
)

// ErrThreadBusy is returned when a run is requested for a thread that already
// has one in flight.
var ErrThreadBusy = errors.New("session: thread busy")

// Manager admits runs per thread. Safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	active map[string]string // thread id -> run id
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{active: make(map[string]string)}
}

// BeginRun admits a new run for the thread. An empty thread id allocates a
// fresh one. Returns the (possibly generated) thread id and the new run id,
// or ErrThreadBusy when the thread already has an in-flight run.
func (m *Manager) BeginRun(threadID string) (string, string, error) {
	if threadID == "" {
		threadID = core.NewID()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if runID, busy := m.active[threadID]; busy {
		return "", "", fmt.Errorf("%w: thread %s has run %s in flight", ErrThreadBusy, threadID, runID)
	}

	runID := core.NewID()
	m.active[threadID] = runID
	return threadID, runID, nil
}

// EndRun releases the thread. Must be called exactly once per admitted run,
// on every exit path.
func (m *Manager) EndRun(threadID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, threadID)
}

// ActiveRun returns the in-flight run id for a thread, if any.
func (m *Manager) ActiveRun(threadID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	runID, ok := m.active[threadID]
	return runID, ok
}
