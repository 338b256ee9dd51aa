package store

import (
	"context"
	"sort"
	"sync"

	"github.com/agentwerk/teamrouter/core"
)

// InMemoryStore keeps threads in process memory. Suitable for tests and
// single-process deployments without durability requirements.
type InMemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*core.Thread
}

var _ ThreadStore = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty in-memory thread store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{threads: make(map[string]*core.Thread)}
}

// AppendTurn implements ThreadStore.
func (s *InMemoryStore) AppendTurn(_ context.Context, threadID string, turn core.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	th, ok := s.threads[threadID]
	if !ok {
		th = core.NewThread(threadID)
		s.threads[threadID] = th
	}
	th.Append(turn.Clone())
	return nil
}

// GetThread implements ThreadStore.
func (s *InMemoryStore) GetThread(_ context.Context, threadID string) (*core.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	th, ok := s.threads[threadID]
	if !ok {
		return core.NewThread(threadID), nil
	}
	return th.Clone(), nil
}

// ListThreads implements ThreadStore.
func (s *InMemoryStore) ListThreads(_ context.Context) ([]ThreadInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]ThreadInfo, 0, len(s.threads))
	for _, th := range s.threads {
		infos = append(infos, ThreadInfo{
			ThreadID:     th.ID,
			TurnCount:    len(th.Turns),
			LastActivity: th.Updated,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].LastActivity.Equal(infos[j].LastActivity) {
			return infos[i].ThreadID < infos[j].ThreadID
		}
		return infos[i].LastActivity.After(infos[j].LastActivity)
	})
	return infos, nil
}

// DeleteThread implements ThreadStore.
func (s *InMemoryStore) DeleteThread(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, threadID)
	return nil
}

// Close implements ThreadStore.
func (s *InMemoryStore) Close() error { return nil }
