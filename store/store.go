// Package store persists conversation threads. Implementations must be safe
// for concurrent use; reads return copies so callers never alias internal
// state.
package store

import (
	"context"
	"time"

	"github.com/agentwerk/teamrouter/core"
)

// ThreadInfo is the listing projection of a thread.
type ThreadInfo struct {
	ThreadID     string    `json:"thread_id"`
	TurnCount    int       `json:"turn_count"`
	LastActivity time.Time `json:"last_activity"`
}

// ThreadStore persists conversation threads keyed by thread id.
type ThreadStore interface {
	// AppendTurn appends a completed turn, creating the thread if it does
	// not exist yet.
	AppendTurn(ctx context.Context, threadID string, turn core.Turn) error

	// GetThread returns the thread's ordered turns. An unknown id yields an
	// empty thread, not an error.
	GetThread(ctx context.Context, threadID string) (*core.Thread, error)

	// ListThreads returns summaries for all known threads, most recently
	// active first.
	ListThreads(ctx context.Context) ([]ThreadInfo, error)

	// DeleteThread removes a thread and its turns. Deleting an unknown id
	// is a no-op.
	DeleteThread(ctx context.Context, threadID string) error

	// Close releases any underlying resources.
	Close() error
}
