package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentwerk/teamrouter/core"
)

func stores(t *testing.T) map[string]ThreadStore {
	t.Helper()
	sq, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	return map[string]ThreadStore{
		"memory": NewInMemoryStore(),
		"sqlite": sq,
	}
}

func TestThreadStore_AppendCreatesThread(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			turn := core.Turn{
				UserText:      "compare GOOD001 and BAD001",
				AssistantText: "BAD001 failed at inventory check",
				Timestamp:     time.Now().UTC(),
				AgentPath:     []string{"log_team"},
				Trace: []core.Event{
					core.NewAgentStartEvent("run-1", "log_team"),
				},
			}
			require.NoError(t, s.AppendTurn(ctx, "th-1", turn))

			th, err := s.GetThread(ctx, "th-1")
			require.NoError(t, err)
			require.Len(t, th.Turns, 1)
			assert.Equal(t, turn.UserText, th.Turns[0].UserText)
			assert.Equal(t, []string{"log_team"}, th.Turns[0].AgentPath)
			require.Len(t, th.Turns[0].Trace, 1)
			assert.Equal(t, core.EventAgentStart, th.Turns[0].Trace[0].Type)
		})
	}
}

func TestThreadStore_GetUnknownIsEmpty(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			th, err := s.GetThread(context.Background(), "missing")
			require.NoError(t, err)
			assert.Equal(t, "missing", th.ID)
			assert.Empty(t, th.Turns)
		})
	}
}

func TestThreadStore_TurnOrderPreserved(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i, text := range []string{"first", "second", "third"} {
				turn := core.Turn{
					UserText:      text,
					AssistantText: text,
					Timestamp:     time.Now().UTC().Add(time.Duration(i) * time.Second),
					AgentPath:     []string{"db_team"},
				}
				require.NoError(t, s.AppendTurn(ctx, "th-ord", turn))
			}
			th, err := s.GetThread(ctx, "th-ord")
			require.NoError(t, err)
			require.Len(t, th.Turns, 3)
			assert.Equal(t, "first", th.Turns[0].UserText)
			assert.Equal(t, "third", th.Turns[2].UserText)
		})
	}
}

func TestThreadStore_ListAndDelete(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			turn := core.Turn{UserText: "hi", AssistantText: "hello", Timestamp: time.Now().UTC()}
			require.NoError(t, s.AppendTurn(ctx, "a", turn))
			require.NoError(t, s.AppendTurn(ctx, "b", turn))
			require.NoError(t, s.AppendTurn(ctx, "b", turn))

			infos, err := s.ListThreads(ctx)
			require.NoError(t, err)
			require.Len(t, infos, 2)

			counts := map[string]int{}
			for _, info := range infos {
				counts[info.ThreadID] = info.TurnCount
			}
			assert.Equal(t, 1, counts["a"])
			assert.Equal(t, 2, counts["b"])

			require.NoError(t, s.DeleteThread(ctx, "a"))
			// Deleting an unknown thread is a no-op.
			require.NoError(t, s.DeleteThread(ctx, "nope"))

			infos, err = s.ListThreads(ctx)
			require.NoError(t, err)
			require.Len(t, infos, 1)
			assert.Equal(t, "b", infos[0].ThreadID)

			th, err := s.GetThread(ctx, "a")
			require.NoError(t, err)
			assert.Empty(t, th.Turns)
		})
	}
}

func TestInMemoryStore_ReadsAreCopies(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.AppendTurn(ctx, "th", core.Turn{UserText: "q", AgentPath: []string{"x"}}))

	th, err := s.GetThread(ctx, "th")
	require.NoError(t, err)
	th.Turns[0].AgentPath[0] = "mutated"
	th.Turns[0].UserText = "mutated"

	fresh, err := s.GetThread(ctx, "th")
	require.NoError(t, err)
	assert.Equal(t, "q", fresh.Turns[0].UserText)
	assert.Equal(t, "x", fresh.Turns[0].AgentPath[0])
}
