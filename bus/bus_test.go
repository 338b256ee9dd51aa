package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentwerk/teamrouter/core"
)

func TestBus_SequenceAndTrace(t *testing.T) {
	b := New()
	require.NoError(t, b.Open("run-1"))

	require.NoError(t, b.Publish("run-1", core.NewAgentStartEvent("run-1", "log_team")))
	require.NoError(t, b.Publish("run-1", core.NewAgentResponseEvent("run-1", "log_team", "done")))
	require.NoError(t, b.Publish("run-1", core.NewCompleteEvent("run-1", "done", []string{"log_team"})))

	trace, err := b.Trace("run-1")
	require.NoError(t, err)
	require.Len(t, trace, 3)
	for i, ev := range trace {
		assert.Equal(t, int64(i+1), ev.Seq)
	}
	assert.Equal(t, core.EventComplete, trace[2].Type)
}

func TestBus_TerminalClosesRun(t *testing.T) {
	b := New()
	require.NoError(t, b.Open("run-1"))

	ch, err := b.Subscribe("run-1")
	require.NoError(t, err)

	require.NoError(t, b.Publish("run-1", core.NewCompleteEvent("run-1", "ok", nil)))

	ev, ok := <-ch
	require.True(t, ok)
	assert.Equal(t, core.EventComplete, ev.Type)

	_, ok = <-ch
	assert.False(t, ok, "live channel should be closed after the terminal event")

	assert.ErrorIs(t, b.Publish("run-1", core.NewWarningEvent("run-1", "late")), ErrRunClosed)
	assert.True(t, b.Closed("run-1"))

	_, err = b.Subscribe("run-1")
	assert.ErrorIs(t, err, ErrRunClosed)

	// Trace survives the terminal event.
	trace, err := b.Trace("run-1")
	require.NoError(t, err)
	assert.Len(t, trace, 1)
}

func TestBus_SecondSubscriberReplacesFirst(t *testing.T) {
	b := New()
	require.NoError(t, b.Open("run-1"))

	first, err := b.Subscribe("run-1")
	require.NoError(t, err)

	second, err := b.Subscribe("run-1")
	require.NoError(t, err)

	_, ok := <-first
	assert.False(t, ok, "first channel should be closed on replacement")

	require.NoError(t, b.Publish("run-1", core.NewWarningEvent("run-1", "hello")))
	ev := <-second
	assert.Equal(t, core.EventWarning, ev.Type)
}

func TestBus_PublishNeverBlocks(t *testing.T) {
	b := New(func(o *Options) { o.SubscriberBuffer = 1 })
	require.NoError(t, b.Open("run-1"))

	_, err := b.Subscribe("run-1")
	require.NoError(t, err)

	// Nobody drains the channel; second publish overflows the live buffer
	// but must still land in the trace.
	require.NoError(t, b.Publish("run-1", core.NewWarningEvent("run-1", "one")))
	require.NoError(t, b.Publish("run-1", core.NewWarningEvent("run-1", "two")))

	trace, err := b.Trace("run-1")
	require.NoError(t, err)
	assert.Len(t, trace, 2)
}

func TestBus_UnsubscribeKeepsTraceGrowing(t *testing.T) {
	b := New()
	require.NoError(t, b.Open("run-1"))

	ch, err := b.Subscribe("run-1")
	require.NoError(t, err)
	b.Unsubscribe("run-1")

	_, ok := <-ch
	assert.False(t, ok)

	require.NoError(t, b.Publish("run-1", core.NewWarningEvent("run-1", "still recording")))
	trace, err := b.Trace("run-1")
	require.NoError(t, err)
	assert.Len(t, trace, 1)
}

func TestBus_UnknownAndDuplicateRuns(t *testing.T) {
	b := New()

	assert.ErrorIs(t, b.Publish("nope", core.NewWarningEvent("nope", "x")), ErrRunNotFound)
	_, err := b.Subscribe("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = b.Trace("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)

	require.NoError(t, b.Open("run-1"))
	assert.ErrorIs(t, b.Open("run-1"), ErrAlreadyOpen)
}

func TestBus_Release(t *testing.T) {
	b := New()
	require.NoError(t, b.Open("run-1"))
	ch, err := b.Subscribe("run-1")
	require.NoError(t, err)

	b.Release("run-1")

	_, ok := <-ch
	assert.False(t, ok)
	_, err = b.Trace("run-1")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
