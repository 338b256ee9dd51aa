package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Oracle = (*Scripted)(nil)
var _ Oracle = Func(nil)

func TestDecision_IsFinal(t *testing.T) {
	assert.True(t, Decision{FinalAnswer: "done"}.IsFinal())
	assert.False(t, Decision{ToolCalls: []ToolCall{{Name: "fetch_order_logs"}}}.IsFinal())
}

func TestScripted_ReplaysInOrder(t *testing.T) {
	s := NewScripted(
		Decision{ToolCalls: []ToolCall{{ID: "c1", Name: "fetch_order_logs", Arguments: `{"order_id":"BAD001"}`}}},
		Decision{FinalAnswer: "BAD001 failed at inventory_check"},
	)

	d1, err := s.Decide(context.Background(), Request{History: []Message{UserMessage("why did BAD001 fail?")}})
	require.NoError(t, err)
	require.False(t, d1.IsFinal())
	assert.Equal(t, "fetch_order_logs", d1.ToolCalls[0].Name)

	d2, err := s.Decide(context.Background(), Request{})
	require.NoError(t, err)
	assert.True(t, d2.IsFinal())

	_, err = s.Decide(context.Background(), Request{})
	assert.Error(t, err, "exhausted script must error")

	assert.Len(t, s.Requests(), 3)
}

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	flaky := Func(func(context.Context, Request) (Decision, error) {
		calls++
		if calls < 3 {
			return Decision{}, errors.New("transient")
		}
		return Decision{FinalAnswer: "ok"}, nil
	})

	o := WithRetry(flaky, func(o *RetryOptions) {
		o.Attempts = 3
		o.Backoff = time.Millisecond
	})

	d, err := o.Decide(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", d.FinalAnswer)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_ReturnsLastError(t *testing.T) {
	o := WithRetry(Func(func(context.Context, Request) (Decision, error) {
		return Decision{}, errors.New("down")
	}), func(o *RetryOptions) {
		o.Attempts = 2
		o.Backoff = time.Millisecond
	})

	_, err := o.Decide(context.Background(), Request{})
	assert.EqualError(t, err, "down")
}

func TestWithRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := WithRetry(Func(func(context.Context, Request) (Decision, error) {
		return Decision{}, errors.New("down")
	}), func(o *RetryOptions) {
		o.Attempts = 5
		o.Backoff = time.Hour
	})

	_, err := o.Decide(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}
