// Package bus implements the per-run event channel: every published event is
// appended to the run's durable trace and, when a live subscriber is
// attached, forwarded on a buffered channel. Publishing never blocks on a
// slow or disconnected subscriber; the trace is the source of truth.
package bus

import (
	"errors"
	"sync"

	"github.com/agentwerk/teamrouter/core"
	"github.com/agentwerk/teamrouter/logging"
)

// ErrRunNotFound is returned for operations on an unopened run.
var ErrRunNotFound = errors.New("bus: run not found")

// ErrRunClosed is returned when publishing to or subscribing on a run that
// has already emitted its terminal event.
var ErrRunClosed = errors.New("bus: run closed")

// ErrAlreadyOpen is returned when opening a run id twice.
var ErrAlreadyOpen = errors.New("bus: run already open")

type runChannel struct {
	trace  []core.Event
	seq    int64
	sub    chan core.Event
	closed bool
}

// Options configure the event bus.
type Options struct {
	// SubscriberBuffer is the live channel capacity. When the buffer is
	// full, events are dropped from the live path but kept in the trace.
	SubscriberBuffer int
	// Logger receives drop and lifecycle diagnostics.
	Logger logging.Logger
}

// Bus fans events out per run. Safe for concurrent use.
type Bus struct {
	mu     sync.Mutex
	runs   map[string]*runChannel
	buffer int
	logger logging.Logger
}

// New constructs an event bus.
func New(optFns ...func(o *Options)) *Bus {
	opts := Options{
		SubscriberBuffer: 64,
		Logger:           logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Bus{
		runs:   make(map[string]*runChannel),
		buffer: opts.SubscriberBuffer,
		logger: opts.Logger,
	}
}

// Open registers a run id so events can be published for it. Must be called
// before the first Publish or Subscribe.
func (b *Bus) Open(runID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.runs[runID]; exists {
		return ErrAlreadyOpen
	}
	b.runs[runID] = &runChannel{}
	return nil
}

// Publish appends the event to the run's trace, assigns its sequence number
// and forwards it to the live subscriber if one is attached. The live send is
// best-effort: a full buffer drops the event from the live path only. A
// terminal event closes the live channel and freezes the trace.
func (b *Bus) Publish(runID string, ev core.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rc, ok := b.runs[runID]
	if !ok {
		return ErrRunNotFound
	}
	if rc.closed {
		return ErrRunClosed
	}

	rc.seq++
	ev.Seq = rc.seq
	rc.trace = append(rc.trace, ev)

	if rc.sub != nil {
		select {
		case rc.sub <- ev:
		default:
			b.logger.Warn("bus.live.drop", "run_id", runID, "seq", ev.Seq, "type", string(ev.Type))
		}
	}

	if ev.IsTerminal() {
		rc.closed = true
		if rc.sub != nil {
			close(rc.sub)
			rc.sub = nil
		}
	}

	return nil
}

// Subscribe attaches the live subscriber for a run. At most one live
// subscriber exists per run: a second Subscribe replaces the first, whose
// channel is closed. Events published before Subscribe are available via
// Trace only. Subscribing to a run that already terminated returns
// ErrRunClosed.
func (b *Bus) Subscribe(runID string) (<-chan core.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rc, ok := b.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	if rc.closed {
		return nil, ErrRunClosed
	}

	if rc.sub != nil {
		close(rc.sub)
	}
	rc.sub = make(chan core.Event, b.buffer)
	return rc.sub, nil
}

// Unsubscribe detaches the live subscriber, if any. The run keeps executing
// and the trace keeps growing; only the live path is detached.
func (b *Bus) Unsubscribe(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rc, ok := b.runs[runID]
	if !ok || rc.sub == nil {
		return
	}
	close(rc.sub)
	rc.sub = nil
}

// Trace returns a copy of the run's ordered event trace. It is available
// regardless of live subscription state and immutable after the terminal
// event.
func (b *Bus) Trace(runID string) ([]core.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rc, ok := b.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	return append([]core.Event(nil), rc.trace...), nil
}

// Closed reports whether the run has emitted its terminal event.
func (b *Bus) Closed(runID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	rc, ok := b.runs[runID]
	return ok && rc.closed
}

// Release discards all bus state for a run. Callers persist the trace (as
// part of the Turn) before releasing.
func (b *Bus) Release(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rc, ok := b.runs[runID]
	if !ok {
		return
	}
	if rc.sub != nil {
		close(rc.sub)
	}
	delete(b.runs, runID)
}
