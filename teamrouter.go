// Package teamrouter is the embeddable façade over the routing engine: it
// wires the session manager, event bus, supervisor, team executor and thread
// store together and exposes synchronous (Chat) and streaming (StartRun)
// entry points.
package teamrouter

import (
	"context"
	"fmt"
	"time"

	"github.com/agentwerk/teamrouter/bus"
	"github.com/agentwerk/teamrouter/core"
	"github.com/agentwerk/teamrouter/executor"
	"github.com/agentwerk/teamrouter/logging"
	"github.com/agentwerk/teamrouter/oracle"
	"github.com/agentwerk/teamrouter/session"
	"github.com/agentwerk/teamrouter/store"
	"github.com/agentwerk/teamrouter/supervisor"
	"github.com/agentwerk/teamrouter/team"
	"github.com/agentwerk/teamrouter/tool"
)

// ErrThreadBusy is re-exported so embedders do not need to import the session
// package to classify the admission failure.
var ErrThreadBusy = session.ErrThreadBusy

// Options configure the engine.
type Options struct {
	// Store persists conversation threads. Defaults to in-memory.
	Store store.ThreadStore
	// Logger is shared by all components. Defaults to no-op.
	Logger logging.Logger
	// MaxIterations bounds each team's reason/act loop.
	MaxIterations int
	// MaxParallel bounds concurrent tool execution per decision.
	MaxParallel int
	// MaxTeams caps how many teams one request is routed to.
	MaxTeams int
	// EventBuffer is the live subscriber channel capacity.
	EventBuffer int
}

// ChatResult is the synchronous outcome of one run.
type ChatResult struct {
	ThreadID  string   `json:"thread_id"`
	RunID     string   `json:"run_id"`
	Response  string   `json:"response"`
	AgentPath []string `json:"agent_path"`
}

// Engine routes user messages through the supervisor and maintains thread
// state. Safe for concurrent use across threads; concurrent requests for the
// same thread are rejected with ErrThreadBusy.
type Engine struct {
	oracle     oracle.Oracle
	teams      *team.Registry
	tools      *tool.Registry
	store      store.ThreadStore
	sessions   *session.Manager
	bus        *bus.Bus
	supervisor *supervisor.Supervisor
	logger     logging.Logger
}

// New wires an engine from an oracle, a team registry and a tool registry.
func New(o oracle.Oracle, teams *team.Registry, tools *tool.Registry, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Logger:        logging.NoOpLogger{},
		MaxIterations: 8,
		MaxParallel:   4,
		MaxTeams:      3,
		EventBuffer:   64,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Store == nil {
		opts.Store = store.NewInMemoryStore()
	}

	b := bus.New(func(bo *bus.Options) {
		bo.SubscriberBuffer = opts.EventBuffer
		bo.Logger = opts.Logger
	})

	exec := executor.New(o, tools, b, func(eo *executor.Options) {
		eo.MaxIterations = opts.MaxIterations
		eo.MaxParallel = opts.MaxParallel
		eo.Logger = opts.Logger
	})

	sup := supervisor.New(o, teams, exec, b, func(so *supervisor.Options) {
		so.MaxTeams = opts.MaxTeams
		so.Logger = opts.Logger
	})

	return &Engine{
		oracle:     o,
		teams:      teams,
		tools:      tools,
		store:      opts.Store,
		sessions:   session.NewManager(),
		bus:        b,
		supervisor: sup,
		logger:     opts.Logger,
	}
}

// Chat runs one user message to completion and returns the final response.
// An empty thread id starts a new thread. The turn is persisted only on
// success; failed runs leave the thread history untouched.
func (e *Engine) Chat(ctx context.Context, threadID, text string) (*ChatResult, error) {
	threadID, runID, err := e.sessions.BeginRun(threadID)
	if err != nil {
		return nil, err
	}
	defer e.sessions.EndRun(threadID)

	if err := e.bus.Open(runID); err != nil {
		return nil, fmt.Errorf("open run channel: %w", err)
	}
	defer e.bus.Release(runID)

	return e.execute(ctx, threadID, runID, text)
}

// StartRun begins an asynchronous run and returns the live event channel.
// The channel is subscribed before any event is published, so the caller
// observes the complete ordered stream; it closes after the terminal event.
// The run itself is detached from ctx: an observer that disconnects, even
// right after the terminal event, must not cancel persistence of the turn.
func (e *Engine) StartRun(ctx context.Context, threadID, text string) (string, string, <-chan core.Event, error) {
	threadID, runID, err := e.sessions.BeginRun(threadID)
	if err != nil {
		return "", "", nil, err
	}

	if err := e.bus.Open(runID); err != nil {
		e.sessions.EndRun(threadID)
		return "", "", nil, fmt.Errorf("open run channel: %w", err)
	}

	events, err := e.bus.Subscribe(runID)
	if err != nil {
		e.bus.Release(runID)
		e.sessions.EndRun(threadID)
		return "", "", nil, fmt.Errorf("subscribe: %w", err)
	}

	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer e.sessions.EndRun(threadID)
		defer e.bus.Release(runID)
		if _, err := e.execute(runCtx, threadID, runID, text); err != nil {
			e.logger.Warn("engine.run.failed", "run_id", runID, "thread_id", threadID, "error", err)
		}
	}()

	return threadID, runID, events, nil
}

// execute drives one admitted run: load history, run the supervisor, emit
// exactly one terminal event and persist the turn on success.
func (e *Engine) execute(ctx context.Context, threadID, runID, text string) (*ChatResult, error) {
	run := core.NewRun(runID, threadID, text)

	history, err := e.loadHistory(ctx, threadID)
	if err != nil {
		run.Fail()
		e.publishError(runID, fmt.Sprintf("load history: %v", err))
		return nil, err
	}

	answer, err := e.supervisor.Run(ctx, run, history)
	if err != nil {
		run.Fail()
		e.publishError(runID, err.Error())
		return nil, err
	}
	run.Complete()

	e.publish(runID, core.NewCompleteEvent(runID, answer, run.AgentPath()))

	trace, traceErr := e.bus.Trace(runID)
	if traceErr != nil {
		e.logger.Warn("engine.trace.unavailable", "run_id", runID, "error", traceErr)
	}

	turn := core.Turn{
		UserText:      text,
		AssistantText: answer,
		Timestamp:     time.Now().UTC(),
		AgentPath:     run.AgentPath(),
		Trace:         trace,
	}
	if err := e.store.AppendTurn(ctx, threadID, turn); err != nil {
		e.logger.Error("engine.persist.failed", "run_id", runID, "thread_id", threadID, "error", err)
		return nil, fmt.Errorf("persist turn: %w", err)
	}

	e.logger.Info("engine.run.completed", "run_id", runID, "thread_id", threadID, "agent_path", run.AgentPath())

	return &ChatResult{
		ThreadID:  threadID,
		RunID:     runID,
		Response:  answer,
		AgentPath: run.AgentPath(),
	}, nil
}

// loadHistory flattens the persisted thread into oracle messages.
func (e *Engine) loadHistory(ctx context.Context, threadID string) ([]oracle.Message, error) {
	th, err := e.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	history := make([]oracle.Message, 0, len(th.Turns)*2)
	for _, turn := range th.Turns {
		history = append(history, oracle.UserMessage(turn.UserText))
		history = append(history, oracle.AssistantMessage(turn.AssistantText))
	}
	return history, nil
}

func (e *Engine) publish(runID string, ev core.Event) {
	if err := e.bus.Publish(runID, ev); err != nil {
		e.logger.Warn("engine.publish.failed", "run_id", runID, "type", string(ev.Type), "error", err)
	}
}

func (e *Engine) publishError(runID, message string) {
	e.publish(runID, core.NewErrorEvent(runID, message))
}

// Subscribe attaches (or re-attaches) the live observer for an in-flight run.
func (e *Engine) Subscribe(runID string) (<-chan core.Event, error) {
	return e.bus.Subscribe(runID)
}

// Threads exposes the underlying thread store for read and delete surfaces.
func (e *Engine) Threads() store.ThreadStore { return e.store }

// Teams exposes the static team registry.
func (e *Engine) Teams() *team.Registry { return e.teams }

// Close releases the engine's persistent resources.
func (e *Engine) Close() error { return e.store.Close() }
