package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the step event variants emitted during a run.
type EventType string

const (
	// EventAgentStart marks the activation of a team agent.
	EventAgentStart EventType = "agent_start"
	// EventToolCall records a tool invocation request.
	EventToolCall EventType = "tool_call"
	// EventToolResponse records the textual result of a tool invocation.
	EventToolResponse EventType = "tool_response"
	// EventAgentResponse records a team agent's answer text.
	EventAgentResponse EventType = "agent_response"
	// EventWarning records a recoverable problem (unauthorized tool, skipped
	// team, truncated loop) that did not terminate the run.
	EventWarning EventType = "warning"
	// EventComplete is the successful terminal event carrying the final
	// response and the agent path.
	EventComplete EventType = "complete"
	// EventError is the failure terminal event.
	EventError EventType = "error"
)

// Event is an immutable, timestamped record of one step within a run. After
// emission it must be treated as read-only. Seq is assigned by the event bus
// when the event is appended to a run's trace and establishes the total order
// within that run.
type Event struct {
	ID            string         `json:"id"`
	RunID         string         `json:"run_id"`
	Seq           int64          `json:"seq"`
	Type          EventType      `json:"type"`
	Agent         string         `json:"agent,omitempty"`
	ToolName      string         `json:"tool_name,omitempty"`
	Args          map[string]any `json:"args,omitempty"`
	Content       string         `json:"content,omitempty"`
	Message       string         `json:"message,omitempty"`
	FinalResponse string         `json:"final_response,omitempty"`
	AgentPath     []string       `json:"agent_path,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// NewID generates a new unique identifier for events, runs and threads.
func NewID() string { return uuid.NewString() }

func newEvent(runID string, typ EventType) Event {
	return Event{
		ID:        NewID(),
		RunID:     runID,
		Type:      typ,
		Timestamp: time.Now().UTC(),
	}
}

// NewAgentStartEvent marks the activation of the named team agent.
func NewAgentStartEvent(runID, agent string) Event {
	e := newEvent(runID, EventAgentStart)
	e.Agent = agent
	return e
}

// NewToolCallEvent records a tool invocation request with its arguments.
func NewToolCallEvent(runID, agent, toolName string, args map[string]any) Event {
	e := newEvent(runID, EventToolCall)
	e.Agent = agent
	e.ToolName = toolName
	e.Args = args
	return e
}

// NewToolResponseEvent records the textual outcome of a tool invocation.
func NewToolResponseEvent(runID, agent, toolName, content string) Event {
	e := newEvent(runID, EventToolResponse)
	e.Agent = agent
	e.ToolName = toolName
	e.Content = content
	return e
}

// NewAgentResponseEvent records a team agent's answer text.
func NewAgentResponseEvent(runID, agent, content string) Event {
	e := newEvent(runID, EventAgentResponse)
	e.Agent = agent
	e.Content = content
	return e
}

// NewWarningEvent records a recoverable problem encountered during the run.
func NewWarningEvent(runID, message string) Event {
	e := newEvent(runID, EventWarning)
	e.Message = message
	return e
}

// NewCompleteEvent is the successful terminal event for a run.
func NewCompleteEvent(runID, finalResponse string, agentPath []string) Event {
	e := newEvent(runID, EventComplete)
	e.FinalResponse = finalResponse
	e.AgentPath = append([]string(nil), agentPath...)
	return e
}

// NewErrorEvent is the failure terminal event for a run.
func NewErrorEvent(runID, message string) Event {
	e := newEvent(runID, EventError)
	e.Message = message
	return e
}

// IsTerminal reports whether the event ends its run. A run's trace contains
// exactly one terminal event, always last.
func (e Event) IsTerminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}
