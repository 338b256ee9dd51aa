// Package oracle wraps the external reasoning step behind a narrow boundary.
// Given a system role, a tool catalog and a running message history, the
// oracle returns exactly one of: a list of tool invocations to execute, or a
// final answer text. Provider adapters live in the openai and anthropic
// subpackages; Scripted and Func serve tests and offline wiring.
package oracle

import (
	"context"

	"github.com/agentwerk/teamrouter/tool"
)

// Conversation roles used in oracle message histories.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry of the conversation history handed to the oracle.
// Assistant messages may carry tool calls; tool messages carry the result of
// a previously requested call, correlated by ToolCallID.
type Message struct {
	Role       string     `json:"role"`
	Text       string     `json:"text,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

// ToolCall is a single tool invocation request decoded from the oracle's
// structured output. Arguments is the raw JSON payload; it is decoded and
// validated by the tool registry, never trusted here.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Decision is the tagged union returned by Decide: either one or more tool
// calls, or a final answer. Exactly one side is populated.
type Decision struct {
	ToolCalls   []ToolCall `json:"tool_calls,omitempty"`
	FinalAnswer string     `json:"final_answer,omitempty"`
}

// IsFinal reports whether the decision is a final answer (no tool calls).
func (d Decision) IsFinal() bool { return len(d.ToolCalls) == 0 }

// Request is the normalized oracle input: a system role description, the
// team's tool catalog and the ordered message history.
type Request struct {
	Role    string      `json:"role"`
	Tools   []tool.Spec `json:"tools,omitempty"`
	History []Message   `json:"history"`
}

// Oracle is the minimal interface the supervisor and team executor depend on.
type Oracle interface {
	Decide(ctx context.Context, req Request) (Decision, error)
}

// Func adapts a plain function to the Oracle interface.
type Func func(ctx context.Context, req Request) (Decision, error)

// Decide implements Oracle.
func (f Func) Decide(ctx context.Context, req Request) (Decision, error) { return f(ctx, req) }

// SystemMessage is a convenience constructor.
func SystemMessage(text string) Message { return Message{Role: RoleSystem, Text: text} }

// UserMessage is a convenience constructor.
func UserMessage(text string) Message { return Message{Role: RoleUser, Text: text} }

// AssistantMessage is a convenience constructor.
func AssistantMessage(text string) Message { return Message{Role: RoleAssistant, Text: text} }

// ToolMessage builds a tool-result message correlated to its originating call.
func ToolMessage(callID, toolName, result string) Message {
	return Message{Role: RoleTool, ToolCallID: callID, ToolName: toolName, Text: result}
}
