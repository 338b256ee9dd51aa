package core

import (
	"testing"
)

func TestEvent_Constructors(t *testing.T) {
	start := NewAgentStartEvent("run-1", "log_team")
	if start.Type != EventAgentStart || start.Agent != "log_team" || start.ID == "" || start.Timestamp.IsZero() {
		t.Fatalf("agent_start event malformed: %+v", start)
	}

	call := NewToolCallEvent("run-1", "log_team", "fetch_order_logs", map[string]any{"order_id": "BAD001"})
	if call.Type != EventToolCall || call.ToolName != "fetch_order_logs" || call.Args["order_id"] != "BAD001" {
		t.Fatalf("tool_call event malformed: %+v", call)
	}

	resp := NewToolResponseEvent("run-1", "log_team", "fetch_order_logs", `{"status":"failed"}`)
	if resp.Type != EventToolResponse || resp.Content == "" {
		t.Fatalf("tool_response event malformed: %+v", resp)
	}

	warn := NewWarningEvent("run-1", "unauthorized tool")
	if warn.Type != EventWarning || warn.Message != "unauthorized tool" {
		t.Fatalf("warning event malformed: %+v", warn)
	}
}

func TestEvent_Terminal(t *testing.T) {
	complete := NewCompleteEvent("run-1", "done", []string{"log_team"})
	errEv := NewErrorEvent("run-1", "all teams failed")

	if !complete.IsTerminal() || !errEv.IsTerminal() {
		t.Error("complete and error must be terminal")
	}
	for _, ev := range []Event{
		NewAgentStartEvent("run-1", "a"),
		NewToolCallEvent("run-1", "a", "t", nil),
		NewToolResponseEvent("run-1", "a", "t", "x"),
		NewAgentResponseEvent("run-1", "a", "x"),
		NewWarningEvent("run-1", "w"),
	} {
		if ev.IsTerminal() {
			t.Errorf("%s must not be terminal", ev.Type)
		}
	}
}

func TestNewCompleteEvent_CopiesAgentPath(t *testing.T) {
	path := []string{"log_team", "knowledge_team"}
	ev := NewCompleteEvent("run-1", "ok", path)
	path[0] = "mutated"
	if ev.AgentPath[0] != "log_team" {
		t.Error("agent path must be copied, not aliased")
	}
}

func TestRun_AgentPathDedupe(t *testing.T) {
	r := NewRun(NewID(), "thread-1", "compare orders")
	r.RecordTeam("log_team")
	r.RecordTeam("knowledge_team")
	r.RecordTeam("log_team")

	got := r.AgentPath()
	if len(got) != 2 || got[0] != "log_team" || got[1] != "knowledge_team" {
		t.Fatalf("unexpected agent path: %v", got)
	}

	got[0] = "mutated"
	if r.AgentPath()[0] != "log_team" {
		t.Error("AgentPath must return a copy")
	}
}

func TestNewID_Unique(t *testing.T) {
	if NewID() == NewID() {
		t.Error("expected unique ids")
	}
}
