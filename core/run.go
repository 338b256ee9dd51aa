package core

// RunState describes the lifecycle phase of a run.
type RunState string

const (
	// RunStateRunning means the supervisor is still driving the run.
	RunStateRunning RunState = "running"
	// RunStateCompleted means the run produced a final answer.
	RunStateCompleted RunState = "completed"
	// RunStateFailed means every selected team failed.
	RunStateFailed RunState = "failed"
)

// Run tracks a single execution in response to one user message. It is owned
// exclusively by the supervisor for its lifetime, so no internal locking is
// required; the session manager guarantees at most one run per thread.
type Run struct {
	ID       string
	ThreadID string
	Input    string
	State    RunState

	path []string
	seen map[string]struct{}
}

// NewRun creates a run in the running state.
func NewRun(id, threadID, input string) *Run {
	return &Run{
		ID:       id,
		ThreadID: threadID,
		Input:    input,
		State:    RunStateRunning,
		seen:     map[string]struct{}{},
	}
}

// RecordTeam appends a team identifier to the agent path, suppressing
// duplicates while preserving first-seen order.
func (r *Run) RecordTeam(teamID string) {
	if _, ok := r.seen[teamID]; ok {
		return
	}
	r.seen[teamID] = struct{}{}
	r.path = append(r.path, teamID)
}

// AgentPath returns the ordered, deduplicated team identifiers that
// participated in the run.
func (r *Run) AgentPath() []string {
	return append([]string(nil), r.path...)
}

// Complete marks the run as successfully finished.
func (r *Run) Complete() { r.State = RunStateCompleted }

// Fail marks the run as failed.
func (r *Run) Fail() { r.State = RunStateFailed }
