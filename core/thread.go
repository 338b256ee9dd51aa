package core

import "time"

// Turn is one persisted user/assistant exchange: the user text, the final
// answer, the ordered team identifiers that contributed and the full event
// trace of the run that produced it. Turns are immutable once appended to a
// thread.
type Turn struct {
	UserText      string    `json:"user"`
	AssistantText string    `json:"assistant"`
	Timestamp     time.Time `json:"timestamp"`
	AgentPath     []string  `json:"agent_path"`
	Trace         []Event   `json:"trace,omitempty"`
}

// Clone returns a deep copy safe for independent mutation.
func (t Turn) Clone() Turn {
	c := t
	c.AgentPath = append([]string(nil), t.AgentPath...)
	c.Trace = append([]Event(nil), t.Trace...)
	return c
}

// Thread is an ordered conversation history identified by an opaque id.
type Thread struct {
	ID      string    `json:"thread_id"`
	Turns   []Turn    `json:"turns"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// NewThread creates an empty thread with the given id.
func NewThread(id string) *Thread {
	now := time.Now().UTC()
	return &Thread{ID: id, Created: now, Updated: now}
}

// Append adds a turn, preserving insertion order.
func (t *Thread) Append(turn Turn) {
	t.Turns = append(t.Turns, turn)
	t.Updated = time.Now().UTC()
}

// Clone returns a deep copy of the thread.
func (t *Thread) Clone() *Thread {
	c := &Thread{ID: t.ID, Created: t.Created, Updated: t.Updated, Turns: make([]Turn, 0, len(t.Turns))}
	for _, turn := range t.Turns {
		c.Turns = append(c.Turns, turn.Clone())
	}
	return c
}
