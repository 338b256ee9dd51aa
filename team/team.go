// Package team defines the statically configured capability bundles the
// supervisor routes between. A team couples an identifier and human label
// with a system role description, the tool names it is permitted to call and
// an affinity predicate used by the router's keyword fast path.
package team

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Team is a named capability. Teams are configured at startup and never
// mutated at runtime.
type Team struct {
	// ID is the stable identifier used in agent paths (e.g. "log_team").
	ID string
	// Label is the human-readable name (e.g. "Log Investigation").
	Label string
	// Role is the system prompt describing the team's responsibilities.
	Role string
	// Tools lists the tool names the team is permitted to call.
	Tools []string
	// Affinity reports whether the team is a likely match for a query.
	// Nil means the team only participates via oracle classification.
	Affinity func(query string) bool
}

// Matches applies the affinity predicate, lowercasing the query first.
func (t Team) Matches(query string) bool {
	if t.Affinity == nil {
		return false
	}
	return t.Affinity(strings.ToLower(query))
}

// Registry holds the static team configuration in registration order.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	teams     map[string]Team
	defaultID string
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{teams: make(map[string]Team)}
}

// Register adds a team. The first registered team becomes the default unless
// SetDefault overrides it.
func (r *Registry) Register(t Team) error {
	if t.ID == "" {
		return fmt.Errorf("team id must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.teams[t.ID]; exists {
		return fmt.Errorf("team %q already registered", t.ID)
	}
	r.teams[t.ID] = t
	r.order = append(r.order, t.ID)
	if r.defaultID == "" {
		r.defaultID = t.ID
	}
	return nil
}

// MustRegister registers the given teams and panics on configuration errors.
func (r *Registry) MustRegister(teams ...Team) {
	for _, t := range teams {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// SetDefault marks the fallback team used when classification fails.
func (r *Registry) SetDefault(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.teams[id]; !exists {
		return fmt.Errorf("unknown team %q", id)
	}
	r.defaultID = id
	return nil
}

// Get returns the team with the given id.
func (r *Registry) Get(id string) (Team, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.teams[id]
	return t, ok
}

// Default returns the fallback team. The registry must not be empty.
func (r *Registry) Default() Team {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.teams[r.defaultID]
}

// All returns every team in registration order.
func (r *Registry) All() []Team {
	r.mu.RLock()
	defer r.mu.RUnlock()
	teams := make([]Team, 0, len(r.order))
	for _, id := range r.order {
		teams = append(teams, r.teams[id])
	}
	return teams
}

// IDs returns all team identifiers in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Match returns the ids of teams whose affinity predicate accepts the query,
// in registration order.
func (r *Registry) Match(query string) []string {
	var ids []string
	for _, t := range r.All() {
		if t.Matches(query) {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// Describe renders an enumeration of teams for classification prompts, one
// line per team: "- id: label" sorted by registration order (stable output
// keeps prompts cache-friendly).
func (r *Registry) Describe() string {
	var b strings.Builder
	for _, t := range r.All() {
		fmt.Fprintf(&b, "- %s: %s\n", t.ID, t.Label)
	}
	return b.String()
}

// KeywordAffinity builds an affinity predicate matching any of the given
// lowercase keywords as substrings.
func KeywordAffinity(keywords ...string) func(string) bool {
	sorted := append([]string(nil), keywords...)
	sort.Strings(sorted)
	return func(query string) bool {
		for _, kw := range sorted {
			if strings.Contains(query, kw) {
				return true
			}
		}
		return false
	}
}

// PatternAffinity builds an affinity predicate from a regular expression.
// Queries are lowercased before matching, so the pattern should be too.
func PatternAffinity(pattern string) func(string) bool {
	re := regexp.MustCompile(pattern)
	return re.MatchString
}

// AnyOf combines affinity predicates; the result matches when any of them do.
func AnyOf(preds ...func(string) bool) func(string) bool {
	return func(query string) bool {
		for _, p := range preds {
			if p(query) {
				return true
			}
		}
		return false
	}
}
