package supervisor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agentwerk/teamrouter/oracle"
)

// Classify decides which teams handle the query. The keyword fast path
// consults each team's affinity predicate without any oracle call; when no
// predicate matches, the oracle picks from the registry (one retry, then the
// default team). The result is deduplicated, contains only registered team
// ids and is capped at MaxTeams.
func (s *Supervisor) Classify(ctx context.Context, query string) []string {
	if ids := s.teams.Match(query); len(ids) > 0 {
		return s.cap(ids)
	}

	ids, err := s.classifyWithOracle(ctx, query)
	if err != nil {
		s.opts.Logger.Warn("supervisor.classify.retry", "error", err)
		ids, err = s.classifyWithOracle(ctx, query)
	}
	if err != nil || len(ids) == 0 {
		s.opts.Logger.Warn("supervisor.classify.fallback", "team", s.teams.Default().ID, "error", err)
		return []string{s.teams.Default().ID}
	}
	return s.cap(ids)
}

func (s *Supervisor) classifyWithOracle(ctx context.Context, query string) ([]string, error) {
	prompt := fmt.Sprintf(
		"Route the user request to one or more of these teams:\n%s\nReply with the team ids only, comma separated, most relevant first.\n\nRequest: %s",
		s.teams.Describe(), query)

	decision, err := s.oracle.Decide(ctx, oracle.Request{
		Role:    "You are a routing supervisor for a multi-team assistant.",
		History: []oracle.Message{oracle.UserMessage(prompt)},
	})
	if err != nil {
		return nil, fmt.Errorf("classification: %w", err)
	}
	if !decision.IsFinal() {
		return nil, fmt.Errorf("classification: oracle returned tool calls instead of team ids")
	}

	ids := extractTeamIDs(decision.FinalAnswer, s.teams.IDs())
	if len(ids) == 0 {
		return nil, fmt.Errorf("classification: no known team id in %q", decision.FinalAnswer)
	}
	return ids, nil
}

// extractTeamIDs pulls known team ids out of a free-form oracle reply,
// ordered by first occurrence. Tolerates JSON, prose and punctuation around
// the ids.
func extractTeamIDs(reply string, known []string) []string {
	lower := strings.ToLower(reply)

	type hit struct {
		id  string
		pos int
	}
	var hits []hit
	for _, id := range known {
		if pos := strings.Index(lower, strings.ToLower(id)); pos >= 0 {
			hits = append(hits, hit{id: id, pos: pos})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.id)
	}
	return ids
}

// cap deduplicates, drops unknown ids and enforces the MaxTeams limit.
func (s *Supervisor) cap(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		if _, ok := s.teams.Get(id); !ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
		if len(out) == s.opts.MaxTeams {
			break
		}
	}
	return out
}
