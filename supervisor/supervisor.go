// Package supervisor routes a user request to one or more teams and composes
// their findings into a single response. Routing tries a cheap keyword match
// first and falls back to oracle classification; team execution is strictly
// sequential so later teams can build on earlier findings.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agentwerk/teamrouter/bus"
	"github.com/agentwerk/teamrouter/core"
	"github.com/agentwerk/teamrouter/executor"
	"github.com/agentwerk/teamrouter/logging"
	"github.com/agentwerk/teamrouter/oracle"
	"github.com/agentwerk/teamrouter/team"
)

// ErrAllTeamsFailed is returned when every routed team failed to produce an
// answer. It is the only fatal outcome of team execution; partial failures
// degrade to warnings.
var ErrAllTeamsFailed = errors.New("supervisor: all teams failed")

// Options configure the supervisor.
type Options struct {
	// MaxTeams caps how many teams one request may be routed to.
	MaxTeams int
	// Logger receives routing and composition diagnostics.
	Logger logging.Logger
}

// Supervisor classifies requests, drives team execution in order and
// synthesizes multi-team findings.
type Supervisor struct {
	oracle oracle.Oracle
	teams  *team.Registry
	exec   *executor.Executor
	bus    *bus.Bus
	opts   Options
}

// New constructs a supervisor.
func New(o oracle.Oracle, teams *team.Registry, exec *executor.Executor, b *bus.Bus, optFns ...func(o *Options)) *Supervisor {
	opts := Options{
		MaxTeams: 3,
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Supervisor{oracle: o, teams: teams, exec: exec, bus: b, opts: opts}
}

// Run executes one request end to end: classify, run each routed team in
// order (each seeing the findings of its predecessors), then synthesize when
// more than one team contributed. The returned answer is final; terminal
// event emission and persistence are the caller's responsibility.
func (s *Supervisor) Run(ctx context.Context, run *core.Run, history []oracle.Message) (string, error) {
	teamIDs := s.Classify(ctx, run.Input)
	s.opts.Logger.Info("supervisor.routed", "run_id", run.ID, "teams", strings.Join(teamIDs, ","))

	type finding struct {
		team   team.Team
		answer string
	}
	var findings []finding

	messages := append([]oracle.Message(nil), history...)
	messages = append(messages, oracle.UserMessage(run.Input))

	for _, id := range teamIDs {
		tm, ok := s.teams.Get(id)
		if !ok {
			continue
		}

		s.publish(run.ID, core.NewAgentStartEvent(run.ID, tm.ID))
		run.RecordTeam(tm.ID)

		answer, err := s.exec.Run(ctx, run.ID, tm, messages)
		if err != nil {
			if ctx.Err() != nil {
				return "", err
			}
			s.opts.Logger.Warn("supervisor.team.failed", "run_id", run.ID, "team", tm.ID, "error", err)
			s.publish(run.ID, core.NewWarningEvent(run.ID,
				fmt.Sprintf("team %s failed: %v", tm.ID, err)))
			continue
		}

		findings = append(findings, finding{team: tm, answer: answer})
		messages = append(messages, oracle.UserMessage(
			fmt.Sprintf("Findings from %s: %s", tm.Label, answer)))
	}

	if len(findings) == 0 {
		return "", fmt.Errorf("%w: %d team(s) routed", ErrAllTeamsFailed, len(teamIDs))
	}

	if len(findings) == 1 {
		return findings[0].answer, nil
	}

	// Multiple contributors: ask the oracle for a coherent synthesis, fall
	// back to a labeled join when that call fails.
	var parts []string
	for _, f := range findings {
		parts = append(parts, fmt.Sprintf("## %s\n%s", f.team.Label, f.answer))
	}

	synth, err := s.oracle.Decide(ctx, oracle.Request{
		Role: "You combine findings from specialist teams into one coherent answer for the user. Do not invent information beyond the findings.",
		History: []oracle.Message{
			oracle.UserMessage(fmt.Sprintf("Question: %s\n\n%s", run.Input, strings.Join(parts, "\n\n"))),
		},
	})
	if err != nil || strings.TrimSpace(synth.FinalAnswer) == "" {
		s.opts.Logger.Warn("supervisor.synthesis.failed", "run_id", run.ID, "error", err)
		s.publish(run.ID, core.NewWarningEvent(run.ID, "synthesis unavailable, returning team findings verbatim"))
		return strings.Join(parts, "\n\n"), nil
	}
	return synth.FinalAnswer, nil
}

func (s *Supervisor) publish(runID string, ev core.Event) {
	if err := s.bus.Publish(runID, ev); err != nil {
		s.opts.Logger.Warn("supervisor.publish.failed", "run_id", runID, "type", string(ev.Type), "error", err)
	}
}
