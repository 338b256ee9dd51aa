// Package executor runs a single team's reason/act loop: the oracle decides
// between tool calls and a final answer, requested tools execute against the
// registry and their observations are folded back into the conversation until
// the team answers or the iteration budget runs out.
package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentwerk/teamrouter/bus"
	"github.com/agentwerk/teamrouter/core"
	"github.com/agentwerk/teamrouter/logging"
	"github.com/agentwerk/teamrouter/oracle"
	"github.com/agentwerk/teamrouter/team"
	"github.com/agentwerk/teamrouter/tool"
)

// Options configure the team executor.
type Options struct {
	// MaxIterations bounds the reason/act loop per team.
	MaxIterations int
	// MaxParallel bounds concurrent tool execution within one decision.
	MaxParallel int
	// Logger receives per-step diagnostics.
	Logger logging.Logger
}

// Executor drives the reason/act loop for one team at a time.
type Executor struct {
	oracle oracle.Oracle
	tools  *tool.Registry
	bus    *bus.Bus
	opts   Options
}

// New constructs a team executor.
func New(o oracle.Oracle, tools *tool.Registry, b *bus.Bus, optFns ...func(o *Options)) *Executor {
	opts := Options{
		MaxIterations: 8,
		MaxParallel:   4,
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Executor{oracle: o, tools: tools, bus: b, opts: opts}
}

// Run executes the team against the given history. The history already ends
// with the user's task (plus any findings from earlier teams). On success the
// team's answer text is returned; tool failures are folded into context as
// observations rather than aborting the loop. An exhausted iteration budget
// degrades to a best-effort answer derived from the last observation, flagged
// with a warning event.
func (e *Executor) Run(ctx context.Context, runID string, tm team.Team, history []oracle.Message) (string, error) {
	allowed := make(map[string]struct{}, len(tm.Tools))
	for _, name := range tm.Tools {
		allowed[name] = struct{}{}
	}

	catalog := e.tools.Catalog(tm.Tools)
	messages := append([]oracle.Message(nil), history...)
	lastObservation := ""

	for iter := 0; iter < e.opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		decision, err := e.oracle.Decide(ctx, oracle.Request{
			Role:    tm.Role,
			Tools:   catalog,
			History: messages,
		})
		if err != nil {
			return "", fmt.Errorf("team %s: oracle decide: %w", tm.ID, err)
		}

		if decision.IsFinal() {
			if strings.TrimSpace(decision.FinalAnswer) == "" {
				return "", fmt.Errorf("team %s: oracle returned an empty decision", tm.ID)
			}
			e.publish(runID, core.NewAgentResponseEvent(runID, tm.ID, decision.FinalAnswer))
			return decision.FinalAnswer, nil
		}

		e.opts.Logger.Debug("executor.step", "run_id", runID, "team", tm.ID, "iteration", iter, "tool_calls", len(decision.ToolCalls))

		// Announce every requested call in request order before any of
		// them executes, so observers see the full batch up front.
		authorized := make([]oracle.ToolCall, 0, len(decision.ToolCalls))
		skipped := make([]oracle.ToolCall, 0)
		for _, tc := range decision.ToolCalls {
			if _, ok := allowed[tc.Name]; !ok {
				skipped = append(skipped, tc)
				e.publish(runID, core.NewWarningEvent(runID,
					fmt.Sprintf("team %s requested unauthorized tool %q, skipping", tm.ID, tc.Name)))
				continue
			}
			authorized = append(authorized, tc)
			e.publish(runID, core.NewToolCallEvent(runID, tm.ID, tc.Name, tool.DecodeArgs(tc.Arguments)))
		}

		messages = append(messages, oracle.Message{Role: oracle.RoleAssistant, ToolCalls: decision.ToolCalls})

		// Skipped calls still need a correlated observation so the oracle
		// does not wait for a result that will never arrive.
		for _, tc := range skipped {
			messages = append(messages, oracle.ToolMessage(tc.ID, tc.Name,
				fmt.Sprintf("tool %q is not available to this team", tc.Name)))
		}

		results := e.executeAll(ctx, runID, tm, authorized)
		for _, res := range results {
			e.publish(runID, core.NewToolResponseEvent(runID, tm.ID, res.call.Name, res.content))
			messages = append(messages, oracle.ToolMessage(res.call.ID, res.call.Name, res.content))
			lastObservation = res.content
		}
	}

	e.publish(runID, core.NewWarningEvent(runID,
		fmt.Sprintf("team %s hit the iteration budget (%d), answering from partial results", tm.ID, e.opts.MaxIterations)))

	answer := truncatedAnswer(tm, lastObservation)
	e.publish(runID, core.NewAgentResponseEvent(runID, tm.ID, answer))
	return answer, nil
}

func (e *Executor) publish(runID string, ev core.Event) {
	if err := e.bus.Publish(runID, ev); err != nil {
		e.opts.Logger.Warn("executor.publish.failed", "run_id", runID, "type", string(ev.Type), "error", err)
	}
}

// truncatedAnswer derives a best-effort response when the loop budget runs
// out before the team produces a final answer.
func truncatedAnswer(tm team.Team, lastObservation string) string {
	if strings.TrimSpace(lastObservation) == "" {
		return fmt.Sprintf("The %s team could not complete its investigation within the step budget.", tm.Label)
	}
	return fmt.Sprintf("Partial findings (investigation truncated): %s", lastObservation)
}
