package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentwerk/teamrouter/oracle"
	"github.com/agentwerk/teamrouter/team"
)

type toolResult struct {
	call    oracle.ToolCall
	content string
	failed  bool
}

// executeAll runs the authorized calls of one decision. Execution is
// concurrent up to MaxParallel, but results come back in request order so
// tool_response events mirror the tool_call announcement order. Failures and
// panics become textual observations, never loop aborts.
func (e *Executor) executeAll(ctx context.Context, runID string, tm team.Team, calls []oracle.ToolCall) []toolResult {
	n := len(calls)
	if n == 0 {
		return nil
	}

	results := make([]toolResult, n)

	// Single call: no goroutine ceremony.
	if n == 1 {
		results[0] = e.executeOne(ctx, runID, tm, calls[0])
		return results
	}

	maxPar := e.opts.MaxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}
	sem := make(chan struct{}, maxPar)

	var wg sync.WaitGroup
	for i := range calls {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = e.executeOne(ctx, runID, tm, calls[idx])
		}(i)
	}
	wg.Wait()

	return results
}

func (e *Executor) executeOne(ctx context.Context, runID string, tm team.Team, call oracle.ToolCall) (res toolResult) {
	res.call = call

	defer func() {
		if r := recover(); r != nil {
			e.opts.Logger.Error("executor.tool.panic", "run_id", runID, "team", tm.ID, "tool", call.Name, "recover", r)
			res.content = fmt.Sprintf("ERROR: tool %s panicked: %v", call.Name, r)
			res.failed = true
		}
	}()

	content, err := e.tools.Call(ctx, call.Name, call.Arguments)
	if err != nil {
		e.opts.Logger.Warn("executor.tool.failed", "run_id", runID, "team", tm.ID, "tool", call.Name, "error", err)
		return toolResult{call: call, content: fmt.Sprintf("ERROR: %v", err), failed: true}
	}
	return toolResult{call: call, content: content}
}
