// Package logs provides the log investigation team: tools for fetching,
// comparing and analyzing per-order execution logs. The dataset is a fixed
// in-process fixture resembling an order pipeline's structured log output.
package logs

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agentwerk/teamrouter/team"
	"github.com/agentwerk/teamrouter/tool"
)

// TeamID identifies the log investigation team in agent paths.
const TeamID = "log_team"

type logLine struct {
	Step    string
	Level   string
	Message string
}

type orderLog struct {
	OrderID string
	Status  string
	Lines   []logLine
}

// orderLogs is the canned execution history keyed by order id.
var orderLogs = map[string]orderLog{
	"GOOD001": {
		OrderID: "GOOD001",
		Status:  "completed",
		Lines: []logLine{
			{Step: "validate_order", Level: "INFO", Message: "order payload validated"},
			{Step: "check_inventory", Level: "INFO", Message: "all 3 items in stock"},
			{Step: "reserve_inventory", Level: "INFO", Message: "reserved 3 items"},
			{Step: "charge_payment", Level: "INFO", Message: "payment captured: $129.97"},
			{Step: "ship_order", Level: "INFO", Message: "shipment created, carrier=UPS"},
		},
	},
	"BAD001": {
		OrderID: "BAD001",
		Status:  "failed",
		Lines: []logLine{
			{Step: "validate_order", Level: "INFO", Message: "order payload validated"},
			{Step: "check_inventory", Level: "ERROR", Message: "InsufficientInventoryError: item SKU-4411 requested=5 available=2 (code=INV_001)"},
			{Step: "rollback", Level: "WARN", Message: "released partial reservation"},
		},
	},
	"GOOD002": {
		OrderID: "GOOD002",
		Status:  "completed",
		Lines: []logLine{
			{Step: "validate_order", Level: "INFO", Message: "order payload validated"},
			{Step: "check_inventory", Level: "INFO", Message: "all 1 items in stock"},
			{Step: "reserve_inventory", Level: "INFO", Message: "reserved 1 item"},
			{Step: "charge_payment", Level: "INFO", Message: "payment captured: $24.99"},
			{Step: "ship_order", Level: "INFO", Message: "shipment created, carrier=FedEx"},
		},
	},
}

// Team returns the log investigation team definition.
func Team() team.Team {
	return team.Team{
		ID:    TeamID,
		Label: "Log Investigation",
		Role: "You are a log investigation specialist. You fetch and compare order " +
			"execution logs to find where processing diverged and why. Cite the " +
			"failing step and error code when you find one.",
		Tools:    []string{"fetch_order_logs", "compare_order_execution", "analyze_failure_pattern"},
		Affinity: team.AnyOf(
			team.KeywordAffinity("log", "compare", "execution", "fail"),
			// Order ids like GOOD001 or BAD001 route straight here.
			team.PatternAffinity(`\b(good|bad)\d{3}\b`),
		),
	}
}

// Tools returns the team's tool implementations for registry wiring.
func Tools() []tool.Tool {
	return []tool.Tool{
		tool.NewFunctionTool("fetch_order_logs",
			"Fetch the execution log for a single order id.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"order_id": map[string]any{"type": "string", "description": "Order identifier, e.g. GOOD001"},
				},
				"required": []string{"order_id"},
			},
			fetchOrderLogs),
		tool.NewFunctionTool("compare_order_execution",
			"Compare the execution logs of two orders step by step and report where they diverge.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"order_id_a": map[string]any{"type": "string", "description": "First order id"},
					"order_id_b": map[string]any{"type": "string", "description": "Second order id"},
				},
				"required": []string{"order_id_a", "order_id_b"},
			},
			compareOrderExecution),
		tool.NewFunctionTool("analyze_failure_pattern",
			"Analyze a failed order's log for the failing step, error class and error code.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"order_id": map[string]any{"type": "string", "description": "Order identifier"},
				},
				"required": []string{"order_id"},
			},
			analyzeFailurePattern),
	}
}

// KnownOrderIDs returns the fixture order ids in sorted order.
func KnownOrderIDs() []string {
	ids := make([]string, 0, len(orderLogs))
	for id := range orderLogs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func lookup(args map[string]any, key string) (orderLog, error) {
	id, _ := args[key].(string)
	id = strings.ToUpper(strings.TrimSpace(id))
	ol, ok := orderLogs[id]
	if !ok {
		return orderLog{}, fmt.Errorf("no logs for order %q (known orders: %s)", id, strings.Join(KnownOrderIDs(), ", "))
	}
	return ol, nil
}

func renderLog(ol orderLog) string {
	var b strings.Builder
	fmt.Fprintf(&b, "order=%s status=%s\n", ol.OrderID, ol.Status)
	for _, line := range ol.Lines {
		fmt.Fprintf(&b, "[%s] %s: %s\n", line.Level, line.Step, line.Message)
	}
	return b.String()
}

func fetchOrderLogs(_ context.Context, args map[string]any) (string, error) {
	ol, err := lookup(args, "order_id")
	if err != nil {
		return "", err
	}
	return renderLog(ol), nil
}

func compareOrderExecution(_ context.Context, args map[string]any) (string, error) {
	a, err := lookup(args, "order_id_a")
	if err != nil {
		return "", err
	}
	b, err := lookup(args, "order_id_b")
	if err != nil {
		return "", err
	}

	var out strings.Builder
	fmt.Fprintf(&out, "Comparison of %s (%s) vs %s (%s):\n", a.OrderID, a.Status, b.OrderID, b.Status)

	n := len(a.Lines)
	if len(b.Lines) > n {
		n = len(b.Lines)
	}
	diverged := false
	for i := 0; i < n; i++ {
		switch {
		case i >= len(a.Lines):
			fmt.Fprintf(&out, "step %d: %s only ran in %s (%s)\n", i+1, b.Lines[i].Step, b.OrderID, b.Lines[i].Message)
		case i >= len(b.Lines):
			fmt.Fprintf(&out, "step %d: %s only ran in %s (%s)\n", i+1, a.Lines[i].Step, a.OrderID, a.Lines[i].Message)
		case a.Lines[i].Step != b.Lines[i].Step || a.Lines[i].Level != b.Lines[i].Level:
			diverged = true
			fmt.Fprintf(&out, "step %d: DIVERGENCE: %s=[%s %s: %s] vs %s=[%s %s: %s]\n", i+1,
				a.OrderID, a.Lines[i].Level, a.Lines[i].Step, a.Lines[i].Message,
				b.OrderID, b.Lines[i].Level, b.Lines[i].Step, b.Lines[i].Message)
		default:
			fmt.Fprintf(&out, "step %d: %s matches\n", i+1, a.Lines[i].Step)
		}
	}
	if !diverged && a.Status == b.Status {
		out.WriteString("No divergence found; both orders took the same path.\n")
	}
	return out.String(), nil
}

func analyzeFailurePattern(_ context.Context, args map[string]any) (string, error) {
	ol, err := lookup(args, "order_id")
	if err != nil {
		return "", err
	}
	if ol.Status != "failed" {
		return fmt.Sprintf("order %s did not fail (status=%s); nothing to analyze", ol.OrderID, ol.Status), nil
	}
	for _, line := range ol.Lines {
		if line.Level == "ERROR" {
			return fmt.Sprintf("order %s failed at step %q: %s", ol.OrderID, line.Step, line.Message), nil
		}
	}
	return fmt.Sprintf("order %s is marked failed but no ERROR line was logged", ol.OrderID), nil
}
