// Package orderdb provides the database query team: read-only SQL access to
// a seeded order-management SQLite database. Only SELECT statements are
// allowed through; everything else is rejected before touching the database.
package orderdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/agentwerk/teamrouter/team"
	"github.com/agentwerk/teamrouter/tool"
)

// TeamID identifies the database query team in agent paths.
const TeamID = "db_team"

const maxRows = 50

var schema = []string{
	`CREATE TABLE orders (
		id          TEXT PRIMARY KEY,
		customer    TEXT NOT NULL,
		status      TEXT NOT NULL,
		total_cents INTEGER NOT NULL,
		created_at  TEXT NOT NULL
	)`,
	`CREATE TABLE order_items (
		order_id TEXT NOT NULL REFERENCES orders(id),
		sku      TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		PRIMARY KEY (order_id, sku)
	)`,
	`CREATE TABLE inventory (
		sku               TEXT PRIMARY KEY,
		available         INTEGER NOT NULL,
		reorder_threshold INTEGER NOT NULL
	)`,
	`CREATE TABLE system_logs (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id TEXT,
		level    TEXT NOT NULL,
		step     TEXT NOT NULL,
		message  TEXT NOT NULL
	)`,
}

var seed = []string{
	`INSERT INTO orders VALUES
		('GOOD001', 'acme-corp',  'completed', 12997, '2026-08-20T10:01:00Z'),
		('BAD001',  'globex',     'failed',    64995, '2026-08-20T10:05:00Z'),
		('GOOD002', 'initech',    'completed',  2499, '2026-08-21T09:12:00Z')`,
	`INSERT INTO order_items VALUES
		('GOOD001', 'SKU-1001', 2),
		('GOOD001', 'SKU-2002', 1),
		('BAD001',  'SKU-4411', 5),
		('GOOD002', 'SKU-1001', 1)`,
	`INSERT INTO inventory VALUES
		('SKU-1001', 40, 10),
		('SKU-2002', 15, 10),
		('SKU-4411',  2, 10)`,
	`INSERT INTO system_logs (order_id, level, step, message) VALUES
		('GOOD001', 'INFO',  'ship_order',      'shipment created, carrier=UPS'),
		('BAD001',  'ERROR', 'check_inventory', 'InsufficientInventoryError: item SKU-4411 requested=5 available=2 (code=INV_001)'),
		('GOOD002', 'INFO',  'ship_order',      'shipment created, carrier=FedEx')`,
}

// Store wraps the seeded read-only database.
type Store struct {
	db *sql.DB
}

// NewStore creates and seeds an in-memory order database.
func NewStore() (*Store, error) {
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open order db: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range append(append([]string{}, schema...), seed...) {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("seed order db: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Team returns the database query team definition.
func Team() team.Team {
	return team.Team{
		ID:    TeamID,
		Label: "Database Queries",
		Role: "You are a database analyst. You inspect the order database with " +
			"read-only SQL. Look up the schema before writing queries and report " +
			"numbers exactly as returned.",
		Tools:    []string{"get_database_schema", "execute_sql_query", "get_order_statistics"},
		Affinity: team.KeywordAffinity("show", "list", "count", "total", "how many", "statistics", "database", "sql"),
	}
}

// Tools returns the team's tool implementations bound to the store.
func (s *Store) Tools() []tool.Tool {
	return []tool.Tool{
		tool.NewFunctionTool("get_database_schema",
			"Return the CREATE TABLE statements of the order database.",
			map[string]any{"type": "object", "properties": map[string]any{}},
			func(ctx context.Context, _ map[string]any) (string, error) {
				return s.describeSchema(ctx)
			}),
		tool.NewFunctionTool("execute_sql_query",
			"Run a read-only SELECT statement against the order database.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string", "description": "A single SELECT statement"},
				},
				"required": []string{"query"},
			},
			func(ctx context.Context, args map[string]any) (string, error) {
				query, _ := args["query"].(string)
				return s.executeQuery(ctx, query)
			}),
		tool.NewFunctionTool("get_order_statistics",
			"Return aggregate order counts and totals grouped by status.",
			map[string]any{"type": "object", "properties": map[string]any{}},
			func(ctx context.Context, _ map[string]any) (string, error) {
				return s.orderStatistics(ctx)
			}),
	}
}

func (s *Store) describeSchema(ctx context.Context) (string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sql FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return "", fmt.Errorf("read schema: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var ddl string
		if err := rows.Scan(&ddl); err != nil {
			return "", fmt.Errorf("scan schema: %w", err)
		}
		b.WriteString(ddl)
		b.WriteString(";\n\n")
	}
	return b.String(), rows.Err()
}

// executeQuery enforces the read-only contract: a single statement that
// starts with SELECT (or WITH for CTEs) and contains no statement separator.
func (s *Store) executeQuery(ctx context.Context, query string) (string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", fmt.Errorf("query must not be empty")
	}

	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return "", fmt.Errorf("only SELECT queries are allowed")
	}
	if strings.Contains(strings.TrimSuffix(trimmed, ";"), ";") {
		return "", fmt.Errorf("multiple statements are not allowed")
	}

	rows, err := s.db.QueryContext(ctx, trimmed)
	if err != nil {
		return "", fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("read columns: %w", err)
	}

	var b strings.Builder
	b.WriteString(strings.Join(cols, " | "))
	b.WriteString("\n")

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	count := 0
	for rows.Next() {
		if count == maxRows {
			fmt.Fprintf(&b, "... truncated at %d rows\n", maxRows)
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", fmt.Errorf("scan row: %w", err)
		}
		fields := make([]string, len(cols))
		for i, v := range values {
			fields[i] = renderValue(v)
		}
		b.WriteString(strings.Join(fields, " | "))
		b.WriteString("\n")
		count++
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate rows: %w", err)
	}
	fmt.Fprintf(&b, "(%d rows)\n", count)
	return b.String(), nil
}

func (s *Store) orderStatistics(ctx context.Context) (string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*), SUM(total_cents) FROM orders GROUP BY status ORDER BY status`)
	if err != nil {
		return "", fmt.Errorf("order statistics: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	b.WriteString("status | orders | total_value\n")
	for rows.Next() {
		var status string
		var count, cents int64
		if err := rows.Scan(&status, &count, &cents); err != nil {
			return "", fmt.Errorf("scan statistics: %w", err)
		}
		fmt.Fprintf(&b, "%s | %d | $%.2f\n", status, count, float64(cents)/100)
	}
	return b.String(), rows.Err()
}

func renderValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
