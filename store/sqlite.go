package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/agentwerk/teamrouter/core"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS threads (
		id      TEXT PRIMARY KEY,
		created TIMESTAMP NOT NULL,
		updated TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS turns (
		thread_id      TEXT NOT NULL REFERENCES threads(id) ON DELETE CASCADE,
		position       INTEGER NOT NULL,
		user_text      TEXT NOT NULL,
		assistant_text TEXT NOT NULL,
		ts             TIMESTAMP NOT NULL,
		agent_path     TEXT NOT NULL,
		trace          TEXT NOT NULL,
		PRIMARY KEY (thread_id, position)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_turns_thread ON turns(thread_id)`,
}

// SQLiteStore persists threads in a SQLite database. Agent paths and event
// traces are stored as JSON columns.
type SQLiteStore struct {
	db *sql.DB
}

var _ ThreadStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and migrates) the database at the given DSN. Use
// ":memory:" for an ephemeral store; in that case the pool is pinned to a
// single connection so every query sees the same database.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// AppendTurn implements ThreadStore.
func (s *SQLiteStore) AppendTurn(ctx context.Context, threadID string, turn core.Turn) error {
	pathJSON, err := json.Marshal(turn.AgentPath)
	if err != nil {
		return fmt.Errorf("marshal agent path: %w", err)
	}
	traceJSON, err := json.Marshal(turn.Trace)
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO threads (id, created, updated) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated = excluded.updated`,
		threadID, now, now)
	if err != nil {
		return fmt.Errorf("upsert thread: %w", err)
	}

	var position int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM turns WHERE thread_id = ?`, threadID).Scan(&position); err != nil {
		return fmt.Errorf("count turns: %w", err)
	}

	ts := turn.Timestamp
	if ts.IsZero() {
		ts = now
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO turns (thread_id, position, user_text, assistant_text, ts, agent_path, trace)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		threadID, position, turn.UserText, turn.AssistantText, ts, string(pathJSON), string(traceJSON))
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}

	return tx.Commit()
}

// GetThread implements ThreadStore.
func (s *SQLiteStore) GetThread(ctx context.Context, threadID string) (*core.Thread, error) {
	th := core.NewThread(threadID)

	var created, updated time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT created, updated FROM threads WHERE id = ?`, threadID).Scan(&created, &updated)
	switch {
	case err == sql.ErrNoRows:
		return th, nil
	case err != nil:
		return nil, fmt.Errorf("select thread: %w", err)
	}
	th.Created = created
	th.Updated = updated

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_text, assistant_text, ts, agent_path, trace
		 FROM turns WHERE thread_id = ? ORDER BY position`, threadID)
	if err != nil {
		return nil, fmt.Errorf("select turns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var turn core.Turn
		var pathJSON, traceJSON string
		if err := rows.Scan(&turn.UserText, &turn.AssistantText, &turn.Timestamp, &pathJSON, &traceJSON); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if err := json.Unmarshal([]byte(pathJSON), &turn.AgentPath); err != nil {
			return nil, fmt.Errorf("unmarshal agent path: %w", err)
		}
		if err := json.Unmarshal([]byte(traceJSON), &turn.Trace); err != nil {
			return nil, fmt.Errorf("unmarshal trace: %w", err)
		}
		th.Turns = append(th.Turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return th, nil
}

// ListThreads implements ThreadStore.
func (s *SQLiteStore) ListThreads(ctx context.Context) ([]ThreadInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, COUNT(u.thread_id), t.updated
		 FROM threads t LEFT JOIN turns u ON u.thread_id = t.id
		 GROUP BY t.id ORDER BY t.updated DESC, t.id`)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var infos []ThreadInfo
	for rows.Next() {
		var info ThreadInfo
		if err := rows.Scan(&info.ThreadID, &info.TurnCount, &info.LastActivity); err != nil {
			return nil, fmt.Errorf("scan thread info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// DeleteThread implements ThreadStore.
func (s *SQLiteStore) DeleteThread(ctx context.Context, threadID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM turns WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("delete turns: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM threads WHERE id = ?`, threadID); err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	return nil
}

// Close implements ThreadStore.
func (s *SQLiteStore) Close() error { return s.db.Close() }
