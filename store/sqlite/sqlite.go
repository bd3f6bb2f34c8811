// Package sqlite contains a durable core.Store implementation backed by
// SQLite via database/sql. It provides the transactional writes and ordered
// range scans the substrate requires: step numbers and event sequences are
// assigned inside write transactions, and the destructive checkpoint restore
// runs as a single transaction (task update + step truncation).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hupe1980/taskmesh/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id                 TEXT PRIMARY KEY,
	owner_id           TEXT NOT NULL,
	goal               TEXT NOT NULL,
	config             TEXT NOT NULL,
	status             TEXT NOT NULL,
	current_phase      TEXT NOT NULL,
	current_iteration  INTEGER NOT NULL DEFAULT 0,
	total_tool_calls   INTEGER NOT NULL DEFAULT 0,
	working_memory     TEXT NOT NULL DEFAULT '{}',
	artifacts          TEXT NOT NULL DEFAULT '[]',
	result             TEXT NOT NULL DEFAULT '',
	error              TEXT NOT NULL DEFAULT '',
	created_at         TEXT NOT NULL,
	started_at         TEXT,
	completed_at       TEXT,
	last_checkpoint_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner_id, created_at);

CREATE TABLE IF NOT EXISTS queue_entries (
	task_id      TEXT PRIMARY KEY REFERENCES tasks(id),
	priority     INTEGER NOT NULL,
	position     INTEGER NOT NULL,
	status       TEXT NOT NULL,
	queued_at    TEXT NOT NULL,
	started_at   TEXT,
	completed_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_queue_status ON queue_entries(status, priority DESC, position ASC);

CREATE TABLE IF NOT EXISTS queue_meta (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	max_position INTEGER NOT NULL
);
INSERT OR IGNORE INTO queue_meta (id, max_position)
	VALUES (1, (SELECT COALESCE(MAX(position), 0) FROM queue_entries));

CREATE TABLE IF NOT EXISTS steps (
	id           TEXT PRIMARY KEY,
	task_id      TEXT NOT NULL REFERENCES tasks(id),
	step_number  INTEGER NOT NULL,
	kind         TEXT NOT NULL,
	content      TEXT NOT NULL DEFAULT '',
	tool_name    TEXT NOT NULL DEFAULT '',
	tool_args    TEXT NOT NULL DEFAULT '{}',
	tool_result  TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	started_at   TEXT NOT NULL,
	completed_at TEXT NOT NULL,
	UNIQUE(task_id, step_number)
);

CREATE TABLE IF NOT EXISTS checkpoints (
	id           TEXT PRIMARY KEY,
	task_id      TEXT NOT NULL REFERENCES tasks(id),
	step_number  INTEGER NOT NULL,
	snapshot     TEXT NOT NULL,
	reason       TEXT NOT NULL DEFAULT '',
	is_automatic INTEGER NOT NULL,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_task ON checkpoints(task_id, created_at);

CREATE TABLE IF NOT EXISTS events (
	task_id   TEXT NOT NULL,
	sequence  INTEGER NOT NULL,
	kind      TEXT NOT NULL,
	data      TEXT NOT NULL DEFAULT '{}',
	timestamp TEXT NOT NULL,
	PRIMARY KEY(task_id, sequence)
);
`

// Store is a SQLite backed core.Store.
type Store struct {
	db *sql.DB
}

// Open opens (and if necessary creates) the database at path and applies the
// schema. Use ":memory:" for an ephemeral database in tests. The busy timeout
// makes concurrent writers queue instead of failing with SQLITE_BUSY.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer connection sidesteps table-level lock contention.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// CreateTask persists a new task row.
func (s *Store) CreateTask(ctx context.Context, task *core.Task) error {
	config, err := json.Marshal(task.Config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	workingMemory, err := json.Marshal(task.WorkingMemory)
	if err != nil {
		return fmt.Errorf("encode working memory: %w", err)
	}
	artifacts, err := json.Marshal(task.Artifacts)
	if err != nil {
		return fmt.Errorf("encode artifacts: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, owner_id, goal, config, status, current_phase,
			current_iteration, total_tool_calls, working_memory, artifacts,
			result, error, created_at, started_at, completed_at, last_checkpoint_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.OwnerID, task.Goal, string(config), string(task.Status),
		task.CurrentPhase, task.CurrentIteration, task.TotalToolCalls,
		string(workingMemory), string(artifacts), task.Result, task.Error,
		formatTime(task.CreatedAt), formatTimePtr(task.StartedAt),
		formatTimePtr(task.CompletedAt), formatTimePtr(task.LastCheckpointAt))
	return core.NewStorageError("create task", err)
}

// GetTask returns the task or an error wrapping core.ErrNotFound.
func (s *Store) GetTask(ctx context.Context, id string) (*core.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, goal, config, status, current_phase,
			current_iteration, total_tool_calls, working_memory, artifacts,
			result, error, created_at, started_at, completed_at, last_checkpoint_at
		FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, core.NewStorageError("get task", err)
	}
	return task, nil
}

// UpdateTask overwrites the task row.
func (s *Store) UpdateTask(ctx context.Context, task *core.Task) error {
	return s.updateTask(ctx, s.db, task)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) updateTask(ctx context.Context, ex execer, task *core.Task) error {
	config, err := json.Marshal(task.Config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	workingMemory, err := json.Marshal(task.WorkingMemory)
	if err != nil {
		return fmt.Errorf("encode working memory: %w", err)
	}
	artifacts, err := json.Marshal(task.Artifacts)
	if err != nil {
		return fmt.Errorf("encode artifacts: %w", err)
	}
	res, err := ex.ExecContext(ctx, `
		UPDATE tasks SET owner_id = ?, goal = ?, config = ?, status = ?,
			current_phase = ?, current_iteration = ?, total_tool_calls = ?,
			working_memory = ?, artifacts = ?, result = ?, error = ?,
			started_at = ?, completed_at = ?, last_checkpoint_at = ?
		WHERE id = ?`,
		task.OwnerID, task.Goal, string(config), string(task.Status),
		task.CurrentPhase, task.CurrentIteration, task.TotalToolCalls,
		string(workingMemory), string(artifacts), task.Result, task.Error,
		formatTimePtr(task.StartedAt), formatTimePtr(task.CompletedAt),
		formatTimePtr(task.LastCheckpointAt), task.ID)
	if err != nil {
		return core.NewStorageError("update task", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", task.ID, core.ErrNotFound)
	}
	return nil
}

// MutateTask applies mutate to the task row inside one transaction, so the
// read-modify-write cannot interleave with other writers.
func (s *Store) MutateTask(ctx context.Context, id string, mutate func(task *core.Task)) (*core.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, core.NewStorageError("begin mutate task", err)
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx, `
		SELECT id, owner_id, goal, config, status, current_phase,
			current_iteration, total_tool_calls, working_memory, artifacts,
			result, error, created_at, started_at, completed_at, last_checkpoint_at
		FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, core.NewStorageError("mutate task", err)
	}

	mutate(task)
	if err := s.updateTask(ctx, tx, task); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, core.NewStorageError("commit mutate task", err)
	}
	return task, nil
}

// ListTasksByOwner returns the owner's tasks ordered by creation time.
func (s *Store) ListTasksByOwner(ctx context.Context, ownerID string) ([]*core.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, goal, config, status, current_phase,
			current_iteration, total_tool_calls, working_memory, artifacts,
			result, error, created_at, started_at, completed_at, last_checkpoint_at
		FROM tasks WHERE owner_id = ? ORDER BY created_at ASC`, ownerID)
	if err != nil {
		return nil, core.NewStorageError("list tasks", err)
	}
	defer rows.Close()

	var tasks []*core.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, core.NewStorageError("scan task", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// PutQueueEntry inserts or replaces the entry for entry.TaskID and advances
// the position high-water mark, so positions are never reused after an entry
// is deleted.
func (s *Store) PutQueueEntry(ctx context.Context, entry *core.QueueEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.NewStorageError("begin put queue entry", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO queue_entries (task_id, priority, position, status, queued_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET priority = excluded.priority,
			position = excluded.position, status = excluded.status,
			queued_at = excluded.queued_at, started_at = excluded.started_at,
			completed_at = excluded.completed_at`,
		entry.TaskID, entry.Priority, entry.Position, string(entry.Status),
		formatTime(entry.QueuedAt), formatTimePtr(entry.StartedAt), formatTimePtr(entry.CompletedAt)); err != nil {
		return core.NewStorageError("put queue entry", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE queue_meta SET max_position = MAX(max_position, ?) WHERE id = 1`,
		entry.Position); err != nil {
		return core.NewStorageError("put queue entry", err)
	}
	return core.NewStorageError("commit put queue entry", tx.Commit())
}

// GetQueueEntry returns the entry for taskID.
func (s *Store) GetQueueEntry(ctx context.Context, taskID string) (*core.QueueEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT task_id, priority, position, status, queued_at, started_at, completed_at
		FROM queue_entries WHERE task_id = ?`, taskID)
	entry, err := scanQueueEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("queue entry %s: %w", taskID, core.ErrNotFound)
	}
	if err != nil {
		return nil, core.NewStorageError("get queue entry", err)
	}
	return entry, nil
}

// DeleteQueueEntry removes the entry for taskID; missing entries are a no-op.
func (s *Store) DeleteQueueEntry(ctx context.Context, taskID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM queue_entries WHERE task_id = ?`, taskID)
	return core.NewStorageError("delete queue entry", err)
}

// ListQueueEntries returns entries with the given status in dequeue order.
func (s *Store) ListQueueEntries(ctx context.Context, status core.QueueStatus) ([]*core.QueueEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, priority, position, status, queued_at, started_at, completed_at
		FROM queue_entries WHERE status = ?
		ORDER BY priority DESC, position ASC`, string(status))
	if err != nil {
		return nil, core.NewStorageError("list queue entries", err)
	}
	defer rows.Close()

	var entries []*core.QueueEntry
	for rows.Next() {
		entry, err := scanQueueEntry(rows)
		if err != nil {
			return nil, core.NewStorageError("scan queue entry", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// MaxQueuePosition returns the highest position ever assigned, surviving
// entry deletions via the queue_meta high-water mark.
func (s *Store) MaxQueuePosition(ctx context.Context) (int64, error) {
	var max int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE((SELECT max_position FROM queue_meta WHERE id = 1), 0)`).Scan(&max)
	if err != nil {
		return 0, core.NewStorageError("max queue position", err)
	}
	return max, nil
}

// AppendStep assigns the next step number and inserts the step in one
// transaction.
func (s *Store) AppendStep(ctx context.Context, step *core.Step) error {
	toolArgs, err := json.Marshal(step.ToolArgs)
	if err != nil {
		return fmt.Errorf("encode tool args: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.NewStorageError("begin append step", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(step_number), 0) + 1 FROM steps WHERE task_id = ?`,
		step.TaskID).Scan(&next); err != nil {
		return core.NewStorageError("next step number", err)
	}
	step.StepNumber = next

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO steps (id, task_id, step_number, kind, content, tool_name,
			tool_args, tool_result, status, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		step.ID, step.TaskID, step.StepNumber, string(step.Kind), step.Content,
		step.ToolName, string(toolArgs), step.ToolResult, step.Status,
		formatTime(step.StartedAt), formatTime(step.CompletedAt)); err != nil {
		return core.NewStorageError("append step", err)
	}
	return core.NewStorageError("commit append step", tx.Commit())
}

// ListSteps returns all steps for taskID ordered by step number.
func (s *Store) ListSteps(ctx context.Context, taskID string) ([]*core.Step, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, step_number, kind, content, tool_name, tool_args,
			tool_result, status, started_at, completed_at
		FROM steps WHERE task_id = ? ORDER BY step_number ASC`, taskID)
	if err != nil {
		return nil, core.NewStorageError("list steps", err)
	}
	defer rows.Close()

	var steps []*core.Step
	for rows.Next() {
		var (
			step               core.Step
			kind               string
			toolArgs           string
			startedAt, doneAt  string
		)
		if err := rows.Scan(&step.ID, &step.TaskID, &step.StepNumber, &kind,
			&step.Content, &step.ToolName, &toolArgs, &step.ToolResult,
			&step.Status, &startedAt, &doneAt); err != nil {
			return nil, core.NewStorageError("scan step", err)
		}
		step.Kind = core.StepKind(kind)
		if err := json.Unmarshal([]byte(toolArgs), &step.ToolArgs); err != nil {
			return nil, fmt.Errorf("decode tool args: %w", err)
		}
		step.StartedAt = parseTime(startedAt)
		step.CompletedAt = parseTime(doneAt)
		steps = append(steps, &step)
	}
	return steps, rows.Err()
}

// PutCheckpoint persists a checkpoint snapshot.
func (s *Store) PutCheckpoint(ctx context.Context, cp *core.Checkpoint) error {
	snapshot, err := json.Marshal(cp.Snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (id, task_id, step_number, snapshot, reason, is_automatic, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		cp.ID, cp.TaskID, cp.StepNumber, string(snapshot), cp.Reason,
		boolToInt(cp.IsAutomatic), formatTime(cp.CreatedAt))
	return core.NewStorageError("put checkpoint", err)
}

// GetCheckpoint returns the checkpoint by id.
func (s *Store) GetCheckpoint(ctx context.Context, taskID, id string) (*core.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, task_id, step_number, snapshot, reason, is_automatic, created_at
		FROM checkpoints WHERE task_id = ? AND id = ?`, taskID, id)
	cp, err := scanCheckpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("checkpoint %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, core.NewStorageError("get checkpoint", err)
	}
	return cp, nil
}

// LatestCheckpoint returns the most recent checkpoint for taskID.
func (s *Store) LatestCheckpoint(ctx context.Context, taskID string) (*core.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, task_id, step_number, snapshot, reason, is_automatic, created_at
		FROM checkpoints WHERE task_id = ?
		ORDER BY created_at DESC, step_number DESC LIMIT 1`, taskID)
	cp, err := scanCheckpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("checkpoint for task %s: %w", taskID, core.ErrNotFound)
	}
	if err != nil {
		return nil, core.NewStorageError("latest checkpoint", err)
	}
	return cp, nil
}

// RestoreCheckpoint persists the restored task row and deletes every step
// beyond stepNumber in one transaction.
func (s *Store) RestoreCheckpoint(ctx context.Context, task *core.Task, stepNumber int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.NewStorageError("begin restore", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := s.updateTask(ctx, tx, task); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM steps WHERE task_id = ? AND step_number > ?`,
		task.ID, stepNumber); err != nil {
		return core.NewStorageError("truncate steps", err)
	}
	return core.NewStorageError("commit restore", tx.Commit())
}

// AppendEvent assigns the next sequence and appends the event in one
// transaction.
func (s *Store) AppendEvent(ctx context.Context, ev *core.TaskEvent) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("encode event data: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.NewStorageError("begin append event", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) + 1 FROM events WHERE task_id = ?`,
		ev.TaskID).Scan(&next); err != nil {
		return core.NewStorageError("next sequence", err)
	}
	ev.Sequence = next

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO events (task_id, sequence, kind, data, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		ev.TaskID, ev.Sequence, string(ev.Kind), string(data),
		formatTime(ev.Timestamp)); err != nil {
		return core.NewStorageError("append event", err)
	}
	return core.NewStorageError("commit append event", tx.Commit())
}

// ListEventsSince returns events with sequence greater than afterSeq in order.
func (s *Store) ListEventsSince(ctx context.Context, taskID string, afterSeq int64) ([]*core.TaskEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, sequence, kind, data, timestamp
		FROM events WHERE task_id = ? AND sequence > ?
		ORDER BY sequence ASC`, taskID, afterSeq)
	if err != nil {
		return nil, core.NewStorageError("list events", err)
	}
	defer rows.Close()

	var events []*core.TaskEvent
	for rows.Next() {
		var (
			ev   core.TaskEvent
			kind string
			data string
			ts   string
		)
		if err := rows.Scan(&ev.TaskID, &ev.Sequence, &kind, &data, &ts); err != nil {
			return nil, core.NewStorageError("scan event", err)
		}
		ev.Kind = core.EventKind(kind)
		if err := json.Unmarshal([]byte(data), &ev.Data); err != nil {
			return nil, fmt.Errorf("decode event data: %w", err)
		}
		ev.Timestamp = parseTime(ts)
		events = append(events, &ev)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*core.Task, error) {
	var (
		task                                     core.Task
		config, status, workingMemory, artifacts string
		createdAt                                string
		startedAt, completedAt, checkpointAt     sql.NullString
	)
	if err := row.Scan(&task.ID, &task.OwnerID, &task.Goal, &config, &status,
		&task.CurrentPhase, &task.CurrentIteration, &task.TotalToolCalls,
		&workingMemory, &artifacts, &task.Result, &task.Error, &createdAt,
		&startedAt, &completedAt, &checkpointAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(config), &task.Config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := json.Unmarshal([]byte(workingMemory), &task.WorkingMemory); err != nil {
		return nil, fmt.Errorf("decode working memory: %w", err)
	}
	if err := json.Unmarshal([]byte(artifacts), &task.Artifacts); err != nil {
		return nil, fmt.Errorf("decode artifacts: %w", err)
	}
	task.Status = core.TaskStatus(status)
	task.CreatedAt = parseTime(createdAt)
	task.StartedAt = parseTimePtr(startedAt)
	task.CompletedAt = parseTimePtr(completedAt)
	task.LastCheckpointAt = parseTimePtr(checkpointAt)
	return &task, nil
}

func scanQueueEntry(row rowScanner) (*core.QueueEntry, error) {
	var (
		entry                  core.QueueEntry
		status, queuedAt       string
		startedAt, completedAt sql.NullString
	)
	if err := row.Scan(&entry.TaskID, &entry.Priority, &entry.Position, &status,
		&queuedAt, &startedAt, &completedAt); err != nil {
		return nil, err
	}
	entry.Status = core.QueueStatus(status)
	entry.QueuedAt = parseTime(queuedAt)
	entry.StartedAt = parseTimePtr(startedAt)
	entry.CompletedAt = parseTimePtr(completedAt)
	return &entry, nil
}

func scanCheckpoint(row rowScanner) (*core.Checkpoint, error) {
	var (
		cp          core.Checkpoint
		snapshot    string
		isAutomatic int
		createdAt   string
	)
	if err := row.Scan(&cp.ID, &cp.TaskID, &cp.StepNumber, &snapshot,
		&cp.Reason, &isAutomatic, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(snapshot), &cp.Snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	cp.IsAutomatic = isAutomatic != 0
	cp.CreatedAt = parseTime(createdAt)
	return &cp, nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
