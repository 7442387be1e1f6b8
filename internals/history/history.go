package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/Roughriver74/west-rashod-sub001/internals/schemas"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is a local cache of task records the client observed reaching a
// terminal status. It lets `westctl tasks history` answer without the
// backend, whose own task state is in memory and lost on restart.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, err
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record upserts one observed record. Callers are expected to record
// terminal snapshots, but the store does not enforce it.
func (s *Store) Record(ctx context.Context, record schemas.TaskRecord) error {
	if record.TaskID == "" {
		return fmt.Errorf("history: record without task id")
	}
	recordedAt := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO task_history (id, type, status, progress, processed, total, message, result_json, error, created_at, started_at, completed_at, recorded_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	status = excluded.status,
	progress = excluded.progress,
	processed = excluded.processed,
	total = excluded.total,
	message = excluded.message,
	result_json = excluded.result_json,
	error = excluded.error,
	started_at = excluded.started_at,
	completed_at = excluded.completed_at,
	recorded_at = excluded.recorded_at
`, record.TaskID, record.TaskType, string(record.Status), record.Progress, record.Processed, record.Total,
		nullIfEmpty(record.Message), nullIfEmpty(string(record.Result)), nullIfEmpty(record.Error),
		nullIfEmpty(record.CreatedAt), nullIfEmpty(record.StartedAt), nullIfEmpty(record.CompletedAt), recordedAt)
	return err
}

// List returns cached records, newest first. kind filters by task type when
// non-empty.
func (s *Store) List(ctx context.Context, kind string, limit int) ([]schemas.TaskRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
SELECT id, type, status, progress, processed, total, message, result_json, error, created_at, started_at, completed_at
FROM task_history
`
	args := []any{}
	if kind != "" {
		query += "WHERE type = ?\n"
		args = append(args, kind)
	}
	query += "ORDER BY recorded_at DESC\nLIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []schemas.TaskRecord{}
	for rows.Next() {
		var record schemas.TaskRecord
		var status string
		var message, resultJSON, errMsg, createdAt, startedAt, completedAt sql.NullString
		if err := rows.Scan(&record.TaskID, &record.TaskType, &status, &record.Progress, &record.Processed, &record.Total,
			&message, &resultJSON, &errMsg, &createdAt, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		record.Status = schemas.TaskStatus(status)
		record.Message = message.String
		if resultJSON.String != "" {
			record.Result = []byte(resultJSON.String)
		}
		record.Error = errMsg.String
		record.CreatedAt = createdAt.String
		record.StartedAt = startedAt.String
		record.CompletedAt = completedAt.String
		records = append(records, record)
	}
	return records, rows.Err()
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
