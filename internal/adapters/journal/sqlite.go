package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/okian/podium/internal/domain/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS submissions (
	submission_id  TEXT PRIMARY KEY,
	participant_id TEXT NOT NULL,
	task_id        INTEGER NOT NULL,
	filename       TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL CHECK (status IN ('pending','scored','failed')),
	score          REAL NOT NULL DEFAULT 0,
	created_at     INTEGER NOT NULL,
	evaluated_at   INTEGER NOT NULL DEFAULT 0,
	details        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_submissions_pair ON submissions(participant_id, task_id);
`

// SQLite is an embedded journal backed by a single database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{`PRAGMA journal_mode=WAL;`, `PRAGMA busy_timeout=5000;`} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Append inserts a new submission row.
func (s *SQLite) Append(ctx context.Context, sub model.Submission) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (submission_id, participant_id, task_id, filename, status, score, created_at, evaluated_at, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.ParticipantID, sub.TaskID, sub.Filename, string(sub.Status), sub.Score,
		toUnixNano(sub.CreatedAt), toUnixNano(sub.EvaluatedAt), sub.Details,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique) {
			return fmt.Errorf("%w: %s", model.ErrDuplicateID, sub.ID)
		}
		return err
	}
	return nil
}

// Update writes the result columns of an existing row.
func (s *SQLite) Update(ctx context.Context, sub model.Submission) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE submissions SET status = ?, score = ?, evaluated_at = ?, details = ?
		WHERE submission_id = ?`,
		string(sub.Status), sub.Score, toUnixNano(sub.EvaluatedAt), sub.Details, sub.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: submission %s", model.ErrNotFound, sub.ID)
	}
	return nil
}

// Load returns every submission in insertion order.
func (s *SQLite) Load(ctx context.Context) ([]model.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT submission_id, participant_id, task_id, filename, status, score, created_at, evaluated_at, details
		FROM submissions ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Submission
	for rows.Next() {
		var (
			sub                  model.Submission
			status               string
			createdAt, evaluated int64
		)
		if err := rows.Scan(&sub.ID, &sub.ParticipantID, &sub.TaskID, &sub.Filename, &status, &sub.Score, &createdAt, &evaluated, &sub.Details); err != nil {
			return nil, err
		}
		sub.Status = model.Status(status)
		sub.CreatedAt = fromUnixNano(createdAt)
		sub.EvaluatedAt = fromUnixNano(evaluated)
		out = append(out, sub)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
