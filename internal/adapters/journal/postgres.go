package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/podium/internal/domain/model"
)

const pgUniqueViolation = "23505"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS submissions (
	seq            BIGSERIAL UNIQUE,
	submission_id  TEXT PRIMARY KEY,
	participant_id TEXT NOT NULL,
	task_id        INTEGER NOT NULL,
	filename       TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL CHECK (status IN ('pending','scored','failed')),
	score          DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL,
	evaluated_at   TIMESTAMPTZ,
	details        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_submissions_pair ON submissions(participant_id, task_id);
`

// Postgres is a journal stored in a PostgreSQL table.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Append inserts a new submission row.
func (p *Postgres) Append(ctx context.Context, sub model.Submission) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO submissions (submission_id, participant_id, task_id, filename, status, score, created_at, evaluated_at, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sub.ID, sub.ParticipantID, sub.TaskID, sub.Filename, string(sub.Status), sub.Score,
		sub.CreatedAt, nullableTime(sub.EvaluatedAt), sub.Details,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", model.ErrDuplicateID, sub.ID)
		}
		return err
	}
	return nil
}

// Update writes the result columns of an existing row.
func (p *Postgres) Update(ctx context.Context, sub model.Submission) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE submissions SET status = $2, score = $3, evaluated_at = $4, details = $5
		WHERE submission_id = $1`,
		sub.ID, string(sub.Status), sub.Score, nullableTime(sub.EvaluatedAt), sub.Details,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: submission %s", model.ErrNotFound, sub.ID)
	}
	return nil
}

// Load returns every submission in insertion order.
func (p *Postgres) Load(ctx context.Context) ([]model.Submission, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT submission_id, participant_id, task_id, filename, status, score, created_at, evaluated_at, details
		FROM submissions ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Submission
	for rows.Next() {
		var (
			sub       model.Submission
			status    string
			evaluated *time.Time
		)
		if err := rows.Scan(&sub.ID, &sub.ParticipantID, &sub.TaskID, &sub.Filename, &status, &sub.Score, &sub.CreatedAt, &evaluated, &sub.Details); err != nil {
			return nil, err
		}
		sub.Status = model.Status(status)
		sub.CreatedAt = sub.CreatedAt.UTC()
		if evaluated != nil {
			sub.EvaluatedAt = evaluated.UTC()
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
