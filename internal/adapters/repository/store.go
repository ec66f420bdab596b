// Package repository holds the authoritative submission history.
package repository

import (
	"context"
	"time"

	"github.com/okian/podium/internal/domain/model"
)

// Store provides read/write access to the submission history.
type Store interface {
	// Append inserts a fully formed submission. Returns model.ErrDuplicateID
	// when the id already exists; the prior state is left unchanged.
	Append(ctx context.Context, sub model.Submission) (string, error)

	// RecordResult fills in the result of a pending submission exactly once.
	// Returns model.ErrNotFound for unknown ids and model.ErrAlreadyScored
	// when a result was already recorded.
	RecordResult(ctx context.Context, id string, res Result) (model.Submission, error)

	// Get returns one submission from the current snapshot.
	Get(ctx context.Context, id string) (model.Submission, error)

	// Snapshot returns the current immutable view.
	Snapshot() *Snapshot

	// CountFor returns the quota-consuming submissions for a pair.
	CountFor(participantID string, taskID int) int

	Close() error
}

// Result is the outcome of the evaluation step.
type Result struct {
	Score       float64
	Status      model.Status
	Details     string
	EvaluatedAt time.Time
}

// Journal persists submissions so the store can be rebuilt after a restart.
type Journal interface {
	Append(ctx context.Context, sub model.Submission) error
	Update(ctx context.Context, sub model.Submission) error
	Load(ctx context.Context) ([]model.Submission, error)
	Close() error
}
