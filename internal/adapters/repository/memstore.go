package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/metrics"
)

// MemoryStore keeps the submission history in memory behind a copy-on-write
// snapshot. Writers serialize on mu, persist to the journal first, then
// publish a new snapshot; readers load the pointer and never block.
type MemoryStore struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[Snapshot]
	journal  Journal
}

// NewMemoryStore creates a store and, when a journal is configured, rebuilds
// its state from the journal.
func NewMemoryStore(ctx context.Context, opts ...Option) (*MemoryStore, error) {
	s := &MemoryStore{}
	for _, opt := range opts {
		opt(s)
	}

	snap := emptySnapshot()
	if s.journal != nil {
		records, err := s.journal.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReplay, err)
		}
		for _, sub := range records {
			if err := sub.Validate(); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrReplay, sub.ID, err)
			}
			if _, dup := snap.byID[sub.ID]; dup {
				return nil, fmt.Errorf("%w: %w: %s", ErrReplay, model.ErrDuplicateID, sub.ID)
			}
			snap = snap.withAppended(sub)
		}
	}
	s.publish(snap)
	return s, nil
}

// Append inserts sub after validating it.
func (s *MemoryStore) Append(ctx context.Context, sub model.Submission) (string, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreWriteLatency(msSince(start)) }()

	if err := sub.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snapshot.Load()
	if _, dup := cur.byID[sub.ID]; dup {
		metrics.RecordErrorByComponent("repository", "duplicate_id")
		return "", fmt.Errorf("%w: %s", model.ErrDuplicateID, sub.ID)
	}
	if err := s.persist(ctx, "append", sub); err != nil {
		return "", err
	}
	s.publish(cur.withAppended(sub))
	return sub.ID, nil
}

// RecordResult stores the evaluation outcome of a pending submission.
func (s *MemoryStore) RecordResult(ctx context.Context, id string, res Result) (model.Submission, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreWriteLatency(msSince(start)) }()

	if !res.Status.Final() {
		return model.Submission{}, fmt.Errorf("%w: result status must be scored or failed, got %q", model.ErrValidation, res.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snapshot.Load()
	i, ok := cur.byID[id]
	if !ok {
		return model.Submission{}, fmt.Errorf("%w: submission %s", model.ErrNotFound, id)
	}
	sub := cur.submissions[i]
	if sub.Status.Final() {
		return sub, fmt.Errorf("%w: %s", model.ErrAlreadyScored, id)
	}

	sub.Score = res.Score
	sub.Status = res.Status
	sub.Details = res.Details
	sub.EvaluatedAt = res.EvaluatedAt.UTC()
	if sub.Status == model.StatusFailed {
		sub.Score = 0
	}

	if err := s.persist(ctx, "update", sub); err != nil {
		return model.Submission{}, err
	}
	s.publish(cur.withReplaced(i, sub))
	return sub, nil
}

// Get returns a submission by id.
func (s *MemoryStore) Get(_ context.Context, id string) (model.Submission, error) {
	sub, ok := s.snapshot.Load().Get(id)
	if !ok {
		return model.Submission{}, fmt.Errorf("%w: submission %s", model.ErrNotFound, id)
	}
	return sub, nil
}

// Snapshot returns the latest published snapshot.
func (s *MemoryStore) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// CountFor returns the stored submissions for a (participant, task) pair.
func (s *MemoryStore) CountFor(participantID string, taskID int) int {
	return s.snapshot.Load().CountFor(participantID, taskID)
}

// Close closes the journal, if any.
func (s *MemoryStore) Close() error {
	if s.journal == nil {
		return nil
	}
	return s.journal.Close()
}

func (s *MemoryStore) persist(ctx context.Context, op string, sub model.Submission) error {
	if s.journal == nil {
		return nil
	}
	start := time.Now()
	var err error
	if op == "append" {
		err = s.journal.Append(ctx, sub)
	} else {
		err = s.journal.Update(ctx, sub)
	}
	if err != nil {
		metrics.RecordJournalWrite(op, "error", msSince(start))
		metrics.RecordErrorByComponent("journal", op)
		return fmt.Errorf("%w: %s %s: %w", ErrJournal, op, sub.ID, err)
	}
	metrics.RecordJournalWrite(op, "ok", msSince(start))
	return nil
}

func (s *MemoryStore) publish(snap *Snapshot) {
	s.snapshot.Store(snap)
	metrics.UpdateStoreRecords(snap.Len(), snap.Pending())
	metrics.UpdateStoreSnapshotVersion(snap.version)
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
