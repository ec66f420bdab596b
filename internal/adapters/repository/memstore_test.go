package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/podium/internal/domain/model"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mustSubmission(t *testing.T, participant string, task int, offset time.Duration) model.Submission {
	t.Helper()
	sub, err := model.NewSubmission(participant, task, "solution.py", t0.Add(offset))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return sub
}

// fakeJournal records writes in memory and can be told to fail.
type fakeJournal struct {
	mu      sync.Mutex
	records map[string]model.Submission
	order   []string
	fail    error
	closed  bool
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{records: map[string]model.Submission{}}
}

func (j *fakeJournal) Append(_ context.Context, sub model.Submission) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail != nil {
		return j.fail
	}
	j.records[sub.ID] = sub
	j.order = append(j.order, sub.ID)
	return nil
}

func (j *fakeJournal) Update(_ context.Context, sub model.Submission) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail != nil {
		return j.fail
	}
	j.records[sub.ID] = sub
	return nil
}

func (j *fakeJournal) Load(context.Context) ([]model.Submission, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail != nil {
		return nil, j.fail
	}
	out := make([]model.Submission, 0, len(j.order))
	for _, id := range j.order {
		out = append(out, j.records[id])
	}
	return out, nil
}

func (j *fakeJournal) Close() error {
	j.closed = true
	return nil
}

func TestMemoryStore_AppendAndGet(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryStore(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := store.Snapshot().Len(); n != 0 {
		t.Errorf("expected empty store, got %d", n)
	}

	sub := mustSubmission(t, "alice", 0, 0)
	id, err := store.Append(ctx, sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != sub.ID {
		t.Errorf("expected id %s, got %s", sub.ID, id)
	}

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != model.StatusPending || got.ParticipantID != "alice" {
		t.Errorf("unexpected submission %+v", got)
	}

	if c := store.CountFor("alice", 0); c != 1 {
		t.Errorf("expected count 1, got %d", c)
	}
	if c := store.CountFor("alice", 1); c != 0 {
		t.Errorf("expected count 0 for other task, got %d", c)
	}
	if p := store.Snapshot().Pending(); p != 1 {
		t.Errorf("expected 1 pending, got %d", p)
	}

	if _, err := store.Get(ctx, "nobody_x"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_AppendRejects(t *testing.T) {
	ctx := context.Background()
	store, _ := NewMemoryStore(ctx)
	sub := mustSubmission(t, "alice", 0, 0)
	if _, err := store.Append(ctx, sub); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := store.Snapshot()

	tests := []struct {
		name string
		sub  model.Submission
		want error
	}{
		{"duplicate id", sub, model.ErrDuplicateID},
		{"foreign id prefix", func() model.Submission { s := mustSubmission(t, "bob", 0, 0); s.ParticipantID = "carol"; return s }(), model.ErrValidation},
		{"malformed id", model.Submission{ID: "nounderscore", ParticipantID: "nounderscore", Status: model.StatusPending, CreatedAt: t0}, model.ErrValidation},
		{"unknown status", func() model.Submission { s := mustSubmission(t, "bob", 0, 0); s.Status = "done"; return s }(), model.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Append(ctx, tt.sub); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if store.Snapshot() != before {
				t.Fatal("rejected append must not publish a new snapshot")
			}
		})
	}
}

func TestMemoryStore_RecordResultIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	store, _ := NewMemoryStore(ctx)
	sub := mustSubmission(t, "alice", 1, 0)
	if _, err := store.Append(ctx, sub); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := store.RecordResult(ctx, sub.ID, Result{Score: 0.8, Status: model.StatusScored, EvaluatedAt: t0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Score != 0.8 || first.Status != model.StatusScored {
		t.Errorf("unexpected result %+v", first)
	}

	_, err = store.RecordResult(ctx, sub.ID, Result{Score: 0.1, Status: model.StatusScored, EvaluatedAt: t0})
	if !errors.Is(err, model.ErrAlreadyScored) {
		t.Fatalf("expected ErrAlreadyScored, got %v", err)
	}

	got, _ := store.Get(ctx, sub.ID)
	if got.Score != 0.8 {
		t.Errorf("first result must be kept, got %f", got.Score)
	}
	if p := store.Snapshot().Pending(); p != 0 {
		t.Errorf("expected 0 pending, got %d", p)
	}
	if c := store.CountFor("alice", 1); c != 1 {
		t.Errorf("result must not change quota count, got %d", c)
	}
}

func TestMemoryStore_RecordResultErrors(t *testing.T) {
	ctx := context.Background()
	store, _ := NewMemoryStore(ctx)
	sub := mustSubmission(t, "alice", 1, 0)
	_, _ = store.Append(ctx, sub)

	if _, err := store.RecordResult(ctx, "ghost_1", Result{Status: model.StatusScored}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.RecordResult(ctx, sub.ID, Result{Status: model.StatusPending}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}

	failed, err := store.RecordResult(ctx, sub.ID, Result{Score: 0.9, Status: model.StatusFailed, Details: "timeout"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if failed.Score != 0 || failed.Details != "timeout" {
		t.Errorf("failed result must carry score 0, got %+v", failed)
	}
}

func TestMemoryStore_SnapshotsAreImmutable(t *testing.T) {
	ctx := context.Background()
	store, _ := NewMemoryStore(ctx)
	sub := mustSubmission(t, "alice", 0, 0)
	_, _ = store.Append(ctx, sub)

	old := store.Snapshot()
	_, _ = store.RecordResult(ctx, sub.ID, Result{Score: 0.5, Status: model.StatusScored})
	_, _ = store.Append(ctx, mustSubmission(t, "alice", 0, time.Second))

	if got, _ := old.Get(sub.ID); got.Status != model.StatusPending {
		t.Errorf("old snapshot changed: %+v", got)
	}
	if old.Len() != 1 || old.CountFor("alice", 0) != 1 {
		t.Errorf("old snapshot counts changed: len=%d count=%d", old.Len(), old.CountFor("alice", 0))
	}
	cur := store.Snapshot()
	if cur.Version() != old.Version()+2 {
		t.Errorf("expected version %d, got %d", old.Version()+2, cur.Version())
	}
	if cur.CountForParticipant("alice") != 2 {
		t.Errorf("expected 2 submissions for alice, got %d", cur.CountForParticipant("alice"))
	}
}

func TestMemoryStore_JournalFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	j := newFakeJournal()
	store, err := NewMemoryStore(ctx, WithJournal(j))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sub := mustSubmission(t, "alice", 0, 0)
	_, _ = store.Append(ctx, sub)

	j.fail = errors.New("disk full")
	before := store.Snapshot()

	if _, err := store.Append(ctx, mustSubmission(t, "alice", 0, time.Second)); !errors.Is(err, ErrJournal) {
		t.Errorf("expected ErrJournal, got %v", err)
	}
	if _, err := store.RecordResult(ctx, sub.ID, Result{Score: 1, Status: model.StatusScored}); !errors.Is(err, ErrJournal) {
		t.Errorf("expected ErrJournal, got %v", err)
	}
	if store.Snapshot() != before {
		t.Error("failed journal write must not publish a snapshot")
	}

	j.fail = nil
	if _, err := store.RecordResult(ctx, sub.ID, Result{Score: 1, Status: model.StatusScored}); err != nil {
		t.Errorf("result must still be recordable after a failed attempt: %v", err)
	}
}

func TestMemoryStore_ReplayFromJournal(t *testing.T) {
	ctx := context.Background()
	j := newFakeJournal()
	first, _ := NewMemoryStore(ctx, WithJournal(j))

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := first.Append(ctx, mustSubmission(t, "bob", 2, time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ids = append(ids, id)
	}
	_, _ = first.RecordResult(ctx, ids[0], Result{Score: 0.7, Status: model.StatusScored, EvaluatedAt: t0})

	second, err := NewMemoryStore(ctx, WithJournal(j))
	if err != nil {
		t.Fatalf("unexpected replay error: %v", err)
	}
	snap := second.Snapshot()
	if snap.Len() != 3 || snap.CountFor("bob", 2) != 3 || snap.Pending() != 2 {
		t.Fatalf("unexpected replayed state len=%d count=%d pending=%d", snap.Len(), snap.CountFor("bob", 2), snap.Pending())
	}
	for i, sub := range snap.All() {
		if sub.ID != ids[i] {
			t.Errorf("replay must keep insertion order: %d %s != %s", i, sub.ID, ids[i])
		}
	}
	if got, _ := snap.Get(ids[0]); got.Score != 0.7 {
		t.Errorf("expected replayed score 0.7, got %f", got.Score)
	}

	if err := second.Close(); err != nil || !j.closed {
		t.Errorf("expected journal to be closed, err=%v", err)
	}

	j.fail = errors.New("boom")
	if _, err := NewMemoryStore(ctx, WithJournal(j)); !errors.Is(err, ErrReplay) {
		t.Errorf("expected ErrReplay, got %v", err)
	}
}

func TestMemoryStore_ConcurrentReadersAndWriters(t *testing.T) {
	ctx := context.Background()
	store, _ := NewMemoryStore(ctx)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				sub, err := model.NewSubmission(fmt.Sprintf("p%d", w), i%4, "s.py", t0.Add(time.Duration(i)*time.Millisecond))
				if err != nil {
					t.Errorf("new submission: %v", err)
					return
				}
				if _, err := store.Append(ctx, sub); err != nil {
					t.Errorf("append failed: %v", err)
					return
				}
				if _, err := store.RecordResult(ctx, sub.ID, Result{Score: float64(i), Status: model.StatusScored}); err != nil {
					t.Errorf("record failed: %v", err)
					return
				}
			}
		}(w)
	}
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				snap := store.Snapshot()
				seen := make(map[string]struct{}, snap.Len())
				for _, sub := range snap.All() {
					if _, dup := seen[sub.ID]; dup {
						t.Errorf("snapshot holds %s twice", sub.ID)
						return
					}
					seen[sub.ID] = struct{}{}
				}
			}
		}()
	}
	wg.Wait()

	snap := store.Snapshot()
	if snap.Len() != 400 || snap.Pending() != 0 {
		t.Errorf("expected 400 scored submissions, got len=%d pending=%d", snap.Len(), snap.Pending())
	}
}
