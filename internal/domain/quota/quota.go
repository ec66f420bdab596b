// Package quota enforces the per-(participant, task) submission limit.
//
// Admit and the store append that follows it form one critical section per
// key: a Ticket holds the key until it is committed or released, so two
// concurrent uploads for the same participant and task can never both
// observe the pre-append count. Unrelated keys never wait on each other.
package quota

import (
	"context"
	"sync"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/metrics"
)

// DefaultLimit is the number of accepted submissions per participant and task.
const DefaultLimit = 3

// Counter reports how many quota-consuming submissions exist for a key.
type Counter interface {
	CountFor(participantID string, taskID int) int
}

type key struct {
	participant string
	task        int
}

// keyLock is a ctx-aware mutex shared by every waiter on one key.
type keyLock struct {
	sem  chan struct{}
	refs int
}

// Guard admits submissions while the count for their key is below the limit.
type Guard struct {
	limit   int
	counter Counter

	mu    sync.Mutex
	locks map[key]*keyLock
}

// NewGuard returns a guard reading counts from counter.
func NewGuard(counter Counter, opts ...Option) *Guard {
	g := &Guard{
		limit:   DefaultLimit,
		counter: counter,
		locks:   make(map[key]*keyLock),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Limit returns the configured quota.
func (g *Guard) Limit() int { return g.limit }

// Admit enters the critical section for (participantID, taskID) and checks
// the current count. On success the caller owns the returned Ticket and must
// Commit it after a successful append or Release it otherwise. When the quota
// is met Admit returns a *model.QuotaExceededError and holds nothing.
func (g *Guard) Admit(ctx context.Context, participantID string, taskID int) (*Ticket, error) {
	k := key{participant: participantID, task: taskID}
	start := time.Now()
	if err := g.acquire(ctx, k); err != nil {
		return nil, err
	}
	metrics.RecordQuotaWait(float64(time.Since(start).Microseconds()) / 1000)

	used := g.counter.CountFor(participantID, taskID)
	if used >= g.limit {
		g.release(k)
		return nil, &model.QuotaExceededError{
			ParticipantID: participantID,
			TaskID:        taskID,
			Limit:         g.limit,
			Used:          used,
		}
	}
	return &Ticket{guard: g, key: k, used: used}, nil
}

// Keys returns the number of keys currently held or waited on.
func (g *Guard) Keys() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.locks)
}

func (g *Guard) acquire(ctx context.Context, k key) error {
	g.mu.Lock()
	l, ok := g.locks[k]
	if !ok {
		l = &keyLock{sem: make(chan struct{}, 1)}
		g.locks[k] = l
	}
	l.refs++
	metrics.UpdateQuotaKeys(len(g.locks))
	g.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		g.drop(k, l)
		return ctx.Err()
	}
}

func (g *Guard) release(k key) {
	g.mu.Lock()
	l := g.locks[k]
	g.mu.Unlock()
	<-l.sem
	g.drop(k, l)
}

func (g *Guard) drop(k key, l *keyLock) {
	g.mu.Lock()
	defer g.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(g.locks, k)
	}
	metrics.UpdateQuotaKeys(len(g.locks))
}

// Ticket is an admission for a single submission.
type Ticket struct {
	guard *Guard
	key   key
	used  int
	once  sync.Once
}

// ParticipantID returns the admitted participant.
func (t *Ticket) ParticipantID() string { return t.key.participant }

// TaskID returns the admitted task.
func (t *Ticket) TaskID() int { return t.key.task }

// Used returns the count observed at admission.
func (t *Ticket) Used() int { return t.used }

// Remaining returns how many submissions are left once this one is stored.
func (t *Ticket) Remaining() int { return t.guard.limit - t.used - 1 }

// Commit ends the critical section after the submission was appended.
func (t *Ticket) Commit() { t.finish() }

// Release ends the critical section without consuming quota. It is a no-op
// after Commit, so it can be deferred unconditionally.
func (t *Ticket) Release() { t.finish() }

func (t *Ticket) finish() {
	t.once.Do(func() { t.guard.release(t.key) })
}
