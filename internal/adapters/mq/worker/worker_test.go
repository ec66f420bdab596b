package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/podium/internal/adapters/mq/queue"
	worker "github.com/okian/podium/internal/adapters/mq/worker"
	model "github.com/okian/podium/internal/domain/model"
	logging "github.com/okian/podium/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	jobs chan queue.Job
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 10)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Job { return mq.jobs }

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.jobs) })
	return nil
}

type mockEvaluator struct {
	mu        sync.Mutex
	evaluated map[string]int
	errs      map[string]error
}

func newMockEvaluator() *mockEvaluator {
	return &mockEvaluator{evaluated: map[string]int{}, errs: map[string]error{}}
}

func (m *mockEvaluator) Evaluate(_ context.Context, id string, taskID int) (model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errs[id]; ok {
		return model.Submission{}, err
	}
	m.evaluated[id] = taskID
	return model.Submission{ID: id, TaskID: taskID, Status: model.StatusScored, Score: 0.5}, nil
}

func (m *mockEvaluator) seen(id string) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.evaluated[id]
	return task, ok
}

func (m *mockEvaluator) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.evaluated)
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		eval := newMockEvaluator()

		convey.Convey("When creating a worker with custom options", func() {
			w := worker.NewInMemoryWorker(q, eval, worker.WithName("test-worker"), worker.WithLogger(logging.Named("custom")))

			convey.Convey("Then it should be created successfully", func() {
				convey.So(w, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When running a worker", func() {
			w := worker.NewInMemoryWorker(q, eval)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			convey.Convey("And a job is queued", func() {
				q.jobs <- queue.Job{SubmissionID: "bob_1", TaskID: 2, EnqueuedAt: time.Now()}

				convey.Convey("Then the evaluator is called with its task", func() {
					convey.So(waitFor(func() bool { _, ok := eval.seen("bob_1"); return ok }), convey.ShouldBeTrue)
					task, _ := eval.seen("bob_1")
					convey.So(task, convey.ShouldEqual, 2)
				})
			})

			convey.Convey("And an evaluation fails", func() {
				eval.errs["bad_1"] = errors.New("grader down")
				q.jobs <- queue.Job{SubmissionID: "bad_1"}
				q.jobs <- queue.Job{SubmissionID: "good_1"}

				convey.Convey("Then the worker keeps going", func() {
					convey.So(waitFor(func() bool { _, ok := eval.seen("good_1"); return ok }), convey.ShouldBeTrue)
				})
			})

			convey.Convey("And it is shut down", func() {
				sctx, scancel := context.WithTimeout(context.Background(), time.Second)
				defer scancel()

				convey.Convey("Then it stops cleanly", func() {
					convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
				})
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of workers", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		eval := newMockEvaluator()
		pool := worker.NewPool(3, q, eval)
		convey.So(pool.Size(), convey.ShouldEqual, 3)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.Convey("When jobs are queued and the pool is shut down", func() {
			for _, id := range []string{"a_1", "b_1", "c_1", "d_1"} {
				q.jobs <- queue.Job{SubmissionID: id}
			}
			err := pool.Shutdown(context.Background())

			convey.Convey("Then queued jobs are drained first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(eval.count(), convey.ShouldEqual, 4)
			})
		})
	})

	convey.Convey("A non-positive count still starts workers", t, func() {
		_ = logging.Init()
		pool := worker.NewPool(0, newMockQueue(), newMockEvaluator())
		convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
	})
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
