// Package service provides the intake and ranking service behind the HTTP API.
//
// Submit and RecordResult are the only writers. Submit runs the quota check
// and the store append inside one per-(participant, task) critical section;
// every read is served from an immutable store snapshot.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/podium/internal/adapters/artifacts"
	"github.com/okian/podium/internal/adapters/journal"
	evalqueue "github.com/okian/podium/internal/adapters/mq/queue"
	workerpool "github.com/okian/podium/internal/adapters/mq/worker"
	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/dedupe"
	"github.com/okian/podium/internal/domain/grading"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/quota"
	"github.com/okian/podium/internal/domain/ranking"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

const (
	minSweepInterval = time.Second
	maxSweepInterval = time.Minute
	expiredDetails   = "evaluation did not complete in time"
)

// SubmitRequest is one uploaded file.
type SubmitRequest struct {
	ParticipantID  string
	TaskID         int
	Filename       string
	Content        []byte
	IdempotencyKey string
}

// SubmitResult describes an accepted (or replayed) upload.
type SubmitResult struct {
	Submission model.Submission
	Remaining  int
	Replayed   bool
}

// Service implements the API dependencies for the leaderboard system.
type Service struct {
	mu sync.Mutex

	// Core components
	store     repository.Store
	guard     *quota.Guard
	engine    *ranking.Engine
	grader    grading.Grader
	artifacts artifacts.Sink
	idem      dedupe.Cache
	evalQueue evalqueue.Queue
	pool      *workerpool.Pool

	// Configuration
	submissionLimit   int
	taskCount         int
	rankingLimit      int
	byTaskLimit       int
	fileExtension     string
	workerCount       int
	queueSize         int
	autoEvaluate      bool
	idempotencySize   int
	pendingTTL        time.Duration
	journalDriver     string
	journalDSN        string
	artifactDir       string
	graderURL         string
	graderTimeout     time.Duration
	gradingMinLatency time.Duration
	gradingMaxLatency time.Duration
	now               func() time.Time

	// State
	ownsStore     bool
	ownsArtifacts bool
	started       atomic.Bool
	stopCh  chan struct{}
	bg      sync.WaitGroup

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		submissionLimit:   quota.DefaultLimit,
		taskCount:         4,
		rankingLimit:      ranking.DefaultLimit,
		byTaskLimit:       20,
		fileExtension:     ".py",
		workerCount:       runtime.NumCPU(),
		queueSize:         1_000,
		idempotencySize:   10_000,
		gradingMinLatency: 80 * time.Millisecond,
		gradingMaxLatency: 150 * time.Millisecond,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the store and its collaborators and starts background work.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started.Load() {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting leaderboard service...")

	// Stores built here were closed by Stop and are reopened.
	if s.store == nil || s.ownsStore {
		store, err := s.openStore(ctx)
		if err != nil {
			return err
		}
		s.store = store
		s.ownsStore = true
	}
	if s.artifacts == nil || s.ownsArtifacts {
		if s.artifactDir != "" {
			dir, err := artifacts.NewDir(s.artifactDir)
			if err != nil {
				return err
			}
			s.artifacts = dir
		} else {
			s.artifacts = artifacts.NewMemory()
		}
		s.ownsArtifacts = true
	}
	if s.grader == nil {
		if s.graderURL != "" {
			s.grader = grading.NewHTTP(s.graderURL, grading.WithTimeout(s.graderTimeout))
		} else {
			s.grader = grading.NewSimulated(grading.WithLatencyRange(s.gradingMinLatency, s.gradingMaxLatency))
		}
	}

	s.guard = quota.NewGuard(s.store, quota.WithLimit(s.submissionLimit))
	s.engine = ranking.NewEngine(ranking.WithLimit(s.rankingLimit))
	s.idem = dedupe.NewInMemoryCache(dedupe.WithMaxSize(s.idempotencySize))
	s.stopCh = make(chan struct{})

	if s.autoEvaluate {
		s.evalQueue = evalqueue.NewInMemoryQueue(evalqueue.WithCapacity(s.queueSize))
		s.pool = workerpool.NewPool(s.workerCount, s.evalQueue, s)
		s.pool.Start(context.WithoutCancel(ctx))
	}
	if s.pendingTTL > 0 {
		s.bg.Add(1)
		go s.sweepPending(context.WithoutCancel(ctx))
	}

	s.started.Store(true)
	snap := s.store.Snapshot()
	s.logger.Info(ctx, "leaderboard service started",
		logger.Int("submissions", snap.Len()),
		logger.Int("pending", snap.Pending()),
		logger.Int("submission_limit", s.submissionLimit),
		logger.Bool("auto_evaluate", s.autoEvaluate),
		logger.Duration("pending_ttl", s.pendingTTL),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) (*repository.MemoryStore, error) {
	var opts []repository.Option
	if s.journalDriver != "" && s.journalDriver != "memory" {
		j, err := journal.Open(ctx, s.journalDriver, s.journalDSN)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		opts = append(opts, repository.WithJournal(j))
		s.logger.Info(ctx, "using journal", logger.String("driver", s.journalDriver))
	}
	store, err := repository.NewMemoryStore(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Stop drains background evaluations and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started.Load() {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping leaderboard service...")

	close(s.stopCh)
	s.bg.Wait()

	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	}
	// An injected store belongs to the caller.
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			s.logger.Error(ctx, "closing store", logger.Error(err))
		}
	}

	s.started.Store(false)
	s.logger.Info(ctx, "leaderboard service stopped")
}

// Limit returns the configured submission quota.
func (s *Service) Limit() int { return s.submissionLimit }

// Submit admits and stores a new pending submission. A quota rejection is
// returned as *model.QuotaExceededError and leaves no record.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	if !s.started.Load() {
		return SubmitResult{}, ErrNotStarted
	}
	if err := s.validateUpload(req); err != nil {
		metrics.RecordSubmissionRejected("validation")
		return SubmitResult{}, err
	}

	idemKey := ""
	if req.IdempotencyKey != "" {
		idemKey = fmt.Sprintf("%s\x00%d\x00%s", req.ParticipantID, req.TaskID, req.IdempotencyKey)
		if res, ok := s.replay(ctx, idemKey); ok {
			return res, nil
		}
	}

	ticket, err := s.guard.Admit(ctx, req.ParticipantID, req.TaskID)
	if err != nil {
		if errors.Is(err, model.ErrQuotaExceeded) {
			metrics.RecordSubmissionRejected("quota")
			s.logger.Info(ctx, "submission rejected by quota",
				logger.String("participant_id", req.ParticipantID),
				logger.Int("task_id", req.TaskID),
			)
		}
		return SubmitResult{}, err
	}
	defer ticket.Release()

	// A concurrent retry with the same key may have committed while we waited.
	if idemKey != "" {
		if res, ok := s.replay(ctx, idemKey); ok {
			return res, nil
		}
	}

	sub, err := model.NewSubmission(req.ParticipantID, req.TaskID, filepath.Base(req.Filename), s.now())
	if err != nil {
		return SubmitResult{}, err
	}
	if err := s.artifacts.Save(ctx, refOf(sub), req.Content); err != nil {
		metrics.RecordErrorByComponent("service", "artifact_save")
		return SubmitResult{}, fmt.Errorf("store upload: %w", err)
	}
	if _, err := s.store.Append(ctx, sub); err != nil {
		metrics.RecordErrorByComponent("service", "append")
		return SubmitResult{}, err
	}
	ticket.Commit()
	if idemKey != "" {
		s.idem.Record(ctx, idemKey, sub.ID)
	}

	metrics.RecordSubmissionAccepted()
	s.logger.Info(ctx, "submission accepted",
		logger.String("submission_id", sub.ID),
		logger.String("participant_id", sub.ParticipantID),
		logger.Int("task_id", sub.TaskID),
		logger.Int("remaining", ticket.Remaining()),
	)

	if s.autoEvaluate {
		s.enqueue(ctx, sub)
	}
	return SubmitResult{Submission: sub, Remaining: ticket.Remaining()}, nil
}

func (s *Service) replay(ctx context.Context, key string) (SubmitResult, bool) {
	id, ok := s.idem.Lookup(ctx, key)
	if !ok {
		return SubmitResult{}, false
	}
	sub, err := s.store.Get(ctx, id)
	if err != nil {
		return SubmitResult{}, false
	}
	metrics.RecordIdempotentReplay()
	remaining := s.submissionLimit - s.store.CountFor(sub.ParticipantID, sub.TaskID)
	return SubmitResult{Submission: sub, Remaining: max(remaining, 0), Replayed: true}, true
}

func (s *Service) enqueue(ctx context.Context, sub model.Submission) {
	job := evalqueue.Job{SubmissionID: sub.ID, TaskID: sub.TaskID, EnqueuedAt: s.now()}
	if !s.evalQueue.Enqueue(ctx, job) {
		s.logger.Warn(ctx, "submission left pending",
			logger.String("submission_id", sub.ID),
			logger.Error(evalqueue.ErrFull),
		)
	}
}

func (s *Service) validateUpload(req SubmitRequest) error {
	if err := model.ValidateParticipantID(req.ParticipantID); err != nil {
		return err
	}
	if err := s.validateTask(req.TaskID); err != nil {
		return err
	}
	name := filepath.Base(req.Filename)
	if req.Filename == "" || name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("%w: no file uploaded", model.ErrValidation)
	}
	if !strings.EqualFold(filepath.Ext(name), s.fileExtension) {
		return fmt.Errorf("%w: only %s files are allowed", model.ErrValidation, s.fileExtension)
	}
	if len(req.Content) == 0 {
		return fmt.Errorf("%w: uploaded file is empty", model.ErrValidation)
	}
	return nil
}

func (s *Service) validateTask(taskID int) error {
	if taskID < 0 || taskID >= s.taskCount {
		return fmt.Errorf("%w: task %d (tasks are 0-%d)", model.ErrNotFound, taskID, s.taskCount-1)
	}
	return nil
}

// Evaluate grades a pending submission and records the outcome. A negative
// taskID skips the task check. Grader failures are recorded as failed with
// score 0; a cancelled ctx or a missing upload leaves the submission pending.
func (s *Service) Evaluate(ctx context.Context, submissionID string, taskID int) (model.Submission, error) {
	if !s.started.Load() {
		return model.Submission{}, ErrNotStarted
	}
	sub, err := s.store.Get(ctx, submissionID)
	if err != nil {
		return model.Submission{}, err
	}
	if taskID >= 0 && taskID != sub.TaskID {
		return model.Submission{}, fmt.Errorf("%w: submission %s belongs to task %d, not %d", model.ErrValidation, sub.ID, sub.TaskID, taskID)
	}
	if sub.Status.Final() {
		return sub, fmt.Errorf("%w: %s", model.ErrAlreadyScored, sub.ID)
	}

	// A missing file leaves the record pending so it can be re-uploaded or expired.
	content, err := s.artifacts.Open(ctx, refOf(sub))
	if errors.Is(err, artifacts.ErrNotFound) {
		s.logger.Warn(ctx, "submission file missing", logger.String("submission_id", sub.ID), logger.Error(err))
		return sub, fmt.Errorf("%w: submission file not found for %s", model.ErrNotFound, sub.ID)
	}
	if err != nil {
		metrics.RecordErrorByComponent("service", "artifact_open")
		return sub, fmt.Errorf("open upload: %w", err)
	}

	start := time.Now()
	res, err := s.grader.Grade(ctx, grading.Request{
		SubmissionID: sub.ID,
		TaskID:       sub.TaskID,
		Filename:     sub.Filename,
		Content:      content,
	})
	metrics.RecordGradingLatency(float64(time.Since(start).Microseconds()) / 1000)

	switch {
	case err != nil && ctx.Err() != nil:
		return model.Submission{}, err
	case err != nil:
		metrics.RecordGradingError()
		s.logger.Error(ctx, "grading failed", logger.String("submission_id", sub.ID), logger.Error(err))
		return s.RecordResult(ctx, sub.ID, 0, model.StatusFailed, err.Error())
	case !res.Succeeded():
		return s.RecordResult(ctx, sub.ID, 0, model.StatusFailed, res.Details)
	default:
		return s.RecordResult(ctx, sub.ID, res.Score, model.StatusScored, res.Details)
	}
}

// RecordResult stores the evaluation outcome exactly once. It returns
// model.ErrNotFound for unknown ids and model.ErrAlreadyScored on a second call.
func (s *Service) RecordResult(ctx context.Context, submissionID string, score float64, status model.Status, details string) (model.Submission, error) {
	if !s.started.Load() {
		return model.Submission{}, ErrNotStarted
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return model.Submission{}, fmt.Errorf("%w: score must be a finite number", model.ErrValidation)
	}

	sub, err := s.store.RecordResult(ctx, submissionID, repository.Result{
		Score:       score,
		Status:      status,
		Details:     details,
		EvaluatedAt: s.now(),
	})
	if err != nil {
		if errors.Is(err, model.ErrAlreadyScored) {
			metrics.RecordErrorByComponent("service", "already_scored")
		}
		return sub, err
	}

	metrics.RecordEvaluation(string(sub.Status))
	s.logger.Info(ctx, "evaluation recorded",
		logger.String("submission_id", sub.ID),
		logger.String("status", string(sub.Status)),
		logger.Float64("score", sub.Score),
	)
	return sub, nil
}

// Rank returns the ranked view for f over the current snapshot.
func (s *Service) Rank(_ context.Context, f ranking.Filter) ([]types.RankedEntry, error) {
	if !s.started.Load() {
		return nil, ErrNotStarted
	}
	if task, ok := f.Task(); ok {
		if err := s.validateTask(task); err != nil {
			return nil, err
		}
	}
	return s.engine.Rank(s.store.Snapshot(), f), nil
}

// Leaderboard returns every submission plus the best entries of each task,
// both taken from one snapshot.
func (s *Service) Leaderboard(_ context.Context) (types.Leaderboard, error) {
	if !s.started.Load() {
		return types.Leaderboard{}, ErrNotStarted
	}
	snap := s.store.Snapshot()
	all := snap.All()
	views := make([]types.SubmissionView, len(all))
	for i, sub := range all {
		views[i] = viewOf(sub)
	}
	tasks := make([]int, s.taskCount)
	for i := range tasks {
		tasks[i] = i
	}
	return types.Leaderboard{
		Submissions: views,
		ByTask:      s.engine.RankByTask(snap, s.byTaskLimit, tasks...),
	}, nil
}

// GetSubmission returns one submission.
func (s *Service) GetSubmission(ctx context.Context, submissionID string) (types.SubmissionView, error) {
	if !s.started.Load() {
		return types.SubmissionView{}, ErrNotStarted
	}
	sub, err := s.store.Get(ctx, submissionID)
	if err != nil {
		return types.SubmissionView{}, err
	}
	return viewOf(sub), nil
}

// ExpirePending fails every submission pending since before now-ttl and
// returns how many were expired.
func (s *Service) ExpirePending(ctx context.Context, now time.Time) int {
	if s.pendingTTL <= 0 || !s.started.Load() {
		return 0
	}
	cutoff := now.Add(-s.pendingTTL)
	expired := 0
	for _, sub := range s.store.Snapshot().All() {
		if sub.Status != model.StatusPending || !sub.CreatedAt.Before(cutoff) {
			continue
		}
		_, err := s.RecordResult(ctx, sub.ID, 0, model.StatusFailed, expiredDetails)
		switch {
		case err == nil:
			expired++
		case errors.Is(err, model.ErrAlreadyScored):
		default:
			s.logger.Error(ctx, "expiring pending submission", logger.String("submission_id", sub.ID), logger.Error(err))
		}
	}
	if expired > 0 {
		metrics.RecordPendingExpired(expired)
		s.logger.Info(ctx, "expired pending submissions", logger.Int("count", expired))
	}
	return expired
}

func (s *Service) sweepPending(ctx context.Context) {
	defer s.bg.Done()

	interval := min(max(s.pendingTTL/4, minSweepInterval), maxSweepInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.ExpirePending(ctx, s.now())
		}
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	stats := map[string]interface{}{
		"started":          s.started.Load(),
		"submission_limit": s.submissionLimit,
		"task_count":       s.taskCount,
		"ranking_limit":    s.rankingLimit,
		"auto_evaluate":    s.autoEvaluate,
	}
	if !s.started.Load() {
		return stats
	}

	snap := s.store.Snapshot()
	stats["submissions"] = snap.Len()
	stats["pending"] = snap.Pending()
	stats["snapshot_version"] = snap.Version()
	stats["quota_keys"] = s.guard.Keys()
	stats["idempotency_keys"] = s.idem.Size()

	scored, failed := 0, 0
	participants := make(map[string]struct{})
	for _, sub := range snap.All() {
		participants[sub.ParticipantID] = struct{}{}
		switch sub.Status {
		case model.StatusScored:
			scored++
		case model.StatusFailed:
			failed++
		}
	}
	stats["scored"] = scored
	stats["failed"] = failed
	stats["participants"] = len(participants)

	if s.evalQueue != nil {
		stats["queue_length"] = s.evalQueue.Len(context.Background())
		stats["worker_count"] = s.pool.Size()
	}
	return stats
}

func refOf(sub model.Submission) artifacts.Ref {
	return artifacts.Ref{SubmissionID: sub.ID, TaskID: sub.TaskID, Filename: sub.Filename}
}

func viewOf(sub model.Submission) types.SubmissionView {
	return types.SubmissionView{
		SubmissionID:  sub.ID,
		ParticipantID: sub.ParticipantID,
		TaskID:        sub.TaskID,
		Filename:      sub.Filename,
		Score:         sub.Score,
		Status:        string(sub.Status),
		Timestamp:     sub.CreatedAt,
	}
}
