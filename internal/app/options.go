package service

import (
	"time"

	"github.com/okian/podium/internal/adapters/artifacts"
	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/grading"
	"github.com/okian/podium/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSubmissionLimit sets the accepted submissions per participant and task.
func WithSubmissionLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.submissionLimit = limit
		}
	}
}

// WithTaskCount bounds task ids to 0..count-1.
func WithTaskCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.taskCount = count
		}
	}
}

// WithRankingLimit sets how many entries a ranking keeps.
func WithRankingLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.rankingLimit = limit
		}
	}
}

// WithByTaskLimit sets how many entries each per-task list of the leaderboard keeps.
func WithByTaskLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.byTaskLimit = limit
		}
	}
}

// WithFileExtension sets the only accepted upload extension.
func WithFileExtension(ext string) Option {
	return func(s *Service) {
		if ext != "" {
			s.fileExtension = ext
		}
	}
}

// WithWorkerCount sets the number of evaluation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the evaluation queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithAutoEvaluate queues every accepted upload for background evaluation.
func WithAutoEvaluate(enabled bool) Option {
	return func(s *Service) {
		s.autoEvaluate = enabled
	}
}

// WithIdempotencyCacheSize bounds the Idempotency-Key cache.
func WithIdempotencyCacheSize(size int) Option {
	return func(s *Service) {
		s.idempotencySize = size
	}
}

// WithPendingTTL fails submissions left pending longer than ttl. Zero disables expiry.
func WithPendingTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.pendingTTL = ttl
		}
	}
}

// WithJournal selects the durable log opened on Start.
func WithJournal(driver, dsn string) Option {
	return func(s *Service) {
		s.journalDriver = driver
		s.journalDSN = dsn
	}
}

// WithArtifactDir stores uploaded files under dir instead of in memory.
func WithArtifactDir(dir string) Option {
	return func(s *Service) {
		s.artifactDir = dir
	}
}

// WithArtifacts sets the sink for uploaded files.
func WithArtifacts(sink artifacts.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.artifacts = sink
		}
	}
}

// WithGraderURL grades through an external service instead of the simulation.
func WithGraderURL(url string, timeout time.Duration) Option {
	return func(s *Service) {
		s.graderURL = url
		s.graderTimeout = timeout
	}
}

// WithGradingLatencyRange sets the simulated grader latency range.
func WithGradingLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *Service) {
		if minLatency >= 0 && maxLatency >= minLatency {
			s.gradingMinLatency = minLatency
			s.gradingMaxLatency = maxLatency
		}
	}
}

// WithGrader sets the grading collaborator.
func WithGrader(g grading.Grader) Option {
	return func(s *Service) {
		if g != nil {
			s.grader = g
		}
	}
}

// WithStore sets the submission store instead of building one on Start.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
