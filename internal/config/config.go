// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and PODIUM_ env vars over the defaults.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Journal drivers.
const (
	JournalMemory   = "memory"
	JournalSQLite   = "sqlite"
	JournalPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// SubmissionLimit is the number of accepted submissions per participant and task.
	SubmissionLimit int `koanf:"submission_limit"`

	// TaskCount bounds task ids to 0..TaskCount-1.
	TaskCount int `koanf:"task_count"`

	// RankingLimit truncates ranking output.
	RankingLimit int `koanf:"ranking_limit"`

	// ByTaskLimit truncates the per-task lists of GET /leaderboard.
	ByTaskLimit int `koanf:"by_task_limit"`

	// FileExtension is the only accepted upload extension.
	FileExtension string `koanf:"file_extension"`

	// MaxUploadBytes caps the multipart body of an upload.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// JournalDriver selects the durable log: memory, sqlite or postgres.
	JournalDriver string `koanf:"journal_driver"`
	JournalDSN    string `koanf:"journal_dsn"`

	// ArtifactDir stores uploaded files on disk when set; otherwise they are kept in memory.
	ArtifactDir string `koanf:"artifact_dir"`

	// GraderURL points at an external grading service. Empty uses the simulated grader.
	GraderURL       string `koanf:"grader_url"`
	GraderTimeoutMS int    `koanf:"grader_timeout_ms"`

	// GradingLatencyMinMS and GradingLatencyMaxMS bound the simulated grader latency.
	GradingLatencyMinMS int `koanf:"grading_latency_min_ms"`
	GradingLatencyMaxMS int `koanf:"grading_latency_max_ms"`

	// AutoEvaluate enqueues every accepted upload for evaluation.
	AutoEvaluate bool `koanf:"auto_evaluate"`

	// WorkerCount sets the number of evaluation workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory evaluation queue.
	QueueSize int `koanf:"queue_size"`

	// PendingTTLSeconds fails submissions left pending longer than this. Zero disables expiry.
	PendingTTLSeconds int `koanf:"pending_ttl_seconds"`

	// WriteToken, when set, is required as a bearer token on write endpoints.
	WriteToken string `koanf:"write_token"`

	// IdempotencyCacheSize bounds the Idempotency-Key cache.
	IdempotencyCacheSize int `koanf:"idempotency_cache_size"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		SubmissionLimit:      3,
		TaskCount:            4,
		RankingLimit:         100,
		ByTaskLimit:          20,
		FileExtension:        ".py",
		MaxUploadBytes:       1 << 20,
		JournalDriver:        JournalMemory,
		GraderTimeoutMS:      10_000,
		GradingLatencyMinMS:  80,
		GradingLatencyMaxMS:  150,
		AutoEvaluate:         false,
		WorkerCount:          runtime.NumCPU(),
		QueueSize:            1_000,
		PendingTTLSeconds:    0,
		IdempotencyCacheSize: 10_000,
	}
}

// GraderTimeout returns the grader timeout as a duration.
func (c *Config) GraderTimeout() time.Duration {
	return time.Duration(c.GraderTimeoutMS) * time.Millisecond
}

// PendingTTL returns the pending expiry as a duration.
func (c *Config) PendingTTL() time.Duration {
	return time.Duration(c.PendingTTLSeconds) * time.Second
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.SubmissionLimit <= 0:
		return fmt.Errorf("%w: submission_limit must be positive", ErrInvalidConfig)
	case c.TaskCount <= 0:
		return fmt.Errorf("%w: task_count must be positive", ErrInvalidConfig)
	case c.RankingLimit <= 0:
		return fmt.Errorf("%w: ranking_limit must be positive", ErrInvalidConfig)
	case c.ByTaskLimit <= 0:
		return fmt.Errorf("%w: by_task_limit must be positive", ErrInvalidConfig)
	case !strings.HasPrefix(c.FileExtension, "."):
		return fmt.Errorf("%w: file_extension must start with a dot", ErrInvalidConfig)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalidConfig)
	case c.GradingLatencyMinMS < 0 || c.GradingLatencyMaxMS < c.GradingLatencyMinMS:
		return fmt.Errorf("%w: grading latency range is invalid", ErrInvalidConfig)
	case c.PendingTTLSeconds < 0:
		return fmt.Errorf("%w: pending_ttl_seconds must not be negative", ErrInvalidConfig)
	case c.AutoEvaluate && (c.WorkerCount <= 0 || c.QueueSize <= 0):
		return fmt.Errorf("%w: auto_evaluate needs worker_count and queue_size", ErrInvalidConfig)
	}

	switch c.JournalDriver {
	case JournalMemory:
	case JournalSQLite, JournalPostgres:
		if c.JournalDSN == "" {
			return fmt.Errorf("%w: journal_dsn is required for %s", ErrInvalidConfig, c.JournalDriver)
		}
		// Replayed pending submissions need their uploads after a restart.
		if c.ArtifactDir == "" {
			return fmt.Errorf("%w: artifact_dir is required for %s", ErrInvalidConfig, c.JournalDriver)
		}
	default:
		return fmt.Errorf("%w: unknown journal_driver %q", ErrInvalidConfig, c.JournalDriver)
	}
	return nil
}
