package grading

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strconv"
	"time"
)

// Default simulated latency.
const (
	defaultMinLatency = 80 * time.Millisecond
	defaultMaxLatency = 150 * time.Millisecond
)

// SimulatedOption applies a configuration option to the Simulated grader.
type SimulatedOption func(*Simulated)

// WithLatencyRange sets the simulated latency range. A zero range disables the delay.
func WithLatencyRange(minLatency, maxLatency time.Duration) SimulatedOption {
	return func(s *Simulated) {
		if minLatency >= 0 && maxLatency >= minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// Simulated stands in for the external grader. The score is a deterministic
// function of the task and the file content, so resubmitting the same file
// scores the same.
type Simulated struct {
	minLatency time.Duration
	maxLatency time.Duration
}

// NewSimulated creates a simulated grader.
func NewSimulated(opts ...SimulatedOption) *Simulated {
	s := &Simulated{minLatency: defaultMinLatency, maxLatency: defaultMaxLatency}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Grade waits for the simulated latency and scores the content.
func (s *Simulated) Grade(ctx context.Context, req Request) (Result, error) {
	if err := s.wait(ctx); err != nil {
		return Result{}, err
	}
	if len(req.Content) == 0 {
		return Result{Status: StatusError, Details: ErrEmptyFile.Error()}, nil
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(strconv.Itoa(req.TaskID)))
	_, _ = h.Write(req.Content)
	score := float64(h.Sum64()%1_000_001) / 1_000_000

	return Result{
		Score:   normalize(score),
		Status:  StatusSuccess,
		Details: metricName(req.TaskID),
	}, nil
}

func (s *Simulated) wait(ctx context.Context) error {
	latency := s.minLatency
	if span := s.maxLatency - s.minLatency; span > 0 {
		latency += time.Duration(rand.Int64N(int64(span))) //nolint:gosec // latency jitter only
	}
	if latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
