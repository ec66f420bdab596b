package loadtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/podium/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Run uploads the planned attempts concurrently, evaluates what was
// accepted, then verifies the resulting ranking.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("loadtest")
	stats := &Stats{StartTime: time.Now()}
	client := NewClient(cfg.BaseURL, cfg.WriteToken, cfg.Timeout)

	log.Info(ctx, "starting podium load test",
		logger.String("base_url", cfg.BaseURL),
		logger.Int("participants", cfg.Participants),
		logger.Int("tasks", cfg.Tasks),
		logger.Int("attempts", cfg.Attempts),
		logger.Int("workers", cfg.Workers),
	)

	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	attempts := Plan(cfg)
	stats.Attempts = len(attempts)

	accepted, err := upload(ctx, cfg, client, attempts, stats)
	if err != nil {
		return stats, fmt.Errorf("upload phase failed: %w", err)
	}
	if err := evaluate(ctx, cfg, client, accepted, stats); err != nil {
		return stats, fmt.Errorf("evaluate phase failed: %w", err)
	}

	rankings, err := client.Rankings(ctx, "all")
	if err != nil {
		return stats, fmt.Errorf("ranking retrieval failed: %w", err)
	}
	stats.Ranked = len(rankings.Entries)

	if err := Verify(accepted, rankings.Entries, cfg.Limit); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}
	if want := cfg.Participants * cfg.Tasks * min(cfg.Attempts, cfg.Limit); stats.Accepted != want {
		return stats, fmt.Errorf("result verification failed: accepted %d uploads, want %d", stats.Accepted, want)
	}

	stats.Duration = time.Since(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

func upload(ctx context.Context, cfg *Config, client *Client, attempts []Attempt, stats *Stats) ([]Accepted, error) {
	var (
		mu       sync.Mutex
		accepted []Accepted
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))

	for _, a := range attempts {
		g.Go(func() error {
			res, err := client.Upload(gctx, a)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				stats.Accepted++
				accepted = append(accepted, Accepted{SubmissionID: res.SubmissionID, ParticipantID: a.ParticipantID, TaskID: a.TaskID})
			case errors.Is(err, ErrLimited):
				stats.Rejected++
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				stats.Failed++
				if cfg.Verbose {
					logger.Get().Warn(gctx, "upload failed", logger.String("participant_id", a.ParticipantID), logger.Error(err))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if stats.Failed > 0 {
		return accepted, fmt.Errorf("%d uploads failed", stats.Failed)
	}
	return accepted, nil
}

func evaluate(ctx context.Context, cfg *Config, client *Client, accepted []Accepted, stats *Stats) error {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))

	for _, a := range accepted {
		g.Go(func() error {
			if _, err := client.Evaluate(gctx, a.SubmissionID, a.TaskID); err != nil {
				return fmt.Errorf("evaluate %s: %w", a.SubmissionID, err)
			}
			mu.Lock()
			stats.Evaluated++
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Attempts+stats.Evaluated) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("attempts", stats.Attempts),
		logger.Int("accepted", stats.Accepted),
		logger.Int("rejected", stats.Rejected),
		logger.Int("evaluated", stats.Evaluated),
		logger.Int("ranked", stats.Ranked),
		logger.Duration("duration", stats.Duration),
		logger.Float64("requests_per_second", perSecond),
	)
}
