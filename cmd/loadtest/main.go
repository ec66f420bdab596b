package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/podium/internal/loadtest"
	"github.com/okian/podium/pkg/logger"
)

// Default configuration constants.
const (
	defaultParticipants = 50
	defaultTasks        = 4
	defaultAttempts     = 5
	defaultLimit        = 3
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultTestTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:9080", "Base URL of the service")
		participants = flag.Int("participants", defaultParticipants, "Number of simulated participants")
		tasks        = flag.Int("tasks", defaultTasks, "Tasks each participant submits to")
		attempts     = flag.Int("attempts", defaultAttempts, "Upload attempts per participant and task")
		limit        = flag.Int("limit", defaultLimit, "Submission limit the server enforces")
		workers      = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent requests in flight")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		token        = flag.String("token", "", "Bearer token for upload and evaluate")
		verbose      = flag.Bool("verbose", false, "Log every failed request")
		help         = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg := &loadtest.Config{
		BaseURL:      *baseURL,
		Participants: *participants,
		Tasks:        *tasks,
		Attempts:     *attempts,
		Limit:        *limit,
		Workers:      *workers,
		Timeout:      *timeout,
		WriteToken:   *token,
		Verbose:      *verbose,
	}
	if _, err := loadtest.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "load test failed", logger.Error(err))
		os.Exit(1)
	}
}
