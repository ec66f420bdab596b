package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/podium/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.SubmissionLimit, convey.ShouldEqual, 3)
			convey.So(cfg.TaskCount, convey.ShouldEqual, 4)
			convey.So(cfg.RankingLimit, convey.ShouldEqual, 100)
			convey.So(cfg.ByTaskLimit, convey.ShouldEqual, 20)
			convey.So(cfg.FileExtension, convey.ShouldEqual, ".py")
			convey.So(cfg.JournalDriver, convey.ShouldEqual, config.JournalMemory)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.PendingTTLSeconds, convey.ShouldEqual, 0)
			convey.So(cfg.AutoEvaluate, convey.ShouldBeFalse)
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then durations derive from the millisecond and second fields", func() {
			cfg.GraderTimeoutMS = 250
			cfg.PendingTTLSeconds = 30
			convey.So(cfg.GraderTimeout(), convey.ShouldEqual, 250*time.Millisecond)
			convey.So(cfg.PendingTTL(), convey.ShouldEqual, 30*time.Second)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty addr", func(c *config.Config) { c.Addr = "" }},
		{"zero limit", func(c *config.Config) { c.SubmissionLimit = 0 }},
		{"zero tasks", func(c *config.Config) { c.TaskCount = 0 }},
		{"zero ranking limit", func(c *config.Config) { c.RankingLimit = 0 }},
		{"extension without dot", func(c *config.Config) { c.FileExtension = "py" }},
		{"inverted latency", func(c *config.Config) { c.GradingLatencyMinMS, c.GradingLatencyMaxMS = 10, 5 }},
		{"negative ttl", func(c *config.Config) { c.PendingTTLSeconds = -1 }},
		{"auto evaluate without workers", func(c *config.Config) { c.AutoEvaluate, c.WorkerCount = true, 0 }},
		{"sqlite without dsn", func(c *config.Config) { c.JournalDriver = config.JournalSQLite }},
		{"unknown driver", func(c *config.Config) { c.JournalDriver = "mongo" }},
		{"sqlite without artifact dir", func(c *config.Config) {
			c.JournalDriver, c.JournalDSN, c.ArtifactDir = config.JournalSQLite, "podium.db", ""
		}},
		{"postgres without artifact dir", func(c *config.Config) {
			c.JournalDriver, c.JournalDSN, c.ArtifactDir = config.JournalPostgres, "postgres://localhost/podium", ""
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.New()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, config.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
