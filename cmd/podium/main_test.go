package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/okian/podium/internal/config"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func testConfig() *config.Config {
	cfg := config.New()
	cfg.GradingLatencyMinMS = 0
	cfg.GradingLatencyMaxMS = 0
	return cfg
}

func postFile(t *testing.T, url, participant, filename, content string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("participant_id", participant)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = fw.Write([]byte(content))
	_ = mw.Close()

	resp, err := http.Post(url, mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func readJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given the assembled HTTP handler", t, func() {
		ctx := context.Background()
		cfg := testConfig()
		svc := newService(cfg)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		srv := httptest.NewServer(newHandler(ctx, cfg, svc))
		convey.Reset(func() {
			srv.Close()
			svc.Stop()
		})

		convey.Convey("When bob uploads and evaluates three files for task 2", func() {
			var scores []float64
			for i := 0; i < 3; i++ {
				resp := postFile(t, srv.URL+"/upload/2", "bob", "bob.py", fmt.Sprintf("print(%d)\n", i))
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusCreated)
				var up types.UploadResult
				readJSON(t, resp, &up)

				resp, err := http.Post(srv.URL+"/evaluate/"+up.SubmissionID+"?task_id=2", "", nil)
				convey.So(err, convey.ShouldBeNil)
				var ev types.EvaluationResult
				readJSON(t, resp, &ev)
				convey.So(ev.Status, convey.ShouldEqual, "scored")
				scores = append(scores, ev.Score)
			}

			convey.Convey("Then a fourth upload should hit the submission limit", func() {
				resp := postFile(t, srv.URL+"/upload/2", "bob", "bob.py", "print(4)\n")
				defer resp.Body.Close()
				raw, _ := io.ReadAll(resp.Body)
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusBadRequest)
				convey.So(string(raw), convey.ShouldContainSubstring, "submission limit")
			})

			convey.Convey("And the task ranking should list bob's scores in descending order", func() {
				resp, err := http.Get(srv.URL + "/rankings?task=2")
				convey.So(err, convey.ShouldBeNil)
				var rankings types.Rankings
				readJSON(t, resp, &rankings)

				sort.Sort(sort.Reverse(sort.Float64Slice(scores)))
				convey.So(len(rankings.Entries), convey.ShouldEqual, 3)
				for i, e := range rankings.Entries {
					convey.So(e.Score, convey.ShouldEqual, scores[i])
					convey.So(e.ParticipantID, convey.ShouldEqual, "bob")
					convey.So(e.SubmissionsForTask, convey.ShouldEqual, 3)
				}
			})

			convey.Convey("And the leaderboard should carry the full history", func() {
				resp, err := http.Get(srv.URL + "/leaderboard")
				convey.So(err, convey.ShouldBeNil)
				var board types.Leaderboard
				readJSON(t, resp, &board)
				convey.So(len(board.Submissions), convey.ShouldEqual, 3)
				convey.So(len(board.ByTask[2]), convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When the docs and metrics are requested", func() {
			for _, path := range []string{"/openapi.yaml", "/api-docs/index.html", "/healthz", "/stats"} {
				resp, err := http.Get(srv.URL + path)
				convey.So(err, convey.ShouldBeNil)
				_ = resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			}
		})
	})
}

func TestMainConfiguration(t *testing.T) {
	convey.Convey("Given environment configuration", t, func() {
		_ = os.Setenv("PODIUM_ADDR", ":8088")
		_ = os.Setenv("PODIUM_SUBMISSION_LIMIT", "5")
		convey.Reset(func() {
			_ = os.Unsetenv("PODIUM_ADDR")
			_ = os.Unsetenv("PODIUM_SUBMISSION_LIMIT")
		})

		convey.Convey("Then the service should pick it up", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8088")
			convey.So(newService(cfg).Limit(), convey.ShouldEqual, 5)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a running server", t, func() {
		cfg := testConfig()
		cfg.Addr = "127.0.0.1:0"
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- run(ctx, cfg) }()

		convey.Convey("When the context is cancelled", func() {
			time.Sleep(50 * time.Millisecond)
			cancel()

			convey.Convey("Then run should return cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					convey.So("run did not return", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then it should stop with its context", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})
	})
}
