// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/ranking"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/logger"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	UploadDependencies
	EvaluateDependencies
	LeaderboardDependencies
	RankingsDependencies
	SubmissionDependencies
}

// UploadDependencies runs the submit phase.
type UploadDependencies interface {
	Submit(ctx context.Context, req service.SubmitRequest) (service.SubmitResult, error)
}

// EvaluateDependencies runs the evaluate phase.
type EvaluateDependencies interface {
	Evaluate(ctx context.Context, submissionID string, taskID int) (model.Submission, error)
}

// LeaderboardDependencies returns the full submission history.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context) (types.Leaderboard, error)
}

// RankingsDependencies returns ranked views.
type RankingsDependencies interface {
	Rank(ctx context.Context, f ranking.Filter) ([]types.RankedEntry, error)
}

// SubmissionDependencies looks up single submissions.
type SubmissionDependencies interface {
	GetSubmission(ctx context.Context, submissionID string) (types.SubmissionView, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	uploadHandler      *UploadHandler
	evaluateHandler    *EvaluateHandler
	leaderboardHandler *LeaderboardHandler
	rankingsHandler    *RankingsHandler
	submissionHandler  *SubmissionHandler

	writeToken     string
	maxUploadBytes int64
	logger         logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{maxUploadBytes: defaultMaxUploadBytes}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.uploadHandler = NewUploadHandler(deps, s.maxUploadBytes, s.logger)
	s.evaluateHandler = NewEvaluateHandler(deps)
	s.leaderboardHandler = NewLeaderboardHandler(deps)
	s.rankingsHandler = NewRankingsHandler(deps)
	s.submissionHandler = NewSubmissionHandler(deps)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	write := func(h http.HandlerFunc) http.HandlerFunc { return RequireToken(s.writeToken, h) }

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /upload/{task_id}", MetricsMiddleware(CORS(write(s.uploadHandler.HandleUpload)), "upload"))
	mux.HandleFunc("POST /evaluate/{submission_id}", MetricsMiddleware(CORS(write(s.evaluateHandler.HandleEvaluate)), "evaluate"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(CORS(s.leaderboardHandler.HandleGetLeaderboard), "leaderboard"))
	mux.HandleFunc("GET /rankings", MetricsMiddleware(CORS(s.rankingsHandler.HandleGetRankings), "rankings"))
	mux.HandleFunc("GET /submissions/{submission_id}", MetricsMiddleware(CORS(s.submissionHandler.HandleGetSubmission), "submissions"))

	preflight := CORS(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	mux.HandleFunc("OPTIONS /upload/{task_id}", preflight)
	mux.HandleFunc("OPTIONS /evaluate/{submission_id}", preflight)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code and the shared error body.
func writeError(w http.ResponseWriter, err error) {
	var quotaErr *model.QuotaExceededError
	switch {
	case errors.As(err, &quotaErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "submission_limit",
			Message: quotaErr.Error(),
			Detail:  "submission limit exceeded",
			Limit:   quotaErr.Limit,
		})
	case errors.Is(err, model.ErrQuotaExceeded):
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "submission_limit", Message: message(err)})
	case errors.Is(err, ErrPayloadTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Code: "payload_too_large", Message: message(err)})
	case errors.Is(err, ErrBadRequest), errors.Is(err, model.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "bad_request", Message: message(err)})
	case errors.Is(err, ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Code: "unauthorized", Message: message(err)})
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Code: "not_found", Message: message(err)})
	case errors.Is(err, model.ErrAlreadyScored):
		writeJSON(w, http.StatusConflict, errorResponse{Code: "already_scored", Message: message(err)})
	case errors.Is(err, service.ErrNotStarted):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Code: "unavailable", Message: message(err)})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: "internal_error", Message: http.StatusText(http.StatusInternalServerError)})
	}
}
