package api

import (
	"net/http"
	"strconv"

	"github.com/okian/podium/internal/domain/ranking"
	"github.com/okian/podium/internal/domain/types"
)

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /leaderboard requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	board, err := h.deps.Leaderboard(r.Context())
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	if board.Submissions == nil {
		board.Submissions = []types.SubmissionView{}
	}
	writeJSON(w, http.StatusOK, board)
}

// RankingsHandler handles ranked views.
type RankingsHandler struct {
	deps RankingsDependencies
}

// NewRankingsHandler creates a new rankings handler.
func NewRankingsHandler(deps RankingsDependencies) *RankingsHandler {
	return &RankingsHandler{deps: deps}
}

// HandleGetRankings handles GET /rankings?task=all|<id> requests.
func (h *RankingsHandler) HandleGetRankings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rankings"
	f, err := ranking.ParseFilter(r.URL.Query().Get("task"))
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	entries, err := h.deps.Rank(r.Context(), f)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	if entries == nil {
		entries = []types.RankedEntry{}
	}
	writeJSON(w, http.StatusOK, types.Rankings{Task: f.String(), Entries: entries})
}

// SubmissionHandler serves single submissions.
type SubmissionHandler struct {
	deps SubmissionDependencies
}

// NewSubmissionHandler creates a new submission handler.
func NewSubmissionHandler(deps SubmissionDependencies) *SubmissionHandler {
	return &SubmissionHandler{deps: deps}
}

// HandleGetSubmission handles GET /submissions/{submission_id} requests.
func (h *SubmissionHandler) HandleGetSubmission(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_submission"
	view, err := h.deps.GetSubmission(r.Context(), r.PathValue("submission_id"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func parseTaskID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ErrBadRequest
	}
	return id, nil
}
