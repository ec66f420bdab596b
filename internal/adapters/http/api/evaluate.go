package api

import (
	"errors"
	"net/http"

	"github.com/okian/podium/internal/domain/types"
)

// EvaluateHandler handles the evaluate phase.
type EvaluateHandler struct {
	deps EvaluateDependencies
}

// NewEvaluateHandler creates a new evaluate handler.
func NewEvaluateHandler(deps EvaluateDependencies) *EvaluateHandler {
	return &EvaluateHandler{deps: deps}
}

// HandleEvaluate handles POST /evaluate/{submission_id}?task_id=N requests.
// Without task_id the stored task is used.
func (h *EvaluateHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	const op = "api.evaluate"

	taskID := -1
	if raw := r.URL.Query().Get("task_id"); raw != "" {
		id, err := parseTaskID(raw)
		if err != nil || id < 0 {
			writeError(w, WrapKind(op, ErrBadRequest, errors.New("task_id must be a non-negative integer")))
			return
		}
		taskID = id
	}

	sub, err := h.deps.Evaluate(r.Context(), r.PathValue("submission_id"), taskID)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.EvaluationResult{
		SubmissionID: sub.ID,
		TaskID:       sub.TaskID,
		Score:        sub.Score,
		Status:       string(sub.Status),
		Details:      sub.Details,
	})
}
