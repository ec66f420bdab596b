// Package grading defines the contract with the external grading collaborator
// and the clients that talk to it.
package grading

import (
	"context"
	"math"
	"strings"
)

// Grader statuses as reported on the wire.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Request is one uploaded file to grade.
type Request struct {
	SubmissionID string
	TaskID       int
	Filename     string
	Content      []byte
}

// Result is the grader's verdict.
type Result struct {
	Score   float64 `json:"score"`
	Status  string  `json:"status"`
	Details string  `json:"details,omitempty"`
}

// Succeeded reports whether the result carries a usable score.
func (r Result) Succeeded() bool {
	switch strings.ToLower(r.Status) {
	case StatusSuccess, "scored", "ok":
		return !math.IsNaN(r.Score) && !math.IsInf(r.Score, 0)
	}
	return false
}

// Grader scores a submission, honoring ctx for cancellation.
type Grader interface {
	Grade(ctx context.Context, req Request) (Result, error)
}

// normalize clamps a score to [0, 1] and rounds it to four decimals.
func normalize(score float64) float64 {
	score = math.Max(0, math.Min(1, score))
	return math.Round(score*10_000) / 10_000
}

// metricName names the metric reported for a task.
func metricName(taskID int) string {
	switch taskID {
	case 0:
		return "preprocessing checks"
	case 1:
		return "R2 score"
	case 2:
		return "accuracy"
	case 3:
		return "F1 macro"
	default:
		return "score"
	}
}
