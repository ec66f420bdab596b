// Package types contains common types used across the application
package types

import "time"

// RankedEntry is one row of a leaderboard view.
type RankedEntry struct {
	Position           int       `json:"position"`
	SubmissionID       string    `json:"submission_id"`
	TaskID             int       `json:"task_id"`
	ParticipantID      string    `json:"participant_id"`
	Score              float64   `json:"score"`
	Timestamp          time.Time `json:"timestamp"`
	SubmissionsForTask int       `json:"submissions_for_task"`
	SubmissionsTotal   int       `json:"submissions_total"`
}

// SubmissionView is the wire shape of a stored submission.
type SubmissionView struct {
	SubmissionID  string    `json:"submission_id"`
	ParticipantID string    `json:"participant_id"`
	TaskID        int       `json:"task_id"`
	Filename      string    `json:"filename,omitempty"`
	Score         float64   `json:"score"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
}

// EvaluationResult is returned by the evaluate phase.
type EvaluationResult struct {
	SubmissionID string  `json:"submission_id"`
	TaskID       int     `json:"task_id"`
	Score        float64 `json:"score"`
	Status       string  `json:"status"`
	Details      string  `json:"details,omitempty"`
}

// UploadResult is returned by the upload phase.
type UploadResult struct {
	SubmissionID  string `json:"submission_id"`
	ParticipantID string `json:"participant_id"`
	TaskID        int    `json:"task_id"`
	Status        string `json:"status"`
	Remaining     int    `json:"remaining_submissions"`
	Replayed      bool   `json:"replayed,omitempty"`
	Message       string `json:"message"`
}

// Leaderboard is the full history plus the best entries per task.
type Leaderboard struct {
	Submissions []SubmissionView      `json:"submissions"`
	ByTask      map[int][]RankedEntry `json:"by_task"`
}

// Rankings is one ranked view.
type Rankings struct {
	Task    string        `json:"task"`
	Entries []RankedEntry `json:"entries"`
}
