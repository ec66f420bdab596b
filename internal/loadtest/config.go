// Package loadtest drives a running podium server with concurrent uploads and
// checks the quota and ranking guarantees from the outside.
package loadtest

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL       string        // Base URL of the service
	Participants  int           // Number of participants to simulate
	Tasks         int           // Tasks each participant submits to
	Attempts      int           // Upload attempts per (participant, task)
	Limit         int           // Expected submission limit
	Workers       int           // Concurrent requests in flight
	Timeout       time.Duration // HTTP request timeout
	WriteToken    string        // Bearer token for upload/evaluate
	FileExtension string        // Extension of generated files
	Verbose       bool          // Enable verbose logging
}

// Attempt is one planned upload.
type Attempt struct {
	ParticipantID string
	TaskID        int
	Filename      string
	Content       []byte
}

// Accepted is an upload the server stored.
type Accepted struct {
	SubmissionID  string
	ParticipantID string
	TaskID        int
}

// Stats holds run statistics.
type Stats struct {
	Attempts  int
	Accepted  int
	Rejected  int
	Failed    int
	Evaluated int
	Ranked    int
	StartTime time.Time
	Duration  time.Duration
}
