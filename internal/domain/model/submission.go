// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// idSeparator splits a submission id into participant prefix and opaque suffix.
const idSeparator = "_"

// maxParticipantIDLen bounds participant ids accepted at intake.
const maxParticipantIDLen = 64

// Status is the evaluation state of a submission.
type Status string

// Submission statuses.
const (
	StatusPending Status = "pending"
	StatusScored  Status = "scored"
	StatusFailed  Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusScored, StatusFailed:
		return true
	}
	return false
}

// Final reports whether s is a terminal (evaluated) status.
func (s Status) Final() bool {
	return s == StatusScored || s == StatusFailed
}

// ParseStatus converts a wire value into a Status.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, v)
	}
	return s, nil
}

// Submission is one participant's attempt at a task.
//
// ID always has the form "<participant_id>_<suffix>"; ParticipantID is derived
// from it and checked once at write time by Validate.
type Submission struct {
	ID            string
	ParticipantID string
	TaskID        int
	Filename      string
	Score         float64
	Status        Status
	Details       string
	CreatedAt     time.Time
	EvaluatedAt   time.Time
}

// Ranked reports whether the submission takes part in rankings.
func (s Submission) Ranked() bool {
	return s.Status == StatusScored
}

// Validate checks the structural invariants of a fully formed submission.
func (s Submission) Validate() error {
	owner, err := ParticipantFromID(s.ID)
	if err != nil {
		return err
	}
	if owner != s.ParticipantID {
		return fmt.Errorf("%w: submission id %q does not belong to participant %q", ErrValidation, s.ID, s.ParticipantID)
	}
	if s.TaskID < 0 {
		return fmt.Errorf("%w: negative task id %d", ErrValidation, s.TaskID)
	}
	if !s.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, s.Status)
	}
	if s.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing creation time", ErrValidation)
	}
	return nil
}

// NewSubmission builds a pending submission with a fresh id.
func NewSubmission(participantID string, taskID int, filename string, now time.Time) (Submission, error) {
	id, err := NewSubmissionID(participantID)
	if err != nil {
		return Submission{}, err
	}
	return Submission{
		ID:            id,
		ParticipantID: participantID,
		TaskID:        taskID,
		Filename:      filename,
		Status:        StatusPending,
		CreatedAt:     now.UTC(),
	}, nil
}

// NewSubmissionID returns a globally unique id prefixed by participantID.
func NewSubmissionID(participantID string) (string, error) {
	if err := ValidateParticipantID(participantID); err != nil {
		return "", err
	}
	return participantID + idSeparator + strings.ReplaceAll(uuid.NewString(), "-", ""), nil
}

// ParticipantFromID extracts the participant prefix of a submission id.
func ParticipantFromID(id string) (string, error) {
	prefix, suffix, ok := strings.Cut(id, idSeparator)
	if !ok || prefix == "" || suffix == "" {
		return "", fmt.Errorf("%w: malformed submission id %q", ErrValidation, id)
	}
	return prefix, nil
}

// ValidateParticipantID rejects ids that would break the id prefix convention.
func ValidateParticipantID(participantID string) error {
	switch {
	case strings.TrimSpace(participantID) == "":
		return fmt.Errorf("%w: missing participant id", ErrValidation)
	case len(participantID) > maxParticipantIDLen:
		return fmt.Errorf("%w: participant id longer than %d characters", ErrValidation, maxParticipantIDLen)
	case strings.Contains(participantID, idSeparator):
		return fmt.Errorf("%w: participant id must not contain %q", ErrValidation, idSeparator)
	}
	for _, r := range participantID {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) || r == '/' {
			return fmt.Errorf("%w: participant id contains invalid character %q", ErrValidation, r)
		}
	}
	return nil
}
