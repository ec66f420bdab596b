package model

import (
	"errors"
	"fmt"
)

// Sentinel kinds shared by every layer. Callers use errors.Is to classify.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyScored = errors.New("submission already scored")
	ErrValidation    = errors.New("validation failed")
	ErrDuplicateID   = errors.New("duplicate submission id")
	ErrQuotaExceeded = errors.New("submission limit reached")
)

// QuotaExceededError reports a rejected intake for a (participant, task) pair.
type QuotaExceededError struct {
	ParticipantID string
	TaskID        int
	Limit         int
	Used          int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("submission limit reached for this task (max %d); you already submitted %d time(s)", e.Limit, e.Used)
}

// Is makes errors.Is(err, ErrQuotaExceeded) match.
func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}
