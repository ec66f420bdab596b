package grading

import "errors"

// Sentinel kinds for grading errors.
var (
	ErrGrader        = errors.New("grader request failed")
	ErrInvalidResult = errors.New("grader returned an invalid result")
	ErrEmptyFile     = errors.New("submission file is empty")
)
