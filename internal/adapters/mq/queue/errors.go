package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrFull = errors.New("evaluation queue full")
)
