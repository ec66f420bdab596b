package repository

import "errors"

// Sentinel kinds for store errors. Domain kinds live in model.
var (
	ErrJournal = errors.New("journal write failed")
	ErrReplay  = errors.New("journal replay failed")
)
