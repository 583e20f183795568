package game

import "errors"

var (
	// ErrActionNotAllowed is returned when an action is illegal for the
	// current hand or game status.
	ErrActionNotAllowed = errors.New("action not allowed")
	ErrSeatNotFound     = errors.New("seat not found")
	ErrHandNotFound     = errors.New("hand not found")
	ErrInvalidTable     = errors.New("invalid table")
)
