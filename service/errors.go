package service

import (
	"errors"
	"fmt"

	"mcapServer/game"
)

var (
	// ErrInvalidSession covers every token that cannot be decoded, has
	// expired or fails the session invariants.
	ErrInvalidSession = errors.New("invalid or expired session")

	// ErrAlreadyFinished is returned for moves on a game that has ended.
	ErrAlreadyFinished = game.ErrAlreadyFinished
)

// ValidationError is a malformed request. Nothing was decoded or changed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
