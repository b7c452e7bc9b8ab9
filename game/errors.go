package game

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyFinished is returned when a finished game receives a move.
	ErrAlreadyFinished = errors.New("game already over")

	// ErrCatalogTooSmall means fewer than two items are eligible, so no
	// board can be dealt.
	ErrCatalogTooSmall = errors.New("not enough eligible items to start a game")
)

// StateCorruptionError means a session references an item that is not in the
// deck rebuilt from its seed. The catalog and the session no longer agree.
type StateCorruptionError struct {
	GameID    GameID
	MissingID string
}

func (e *StateCorruptionError) Error() string {
	return fmt.Sprintf("game %s: item %q not found in rebuilt deck", e.GameID, e.MissingID)
}
