package game

import (
	"fmt"
	"time"
)

const (
	DefaultMaxWinnerTurns     = 1
	DefaultMinValue           = 15000
	DefaultRoundTime          = 10 * time.Second
	DefaultSpeedModeThreshold = 10
	DefaultSpeedModeTime      = 5 * time.Second
	DefaultRoundGrace         = 4 * time.Second
)

// Rules are the tunable parts of the game.
type Rules struct {
	// MaxWinnerTurns is how many consecutive wins an item may stay on the
	// board for before it is rotated out anyway.
	MaxWinnerTurns uint32

	RoundTime          time.Duration
	SpeedModeThreshold uint32
	SpeedModeTime      time.Duration
	// RoundGrace covers reveal animations and network latency on top of the
	// visible countdown.
	RoundGrace time.Duration
}

func DefaultRules() Rules {
	return Rules{
		MaxWinnerTurns:     DefaultMaxWinnerTurns,
		RoundTime:          DefaultRoundTime,
		SpeedModeThreshold: DefaultSpeedModeThreshold,
		SpeedModeTime:      DefaultSpeedModeTime,
		RoundGrace:         DefaultRoundGrace,
	}
}

// RoundDeadline is how long the player has to answer at the given score.
func (r Rules) RoundDeadline(score uint32) time.Duration {
	limit := r.RoundTime
	if r.SpeedModeThreshold > 0 && score >= r.SpeedModeThreshold {
		limit = r.SpeedModeTime
	}
	return limit + r.RoundGrace
}

// Overdue reports whether a guess arriving at now is past the deadline of
// the session's current round.
func (r Rules) Overdue(s Session, now time.Time) bool {
	if s.RoundStartedAt == 0 {
		return false
	}
	return now.Sub(time.UnixMilli(s.RoundStartedAt)) > r.RoundDeadline(s.Score)
}

// Validate checks the invariants a well-formed session always holds.
func (r Rules) Validate(s Session) error {
	if s.CurrentLeftID == "" || s.CurrentRightID == "" {
		return fmt.Errorf("session has an empty item id")
	}
	if s.CurrentLeftID == s.CurrentRightID {
		return fmt.Errorf("session shows item %q on both sides", s.CurrentLeftID)
	}
	if s.LeftTurns > r.MaxWinnerTurns || s.RightTurns > r.MaxWinnerTurns {
		return fmt.Errorf("turn counters %d/%d exceed limit %d", s.LeftTurns, s.RightTurns, r.MaxWinnerTurns)
	}
	return nil
}
