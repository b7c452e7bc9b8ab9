package game

import (
	"encoding/hex"
	"fmt"
	"time"
)

// Side is one of the two slots on the board.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// ParseSide accepts "left" or "right".
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideLeft, SideRight:
		return Side(s), nil
	}
	return "", fmt.Errorf("invalid side %q", s)
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}

// CatalogItem is a candidate coin as delivered by the catalog provider.
type CatalogItem struct {
	ID       string  `json:"id"`
	Value    float64 `json:"marketCap"`
	Name     string  `json:"name"`
	Symbol   string  `json:"symbol"`
	Logo     string  `json:"logo,omitempty"`
	Color    string  `json:"color,omitempty"`
	Platform string  `json:"platform,omitempty"`
}

// PublicItem is what the client gets to see of an item. Value is only set
// when the item's market cap has already been revealed.
type PublicItem struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Symbol   string   `json:"symbol"`
	Logo     string   `json:"logo,omitempty"`
	Color    string   `json:"color,omitempty"`
	Platform string   `json:"platform,omitempty"`
	Value    *float64 `json:"value,omitempty"`
}

// Public strips the value unless withValue is set.
func (c CatalogItem) Public(withValue bool) PublicItem {
	p := PublicItem{
		ID:       c.ID,
		Name:     c.Name,
		Symbol:   c.Symbol,
		Logo:     c.Logo,
		Color:    c.Color,
		Platform: c.Platform,
	}
	if withValue {
		v := c.Value
		p.Value = &v
	}
	return p
}

// GameID identifies one game across all of its rounds.
type GameID [8]byte

func (id GameID) String() string {
	return hex.EncodeToString(id[:])
}

// Session is the complete state of a game in progress. It only ever lives in
// the client's encrypted token; every transition produces a new value.
type Session struct {
	GameID         GameID
	Seed           uint32
	Score          uint32
	NextCoinIndex  uint32
	LeftTurns      uint32
	RightTurns     uint32
	CurrentLeftID  string
	CurrentRightID string
	GameOver       bool
	IssuedAt       int64 // unix ms, set once at start
	RoundStartedAt int64 // unix ms, restamped whenever a live session is re-issued
}

// CurrentID returns the id of the item on the given side.
func (s Session) CurrentID(side Side) string {
	if side == SideLeft {
		return s.CurrentLeftID
	}
	return s.CurrentRightID
}

// Turns returns the consecutive-win counter of the given side.
func (s Session) Turns(side Side) uint32 {
	if side == SideLeft {
		return s.LeftTurns
	}
	return s.RightTurns
}

// StartedAt reports the game start time.
func (s Session) StartedAt() time.Time {
	return time.UnixMilli(s.IssuedAt)
}

// Outcome is the client-visible result of resolving one round.
type Outcome struct {
	Correct     bool
	GameOver    bool
	TimedOut    bool
	Score       uint32
	Revealed    bool
	LeftValue   float64
	RightValue  float64
	StayingSide Side
	NextLeft    *PublicItem
	NextRight   *PublicItem
}

// StartView is the board shown after Start. The right value is withheld.
type StartView struct {
	Left  PublicItem
	Right PublicItem
}
