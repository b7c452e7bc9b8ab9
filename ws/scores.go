package ws

import (
	"context"
	"time"
)

// ScoreSubmitter is the store being wrapped
type ScoreSubmitter interface {
	SubmitScore(ctx context.Context, identity, username string, score uint32) error
}

// ScoreEvent is pushed to subscribers after every accepted submission
type ScoreEvent struct {
	WalletAddress string    `json:"walletAddress"`
	Username      string    `json:"username"`
	Score         uint32    `json:"score"`
	Timestamp     time.Time `json:"timestamp"`
}

// BroadcastingScoreStore announces submitted scores on the hub
type BroadcastingScoreStore struct {
	next ScoreSubmitter
	hub  *Hub
}

func NewBroadcastingScoreStore(next ScoreSubmitter, hub *Hub) *BroadcastingScoreStore {
	return &BroadcastingScoreStore{next: next, hub: hub}
}

func (s *BroadcastingScoreStore) SubmitScore(ctx context.Context, identity, username string, score uint32) error {
	if err := s.next.SubmitScore(ctx, identity, username, score); err != nil {
		return err
	}
	s.hub.Publish("score_submitted", ScoreEvent{
		WalletAddress: identity,
		Username:      username,
		Score:         score,
		Timestamp:     time.Now().UTC(),
	})
	return nil
}
