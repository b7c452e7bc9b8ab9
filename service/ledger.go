package service

import (
	"context"
	"sync"
	"time"

	"mcapServer/game"
)

// Ledger records which games have ended so that a replayed token cannot keep
// playing or submit its score twice.
type Ledger interface {
	Finished(ctx context.Context, id game.GameID) (bool, error)
	Claim(ctx context.Context, id game.GameID) (bool, error)
}

// MemoryLedger is a single-process Ledger. Entries expire after ttl.
type MemoryLedger struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	finished map[game.GameID]time.Time
}

func NewMemoryLedger(ttl time.Duration) *MemoryLedger {
	return &MemoryLedger{
		ttl:      ttl,
		now:      time.Now,
		finished: make(map[game.GameID]time.Time),
	}
}

func (l *MemoryLedger) Finished(ctx context.Context, id game.GameID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	at, ok := l.finished[id]
	if !ok {
		return false, nil
	}
	if l.now().Sub(at) >= l.ttl {
		delete(l.finished, id)
		return false, nil
	}
	return true, nil
}

func (l *MemoryLedger) Claim(ctx context.Context, id game.GameID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)
	if _, ok := l.finished[id]; ok {
		return false, nil
	}
	l.finished[id] = now
	return true, nil
}

func (l *MemoryLedger) prune(now time.Time) {
	for id, at := range l.finished {
		if now.Sub(at) >= l.ttl {
			delete(l.finished, id)
		}
	}
}

// nopLedger remembers nothing: every claim wins.
type nopLedger struct{}

func (nopLedger) Finished(context.Context, game.GameID) (bool, error) { return false, nil }
func (nopLedger) Claim(context.Context, game.GameID) (bool, error)    { return true, nil }
