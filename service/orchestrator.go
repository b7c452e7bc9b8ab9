package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"mcapServer/config"
	"mcapServer/crypto"
	"mcapServer/game"
)

// CatalogProvider supplies the coin catalog in canonical order.
type CatalogProvider interface {
	Catalog(ctx context.Context) ([]game.CatalogItem, error)
}

// ScoreStore receives final scores. Keeping the best score is its job.
type ScoreStore interface {
	SubmitScore(ctx context.Context, identity, username string, score uint32) error
}

// Codec turns sessions into opaque tokens and back.
type Codec interface {
	Encode(s game.Session) (string, error)
	Decode(token string) (game.Session, error)
}

// Options tune the orchestrator.
type Options struct {
	Rules game.Rules
	Deck  game.DeckOptions

	// EnforceDeadline resolves guesses that arrive after the round deadline
	// as timeouts.
	EnforceDeadline bool

	// SubmitTimeout bounds each score store write.
	SubmitTimeout time.Duration
}

// Orchestrator runs games on top of the codec and the round resolver. It
// holds no per-game state; the token is the game.
type Orchestrator struct {
	catalog CatalogProvider
	scores  ScoreStore
	ledger  Ledger
	codec   Codec
	opts    Options

	now       func() time.Time
	newSeed   func() (uint32, error)
	newGameID func() (game.GameID, error)

	submissions sync.WaitGroup
}

// New builds an orchestrator. scores and ledger may be nil.
func New(catalog CatalogProvider, scores ScoreStore, ledger Ledger, codec Codec, opts Options) *Orchestrator {
	if ledger == nil {
		ledger = nopLedger{}
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = 5 * time.Second
	}
	return &Orchestrator{
		catalog:   catalog,
		scores:    scores,
		ledger:    ledger,
		codec:     codec,
		opts:      opts,
		now:       time.Now,
		newSeed:   crypto.GenerateSeed,
		newGameID: crypto.GenerateGameID,
	}
}

/* =========================
   REQUESTS / RESPONSES
========================= */

type StartResponse struct {
	SessionToken string          `json:"sessionToken"`
	Left         game.PublicItem `json:"left"`
	Right        game.PublicItem `json:"right"`
	Score        uint32          `json:"score"`
}

type GuessRequest struct {
	SessionToken string `json:"sessionToken"`
	Side         string `json:"side"`
	Identity     string `json:"identity,omitempty"`
	Username     string `json:"username,omitempty"`

	// Older clients send the wallet under this name.
	WalletAddress string `json:"walletAddress,omitempty"`
}

type GuessResponse struct {
	Correct      bool             `json:"correct"`
	Score        uint32           `json:"score"`
	GameOver     bool             `json:"gameOver"`
	TimedOut     bool             `json:"timedOut,omitempty"`
	LeftValue    *float64         `json:"leftValue,omitempty"`
	RightValue   *float64         `json:"rightValue,omitempty"`
	StayingSide  game.Side        `json:"stayingSide,omitempty"`
	NextLeft     *game.PublicItem `json:"nextLeft,omitempty"`
	NextRight    *game.PublicItem `json:"nextRight,omitempty"`
	SessionToken string           `json:"sessionToken"`
}

type TimeoutRequest struct {
	SessionToken  string `json:"sessionToken"`
	Identity      string `json:"identity,omitempty"`
	Username      string `json:"username,omitempty"`
	WalletAddress string `json:"walletAddress,omitempty"`
}

type TimeoutResponse struct {
	Success      bool   `json:"success"`
	Score        uint32 `json:"score"`
	SessionToken string `json:"sessionToken"`
}

// player is the validated identity attached to a move.
type player struct {
	identity string
	username string
	guest    bool
}

// parsePlayer never fails: an identity that is not a recognised wallet plays
// as a guest, so the round still resolves.
func parsePlayer(identity, walletAddress, username string) player {
	raw := identity
	if strings.TrimSpace(raw) == "" {
		raw = walletAddress
	}
	id, guest, err := NormalizeIdentity(raw)
	if err != nil {
		log.Printf("⚠️  %v, playing as guest", err)
		id, guest = config.GuestIdentity, true
	}
	return player{identity: id, username: normalizeUsername(username), guest: guest}
}

/* =========================
   OPERATIONS
========================= */

// Start deals a new game.
func (o *Orchestrator) Start(ctx context.Context) (*StartResponse, error) {
	catalog, err := o.catalog.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	seed, err := o.newSeed()
	if err != nil {
		return nil, err
	}
	id, err := o.newGameID()
	if err != nil {
		return nil, err
	}

	deck := game.BuildDeck(catalog, seed, o.opts.Deck)
	session, view, err := game.Start(deck, seed, id)
	if err != nil {
		return nil, err
	}

	now := o.now().UnixMilli()
	session.IssuedAt = now
	session.RoundStartedAt = now

	token, err := o.codec.Encode(session)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}

	log.Printf("🎮 Game %s started - %d coins in deck", id, len(deck))

	return &StartResponse{
		SessionToken: token,
		Left:         view.Left,
		Right:        view.Right,
		Score:        0,
	}, nil
}

// Guess resolves the player's pick for the current round.
func (o *Orchestrator) Guess(ctx context.Context, req GuessRequest) (*GuessResponse, error) {
	if req.SessionToken == "" {
		return nil, &ValidationError{Field: "sessionToken", Reason: "is required"}
	}
	side, err := game.ParseSide(req.Side)
	if err != nil {
		return nil, &ValidationError{Field: "side", Reason: "must be left or right"}
	}
	p := parsePlayer(req.Identity, req.WalletAddress, req.Username)

	prior, err := o.openSession(ctx, req.SessionToken)
	if err != nil {
		return nil, err
	}

	var (
		next game.Session
		out  game.Outcome
	)
	if o.opts.EnforceDeadline && o.opts.Rules.Overdue(prior, o.now()) {
		log.Printf("⏰ Game %s guess arrived after the round deadline", prior.GameID)
		next, out, err = game.Timeout(prior)
	} else {
		catalog, cerr := o.catalog.Catalog(ctx)
		if cerr != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", cerr)
		}
		deck := game.BuildDeck(catalog, prior.Seed, o.opts.Deck)
		next, out, err = game.Guess(o.opts.Rules, deck, prior, side)
	}
	if err != nil {
		var corrupt *game.StateCorruptionError
		if errors.As(err, &corrupt) {
			log.Printf("❌ %v", corrupt)
		}
		return nil, err
	}

	if next.GameOver {
		o.finish(ctx, next, p)
	} else {
		next.RoundStartedAt = o.now().UnixMilli()
	}

	token, err := o.codec.Encode(next)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}

	resp := &GuessResponse{
		Correct:      out.Correct,
		Score:        out.Score,
		GameOver:     out.GameOver,
		TimedOut:     out.TimedOut,
		StayingSide:  out.StayingSide,
		NextLeft:     out.NextLeft,
		NextRight:    out.NextRight,
		SessionToken: token,
	}
	if out.Revealed {
		l, r := out.LeftValue, out.RightValue
		resp.LeftValue, resp.RightValue = &l, &r
	}
	return resp, nil
}

// Timeout ends the game because the player ran out of time.
func (o *Orchestrator) Timeout(ctx context.Context, req TimeoutRequest) (*TimeoutResponse, error) {
	if req.SessionToken == "" {
		return nil, &ValidationError{Field: "sessionToken", Reason: "is required"}
	}
	p := parsePlayer(req.Identity, req.WalletAddress, req.Username)

	prior, err := o.openSession(ctx, req.SessionToken)
	if err != nil {
		return nil, err
	}

	next, out, err := game.Timeout(prior)
	if err != nil {
		return nil, err
	}
	o.finish(ctx, next, p)

	token, err := o.codec.Encode(next)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}

	return &TimeoutResponse{
		Success:      true,
		Score:        out.Score,
		SessionToken: token,
	}, nil
}

// Wait blocks until every pending score submission has returned.
func (o *Orchestrator) Wait() {
	o.submissions.Wait()
}

/* =========================
   HELPERS
========================= */

// openSession decodes a token and rejects games that already ended.
func (o *Orchestrator) openSession(ctx context.Context, token string) (game.Session, error) {
	s, err := o.codec.Decode(token)
	if err != nil {
		return game.Session{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if err := o.opts.Rules.Validate(s); err != nil {
		return game.Session{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if s.GameOver {
		return game.Session{}, ErrAlreadyFinished
	}

	finished, err := o.ledger.Finished(ctx, s.GameID)
	if err != nil {
		log.Printf("⚠️  Ledger lookup failed for game %s: %v", s.GameID, err)
	} else if finished {
		return game.Session{}, ErrAlreadyFinished
	}
	return s, nil
}

// finish records the end of a game and submits the score in the background.
// Only the first request to end a game submits.
func (o *Orchestrator) finish(ctx context.Context, s game.Session, p player) {
	claimed, err := o.ledger.Claim(ctx, s.GameID)
	if err != nil {
		log.Printf("⚠️  Ledger claim failed for game %s: %v", s.GameID, err)
		claimed = true
	}
	if !claimed {
		log.Printf("📋 Game %s already ended, score not resubmitted", s.GameID)
		return
	}

	log.Printf("🏁 Game %s over - score %d", s.GameID, s.Score)

	if p.guest || o.scores == nil {
		return
	}

	o.submissions.Add(1)
	go func() {
		defer o.submissions.Done()

		submitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.SubmitTimeout)
		defer cancel()

		if err := o.scores.SubmitScore(submitCtx, p.identity, p.username, s.Score); err != nil {
			log.Printf("❌ Failed to submit score for game %s: %v", s.GameID, err)
		}
	}()
}
