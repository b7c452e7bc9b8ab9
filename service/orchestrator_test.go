package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"mcapServer/crypto"
	"mcapServer/game"
)

type catalogFunc func(ctx context.Context) ([]game.CatalogItem, error)

func (f catalogFunc) Catalog(ctx context.Context) ([]game.CatalogItem, error) { return f(ctx) }

type submission struct {
	identity string
	username string
	score    uint32
}

type recordingStore struct {
	mu   sync.Mutex
	subs []submission
	err  error
}

func (r *recordingStore) SubmitScore(ctx context.Context, identity, username string, score uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, submission{identity, username, score})
	return r.err
}

func (r *recordingStore) submissions() []submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]submission(nil), r.subs...)
}

func scenarioCatalog() []game.CatalogItem {
	return []game.CatalogItem{
		{ID: "A", Name: "A coin", Symbol: "A", Value: 1000},
		{ID: "B", Name: "B coin", Symbol: "B", Value: 2000},
		{ID: "C", Name: "C coin", Symbol: "C", Value: 3000},
		{ID: "D", Name: "D coin", Symbol: "D", Value: 4000},
		{ID: "E", Name: "E coin", Symbol: "E", Value: 5000},
	}
}

type harness struct {
	orch   *Orchestrator
	codec  *crypto.SessionCodec
	store  *recordingStore
	clock  time.Time
	items  []game.CatalogItem
	ledger *MemoryLedger
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	codec, err := crypto.NewSessionCodec("orchestrator-test")
	if err != nil {
		t.Fatal(err)
	}
	h := &harness{
		codec:  codec,
		store:  &recordingStore{},
		clock:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		items:  scenarioCatalog(),
		ledger: NewMemoryLedger(time.Hour),
	}

	rules := game.DefaultRules()
	rules.MaxWinnerTurns = 1
	h.orch = New(
		catalogFunc(func(context.Context) ([]game.CatalogItem, error) { return h.items, nil }),
		h.store,
		h.ledger,
		codec,
		Options{Rules: rules, Deck: game.DeckOptions{MinValue: 0, BoostFactor: 1}},
	)
	h.orch.now = func() time.Time { return h.clock }
	h.orch.newSeed = func() (uint32, error) { return 12345, nil }
	h.orch.newGameID = func() (game.GameID, error) { return game.GameID{0xab, 0xcd}, nil }
	return h
}

func (h *harness) board(t *testing.T, token string) (string, string) {
	t.Helper()
	s, err := h.codec.Decode(token)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return s.CurrentLeftID, s.CurrentRightID
}

func TestStartDealsSeededBoard(t *testing.T) {
	h := newHarness(t)

	resp, err := h.orch.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if resp.Left.ID != "A" || resp.Right.ID != "C" {
		t.Errorf("board = %s/%s, want A/C", resp.Left.ID, resp.Right.ID)
	}
	if resp.Left.Value == nil || *resp.Left.Value != 1000 {
		t.Errorf("left value = %v", resp.Left.Value)
	}
	if resp.Right.Value != nil {
		t.Error("right value leaked")
	}

	s, err := h.codec.Decode(resp.SessionToken)
	if err != nil {
		t.Fatal(err)
	}
	if s.Seed != 12345 || s.IssuedAt != h.clock.UnixMilli() || s.RoundStartedAt != h.clock.UnixMilli() {
		t.Errorf("session = %+v", s)
	}
}

func TestStartRejectsTinyCatalog(t *testing.T) {
	h := newHarness(t)
	h.items = h.items[:1]

	if _, err := h.orch.Start(context.Background()); !errors.Is(err, game.ErrCatalogTooSmall) {
		t.Errorf("got %v, want ErrCatalogTooSmall", err)
	}
}

func TestGuessAlwaysHigher(t *testing.T) {
	h := newHarness(t)
	start, err := h.orch.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		side        string
		left, right string
	}{
		{"right", "D", "C"},
		{"left", "D", "B"},
		{"left", "E", "B"},
		{"left", "E", "A"},
		{"left", "C", "A"},
		{"left", "C", "D"},
	}

	token := start.SessionToken
	for i, step := range steps {
		t.Run(fmt.Sprintf("round %d", i+1), func(t *testing.T) {
			resp, err := h.orch.Guess(context.Background(), GuessRequest{SessionToken: token, Side: step.side})
			if err != nil {
				t.Fatalf("Guess failed: %v", err)
			}
			if !resp.Correct || resp.GameOver || resp.Score != uint32(i+1) {
				t.Fatalf("resp = %+v", resp)
			}
			if resp.NextLeft.ID != step.left || resp.NextRight.ID != step.right {
				t.Errorf("next board = %s/%s, want %s/%s", resp.NextLeft.ID, resp.NextRight.ID, step.left, step.right)
			}
			if l, r := h.board(t, resp.SessionToken); l != step.left || r != step.right {
				t.Errorf("token board = %s/%s", l, r)
			}
			token = resp.SessionToken
		})
	}

	h.orch.Wait()
	if n := len(h.store.submissions()); n != 0 {
		t.Errorf("live game submitted %d scores", n)
	}
}

func TestWrongGuessSubmitsOnce(t *testing.T) {
	h := newHarness(t)
	start, _ := h.orch.Start(context.Background())

	// A (1000) against C (3000)
	resp, err := h.orch.Guess(context.Background(), GuessRequest{
		SessionToken: start.SessionToken,
		Side:         "left",
		Identity:     "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
	})
	if err != nil {
		t.Fatalf("Guess failed: %v", err)
	}
	if resp.Correct || !resp.GameOver || resp.Score != 0 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.LeftValue == nil || *resp.LeftValue != 1000 || resp.RightValue == nil || *resp.RightValue != 3000 {
		t.Errorf("values not revealed: %+v", resp)
	}

	// the finished token and the original one are both dead
	for _, token := range []string{resp.SessionToken, start.SessionToken} {
		_, err := h.orch.Guess(context.Background(), GuessRequest{SessionToken: token, Side: "right", Identity: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"})
		if !errors.Is(err, ErrAlreadyFinished) {
			t.Errorf("replay: got %v, want ErrAlreadyFinished", err)
		}
	}

	h.orch.Wait()
	subs := h.store.submissions()
	if len(subs) != 1 {
		t.Fatalf("got %d submissions, want 1", len(subs))
	}
	want := submission{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", "Anonymous", 0}
	if subs[0] != want {
		t.Errorf("submission = %+v, want %+v", subs[0], want)
	}
}

func TestTimeoutEndsGame(t *testing.T) {
	h := newHarness(t)
	start, _ := h.orch.Start(context.Background())

	round1, err := h.orch.Guess(context.Background(), GuessRequest{SessionToken: start.SessionToken, Side: "right"})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := h.orch.Timeout(context.Background(), TimeoutRequest{
		SessionToken:  round1.SessionToken,
		WalletAddress: "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
		Username:      "  degen  ",
	})
	if err != nil {
		t.Fatalf("Timeout failed: %v", err)
	}
	if !resp.Success || resp.Score != 1 {
		t.Errorf("resp = %+v", resp)
	}

	if _, err := h.orch.Guess(context.Background(), GuessRequest{SessionToken: round1.SessionToken, Side: "left"}); !errors.Is(err, ErrAlreadyFinished) {
		t.Errorf("guess after timeout: got %v, want ErrAlreadyFinished", err)
	}
	if _, err := h.orch.Timeout(context.Background(), TimeoutRequest{SessionToken: resp.SessionToken}); !errors.Is(err, ErrAlreadyFinished) {
		t.Errorf("second timeout: got %v, want ErrAlreadyFinished", err)
	}

	h.orch.Wait()
	subs := h.store.submissions()
	if len(subs) != 1 || subs[0] != (submission{"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", "degen", 1}) {
		t.Errorf("submissions = %+v", subs)
	}
}

func TestGuestScoresAreNotSubmitted(t *testing.T) {
	for _, identity := range []string{"", "GUEST", "guest"} {
		h := newHarness(t)
		start, _ := h.orch.Start(context.Background())

		if _, err := h.orch.Guess(context.Background(), GuessRequest{SessionToken: start.SessionToken, Side: "left", Identity: identity}); err != nil {
			t.Fatal(err)
		}
		h.orch.Wait()
		if n := len(h.store.submissions()); n != 0 {
			t.Errorf("identity %q: %d submissions", identity, n)
		}
	}
}

func TestScoreStoreFailureIsSwallowed(t *testing.T) {
	h := newHarness(t)
	h.store.err = errors.New("db down")
	start, _ := h.orch.Start(context.Background())

	resp, err := h.orch.Guess(context.Background(), GuessRequest{
		SessionToken: start.SessionToken,
		Side:         "left",
		Identity:     "So11111111111111111111111111111111111111112",
	})
	if err != nil {
		t.Fatalf("Guess failed: %v", err)
	}
	if !resp.GameOver {
		t.Error("game should be over")
	}
	h.orch.Wait()
}

func TestUnrecognisedIdentityPlaysAsGuest(t *testing.T) {
	for _, identity := range []string{"0x1234", "0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl", "alice"} {
		t.Run(identity, func(t *testing.T) {
			h := newHarness(t)
			start, _ := h.orch.Start(context.Background())

			resp, err := h.orch.Guess(context.Background(), GuessRequest{SessionToken: start.SessionToken, Side: "right", Identity: identity})
			if err != nil {
				t.Fatalf("Guess failed: %v", err)
			}
			if !resp.Correct || resp.Score != 1 {
				t.Errorf("resp = %+v", resp)
			}

			timeout, err := h.orch.Timeout(context.Background(), TimeoutRequest{SessionToken: resp.SessionToken, WalletAddress: identity})
			if err != nil {
				t.Fatalf("Timeout failed: %v", err)
			}
			if !timeout.Success || timeout.Score != 1 {
				t.Errorf("timeout = %+v", timeout)
			}

			h.orch.Wait()
			if n := len(h.store.submissions()); n != 0 {
				t.Errorf("%d submissions for a guest", n)
			}
		})
	}
}

// failingLedger stands in for an unreachable Redis.
type failingLedger struct{}

func (failingLedger) Finished(context.Context, game.GameID) (bool, error) {
	return false, errors.New("redis down")
}

func (failingLedger) Claim(context.Context, game.GameID) (bool, error) {
	return false, errors.New("redis down")
}

func TestLedgerFailureFailsOpen(t *testing.T) {
	h := newHarness(t)
	h.orch.ledger = failingLedger{}
	start, _ := h.orch.Start(context.Background())

	correct, err := h.orch.Guess(context.Background(), GuessRequest{SessionToken: start.SessionToken, Side: "right"})
	if err != nil {
		t.Fatalf("Guess failed: %v", err)
	}
	if !correct.Correct || correct.GameOver {
		t.Fatalf("resp = %+v", correct)
	}

	// board is now D/C; C is lower
	resp, err := h.orch.Guess(context.Background(), GuessRequest{
		SessionToken: correct.SessionToken,
		Side:         "right",
		Identity:     "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
	})
	if err != nil {
		t.Fatalf("Guess failed: %v", err)
	}
	if resp.Correct || !resp.GameOver || resp.Score != 1 {
		t.Errorf("resp = %+v", resp)
	}

	h.orch.Wait()
	subs := h.store.submissions()
	if len(subs) != 1 || subs[0] != (submission{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", "Anonymous", 1}) {
		t.Errorf("submissions = %+v", subs)
	}
}

func TestGuessRequestErrors(t *testing.T) {
	h := newHarness(t)
	start, _ := h.orch.Start(context.Background())

	tests := []struct {
		name       string
		req        GuessRequest
		validation bool
		invalid    bool
	}{
		{"missing token", GuessRequest{Side: "left"}, true, false},
		{"bad side", GuessRequest{SessionToken: start.SessionToken, Side: "up"}, true, false},
		{"garbage token", GuessRequest{SessionToken: "abc:def", Side: "left"}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.orch.Guess(context.Background(), tt.req)
			var vErr *ValidationError
			if got := errors.As(err, &vErr); got != tt.validation {
				t.Errorf("ValidationError = %v (err %v)", got, err)
			}
			if got := errors.Is(err, ErrInvalidSession); got != tt.invalid {
				t.Errorf("ErrInvalidSession = %v (err %v)", got, err)
			}
		})
	}
}

func TestLateGuessTimesOut(t *testing.T) {
	h := newHarness(t)
	h.orch.opts.EnforceDeadline = true
	start, _ := h.orch.Start(context.Background())

	h.clock = h.clock.Add(h.orch.opts.Rules.RoundDeadline(0) + time.Second)

	resp, err := h.orch.Guess(context.Background(), GuessRequest{SessionToken: start.SessionToken, Side: "right"})
	if err != nil {
		t.Fatalf("Guess failed: %v", err)
	}
	if resp.Correct || !resp.GameOver || !resp.TimedOut {
		t.Errorf("resp = %+v", resp)
	}
	if resp.LeftValue != nil || resp.RightValue != nil {
		t.Error("late guess revealed values")
	}
}

func TestGuessRestampsRound(t *testing.T) {
	h := newHarness(t)
	h.orch.opts.EnforceDeadline = true
	start, _ := h.orch.Start(context.Background())

	h.clock = h.clock.Add(5 * time.Second)
	resp, err := h.orch.Guess(context.Background(), GuessRequest{SessionToken: start.SessionToken, Side: "right"})
	if err != nil || !resp.Correct {
		t.Fatalf("resp = %+v, err = %v", resp, err)
	}

	s, _ := h.codec.Decode(resp.SessionToken)
	if s.RoundStartedAt != h.clock.UnixMilli() {
		t.Errorf("RoundStartedAt = %d, want %d", s.RoundStartedAt, h.clock.UnixMilli())
	}
}

func TestCatalogDriftIsCorruption(t *testing.T) {
	h := newHarness(t)
	start, _ := h.orch.Start(context.Background())

	// C leaves the catalog between rounds
	h.items = []game.CatalogItem{h.items[0], h.items[1], h.items[3], h.items[4]}

	_, err := h.orch.Guess(context.Background(), GuessRequest{SessionToken: start.SessionToken, Side: "left"})
	var corrupt *game.StateCorruptionError
	if !errors.As(err, &corrupt) {
		t.Fatalf("got %v, want StateCorruptionError", err)
	}
}

func TestTwoItemCatalogEndsOnFirstWin(t *testing.T) {
	h := newHarness(t)
	h.items = h.items[:2]
	start, err := h.orch.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	side := "left"
	if start.Left.ID == "A" {
		side = "right"
	}
	resp, err := h.orch.Guess(context.Background(), GuessRequest{SessionToken: start.SessionToken, Side: side, Identity: "So11111111111111111111111111111111111111112"})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Correct || !resp.GameOver || resp.Score != 1 {
		t.Errorf("resp = %+v", resp)
	}
	h.orch.Wait()
	if n := len(h.store.submissions()); n != 1 {
		t.Errorf("%d submissions", n)
	}
}
