package game

// Start deals the opening board from a freshly built deck.
func Start(deck Deck, seed uint32, id GameID) (Session, StartView, error) {
	if len(deck) < 2 {
		return Session{}, StartView{}, ErrCatalogTooSmall
	}

	s := Session{
		GameID:         id,
		Seed:           seed,
		NextCoinIndex:  2,
		CurrentLeftID:  deck[0].ID,
		CurrentRightID: deck[1].ID,
	}
	view := StartView{
		Left:  deck[0].Public(true),
		Right: deck[1].Public(false),
	}
	return s, view, nil
}

// Guess resolves one round. deck must be the deck rebuilt from prior.Seed.
// prior is never modified; the next state is returned.
func Guess(rules Rules, deck Deck, prior Session, side Side) (Session, Outcome, error) {
	if prior.GameOver {
		return prior, Outcome{}, ErrAlreadyFinished
	}

	left, ok := deck.Find(prior.CurrentLeftID)
	if !ok {
		return prior, Outcome{}, &StateCorruptionError{GameID: prior.GameID, MissingID: prior.CurrentLeftID}
	}
	right, ok := deck.Find(prior.CurrentRightID)
	if !ok {
		return prior, Outcome{}, &StateCorruptionError{GameID: prior.GameID, MissingID: prior.CurrentRightID}
	}

	guessed, other := left, right
	if side == SideRight {
		guessed, other = right, left
	}

	next := prior
	out := Outcome{
		Revealed:   true,
		LeftValue:  left.Value,
		RightValue: right.Value,
	}

	// ties go to the guesser
	if guessed.Value < other.Value {
		next.GameOver = true
		out.GameOver = true
		out.Score = next.Score
		return next, out, nil
	}

	next.Score++
	out.Correct = true
	out.Score = next.Score

	idx := deck.nextCandidate(prior.NextCoinIndex, prior.CurrentLeftID, prior.CurrentRightID)
	if idx < 0 {
		next.GameOver = true
		out.GameOver = true
		return next, out, nil
	}
	incoming := deck[idx]
	next.NextCoinIndex = uint32(idx + 1)

	var leaving Side
	if prior.Turns(side) < rules.MaxWinnerTurns {
		// winner stays, loser rotates out
		leaving = side.Other()
		next = setTurns(next, side, prior.Turns(side)+1)
		next = setTurns(next, leaving, 0)
	} else {
		// winner has had its run; it rotates out and the loser gets another round
		leaving = side
		next = setTurns(next, SideLeft, 0)
		next = setTurns(next, SideRight, 0)
	}
	next = setCurrent(next, leaving, incoming.ID)
	out.StayingSide = leaving.Other()

	nextLeft, nextRight := left, right
	if leaving == SideLeft {
		nextLeft = incoming
	} else {
		nextRight = incoming
	}
	l := nextLeft.Public(out.StayingSide == SideLeft)
	r := nextRight.Public(out.StayingSide == SideRight)
	out.NextLeft, out.NextRight = &l, &r

	return next, out, nil
}

// Timeout ends the game without revealing anything.
func Timeout(prior Session) (Session, Outcome, error) {
	if prior.GameOver {
		return prior, Outcome{}, ErrAlreadyFinished
	}
	next := prior
	next.GameOver = true
	return next, Outcome{
		GameOver: true,
		TimedOut: true,
		Score:    next.Score,
	}, nil
}

func setTurns(s Session, side Side, n uint32) Session {
	if side == SideLeft {
		s.LeftTurns = n
	} else {
		s.RightTurns = n
	}
	return s
}

func setCurrent(s Session, side Side, id string) Session {
	if side == SideLeft {
		s.CurrentLeftID = id
	} else {
		s.CurrentRightID = id
	}
	return s
}
