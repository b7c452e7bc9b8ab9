package game

// DeckOptions controls how a catalog becomes a deck.
type DeckOptions struct {
	MinValue float64

	// Boosted ids are repeated BoostFactor times before shuffling so they
	// tend to come up earlier. The deck is de-duplicated afterwards.
	Boosted     []string
	BoostFactor int
}

// Deck is the seeded permutation of eligible items for one game.
type Deck []CatalogItem

// Eligible filters out items the game cannot use.
func Eligible(items []CatalogItem, minValue float64) []CatalogItem {
	valid := make([]CatalogItem, 0, len(items))
	for _, item := range items {
		if item.ID == "" || item.Name == "" || item.Symbol == "" {
			continue
		}
		if item.Value < minValue {
			continue
		}
		valid = append(valid, item)
	}
	return valid
}

// BuildDeck filters, boosts, shuffles and de-duplicates a catalog.
func BuildDeck(catalog []CatalogItem, seed uint32, opts DeckOptions) Deck {
	valid := Eligible(catalog, opts.MinValue)

	pool := valid
	if opts.BoostFactor > 1 && len(opts.Boosted) > 0 {
		boosted := make(map[string]bool, len(opts.Boosted))
		for _, id := range opts.Boosted {
			boosted[id] = true
		}
		var extra []CatalogItem
		for _, item := range valid {
			if boosted[item.ID] {
				extra = append(extra, item)
			}
		}
		pool = make([]CatalogItem, 0, len(valid)+len(extra)*(opts.BoostFactor-1))
		pool = append(pool, valid...)
		for i := 0; i < opts.BoostFactor-1; i++ {
			pool = append(pool, extra...)
		}
	}

	shuffled := Shuffle(pool, seed)

	seen := make(map[string]bool, len(shuffled))
	deck := make(Deck, 0, len(valid))
	for _, item := range shuffled {
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		deck = append(deck, item)
	}
	return deck
}

// Find returns the item with the given id.
func (d Deck) Find(id string) (CatalogItem, bool) {
	for _, item := range d {
		if item.ID == id {
			return item, true
		}
	}
	return CatalogItem{}, false
}

// nextCandidate picks the replacement for a rotating item: the first entry at
// or after from that is not in play, else the first such entry from the top.
// It returns the chosen index, or -1 when nothing outside the pair is left.
func (d Deck) nextCandidate(from uint32, leftID, rightID string) int {
	for i := int(from); i < len(d); i++ {
		if d[i].ID != leftID && d[i].ID != rightID {
			return i
		}
	}
	for i := 0; i < len(d); i++ {
		if d[i].ID != leftID && d[i].ID != rightID {
			return i
		}
	}
	return -1
}

// IDs lists the deck ids in order.
func (d Deck) IDs() []string {
	ids := make([]string, len(d))
	for i, item := range d {
		ids[i] = item.ID
	}
	return ids
}
