package game

// VerifyDeck rebuilds the deck for a seed and returns its ids in dealing
// order. Given the same catalog snapshot and seed, anyone can confirm which
// coins a game was going to show.
func VerifyDeck(catalog []CatalogItem, seed uint32, opts DeckOptions) []string {
	return BuildDeck(catalog, seed, opts).IDs()
}

// PositionCounts shuffles n items under seeds first..first+runs-1 and counts
// how often each item lands at each position. counts[item][position].
func PositionCounts(n int, first uint32, runs int) [][]int {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	counts := make([][]int, n)
	for i := range counts {
		counts[i] = make([]int, n)
	}
	for r := 0; r < runs; r++ {
		for pos, item := range Shuffle(items, first+uint32(r)) {
			counts[item][pos]++
		}
	}
	return counts
}
