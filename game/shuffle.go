package game

// Shuffle returns a permutation of items driven by seed. The input slice is
// not modified. Same items in the same order with the same seed always give
// the same result.
func Shuffle[T any](items []T, seed uint32) []T {
	rng := NewSeededRNG(seed)
	shuffled := make([]T, len(items))
	copy(shuffled, items)

	// Fisher-Yates, last index down to 1
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}
