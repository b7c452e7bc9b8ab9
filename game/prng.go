package game

// Mulberry32 is a 32-bit counter-based generator. Its output depends only on
// the seed and the number of draws, so a deck built from it can be rebuilt
// bit-for-bit on any machine.
type Mulberry32 struct {
	a uint32
}

func NewSeededRNG(seed uint32) *Mulberry32 {
	return &Mulberry32{a: seed}
}

// Uint32 returns the next raw 32-bit draw.
func (m *Mulberry32) Uint32() uint32 {
	m.a += 0x6D2B79F5
	t := m.a
	t = (t ^ t>>15) * (t | 1)
	t ^= t + (t^t>>7)*(t|61)
	return t ^ t>>14
}

// Float64 returns the next draw scaled into [0, 1).
func (m *Mulberry32) Float64() float64 {
	return float64(m.Uint32()) / 4294967296
}

// Intn returns floor(Float64() * n) without going through floating point.
func (m *Mulberry32) Intn(n int) int {
	return int((uint64(m.Uint32()) * uint64(n)) >> 32)
}
