package crypto

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"mcapServer/game"
)

// GenerateSeed draws a fresh deck seed from the OS CSPRNG.
func GenerateSeed() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("failed to read random seed: %w", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// GenerateGameID draws a random id for a new game.
func GenerateGameID() (game.GameID, error) {
	var id game.GameID
	if _, err := rand.Read(id[:]); err != nil {
		return id, fmt.Errorf("failed to read random game id: %w", err)
	}
	return id, nil
}
