package service

import (
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"

	"mcapServer/config"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// NormalizeIdentity returns the canonical identity and whether it is a guest.
// EVM addresses come back in checksum form; Solana addresses are kept as is.
func NormalizeIdentity(raw string) (string, bool, error) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, config.GuestIdentity) {
		return config.GuestIdentity, true, nil
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if !common.IsHexAddress(s) {
			return "", false, &ValidationError{Field: "identity", Reason: "not a valid hex address"}
		}
		return common.HexToAddress(s).Hex(), false, nil
	}

	if len(s) < 32 || len(s) > 44 {
		return "", false, &ValidationError{Field: "identity", Reason: "unrecognised wallet address"}
	}
	for _, r := range s {
		if !strings.ContainsRune(base58Alphabet, r) {
			return "", false, &ValidationError{Field: "identity", Reason: "unrecognised wallet address"}
		}
	}
	return s, false, nil
}

func normalizeUsername(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return config.AnonymousUsername
	}
	if utf8.RuneCountInString(s) > config.MaxUsernameLength {
		s = string([]rune(s)[:config.MaxUsernameLength])
	}
	return s
}
