package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"

	"mcapServer/game"
)

const (
	tokenDelimiter = ":"
	keyInfo        = "mcap session token v1"
)

// DecodeError is returned for every token that cannot be turned back into a
// session. The caller should treat the session as gone.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid session token: %s: %v", e.Reason, e.Err)
	}
	return "invalid session token: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// SessionCodec turns sessions into opaque tokens and back. Tokens are
// authenticated, so they can be neither read nor forged without the secret.
type SessionCodec struct {
	aead   cipher.AEAD
	maxAge time.Duration
	now    func() time.Time
	rand   io.Reader
}

// CodecOption customises a SessionCodec.
type CodecOption func(*SessionCodec)

// WithMaxAge rejects tokens whose game started more than d ago. Zero disables.
func WithMaxAge(d time.Duration) CodecOption {
	return func(c *SessionCodec) { c.maxAge = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CodecOption {
	return func(c *SessionCodec) { c.now = now }
}

// WithRandom replaces the nonce source.
func WithRandom(r io.Reader) CodecOption {
	return func(c *SessionCodec) { c.rand = r }
}

// NewSessionCodec derives an AES-256 key from secret with HKDF-SHA256.
func NewSessionCodec(secret string, opts ...CodecOption) (*SessionCodec, error) {
	if secret == "" {
		return nil, errors.New("session secret is empty")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive session key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	c := &SessionCodec{
		aead: aead,
		now:  time.Now,
		rand: rand.Reader,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Encode seals the session under a fresh nonce and returns nonce:ciphertext
// in hex.
func (c *SessionCodec) Encode(s game.Session) (string, error) {
	plain, err := marshalSession(s)
	if err != nil {
		return "", fmt.Errorf("failed to serialize session: %w", err)
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nil, nonce, plain, nil)
	return hex.EncodeToString(nonce) + tokenDelimiter + hex.EncodeToString(sealed), nil
}

// Decode opens a token. Any failure yields a *DecodeError and a zero session.
func (c *SessionCodec) Decode(token string) (game.Session, error) {
	// the nonce never contains the delimiter, so split on the first one only
	nonceHex, sealedHex, ok := strings.Cut(token, tokenDelimiter)
	if !ok {
		return game.Session{}, &DecodeError{Reason: "missing delimiter"}
	}
	nonce, err := hex.DecodeString(nonceHex)
	if err != nil {
		return game.Session{}, &DecodeError{Reason: "bad nonce encoding", Err: err}
	}
	if len(nonce) != c.aead.NonceSize() {
		return game.Session{}, &DecodeError{Reason: fmt.Sprintf("nonce is %d bytes", len(nonce))}
	}
	sealed, err := hex.DecodeString(sealedHex)
	if err != nil {
		return game.Session{}, &DecodeError{Reason: "bad ciphertext encoding", Err: err}
	}

	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return game.Session{}, &DecodeError{Reason: "authentication failed", Err: err}
	}
	s, err := unmarshalSession(plain)
	if err != nil {
		return game.Session{}, &DecodeError{Reason: "malformed payload", Err: err}
	}
	if s.CurrentLeftID == "" || s.CurrentRightID == "" || s.CurrentLeftID == s.CurrentRightID {
		return game.Session{}, &DecodeError{Reason: "inconsistent board"}
	}
	if c.maxAge > 0 && c.now().Sub(time.UnixMilli(s.IssuedAt)) > c.maxAge {
		return game.Session{}, &DecodeError{Reason: "expired"}
	}
	return s, nil
}
