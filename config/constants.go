package config

import "time"

/* =========================
   GAME DEFAULTS
========================= */

const (
	// Identity value the client sends for players without a wallet
	GuestIdentity = "GUEST"

	// Display name used when a wallet submits without a username
	AnonymousUsername = "Anonymous"
	MaxUsernameLength = 32

	// Leaderboard page size
	LeaderboardSize = 10
)

/* =========================
   REDIS TTL CONFIGURATION
========================= */

const (
	// Finished-game markers outlive any token that could still reference them.
	// Used when SESSION_MAX_AGE is 0 (unbounded tokens).
	// Key: game:finished:{gameId}
	DefaultFinishedGameTTL = 24 * time.Hour
)

/* =========================
   REDIS KEY PATTERNS
========================= */

const (
	RedisCatalogKey      = "catalog:coins"     // JSON snapshot of the coin catalog
	RedisFinishedGameKey = "game:finished:%s" // game:finished:{gameId}
)

/* =========================
   POSTGRESQL CONFIGURATION
========================= */

const (
	MaxConns        = 25
	MinConns        = 5
	ConnMaxLifetime = 5 * time.Minute
)

/* =========================
   WEBSOCKET CONFIGURATION
========================= */

const (
	WSWriteDeadline = 10 * time.Second
	WSPingInterval  = 30 * time.Second
	WSPongWait      = 60 * time.Second

	// Outgoing buffer per subscriber; slow readers are dropped when full
	WSSendBuffer = 16

	MaxMessageSize = 512
)
