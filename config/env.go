package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"

	"mcapServer/game"
)

// devSessionSecret is only used when SESSION_SECRET is unset outside production.
const devSessionSecret = "default-secret-key-change-in-prod"

// Settings is everything the server reads from the environment.
type Settings struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	Addr        string `env:"SERVER_ADDR" envDefault:"0.0.0.0:8080"`
	AllowOrigin string `env:"ALLOW_ORIGIN" envDefault:"*"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" envDefault:"1h"`

	MaxWinnerTurns       uint32        `env:"MAX_WINNER_TURNS" envDefault:"1"`
	MinMarketCap         float64       `env:"MIN_MARKET_CAP" envDefault:"15000"`
	BoostedCoins         []string      `env:"BOOSTED_COINS" envSeparator:","`
	BoostFactor          int           `env:"BOOST_FACTOR" envDefault:"1"`
	EnforceRoundDeadline bool          `env:"ENFORCE_ROUND_DEADLINE" envDefault:"false"`
	RoundTime            time.Duration `env:"ROUND_TIME" envDefault:"10s"`
	SpeedModeThreshold   uint32        `env:"SPEED_MODE_THRESHOLD" envDefault:"10"`
	SpeedModeTime        time.Duration `env:"SPEED_MODE_TIME" envDefault:"5s"`
	RoundGrace           time.Duration `env:"ROUND_GRACE" envDefault:"4s"`

	CatalogSource string        `env:"CATALOG_SOURCE" envDefault:"postgres"`
	CatalogFile   string        `env:"CATALOG_FILE" envDefault:"data/coins.json"`
	CatalogTTL    time.Duration `env:"CATALOG_TTL" envDefault:"5m"`

	ScoreSubmitTimeout time.Duration `env:"SCORE_SUBMIT_TIMEOUT" envDefault:"5s"`

	DatabaseURL   string `env:"DATABASE_URL"`
	RedisURL      string `env:"REDIS_URL" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Load parses the environment and checks the values that would otherwise
// fail late.
func Load() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}

	if s.SessionSecret == "" {
		if s.Environment == "production" {
			return Settings{}, fmt.Errorf("SESSION_SECRET is required in production")
		}
		log.Println("⚠️  SESSION_SECRET not set, using the development secret")
		s.SessionSecret = devSessionSecret
	}
	switch s.CatalogSource {
	case "postgres", "file":
	default:
		return Settings{}, fmt.Errorf("CATALOG_SOURCE must be postgres or file, got %q", s.CatalogSource)
	}
	if s.BoostFactor < 1 {
		return Settings{}, fmt.Errorf("BOOST_FACTOR must be at least 1, got %d", s.BoostFactor)
	}
	if s.SessionMaxAge < 0 || s.CatalogTTL < 0 {
		return Settings{}, fmt.Errorf("durations must not be negative")
	}
	return s, nil
}

// Rules builds the game rules from the settings.
func (s Settings) Rules() game.Rules {
	return game.Rules{
		MaxWinnerTurns:     s.MaxWinnerTurns,
		RoundTime:          s.RoundTime,
		SpeedModeThreshold: s.SpeedModeThreshold,
		SpeedModeTime:      s.SpeedModeTime,
		RoundGrace:         s.RoundGrace,
	}
}

// DeckOptions builds the deck options from the settings.
func (s Settings) DeckOptions() game.DeckOptions {
	return game.DeckOptions{
		MinValue:    s.MinMarketCap,
		Boosted:     s.BoostedCoins,
		BoostFactor: s.BoostFactor,
	}
}

// FinishedGameTTL is how long a finished-game marker must live so that no
// still-valid token can outlast it.
func (s Settings) FinishedGameTTL() time.Duration {
	if s.SessionMaxAge <= 0 {
		return DefaultFinishedGameTTL
	}
	return s.SessionMaxAge
}
