package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"mcapServer/config"
	"mcapServer/game"

	"github.com/redis/go-redis/v9"
)

var (
	// RedisClient is the global Redis client instance
	RedisClient *redis.Client
)

// InitRedis initializes the Redis client connection
func InitRedis(addr, password string, db int) error {
	log.Println("🔌 Connecting to Redis...")

	RedisClient = redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := RedisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("✅ Redis connected successfully - URL: %s", addr)
	return nil
}

// CloseRedis closes the Redis connection
func CloseRedis() error {
	if RedisClient != nil {
		log.Println("🔌 Closing Redis connection...")
		return RedisClient.Close()
	}
	return nil
}

/* =========================
   CATALOG CACHE
   Redis Key: catalog:coins -> JSON array of coins
========================= */

// CatalogCache shares the last loaded catalog between server instances
type CatalogCache struct {
	client *redis.Client
	key    string
}

func NewCatalogCache(client *redis.Client) *CatalogCache {
	return &CatalogCache{client: client, key: config.RedisCatalogKey}
}

// GetCatalog returns the cached catalog, nil if there is none
func (c *CatalogCache) GetCatalog(ctx context.Context) ([]game.CatalogItem, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached catalog: %w", err)
	}

	var items []game.CatalogItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached catalog: %w", err)
	}
	return items, nil
}

// SetCatalog stores the catalog with a TTL
func (c *CatalogCache) SetCatalog(ctx context.Context, items []game.CatalogItem, ttl time.Duration) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := c.client.Set(ctx, c.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache catalog: %w", err)
	}

	log.Printf("✅ Cached catalog - %d coins, TTL %s", len(items), ttl)
	return nil
}

/* =========================
   FINISHED GAME LEDGER
   Redis Key: game:finished:{gameId} -> "1"
========================= */

// GameLedger remembers which games have ended
type GameLedger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewGameLedger(client *redis.Client, ttl time.Duration) *GameLedger {
	return &GameLedger{client: client, ttl: ttl}
}

// Claim marks the game finished. It reports true only for the first caller.
func (l *GameLedger) Claim(ctx context.Context, id game.GameID) (bool, error) {
	key := fmt.Sprintf(config.RedisFinishedGameKey, id)

	ok, err := l.client.SetNX(ctx, key, "1", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim game %s: %w", id, err)
	}
	return ok, nil
}

// Finished reports whether the game was already claimed
func (l *GameLedger) Finished(ctx context.Context, id game.GameID) (bool, error) {
	key := fmt.Sprintf(config.RedisFinishedGameKey, id)

	n, err := l.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check game %s: %w", id, err)
	}
	return n > 0, nil
}

/* =========================
   HEALTH CHECK
========================= */

// HealthCheck performs a Redis health check
func HealthCheck(ctx context.Context) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	return RedisClient.Ping(ctx).Err()
}
