package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mcapServer/config"
	"mcapServer/game"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// PostgresPool is the global PostgreSQL connection pool
	PostgresPool *pgxpool.Pool
)

// InitPostgres initializes the PostgreSQL connection pool
func InitPostgres(databaseURL string) error {
	log.Println("🔌 Connecting to PostgreSQL...")

	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = config.MaxConns
	poolConfig.MinConns = config.MinConns
	poolConfig.MaxConnLifetime = config.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	PostgresPool = pool

	log.Println("✅ PostgreSQL connected successfully")

	if err := InitSchema(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// ClosePostgres closes the PostgreSQL connection pool
func ClosePostgres() {
	if PostgresPool != nil {
		log.Println("🔌 Closing PostgreSQL connection...")
		PostgresPool.Close()
	}
}

// InitSchema creates the database tables if they don't exist
func InitSchema(ctx context.Context) error {
	log.Println("📋 Initializing database schema...")

	coinsSchema := `
	CREATE TABLE IF NOT EXISTS coins (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		symbol TEXT NOT NULL,
		logo TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT '',
		platform TEXT NOT NULL DEFAULT '',
		market_cap DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_coins_market_cap ON coins(market_cap);
	`

	if _, err := PostgresPool.Exec(ctx, coinsSchema); err != nil {
		return fmt.Errorf("failed to create coins table: %w", err)
	}

	leaderboardSchema := `
	CREATE TABLE IF NOT EXISTS leaderboard (
		wallet_address TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		score INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_leaderboard_score ON leaderboard(score DESC);
	`

	if _, err := PostgresPool.Exec(ctx, leaderboardSchema); err != nil {
		return fmt.Errorf("failed to create leaderboard table: %w", err)
	}

	log.Println("✅ Database schema initialized")
	return nil
}

// HealthCheckPostgres performs a PostgreSQL health check
func HealthCheckPostgres(ctx context.Context) error {
	if PostgresPool == nil {
		return fmt.Errorf("PostgreSQL connection pool not initialized")
	}
	return PostgresPool.Ping(ctx)
}

/* =========================
   COIN CATALOG
========================= */

// CoinStore reads and writes the coins table
type CoinStore struct {
	pool *pgxpool.Pool
}

func NewCoinStore(pool *pgxpool.Pool) *CoinStore {
	return &CoinStore{pool: pool}
}

// LoadCatalog returns every coin ordered by id
func (s *CoinStore) LoadCatalog(ctx context.Context) ([]game.CatalogItem, error) {
	query := `
		SELECT id, name, symbol, logo, color, platform, market_cap
		FROM coins
		ORDER BY id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query coins: %w", err)
	}
	defer rows.Close()

	var items []game.CatalogItem
	for rows.Next() {
		var item game.CatalogItem
		if err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.Symbol,
			&item.Logo,
			&item.Color,
			&item.Platform,
			&item.Value,
		); err != nil {
			return nil, fmt.Errorf("failed to scan coin: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coins: %w", err)
	}

	return items, nil
}

// UpsertCoins inserts or refreshes coins in a single batch
func (s *CoinStore) UpsertCoins(ctx context.Context, items []game.CatalogItem) (int, error) {
	query := `
		INSERT INTO coins (id, name, symbol, logo, color, platform, market_cap, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    symbol = EXCLUDED.symbol,
		    logo = EXCLUDED.logo,
		    color = EXCLUDED.color,
		    platform = EXCLUDED.platform,
		    market_cap = EXCLUDED.market_cap,
		    updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.ID, item.Name, item.Symbol, item.Logo, item.Color, item.Platform, item.Value)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range items {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("failed to upsert coin %s: %w", items[i].ID, err)
		}
	}

	log.Printf("✅ Upserted %d coins", len(items))
	return len(items), nil
}

/* =========================
   LEADERBOARD
========================= */

// ScoreRecord is one leaderboard row
type ScoreRecord struct {
	Rank          int       `json:"rank"`
	WalletAddress string    `json:"walletAddress"`
	Username      string    `json:"username"`
	Score         uint32    `json:"score"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ScoreStore keeps the best score per wallet
type ScoreStore struct {
	pool *pgxpool.Pool
}

func NewScoreStore(pool *pgxpool.Pool) *ScoreStore {
	return &ScoreStore{pool: pool}
}

// SubmitScore records score for the wallet unless it already has a better one
func (s *ScoreStore) SubmitScore(ctx context.Context, walletAddress, username string, score uint32) error {
	if walletAddress == "" {
		return errors.New("wallet address is required")
	}

	query := `
		INSERT INTO leaderboard (wallet_address, username, score, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (wallet_address) DO UPDATE
		SET score = EXCLUDED.score,
		    username = EXCLUDED.username,
		    updated_at = NOW()
		WHERE leaderboard.score < EXCLUDED.score
	`

	result, err := s.pool.Exec(ctx, query, walletAddress, username, int64(score))
	if err != nil {
		return fmt.Errorf("failed to submit score: %w", err)
	}

	if result.RowsAffected() > 0 {
		log.Printf("🏆 New best score %d for %s (%s)", score, walletAddress, username)
	} else {
		log.Printf("📋 Score %d for %s below existing best", score, walletAddress)
	}
	return nil
}

// TopScores returns the best N scores
func (s *ScoreStore) TopScores(ctx context.Context, limit int) ([]*ScoreRecord, error) {
	query := `
		SELECT wallet_address, username, score, updated_at,
		       ROW_NUMBER() OVER (ORDER BY score DESC, updated_at ASC) AS rank
		FROM leaderboard
		ORDER BY score DESC, updated_at ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	records := make([]*ScoreRecord, 0, limit)
	for rows.Next() {
		var record ScoreRecord
		var score int64
		if err := rows.Scan(&record.WalletAddress, &record.Username, &score, &record.UpdatedAt, &record.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		record.Score = uint32(score)
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// HighScore returns the wallet's best score, 0 if it has none
func (s *ScoreStore) HighScore(ctx context.Context, walletAddress string) (uint32, error) {
	var score int64
	err := s.pool.QueryRow(ctx,
		`SELECT score FROM leaderboard WHERE wallet_address = $1`,
		walletAddress,
	).Scan(&score)

	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get high score: %w", err)
	}

	return uint32(score), nil
}
