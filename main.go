package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mcapServer/api"
	"mcapServer/catalog"
	"mcapServer/config"
	"mcapServer/crypto"
	"mcapServer/db"
	"mcapServer/service"
	"mcapServer/ws"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables")
	} else {
		log.Println("✅ Loaded environment variables from .env")
	}

	settings, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	// Initialize database connections
	postgresErr := db.InitPostgres(settings.DatabaseURL)
	if postgresErr != nil {
		log.Printf("⚠️  Warning: PostgreSQL initialization failed: %v", postgresErr)
		log.Println("   Leaderboard and score submission will be disabled")
	}
	defer db.ClosePostgres()

	redisErr := db.InitRedis(settings.RedisURL, settings.RedisPassword, settings.RedisDB)
	if redisErr != nil {
		log.Printf("⚠️  Warning: Redis initialization failed: %v", redisErr)
		log.Println("   Finished games are tracked in memory only")
	}
	defer db.CloseRedis()

	// Catalog
	var source catalog.Source
	switch settings.CatalogSource {
	case "file":
		source = catalog.FileSource{Path: settings.CatalogFile}
	default:
		if postgresErr != nil {
			log.Fatal("❌ CATALOG_SOURCE=postgres but PostgreSQL is unavailable")
		}
		source = db.NewCoinStore(db.PostgresPool)
	}

	var shared catalog.SharedCache
	var ledger service.Ledger
	if redisErr == nil {
		shared = db.NewCatalogCache(db.RedisClient)
		ledger = db.NewGameLedger(db.RedisClient, settings.FinishedGameTTL())
	} else {
		ledger = service.NewMemoryLedger(settings.FinishedGameTTL())
	}

	provider := catalog.NewProvider(source, shared, settings.CatalogTTL)
	if items, err := provider.Catalog(context.Background()); err != nil {
		log.Printf("⚠️  Warning: initial catalog load failed: %v", err)
	} else {
		log.Printf("✅ Catalog ready - %d coins", len(items))
	}

	codec, err := crypto.NewSessionCodec(settings.SessionSecret, crypto.WithMaxAge(settings.SessionMaxAge))
	if err != nil {
		log.Fatalf("❌ Failed to create session codec: %v", err)
	}

	// Leaderboard + live feed
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	var board api.Leaderboard
	var scores service.ScoreStore
	var hub *ws.Hub
	if postgresErr == nil {
		store := db.NewScoreStore(db.PostgresPool)
		hub = ws.NewHub(store)
		board = store
		scores = ws.NewBroadcastingScoreStore(store, hub)
	} else {
		hub = ws.NewHub(nil)
	}
	go hub.Run(hubCtx)

	orchestrator := service.New(provider, scores, ledger, codec, service.Options{
		Rules:           settings.Rules(),
		Deck:            settings.DeckOptions(),
		EnforceDeadline: settings.EnforceRoundDeadline,
		SubmitTimeout:   settings.ScoreSubmitTimeout,
	})

	server := api.NewServer(api.Config{
		Game:        orchestrator,
		Leaderboard: board,
		Feed:        hub,
		AllowOrigin: settings.AllowOrigin,
		Checks: []api.HealthCheck{
			{Name: "redis", Check: db.HealthCheck},
			{Name: "postgres", Check: db.HealthCheckPostgres},
		},
	})

	httpServer := &http.Server{
		Addr:              settings.Addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🚀 Server starting on %s", settings.Addr)
	log.Println("")
	log.Println("📡 WebSocket Endpoints:")
	log.Println("   /ws/leaderboard - Live leaderboard (snapshot + score_submitted)")
	log.Println("")
	log.Println("🔌 API Endpoints:")
	log.Println("   POST /api/game/start - Deal a new game")
	log.Println("   POST /api/game/guess - Pick the higher market cap")
	log.Println("   POST /api/game/timeout - End the game on timeout")
	log.Println("   GET  /api/leaderboard - Top scores (?walletAddress= for one wallet)")
	log.Println("   GET  /api/health - Health check (Redis + PostgreSQL)")
	log.Println("")

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ Server error:", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("🛑 Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  HTTP shutdown: %v", err)
	}
	stopHub()
	orchestrator.Wait()
	log.Println("👋 Server stopped")
}
