// capctl is the operator tool: inspect decks and tokens, check shuffle
// fairness and seed the database.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"mcapServer/catalog"
	"mcapServer/config"
	"mcapServer/crypto"
	"mcapServer/db"
	"mcapServer/game"
	"mcapServer/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables")
	}

	cmd := &cli.Command{
		Name:  "capctl",
		Usage: "operate the market-cap game server",
		Commands: []*cli.Command{
			deckCommand(),
			fairnessCommand(),
			tokenCommand(),
			seedCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func parseSeed(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid seed %q: %w", s, err)
	}
	return uint32(v), nil
}

// loadCatalog reads the catalog the same way the server does, unless a file
// is given explicitly.
func loadCatalog(ctx context.Context, settings config.Settings, file string) ([]game.CatalogItem, error) {
	var source catalog.Source
	switch {
	case file != "":
		source = catalog.FileSource{Path: file}
	case settings.CatalogSource == "file":
		source = catalog.FileSource{Path: settings.CatalogFile}
	default:
		if err := db.InitPostgres(settings.DatabaseURL); err != nil {
			return nil, err
		}
		defer db.ClosePostgres()
		source = db.NewCoinStore(db.PostgresPool)
	}
	return catalog.NewProvider(source, nil, 0).Catalog(ctx)
}

/* =========================
   DECK
========================= */

func deckCommand() *cli.Command {
	return &cli.Command{
		Name:  "deck",
		Usage: "print the deck a seed deals, in order",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "seed", Usage: "game seed", Required: true},
			&cli.StringFlag{Name: "file", Usage: "read coins from this JSON file instead of the configured source"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			settings, err := config.Load()
			if err != nil {
				return err
			}
			seed, err := parseSeed(cmd.String("seed"))
			if err != nil {
				return err
			}

			items, err := loadCatalog(ctx, settings, cmd.String("file"))
			if err != nil {
				return err
			}

			deck := game.BuildDeck(items, seed, settings.DeckOptions())
			fmt.Printf("Seed %d deals %d of %d coins:\n", seed, len(deck), len(items))
			for i, item := range deck {
				fmt.Printf("  %3d  %-8s %-46s %16.0f\n", i, item.Symbol, item.ID, item.Value)
			}
			return nil
		},
	}
}

/* =========================
   FAIRNESS
========================= */

func fairnessCommand() *cli.Command {
	return &cli.Command{
		Name:  "fairness",
		Usage: "check that every item is equally likely at every position",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "size", Value: 5, Usage: "items per shuffle"},
			&cli.IntFlag{Name: "runs", Value: 20000, Usage: "shuffles per batch"},
			&cli.IntFlag{Name: "batches", Value: 5, Usage: "number of batches"},
			&cli.StringFlag{Name: "seed", Value: "1", Usage: "first seed"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			size := int(cmd.Int("size"))
			runs := int(cmd.Int("runs"))
			batches := int(cmd.Int("batches"))
			if size < 2 || runs < 1 || batches < 1 {
				return fmt.Errorf("size must be at least 2, runs and batches at least 1")
			}
			first, err := parseSeed(cmd.String("seed"))
			if err != nil {
				return err
			}

			fmt.Printf("Running %d batches of %d shuffles of %d items...\n\n", batches, runs, size)

			expected := float64(runs) / float64(size)
			worst := 0.0
			for batch := 0; batch < batches; batch++ {
				counts := game.PositionCounts(size, first+uint32(batch*runs), runs)

				maxDev := 0.0
				for _, row := range counts {
					for _, c := range row {
						maxDev = math.Max(maxDev, math.Abs(float64(c)-expected)/expected)
					}
				}
				worst = math.Max(worst, maxDev)
				fmt.Printf("Batch %d: worst cell deviates %.2f%% from %.0f\n", batch+1, maxDev*100, expected)
			}

			// five standard deviations of a binomial cell
			p := 1 / float64(size)
			tolerance := 5 * math.Sqrt(float64(runs)*p*(1-p)) / expected
			if worst > tolerance {
				return fmt.Errorf("shuffle looks biased: %.2f%% > %.2f%%", worst*100, tolerance*100)
			}
			fmt.Printf("\n✅ Shuffle is uniform within %.2f%%\n", tolerance*100)
			return nil
		},
	}
}

/* =========================
   TOKEN
========================= */

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "session token tools",
		Commands: []*cli.Command{
			{
				Name:      "inspect",
				Usage:     "decrypt a session token and print its state",
				ArgsUsage: "<token>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "secret", Usage: "session secret (defaults to SESSION_SECRET)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					token := strings.TrimSpace(cmd.Args().First())
					if token == "" {
						return fmt.Errorf("token argument is required")
					}

					secret := cmd.String("secret")
					if secret == "" {
						settings, err := config.Load()
						if err != nil {
							return err
						}
						secret = settings.SessionSecret
					}

					codec, err := crypto.NewSessionCodec(secret)
					if err != nil {
						return err
					}
					s, err := codec.Decode(token)
					if err != nil {
						return err
					}

					out, _ := json.MarshalIndent(map[string]interface{}{
						"gameId":         s.GameID.String(),
						"seed":           s.Seed,
						"score":          s.Score,
						"nextCoinIndex":  s.NextCoinIndex,
						"leftTurns":      s.LeftTurns,
						"rightTurns":     s.RightTurns,
						"currentLeftId":  s.CurrentLeftID,
						"currentRightId": s.CurrentRightID,
						"gameOver":       s.GameOver,
						"issuedAt":       time.UnixMilli(s.IssuedAt).UTC().Format(time.RFC3339),
						"roundStartedAt": time.UnixMilli(s.RoundStartedAt).UTC().Format(time.RFC3339),
					}, "", "  ")
					fmt.Println(string(out))
					return nil
				},
			},
		},
	}
}

/* =========================
   SEED
========================= */

// demoScores fill an empty leaderboard for local development
var demoScores = []struct {
	wallet   string
	username string
	score    uint32
}{
	{"0x1234567890123456789012345678901234567890", "whale", 31},
	{"0xABCDEF0123456789ABCDEF0123456789ABCDEF01", "degen", 24},
	{"0x9876543210987654321098765432109876543210", "anon", 17},
	{"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", "bonkfan", 12},
	{"0xdeadbeef000000000000000000000000deadbeef", "rekt", 3},
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "load coins and demo scores into PostgreSQL",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Value: "data/coins.json", Usage: "coins JSON file"},
			&cli.BoolFlag{Name: "leaderboard", Usage: "also insert demo leaderboard scores"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			settings, err := config.Load()
			if err != nil {
				return err
			}
			if err := db.InitPostgres(settings.DatabaseURL); err != nil {
				return err
			}
			defer db.ClosePostgres()

			items, err := catalog.FileSource{Path: cmd.String("file")}.LoadCatalog(ctx)
			if err != nil {
				return err
			}
			eligible := len(game.Eligible(items, settings.MinMarketCap))

			n, err := db.NewCoinStore(db.PostgresPool).UpsertCoins(ctx, items)
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %d coins (%d eligible at min cap %.0f)\n", n, eligible, settings.MinMarketCap)

			if !cmd.Bool("leaderboard") {
				return nil
			}

			scores := db.NewScoreStore(db.PostgresPool)
			for _, d := range demoScores {
				wallet, _, err := service.NormalizeIdentity(d.wallet)
				if err != nil {
					return err
				}
				if err := scores.SubmitScore(ctx, wallet, d.username, d.score); err != nil {
					log.Printf("Failed to insert %s: %v", d.wallet[:10], err)
				}
			}

			records, err := scores.TopScores(ctx, config.LeaderboardSize)
			if err != nil {
				return fmt.Errorf("failed to read leaderboard: %w", err)
			}
			fmt.Printf("\nLeaderboard (%d entries):\n", len(records))
			for _, r := range records {
				fmt.Printf("  #%d %-12s %s... %d\n", r.Rank, r.Username, r.WalletAddress[:10], r.Score)
			}
			return nil
		},
	}
}
