package api

import (
	"context"
	"encoding/json"
	"net/http"

	"mcapServer/db"
	"mcapServer/service"

	"github.com/gorilla/mux"
)

// GameService is the game flow behind /api/game
type GameService interface {
	Start(ctx context.Context) (*service.StartResponse, error)
	Guess(ctx context.Context, req service.GuessRequest) (*service.GuessResponse, error)
	Timeout(ctx context.Context, req service.TimeoutRequest) (*service.TimeoutResponse, error)
}

// Leaderboard is the read side of the score store
type Leaderboard interface {
	TopScores(ctx context.Context, limit int) ([]*db.ScoreRecord, error)
	HighScore(ctx context.Context, walletAddress string) (uint32, error)
}

// HealthCheck is one dependency reported by /api/health
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Config wires the server. Leaderboard and Feed may be nil.
type Config struct {
	Game        GameService
	Leaderboard Leaderboard
	Feed        http.Handler
	Checks      []HealthCheck
	AllowOrigin string
}

// Server is the HTTP API
type Server struct {
	cfg    Config
	router *mux.Router
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

const maxBodyBytes = 16 << 10

func NewServer(cfg Config) *Server {
	s := &Server{
		cfg:    cfg,
		router: mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.corsMiddleware)

	// Game
	s.router.HandleFunc("/api/game/start", s.handleStart).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc("/api/game/guess", s.handleGuess).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc("/api/game/timeout", s.handleTimeout).Methods(http.MethodPost, http.MethodOptions)

	// Leaderboard
	s.router.HandleFunc("/api/leaderboard", s.handleGetLeaderboard).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/api/leaderboard", s.handlePostLeaderboard).Methods(http.MethodPost)

	s.router.HandleFunc("/api/health", s.handleHealthCheck).Methods(http.MethodGet)

	// WebSocket
	if s.cfg.Feed != nil {
		s.router.Handle("/ws/leaderboard", s.cfg.Feed)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// corsMiddleware adds CORS headers to allow frontend requests
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := s.cfg.AllowOrigin
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		// credentials only for a pinned origin
		if origin != "*" {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		// Handle preflight OPTIONS request
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

/* =========================
   HELPER FUNCTIONS
========================= */

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func sendError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{
		Success: false,
		Error:   message,
	})
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
