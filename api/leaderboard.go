// api/leaderboard.go
package api

import (
	"log"
	"net/http"

	"mcapServer/config"
	"mcapServer/db"
	"mcapServer/service"
)

/* =========================
   RESPONSE TYPES
========================= */

// LeaderboardResponse represents the leaderboard API response
type LeaderboardResponse struct {
	Leaderboard []*db.ScoreRecord `json:"leaderboard"`
}

// HighScoreResponse is returned when a single wallet is queried
type HighScoreResponse struct {
	HighScore uint32 `json:"highScore"`
}

/* =========================
   HTTP ENDPOINTS
========================= */

// handleGetLeaderboard handles GET /api/leaderboard
// Query params: walletAddress (optional) - get that wallet's best score instead
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Leaderboard == nil {
		sendError(w, http.StatusServiceUnavailable, "Leaderboard unavailable")
		return
	}
	ctx := r.Context()

	if raw := r.URL.Query().Get("walletAddress"); raw != "" {
		wallet, guest, err := service.NormalizeIdentity(raw)
		if err != nil {
			sendError(w, http.StatusBadRequest, err.Error())
			return
		}
		if guest {
			respondJSON(w, http.StatusOK, HighScoreResponse{})
			return
		}

		score, err := s.cfg.Leaderboard.HighScore(ctx, wallet)
		if err != nil {
			log.Printf("❌ Failed to get high score: %v", err)
			sendError(w, http.StatusInternalServerError, "Failed to retrieve high score")
			return
		}
		respondJSON(w, http.StatusOK, HighScoreResponse{HighScore: score})
		return
	}

	records, err := s.cfg.Leaderboard.TopScores(ctx, config.LeaderboardSize)
	if err != nil {
		log.Printf("❌ Failed to get leaderboard: %v", err)
		sendError(w, http.StatusInternalServerError, "Failed to retrieve leaderboard")
		return
	}
	if records == nil {
		records = []*db.ScoreRecord{}
	}

	respondJSON(w, http.StatusOK, LeaderboardResponse{Leaderboard: records})
	log.Printf("📋 Retrieved leaderboard with %d entries", len(records))
}

// handlePostLeaderboard handles POST /api/leaderboard. Scores only arrive
// through finished games.
func (s *Server) handlePostLeaderboard(w http.ResponseWriter, r *http.Request) {
	sendError(w, http.StatusForbidden, "Direct score submission is disabled. Play the game to submit scores.")
}
