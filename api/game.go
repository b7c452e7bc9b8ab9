package api

import (
	"errors"
	"log"
	"net/http"

	"mcapServer/game"
	"mcapServer/service"
)

/* =========================
   HTTP ENDPOINTS
========================= */

// handleStart handles POST /api/game/start
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	resp, err := s.cfg.Game.Start(r.Context())
	if err != nil {
		writeGameError(w, err, "Failed to start game")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleGuess handles POST /api/game/guess
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req service.GuessRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := s.cfg.Game.Guess(r.Context(), req)
	if err != nil {
		writeGameError(w, err, "Failed to process guess")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleTimeout handles POST /api/game/timeout
func (s *Server) handleTimeout(w http.ResponseWriter, r *http.Request) {
	var req service.TimeoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := s.cfg.Game.Timeout(r.Context(), req)
	if err != nil {
		writeGameError(w, err, "Failed to process timeout")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// writeGameError maps game errors onto status codes
func writeGameError(w http.ResponseWriter, err error, fallback string) {
	var validation *service.ValidationError
	switch {
	case errors.As(err, &validation):
		sendError(w, http.StatusBadRequest, validation.Error())
	case errors.Is(err, service.ErrInvalidSession):
		sendError(w, http.StatusNotFound, "Invalid or expired session")
	case errors.Is(err, service.ErrAlreadyFinished):
		sendError(w, http.StatusBadRequest, "Game already over")
	case errors.Is(err, game.ErrCatalogTooSmall):
		log.Printf("❌ Cannot start game: %v", err)
		sendError(w, http.StatusServiceUnavailable, "Not enough coins to start a game")
	default:
		log.Printf("❌ %s: %v", fallback, err)
		sendError(w, http.StatusInternalServerError, fallback)
	}
}
