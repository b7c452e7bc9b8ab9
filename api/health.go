package api

import (
	"net/http"
)

// handleHealthCheck handles GET /api/health
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := map[string]interface{}{
		"success": true,
		"message": "Health check completed",
	}
	for _, hc := range s.cfg.Checks {
		status := "ok"
		if err := hc.Check(ctx); err != nil {
			status = "error: " + err.Error()
		}
		response[hc.Name] = status
	}

	respondJSON(w, http.StatusOK, response)
}
