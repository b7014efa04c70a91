// ABOUTME: Liveness and readiness endpoints
// ABOUTME: Readiness reports live ticket count and dropped request log records

package server

import (
	"net/http"
)

// ReadyResponse is the JSON response for GET /health/ready.
type ReadyResponse struct {
	Status         string `json:"status"`
	Tickets        int    `json:"tickets"`
	DroppedLogRecs uint64 `json:"dropped_log_records"`
}

// handleHealth is the liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady reports store size and request log drops.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ReadyResponse{
		Status:         "ready",
		Tickets:        s.tickets.Len(),
		DroppedLogRecs: s.reqlog.Dropped(),
	})
}
