package server

import (
	"net/http"

	"github.com/abdulachik/threadsmith/internal/scheduler"
)

type healthResponse struct {
	Status     string                      `json:"status"`
	Components map[string]scheduler.Status `json:"components"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		_ = s.health.Probe(r.Context(), "database", "reachable", s.store.PingContext)
	}

	resp := healthResponse{Status: "running", Components: s.health.Snapshot()}
	status := http.StatusOK
	if !s.health.Healthy() {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
