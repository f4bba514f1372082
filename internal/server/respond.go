package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type errorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	AuthURL string   `json:"auth_url,omitempty"`
	// PostIDs lists posts already live when a thread failed part way.
	PostIDs []string `json:"post_ids,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

func (s *Server) writeNotAuthenticated(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{
		Error:   "not_authenticated",
		Message: "Please authenticate with Twitter first",
		AuthURL: s.loginURL(),
	})
}
