package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/abdulachik/threadsmith/internal/feed"
)

type articlesResponse struct {
	Articles []feed.Article `json:"articles"`
	Source   string         `json:"source"`
	Count    int            `json:"count"`
	Error    string         `json:"error,omitempty"`
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	source := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("source")))
	if source == "" {
		source = s.cfg.DefaultSource
	}

	articles, err := s.cfg.Articles.Fetch(r.Context(), source)
	if err != nil {
		status := http.StatusOK
		if errors.Is(err, feed.ErrUnknownSource) {
			status = http.StatusBadRequest
		}
		slog.Warn("article fetch failed", "source", source, "error", err)
		writeJSON(w, status, articlesResponse{Articles: []feed.Article{}, Source: source, Error: err.Error()})
		return
	}
	if articles == nil {
		articles = []feed.Article{}
	}

	writeJSON(w, http.StatusOK, articlesResponse{Articles: articles, Source: source, Count: len(articles)})
}

type sourcesResponse struct {
	Sources []string `json:"sources"`
	Default string   `json:"default"`
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sourcesResponse{Sources: s.cfg.Articles.Names(), Default: s.cfg.DefaultSource})
}
