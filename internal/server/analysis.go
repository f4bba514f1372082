package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/abdulachik/threadsmith/internal/analyzer"
	"github.com/abdulachik/threadsmith/internal/generator"
)

func (s *Server) handleURLAnalysis(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	url := strings.TrimSpace(q.Get("url"))
	if url == "" {
		writeError(w, http.StatusBadRequest, "missing_url", "URL is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	result, err := s.cfg.Generator.Analyze(ctx, url, q.Get("additional_text"))
	if err != nil {
		status, code := analysisFailure(err)
		slog.Warn("url analysis failed", "url", url, "status", status, "error", err)
		if code == "generation_failed" {
			s.health.SetUnhealthy("llm", err)
		}
		writeError(w, status, code, err.Error())
		return
	}

	s.health.SetHealthy("llm", "last generation succeeded")
	writeJSON(w, http.StatusOK, result)
}

func analysisFailure(err error) (int, string) {
	var stageErr *generator.StageError
	switch {
	case errors.Is(err, analyzer.ErrInvalidURL):
		return http.StatusBadRequest, "invalid_url"
	case errors.Is(err, analyzer.ErrDisallowed):
		return http.StatusBadGateway, "disallowed"
	case errors.Is(err, analyzer.ErrNoContent), errors.Is(err, generator.ErrNoSamples):
		return http.StatusBadGateway, "no_content"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway, "timeout"
	case errors.As(err, &stageErr):
		return http.StatusBadGateway, "generation_failed"
	default:
		return http.StatusBadGateway, "analysis_failed"
	}
}
