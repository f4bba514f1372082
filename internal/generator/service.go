package generator

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abdulachik/threadsmith/internal/analyzer"
	"github.com/abdulachik/threadsmith/internal/db"
	"github.com/abdulachik/threadsmith/internal/thread"
)

// PageAnalyzer fetches and analyzes a page.
type PageAnalyzer interface {
	Analyze(ctx context.Context, url string) (*analyzer.Analysis, error)
}

// Recorder persists generation results.
type Recorder interface {
	CreateGeneration(ctx context.Context, arg db.CreateGenerationParams) (db.Generation, error)
}

// Result is the outcome of one generation request.
type Result struct {
	ID       int64              `json:"id,omitempty"`
	Text     string             `json:"text"`
	Segments []string           `json:"segments"`
	IsThread bool               `json:"is_thread"`
	Analysis *analyzer.Analysis `json:"analysis"`
}

// Service answers generation requests.
type Service struct {
	pages    PageAnalyzer
	agent    *Agent
	provider string
	policy   thread.Policy
	recorder Recorder
}

// ServiceConfig holds the dependencies of a Service. Recorder is optional.
type ServiceConfig struct {
	Pages     PageAnalyzer
	Completer Completer
	Policy    thread.Policy
	Recorder  Recorder
}

// NewService creates a generation service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		pages:    cfg.Pages,
		agent:    NewAgent(cfg.Completer),
		provider: cfg.Completer.Name(),
		policy:   cfg.Policy.Normalize(),
		recorder: cfg.Recorder,
	}
}

// Analyze fetches url, writes a post about it and splits the post with the
// service policy.
func (s *Service) Analyze(ctx context.Context, url, instructions string) (*Result, error) {
	analysis, err := s.pages.Analyze(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("analyze page: %w", err)
	}

	text, err := s.agent.Generate(ctx, analysis, instructions)
	if err != nil {
		return nil, fmt.Errorf("generate post: %w", err)
	}

	segments := thread.Split(text, s.policy)
	result := &Result{
		Text:     text,
		Segments: segments.Texts(),
		IsThread: segments.IsThread(),
		Analysis: analysis,
	}

	if s.recorder != nil {
		id, err := s.record(ctx, url, instructions, result)
		if err != nil {
			slog.Warn("failed to record generation", "url", url, "error", err)
		} else {
			result.ID = id
		}
	}

	slog.Info("post generated",
		"url", analysis.URL,
		"provider", s.provider,
		"segments", len(result.Segments),
		"is_thread", result.IsThread,
	)
	return result, nil
}

func (s *Service) record(ctx context.Context, url, instructions string, r *Result) (int64, error) {
	segments, err := json.Marshal(r.Segments)
	if err != nil {
		return 0, fmt.Errorf("marshal segments: %w", err)
	}

	instructions = strings.TrimSpace(instructions)
	gen, err := s.recorder.CreateGeneration(ctx, db.CreateGenerationParams{
		Url:          url,
		Instructions: sql.NullString{String: instructions, Valid: instructions != ""},
		Title:        sql.NullString{String: r.Analysis.Title, Valid: r.Analysis.Title != ""},
		Text:         r.Text,
		Segments:     string(segments),
		IsThread:     r.IsThread,
		Provider:     s.provider,
	})
	if err != nil {
		return 0, err
	}
	return gen.ID, nil
}
