package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abdulachik/threadsmith/internal/analyzer"
)

var (
	// ErrNoSamples is returned when an analysis has no paragraphs to write from.
	ErrNoSamples = errors.New("no sample paragraphs to generate from")

	// ErrEmptyResponse is returned when the model answers with no text.
	ErrEmptyResponse = errors.New("empty response")
)

// StageError is a failure of one step of the generation chain, usually a
// provider error.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + " stage: " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Agent runs the summarize, review and reach chain.
type Agent struct {
	completer Completer
}

// NewAgent creates an Agent backed by completer.
func NewAgent(completer Completer) *Agent {
	return &Agent{completer: completer}
}

type stage struct {
	name   string
	system string
	user   func(prev string) string
}

// Generate writes a post about the analyzed page. instructions, when set,
// are passed to the model verbatim.
func (a *Agent) Generate(ctx context.Context, analysis *analyzer.Analysis, instructions string) (string, error) {
	if analysis == nil || len(analysis.SampleParagraphs) == 0 {
		return "", ErrNoSamples
	}

	prompt := BuildContext(analysis, instructions)
	stages := []stage{
		{"summarize", summarizeSystem, func(string) string { return fmt.Sprintf(summarizeUser, prompt) }},
		{"review", reviewSystem, func(prev string) string { return fmt.Sprintf(draftUser, prev) }},
		{"reach", reachSystem, func(prev string) string { return fmt.Sprintf(draftUser, prev) }},
	}

	var draft string
	for _, s := range stages {
		out, err := a.completer.Complete(ctx, s.system, s.user(draft))
		if err != nil {
			return "", &StageError{Stage: s.name, Err: err}
		}
		out = PlainText(out)
		if out == "" {
			return "", &StageError{Stage: s.name, Err: ErrEmptyResponse}
		}
		slog.Debug("generation stage complete", "stage", s.name, "chars", len(out))
		draft = out
	}

	return draft, nil
}

// BuildContext renders the analysis and sample paragraphs as the first
// stage's prompt body.
func BuildContext(analysis *analyzer.Analysis, instructions string) string {
	var b strings.Builder

	if analysis.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", analysis.Title)
	}
	if analysis.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", analysis.Description)
	}
	fmt.Fprintf(&b, "Tone: %s\n", strings.Join(analysis.ToneIndicators, ", "))
	fmt.Fprintf(&b, "Paragraph stats: count=%d, avg_sentences=%.1f, avg_words=%.1f\n",
		analysis.ParagraphStats.Count, analysis.ParagraphStats.AvgSentences, analysis.ParagraphStats.AvgWords)
	fmt.Fprintf(&b, "Structure: sections=%d, lists=%d\n", analysis.Structure.Sections, analysis.Structure.Lists)
	fmt.Fprintf(&b, "Content stats: avg_word_length=%.1f\n", analysis.ContentStats.AvgWordLength)

	if instructions = strings.TrimSpace(instructions); instructions != "" {
		fmt.Fprintf(&b, "\nAdditional Instructions: %s\n", instructions)
	}

	b.WriteString("\n")
	b.WriteString(strings.Join(analysis.SampleParagraphs, "\n\n"))
	return b.String()
}
