package feed

import (
	"strings"
)

// SensitiveTopics keeps divisive or distressing stories out of the feed.
var SensitiveTopics = []string{
	// Political figures
	"trump", "biden", "obama", "clinton", "putin", "xi jinping",
	"maga", "democrat", "republican",

	// Hot-button political issues
	"abortion", "gun control", "second amendment",
	"deportation",

	// Tragedy/violence
	"shooting", "massacre", "terrorist", "terrorism",
	"murder", "death toll", "casualties",
	"suicide", "self-harm",

	// Explicit content
	"nsfw", "porn", "nude",

	// Hate speech related
	"racist", "racism", "nazi", "white supremac", "hate crime",

	// Conspiracy theories
	"qanon", "deep state", "flat earth", "anti-vax",
}

// Filter checks articles for sensitive content and minimum score.
type Filter struct {
	sensitiveTerms []string
	minScore       int
}

// FilterConfig holds filter configuration.
type FilterConfig struct {
	AdditionalTerms []string
	MinScore        int
}

// NewFilter creates a new filter.
func NewFilter(cfg FilterConfig) *Filter {
	terms := make([]string, 0, len(SensitiveTopics)+len(cfg.AdditionalTerms))
	terms = append(terms, SensitiveTopics...)
	terms = append(terms, cfg.AdditionalTerms...)

	for i, term := range terms {
		terms[i] = strings.ToLower(term)
	}

	return &Filter{
		sensitiveTerms: terms,
		minScore:       cfg.MinScore,
	}
}

// FilterResult contains the filter decision.
type FilterResult struct {
	Pass   bool
	Reason string
}

// Check examines an article. The score threshold only applies to sources
// that report a score.
func (f *Filter) Check(a Article) FilterResult {
	if f.minScore > 0 && a.Score > 0 && a.Score < f.minScore {
		return FilterResult{
			Pass:   false,
			Reason: "score below threshold",
		}
	}

	text := strings.ToLower(a.Title + " " + a.Description)
	for _, term := range f.sensitiveTerms {
		if strings.Contains(text, term) {
			return FilterResult{
				Pass:   false,
				Reason: "contains sensitive topic: " + term,
			}
		}
	}

	return FilterResult{Pass: true}
}

// Apply returns the articles that pass.
func (f *Filter) Apply(articles []Article) []Article {
	result := make([]Article, 0, len(articles))
	for _, a := range articles {
		if check := f.Check(a); check.Pass {
			result = append(result, a)
		}
	}
	return result
}
