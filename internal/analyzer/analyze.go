package analyzer

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoContent is returned when a page has no substantive paragraphs.
var ErrNoContent = errors.New("no substantive paragraphs found on page")

const maxSamples = 3

// Analysis describes the structure and style of a blog post.
type Analysis struct {
	URL              string         `json:"url,omitempty"`
	Title            string         `json:"title"`
	Author           string         `json:"author"`
	PubDate          string         `json:"pub_date"`
	Description      string         `json:"description"`
	MainImage        string         `json:"main_image"`
	AllImages        []string       `json:"all_images"`
	ParagraphStats   ParagraphStats `json:"paragraph_stats"`
	Structure        Structure      `json:"structure"`
	ContentStats     ContentStats   `json:"content_stats"`
	ToneIndicators   []string       `json:"tone_indicators"`
	SampleParagraphs []string       `json:"sample_paragraphs"`
}

// ParagraphStats summarizes the substantive paragraphs.
type ParagraphStats struct {
	Count        int     `json:"count"`
	AvgSentences float64 `json:"avg_sentences"`
	AvgWords     float64 `json:"avg_words"`
}

// Structure counts structural elements of the main content.
type Structure struct {
	Sections int `json:"sections"`
	Lists    int `json:"lists"`
}

// ContentStats holds word level statistics.
type ContentStats struct {
	AvgWordLength float64 `json:"avg_word_length"`
}

const (
	mainContentSelector = "main, article, .content, #content, .post, .article, .entry-content"
	chromeSelector      = "nav, footer, header, aside, .sidebar, .menu, .navigation, .footer, .comments, .widget"
)

var (
	parentClassTerms    = []string{"comment", "widget", "sidebar", "footer", "menu", "nav", "author", "meta"}
	paragraphClassTerms = []string{"meta", "info", "date", "author", "tag", "button", "caption"}
	uiGlyphs            = []string{"→", "⟶", "▶", "»", "☰", "✓"}
	skippedParents      = []string{"td", "th", "li", "button", "label", "a"}
	formalIndicators    = []string{"therefore", "consequently", "furthermore", "moreover", "thus"}
	casualIndicators    = []string{"don't", "won't", "can't", "let's", "awesome", "cool", "great"}

	numberedItem     = regexp.MustCompile(`^\d+\.`)
	attribution      = regexp.MustCompile(`©|\bcopyright\b|\ball rights reserved\b|\bposted on\b|\bby\b.*\bon\b.*\d{4}`)
	twoTerminals     = regexp.MustCompile(`[.!?].*[.!?]`)
	listLike         = regexp.MustCompile(`^(?:[•\-*]|\d+\.\s)`)
	sentenceSplitter = regexp.MustCompile(`[.!?]+`)
	bylineClass      = regexp.MustCompile(`(?i)byline|author`)
)

// Analyze extracts metadata, substantive paragraphs and style statistics
// from an HTML document.
func Analyze(html string) (*Analysis, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	a := &Analysis{
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		Author:      metaContent(doc, `meta[name="author"]`),
		PubDate:     metaContent(doc, `meta[property="article:published_time"]`),
		Description: metaContent(doc, `meta[name="description"]`),
	}

	if og := metaContent(doc, `meta[property="og:title"]`); og != "" {
		a.Title = og
	}
	if byline := findByline(doc); byline != "" {
		a.Author = byline
	}
	if dt, ok := doc.Find("time").First().Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
		a.PubDate = strings.TrimSpace(dt)
	}
	if og := metaContent(doc, `meta[property="og:description"]`); og != "" {
		a.Description = og
	}

	main := doc.Find(mainContentSelector).First()
	hasMain := main.Length() > 0
	if !hasMain {
		main = doc.Selection
	}

	a.MainImage = metaContent(doc, `meta[property="og:image"]`)
	if a.MainImage == "" && hasMain {
		a.MainImage, _ = main.Find("img[src]").First().Attr("src")
	}

	a.AllImages = []string{}
	main.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
		if src, _ := img.Attr("src"); src != "" {
			a.AllImages = append(a.AllImages, src)
		}
	})

	doc.Find(chromeSelector).Remove()

	excluded := make(map[string]bool)
	main.Find("h1, h2, h3, h4, h5, h6, th, td, caption, button, label, input, select, textarea").Each(func(_ int, s *goquery.Selection) {
		excluded[strings.TrimSpace(s.Text())] = true
	})

	var paragraphs []string
	main.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text, ok := substantive(p, excluded); ok {
			paragraphs = append(paragraphs, text)
		}
	})

	var filtered []string
	for _, text := range paragraphs {
		if utf8.RuneCountInString(text) < 100 && len(strings.Fields(text)) < 20 && !twoTerminals.MatchString(text) {
			continue
		}
		if listLike.MatchString(text) {
			continue
		}
		filtered = append(filtered, text)
	}

	if len(filtered) == 0 {
		return nil, ErrNoContent
	}

	a.SampleParagraphs = []string{}
	for _, p := range filtered {
		if len(a.SampleParagraphs) == maxSamples {
			break
		}
		if len(strings.Fields(p)) > 15 {
			a.SampleParagraphs = append(a.SampleParagraphs, p)
		}
	}

	var sentenceCounts, wordCounts []int
	var totalWordLength, totalWords int
	for _, p := range filtered {
		sentences := 0
		for _, s := range sentenceSplitter.Split(p, -1) {
			if strings.TrimSpace(s) != "" {
				sentences++
			}
		}
		sentenceCounts = append(sentenceCounts, sentences)

		words := strings.Fields(p)
		wordCounts = append(wordCounts, len(words))
		for _, w := range words {
			totalWordLength += utf8.RuneCountInString(w)
		}
		totalWords += len(words)
	}

	a.ParagraphStats = ParagraphStats{
		Count:        len(filtered),
		AvgSentences: round1(mean(sentenceCounts)),
		AvgWords:     round1(mean(wordCounts)),
	}
	a.Structure = Structure{
		Sections: main.Find("h1, h2, h3, h4, h5, h6").Length(),
		Lists:    main.Find("ul, ol").Length(),
	}

	avgWordLength := 0.0
	if totalWords > 0 {
		avgWordLength = float64(totalWordLength) / float64(totalWords)
	}
	a.ContentStats = ContentStats{AvgWordLength: round1(avgWordLength)}
	a.ToneIndicators = tone(strings.Join(filtered, " "), avgWordLength)

	return a, nil
}

// substantive applies the paragraph filters and returns the trimmed text of
// paragraphs that look like real prose.
func substantive(p *goquery.Selection, excluded map[string]bool) (string, bool) {
	style, _ := p.Attr("style")
	if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
		return "", false
	}

	text := strings.TrimSpace(p.Text())
	if text == "" {
		return "", false
	}

	parent := p.Parent()
	if classes, ok := parent.Attr("class"); ok && containsAny(strings.ToLower(classes), parentClassTerms) {
		return "", false
	}

	if excluded[text] {
		return "", false
	}

	if utf8.RuneCountInString(text) < 80 {
		if len(strings.Fields(text)) < 15 && !strings.HasSuffix(text, ".") && !strings.HasSuffix(text, "!") && !strings.HasSuffix(text, "?") {
			return "", false
		}
		if looksLikeHeading(text) {
			return "", false
		}
		if strings.HasPrefix(text, "-") || strings.HasPrefix(text, "•") || strings.HasPrefix(text, "*") || numberedItem.MatchString(text) {
			return "", false
		}
		if containsAny(text, uiGlyphs) {
			return "", false
		}
	}

	if parent.Length() > 0 && slices.Contains(skippedParents, goquery.NodeName(parent)) {
		return "", false
	}

	if classes, ok := p.Attr("class"); ok && containsAny(strings.ToLower(classes), paragraphClassTerms) {
		return "", false
	}

	if attribution.MatchString(strings.ToLower(text)) {
		return "", false
	}

	return text, true
}

func looksLikeHeading(text string) bool {
	if isUpper(text) {
		return true
	}
	first, _ := utf8.DecodeRuneInString(text)
	return unicode.IsUpper(first) && !strings.ContainsAny(text, ".,;")
}

// isUpper reports whether text has at least one cased letter and no
// lowercase ones.
func isUpper(text string) bool {
	cased := false
	for _, r := range text {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}

func tone(text string, avgWordLength float64) []string {
	lower := strings.ToLower(text)

	var indicators []string
	if containsAny(lower, formalIndicators) {
		indicators = append(indicators, "formal")
	}
	if containsAny(lower, casualIndicators) {
		indicators = append(indicators, "casual")
	}
	if avgWordLength > 6 {
		indicators = append(indicators, "technical")
	}
	if strings.ContainsAny(text, "?!") {
		indicators = append(indicators, "conversational")
	}
	if len(indicators) == 0 {
		indicators = append(indicators, "neutral")
	}
	return indicators
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

func findByline(doc *goquery.Document) string {
	byline := doc.Find("[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		classes, _ := s.Attr("class")
		for _, class := range strings.Fields(classes) {
			if bylineClass.MatchString(class) {
				return true
			}
		}
		return false
	}).First()

	if byline.Length() == 0 {
		return ""
	}
	return strings.Join(strings.Fields(byline.Text()), " ")
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

func mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
