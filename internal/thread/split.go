package thread

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

var (
	sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)
	trailingTerminal = regexp.MustCompile(`[.!?]+$`)
	prefixPattern    = regexp.MustCompile(`^\d+/\d+ `)
)

const sentenceSuffix = ". "

// Split converts text into a thread according to policy.
//
// Split never fails: invalid policies fall back to defaults and the empty
// string yields a single empty segment.
func Split(text string, policy Policy) Thread {
	p := policy.Normalize()

	length := Len(text)
	if length <= p.SoftLimit || length <= p.HardLimit {
		return Thread{{Index: 0, Text: text}}
	}

	estimate := Estimate(length, p.HardLimit)
	queue := sentenceUnits(text)

	var (
		texts  []string
		acc    strings.Builder
		number = 1
	)

	flush := func() {
		texts = append(texts, Prefix(number, estimate)+strings.TrimRightFunc(acc.String(), unicode.IsSpace))
		acc.Reset()
		number++
	}

	for len(queue) > 0 {
		unit := queue[0]
		queue = queue[1:]

		if acc.Len() > 0 && Len(Prefix(number, estimate)+acc.String()+unit) > p.HardLimit {
			flush()
		}

		// A unit that cannot fit even on its own is cut at a word boundary;
		// the remainder starts the next segment.
		if acc.Len() == 0 {
			prefix := Prefix(number, estimate)
			if Len(prefix+strings.TrimRightFunc(unit, unicode.IsSpace)) > p.HardLimit {
				head, rest := cut(unit, p.HardLimit-Len(prefix))
				if rest != "" {
					queue = append([]string{rest}, queue...)
				}
				unit = head
			}
		}

		acc.WriteString(unit)
	}

	if strings.TrimSpace(acc.String()) != "" {
		flush()
	}

	if len(texts) == 0 {
		// Only whitespace was left after sentence extraction.
		return Thread{{Index: 0, Text: strings.TrimSpace(text)}}
	}

	return FromTexts(texts)
}

// sentenceUnits splits text on sentence boundaries and re-terminates every
// sentence with ". ". Blank sentences are dropped.
func sentenceUnits(text string) []string {
	parts := sentenceBoundary.Split(text, -1)

	units := make([]string, 0, len(parts))
	for i, part := range parts {
		sentence := strings.TrimSpace(part)
		if i == len(parts)-1 {
			sentence = trailingTerminal.ReplaceAllString(sentence, "")
		}
		if sentence == "" {
			continue
		}
		units = append(units, sentence+sentenceSuffix)
	}
	return units
}

// cut splits s so that the head, once trailing whitespace is trimmed, is at
// most budget characters long. It prefers the last whitespace boundary and
// falls back to a grapheme boundary for words longer than budget.
func cut(s string, budget int) (head, rest string) {
	if budget < 1 {
		budget = 1
	}

	var (
		count   int
		wordEnd = -1
	)

	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		start, end := gr.Positions()
		runes := gr.Runes()
		space := len(runes) > 0 && unicode.IsSpace(runes[0])

		if space {
			if count > 0 && count <= budget {
				wordEnd = end
			}
			count++
			continue
		}

		if count+1 > budget {
			split := start
			if wordEnd > 0 {
				split = wordEnd
			}
			if split == 0 {
				split = end
			}
			return s[:split], strings.TrimLeftFunc(s[split:], unicode.IsSpace)
		}
		count++
	}

	return s, ""
}
