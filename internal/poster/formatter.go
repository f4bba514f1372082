package poster

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abdulachik/threadsmith/internal/thread"
)

const (
	// BlueskyMaxLength is the maximum character count for a Bluesky post.
	BlueskyMaxLength = 300

	// TwitterMaxLength is the maximum character count for a Twitter post.
	TwitterMaxLength = 280
)

// ErrPostTooLong is returned when a post exceeds the platform limit.
var ErrPostTooLong = errors.New("post exceeds platform limit")

// MaxLength returns the character limit for platform, or 0 if unknown.
func MaxLength(platform string) int {
	switch platform {
	case "twitter":
		return TwitterMaxLength
	case "bluesky":
		return BlueskyMaxLength
	}
	return 0
}

// FitsInLimit checks if text fits within the limit, counting
// user-perceived characters.
func FitsInLimit(text string, limit int) bool {
	return thread.Len(text) <= limit
}

// ValidateParts checks a thread before any request is made. limit <= 0
// skips the length check.
func ValidateParts(parts []Part, limit int) error {
	if len(parts) == 0 {
		return ErrEmptyThread
	}
	for i, p := range parts {
		if strings.TrimSpace(p.Text) == "" && p.Image == nil {
			return fmt.Errorf("post %d: empty text", i+1)
		}
		if limit > 0 && !FitsInLimit(p.Text, limit) {
			return fmt.Errorf("post %d (%d chars): %w", i+1, thread.Len(p.Text), ErrPostTooLong)
		}
	}
	return nil
}

// Texts returns the text of every part.
func Texts(parts []Part) []string {
	texts := make([]string, len(parts))
	for i, p := range parts {
		texts[i] = p.Text
	}
	return texts
}

// PartsFromTexts builds image-less parts.
func PartsFromTexts(texts []string) []Part {
	parts := make([]Part, len(texts))
	for i, t := range texts {
		parts[i] = Part{Text: t}
	}
	return parts
}
