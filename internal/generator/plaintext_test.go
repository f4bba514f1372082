package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Go 1.24 ships generic aliases.", "Go 1.24 ships generic aliases."},
		{"emphasis", "This is **really** _fast_.", "This is really fast."},
		{"heading", "# Big news\n\nGo is out.", "Big news\n\nGo is out."},
		{"link", "Read [the post](https://go.dev/blog) now", "Read the post (https://go.dev/blog) now"},
		{"autolink", "See <https://go.dev>", "See https://go.dev"},
		{"bare url stays", "See https://go.dev/doc for more", "See https://go.dev/doc for more"},
		{"hashtags", "Ship it. #golang #backend", "Ship it. #golang #backend"},
		{"code span", "Use `go test -race` daily", "Use go test -race daily"},
		{"bullet list", "Wins:\n\n- faster builds\n- smaller binaries", "Wins:\n\n- faster builds\n- smaller binaries"},
		{"ordered list", "1. one\n2. two", "1. one\n2. two"},
		{"soft breaks kept", "line one\nline two", "line one\nline two"},
		{"wrapping quotes", `"A quoted post."`, "A quoted post."},
		{"smart quotes", "“A quoted post.”", "A quoted post."},
		{"inner quotes kept", `"Go" beats "Rust"`, `"Go" beats "Rust"`},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.in))
		})
	}
}
