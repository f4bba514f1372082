package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewConsoleNotifier(&buf)

	require.NoError(t, n.Send(context.Background(), Published(true, 3, 0, false)))
	require.NoError(t, n.Send(context.Background(), URLRequired()))
	require.NoError(t, n.Send(context.Background(), Notification{Subject: "Bare"}))

	assert.Equal(t,
		"✓ Thread Posted Successfully!: Your thread with 3 posts is now live\n"+
			"✗ URL Required: Please enter a blog URL to generate a post\n"+
			"• Bare\n",
		buf.String())
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	require.NoError(t, NewLogNotifier(logger).Send(context.Background(), Failed("Generation failed", errors.New("timeout"))))
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), `subject="Generation failed"`)
	assert.Contains(t, buf.String(), "body=timeout")
}

func TestMessages(t *testing.T) {
	tests := []struct {
		name string
		n    Notification
		want string
	}{
		{"single post", Published(false, 1, 0, false), "Your post is now live"},
		{"one image", Published(false, 1, 1, false), "Your post is now live with 1 image attached"},
		{"thread with images", Published(true, 4, 2, false), "Your thread with 4 posts is now live with 2 different images attached"},
		{"simulated", Published(false, 1, 0, true), "Your post is now live (simulated: the app's access level cannot post)"},
		{"generated thread", Generated(true, 3), "Your thread with 3 posts is ready for review"},
		{"generated post", Generated(false, 1), "Your post is ready for review"},
		{"attached", ImageAttached(0), "Image added to post 1"},
		{"removed", ImageRemoved(2), "Image removed from post 3"},
		{"too large", FileTooLarge(), "Please upload an image smaller than 5MB"},
		{"similar", SimilarPost(0.934, "https://x.com/i/status/1"), "A previously published post is 93% similar: https://x.com/i/status/1"},
		{"similar without url", SimilarPost(0.9, ""), "A previously published post is 90% similar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.n.Body)
		})
	}

	assert.Equal(t, Info, Published(false, 1, 0, true).Level)
	assert.Equal(t, "error", FileTooLarge().Level.String())
}
