// Package composer drives one post from URL to publication: generate,
// review and edit, attach images, publish, start over.
package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/abdulachik/threadsmith/internal/attach"
	"github.com/abdulachik/threadsmith/internal/client"
	"github.com/abdulachik/threadsmith/internal/notify"
	"github.com/abdulachik/threadsmith/internal/poster"
	"github.com/abdulachik/threadsmith/internal/thread"
	"github.com/abdulachik/threadsmith/internal/vectorstore"
)

// ErrNothingToPublish is returned by Publish before a post was generated.
var ErrNothingToPublish = errors.New("nothing to publish: generate a post first")

// Step is where the composer is in the workflow.
type Step int

const (
	StepInput Step = iota
	StepPreview
	StepPosted
)

func (s Step) String() string {
	switch s {
	case StepPreview:
		return "preview"
	case StepPosted:
		return "posted"
	default:
		return "input"
	}
}

// Generator produces a post for a page.
type Generator interface {
	Generate(ctx context.Context, url, instructions string) (*client.Generation, error)
}

// Publisher publishes a thread.
type Publisher interface {
	PublishFor(ctx context.Context, generationID int64, parts []poster.Part) (*client.PublishResult, error)
}

// History remembers published posts.
type History interface {
	Similar(ctx context.Context, text string, threshold float32, maxResults int) ([]vectorstore.Match, error)
	Add(ctx context.Context, r vectorstore.Record) (uint64, error)
}

// Config holds the composer's collaborators. Notifier, History and
// Previewer are optional.
type Config struct {
	Generator Generator
	Publisher Publisher
	Notifier  notify.Notifier
	Previewer attach.Previewer
	History   History

	// Policy splits generated text the backend did not segment.
	Policy thread.Policy
	// SimilarityThreshold is the score at which a published post counts
	// as similar. 0 disables the check.
	SimilarityThreshold float32
	// Platform names the destination in history records.
	Platform string
}

// Composer holds the state of one post being prepared. It is safe for
// concurrent use.
type Composer struct {
	cfg         Config
	attachments *attach.Set

	mu           sync.Mutex
	step         Step
	url          string
	generationID int64
	text         string
	thread       thread.Thread
	published    *client.PublishResult
}

// New creates a composer.
func New(cfg Config) *Composer {
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Discard{}
	}
	if cfg.Previewer == nil {
		cfg.Previewer = noPreview{}
	}
	if cfg.Platform == "" {
		cfg.Platform = "twitter"
	}
	cfg.Policy = cfg.Policy.Normalize()

	return &Composer{
		cfg:         cfg,
		attachments: attach.NewSet(cfg.Previewer),
	}
}

// Step returns the current workflow step.
func (c *Composer) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Thread returns a copy of the thread under review.
func (c *Composer) Thread() thread.Thread {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append(thread.Thread(nil), c.thread...)
}

// Text returns the generated text the thread was built from.
func (c *Composer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// URL returns the page the current post was generated from.
func (c *Composer) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

// Published returns the result of the last publish, or nil.
func (c *Composer) Published() *client.PublishResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.published
}

// Attachments returns the attached images.
func (c *Composer) Attachments() *attach.Set {
	return c.attachments
}

// Generate requests a post for url. Backend segments are used as they are;
// otherwise the text is split locally. On failure the previous state is
// kept.
func (c *Composer) Generate(ctx context.Context, url, instructions string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		c.send(ctx, notify.URLRequired())
		return client.ErrMissingURL
	}

	gen, err := c.cfg.Generator.Generate(ctx, url, instructions)
	if err != nil {
		c.send(ctx, notify.Failed("Generation failed", err))
		return err
	}

	var th thread.Thread
	if len(gen.Segments) > 0 {
		th = thread.FromTexts(gen.Segments)
	} else {
		th = thread.Split(gen.Text, c.cfg.Policy)
	}

	c.mu.Lock()
	c.step = StepPreview
	c.url = url
	c.generationID = gen.ID
	c.text = gen.Text
	c.thread = th
	c.published = nil
	c.mu.Unlock()

	// Images belong to the previous thread's segments.
	if err := c.attachments.Clear(); err != nil {
		slog.Warn("failed to release previews", "error", err)
	}

	slog.Info("post ready for review", "url", url, "segments", th.Len(), "server_segmented", len(gen.Segments) > 0)
	c.send(ctx, notify.Generated(th.IsThread(), th.Len()))
	return nil
}

// Edit replaces the text of one segment. The thread is not re-split.
func (c *Composer) Edit(index int, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.thread.Replace(index, text)
}

// Attach validates the image at path and attaches it to segment index,
// replacing any image already there.
func (c *Composer) Attach(ctx context.Context, index int, path string) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}

	img, err := attach.Validate(path)
	if err != nil {
		if errors.Is(err, attach.ErrImageTooLarge) {
			c.send(ctx, notify.FileTooLarge())
		} else {
			c.send(ctx, notify.Failed("Invalid image", err))
		}
		return err
	}
	if err := c.attachments.Set(index, img); err != nil {
		return err
	}

	c.send(ctx, notify.ImageAttached(index))
	return nil
}

// Detach removes the image of segment index, if any.
func (c *Composer) Detach(ctx context.Context, index int) error {
	removed, err := c.attachments.Remove(index)
	if removed {
		c.send(ctx, notify.ImageRemoved(index))
	}
	return err
}

func (c *Composer) checkIndex(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.thread) {
		return fmt.Errorf("segment %d: %w", index, thread.ErrIndexOutOfRange)
	}
	return nil
}

// Parts builds the publishable thread, reading attached images from disk.
func (c *Composer) Parts() ([]poster.Part, error) {
	th := c.Thread()
	parts := poster.PartsFromTexts(th.Texts())
	for _, i := range c.attachments.Indices() {
		if i >= len(parts) {
			continue
		}
		img, _ := c.attachments.Get(i)
		data, err := os.ReadFile(img.Path)
		if err != nil {
			return nil, fmt.Errorf("read image for post %d: %w", i+1, err)
		}
		parts[i].Image = &poster.Media{Name: img.Name, ContentType: img.ContentType, Data: data}
	}
	return parts, nil
}

// Similar returns previously published posts close to the current thread.
func (c *Composer) Similar(ctx context.Context) ([]vectorstore.Match, error) {
	if c.cfg.History == nil || c.cfg.SimilarityThreshold <= 0 {
		return nil, nil
	}
	text := c.plainText()
	if text == "" {
		return nil, nil
	}
	return c.cfg.History.Similar(ctx, text, c.cfg.SimilarityThreshold, 3)
}

// Publish sends the thread. A similar earlier post only produces a warning.
// On failure the thread and its images are kept for another attempt.
func (c *Composer) Publish(ctx context.Context) (*client.PublishResult, error) {
	c.mu.Lock()
	step, generationID := c.step, c.generationID
	c.mu.Unlock()
	if step != StepPreview {
		return nil, ErrNothingToPublish
	}

	if matches, err := c.Similar(ctx); err != nil {
		slog.Warn("similarity check failed", "error", err)
	} else if len(matches) > 0 {
		c.send(ctx, notify.SimilarPost(matches[0].Similarity, matches[0].URL))
	}

	parts, err := c.Parts()
	if err != nil {
		c.send(ctx, notify.Failed("Publish failed", err))
		return nil, err
	}
	if err := poster.ValidateParts(parts, 0); err != nil {
		c.send(ctx, notify.Failed("Publish failed", err))
		return nil, err
	}

	result, err := c.cfg.Publisher.PublishFor(ctx, generationID, parts)
	if err != nil {
		var authErr *client.AuthRequiredError
		if errors.As(err, &authErr) {
			c.send(ctx, notify.AuthRequired(authErr.LoginURL))
			return nil, err
		}

		// Posts that went live cannot be sent again without duplicating
		// the head of the thread, so a partial publish ends the workflow.
		if ids := postedIDs(err); len(ids) > 0 {
			c.mu.Lock()
			c.step = StepPosted
			c.published = &client.PublishResult{
				TweetCount:   len(ids),
				FirstTweetID: ids[0],
				PostIDs:      ids,
			}
			c.mu.Unlock()
			err = fmt.Errorf("%d of %d posts published: %w", len(ids), len(parts), err)
		}
		c.send(ctx, notify.Failed("Publish failed", err))
		return nil, err
	}

	images := c.attachments.Len()
	c.mu.Lock()
	c.step = StepPosted
	c.published = result
	c.mu.Unlock()

	c.remember(ctx, result)
	c.send(ctx, notify.Published(len(parts) > 1, len(parts), images, result.Simulated))
	return result, nil
}

func (c *Composer) remember(ctx context.Context, result *client.PublishResult) {
	if c.cfg.History == nil || result.Simulated {
		return
	}
	_, err := c.cfg.History.Add(ctx, vectorstore.Record{
		Platform: c.cfg.Platform,
		RootID:   result.FirstTweetID,
		URL:      result.URL,
		Text:     c.plainText(),
		PostedAt: time.Now(),
	})
	if err != nil {
		slog.Warn("failed to record post history", "error", err)
	}
}

// plainText joins the segments without their position markers.
func (c *Composer) plainText() string {
	th := c.Thread()
	texts := make([]string, len(th))
	for i, s := range th {
		texts[i] = thread.StripPrefix(s.Text)
	}
	return strings.TrimSpace(strings.Join(texts, " "))
}

// Reset starts over, releasing every image preview.
func (c *Composer) Reset() error {
	c.mu.Lock()
	c.step = StepInput
	c.url = ""
	c.generationID = 0
	c.text = ""
	c.thread = nil
	c.published = nil
	c.mu.Unlock()

	return c.attachments.Clear()
}

func (c *Composer) send(ctx context.Context, n notify.Notification) {
	if err := c.cfg.Notifier.Send(ctx, n); err != nil {
		slog.Warn("failed to send notification", "subject", n.Subject, "error", err)
	}
}

// noPreview is used when no previewer is configured.
type noPreview struct{}

func (noPreview) Acquire(img attach.Image) (attach.Preview, error) {
	return attach.Preview{ID: img.Path, Image: img}, nil
}

func (noPreview) Release(attach.Preview) error { return nil }

// postedIDs returns the ids of posts already live when err interrupted a
// thread, from either the backend or a direct poster.
func postedIDs(err error) []string {
	var svcErr *client.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.PostIDs
	}
	var partial *poster.PartialError
	if errors.As(err, &partial) {
		return partial.PostIDs
	}
	return nil
}
