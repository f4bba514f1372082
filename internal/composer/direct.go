package composer

import (
	"context"

	"github.com/abdulachik/threadsmith/internal/client"
	"github.com/abdulachik/threadsmith/internal/poster"
)

// DirectPublisher posts straight to a platform without the backend, for
// platforms authenticated with local credentials such as Bluesky.
type DirectPublisher struct {
	Poster poster.Poster
}

// PublishFor posts parts with the poster. generationID is not used.
func (d DirectPublisher) PublishFor(ctx context.Context, _ int64, parts []poster.Part) (*client.PublishResult, error) {
	if err := poster.ValidateParts(parts, poster.MaxLength(d.Poster.Platform())); err != nil {
		return nil, err
	}

	result, err := d.Poster.PostThread(ctx, "", parts)
	if err != nil {
		return nil, err
	}

	images := 0
	for _, p := range parts {
		if p.Image != nil {
			images++
		}
	}
	return &client.PublishResult{
		Success:      true,
		Message:      result.Message,
		TweetCount:   len(parts),
		ImageCount:   images,
		FirstTweetID: result.RootID,
		PostIDs:      result.PostIDs,
		URL:          result.URL,
		Simulated:    result.Simulated,
	}, nil
}
