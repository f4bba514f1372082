package attach

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// TempPreviewer materializes previews as copies in a scratch directory.
type TempPreviewer struct {
	dir string

	mu   sync.Mutex
	live map[string]struct{}
}

// NewTempPreviewer creates a previewer that writes under dir, creating it if
// needed. An empty dir uses the system temp directory.
func NewTempPreviewer(dir string) (*TempPreviewer, error) {
	if dir == "" {
		d, err := os.MkdirTemp("", "threadsmith-previews-")
		if err != nil {
			return nil, fmt.Errorf("create preview dir: %w", err)
		}
		dir = d
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create preview dir: %w", err)
	}

	return &TempPreviewer{
		dir:  dir,
		live: make(map[string]struct{}),
	}, nil
}

// Acquire copies the image into the scratch directory.
func (p *TempPreviewer) Acquire(img Image) (Preview, error) {
	src, err := os.Open(img.Path)
	if err != nil {
		return Preview{}, fmt.Errorf("open image: %w", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(p.dir, "preview-*"+filepath.Ext(img.Name))
	if err != nil {
		return Preview{}, fmt.Errorf("create preview: %w", err)
	}

	if _, err := io.Copy(dst, io.LimitReader(src, MaxImageSize+1)); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return Preview{}, fmt.Errorf("copy preview: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return Preview{}, fmt.Errorf("close preview: %w", err)
	}

	p.mu.Lock()
	p.live[dst.Name()] = struct{}{}
	p.mu.Unlock()

	slog.Debug("preview acquired", "image", img.Name, "preview", dst.Name())
	return Preview{ID: dst.Name(), Image: img}, nil
}

// Release removes the preview copy.
func (p *TempPreviewer) Release(preview Preview) error {
	p.mu.Lock()
	_, ok := p.live[preview.ID]
	delete(p.live, preview.ID)
	p.mu.Unlock()

	if !ok {
		return fmt.Errorf("release preview %s: not acquired", preview.ID)
	}
	if err := os.Remove(preview.ID); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove preview: %w", err)
	}
	return nil
}

// Live returns the number of previews acquired and not yet released.
func (p *TempPreviewer) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

// Dir returns the scratch directory.
func (p *TempPreviewer) Dir() string {
	return p.dir
}
