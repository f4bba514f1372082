// Package attach tracks the optional image attached to each segment of a
// thread and the preview resources held for them.
package attach

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// MaxImageSize is the largest image accepted for a single post.
const MaxImageSize = 5 * 1024 * 1024

var (
	// ErrImageTooLarge is returned for images over MaxImageSize.
	ErrImageTooLarge = errors.New("image exceeds 5MB limit")

	// ErrNotImage is returned when the file content is not a supported image.
	ErrNotImage = errors.New("file is not a supported image")
)

var allowedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// Image is a validated image file on disk.
type Image struct {
	Name        string
	Path        string
	Size        int64
	ContentType string
}

// Validate checks that path points to a supported image within the size
// limit, without reading more than the sniffing header.
func Validate(path string) (Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Image{}, fmt.Errorf("stat image: %w", err)
	}
	if info.IsDir() {
		return Image{}, fmt.Errorf("%s: %w", path, ErrNotImage)
	}
	if info.Size() > MaxImageSize {
		return Image{}, fmt.Errorf("%s (%d bytes): %w", filepath.Base(path), info.Size(), ErrImageTooLarge)
	}

	f, err := os.Open(path)
	if err != nil {
		return Image{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Image{}, fmt.Errorf("read image: %w", err)
	}

	contentType := DetectContentType(head[:n])
	if !allowedTypes[contentType] {
		return Image{}, fmt.Errorf("%s (%s): %w", filepath.Base(path), contentType, ErrNotImage)
	}

	return Image{
		Name:        filepath.Base(path),
		Path:        path,
		Size:        info.Size(),
		ContentType: contentType,
	}, nil
}

// DetectContentType sniffs the MIME type of image data.
func DetectContentType(data []byte) string {
	return http.DetectContentType(data)
}

// IsAllowedType reports whether contentType is an accepted image type.
func IsAllowedType(contentType string) bool {
	return allowedTypes[contentType]
}

// Preview is a handle to a transient resource derived from an image.
type Preview struct {
	ID    string
	Image Image
}

// Previewer acquires and releases preview resources. Every successful
// Acquire must be matched by exactly one Release.
type Previewer interface {
	Acquire(img Image) (Preview, error)
	Release(p Preview) error
}

// Set maps segment indices to attached images. It is safe for concurrent use.
type Set struct {
	mu        sync.Mutex
	previewer Previewer
	entries   map[int]Preview
}

// NewSet creates an empty attachment set using previewer for preview
// resources.
func NewSet(previewer Previewer) *Set {
	return &Set{
		previewer: previewer,
		entries:   make(map[int]Preview),
	}
}

// Set attaches img to the segment at index, releasing any preview it
// replaces.
func (s *Set) Set(index int, img Image) error {
	if index < 0 {
		return fmt.Errorf("attach to segment %d: invalid index", index)
	}

	preview, err := s.previewer.Acquire(img)
	if err != nil {
		return fmt.Errorf("acquire preview: %w", err)
	}

	s.mu.Lock()
	old, replaced := s.entries[index]
	s.entries[index] = preview
	s.mu.Unlock()

	if replaced {
		if err := s.previewer.Release(old); err != nil {
			return fmt.Errorf("release replaced preview: %w", err)
		}
	}
	return nil
}

// Remove detaches the image at index. It reports whether one was attached.
func (s *Set) Remove(index int) (bool, error) {
	s.mu.Lock()
	old, ok := s.entries[index]
	delete(s.entries, index)
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := s.previewer.Release(old); err != nil {
		return true, fmt.Errorf("release preview: %w", err)
	}
	return true, nil
}

// Get returns the image attached at index.
func (s *Set) Get(index int) (Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.entries[index]
	return p.Image, ok
}

// Len returns the number of attached images.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Indices returns the attached segment indices in ascending order.
func (s *Set) Indices() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	indices := make([]int, 0, len(s.entries))
	for i := range s.entries {
		indices = append(indices, i)
	}
	slices.Sort(indices)
	return indices
}

// Prune detaches every image at an index >= n, for when a thread shrinks.
func (s *Set) Prune(n int) error {
	s.mu.Lock()
	var stale []Preview
	for i, p := range s.entries {
		if i >= n {
			stale = append(stale, p)
			delete(s.entries, i)
		}
	}
	s.mu.Unlock()

	return s.release(stale)
}

// Clear detaches every image and releases all previews.
func (s *Set) Clear() error {
	s.mu.Lock()
	stale := make([]Preview, 0, len(s.entries))
	for _, p := range s.entries {
		stale = append(stale, p)
	}
	s.entries = make(map[int]Preview)
	s.mu.Unlock()

	return s.release(stale)
}

func (s *Set) release(previews []Preview) error {
	var errs []error
	for _, p := range previews {
		if err := s.previewer.Release(p); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("release previews: %w", errors.Join(errs...))
	}
	return nil
}
