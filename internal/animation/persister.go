package animation

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"shortshive/internal/domain"
)

const placeholderKey = "placeholder.png"

// 1x1 transparent PNG.
var placeholderPNG, _ = base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg==")

// StoredImage is a persisted image and the URL it is served under.
type StoredImage struct {
	Key string
	URL string
}

// Persister writes generated images under timestamped keys.
type Persister struct {
	blobs          BlobStore
	now            func() time.Time
	placeholderURL string
}

// NewPersister makes sure the placeholder image exists in blobs.
func NewPersister(ctx context.Context, blobs BlobStore) (*Persister, error) {
	if blobs == nil {
		return nil, errors.New("persister: blob store is required")
	}
	key, err := blobs.EnsureFile(ctx, placeholderKey, placeholderPNG)
	if err != nil {
		return nil, fmt.Errorf("persister: write placeholder: %w", err)
	}
	return &Persister{blobs: blobs, now: time.Now, placeholderURL: blobs.URL(key)}, nil
}

// PlaceholderURL is recorded for scenes without a real image.
func (p *Persister) PlaceholderURL() string {
	return p.placeholderURL
}

// Persist stores one scene image. Every call yields a new key.
func (p *Persister) Persist(ctx context.Context, data []byte, mime, storyID string, sceneNumber int) (StoredImage, error) {
	if len(data) == 0 {
		return StoredImage{}, fmt.Errorf("%w: empty image for scene %d", domain.ErrStorage, sceneNumber)
	}
	key := fmt.Sprintf("%s_scene_%d_%d%s", storyID, sceneNumber, p.now().UnixNano(), extensionForMIME(mime))
	saved, err := p.blobs.Write(ctx, key, data)
	if err != nil {
		return StoredImage{}, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return StoredImage{Key: saved, URL: p.blobs.URL(saved)}, nil
}

// Load reads back the image served under url and returns its key.
func (p *Persister) Load(url string) ([]byte, string, error) {
	key := path.Base(url)
	if key == "." || key == "/" {
		return nil, "", fmt.Errorf("%w: no key in %q", domain.ErrStorage, url)
	}
	data, err := p.blobs.Read(key)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return data, key, nil
}

func extensionForMIME(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
