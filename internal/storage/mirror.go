package storage

import (
	"context"
	"errors"
	"strings"
)

// MirrorUploader copies finished images into a second root, typically a
// mounted bucket, and reports the durable URL under baseURL.
type MirrorUploader struct {
	store   *FileStore
	baseURL string
}

func NewMirrorUploader(basePath, baseURL string) (*MirrorUploader, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("storage: durable base url is required")
	}
	store, err := NewFileStore(basePath, "/")
	if err != nil {
		return nil, err
	}
	return &MirrorUploader{store: store, baseURL: baseURL}, nil
}

// Upload stores data under key and returns its durable URL.
func (m *MirrorUploader) Upload(ctx context.Context, key string, data []byte, mime string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("storage: nothing to upload")
	}
	saved, err := m.store.Write(ctx, key, data)
	if err != nil {
		return "", err
	}
	return m.baseURL + "/" + saved, nil
}
