package animation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"shortshive/internal/domain"
	"shortshive/internal/providers/image"
)

type memStore struct {
	mu        sync.Mutex
	stories   map[string]domain.Story
	scenes    map[string][]domain.Scene
	images    []domain.SceneImage
	seq       int
	createErr error
	updateErr error
	// failUpdateAfter makes the n-th UpdateSceneImage call (1-based) fail.
	failUpdateAfter int
	updates         int
}

func newMemStore() *memStore {
	return &memStore{
		stories: make(map[string]domain.Story),
		scenes:  make(map[string][]domain.Scene),
	}
}

// addStory stores a story with scenes numbered 1..n.
func (m *memStore) addStory(id string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stories[id] = domain.Story{ID: id, Title: "Story " + id}
	scenes := make([]domain.Scene, n)
	for i := range scenes {
		scenes[i] = domain.Scene{
			ID:                fmt.Sprintf("%s-scene-%d", id, i+1),
			StoryID:           id,
			SceneNumber:       i + 1,
			VisualDescription: fmt.Sprintf("scene %d", i+1),
		}
	}
	m.scenes[id] = scenes
}

func (m *memStore) GetStory(ctx context.Context, storyID string) (*domain.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stories[storyID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &st, nil
}

func (m *memStore) ListScenes(ctx context.Context, storyID string) ([]domain.Scene, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]domain.Scene(nil), m.scenes[storyID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].SceneNumber < out[j].SceneNumber })
	return out, nil
}

func (m *memStore) CreateStoryWithScenes(ctx context.Context, story *domain.Story, scenes []domain.Scene) (*domain.Story, error) {
	if err := domain.ValidateSceneSequence(scenes); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	created := *story
	created.ID = fmt.Sprintf("story-%d", m.seq)
	m.stories[created.ID] = created
	for i, sc := range scenes {
		sc.ID = fmt.Sprintf("%s-scene-%d", created.ID, i+1)
		sc.StoryID = created.ID
		m.scenes[created.ID] = append(m.scenes[created.ID], sc)
	}
	return &created, nil
}

func (m *memStore) CreateSceneImage(ctx context.Context, img *domain.SceneImage) (*domain.SceneImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.seq++
	row := *img
	row.ID = fmt.Sprintf("img-%d", m.seq)
	row.Status = domain.SceneImageProcessing
	row.CreatedAt = time.Unix(int64(m.seq), 0)
	row.UpdatedAt = row.CreatedAt
	m.images = append(m.images, row)
	return &row, nil
}

func (m *memStore) UpdateSceneImage(ctx context.Context, id string, status domain.SceneImageStatus, localURL string, errMsg *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if m.updateErr != nil && (m.failUpdateAfter == 0 || m.updates == m.failUpdateAfter) {
		return m.updateErr
	}
	for i := range m.images {
		if m.images[i].ID == id {
			m.images[i].Status = status
			if localURL != "" {
				m.images[i].LocalURL = localURL
			}
			m.images[i].ErrorMessage = errMsg
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memStore) MarkSceneImageUploaded(ctx context.Context, id, b2URL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.images {
		if m.images[i].ID == id {
			url := b2URL
			m.images[i].B2URL = &url
			m.images[i].Status = domain.SceneImageCompleted
			m.images[i].ErrorMessage = nil
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memStore) ListSceneImages(ctx context.Context, storyID string) ([]domain.SceneImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SceneImage
	for _, row := range m.images {
		if row.StoryID == storyID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memStore) DeleteSceneImages(ctx context.Context, storyID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.images[:0:0]
	var n int64
	for _, row := range m.images {
		if row.StoryID == storyID {
			n++
			continue
		}
		kept = append(kept, row)
	}
	m.images = kept
	return n, nil
}

func (m *memStore) FailStaleSceneImages(ctx context.Context, olderThan time.Time, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.images {
		if m.images[i].Status == domain.SceneImageProcessing && m.images[i].CreatedAt.Before(olderThan) {
			msg := reason
			m.images[i].Status = domain.SceneImageFailed
			m.images[i].ErrorMessage = &msg
			n++
		}
	}
	return n, nil
}

func (m *memStore) rows(storyID string) []domain.SceneImage {
	rows, _ := m.ListSceneImages(context.Background(), storyID)
	return rows
}

type fakeGenerator struct {
	mu     sync.Mutex
	images []image.ImagePayload
	err    error
	calls  int
	last   image.GenerationRequest
	// block, when set, is waited on before answering.
	block chan struct{}
}

func (g *fakeGenerator) Generate(ctx context.Context, req image.GenerationRequest) (image.GenerationResponse, error) {
	if g.block != nil {
		<-g.block
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.last = req
	if g.err != nil {
		return image.GenerationResponse{}, g.err
	}
	return image.GenerationResponse{Images: g.images}, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func pngs(n int) []image.ImagePayload {
	out := make([]image.ImagePayload, n)
	for i := range out {
		out[i] = image.ImagePayload{Data: []byte(fmt.Sprintf("png-%d", i+1)), MimeType: "image/png"}
	}
	return out
}

type memBlobs struct {
	mu       sync.Mutex
	files    map[string][]byte
	writeErr error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{files: make(map[string][]byte)}
}

func (b *memBlobs) Write(ctx context.Context, key string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writeErr != nil {
		return "", b.writeErr
	}
	b.files[key] = append([]byte(nil), data...)
	return key, nil
}

func (b *memBlobs) EnsureFile(ctx context.Context, key string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.files[key]; !ok {
		b.files[key] = append([]byte(nil), data...)
	}
	return key, nil
}

func (b *memBlobs) Read(key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.files[key]
	if !ok {
		return nil, fmt.Errorf("no blob %q", key)
	}
	return data, nil
}

func (b *memBlobs) URL(key string) string {
	return "/generated-images/" + key
}

type fakeUploader struct {
	mu sync.Mutex
	// failScene makes uploads for that scene number fail.
	failScene int
	keys      []string
}

func (u *fakeUploader) Upload(ctx context.Context, key string, data []byte, mime string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.keys = append(u.keys, key)
	if u.failScene > 0 && strings.Contains(key, fmt.Sprintf("_scene_%d_", u.failScene)) {
		return "", errors.New("bucket unavailable")
	}
	return "https://cdn.example.com/" + key, nil
}
