package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryTracker keeps jobs in process memory with expiry.
type MemoryTracker struct {
	mu    sync.Mutex
	cache *cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryTracker(ttl time.Duration) *MemoryTracker {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryTracker{
		cache: cache.New(ttl, ttl/2),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (m *MemoryTracker) load(storyID string) *Job {
	v, ok := m.cache.Get(storyID)
	if !ok {
		return nil
	}
	job := v.(Job)
	return &job
}

func (m *MemoryTracker) Begin(ctx context.Context, job Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := inFlight(m.load(job.StoryID)); err != nil {
		return err
	}
	m.cache.Set(job.StoryID, newProcessingJob(job, m.now()), m.ttl)
	return nil
}

func (m *MemoryTracker) Get(ctx context.Context, storyID string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := m.load(storyID)
	if job == nil {
		return nil, nil
	}
	cp := job.clone()
	return &cp, nil
}

func (m *MemoryTracker) update(storyID string, fn func(*Job)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := m.load(storyID)
	if job == nil {
		return ErrNoJob
	}
	fn(job)
	job.UpdatedAt = m.now()
	m.cache.Set(storyID, *job, m.ttl)
	return nil
}

func (m *MemoryTracker) Progress(ctx context.Context, storyID string, completed int) error {
	return m.update(storyID, func(j *Job) { j.CompletedScenes = completed })
}

func (m *MemoryTracker) Finish(ctx context.Context, storyID string, status Status, errMsg string) error {
	return m.update(storyID, func(j *Job) {
		j.Status = status
		j.Error = errMsg
	})
}

func (m *MemoryTracker) Delete(ctx context.Context, storyID string) error {
	m.cache.Delete(storyID)
	return nil
}

var _ Tracker = (*MemoryTracker)(nil)
