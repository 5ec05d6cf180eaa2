package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"shortshive/internal/domain"
)

func trackers(t *testing.T) map[string]Tracker {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return map[string]Tracker{
		"memory": NewMemoryTracker(time.Minute),
		"redis":  NewRedisTracker(rdb, time.Minute),
	}
}

func TestTrackerLifecycle(t *testing.T) {
	for name, tr := range trackers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			job := Job{StoryID: "story-1", TotalScenes: 3, SceneIDs: map[int]string{1: "a", 2: "b", 3: "c"}}
			if err := tr.Begin(ctx, job); err != nil {
				t.Fatalf("Begin error: %v", err)
			}
			got, err := tr.Get(ctx, "story-1")
			if err != nil || got == nil {
				t.Fatalf("Get = %v, %v", got, err)
			}
			if got.Status != StatusProcessing || got.CompletedScenes != 0 || got.StartTime.IsZero() {
				t.Fatalf("unexpected new job: %+v", got)
			}
			if got.SceneIDs[2] != "b" {
				t.Fatalf("scene id map lost: %+v", got.SceneIDs)
			}

			if err := tr.Progress(ctx, "story-1", 2); err != nil {
				t.Fatalf("Progress error: %v", err)
			}
			if err := tr.Finish(ctx, "story-1", StatusComplete, ""); err != nil {
				t.Fatalf("Finish error: %v", err)
			}
			got, _ = tr.Get(ctx, "story-1")
			if got.Status != StatusComplete || got.CompletedScenes != 2 {
				t.Fatalf("unexpected finished job: %+v", got)
			}

			if err := tr.Delete(ctx, "story-1"); err != nil {
				t.Fatalf("Delete error: %v", err)
			}
			if got, _ := tr.Get(ctx, "story-1"); got != nil {
				t.Fatalf("expected job to be gone, got %+v", got)
			}
		})
	}
}

func TestTrackerRejectsSecondProcessingJob(t *testing.T) {
	for name, tr := range trackers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := tr.Begin(ctx, Job{StoryID: "s", TotalScenes: 1}); err != nil {
				t.Fatalf("Begin error: %v", err)
			}
			if err := tr.Begin(ctx, Job{StoryID: "s", TotalScenes: 1}); !errors.Is(err, domain.ErrJobInFlight) {
				t.Fatalf("expected ErrJobInFlight, got %v", err)
			}
			if err := tr.Begin(ctx, Job{StoryID: "other", TotalScenes: 1}); err != nil {
				t.Fatalf("other stories must be independent: %v", err)
			}
			if err := tr.Finish(ctx, "s", StatusError, "boom"); err != nil {
				t.Fatalf("Finish error: %v", err)
			}
			if err := tr.Begin(ctx, Job{StoryID: "s", TotalScenes: 2}); err != nil {
				t.Fatalf("finished job should allow a new run: %v", err)
			}
			got, _ := tr.Get(ctx, "s")
			if got.Error != "" || got.TotalScenes != 2 {
				t.Fatalf("new run should reset state: %+v", got)
			}
		})
	}
}

func TestTrackerUpdateUnknownJob(t *testing.T) {
	for name, tr := range trackers(t) {
		t.Run(name, func(t *testing.T) {
			if err := tr.Progress(context.Background(), "missing", 1); !errors.Is(err, ErrNoJob) {
				t.Fatalf("expected ErrNoJob, got %v", err)
			}
		})
	}
}

func TestMemoryTrackerConcurrentBegin(t *testing.T) {
	tr := NewMemoryTracker(time.Minute)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tr.Begin(context.Background(), Job{StoryID: "race"}); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if accepted != 1 {
		t.Fatalf("expected exactly one accepted job, got %d", accepted)
	}
}

func TestMemoryTrackerReturnsCopies(t *testing.T) {
	tr := NewMemoryTracker(time.Minute)
	ctx := context.Background()
	_ = tr.Begin(ctx, Job{StoryID: "s", SceneIDs: map[int]string{1: "a"}})
	got, _ := tr.Get(ctx, "s")
	got.SceneIDs[1] = "mutated"
	again, _ := tr.Get(ctx, "s")
	if again.SceneIDs[1] != "a" {
		t.Fatalf("tracker state leaked through returned job")
	}
}

func TestRedisTrackerPublishesOnFinish(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, EventsChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	tr := NewRedisTracker(rdb, time.Minute)
	if err := tr.Begin(ctx, Job{StoryID: "s", TotalScenes: 1}); err != nil {
		t.Fatalf("Begin error: %v", err)
	}
	if err := tr.Finish(ctx, "s", StatusComplete, ""); err != nil {
		t.Fatalf("Finish error: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		job, err := decodeJob(msg.Payload)
		if err != nil || job.Status != StatusComplete {
			t.Fatalf("unexpected event %q: %v", msg.Payload, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no event published")
	}

	if ttl := mr.TTL(jobKey("s")); ttl <= 0 {
		t.Fatalf("expected job key to carry a ttl, got %s", ttl)
	}
}

func TestRedisTrackerSubscribeDeliversFinishedJobs(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener := NewRedisTracker(rdb, time.Minute)
	got := make(chan Job, 1)
	done := make(chan error, 1)
	go func() {
		done <- listener.Subscribe(ctx, func(job Job) { got <- job })
	}()
	deadline := time.Now().Add(2 * time.Second)
	for mr.PubSubNumSub(EventsChannel)[EventsChannel] == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	writer := NewRedisTracker(rdb, time.Minute)
	if err := writer.Begin(ctx, Job{StoryID: "s", TotalScenes: 2}); err != nil {
		t.Fatalf("Begin error: %v", err)
	}
	if err := writer.Finish(ctx, "s", StatusError, "boom"); err != nil {
		t.Fatalf("Finish error: %v", err)
	}

	select {
	case job := <-got:
		if job.StoryID != "s" || job.Status != StatusError || job.Error != "boom" {
			t.Fatalf("unexpected job %+v", job)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("finished job not delivered")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Subscribe returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Subscribe did not stop with its context")
	}
}
