package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	redisKeyPrefix = "shortshive:job:"
	// EventsChannel receives a JSON Job every time a job finishes.
	EventsChannel = "animation_jobs"
	maxTxRetries  = 5
)

// RedisTracker shares jobs between API replicas.
type RedisTracker struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewRedisTracker(rdb *redis.Client, ttl time.Duration) *RedisTracker {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisTracker{rdb: rdb, ttl: ttl, now: time.Now}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func jobKey(storyID string) string {
	return redisKeyPrefix + storyID
}

func decodeJob(raw string) (*Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

func getJob(ctx context.Context, c redis.Cmdable, storyID string) (*Job, error) {
	raw, err := c.Get(ctx, jobKey(storyID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeJob(raw)
}

// watch runs fn in an optimistic transaction on the job key, retrying on conflicts.
func (r *RedisTracker) watch(ctx context.Context, storyID string, fn func(tx *redis.Tx) error) error {
	key := jobKey(storyID)
	for i := 0; i < maxTxRetries; i++ {
		err := r.rdb.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("job %s: too much contention", storyID)
}

func (r *RedisTracker) Begin(ctx context.Context, job Job) error {
	return r.watch(ctx, job.StoryID, func(tx *redis.Tx) error {
		existing, err := getJob(ctx, tx, job.StoryID)
		if err != nil {
			return err
		}
		if err := inFlight(existing); err != nil {
			return err
		}
		payload, err := json.Marshal(newProcessingJob(job, r.now()))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, jobKey(job.StoryID), payload, r.ttl)
			return nil
		})
		return err
	})
}

func (r *RedisTracker) Get(ctx context.Context, storyID string) (*Job, error) {
	return getJob(ctx, r.rdb, storyID)
}

func (r *RedisTracker) update(ctx context.Context, storyID string, fn func(*Job)) (*Job, error) {
	var updated *Job
	err := r.watch(ctx, storyID, func(tx *redis.Tx) error {
		job, err := getJob(ctx, tx, storyID)
		if err != nil {
			return err
		}
		if job == nil {
			return ErrNoJob
		}
		fn(job)
		job.UpdatedAt = r.now()
		payload, err := json.Marshal(job)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, jobKey(storyID), payload, r.ttl)
			return nil
		})
		updated = job
		return err
	})
	return updated, err
}

func (r *RedisTracker) Progress(ctx context.Context, storyID string, completed int) error {
	_, err := r.update(ctx, storyID, func(j *Job) { j.CompletedScenes = completed })
	return err
}

// Finish stores the final state and publishes it on EventsChannel. The state
// is stored even when the publish fails.
func (r *RedisTracker) Finish(ctx context.Context, storyID string, status Status, errMsg string) error {
	job, err := r.update(ctx, storyID, func(j *Job) {
		j.Status = status
		j.Error = errMsg
	})
	if err != nil {
		return err
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job event: %w", err)
	}
	if err := r.rdb.Publish(ctx, EventsChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish job event: %w", err)
	}
	return nil
}

// Subscribe calls fn with every job finished by any replica until ctx ends.
func (r *RedisTracker) Subscribe(ctx context.Context, fn func(Job)) error {
	sub := r.rdb.Subscribe(ctx, EventsChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", EventsChannel, err)
	}
	events := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-events:
			if !ok {
				return nil
			}
			job, err := decodeJob(msg.Payload)
			if err != nil {
				continue
			}
			fn(*job)
		}
	}
}

func (r *RedisTracker) Delete(ctx context.Context, storyID string) error {
	return r.rdb.Del(ctx, jobKey(storyID)).Err()
}

var _ Tracker = (*RedisTracker)(nil)
