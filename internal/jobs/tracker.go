// Package jobs caches in-flight generation jobs. The scene store stays the
// source of truth; everything here may be lost on restart.
package jobs

import (
	"context"
	"errors"
	"time"

	"shortshive/internal/domain"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Job tracks one generation run for a story.
type Job struct {
	StoryID         string         `json:"story_id"`
	StartTime       time.Time      `json:"start_time"`
	TotalScenes     int            `json:"total_scenes"`
	CompletedScenes int            `json:"completed_scenes"`
	Status          Status         `json:"status"`
	Error           string         `json:"error,omitempty"`
	SceneIDs        map[int]string `json:"scene_ids,omitempty"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (j Job) clone() Job {
	if j.SceneIDs != nil {
		ids := make(map[int]string, len(j.SceneIDs))
		for k, v := range j.SceneIDs {
			ids[k] = v
		}
		j.SceneIDs = ids
	}
	return j
}

// ErrNoJob is returned when updating a job that is not tracked.
var ErrNoJob = errors.New("job not tracked")

// Tracker is a keyed cache of jobs.
type Tracker interface {
	// Begin registers a processing job and fails with domain.ErrJobInFlight
	// while another job for the same story is still processing.
	Begin(ctx context.Context, job Job) error
	Get(ctx context.Context, storyID string) (*Job, error)
	Progress(ctx context.Context, storyID string, completed int) error
	Finish(ctx context.Context, storyID string, status Status, errMsg string) error
	Delete(ctx context.Context, storyID string) error
}

func newProcessingJob(job Job, now time.Time) Job {
	job = job.clone()
	job.Status = StatusProcessing
	job.CompletedScenes = 0
	job.Error = ""
	if job.StartTime.IsZero() {
		job.StartTime = now
	}
	job.UpdatedAt = now
	return job
}

func inFlight(job *Job) error {
	if job != nil && job.Status == StatusProcessing {
		return domain.ErrJobInFlight
	}
	return nil
}
