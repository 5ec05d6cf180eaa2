package animation

import (
	"context"
	"errors"
	"sort"
	"strings"

	"shortshive/internal/domain"
	"shortshive/internal/jobs"
)

// Status merges persisted scene images with the cached job. Concurrent polls
// for the same story share one read.
func (s *Service) Status(ctx context.Context, storyID string) (StatusReport, error) {
	storyID = strings.TrimSpace(storyID)
	if storyID == "" {
		return StatusReport{}, domain.Invalid("story_id is required")
	}
	v, err, _ := s.statusGroup.Do(storyID, func() (any, error) {
		return s.buildStatus(ctx, storyID)
	})
	if err != nil {
		return StatusReport{}, err
	}
	report := v.(StatusReport)
	report.Images = append([]SceneResult(nil), report.Images...)
	return report, nil
}

// JobFinished drops any shared status read in flight for the job's story so
// the next poll sees the final state. It is fed by the tracker's job events.
func (s *Service) JobFinished(job jobs.Job) {
	s.statusGroup.Forget(job.StoryID)
	s.logger.Debug().Str("story_id", job.StoryID).Str("status", string(job.Status)).Msg("animation: job finished")
}

func (s *Service) buildStatus(ctx context.Context, storyID string) (StatusReport, error) {
	job, err := s.tracker.Get(ctx, storyID)
	if err != nil {
		s.logger.Warn().Err(err).Str("story_id", storyID).Msg("animation: job lookup failed, using store only")
		job = nil
	}

	// scene id -> scene number for the scenes this report covers
	scope := make(map[string]int)
	total := 0
	if job != nil && len(job.SceneIDs) > 0 {
		for number, id := range job.SceneIDs {
			scope[id] = number
		}
		total = job.TotalScenes
	} else {
		if _, err := s.store.GetStory(ctx, storyID); err != nil {
			return StatusReport{}, err
		}
		scenes, err := s.store.ListScenes(ctx, storyID)
		if err != nil {
			return StatusReport{}, err
		}
		for _, sc := range scenes {
			scope[sc.ID] = sc.SceneNumber
		}
		total = len(scenes)
	}

	rows, err := s.store.ListSceneImages(ctx, storyID)
	if err != nil {
		return StatusReport{}, err
	}
	var latest []domain.SceneImage
	for sceneID, row := range domain.LatestPerScene(rows) {
		if number, ok := scope[sceneID]; ok {
			row.SceneNumber = number
			latest = append(latest, row)
		}
	}
	sort.Slice(latest, func(i, j int) bool { return latest[i].SceneNumber < latest[j].SceneNumber })

	report := StatusReport{
		Success:     true,
		Progress:    progress(countSettled(latest), total),
		StorageType: StorageLocal,
		Images:      make([]SceneResult, 0, len(latest)),
	}
	if job != nil {
		report.Status = string(job.Status)
	} else {
		report.Status = string(deriveStatus(latest))
	}

	durable := 0
	for _, row := range latest {
		url := row.PublicURL()
		if url == "" {
			continue
		}
		res := SceneResult{
			SceneNumber: row.SceneNumber,
			ImageURL:    url,
			Success:     row.Status != domain.SceneImageFailed,
			Status:      string(row.Status),
		}
		if row.ErrorMessage != nil {
			res.Error = *row.ErrorMessage
		}
		if row.B2URL != nil && *row.B2URL != "" {
			durable++
		}
		report.Images = append(report.Images, res)
	}
	if len(report.Images) > 0 && durable == len(report.Images) {
		report.StorageType = StorageB2
	}
	return report, nil
}

func countSettled(rows []domain.SceneImage) int {
	n := 0
	for _, row := range rows {
		if row.Status.Terminal() {
			n++
		}
	}
	return n
}

// progress is capped at 90 until every scene has settled.
func progress(settled, total int) int {
	switch {
	case total <= 0:
		return 0
	case settled >= total:
		return 100
	default:
		return min(90, settled*100/total)
	}
}

func deriveStatus(rows []domain.SceneImage) jobs.Status {
	if len(rows) == 0 {
		return jobs.StatusProcessing
	}
	failed := 0
	for _, row := range rows {
		switch row.Status {
		case domain.SceneImageProcessing:
			return jobs.StatusProcessing
		case domain.SceneImageFailed:
			failed++
		}
	}
	if failed == len(rows) {
		return jobs.StatusError
	}
	return jobs.StatusComplete
}

// Reset deletes every recorded attempt for a story so it can be regenerated
// from scratch. It refuses while a generation is running.
func (s *Service) Reset(ctx context.Context, storyID string) (int64, error) {
	storyID = strings.TrimSpace(storyID)
	if storyID == "" {
		return 0, domain.Invalid("story_id is required")
	}
	job, err := s.tracker.Get(ctx, storyID)
	if err != nil {
		return 0, err
	}
	if job != nil && job.Status == jobs.StatusProcessing {
		return 0, domain.ErrJobInFlight
	}
	n, err := s.store.DeleteSceneImages(ctx, storyID)
	if err != nil {
		return 0, err
	}
	if err := s.tracker.Delete(ctx, storyID); err != nil && !errors.Is(err, jobs.ErrNoJob) {
		s.logger.Warn().Err(err).Str("story_id", storyID).Msg("animation: drop job after reset")
	}
	s.logger.Info().Str("story_id", storyID).Int64("deleted", n).Msg("animation: scene images reset")
	return n, nil
}
