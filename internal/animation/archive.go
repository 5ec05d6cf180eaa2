package animation

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"shortshive/internal/domain"
	"shortshive/pkg/zip"
)

// Archive bundles the latest completed image of every scene of a story into
// a zip, one entry per scene named after its scene number.
func (s *Service) Archive(ctx context.Context, storyID string) ([]byte, error) {
	storyID = strings.TrimSpace(storyID)
	if storyID == "" {
		return nil, domain.Invalid("story_id is required")
	}
	if _, err := s.store.GetStory(ctx, storyID); err != nil {
		return nil, err
	}
	scenes, err := s.store.ListScenes(ctx, storyID)
	if err != nil {
		return nil, err
	}
	numbers := make(map[string]int, len(scenes))
	for _, sc := range scenes {
		numbers[sc.ID] = sc.SceneNumber
	}
	rows, err := s.store.ListSceneImages(ctx, storyID)
	if err != nil {
		return nil, err
	}

	var done []domain.SceneImage
	for sceneID, row := range domain.LatestPerScene(rows) {
		number, ok := numbers[sceneID]
		if !ok || row.Status != domain.SceneImageCompleted || row.LocalURL == "" {
			continue
		}
		row.SceneNumber = number
		done = append(done, row)
	}
	if len(done) == 0 {
		return nil, fmt.Errorf("no completed images for story %s: %w", storyID, domain.ErrNotFound)
	}
	sort.Slice(done, func(i, j int) bool { return done[i].SceneNumber < done[j].SceneNumber })

	assets := make([]zip.Asset, 0, len(done))
	for _, row := range done {
		data, key, err := s.persister.Load(row.LocalURL)
		if err != nil {
			return nil, fmt.Errorf("archive scene %d: %w", row.SceneNumber, err)
		}
		assets = append(assets, zip.Asset{
			Filename: fmt.Sprintf("scene_%02d%s", row.SceneNumber, path.Ext(key)),
			Data:     data,
			Modified: row.UpdatedAt,
		})
	}
	return zip.ArchiveAssets(assets)
}
