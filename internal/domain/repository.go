package domain

import (
	"context"
	"time"
)

// StoryRepository reads and creates stories with their scenes.
type StoryRepository interface {
	GetStory(ctx context.Context, storyID string) (*Story, error)
	ListScenes(ctx context.Context, storyID string) ([]Scene, error)
	CreateStoryWithScenes(ctx context.Context, story *Story, scenes []Scene) (*Story, error)
}

// SceneImageRepository persists generation attempts. Rows are written one at
// a time and never rolled back.
type SceneImageRepository interface {
	CreateSceneImage(ctx context.Context, img *SceneImage) (*SceneImage, error)
	UpdateSceneImage(ctx context.Context, id string, status SceneImageStatus, localURL string, errMsg *string) error
	MarkSceneImageUploaded(ctx context.Context, id, b2URL string) error
	ListSceneImages(ctx context.Context, storyID string) ([]SceneImage, error)
	DeleteSceneImages(ctx context.Context, storyID string) (int64, error)
	FailStaleSceneImages(ctx context.Context, olderThan time.Time, reason string) (int64, error)
}

// SceneStore is the relational source of truth for the pipeline.
type SceneStore interface {
	StoryRepository
	SceneImageRepository
}
