package domain

import (
	"fmt"
	"time"
)

// SceneImageStatus is the persisted lifecycle of one generation attempt for a scene.
type SceneImageStatus string

const (
	SceneImageProcessing SceneImageStatus = "PROCESSING"
	SceneImageCompleted  SceneImageStatus = "COMPLETED"
	SceneImageFailed     SceneImageStatus = "FAILED"
)

// ParseSceneImageStatus rejects anything outside the three legal values.
func ParseSceneImageStatus(v string) (SceneImageStatus, error) {
	switch s := SceneImageStatus(v); s {
	case SceneImageProcessing, SceneImageCompleted, SceneImageFailed:
		return s, nil
	default:
		return "", fmt.Errorf("unknown scene image status %q", v)
	}
}

// Terminal reports whether no further transition is expected.
func (s SceneImageStatus) Terminal() bool {
	return s == SceneImageCompleted || s == SceneImageFailed
}

// SceneImage links a scene to a generated (or placeholder) artifact.
type SceneImage struct {
	ID           string
	SceneID      string
	StoryID      string
	SceneNumber  int
	LocalURL     string
	B2URL        *string
	Status       SceneImageStatus
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicURL prefers the durable copy when one exists.
func (i SceneImage) PublicURL() string {
	if i.B2URL != nil && *i.B2URL != "" {
		return *i.B2URL
	}
	return i.LocalURL
}

// LatestPerScene keeps the most recent attempt for every scene. Rows must be
// ordered by created_at ascending, as the store returns them.
func LatestPerScene(rows []SceneImage) map[string]SceneImage {
	latest := make(map[string]SceneImage, len(rows))
	for _, row := range rows {
		latest[row.SceneID] = row
	}
	return latest
}
