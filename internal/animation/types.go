// Package animation turns a story's scenes into one image per scene: it
// validates the request against the scene store, makes a single batch call to
// the image model, reconciles what came back and records every attempt.
package animation

import (
	"context"

	"shortshive/internal/domain/jsoncfg"
)

// SceneInput is one scene as submitted by the client.
type SceneInput struct {
	SceneNumber         int    `json:"scene_number"`
	DurationEstimate    int    `json:"duration_estimate"`
	VisualDescription   string `json:"visual_description"`
	DialogueOrNarration string `json:"dialogue_or_narration"`
}

type GenerateRequest struct {
	StoryID        string                 `json:"story_id"`
	Scenes         []SceneInput           `json:"scenes"`
	VisualSettings jsoncfg.VisualSettings `json:"visual_settings"`
}

// SceneResult is the outcome for one scene. ImageURL is the placeholder when
// Success is false.
type SceneResult struct {
	SceneNumber int    `json:"sceneNumber"`
	ImageURL    string `json:"imageUrl"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	Status      string `json:"status,omitempty"`
}

// GenerateResult reports a whole run. Success is false only when the run was
// aborted; per-scene gaps show up in Images and FailedScenes.
type GenerateResult struct {
	Success      bool          `json:"success"`
	Images       []SceneResult `json:"images"`
	FailedScenes []int         `json:"failedScenes,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// StatusReport answers "how far along is story X".
type StatusReport struct {
	Success     bool          `json:"success"`
	Status      string        `json:"status"`
	Progress    int           `json:"progress"`
	Images      []SceneResult `json:"images"`
	StorageType string        `json:"storageType"`
}

const (
	StorageLocal = "local"
	StorageB2    = "b2"
)

// Uploader pushes a locally persisted image to durable storage.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, mime string) (string, error)
}

// BlobStore is where persisted images land. *storage.FileStore satisfies it.
type BlobStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	EnsureFile(ctx context.Context, key string, data []byte) (string, error)
	URL(key string) string
	Read(key string) ([]byte, error)
}
