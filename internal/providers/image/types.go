package image

import (
	"context"
	"sort"
)

// SceneSpec is one scene as the image model sees it.
type SceneSpec struct {
	SceneNumber         int
	DurationEstimate    int
	VisualDescription   string
	DialogueOrNarration string
}

// GenerationRequest asks for one image per scene in a single batch call.
// Scenes are ordered by SceneNumber and the prompt instructs the model to
// answer in that order; Images[i] of the response is taken to depict Scenes[i].
// Nothing inside the process can verify that correspondence.
type GenerationRequest struct {
	StoryID     string
	Prompt      string
	AspectRatio string
	Scenes      []SceneSpec
}

// ImagePayload is a raw image returned by the model.
type ImagePayload struct {
	Data     []byte
	MimeType string
}

// GenerationResponse holds images in the order the model returned them. Its
// length may differ from the number of requested scenes.
type GenerationResponse struct {
	Images []ImagePayload
}

// Generator is the contract implemented by image providers.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (GenerationResponse, error)
}

// SortScenes orders scenes by ascending scene number without mutating the input.
func SortScenes(scenes []SceneSpec) []SceneSpec {
	out := append([]SceneSpec(nil), scenes...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SceneNumber < out[j].SceneNumber })
	return out
}
