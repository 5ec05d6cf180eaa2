package animation

import (
	"sort"

	"shortshive/internal/providers/image"
)

// ErrNoImageData is the per-scene error for scenes the model left without an image.
const ErrNoImageData = "No image data in response"

// Pairing is one scene with the image assigned to it, if any.
type Pairing struct {
	Scene   image.SceneSpec
	Image   image.ImagePayload
	Matched bool
	Error   string
}

// Reconcile pairs images with scenes by position. Scenes must be ordered the
// way they were sent to the model. Scenes past the last image, or paired with
// an empty payload, are unmatched; surplus images are dropped. The result is
// sorted by scene number and always has len(scenes) entries.
func Reconcile(images []image.ImagePayload, scenes []image.SceneSpec) []Pairing {
	out := make([]Pairing, len(scenes))
	for i, scene := range scenes {
		out[i] = Pairing{Scene: scene, Error: ErrNoImageData}
		if i < len(images) && len(images[i].Data) > 0 {
			out[i].Image = images[i]
			out[i].Matched = true
			out[i].Error = ""
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Scene.SceneNumber < out[j].Scene.SceneNumber })
	return out
}
