package jsoncfg

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Character describes a recurring figure that must look the same in every scene.
type Character struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// VisualSettings is the client-supplied look of a generation run.
type VisualSettings struct {
	ColorPalette string      `json:"color_palette"`
	AspectRatio  string      `json:"aspect_ratio"`
	Title        string      `json:"title,omitempty"`
	Characters   []Character `json:"characters,omitempty"`
	Emotion      string      `json:"emotion,omitempty"`
	VoiceStyle   string      `json:"voice_style,omitempty"`
}

const (
	DefaultAspectRatio  = "16:9"
	DefaultColorPalette = "pixar"
	DefaultTitle        = "Story Title"
	DefaultEmotion      = "Neutral"
	DefaultVoiceStyle   = "Conversational"
	DefaultLanguage     = "English"
	// DefaultSceneSeconds is assumed for scenes that carry no duration estimate.
	DefaultSceneSeconds = 10
)

// Normalize fills defaults and trims whitespace.
func (v *VisualSettings) Normalize() {
	if v == nil {
		return
	}
	v.ColorPalette = strings.ToLower(strings.TrimSpace(v.ColorPalette))
	v.AspectRatio = strings.TrimSpace(v.AspectRatio)
	v.Title = strings.TrimSpace(v.Title)
	if v.ColorPalette == "" {
		v.ColorPalette = DefaultColorPalette
	}
	if v.AspectRatio == "" {
		v.AspectRatio = DefaultAspectRatio
	}
	if v.Title == "" {
		v.Title = DefaultTitle
	}
	if strings.TrimSpace(v.Emotion) == "" {
		v.Emotion = DefaultEmotion
	}
	if strings.TrimSpace(v.VoiceStyle) == "" {
		v.VoiceStyle = DefaultVoiceStyle
	}
	var kept []Character
	for _, c := range v.Characters {
		c.Name = strings.TrimSpace(c.Name)
		c.Description = strings.TrimSpace(c.Description)
		if c.Name == "" && c.Description == "" {
			continue
		}
		kept = append(kept, c)
	}
	v.Characters = kept
}

// Validate checks settings after Normalize. Unknown palettes are allowed and
// fall back to the default style when the prompt is built. Any W:H aspect
// ratio is passed through to the model.
func (v VisualSettings) Validate() error {
	w, h, ok := strings.Cut(v.AspectRatio, ":")
	if !ok || !positiveInt(w) || !positiveInt(h) {
		return fmt.Errorf("aspect_ratio %q must look like W:H, e.g. 16:9", v.AspectRatio)
	}
	return nil
}

func positiveInt(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n > 0
}

// StoryPayload is the structured story embedded at the top of a batch prompt.
type StoryPayload struct {
	Title      string         `json:"title"`
	Characters []Character    `json:"characters"`
	Settings   StorySettings  `json:"settings"`
	Scenes     []ScenePayload `json:"scenes"`
}

type StorySettings struct {
	Emotion    string `json:"emotion"`
	Language   string `json:"language"`
	VoiceStyle string `json:"voiceStyle"`
	Duration   int    `json:"duration"`
	AddHook    bool   `json:"addHook"`
}

type ScenePayload struct {
	SceneNumber         int    `json:"sceneNumber"`
	DurationEstimate    int    `json:"durationEstimate"`
	VisualDescription   string `json:"visualDescription"`
	DialogueOrNarration string `json:"dialogueOrNarration"`
}

func MustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("json marshal: %w", err))
	}
	return b
}
