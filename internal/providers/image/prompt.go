package image

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"shortshive/internal/domain/jsoncfg"
)

// Style is a named rendering direction for the whole story.
type Style struct {
	Name    string
	Details string
}

var styles = map[string]Style{
	"pixar": {
		Name:    "Pixar-style 3D animation",
		Details: "Soft, colorful, expressive 3D animation with high quality rendering",
	},
	"cinematic": {
		Name:    "Cinematic 3D rendering",
		Details: "Dramatic lighting, realistic textures, cinematic composition",
	},
	"anime": {
		Name:    "Anime-inspired 3D style",
		Details: "Vibrant colors, expressive characters, stylized features",
	},
	"cartoon": {
		Name:    "2D cartoon style",
		Details: "Bold outlines, flat colors, exaggerated expressions, cartoon-like",
	},
}

// ResolveStyle maps a palette keyword to its style, falling back to pixar.
func ResolveStyle(palette string) Style {
	if s, ok := styles[strings.ToLower(strings.TrimSpace(palette))]; ok {
		return s
	}
	return styles[jsoncfg.DefaultColorPalette]
}

// BuildStoryPrompt renders the single batch prompt for all scenes of a story.
// Scenes must already be sorted; their position in the slice is the position
// the model is asked to honour. The output depends only on the inputs.
func BuildStoryPrompt(title string, characters []jsoncfg.Character, settings jsoncfg.VisualSettings, scenes []SceneSpec) string {
	settings.Normalize()
	title = clean(title)
	if title == "" {
		title = settings.Title
	}
	style := ResolveStyle(settings.ColorPalette)
	n := len(scenes)

	payload := jsoncfg.StoryPayload{
		Title:      title,
		Characters: characters,
		Settings: jsoncfg.StorySettings{
			Emotion:    settings.Emotion,
			Language:   jsoncfg.DefaultLanguage,
			VoiceStyle: settings.VoiceStyle,
			AddHook:    true,
		},
		Scenes: make([]jsoncfg.ScenePayload, n),
	}
	if payload.Characters == nil {
		payload.Characters = []jsoncfg.Character{}
	}
	for i, sc := range scenes {
		duration := sc.DurationEstimate
		if duration <= 0 {
			duration = jsoncfg.DefaultSceneSeconds
		}
		payload.Settings.Duration += duration
		payload.Scenes[i] = jsoncfg.ScenePayload{
			SceneNumber:         sc.SceneNumber,
			DurationEstimate:    duration,
			VisualDescription:   clean(sc.VisualDescription),
			DialogueOrNarration: clean(sc.DialogueOrNarration),
		}
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("Story: %s", jsoncfg.MustMarshal(payload)))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("Generate a series of %d images for the story %q. Every scene must be illustrated in the same visual style with consistent characters and settings.", n, title))
	lines = append(lines, "")

	if len(characters) > 0 {
		lines = append(lines, "Characters (keep each one identical in every image: same face, hair, clothing, colors, and proportions):")
		for _, c := range characters {
			switch {
			case c.Name != "" && c.Description != "":
				lines = append(lines, fmt.Sprintf("- %s: %s", clean(c.Name), clean(c.Description)))
			case c.Name != "":
				lines = append(lines, fmt.Sprintf("- %s", clean(c.Name)))
			default:
				lines = append(lines, fmt.Sprintf("- %s", clean(c.Description)))
			}
		}
	} else {
		lines = append(lines, "Maintain a consistent appearance for every recurring character and location across all images.")
	}
	lines = append(lines, "")

	lines = append(lines, "Style specifications:")
	lines = append(lines, "- "+style.Name)
	lines = append(lines, "- "+style.Details)
	lines = append(lines, "- Aspect ratio: "+settings.AspectRatio)
	lines = append(lines, "- Clear, detailed characters with expressive features")
	lines = append(lines, "- Beautiful lighting and composition")
	lines = append(lines, "- No text or captions in the images")
	lines = append(lines, "")

	lines = append(lines, "Scenes:")
	for i, sc := range payload.Scenes {
		desc := sc.VisualDescription
		if desc == "" {
			desc = sc.DialogueOrNarration
		}
		line := fmt.Sprintf("%d. (scene %d of %d) %s", i+1, i+1, n, desc)
		if sc.DialogueOrNarration != "" && sc.DialogueOrNarration != desc {
			line += fmt.Sprintf(" Narration: %q", sc.DialogueOrNarration)
		}
		lines = append(lines, line)
	}
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("IMPORTANT: Generate exactly %d images, one per scene, in order. Image 1 depicts scene 1 and image %d depicts scene %d.", n, n, n))
	lines = append(lines, "Each image should clearly represent its scene's visual description and narration.")

	return strings.Join(lines, "\n")
}

func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
