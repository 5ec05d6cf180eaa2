package image

import (
	"strings"
	"testing"

	"shortshive/internal/domain/jsoncfg"
)

func sampleScenes() []SceneSpec {
	return []SceneSpec{
		{SceneNumber: 1, DurationEstimate: 8, VisualDescription: "A red fox in a snowy forest", DialogueOrNarration: "The fox paused."},
		{SceneNumber: 2, VisualDescription: "", DialogueOrNarration: "Home was beyond the ridge."},
		{SceneNumber: 3, VisualDescription: "A cabin with smoke rising"},
	}
}

func TestBuildStoryPromptEnumeratesScenesInOrder(t *testing.T) {
	prompt := BuildStoryPrompt("The Fox", nil, jsoncfg.VisualSettings{}, sampleScenes())

	for _, want := range []string{
		"1. (scene 1 of 3) A red fox in a snowy forest",
		"2. (scene 2 of 3) Home was beyond the ridge.",
		"3. (scene 3 of 3) A cabin with smoke rising",
		"Generate exactly 3 images, one per scene, in order",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Index(prompt, "scene 1 of 3") > strings.Index(prompt, "scene 3 of 3") {
		t.Fatalf("scenes out of order")
	}
}

func TestBuildStoryPromptIsDeterministic(t *testing.T) {
	settings := jsoncfg.VisualSettings{ColorPalette: "anime", AspectRatio: "9:16"}
	a := BuildStoryPrompt("T", []jsoncfg.Character{{Name: "Rex", Description: "a red fox"}}, settings, sampleScenes())
	b := BuildStoryPrompt("T", []jsoncfg.Character{{Name: "Rex", Description: "a red fox"}}, settings, sampleScenes())
	if a != b {
		t.Fatalf("prompt should be deterministic")
	}
}

func TestBuildStoryPromptCharacters(t *testing.T) {
	withChars := BuildStoryPrompt("T", []jsoncfg.Character{{Name: "Rex", Description: "a red fox"}}, jsoncfg.VisualSettings{}, sampleScenes())
	if !strings.Contains(withChars, "- Rex: a red fox") || !strings.Contains(withChars, "keep each one identical") {
		t.Fatalf("expected character block:\n%s", withChars)
	}
	without := BuildStoryPrompt("T", nil, jsoncfg.VisualSettings{}, sampleScenes())
	if !strings.Contains(without, "Maintain a consistent appearance") {
		t.Fatalf("expected generic consistency instruction:\n%s", without)
	}
}

func TestBuildStoryPromptStyleAndAspect(t *testing.T) {
	tests := []struct {
		palette string
		want    string
	}{
		{palette: "pixar", want: "Pixar-style 3D animation"},
		{palette: "cinematic", want: "Cinematic 3D rendering"},
		{palette: "ANIME", want: "Anime-inspired 3D style"},
		{palette: "cartoon", want: "2D cartoon style"},
		{palette: "watercolor", want: "Pixar-style 3D animation"},
		{palette: "", want: "Pixar-style 3D animation"},
	}
	for _, tc := range tests {
		prompt := BuildStoryPrompt("T", nil, jsoncfg.VisualSettings{ColorPalette: tc.palette}, sampleScenes())
		if !strings.Contains(prompt, "- "+tc.want) {
			t.Fatalf("palette %q: expected %q in prompt", tc.palette, tc.want)
		}
		if !strings.Contains(prompt, "Aspect ratio: 16:9") {
			t.Fatalf("expected default aspect ratio")
		}
	}
}

func TestBuildStoryPromptDefaultTitleAndDuration(t *testing.T) {
	prompt := BuildStoryPrompt("", nil, jsoncfg.VisualSettings{}, sampleScenes())
	if !strings.Contains(prompt, `"title":"Story Title"`) {
		t.Fatalf("expected default title in payload:\n%s", prompt)
	}
	if !strings.Contains(prompt, `"duration":28`) {
		t.Fatalf("expected summed duration 8+10+10 in payload:\n%s", prompt)
	}
}

func TestBuildStoryPromptNormalizesUnicode(t *testing.T) {
	decomposed := "Cafe\u0301"
	prompt := BuildStoryPrompt("T", nil, jsoncfg.VisualSettings{}, []SceneSpec{{SceneNumber: 1, VisualDescription: decomposed}})
	if !strings.Contains(prompt, "Caf\u00e9") {
		t.Fatalf("expected NFC-composed text in prompt")
	}
}

func TestSortScenesDoesNotMutate(t *testing.T) {
	in := []SceneSpec{{SceneNumber: 3}, {SceneNumber: 1}, {SceneNumber: 2}}
	out := SortScenes(in)
	if out[0].SceneNumber != 1 || out[2].SceneNumber != 3 {
		t.Fatalf("unexpected order: %+v", out)
	}
	if in[0].SceneNumber != 3 {
		t.Fatalf("input mutated")
	}
}
