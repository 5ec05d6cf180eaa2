package story

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	staticProviderName = "static"
	openAIProviderName = "openai"
)

// Settings steer how free text is turned into scenes.
type Settings struct {
	Emotion    string `json:"emotion" yaml:"emotion"`
	Language   string `json:"language" yaml:"language"`
	VoiceStyle string `json:"voice_style" yaml:"voice_style"`
	Duration   int    `json:"duration" yaml:"duration"`
	AddHook    bool   `json:"add_hook" yaml:"add_hook"`
}

type RefineRequest struct {
	Content  string
	Settings Settings
}

// RefinedScene is one scene proposed by the refiner.
type RefinedScene struct {
	ID                int    `json:"id" jsonschema_description:"Sequential scene number starting at 1"`
	Text              string `json:"text" jsonschema_description:"The narration text for this scene"`
	VisualDescription string `json:"visualDescription" jsonschema_description:"Detailed description of what should be shown on screen"`
	DurationEstimate  int    `json:"durationEstimate" jsonschema_description:"Approximate narration length of this scene in seconds"`
}

// RefinedStory is the structured result of refinement.
type RefinedStory struct {
	Title    string         `json:"title" jsonschema_description:"A catchy title for the story"`
	Logline  string         `json:"logline" jsonschema_description:"A brief one-sentence summary"`
	Scenes   []RefinedScene `json:"scenes" jsonschema_description:"Ordered scenes of the animated story"`
	Provider string         `json:"-"`
}

// Refiner turns free text into a titled, scene-split story.
type Refiner interface {
	Refine(ctx context.Context, req RefineRequest) (*RefinedStory, error)
}

// RecommendedSceneCount is one scene per ten seconds, never fewer than five.
func RecommendedSceneCount(duration int) int {
	return max(5, int(math.Ceil(float64(duration)/10)))
}

// Complexity grades the narrative structure by target duration.
func Complexity(duration int) string {
	switch {
	case duration <= 30:
		return "simple"
	case duration <= 60:
		return "moderate"
	case duration <= 90:
		return "detailed"
	default:
		return "complex"
	}
}

// TargetWordCount assumes about 2.5 narrated words per second.
func TargetWordCount(duration int) int {
	return int(math.Floor(float64(duration) * 2.5))
}

func (s *Settings) normalize() {
	s.Emotion = coalesce(s.Emotion, "neutral")
	s.Language = coalesce(s.Language, "English")
	s.VoiceStyle = coalesce(s.VoiceStyle, "conversational")
	if s.Duration <= 0 {
		s.Duration = 60
	}
}

// finalize renumbers scenes 1..N in returned order and fills missing durations.
func finalize(story *RefinedStory, settings Settings, provider string) (*RefinedStory, error) {
	var scenes []RefinedScene
	for _, sc := range story.Scenes {
		sc.Text = strings.TrimSpace(sc.Text)
		sc.VisualDescription = strings.TrimSpace(sc.VisualDescription)
		if sc.Text == "" && sc.VisualDescription == "" {
			continue
		}
		scenes = append(scenes, sc)
	}
	if len(scenes) == 0 {
		return nil, fmt.Errorf("refined story has no scenes")
	}
	perScene := max(1, settings.Duration/len(scenes))
	for i := range scenes {
		scenes[i].ID = i + 1
		if scenes[i].DurationEstimate <= 0 {
			scenes[i].DurationEstimate = perScene
		}
	}
	story.Scenes = scenes
	story.Title = coalesce(story.Title, "Untitled Story")
	story.Logline = strings.TrimSpace(story.Logline)
	story.Provider = provider
	return story, nil
}

// StaticRefiner splits content into sentence groups without calling a model.
type StaticRefiner struct{}

func NewStaticRefiner() *StaticRefiner {
	return &StaticRefiner{}
}

var sentenceSplit = regexp.MustCompile(`[^.!?]+[.!?]*`)

func (s *StaticRefiner) Refine(ctx context.Context, req RefineRequest) (*RefinedStory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("story content is required")
	}
	settings := req.Settings
	settings.normalize()

	var sentences []string
	for _, m := range sentenceSplit.FindAllString(content, -1) {
		if m = strings.TrimSpace(m); m != "" {
			sentences = append(sentences, m)
		}
	}
	if len(sentences) == 0 {
		sentences = []string{content}
	}
	count := min(RecommendedSceneCount(settings.Duration), len(sentences))
	groups := make([][]string, count)
	for i, sentence := range sentences {
		idx := i * count / len(sentences)
		groups[idx] = append(groups[idx], sentence)
	}

	story := &RefinedStory{Logline: sentences[0]}
	for _, g := range groups {
		text := strings.Join(g, " ")
		story.Scenes = append(story.Scenes, RefinedScene{Text: text, VisualDescription: text})
	}
	words := strings.Fields(sentences[0])
	story.Title = cases.Title(language.Und).String(strings.Join(words[:min(5, len(words))], " "))
	story.Title = strings.TrimRight(story.Title, ".!?")
	return finalize(story, settings, staticProviderName)
}

var _ Refiner = (*StaticRefiner)(nil)
