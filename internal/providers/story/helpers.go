package story

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

func buildSystemPrompt(s Settings) string {
	count := RecommendedSceneCount(s.Duration)
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "You are an expert storyteller creating engaging animated stories.\n")
	fmt.Fprintf(sb, "Refine the provided story content into a well-structured animated story with %d scenes.\n", count)
	fmt.Fprintf(sb, "The story should have a %s structure with a clear beginning, middle, and end.\n", Complexity(s.Duration))
	fmt.Fprintf(sb, "The tone should be %s and the language should be %s.\n", s.Emotion, s.Language)
	fmt.Fprintf(sb, "The narration style should be %s.\n", s.VoiceStyle)
	fmt.Fprintf(sb, "The target length is approximately %d words (about %d seconds when narrated).\n", TargetWordCount(s.Duration), s.Duration)
	if s.AddHook {
		sb.WriteString("Add a compelling hook at the beginning to capture attention.\n")
	}
	sb.WriteString("For each scene provide the narration text and a detailed visual description of what is shown on screen. ")
	sb.WriteString("Respond only with JSON containing title, logline and scenes.")
	return sb.String()
}

func buildUserPrompt(content string, s Settings) string {
	return fmt.Sprintf("Please refine this story content into a %d-scene animated story:\n\n%s", RecommendedSceneCount(s.Duration), strings.TrimSpace(content))
}

func coalesce(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func parseModelPayload[T any](raw string) (T, error) {
	var zero T
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return zero, errors.New("empty payload")
	}
	var decoded T
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return zero, err
	}
	return decoded, nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
