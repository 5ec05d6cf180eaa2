package domain

import (
	"fmt"
	"sort"
	"time"
)

// Story is created by the refinement step and read-only to the generation pipeline.
type Story struct {
	ID          string
	Title       string
	Description string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Scene is one narrative beat of a story.
type Scene struct {
	ID                   string
	StoryID              string
	SceneNumber          int
	DurationEstimateSecs int
	VisualDescription    string
	DialogueOrNarration  string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ValidateSceneSequence checks that scene numbers form 1..N without gaps or
// duplicates. Input order does not matter.
func ValidateSceneSequence(scenes []Scene) error {
	numbers := make([]int, len(scenes))
	for i, s := range scenes {
		numbers[i] = s.SceneNumber
	}
	sort.Ints(numbers)
	for i, n := range numbers {
		want := i + 1
		switch {
		case n == want:
		case i > 0 && n == numbers[i-1]:
			return Invalid(fmt.Sprintf("duplicate scene number %d", n))
		default:
			return Invalid(fmt.Sprintf("scene numbers must be contiguous from 1: expected %d, found %d", want, n))
		}
	}
	return nil
}
