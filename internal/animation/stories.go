package animation

import (
	"context"
	"fmt"
	"strings"

	"shortshive/internal/domain"
	"shortshive/internal/infra"
	"shortshive/internal/providers/story"
)

// StoryService refines free text into a story and persists it with its scenes.
type StoryService struct {
	store   domain.StoryRepository
	refiner story.Refiner
	logger  infra.Logger
}

func NewStoryService(store domain.StoryRepository, refiner story.Refiner, logger infra.Logger) *StoryService {
	return &StoryService{store: store, refiner: refiner, logger: logger}
}

type RefineInput struct {
	Content  string
	Settings story.Settings
	OwnerID  string
}

// StoryWithScenes is a persisted story and its ordered scenes.
type StoryWithScenes struct {
	Story    domain.Story
	Logline  string
	Provider string
	Scenes   []domain.Scene
}

// Refine runs the refiner and stores its result. Scene numbers are assigned
// 1..N in the order the refiner returned them.
func (s *StoryService) Refine(ctx context.Context, in RefineInput) (*StoryWithScenes, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, domain.Invalid("story_content is required")
	}
	refined, err := s.refiner.Refine(ctx, story.RefineRequest{Content: content, Settings: in.Settings})
	if err != nil {
		return nil, err
	}
	if len(refined.Scenes) == 0 {
		return nil, fmt.Errorf("%w: refiner returned no scenes", domain.ErrProviderFailure)
	}

	scenes := make([]domain.Scene, len(refined.Scenes))
	for i, sc := range refined.Scenes {
		scenes[i] = domain.Scene{
			SceneNumber:          i + 1,
			DurationEstimateSecs: sc.DurationEstimate,
			VisualDescription:    sc.VisualDescription,
			DialogueOrNarration:  sc.Text,
		}
	}
	created, err := s.store.CreateStoryWithScenes(ctx, &domain.Story{
		Title:       refined.Title,
		Description: refined.Logline,
		OwnerID:     strings.TrimSpace(in.OwnerID),
	}, scenes)
	if err != nil {
		return nil, err
	}
	persisted, err := s.store.ListScenes(ctx, created.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("story_id", created.ID).
		Str("provider", refined.Provider).
		Int("scenes", len(persisted)).
		Msg("stories: refined story stored")
	return &StoryWithScenes{Story: *created, Logline: refined.Logline, Provider: refined.Provider, Scenes: persisted}, nil
}

// Scenes lists a story's scenes ordered by scene number.
func (s *StoryService) Scenes(ctx context.Context, storyID string) (*domain.Story, []domain.Scene, error) {
	st, err := s.store.GetStory(ctx, strings.TrimSpace(storyID))
	if err != nil {
		return nil, nil, err
	}
	scenes, err := s.store.ListScenes(ctx, st.ID)
	if err != nil {
		return nil, nil, err
	}
	return st, scenes, nil
}
