package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"shortshive/internal/animation"
	"shortshive/internal/domain"
	"shortshive/internal/providers/story"
)

type refineRequest struct {
	StoryContent string         `json:"story_content"`
	Settings     story.Settings `json:"settings"`
	OwnerID      string         `json:"owner_id"`
}

type sceneResponse struct {
	ID                  string `json:"id"`
	SceneNumber         int    `json:"scene_number"`
	DurationEstimate    int    `json:"duration_estimate"`
	VisualDescription   string `json:"visual_description"`
	DialogueOrNarration string `json:"dialogue_or_narration"`
}

type storyResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toStoryResponse(st domain.Story) storyResponse {
	return storyResponse{
		ID:          st.ID,
		Title:       st.Title,
		Description: st.Description,
		OwnerID:     st.OwnerID,
		CreatedAt:   st.CreatedAt,
		UpdatedAt:   st.UpdatedAt,
	}
}

func toSceneResponses(scenes []domain.Scene) []sceneResponse {
	out := make([]sceneResponse, 0, len(scenes))
	for _, sc := range scenes {
		out = append(out, sceneResponse{
			ID:                  sc.ID,
			SceneNumber:         sc.SceneNumber,
			DurationEstimate:    sc.DurationEstimateSecs,
			VisualDescription:   sc.VisualDescription,
			DialogueOrNarration: sc.DialogueOrNarration,
		})
	}
	return out
}

func (a *App) RefineStory(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	out, err := a.Stories.Refine(r.Context(), animation.RefineInput{
		Content:  req.StoryContent,
		Settings: req.Settings,
		OwnerID:  req.OwnerID,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]any{
		"success":  true,
		"story":    toStoryResponse(out.Story),
		"logline":  out.Logline,
		"provider": out.Provider,
		"scenes":   toSceneResponses(out.Scenes),
	})
}

func (a *App) ListScenes(w http.ResponseWriter, r *http.Request) {
	st, scenes, err := a.Stories.Scenes(r.Context(), chi.URLParam(r, "story_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"success": true,
		"story":   toStoryResponse(*st),
		"scenes":  toSceneResponses(scenes),
	})
}
