package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"shortshive/internal/animation"
)

func (a *App) GenerateAnimation(w http.ResponseWriter, r *http.Request) {
	var req animation.GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	result, err := a.Animations.Generate(r.Context(), req)
	if err != nil {
		// a result alongside the error carries the placeholder for every scene
		if result != nil {
			a.log(r).Error().Err(err).Str("story_id", req.StoryID).Msg("handler: generation failed")
			a.json(w, http.StatusInternalServerError, result)
			return
		}
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, result)
}

func (a *App) AnimationStatus(w http.ResponseWriter, r *http.Request) {
	report, err := a.Animations.Status(r.Context(), chi.URLParam(r, "story_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, report)
}

func (a *App) ResetAnimation(w http.ResponseWriter, r *http.Request) {
	deleted, err := a.Animations.Reset(r.Context(), chi.URLParam(r, "story_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "deleted": deleted})
}

// DownloadArchive streams the completed scene images of a story as a zip.
func (a *App) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	storyID := chi.URLParam(r, "story_id")
	data, err := a.Animations.Archive(r.Context(), storyID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", storyID+".zip"))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		a.log(r).Warn().Err(err).Str("story_id", storyID).Msg("handler: archive write failed")
	}
}
