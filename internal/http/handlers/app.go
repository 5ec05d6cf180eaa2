package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"shortshive/internal/animation"
	"shortshive/internal/domain"
	"shortshive/internal/infra"
)

// AnimationService is the generation pipeline as the handlers see it.
type AnimationService interface {
	Generate(ctx context.Context, req animation.GenerateRequest) (*animation.GenerateResult, error)
	Status(ctx context.Context, storyID string) (animation.StatusReport, error)
	Reset(ctx context.Context, storyID string) (int64, error)
	Archive(ctx context.Context, storyID string) ([]byte, error)
}

type StoryService interface {
	Refine(ctx context.Context, in animation.RefineInput) (*animation.StoryWithScenes, error)
	Scenes(ctx context.Context, storyID string) (*domain.Story, []domain.Scene, error)
}

type App struct {
	Animations AnimationService
	Stories    StoryService
	Logger     infra.Logger
}

func NewApp(animations AnimationService, stories StoryService, logger infra.Logger) *App {
	return &App{Animations: animations, Stories: stories, Logger: logger}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, errorResponse{Success: false, Error: msg})
}

// fail maps domain errors onto status codes. Storage details stay in the log.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrJobInFlight):
		a.error(w, http.StatusConflict, domain.ErrJobInFlight.Error())
	case errors.Is(err, domain.ErrProviderFailure):
		a.log(r).Error().Err(err).Msg("handler: provider failure")
		a.error(w, http.StatusInternalServerError, err.Error())
	default:
		a.log(r).Error().Err(err).Msg("handler: internal error")
		a.error(w, http.StatusInternalServerError, "internal server error")
	}
}

// log prefers the request-scoped logger installed by the logging middleware.
func (a *App) log(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &a.Logger
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.Invalid("invalid JSON body")
	}
	return nil
}
