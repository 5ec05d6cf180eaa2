package animation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"shortshive/internal/domain"
	"shortshive/internal/domain/jsoncfg"
	"shortshive/internal/infra"
	"shortshive/internal/jobs"
	"shortshive/internal/observability"
	"shortshive/internal/providers/image"
)

const DefaultMaxScenes = 20

type Options struct {
	MaxScenes int
	// Uploader is optional. Without it images are final once written locally.
	Uploader Uploader
	Metrics  *observability.Metrics
	Logger   infra.Logger
}

// Service runs generations and answers status queries.
type Service struct {
	store     domain.SceneStore
	generator image.Generator
	tracker   jobs.Tracker
	persister *Persister
	uploader  Uploader
	metrics   *observability.Metrics
	logger    infra.Logger
	maxScenes int
	now       func() time.Time

	statusGroup singleflight.Group
	uploads     sync.WaitGroup
}

func NewService(store domain.SceneStore, generator image.Generator, tracker jobs.Tracker, persister *Persister, opts Options) *Service {
	if opts.MaxScenes <= 0 {
		opts.MaxScenes = DefaultMaxScenes
	}
	return &Service{
		store:     store,
		generator: generator,
		tracker:   tracker,
		persister: persister,
		uploader:  opts.Uploader,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		maxScenes: opts.MaxScenes,
		now:       time.Now,
	}
}

// Wait blocks until background uploads have finished.
func (s *Service) Wait() {
	s.uploads.Wait()
}

type pendingUpload struct {
	rowID    string
	key      string
	localURL string
	data     []byte
	mime     string
}

// Generate runs one batch generation for a story. Validation failures return
// a domain.ValidationError before anything external is called. When the image
// model fails the returned result is non-nil and carries a placeholder for
// every scene alongside the error.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	start := s.now()
	storyID := strings.TrimSpace(req.StoryID)

	specs, settings, err := s.validate(req)
	if err != nil {
		s.metrics.ObserveGeneration("rejected", 0, -1)
		return nil, err
	}
	story, sceneIDs, err := s.resolveScenes(ctx, storyID, specs)
	if err != nil {
		s.metrics.ObserveGeneration("rejected", 0, -1)
		return nil, err
	}

	if err := s.tracker.Begin(ctx, jobs.Job{
		StoryID:     storyID,
		StartTime:   start,
		TotalScenes: len(specs),
		SceneIDs:    sceneIDs,
	}); err != nil {
		s.metrics.ObserveGeneration("rejected", 0, -1)
		return nil, err
	}

	// The run outlives the request that started it.
	ctx = context.WithoutCancel(ctx)
	log := s.logger.With().Str("story_id", storyID).Int("scenes", len(specs)).Logger()

	ordered := image.SortScenes(specs)
	rows, err := s.openAttempts(ctx, storyID, ordered, sceneIDs)
	if err != nil {
		s.abort(ctx, storyID, err)
		s.metrics.ObserveGeneration("storage_error", s.now().Sub(start), -1)
		return nil, err
	}

	title := strings.TrimSpace(req.VisualSettings.Title)
	if title == "" {
		title = story.Title
	}
	prompt := image.BuildStoryPrompt(title, settings.Characters, settings, ordered)

	log.Info().Msg("animation: requesting batch generation")
	resp, err := s.generator.Generate(ctx, image.GenerationRequest{
		StoryID:     storyID,
		Prompt:      prompt,
		AspectRatio: settings.AspectRatio,
		Scenes:      ordered,
	})
	if err != nil {
		log.Error().Err(err).Msg("animation: image generation failed")
		result := s.failAll(ctx, ordered, rows, err.Error())
		s.abort(ctx, storyID, err)
		s.metrics.ObserveGeneration("provider_error", s.now().Sub(start), -1)
		return result, fmt.Errorf("generate images for story %s: %w", storyID, err)
	}
	if len(resp.Images) != len(ordered) {
		log.Warn().Int("images", len(resp.Images)).Msg("animation: image count does not match scene count")
	}

	result := &GenerateResult{Success: true, Images: make([]SceneResult, 0, len(ordered))}
	var pending []pendingUpload
	pairs := Reconcile(resp.Images, ordered)
	for i, pair := range pairs {
		row := rows[pair.Scene.SceneNumber]
		status := domain.SceneImageFailed
		url := s.persister.PlaceholderURL()
		errMsg := pair.Error
		var upload *pendingUpload

		if pair.Matched {
			stored, perr := s.persister.Persist(ctx, pair.Image.Data, pair.Image.MimeType, storyID, pair.Scene.SceneNumber)
			if perr != nil {
				log.Error().Err(perr).Int("scene", pair.Scene.SceneNumber).Msg("animation: persist image failed")
				errMsg = "failed to store image: " + perr.Error()
			} else {
				url = stored.URL
				status = domain.SceneImageCompleted
				if s.uploader != nil {
					status = domain.SceneImageProcessing
					upload = &pendingUpload{
						rowID:    row.ID,
						key:      stored.Key,
						localURL: stored.URL,
						data:     pair.Image.Data,
						mime:     pair.Image.MimeType,
					}
				}
			}
		}

		var errPtr *string
		if errMsg != "" {
			errPtr = &errMsg
		}
		if err := s.store.UpdateSceneImage(ctx, row.ID, status, url, errPtr); err != nil {
			log.Error().Err(err).Int("scene", pair.Scene.SceneNumber).Msg("animation: scene image update failed")
			cause := fmt.Errorf("record scene %d: %w", pair.Scene.SceneNumber, err)
			s.failRemaining(ctx, pairs[i:], rows, cause.Error())
			s.metrics.ObserveGeneration("storage_error", s.now().Sub(start), len(resp.Images))
			if len(pending) == 0 {
				s.abort(ctx, storyID, cause)
				return nil, cause
			}
			// Scenes recorded before the failure still get their durable copy.
			s.uploads.Add(1)
			go s.uploadAll(ctx, storyID, pending, jobs.StatusError, cause.Error())
			return nil, cause
		}
		if upload != nil {
			pending = append(pending, *upload)
		}
		if status.Terminal() {
			s.metrics.ObserveScene(string(status))
		}
		if err := s.tracker.Progress(ctx, storyID, i+1); err != nil {
			log.Warn().Err(err).Msg("animation: job progress update failed")
		}

		res := SceneResult{
			SceneNumber: pair.Scene.SceneNumber,
			ImageURL:    url,
			Success:     status != domain.SceneImageFailed,
			Error:       errMsg,
			Status:      string(status),
		}
		if !res.Success {
			result.FailedScenes = append(result.FailedScenes, res.SceneNumber)
		}
		result.Images = append(result.Images, res)
	}

	s.metrics.ObserveGeneration("success", s.now().Sub(start), len(resp.Images))
	log.Info().Int("failed", len(result.FailedScenes)).Msg("animation: batch generation recorded")

	if len(pending) == 0 {
		s.finish(ctx, storyID, jobs.StatusComplete, "")
		return result, nil
	}
	// The job stays processing until every upload settled.
	s.uploads.Add(1)
	go s.uploadAll(ctx, storyID, pending, jobs.StatusComplete, "")
	return result, nil
}

func (s *Service) validate(req GenerateRequest) ([]image.SceneSpec, jsoncfg.VisualSettings, error) {
	settings := req.VisualSettings
	if strings.TrimSpace(req.StoryID) == "" || len(req.Scenes) == 0 {
		return nil, settings, domain.Invalid("story_id and a non-empty scenes array are required")
	}
	if len(req.Scenes) > s.maxScenes {
		return nil, settings, domain.Invalid(fmt.Sprintf("too many scenes (maximum %d)", s.maxScenes))
	}
	seen := make(map[int]struct{}, len(req.Scenes))
	specs := make([]image.SceneSpec, 0, len(req.Scenes))
	for _, sc := range req.Scenes {
		if sc.SceneNumber <= 0 {
			return nil, settings, domain.Invalid("scene_number must be a positive integer")
		}
		if _, dup := seen[sc.SceneNumber]; dup {
			return nil, settings, domain.Invalid(fmt.Sprintf("duplicate scene_number %d", sc.SceneNumber))
		}
		seen[sc.SceneNumber] = struct{}{}
		duration := sc.DurationEstimate
		if duration <= 0 {
			duration = jsoncfg.DefaultSceneSeconds
		}
		specs = append(specs, image.SceneSpec{
			SceneNumber:         sc.SceneNumber,
			DurationEstimate:    duration,
			VisualDescription:   strings.TrimSpace(sc.VisualDescription),
			DialogueOrNarration: strings.TrimSpace(sc.DialogueOrNarration),
		})
	}
	settings.Normalize()
	if err := settings.Validate(); err != nil {
		return nil, settings, domain.Invalid(err.Error())
	}
	return specs, settings, nil
}

// resolveScenes maps every requested scene number to its persisted scene ID.
func (s *Service) resolveScenes(ctx context.Context, storyID string, specs []image.SceneSpec) (*domain.Story, map[int]string, error) {
	story, err := s.store.GetStory(ctx, storyID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, domain.Invalid(fmt.Sprintf("story %s not found", storyID))
	}
	if err != nil {
		return nil, nil, err
	}
	persisted, err := s.store.ListScenes(ctx, storyID)
	if err != nil {
		return nil, nil, err
	}
	if err := domain.ValidateSceneSequence(persisted); err != nil {
		return nil, nil, err
	}
	byNumber := make(map[int]string, len(persisted))
	for _, sc := range persisted {
		byNumber[sc.SceneNumber] = sc.ID
	}
	ids := make(map[int]string, len(specs))
	var missing []int
	for _, spec := range specs {
		id, ok := byNumber[spec.SceneNumber]
		if !ok {
			missing = append(missing, spec.SceneNumber)
			continue
		}
		ids[spec.SceneNumber] = id
	}
	if len(missing) > 0 {
		sort.Ints(missing)
		return nil, nil, domain.Invalid(fmt.Sprintf("scenes not found for story %s: %s", storyID, joinInts(missing)))
	}
	return story, ids, nil
}

// openAttempts inserts one PROCESSING row per scene.
func (s *Service) openAttempts(ctx context.Context, storyID string, ordered []image.SceneSpec, sceneIDs map[int]string) (map[int]*domain.SceneImage, error) {
	rows := make(map[int]*domain.SceneImage, len(ordered))
	for _, spec := range ordered {
		row, err := s.store.CreateSceneImage(ctx, &domain.SceneImage{
			SceneID:     sceneIDs[spec.SceneNumber],
			StoryID:     storyID,
			SceneNumber: spec.SceneNumber,
		})
		if err != nil {
			return nil, fmt.Errorf("open attempt for scene %d: %w", spec.SceneNumber, err)
		}
		rows[spec.SceneNumber] = row
	}
	return rows, nil
}

// failAll records the placeholder for every scene after the model call failed.
func (s *Service) failAll(ctx context.Context, ordered []image.SceneSpec, rows map[int]*domain.SceneImage, msg string) *GenerateResult {
	placeholder := s.persister.PlaceholderURL()
	result := &GenerateResult{Success: false, Error: msg, Images: make([]SceneResult, 0, len(ordered))}
	for _, spec := range ordered {
		if err := s.store.UpdateSceneImage(ctx, rows[spec.SceneNumber].ID, domain.SceneImageFailed, placeholder, &msg); err != nil {
			s.logger.Error().Err(err).Str("story_id", rows[spec.SceneNumber].StoryID).Int("scene", spec.SceneNumber).Msg("animation: mark scene failed")
		} else {
			s.metrics.ObserveScene(string(domain.SceneImageFailed))
		}
		result.Images = append(result.Images, SceneResult{
			SceneNumber: spec.SceneNumber,
			ImageURL:    placeholder,
			Success:     false,
			Error:       msg,
			Status:      string(domain.SceneImageFailed),
		})
		result.FailedScenes = append(result.FailedScenes, spec.SceneNumber)
	}
	return result
}

// failRemaining marks the scenes left unrecorded by an aborted run FAILED
// with the placeholder. Best effort: the store already failed once.
func (s *Service) failRemaining(ctx context.Context, pairs []Pairing, rows map[int]*domain.SceneImage, msg string) {
	placeholder := s.persister.PlaceholderURL()
	for _, pair := range pairs {
		row := rows[pair.Scene.SceneNumber]
		if err := s.store.UpdateSceneImage(ctx, row.ID, domain.SceneImageFailed, placeholder, &msg); err != nil {
			s.logger.Warn().Err(err).Str("story_id", row.StoryID).Int("scene", pair.Scene.SceneNumber).Msg("animation: mark unrecorded scene failed")
			continue
		}
		s.metrics.ObserveScene(string(domain.SceneImageFailed))
	}
}

// uploadAll copies recorded images to durable storage, then settles the job
// with the given status.
func (s *Service) uploadAll(ctx context.Context, storyID string, pending []pendingUpload, status jobs.Status, msg string) {
	defer s.uploads.Done()
	for _, u := range pending {
		durable, err := s.uploader.Upload(ctx, u.key, u.data, u.mime)
		if err != nil {
			s.logger.Warn().Err(err).Str("story_id", storyID).Str("key", u.key).Msg("animation: durable upload failed, keeping local copy")
			if err := s.store.UpdateSceneImage(ctx, u.rowID, domain.SceneImageCompleted, u.localURL, nil); err != nil {
				s.logger.Error().Err(err).Str("story_id", storyID).Msg("animation: complete scene after upload failure")
				continue
			}
			s.metrics.ObserveScene(string(domain.SceneImageCompleted))
			continue
		}
		if err := s.store.MarkSceneImageUploaded(ctx, u.rowID, durable); err != nil {
			s.logger.Error().Err(err).Str("story_id", storyID).Msg("animation: record durable url")
			continue
		}
		s.metrics.ObserveScene(string(domain.SceneImageCompleted))
	}
	s.finish(ctx, storyID, status, msg)
}

func (s *Service) abort(ctx context.Context, storyID string, cause error) {
	s.finish(ctx, storyID, jobs.StatusError, cause.Error())
}

func (s *Service) finish(ctx context.Context, storyID string, status jobs.Status, msg string) {
	if err := s.tracker.Finish(ctx, storyID, status, msg); err != nil {
		s.logger.Warn().Err(err).Str("story_id", storyID).Msg("animation: job finish failed")
	}
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
