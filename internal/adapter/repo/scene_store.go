package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shortshive/internal/domain"
	"shortshive/internal/infra"
	"shortshive/internal/sqlinline"
)

// SceneStorePG implements domain.SceneStore on top of the marker-checked SQL runner.
type SceneStorePG struct {
	sql infra.SQLExecutor
}

// NewSceneStore constructs the store.
func NewSceneStore(sql infra.SQLExecutor) *SceneStorePG {
	return &SceneStorePG{sql: sql}
}

// GetStory loads a single story. Unknown or malformed ids yield domain.ErrNotFound.
func (s *SceneStorePG) GetStory(ctx context.Context, storyID string) (*domain.Story, error) {
	if _, err := uuid.Parse(storyID); err != nil {
		return nil, domain.ErrNotFound
	}
	var story domain.Story
	err := s.sql.QueryRow(ctx, sqlinline.QSelectStory, storyID).Scan(
		&story.ID,
		&story.Title,
		&story.Description,
		&story.OwnerID,
		&story.CreatedAt,
		&story.UpdatedAt,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: load story: %v", domain.ErrStorage, err)
	}
	return &story, nil
}

// ListScenes returns the scenes of a story ordered by scene number.
func (s *SceneStorePG) ListScenes(ctx context.Context, storyID string) ([]domain.Scene, error) {
	if _, err := uuid.Parse(storyID); err != nil {
		return nil, nil
	}
	rows, err := s.sql.Query(ctx, sqlinline.QListScenesByStory, storyID)
	if err != nil {
		return nil, fmt.Errorf("%w: list scenes: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var scenes []domain.Scene
	for rows.Next() {
		var sc domain.Scene
		if err := rows.Scan(
			&sc.ID,
			&sc.StoryID,
			&sc.SceneNumber,
			&sc.DurationEstimateSecs,
			&sc.VisualDescription,
			&sc.DialogueOrNarration,
			&sc.CreatedAt,
			&sc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan scene: %v", domain.ErrStorage, err)
		}
		scenes = append(scenes, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list scenes: %v", domain.ErrStorage, err)
	}
	return scenes, nil
}

// CreateStoryWithScenes inserts the story and its scenes atomically.
func (s *SceneStorePG) CreateStoryWithScenes(ctx context.Context, story *domain.Story, scenes []domain.Scene) (*domain.Story, error) {
	if story == nil {
		return nil, domain.Invalid("story is required")
	}
	if err := domain.ValidateSceneSequence(scenes); err != nil {
		return nil, err
	}

	numbers := make([]int32, len(scenes))
	durations := make([]int32, len(scenes))
	visuals := make([]string, len(scenes))
	dialogue := make([]string, len(scenes))
	for i, sc := range scenes {
		numbers[i] = int32(sc.SceneNumber)
		durations[i] = int32(sc.DurationEstimateSecs)
		visuals[i] = sc.VisualDescription
		dialogue[i] = sc.DialogueOrNarration
	}

	created := *story
	var inserted int
	err := s.sql.QueryRow(ctx, sqlinline.QInsertStoryWithScenes,
		story.Title,
		story.Description,
		story.OwnerID,
		numbers,
		durations,
		visuals,
		dialogue,
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt, &inserted)
	if err != nil {
		return nil, fmt.Errorf("%w: insert story: %v", domain.ErrStorage, err)
	}
	if inserted != len(scenes) {
		return nil, fmt.Errorf("%w: inserted %d of %d scenes", domain.ErrStorage, inserted, len(scenes))
	}
	return &created, nil
}

// CreateSceneImage inserts a PROCESSING row. A missing id is generated.
func (s *SceneStorePG) CreateSceneImage(ctx context.Context, img *domain.SceneImage) (*domain.SceneImage, error) {
	if img == nil {
		return nil, domain.Invalid("scene image is required")
	}
	row := *img
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	row.Status = domain.SceneImageProcessing
	err := s.sql.QueryRow(ctx, sqlinline.QInsertSceneImage,
		row.ID,
		row.SceneID,
		row.StoryID,
		row.SceneNumber,
		row.LocalURL,
	).Scan(&row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: insert scene image: %v", domain.ErrStorage, err)
	}
	return &row, nil
}

// UpdateSceneImage moves a row to a new status. An empty localURL keeps the stored one.
func (s *SceneStorePG) UpdateSceneImage(ctx context.Context, id string, status domain.SceneImageStatus, localURL string, errMsg *string) error {
	if _, err := domain.ParseSceneImageStatus(string(status)); err != nil {
		return domain.Invalid(err.Error())
	}
	tag, err := s.sql.Exec(ctx, sqlinline.QUpdateSceneImage, id, string(status), localURL, errMsg)
	if err != nil {
		return fmt.Errorf("%w: update scene image: %v", domain.ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkSceneImageUploaded records the durable URL and completes the row.
func (s *SceneStorePG) MarkSceneImageUploaded(ctx context.Context, id, b2URL string) error {
	tag, err := s.sql.Exec(ctx, sqlinline.QMarkSceneImageUploaded, id, b2URL)
	if err != nil {
		return fmt.Errorf("%w: mark uploaded: %v", domain.ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListSceneImages returns every attempt for the story, oldest first.
func (s *SceneStorePG) ListSceneImages(ctx context.Context, storyID string) ([]domain.SceneImage, error) {
	if _, err := uuid.Parse(storyID); err != nil {
		return nil, nil
	}
	rows, err := s.sql.Query(ctx, sqlinline.QListSceneImagesByStory, storyID)
	if err != nil {
		return nil, fmt.Errorf("%w: list scene images: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var images []domain.SceneImage
	for rows.Next() {
		var (
			img    domain.SceneImage
			status string
		)
		if err := rows.Scan(
			&img.ID,
			&img.SceneID,
			&img.StoryID,
			&img.SceneNumber,
			&img.LocalURL,
			&img.B2URL,
			&status,
			&img.ErrorMessage,
			&img.CreatedAt,
			&img.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan scene image: %v", domain.ErrStorage, err)
		}
		parsed, err := domain.ParseSceneImageStatus(status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		img.Status = parsed
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list scene images: %v", domain.ErrStorage, err)
	}
	return images, nil
}

// DeleteSceneImages removes every attempt for the story and reports how many were removed.
func (s *SceneStorePG) DeleteSceneImages(ctx context.Context, storyID string) (int64, error) {
	if _, err := uuid.Parse(storyID); err != nil {
		return 0, nil
	}
	tag, err := s.sql.Exec(ctx, sqlinline.QDeleteSceneImagesByStory, storyID)
	if err != nil {
		return 0, fmt.Errorf("%w: delete scene images: %v", domain.ErrStorage, err)
	}
	return tag.RowsAffected(), nil
}

// FailStaleSceneImages marks PROCESSING rows created before olderThan as FAILED.
func (s *SceneStorePG) FailStaleSceneImages(ctx context.Context, olderThan time.Time, reason string) (int64, error) {
	tag, err := s.sql.Exec(ctx, sqlinline.QFailStaleSceneImages, olderThan, reason)
	if err != nil {
		return 0, fmt.Errorf("%w: fail stale scene images: %v", domain.ErrStorage, err)
	}
	return tag.RowsAffected(), nil
}

var _ domain.SceneStore = (*SceneStorePG)(nil)
