package animation

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"shortshive/internal/domain"
	"shortshive/internal/infra"
	"shortshive/internal/observability"
)

// AbandonedReason is recorded on rows the sweeper gives up on.
const AbandonedReason = "generation abandoned"

// Sweeper fails PROCESSING rows that outlived any plausible generation, for
// example after a restart in the middle of a run.
type Sweeper struct {
	store      domain.SceneImageRepository
	staleAfter time.Duration
	metrics    *observability.Metrics
	logger     infra.Logger
	now        func() time.Time
	cron       *cron.Cron
}

func NewSweeper(store domain.SceneImageRepository, staleAfter time.Duration, metrics *observability.Metrics, logger infra.Logger) *Sweeper {
	return &Sweeper{
		store:      store,
		staleAfter: staleAfter,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Sweep runs one pass and returns the number of rows failed.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	if s.staleAfter <= 0 {
		return 0, nil
	}
	n, err := s.store.FailStaleSceneImages(ctx, s.now().Add(-s.staleAfter), AbandonedReason)
	if err != nil {
		return 0, err
	}
	s.metrics.AddSwept(n)
	if n > 0 {
		s.logger.Warn().Int64("rows", n).Dur("stale_after", s.staleAfter).Msg("sweeper: failed stale scene images")
	}
	return n, nil
}

// Start schedules Sweep on a cron spec such as "@every 5m".
func (s *Sweeper) Start(ctx context.Context, spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error().Err(err).Msg("sweeper: pass failed")
		}
	}); err != nil {
		return fmt.Errorf("sweeper: schedule %q: %w", spec, err)
	}
	s.cron = c
	c.Start()
	s.logger.Info().Str("schedule", spec).Msg("sweeper: started")
	return nil
}

// Stop halts scheduling and waits for a running pass.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
