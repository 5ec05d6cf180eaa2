// Command worker runs the stale-row sweeper outside the API process, for
// deployments that start the API with SWEEP_SCHEDULE=off.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"shortshive/internal/adapter/repo"
	"shortshive/internal/animation"
	"shortshive/internal/infra"
	"shortshive/internal/observability"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	schedule := flag.String("schedule", "", "cron spec, defaults to SWEEP_SCHEDULE")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	store := repo.NewSceneStore(infra.NewSQLRunner(pool, logger))
	sweeper := animation.NewSweeper(store, cfg.StaleAfter, observability.NewMetrics(), logger)

	n, err := sweeper.Sweep(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("worker: initial sweep failed")
	} else {
		logger.Info().Int64("rows", n).Msg("worker: initial sweep done")
	}
	if *once {
		if err != nil {
			os.Exit(1)
		}
		return
	}

	spec := *schedule
	if spec == "" || spec == infra.SweepDisabled {
		spec = cfg.SweepSchedule
	}
	if spec == infra.SweepDisabled {
		spec = "@every 5m"
	}
	if err := sweeper.Start(ctx, spec); err != nil {
		logger.Fatal().Err(err).Msg("worker: schedule sweeper")
	}

	<-ctx.Done()
	sweeper.Stop()
	logger.Info().Msg("worker: stopped")
}
