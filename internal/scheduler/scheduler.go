// Package scheduler runs the store's periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/natal_store/internal/logger"
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// Job is one unit of periodic work.
type Job func(ctx context.Context) error

type Scheduler struct {
	cron   gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger
}

func New() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	l := logger.Component("scheduler")
	ctx, cancel := context.WithCancel(l.WithContext(context.Background()))
	return &Scheduler{cron: s, ctx: ctx, cancel: cancel, log: l}, nil
}

// Every registers job to run each interval, starting right away. A run that
// is still going when the next one is due pushes the next one back.
func (s *Scheduler) Every(name string, interval time.Duration, job Job) error {
	_, err := s.cron.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			start := time.Now()
			if err := job(s.ctx); err != nil {
				s.log.Error().Err(err).Str("job", name).Msg("job failed")
				return
			}
			s.log.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("job finished")
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Jobs())).Msg("scheduler started")
}

// Shutdown cancels running jobs and waits for them to return.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	return s.cron.Shutdown()
}
