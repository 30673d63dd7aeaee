package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"studentdesk/internal/repository"
)

const jobTimeout = time.Minute

type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
	jobs int
}

func NewScheduler(log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron: c,
		log:  log,
	}
}

// AddSessionSweep removes expired sessions from stores that do not expire them natively.
func (s *Scheduler) AddSessionSweep(spec string, purger repository.SessionPurger) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		purged, err := purger.PurgeExpired(ctx, time.Now())
		if err != nil {
			s.log.Error().Err(err).Msg("session sweep failed")
			return
		}
		if purged > 0 {
			s.log.Info().Int64("purged", purged).Msg("expired sessions removed")
		}
	})
	if err == nil {
		s.jobs++
	}
	return err
}

func (s *Scheduler) AddSnapshot(spec string, snapshotter *Snapshotter) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if _, err := snapshotter.Run(ctx); err != nil {
			s.log.Error().Err(err).Msg("roster snapshot failed")
		}
	})
	if err == nil {
		s.jobs++
	}
	return err
}

func (s *Scheduler) Start() {
	if s.jobs == 0 {
		return
	}
	s.log.Info().Int("jobs", s.jobs).Msg("scheduler starting")
	s.cron.Start()
}

// Stop waits up to five seconds for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}
