package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job outcomes reported to the Recorder.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Locker keeps a job from running on more than one instance at a time.
type Locker interface {
	TryLock(ctx context.Context, job string, ttl time.Duration) (bool, error)
}

// Recorder counts job runs.
type Recorder interface {
	JobRun(job, outcome string)
}

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Schedule string
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs jobs on cron schedules.
type Scheduler struct {
	cron     *cron.Cron
	locker   Locker
	recorder Recorder
	logger   zerolog.Logger
	parent   context.Context
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocker makes every run acquire a lock first.
func WithLocker(l Locker) Option {
	return func(s *Scheduler) { s.locker = l }
}

// WithRecorder reports run outcomes.
func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) { s.recorder = r }
}

// New creates a Scheduler. Schedules use the standard five field format
// evaluated in UTC.
func New(logger zerolog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		logger: logger,
		parent: context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers a job.
func (s *Scheduler) Add(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("job %s: missing run function", job.Name)
	}
	if job.Timeout <= 0 {
		job.Timeout = 10 * time.Minute
	}

	id, err := s.cron.AddFunc(job.Schedule, func() {
		s.execute(s.parent, job)
	})
	if err != nil {
		return fmt.Errorf("job %s: invalid schedule %q: %w", job.Name, job.Schedule, err)
	}

	s.logger.Info().
		Str("job", job.Name).
		Str("schedule", job.Schedule).
		Time("next", s.cron.Entry(id).Next).
		Msg("job scheduled")

	return nil
}

// Run starts the scheduler and blocks until ctx is cancelled. Jobs that
// are still running get their contexts cancelled and are waited for.
func (s *Scheduler) Run(ctx context.Context) error {
	s.parent = ctx
	s.cron.Start()
	s.logger.Info().Int("jobs", len(s.cron.Entries())).Msg("scheduler started")

	<-ctx.Done()

	<-s.cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) execute(parent context.Context, job Job) {
	ctx, cancel := context.WithTimeout(parent, job.Timeout)
	defer cancel()

	log := s.logger.With().Str("job", job.Name).Logger()

	if s.locker != nil {
		acquired, err := s.locker.TryLock(ctx, job.Name, job.Timeout)
		if err != nil {
			log.Error().Err(err).Msg("failed to acquire job lock")
			s.record(job.Name, OutcomeFailure)
			return
		}
		if !acquired {
			log.Debug().Msg("job running elsewhere, skipping")
			s.record(job.Name, OutcomeSkipped)
			return
		}
	}

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("job failed")
		s.record(job.Name, OutcomeFailure)
		return
	}

	log.Info().Dur("duration", time.Since(start)).Msg("job completed")
	s.record(job.Name, OutcomeSuccess)
}

func (s *Scheduler) record(job, outcome string) {
	if s.recorder != nil {
		s.recorder.JobRun(job, outcome)
	}
}
