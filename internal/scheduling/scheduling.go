// Package scheduling runs periodic background jobs.
package scheduling

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// JobName represents the name of a periodic job.
type JobName string

// JobFunc represents the type of function that executes a scheduled job.
type JobFunc func(context.Context) error

// ErrInvalidSchedule is returned when a schedule is neither a crontab expression nor a positive duration.
var ErrInvalidSchedule = errors.New("invalid schedule, expected a crontab expression or a duration")

// Scheduler represents a background job scheduler.
type Scheduler struct {
	jobs      map[JobName]uuid.UUID
	scheduler gocron.Scheduler
}

// NewScheduler creates a new Scheduler.
func NewScheduler() (*Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		jobs:      map[JobName]uuid.UUID{},
		scheduler: scheduler,
	}, nil
}

// ParseSchedule turns a schedule into a job definition.
//
// Go durations ("30s", "5m") run the job at a fixed interval, anything else
// must be a standard five field crontab expression.
func ParseSchedule(schedule string) (gocron.JobDefinition, error) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		return nil, ErrInvalidSchedule
	}

	interval, err := time.ParseDuration(schedule)
	if err == nil {
		if interval <= 0 {
			return nil, ErrInvalidSchedule
		}

		return gocron.DurationJob(interval), nil
	}

	cron := gocron.NewDefaultCron(false)

	err = cron.IsValid(schedule, time.UTC, time.Now())
	if err != nil {
		return nil, ErrInvalidSchedule
	}

	return gocron.CronJob(schedule, false), nil
}

// RegisterJob registers a job in the Scheduler.
//
// If the job does not exist, it is created. If it already exists, it is updated.
func (s *Scheduler) RegisterJob(name JobName, schedule string, jobFunc JobFunc) error {
	definition, err := ParseSchedule(schedule)
	if err != nil {
		return err
	}

	id, ok := s.jobs[name]
	if ok {
		_, err := s.scheduler.Update(id,
			definition,
			gocron.NewTask(wrapJob(name, jobFunc)),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return err
		}

		return nil
	}

	job, err := s.scheduler.NewJob(
		definition,
		gocron.NewTask(wrapJob(name, jobFunc)),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	s.jobs[name] = job.ID()

	return nil
}

// RemoveJob removes a job from the Scheduler. Unknown jobs are ignored.
func (s *Scheduler) RemoveJob(name JobName) error {
	id, ok := s.jobs[name]
	if !ok {
		return nil
	}

	err := s.scheduler.RemoveJob(id)
	if err != nil {
		return err
	}

	delete(s.jobs, name)

	return nil
}

// Start starts the scheduler and its registered jobs.
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Shutdown shuts down the scheduler and its registered jobs.
func (s *Scheduler) Shutdown() error {
	return s.scheduler.Shutdown()
}

func wrapJob(name JobName, jobFunc JobFunc) func(context.Context) {
	return func(ctx context.Context) {
		select {
		// If the context is already cancelled, don't start the job.
		case <-ctx.Done():
			return

		default:
			slog.DebugContext(ctx, "Executing periodic job", slog.String("job", string(name)))

			err := jobFunc(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "Error running periodic job", slog.String("job", string(name)), slog.Any("error", err))
			}
		}
	}
}
