// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/upsideon/orquestra-quantum/internal/events"
)

// Job is a named maintenance task.
type Job interface {
	Name() string
	Run() error
}

// Scheduler wraps a cron runner and publishes job outcomes on the
// event bus.
type Scheduler struct {
	cron     *cron.Cron
	eventBus *events.Bus
	log      zerolog.Logger
}

// New creates a new scheduler
func New(eventBus *events.Bus, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		eventBus: eventBus,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// Register schedules a job with a cron expression.
func (s *Scheduler) Register(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.runJob(job)
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("job", job.Name()).
		Str("schedule", spec).
		Msg("Job scheduled")
	return nil
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(job Job) {
	s.runJob(job)
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runJob(job Job) {
	start := time.Now()
	s.log.Info().Str("job", job.Name()).Msg("Running maintenance job")

	if err := job.Run(); err != nil {
		s.log.Error().Err(err).Str("job", job.Name()).Msg("Maintenance job failed")
		s.eventBus.Publish("scheduler", &events.ErrorEventData{
			Error:   err.Error(),
			Context: map[string]interface{}{"job": job.Name()},
		})
		return
	}

	s.eventBus.Publish("scheduler", &events.MaintenanceCompletedData{
		Job:      job.Name(),
		Duration: time.Since(start).Seconds(),
	})
}
