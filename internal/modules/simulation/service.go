package simulation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/upsideon/orquestra-quantum/internal/circuits"
	"github.com/upsideon/orquestra-quantum/internal/events"
)

// Job statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job types.
const (
	JobRunAndMeasure    = "run_and_measure"
	JobRunSetAndMeasure = "run_set_and_measure"
)

// Job tracks one asynchronous simulation run.
type Job struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Status      string         `json:"status"`
	SubmittedAt time.Time      `json:"submitted_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	Results     []Measurements `json:"results,omitempty"`
}

// Service runs simulations as tracked jobs and publishes their
// lifecycle on the event bus. Job state is mirrored to the store so
// history survives restarts; the store may be nil.
type Service struct {
	simulator *Simulator
	store     *JobStore
	eventBus  *events.Bus
	log       zerolog.Logger

	mu   sync.RWMutex
	jobs map[string]*Job
	wg   sync.WaitGroup
}

// NewService creates a new simulation service
func NewService(simulator *Simulator, store *JobStore, eventBus *events.Bus, log zerolog.Logger) *Service {
	return &Service{
		simulator: simulator,
		store:     store,
		eventBus:  eventBus,
		log:       log.With().Str("service", "simulation").Logger(),
		jobs:      make(map[string]*Job),
	}
}

// Simulator exposes the underlying simulator for synchronous runs.
func (s *Service) Simulator() *Simulator {
	return s.simulator
}

// SubmitRunAndMeasure schedules an asynchronous run of one circuit.
func (s *Service) SubmitRunAndMeasure(circuit *circuits.Circuit, nSamples int) *Job {
	job := s.newJob(JobRunAndMeasure)
	s.start(job, func(ctx context.Context) ([]Measurements, error) {
		measurements, err := s.simulator.RunAndMeasure(ctx, circuit, nSamples)
		if err != nil {
			return nil, err
		}
		return []Measurements{measurements}, nil
	})
	return job
}

// SubmitRunSetAndMeasure schedules an asynchronous run of a circuit set.
func (s *Service) SubmitRunSetAndMeasure(circuitSet []*circuits.Circuit, nSamples int) *Job {
	job := s.newJob(JobRunSetAndMeasure)
	s.start(job, func(ctx context.Context) ([]Measurements, error) {
		return s.simulator.RunSetAndMeasure(ctx, circuitSet, nSamples)
	})
	return job
}

// GetJob returns a snapshot of the job with the given ID, falling back
// to the store for jobs submitted before the last restart.
func (s *Service) GetJob(id string) (*Job, error) {
	s.mu.RLock()
	job, ok := s.jobs[id]
	if ok {
		snapshot := *job
		s.mu.RUnlock()
		return &snapshot, nil
	}
	s.mu.RUnlock()

	if s.store != nil {
		return s.store.Get(id)
	}
	return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
}

// ListJobs returns snapshots of all known jobs, including stored jobs
// from earlier runs. In-memory state wins for live jobs.
func (s *Service) ListJobs() []*Job {
	var jobs []*Job
	seen := make(map[string]bool)

	s.mu.RLock()
	for _, job := range s.jobs {
		snapshot := *job
		jobs = append(jobs, &snapshot)
		seen[job.ID] = true
	}
	s.mu.RUnlock()

	if s.store != nil {
		stored, err := s.store.List()
		if err != nil {
			s.log.Warn().Err(err).Msg("Failed to list stored jobs")
			return jobs
		}
		for _, job := range stored {
			if !seen[job.ID] {
				jobs = append(jobs, job)
			}
		}
	}
	return jobs
}

// Wait blocks until all submitted jobs have finished. Used in tests
// and during shutdown.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) newJob(jobType string) *Job {
	job := &Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		Status:      StatusPending,
		SubmittedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	s.persist(job)
	return job
}

func (s *Service) start(job *Job, run func(context.Context) ([]Measurements, error)) {
	s.publishStatus(job, "started", "")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.setStatus(job.ID, StatusRunning)

		// Jobs outlive the submitting request, so they run under
		// their own context.
		results, err := run(context.Background())
		now := time.Now().UTC()

		s.mu.Lock()
		stored := s.jobs[job.ID]
		stored.CompletedAt = &now
		if err != nil {
			stored.Status = StatusFailed
			stored.Error = err.Error()
		} else {
			stored.Status = StatusCompleted
			stored.Results = results
		}
		snapshot := *stored
		s.mu.Unlock()

		s.persist(&snapshot)

		if err != nil {
			s.log.Error().Err(err).Str("job_id", job.ID).Msg("Simulation job failed")
			s.publishStatus(&snapshot, "failed", err.Error())
			return
		}

		s.publishStatus(&snapshot, "completed", "")
	}()
}

func (s *Service) persist(job *Job) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(job); err != nil {
		s.log.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to persist job")
	}
}

func (s *Service) setStatus(id, status string) {
	s.mu.Lock()
	if job, ok := s.jobs[id]; ok {
		job.Status = status
	}
	s.mu.Unlock()
}

func (s *Service) publishStatus(job *Job, status, errMsg string) {
	duration := 0.0
	if job.CompletedAt != nil {
		duration = job.CompletedAt.Sub(job.SubmittedAt).Seconds()
	}

	s.eventBus.Publish("simulation", &events.JobStatusData{
		JobID:     job.ID,
		JobType:   job.Type,
		Status:    status,
		Error:     errMsg,
		Duration:  duration,
		Timestamp: time.Now().UTC(),
	})
}
