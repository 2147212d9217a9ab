package simulation

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrJobNotFound is returned when no job matches the requested ID.
var ErrJobNotFound = errors.New("job not found")

// jobColumns is the list of columns for the simulation_jobs table
// Used to avoid SELECT * which can break when schema changes
const jobColumns = `id, type, status, error, results, submitted_at, completed_at`

// JobStore persists job history rows in the cache database.
type JobStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewJobStore creates a new job store
func NewJobStore(db *sql.DB, log zerolog.Logger) *JobStore {
	return &JobStore{
		db:  db,
		log: log.With().Str("repo", "simulation_jobs").Logger(),
	}
}

// Save upserts the job's current state.
func (s *JobStore) Save(job *Job) error {
	var results interface{}
	if job.Results != nil {
		encoded, err := json.Marshal(job.Results)
		if err != nil {
			return fmt.Errorf("failed to encode job results: %w", err)
		}
		results = string(encoded)
	}

	var completedAt interface{}
	if job.CompletedAt != nil {
		completedAt = job.CompletedAt.Format(time.RFC3339Nano)
	}

	query := `
		INSERT OR REPLACE INTO simulation_jobs
		(id, type, status, error, results, submitted_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		job.ID,
		job.Type,
		job.Status,
		job.Error,
		results,
		job.SubmittedAt.Format(time.RFC3339Nano),
		completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}
	return nil
}

// Get returns the stored job with the given ID.
func (s *JobStore) Get(id string) (*Job, error) {
	row := s.db.QueryRow(
		fmt.Sprintf("SELECT %s FROM simulation_jobs WHERE id = ?", jobColumns), id,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return job, err
}

// List returns all stored jobs, newest first.
func (s *JobStore) List() ([]*Job, error) {
	rows, err := s.db.Query(
		fmt.Sprintf("SELECT %s FROM simulation_jobs ORDER BY submitted_at DESC", jobColumns),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job         Job
		results     sql.NullString
		submittedAt string
		completedAt sql.NullString
	)

	err := row.Scan(
		&job.ID,
		&job.Type,
		&job.Status,
		&job.Error,
		&results,
		&submittedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if job.SubmittedAt, err = time.Parse(time.RFC3339Nano, submittedAt); err != nil {
		return nil, fmt.Errorf("failed to parse job submitted_at: %w", err)
	}
	if completedAt.Valid {
		parsed, err := time.Parse(time.RFC3339Nano, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse job completed_at: %w", err)
		}
		job.CompletedAt = &parsed
	}
	if results.Valid {
		if err := json.Unmarshal([]byte(results.String), &job.Results); err != nil {
			return nil, fmt.Errorf("failed to decode job results: %w", err)
		}
	}

	return &job, nil
}
