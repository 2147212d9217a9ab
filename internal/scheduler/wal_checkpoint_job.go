package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/upsideon/orquestra-quantum/internal/database"
)

// WALCheckpointJob checkpoints the WAL of every database to prevent
// unbounded WAL growth on long-running deployments.
type WALCheckpointJob struct {
	databases map[string]*database.DB
	log       zerolog.Logger
}

// NewWALCheckpointJob creates a new WAL checkpoint job
func NewWALCheckpointJob(databases map[string]*database.DB, log zerolog.Logger) *WALCheckpointJob {
	return &WALCheckpointJob{
		databases: databases,
		log:       log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run checkpoints every database
func (j *WALCheckpointJob) Run() error {
	for name, db := range j.databases {
		if db == nil {
			continue
		}

		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", name).Msg("WAL checkpoint failed")
			continue
		}

		stats, err := db.GetStats()
		if err != nil {
			continue
		}

		j.log.Debug().
			Str("database", name).
			Int64("wal_size_bytes", stats.WALSizeBytes).
			Msg("WAL checkpoint completed")
	}

	return nil
}
