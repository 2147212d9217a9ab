package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/upsideon/orquestra-quantum/internal/modules/backup"
)

// BackupJob uploads a backup archive and rotates old snapshots.
type BackupJob struct {
	service      *backup.Service
	maxSnapshots int
	timeout      time.Duration
	log          zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(service *backup.Service, maxSnapshots int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:      service,
		maxSnapshots: maxSnapshots,
		timeout:      15 * time.Minute,
		log:          log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "backup"
}

// Run creates and uploads a backup, then rotates old snapshots
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.service.CreateAndUpload(ctx); err != nil {
		return err
	}

	if err := j.service.RotateOldBackups(ctx, j.maxSnapshots); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	return nil
}
