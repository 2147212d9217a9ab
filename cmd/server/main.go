// Package main is the entry point for the Orquestra circuit service.
// The service stores quantum circuits in a SQLite-backed library,
// simulates them on a wavefunction backend, and exposes both over a
// REST API with an event stream for job and maintenance notifications.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/upsideon/orquestra-quantum/internal/config"
	"github.com/upsideon/orquestra-quantum/internal/database"
	"github.com/upsideon/orquestra-quantum/internal/events"
	"github.com/upsideon/orquestra-quantum/internal/modules/backup"
	"github.com/upsideon/orquestra-quantum/internal/modules/library"
	"github.com/upsideon/orquestra-quantum/internal/modules/simulation"
	"github.com/upsideon/orquestra-quantum/internal/scheduler"
	"github.com/upsideon/orquestra-quantum/internal/server"
	"github.com/upsideon/orquestra-quantum/pkg/logger"
)

const cachePruneMaxAge = 7 * 24 * time.Hour

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	log.Info().Msg("Starting Orquestra")

	// Databases: library.db holds named circuits, cache.db holds
	// ephemeral simulation results.
	libraryDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "library.db"),
		Profile: database.ProfileStandard,
		Name:    "library",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open library database")
	}
	defer libraryDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	if err := libraryDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate library database")
	}
	if err := cacheDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate cache database")
	}

	// Event bus wires library changes, job progress, and maintenance
	// results to stream consumers.
	eventBus := events.NewBus(log)

	libraryRepo := library.NewRepository(libraryDB.Conn(), log)
	libraryService := library.NewService(libraryRepo, eventBus, log)

	resultCache := simulation.NewResultCache(cacheDB.Conn(), log)
	simulator := simulation.NewSimulator(resultCache, log)
	jobStore := simulation.NewJobStore(cacheDB.Conn(), log)
	simulationService := simulation.NewService(simulator, jobStore, eventBus, log)

	// Maintenance scheduler: WAL checkpoints, cache pruning, and the
	// optional S3 backup job.
	sched := scheduler.New(eventBus, log)

	databases := map[string]*database.DB{
		"library": libraryDB,
		"cache":   cacheDB,
	}

	if err := sched.Register("*/30 * * * *", scheduler.NewWALCheckpointJob(databases, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register WAL checkpoint job")
	}
	if err := sched.Register("0 4 * * *", scheduler.NewCachePruneJob(resultCache, cachePruneMaxAge, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache prune job")
	}

	var backupJob scheduler.Job
	if cfg.Backup.Enabled() {
		s3Client, err := backup.NewS3Client(context.Background(), cfg.Backup.Bucket, cfg.Backup.Region, cfg.Backup.Endpoint, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create S3 client")
		}

		backupService := backup.NewService(
			s3Client,
			[]backup.DatabaseSource{libraryDB},
			cfg.DataDir,
			cfg.Backup.Prefix,
			eventBus,
			log,
		)

		backupJob = scheduler.NewBackupJob(backupService, cfg.Backup.MaxSnapshots, log)
		if err := sched.Register(cfg.Backup.Schedule, backupJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
		log.Info().
			Str("bucket", cfg.Backup.Bucket).
			Str("schedule", cfg.Backup.Schedule).
			Msg("Backups enabled")
	} else {
		log.Info().Msg("Backups disabled (BACKUP_S3_BUCKET not set)")
	}

	sched.Start()
	log.Info().Msg("Maintenance scheduler started")

	srv := server.New(server.Config{
		Log:               log,
		Cfg:               cfg,
		Port:              cfg.Port,
		DevMode:           cfg.DevMode,
		LibraryDB:         libraryDB,
		CacheDB:           cacheDB,
		EventBus:          eventBus,
		LibraryService:    libraryService,
		SimulationService: simulationService,
		Scheduler:         sched,
		BackupJob:         backupJob,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	sched.Stop()
	log.Info().Msg("Maintenance scheduler stopped")

	// Let in-flight simulation jobs finish before closing databases.
	simulationService.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
