package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/upsideon/orquestra-quantum/internal/events"
)

const archivePrefix = "library-backup-"
const archiveTimeLayout = "2006-01-02-150405"

// DatabaseSource is a database the backup service can snapshot.
type DatabaseSource interface {
	Name() string
	Conn() *sql.DB
}

// Metadata describes one backup archive.
type Metadata struct {
	Timestamp time.Time          `json:"timestamp"`
	Databases []DatabaseMetadata `json:"databases"`
}

// DatabaseMetadata describes a single database inside a backup.
type DatabaseMetadata struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// Info describes a backup stored remotely.
type Info struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// Service snapshots the databases, archives them, and uploads the
// archive to object storage.
type Service struct {
	client    *S3Client
	databases []DatabaseSource
	dataDir   string
	prefix    string
	eventBus  *events.Bus
	log       zerolog.Logger
}

// NewService creates a new backup service
func NewService(client *S3Client, databases []DatabaseSource, dataDir, prefix string, eventBus *events.Bus, log zerolog.Logger) *Service {
	return &Service{
		client:    client,
		databases: databases,
		dataDir:   dataDir,
		prefix:    prefix,
		eventBus:  eventBus,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// CreateAndUpload snapshots every database, archives the snapshots,
// and uploads the archive.
func (s *Service) CreateAndUpload(ctx context.Context) error {
	s.log.Info().Msg("Starting backup")
	startTime := time.Now()

	stagingDir := filepath.Join(s.dataDir, "backup-staging")
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return s.fail(fmt.Errorf("failed to create staging directory: %w", err))
	}
	defer os.RemoveAll(stagingDir)

	metadata := Metadata{
		Timestamp: time.Now().UTC(),
		Databases: make([]DatabaseMetadata, 0, len(s.databases)),
	}

	var filenames []string
	for _, db := range s.databases {
		filename := db.Name() + ".db"
		snapshotPath := filepath.Join(stagingDir, filename)

		s.log.Debug().Str("database", db.Name()).Msg("Snapshotting database")

		if err := snapshotDatabase(ctx, db.Conn(), snapshotPath); err != nil {
			return s.fail(fmt.Errorf("failed to snapshot %s: %w", db.Name(), err))
		}

		info, err := os.Stat(snapshotPath)
		if err != nil {
			return s.fail(fmt.Errorf("failed to stat %s snapshot: %w", db.Name(), err))
		}

		checksum, err := checksumFile(snapshotPath)
		if err != nil {
			return s.fail(fmt.Errorf("failed to checksum %s snapshot: %w", db.Name(), err))
		}

		metadata.Databases = append(metadata.Databases, DatabaseMetadata{
			Name:      db.Name(),
			Filename:  filename,
			SizeBytes: info.Size(),
			Checksum:  checksum,
		})
		filenames = append(filenames, filename)
	}

	metadataPath := filepath.Join(stagingDir, "backup-metadata.json")
	if err := writeMetadata(metadataPath, metadata); err != nil {
		return s.fail(fmt.Errorf("failed to write metadata: %w", err))
	}
	filenames = append(filenames, "backup-metadata.json")

	archiveName := archivePrefix + time.Now().Format(archiveTimeLayout) + ".tar.gz"
	archivePath := filepath.Join(stagingDir, archiveName)

	if err := createArchive(archivePath, stagingDir, filenames); err != nil {
		return s.fail(fmt.Errorf("failed to create archive: %w", err))
	}

	archiveInfo, err := os.Stat(archivePath)
	if err != nil {
		return s.fail(fmt.Errorf("failed to stat archive: %w", err))
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return s.fail(fmt.Errorf("failed to open archive: %w", err))
	}
	defer archiveFile.Close()

	key := s.key(archiveName)
	if err := s.client.Upload(ctx, key, archiveFile); err != nil {
		return s.fail(err)
	}

	duration := time.Since(startTime)
	s.log.Info().
		Dur("duration_ms", duration).
		Str("archive", archiveName).
		Int64("size_bytes", archiveInfo.Size()).
		Msg("Backup completed")

	s.eventBus.Publish("backup", &events.BackupData{
		Key:      key,
		Bucket:   s.client.Bucket(),
		Bytes:    archiveInfo.Size(),
		Duration: duration.Seconds(),
	})

	return nil
}

// ListBackups lists the remote backup archives, newest first.
func (s *Service) ListBackups(ctx context.Context) ([]Info, error) {
	objects, err := s.client.List(ctx, s.key(archivePrefix))
	if err != nil {
		return nil, err
	}

	backups := make([]Info, 0, len(objects))
	now := time.Now()

	for _, obj := range objects {
		if obj.Key == nil {
			continue
		}

		filename := filepath.Base(*obj.Key)
		if !strings.HasPrefix(filename, archivePrefix) || !strings.HasSuffix(filename, ".tar.gz") {
			continue
		}

		timestampStr := strings.TrimSuffix(strings.TrimPrefix(filename, archivePrefix), ".tar.gz")
		timestamp, err := time.Parse(archiveTimeLayout, timestampStr)
		if err != nil {
			s.log.Warn().Str("filename", filename).Msg("Failed to parse timestamp from filename")
			continue
		}

		var sizeBytes int64
		if obj.Size != nil {
			sizeBytes = *obj.Size
		}

		backups = append(backups, Info{
			Filename:  filename,
			Timestamp: timestamp,
			SizeBytes: sizeBytes,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})

	return backups, nil
}

// RotateOldBackups deletes remote archives beyond maxSnapshots,
// keeping the newest.
func (s *Service) RotateOldBackups(ctx context.Context, maxSnapshots int) error {
	if maxSnapshots <= 0 {
		return nil
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return err
	}
	if len(backups) <= maxSnapshots {
		return nil
	}

	deleted := 0
	for _, backup := range backups[maxSnapshots:] {
		if err := s.client.Delete(ctx, s.key(backup.Filename)); err != nil {
			s.log.Error().Err(err).Str("filename", backup.Filename).Msg("Failed to delete old backup")
			continue
		}
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("Backup rotation completed")

	return nil
}

func (s *Service) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *Service) fail(err error) error {
	s.eventBus.Publish("backup", &events.BackupData{Error: err.Error()})
	return err
}

// snapshotDatabase writes a consistent copy of the database using
// VACUUM INTO, which works while the source stays online.
func snapshotDatabase(ctx context.Context, conn *sql.DB, path string) error {
	_, err := conn.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", strings.ReplaceAll(path, "'", "''")))
	return err
}

func checksumFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func writeMetadata(path string, metadata Metadata) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}

func createArchive(archivePath, sourceDir string, filenames []string) error {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer archiveFile.Close()

	gzipWriter := gzip.NewWriter(archiveFile)
	defer gzipWriter.Close()

	tarWriter := tar.NewWriter(gzipWriter)
	defer tarWriter.Close()

	for _, filename := range filenames {
		if err := addFileToArchive(tarWriter, filepath.Join(sourceDir, filename), filename); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", filename, err)
		}
	}

	return nil
}

func addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}

	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}

	if _, err := io.Copy(tarWriter, file); err != nil {
		return err
	}

	return nil
}
