package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testdb "github.com/upsideon/orquestra-quantum/internal/testing"
)

func TestSnapshotDatabase(t *testing.T) {
	db, cleanup := testdb.NewTestDB(t, "library")
	defer cleanup()

	_, err := db.Exec(
		"INSERT INTO circuits (id, name, n_qubits, n_operations, free_symbols, definition, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		"id-1", "bell", 2, 2, "", "{}", "2026-01-01T00:00:00Z", "2026-01-01T00:00:00Z",
	)
	require.NoError(t, err)

	snapshotPath := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, snapshotDatabase(context.Background(), db.Conn(), snapshotPath))

	// The snapshot is a standalone database with the same rows.
	snapshot, err := sql.Open("sqlite", snapshotPath)
	require.NoError(t, err)
	defer snapshot.Close()

	var count int
	require.NoError(t, snapshot.QueryRow("SELECT COUNT(*) FROM circuits").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestChecksumFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	sum, err := checksumFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sum)
}

func TestCreateArchive_RoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "library.db"), []byte("db contents"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "backup-metadata.json"), []byte("{}"), 0644))

	archivePath := filepath.Join(t.TempDir(), "archive.tar.gz")
	require.NoError(t, createArchive(archivePath, srcDir, []string{"library.db", "backup-metadata.json"}))

	file, err := os.Open(archivePath)
	require.NoError(t, err)
	defer file.Close()

	gz, err := gzip.NewReader(file)
	require.NoError(t, err)
	defer gz.Close()

	contents := make(map[string]string)
	reader := tar.NewReader(gz)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		contents[header.Name] = string(data)
	}

	assert.Equal(t, "db contents", contents["library.db"])
	assert.Equal(t, "{}", contents["backup-metadata.json"])
}

func TestWriteMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup-metadata.json")
	metadata := Metadata{
		Timestamp: time.Date(2026, 8, 1, 3, 0, 0, 0, time.UTC),
		Databases: []DatabaseMetadata{
			{Name: "library", Filename: "library.db", SizeBytes: 42, Checksum: "abc"},
		},
	}

	require.NoError(t, writeMetadata(path, metadata))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Metadata
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got.Databases, 1)
	assert.Equal(t, "library", got.Databases[0].Name)
	assert.Equal(t, int64(42), got.Databases[0].SizeBytes)
}

func TestServiceKey(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	withPrefix := NewService(nil, nil, "", "orquestra", nil, log)
	assert.Equal(t, "orquestra/archive.tar.gz", withPrefix.key("archive.tar.gz"))

	noPrefix := NewService(nil, nil, "", "", nil, log)
	assert.Equal(t, "archive.tar.gz", noPrefix.key("archive.tar.gz"))
}
