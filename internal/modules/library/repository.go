package library

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/upsideon/orquestra-quantum/internal/circuits"
)

// ErrNotFound is returned when no circuit matches the requested ID or name.
var ErrNotFound = errors.New("circuit not found")

// circuitsColumns is the list of columns for the circuits table
// Used to avoid SELECT * which can break when schema changes
const circuitsColumns = `id, name, n_qubits, n_operations, free_symbols, definition, created_at, updated_at`

// Repository handles circuit database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new circuit repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "circuits").Logger(),
	}
}

// Create stores a new circuit under the given name and returns its record.
func (r *Repository) Create(name string, circuit *circuits.Circuit) (*CircuitRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("circuit name is required")
	}

	definition, err := encodeCircuit(circuit)
	if err != nil {
		return nil, err
	}

	record := &CircuitRecord{
		ID:          uuid.NewString(),
		Name:        name,
		NQubits:     circuit.NumQubits(),
		NOperations: len(circuit.Operations()),
		FreeSymbols: symbolNames(circuit),
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
		Circuit:     circuit,
	}

	query := `
		INSERT INTO circuits
		(id, name, n_qubits, n_operations, free_symbols, definition, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		record.ID,
		record.Name,
		record.NQubits,
		record.NOperations,
		strings.Join(record.FreeSymbols, ","),
		definition,
		record.CreatedAt.Format(time.RFC3339Nano),
		record.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("circuit named %q already exists", name)
		}
		return nil, fmt.Errorf("failed to create circuit: %w", err)
	}

	r.log.Info().
		Str("circuit_id", record.ID).
		Str("name", record.Name).
		Int("n_qubits", record.NQubits).
		Msg("Circuit stored")

	return record, nil
}

// Update replaces the stored circuit for the given ID.
func (r *Repository) Update(id string, circuit *circuits.Circuit) (*CircuitRecord, error) {
	definition, err := encodeCircuit(circuit)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	query := `
		UPDATE circuits
		SET n_qubits = ?, n_operations = ?, free_symbols = ?, definition = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		circuit.NumQubits(),
		len(circuit.Operations()),
		strings.Join(symbolNames(circuit), ","),
		definition,
		now.Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update circuit %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to update circuit %s: %w", id, err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	return r.GetByID(id)
}

// GetByID retrieves a circuit by its ID.
func (r *Repository) GetByID(id string) (*CircuitRecord, error) {
	query := "SELECT " + circuitsColumns + " FROM circuits WHERE id = ?"
	return r.scanRecord(r.db.QueryRow(query, id))
}

// GetByName retrieves a circuit by its unique name.
func (r *Repository) GetByName(name string) (*CircuitRecord, error) {
	query := "SELECT " + circuitsColumns + " FROM circuits WHERE name = ?"
	return r.scanRecord(r.db.QueryRow(query, name))
}

// List returns all stored circuits ordered by name. The returned
// records carry metadata only; load the full circuit via GetByID.
func (r *Repository) List() ([]CircuitRecord, error) {
	query := "SELECT " + circuitsColumns + " FROM circuits ORDER BY name"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list circuits: %w", err)
	}
	defer rows.Close()

	var records []CircuitRecord
	for rows.Next() {
		record, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		record.Circuit = nil
		records = append(records, *record)
	}
	return records, rows.Err()
}

// Delete removes a circuit by ID.
func (r *Repository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM circuits WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete circuit %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete circuit %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	r.log.Info().Str("circuit_id", id).Msg("Circuit deleted")
	return nil
}

// Count returns the number of stored circuits.
func (r *Repository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM circuits").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count circuits: %w", err)
	}
	return count, nil
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) scanRecord(row *sql.Row) (*CircuitRecord, error) {
	record, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return record, err
}

func scanRow(row scannable) (*CircuitRecord, error) {
	var (
		record      CircuitRecord
		freeSymbols string
		definition  string
		createdAt   string
		updatedAt   string
	)

	err := row.Scan(
		&record.ID,
		&record.Name,
		&record.NQubits,
		&record.NOperations,
		&freeSymbols,
		&definition,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if freeSymbols != "" {
		record.FreeSymbols = strings.Split(freeSymbols, ",")
	}

	record.Circuit, err = circuits.LoadCircuit(strings.NewReader(definition))
	if err != nil {
		return nil, fmt.Errorf("failed to decode stored circuit %s: %w", record.ID, err)
	}

	if record.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at for circuit %s: %w", record.ID, err)
	}
	if record.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at for circuit %s: %w", record.ID, err)
	}

	return &record, nil
}

func encodeCircuit(c *circuits.Circuit) (string, error) {
	var buf bytes.Buffer
	if err := circuits.SaveCircuit(c, &buf); err != nil {
		return "", fmt.Errorf("failed to encode circuit: %w", err)
	}
	return buf.String(), nil
}

func symbolNames(c *circuits.Circuit) []string {
	symbols := c.FreeSymbols()
	names := make([]string, len(symbols))
	for i, s := range symbols {
		names[i] = s.Name()
	}
	return names
}
