package simulation

import (
	"bytes"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/upsideon/orquestra-quantum/internal/circuits"
)

// cachedWavefunction is the msgpack payload stored per cache entry.
// complex128 is not msgpack-serializable directly, so amplitudes are
// stored as parallel real and imaginary slices.
type cachedWavefunction struct {
	Real []float64 `msgpack:"real"`
	Imag []float64 `msgpack:"imag"`
}

// ResultCache stores simulated wavefunctions keyed by a hash of the
// circuit definition. Only deterministic results are cached; sampled
// measurements never are.
type ResultCache struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewResultCache creates a new result cache
func NewResultCache(db *sql.DB, log zerolog.Logger) *ResultCache {
	return &ResultCache{
		db:  db,
		log: log.With().Str("component", "result_cache").Logger(),
	}
}

// Key computes the cache key for a circuit.
func (c *ResultCache) Key(circuit *circuits.Circuit) (string, error) {
	var buf bytes.Buffer
	if err := circuits.SaveCircuit(circuit, &buf); err != nil {
		return "", fmt.Errorf("failed to encode circuit for cache key: %w", err)
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

// Get returns cached amplitudes, or ok=false on a miss.
func (c *ResultCache) Get(key string) ([]complex128, bool) {
	var payload []byte
	err := c.db.QueryRow(
		"SELECT payload FROM simulation_results WHERE cache_key = ?", key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		c.log.Warn().Err(err).Str("cache_key", key).Msg("Cache lookup failed")
		return nil, false
	}

	var cached cachedWavefunction
	if err := msgpack.Unmarshal(payload, &cached); err != nil {
		c.log.Warn().Err(err).Str("cache_key", key).Msg("Failed to decode cached result")
		return nil, false
	}
	if len(cached.Real) != len(cached.Imag) {
		return nil, false
	}

	amplitudes := make([]complex128, len(cached.Real))
	for i := range cached.Real {
		amplitudes[i] = complex(cached.Real[i], cached.Imag[i])
	}
	return amplitudes, true
}

// Put stores amplitudes under the given key. Cache failures are logged
// and swallowed; the cache is best-effort.
func (c *ResultCache) Put(key string, amplitudes []complex128) {
	cached := cachedWavefunction{
		Real: make([]float64, len(amplitudes)),
		Imag: make([]float64, len(amplitudes)),
	}
	for i, a := range amplitudes {
		cached.Real[i] = real(a)
		cached.Imag[i] = imag(a)
	}

	payload, err := msgpack.Marshal(&cached)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to encode result for cache")
		return
	}

	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO simulation_results (cache_key, payload, created_at) VALUES (?, ?, ?)",
		key, payload, time.Now().Unix(),
	)
	if err != nil {
		c.log.Warn().Err(err).Str("cache_key", key).Msg("Failed to store cached result")
	}
}

// Prune removes cache entries older than maxAge and returns the number
// removed.
func (c *ResultCache) Prune(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge).Unix()
	result, err := c.db.Exec("DELETE FROM simulation_results WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune result cache: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to prune result cache: %w", err)
	}
	return int(affected), nil
}
