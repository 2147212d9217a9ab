// Package library stores circuits in the circuit library database and
// exposes operations on stored circuits.
package library

import (
	"time"

	"github.com/upsideon/orquestra-quantum/internal/circuits"
)

// CircuitRecord is a stored circuit with its library metadata.
type CircuitRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	NQubits     int       `json:"n_qubits"`
	NOperations int       `json:"n_operations"`
	FreeSymbols []string  `json:"free_symbols"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Circuit *circuits.Circuit `json:"-"`
}
