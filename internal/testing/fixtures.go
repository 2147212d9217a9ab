package testing

import (
	"github.com/upsideon/orquestra-quantum/internal/circuits"
	"github.com/upsideon/orquestra-quantum/internal/sym"
)

// NewBellCircuit returns a two-qubit circuit preparing the Bell state
// (|00> + |11>) / sqrt(2).
func NewBellCircuit() *circuits.Circuit {
	return circuits.New(
		circuits.H.At(0),
		circuits.CNOT.At(0, 1),
	)
}

// NewParametricCircuit returns a circuit with a single free symbol
// "theta" on a rotation gate.
func NewParametricCircuit() *circuits.Circuit {
	theta := sym.NewSymbol("theta")
	return circuits.New(
		circuits.RY(theta).At(0),
		circuits.CNOT.At(0, 1),
	)
}

// NewGHZCircuit returns an n-qubit GHZ state preparation circuit.
func NewGHZCircuit(nQubits int) *circuits.Circuit {
	ops := []circuits.Operation{circuits.H.At(0)}
	for q := 1; q < nQubits; q++ {
		ops = append(ops, circuits.CNOT.At(q-1, q))
	}
	return circuits.New(ops...)
}
