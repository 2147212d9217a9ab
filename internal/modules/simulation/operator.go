package simulation

import (
	"fmt"

	"github.com/upsideon/orquestra-quantum/internal/wavefunction"
)

// IsingTerm is one weighted product of Pauli-Z factors. An empty qubit
// list denotes the constant (identity) term.
type IsingTerm struct {
	Coefficient  float64 `json:"coefficient"`
	QubitIndices []int   `json:"qubit_indices"`
}

// IsingOperator is a sum of Pauli-Z product terms. Operators of this
// form are diagonal in the computational basis, so expectation values
// can be computed from bitstrings alone.
type IsingOperator struct {
	Terms []IsingTerm `json:"terms"`
}

// Validate checks that every term addresses qubits inside the given
// envelope.
func (o IsingOperator) Validate(nQubits int) error {
	for t, term := range o.Terms {
		for _, q := range term.QubitIndices {
			if q < 0 || q >= nQubits {
				return fmt.Errorf("operator term %d addresses qubit %d outside a %d-qubit state", t, q, nQubits)
			}
		}
	}
	return nil
}

// ExactExpectationValues computes the expectation value of each term
// from the exact state.
func (o IsingOperator) ExactExpectationValues(state wavefunction.Wavefunction) ([]float64, error) {
	nQubits := state.NumQubits()
	if err := o.Validate(nQubits); err != nil {
		return nil, err
	}

	probabilities := state.Probabilities()
	values := make([]float64, len(o.Terms))
	for t, term := range o.Terms {
		var sum float64
		for index, p := range probabilities {
			sum += p * term.parityOfIndex(index, nQubits)
		}
		values[t] = term.Coefficient * sum
	}
	return values, nil
}

// parity returns +1 or -1 for the Z-product applied to a sampled
// bitstring.
func (term IsingTerm) parity(bitstring string) (float64, error) {
	parity := 1.0
	for _, q := range term.QubitIndices {
		if q < 0 || q >= len(bitstring) {
			return 0, fmt.Errorf("operator addresses qubit %d outside a %d-qubit bitstring", q, len(bitstring))
		}
		if bitstring[q] == '1' {
			parity = -parity
		}
	}
	return parity, nil
}

// parityOfIndex returns +1 or -1 for the Z-product applied to a basis
// state index. Qubit 0 is the most significant bit.
func (term IsingTerm) parityOfIndex(index, nQubits int) float64 {
	parity := 1.0
	for _, q := range term.QubitIndices {
		if index&(1<<(nQubits-1-q)) != 0 {
			parity = -parity
		}
	}
	return parity
}
