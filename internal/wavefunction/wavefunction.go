// Package wavefunction provides a dense statevector representation and
// the machinery to evolve it under circuit operations.
//
// Amplitude indices read qubit 0 as the most significant bit, so for a
// two-qubit state the amplitudes are ordered |00>, |01>, |10>, |11>
// with the first qubit written on the left. Gate matrices follow the
// same convention for their qubit arguments.
package wavefunction

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/upsideon/orquestra-quantum/internal/circuits"
)

const normalizationTolerance = 1e-9

// Wavefunction is an immutable statevector over a fixed number of
// qubits. Operations that evolve the state return a new Wavefunction.
type Wavefunction struct {
	amplitudes []complex128
}

// New returns the |0...0> state over nQubits qubits.
func New(nQubits int) (Wavefunction, error) {
	if nQubits < 0 {
		return Wavefunction{}, fmt.Errorf("cannot build a wavefunction over %d qubits", nQubits)
	}
	amplitudes := make([]complex128, 1<<nQubits)
	amplitudes[0] = 1
	return Wavefunction{amplitudes: amplitudes}, nil
}

// FromAmplitudes builds a wavefunction from explicit amplitudes. The
// slice length must be a power of two and the state must be normalized.
func FromAmplitudes(amplitudes []complex128) (Wavefunction, error) {
	n := len(amplitudes)
	if n == 0 || n&(n-1) != 0 {
		return Wavefunction{}, fmt.Errorf("amplitude count %d is not a power of two", n)
	}
	var norm float64
	for _, a := range amplitudes {
		norm += real(a)*real(a) + imag(a)*imag(a)
	}
	if math.Abs(norm-1) > normalizationTolerance {
		return Wavefunction{}, fmt.Errorf("amplitudes have squared norm %g, want 1", norm)
	}
	return Wavefunction{amplitudes: append([]complex128(nil), amplitudes...)}, nil
}

// NumQubits returns the number of qubits the state spans.
func (w Wavefunction) NumQubits() int {
	n := 0
	for dim := len(w.amplitudes); dim > 1; dim >>= 1 {
		n++
	}
	return n
}

// Amplitudes returns a copy of the state's amplitudes.
func (w Wavefunction) Amplitudes() []complex128 {
	return append([]complex128(nil), w.amplitudes...)
}

// Amplitude returns the amplitude of the given basis state.
func (w Wavefunction) Amplitude(index int) complex128 {
	return w.amplitudes[index]
}

// Probabilities returns the measurement probability of each basis
// state.
func (w Wavefunction) Probabilities() []float64 {
	probs := make([]float64, len(w.amplitudes))
	for i, a := range w.amplitudes {
		probs[i] = real(a)*real(a) + imag(a)*imag(a)
	}
	return probs
}

// Apply evolves the state under a single operation. Operations with
// unbound symbolic parameters are rejected.
func (w Wavefunction) Apply(op circuits.Operation) (Wavefunction, error) {
	switch o := op.(type) {
	case circuits.GateOperation:
		return w.applyGateOperation(o)
	case circuits.MultiPhaseOperation:
		return w.applyMultiPhase(o)
	}
	return Wavefunction{}, fmt.Errorf("cannot apply operation %s to a wavefunction", op)
}

// Simulate evolves the |0...0> state under every operation of the
// circuit in order.
func Simulate(c *circuits.Circuit) (Wavefunction, error) {
	if symbols := c.FreeSymbols(); len(symbols) > 0 {
		return Wavefunction{}, fmt.Errorf("%w: circuit still depends on %v", circuits.ErrUnboundParameters, symbols)
	}
	state, err := New(c.NumQubits())
	if err != nil {
		return Wavefunction{}, err
	}
	for _, op := range c.Operations() {
		state, err = state.Apply(op)
		if err != nil {
			return Wavefunction{}, err
		}
	}
	return state, nil
}

func (w Wavefunction) applyGateOperation(op circuits.GateOperation) (Wavefunction, error) {
	matrix, err := op.Gate().Matrix()
	if err != nil {
		return Wavefunction{}, err
	}

	n := w.NumQubits()
	qubits := op.QubitIndices()
	k := len(qubits)
	local := 1 << k

	// Bit position of each gate qubit within a basis index. The
	// first qubit argument maps to the most significant local bit.
	shifts := make([]int, k)
	mask := 0
	for i, q := range qubits {
		if q >= n {
			return Wavefunction{}, fmt.Errorf("operation %s addresses qubit %d outside a %d-qubit state", op, q, n)
		}
		shifts[i] = n - 1 - q
		mask |= 1 << shifts[i]
	}

	out := make([]complex128, len(w.amplitudes))
	indices := make([]int, local)
	block := make([]complex128, local)
	for base := range w.amplitudes {
		if base&mask != 0 {
			continue
		}
		for sub := 0; sub < local; sub++ {
			index := base
			for i, shift := range shifts {
				if sub&(1<<(k-1-i)) != 0 {
					index |= 1 << shift
				}
			}
			indices[sub] = index
			block[sub] = w.amplitudes[index]
		}
		for row := 0; row < local; row++ {
			var acc complex128
			for col := 0; col < local; col++ {
				acc += matrix.At(row, col) * block[col]
			}
			out[indices[row]] = acc
		}
	}
	return Wavefunction{amplitudes: out}, nil
}

func (w Wavefunction) applyMultiPhase(op circuits.MultiPhaseOperation) (Wavefunction, error) {
	params := op.Params()
	if len(params) != len(w.amplitudes) {
		return Wavefunction{}, fmt.Errorf(
			"multiphase operation carries %d parameters, state has %d amplitudes", len(params), len(w.amplitudes),
		)
	}
	out := make([]complex128, len(w.amplitudes))
	for i, expr := range params {
		value, ok := expr.Number()
		if !ok {
			return Wavefunction{}, fmt.Errorf("%w: multiphase parameter %d is %s", circuits.ErrUnboundParameters, i, expr)
		}
		out[i] = w.amplitudes[i] * cmplx.Exp(complex(0, value))
	}
	return Wavefunction{amplitudes: out}, nil
}
