package circuits

import (
	"fmt"
	"strings"

	"github.com/upsideon/orquestra-quantum/internal/sym"
)

// Operation is anything a circuit can hold: a gate applied to qubit
// lines, or a whole-state operation acting on the full wavefunction.
// Operations are immutable; Bind returns a new operation.
type Operation interface {
	// Params returns the operation's parameters in order. Entries may be
	// concrete numbers or carry free symbols.
	Params() []sym.Expr

	// FreeSymbols returns the unbound symbols across all parameters in
	// first-occurrence order, without duplicates.
	FreeSymbols() []sym.Symbol

	// Bind substitutes matching symbols in every parameter and returns
	// the resulting operation. Bindings for symbols the operation does
	// not contain are silently ignored.
	Bind(b sym.Bindings) Operation

	// Equal reports whether the other operation is of the same kind with
	// equal structure.
	Equal(other Operation) bool

	// String renders the operation for diagnostics. It never panics.
	String() string
}

// qubitAddressed is the optional capability of operations that reference
// explicit qubit lines. Whole-state operations do not implement it.
type qubitAddressed interface {
	QubitIndices() []int
}

// GateOperation is a gate applied to specific qubit lines.
type GateOperation struct {
	gate   Gate
	qubits []int
}

func newGateOperation(gate Gate, qubits []int) GateOperation {
	if len(qubits) != gate.NumQubits() {
		panic(fmt.Sprintf("gate %s spans %d qubits, got %d indices", gate.Name(), gate.NumQubits(), len(qubits)))
	}
	for _, q := range qubits {
		if q < 0 {
			panic(fmt.Sprintf("gate %s applied to negative qubit index %d", gate.Name(), q))
		}
	}
	return GateOperation{gate: gate, qubits: append([]int(nil), qubits...)}
}

// Gate returns the underlying gate.
func (op GateOperation) Gate() Gate { return op.gate }

// QubitIndices returns the qubit lines the operation addresses, in the
// order they were given to At.
func (op GateOperation) QubitIndices() []int { return append([]int(nil), op.qubits...) }

func (op GateOperation) Params() []sym.Expr { return op.gate.Params() }

func (op GateOperation) FreeSymbols() []sym.Symbol { return op.gate.FreeSymbols() }

func (op GateOperation) Bind(b sym.Bindings) Operation {
	return GateOperation{gate: op.gate.Bind(b), qubits: op.qubits}
}

func (op GateOperation) Equal(other Operation) bool {
	o, ok := other.(GateOperation)
	if !ok || len(o.qubits) != len(op.qubits) {
		return false
	}
	for i := range op.qubits {
		if op.qubits[i] != o.qubits[i] {
			return false
		}
	}
	return op.gate.Equal(o.gate)
}

func (op GateOperation) String() string {
	indices := make([]string, len(op.qubits))
	for i, q := range op.qubits {
		indices[i] = fmt.Sprintf("%d", q)
	}
	return fmt.Sprintf("%s(%s)", gateString(op.gate), strings.Join(indices, ", "))
}

// MultiPhaseOperation multiplies each wavefunction amplitude by a phase
// factor exp(i*p_k). It addresses no qubit lines: it acts on the full
// state and carries one parameter per basis state.
type MultiPhaseOperation struct {
	parameters []sym.Expr
}

// NewMultiPhaseOperation creates a whole-state phase operation from the
// given per-basis-state parameters.
func NewMultiPhaseOperation(parameters ...sym.Expr) MultiPhaseOperation {
	return MultiPhaseOperation{parameters: append([]sym.Expr(nil), parameters...)}
}

func (op MultiPhaseOperation) Params() []sym.Expr { return copyExprs(op.parameters) }

func (op MultiPhaseOperation) FreeSymbols() []sym.Symbol { return freeSymbolsOf(op.parameters) }

func (op MultiPhaseOperation) Bind(b sym.Bindings) Operation {
	return MultiPhaseOperation{parameters: substituteExprs(op.parameters, b)}
}

func (op MultiPhaseOperation) Equal(other Operation) bool {
	o, ok := other.(MultiPhaseOperation)
	return ok && equalExprs(op.parameters, o.parameters)
}

func (op MultiPhaseOperation) String() string {
	parts := make([]string, len(op.parameters))
	for i, p := range op.parameters {
		parts[i] = p.String()
	}
	return fmt.Sprintf("MultiPhaseOperation(%s)", strings.Join(parts, ", "))
}
