// Package circuits provides the quantum circuit container: gates, gate
// operations, symbolic parameter binding, composition, and structural
// partitioning. Circuits are immutable values; every composing or binding
// call returns a new circuit.
package circuits

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/upsideon/orquestra-quantum/internal/sym"
)

// Errors reported by gate and circuit constructors.
var (
	// ErrInvalidQubitCount is returned when a circuit is constructed with
	// a negative or non-integral qubit count.
	ErrInvalidQubitCount = errors.New("invalid qubit count")

	// ErrUnboundParameters is returned when a numeric matrix is requested
	// from a gate that still carries free symbols.
	ErrUnboundParameters = errors.New("gate has unbound parameters")
)

// Names of the special gate wrappers, used by serialization.
const (
	ControlledGateName = "Control"
	DaggerGateName     = "Dagger"
)

// Gate is a unitary operation with a name and an ordered list of
// parameters, possibly symbolic. Gates are immutable: Bind returns a new
// gate and never mutates the receiver.
type Gate interface {
	// Name identifies the gate ("X", "RX", custom names, ...).
	Name() string

	// Params returns the gate's parameters in declaration order.
	Params() []sym.Expr

	// NumQubits returns the number of qubit lines the gate spans.
	NumQubits() int

	// FreeSymbols returns the unbound symbols across all parameters in
	// first-occurrence order.
	FreeSymbols() []sym.Symbol

	// Bind substitutes matching symbols in the gate's parameters and
	// returns the resulting gate. Unmatched bindings are ignored.
	Bind(b sym.Bindings) Gate

	// Matrix returns the gate's unitary. It fails with
	// ErrUnboundParameters when free symbols remain.
	Matrix() (*mat.CDense, error)

	// At applies the gate to the given qubit indices. It panics when the
	// number of indices does not match NumQubits.
	At(qubits ...int) GateOperation

	// Dagger returns the adjoint of the gate.
	Dagger() Gate

	// Controlled wraps the gate with the given number of control qubits.
	Controlled(numControls int) Gate

	// Equal reports whether the other gate has the same structure, name,
	// and parameters.
	Equal(other Gate) bool
}

// matrixFactoryGate is a gate whose unitary is produced by a factory from
// concrete parameter values. All builtin gates are of this kind.
type matrixFactoryGate struct {
	name    string
	nQubits int
	params  []sym.Expr
	factory func(params []float64) *mat.CDense
}

func (g matrixFactoryGate) Name() string { return g.name }

func (g matrixFactoryGate) Params() []sym.Expr { return copyExprs(g.params) }

func (g matrixFactoryGate) NumQubits() int { return g.nQubits }

func (g matrixFactoryGate) FreeSymbols() []sym.Symbol { return freeSymbolsOf(g.params) }

func (g matrixFactoryGate) Bind(b sym.Bindings) Gate {
	return matrixFactoryGate{
		name:    g.name,
		nQubits: g.nQubits,
		params:  substituteExprs(g.params, b),
		factory: g.factory,
	}
}

func (g matrixFactoryGate) Matrix() (*mat.CDense, error) {
	values, err := paramValues(g.name, g.params)
	if err != nil {
		return nil, err
	}
	return g.factory(values), nil
}

func (g matrixFactoryGate) At(qubits ...int) GateOperation { return newGateOperation(g, qubits) }

func (g matrixFactoryGate) Dagger() Gate { return daggerGate{wrapped: g} }

func (g matrixFactoryGate) Controlled(numControls int) Gate {
	return controlledGate{wrapped: g, numControls: numControls}
}

func (g matrixFactoryGate) Equal(other Gate) bool {
	o, ok := other.(matrixFactoryGate)
	return ok && o.name == g.name && o.nQubits == g.nQubits && equalExprs(o.params, g.params)
}

func (g matrixFactoryGate) String() string { return gateString(g) }

// daggerGate is the adjoint of a wrapped gate.
type daggerGate struct {
	wrapped Gate
}

func (g daggerGate) Name() string { return DaggerGateName }

// Wrapped returns the gate being conjugated. Used by serialization.
func (g daggerGate) Wrapped() Gate { return g.wrapped }

func (g daggerGate) Params() []sym.Expr { return g.wrapped.Params() }

func (g daggerGate) NumQubits() int { return g.wrapped.NumQubits() }

func (g daggerGate) FreeSymbols() []sym.Symbol { return g.wrapped.FreeSymbols() }

func (g daggerGate) Bind(b sym.Bindings) Gate { return daggerGate{wrapped: g.wrapped.Bind(b)} }

func (g daggerGate) Matrix() (*mat.CDense, error) {
	m, err := g.wrapped.Matrix()
	if err != nil {
		return nil, err
	}
	return conjugateTranspose(m), nil
}

func (g daggerGate) At(qubits ...int) GateOperation { return newGateOperation(g, qubits) }

// Dagger of a dagger cancels out.
func (g daggerGate) Dagger() Gate { return g.wrapped }

func (g daggerGate) Controlled(numControls int) Gate {
	return controlledGate{wrapped: g, numControls: numControls}
}

func (g daggerGate) Equal(other Gate) bool {
	o, ok := other.(daggerGate)
	return ok && g.wrapped.Equal(o.wrapped)
}

func (g daggerGate) String() string { return fmt.Sprintf("%s†", gateString(g.wrapped)) }

// controlledGate wraps a gate with control qubits. The unitary acts as
// identity unless every control qubit is 1.
type controlledGate struct {
	wrapped     Gate
	numControls int
}

func (g controlledGate) Name() string { return ControlledGateName }

// Wrapped returns the controlled gate's target gate.
func (g controlledGate) Wrapped() Gate { return g.wrapped }

// NumControls returns the number of control qubits.
func (g controlledGate) NumControls() int { return g.numControls }

func (g controlledGate) Params() []sym.Expr { return g.wrapped.Params() }

func (g controlledGate) NumQubits() int { return g.wrapped.NumQubits() + g.numControls }

func (g controlledGate) FreeSymbols() []sym.Symbol { return g.wrapped.FreeSymbols() }

func (g controlledGate) Bind(b sym.Bindings) Gate {
	return controlledGate{wrapped: g.wrapped.Bind(b), numControls: g.numControls}
}

func (g controlledGate) Matrix() (*mat.CDense, error) {
	inner, err := g.wrapped.Matrix()
	if err != nil {
		return nil, err
	}
	innerDim, _ := inner.Dims()
	dim := innerDim << g.numControls
	m := identityMatrix(dim)
	offset := dim - innerDim
	for i := 0; i < innerDim; i++ {
		for j := 0; j < innerDim; j++ {
			m.Set(offset+i, offset+j, inner.At(i, j))
		}
	}
	return m, nil
}

func (g controlledGate) At(qubits ...int) GateOperation { return newGateOperation(g, qubits) }

func (g controlledGate) Dagger() Gate {
	return controlledGate{wrapped: g.wrapped.Dagger(), numControls: g.numControls}
}

// Controlled on an already controlled gate merges the control counts.
func (g controlledGate) Controlled(numControls int) Gate {
	return controlledGate{wrapped: g.wrapped, numControls: g.numControls + numControls}
}

func (g controlledGate) Equal(other Gate) bool {
	o, ok := other.(controlledGate)
	return ok && o.numControls == g.numControls && g.wrapped.Equal(o.wrapped)
}

func (g controlledGate) String() string {
	return fmt.Sprintf("Control(%s, %d)", gateString(g.wrapped), g.numControls)
}

// gateString renders a gate the way operations print it: the name, then
// the parameter list when parameters are present.
func gateString(g Gate) string {
	params := g.Params()
	if len(params) == 0 {
		return g.Name()
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s(%s)", g.Name(), strings.Join(parts, ", "))
}

func copyExprs(exprs []sym.Expr) []sym.Expr {
	if exprs == nil {
		return nil
	}
	out := make([]sym.Expr, len(exprs))
	copy(out, exprs)
	return out
}

func substituteExprs(exprs []sym.Expr, b sym.Bindings) []sym.Expr {
	out := make([]sym.Expr, len(exprs))
	for i, e := range exprs {
		out[i] = e.Substitute(b)
	}
	return out
}

func equalExprs(a, b []sym.Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// freeSymbolsOf merges the free symbols of a parameter list, preserving
// first-occurrence order and dropping duplicates.
func freeSymbolsOf(exprs []sym.Expr) []sym.Symbol {
	var out []sym.Symbol
	seen := make(map[sym.Symbol]struct{})
	for _, e := range exprs {
		for _, s := range e.FreeSymbols() {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func paramValues(gateName string, params []sym.Expr) ([]float64, error) {
	values := make([]float64, len(params))
	for i, p := range params {
		v, ok := p.Number()
		if !ok {
			return nil, fmt.Errorf("%w: %s has symbolic parameter %s", ErrUnboundParameters, gateName, p)
		}
		values[i] = v
	}
	return values, nil
}

func identityMatrix(dim int) *mat.CDense {
	m := mat.NewCDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func conjugateTranspose(m *mat.CDense) *mat.CDense {
	rows, cols := m.Dims()
	out := mat.NewCDense(cols, rows, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			out.Set(j, i, complex(real(v), -imag(v)))
		}
	}
	return out
}
