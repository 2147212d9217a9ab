package circuits

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/upsideon/orquestra-quantum/internal/sym"
)

// CustomGateDefinition defines a gate by an explicit matrix of symbolic
// expressions over an ordered list of parameter symbols. Instantiating
// the definition with concrete or symbolic arguments yields a Gate.
type CustomGateDefinition struct {
	gateName       string
	matrix         [][]sym.Expr
	paramsOrdering []sym.Symbol
}

// NewCustomGateDefinition creates a gate definition. The matrix must be
// square with a power-of-two dimension; its free symbols must all appear
// in paramsOrdering.
func NewCustomGateDefinition(gateName string, matrix [][]sym.Expr, paramsOrdering []sym.Symbol) (CustomGateDefinition, error) {
	dim := len(matrix)
	if dim == 0 || dim&(dim-1) != 0 {
		return CustomGateDefinition{}, fmt.Errorf("custom gate %s: matrix dimension %d is not a power of two", gateName, dim)
	}
	declared := make(map[sym.Symbol]struct{}, len(paramsOrdering))
	for _, s := range paramsOrdering {
		declared[s] = struct{}{}
	}
	for i, row := range matrix {
		if len(row) != dim {
			return CustomGateDefinition{}, fmt.Errorf("custom gate %s: row %d has %d entries, want %d", gateName, i, len(row), dim)
		}
		for _, e := range row {
			for _, s := range e.FreeSymbols() {
				if _, ok := declared[s]; !ok {
					return CustomGateDefinition{}, fmt.Errorf("custom gate %s: matrix symbol %s missing from params ordering", gateName, s.Name())
				}
			}
		}
	}
	return CustomGateDefinition{gateName: gateName, matrix: matrix, paramsOrdering: paramsOrdering}, nil
}

// GateName returns the name gates built from this definition carry.
func (d CustomGateDefinition) GateName() string { return d.gateName }

// ParamsOrdering returns the definition's parameter symbols in order.
func (d CustomGateDefinition) ParamsOrdering() []sym.Symbol {
	return append([]sym.Symbol(nil), d.paramsOrdering...)
}

// MatrixExprs returns the definition's symbolic matrix.
func (d CustomGateDefinition) MatrixExprs() [][]sym.Expr { return d.matrix }

// Gate instantiates the definition with the given arguments, which must
// match the params ordering in count. Arguments may themselves be
// symbolic; the resulting gate is then bindable like any other.
func (d CustomGateDefinition) Gate(params ...sym.Expr) (Gate, error) {
	if len(params) != len(d.paramsOrdering) {
		return nil, fmt.Errorf("custom gate %s takes %d parameters, got %d", d.gateName, len(d.paramsOrdering), len(params))
	}
	return customGate{def: d, params: append([]sym.Expr(nil), params...)}, nil
}

// customGate is an instantiation of a CustomGateDefinition.
type customGate struct {
	def    CustomGateDefinition
	params []sym.Expr
}

func (g customGate) Name() string { return g.def.gateName }

// Definition returns the definition this gate was instantiated from.
// Used when collecting definitions for serialization.
func (g customGate) Definition() CustomGateDefinition { return g.def }

func (g customGate) Params() []sym.Expr { return copyExprs(g.params) }

func (g customGate) NumQubits() int {
	n := 0
	for dim := len(g.def.matrix); dim > 1; dim >>= 1 {
		n++
	}
	return n
}

func (g customGate) FreeSymbols() []sym.Symbol { return freeSymbolsOf(g.params) }

func (g customGate) Bind(b sym.Bindings) Gate {
	return customGate{def: g.def, params: substituteExprs(g.params, b)}
}

func (g customGate) Matrix() (*mat.CDense, error) {
	values, err := paramValues(g.def.gateName, g.params)
	if err != nil {
		return nil, err
	}
	bindings := make(sym.Bindings, len(values))
	for i, s := range g.def.paramsOrdering {
		bindings[s] = values[i]
	}
	dim := len(g.def.matrix)
	out := mat.NewCDense(dim, dim, nil)
	for i, row := range g.def.matrix {
		for j, e := range row {
			v, ok := e.Substitute(bindings).Number()
			if !ok {
				return nil, fmt.Errorf("%w: %s matrix entry (%d,%d) is %s", ErrUnboundParameters, g.def.gateName, i, j, e)
			}
			out.Set(i, j, complex(v, 0))
		}
	}
	return out, nil
}

func (g customGate) At(qubits ...int) GateOperation { return newGateOperation(g, qubits) }

func (g customGate) Dagger() Gate { return daggerGate{wrapped: g} }

func (g customGate) Controlled(numControls int) Gate {
	return controlledGate{wrapped: g, numControls: numControls}
}

func (g customGate) Equal(other Gate) bool {
	o, ok := other.(customGate)
	return ok && o.def.gateName == g.def.gateName && equalExprs(o.params, g.params)
}

func (g customGate) String() string { return gateString(g) }
