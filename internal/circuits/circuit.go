package circuits

import (
	"fmt"
	"math"
	"strings"

	"github.com/upsideon/orquestra-quantum/internal/sym"
)

// Circuit is an ordered sequence of operations over addressable qubit
// lines. The order of operations is the temporal order of application.
// Circuits are immutable: Append, Concat, and Bind return new circuits
// and never mutate the receiver.
type Circuit struct {
	operations []Operation
	nQubits    int
}

// New creates a circuit from the given operations. The qubit count is
// inferred as one more than the highest qubit index any operation
// references, or zero when no operation addresses a qubit.
func New(operations ...Operation) *Circuit {
	ops := append([]Operation(nil), operations...)
	return &Circuit{operations: ops, nQubits: inferQubitCount(ops)}
}

// NewWithQubits creates a circuit with an explicit qubit count. The
// count must be a non-negative whole number; a whole-valued float such
// as 5.0 is accepted and normalized. When the operations reference a
// qubit index at or beyond the supplied count, the count grows to cover
// it.
func NewWithQubits(operations []Operation, nQubits float64) (*Circuit, error) {
	if math.IsNaN(nQubits) || math.IsInf(nQubits, 0) {
		return nil, fmt.Errorf("%w: %v is not a finite number", ErrInvalidQubitCount, nQubits)
	}
	if nQubits < 0 {
		return nil, fmt.Errorf("%w: %v is negative", ErrInvalidQubitCount, nQubits)
	}
	if nQubits != math.Trunc(nQubits) {
		return nil, fmt.Errorf("%w: %v is not a whole number", ErrInvalidQubitCount, nQubits)
	}
	ops := append([]Operation(nil), operations...)
	n := int(nQubits)
	if inferred := inferQubitCount(ops); inferred > n {
		n = inferred
	}
	return &Circuit{operations: ops, nQubits: n}, nil
}

// Operations returns the circuit's operations in application order.
func (c *Circuit) Operations() []Operation {
	return append([]Operation(nil), c.operations...)
}

// NumQubits returns the circuit's qubit envelope.
func (c *Circuit) NumQubits() int { return c.nQubits }

// Append returns a circuit extended by the given operations. The qubit
// count is the maximum of the current count and the envelope the new
// operations require.
func (c *Circuit) Append(operations ...Operation) *Circuit {
	ops := make([]Operation, 0, len(c.operations)+len(operations))
	ops = append(ops, c.operations...)
	ops = append(ops, operations...)
	n := c.nQubits
	for _, op := range operations {
		if required := requiredQubits(op); required > n {
			n = required
		}
	}
	return &Circuit{operations: ops, nQubits: n}
}

// Concat returns the concatenation of two circuits: the receiver's
// operations followed by the other's, with the larger of the two qubit
// envelopes.
func (c *Circuit) Concat(other *Circuit) *Circuit {
	ops := make([]Operation, 0, len(c.operations)+len(other.operations))
	ops = append(ops, c.operations...)
	ops = append(ops, other.operations...)
	n := c.nQubits
	if other.nQubits > n {
		n = other.nQubits
	}
	return &Circuit{operations: ops, nQubits: n}
}

// Bind substitutes the given symbol values into every operation and
// returns the resulting circuit. Bindings for symbols the circuit does
// not contain are silently ignored; binding never fails.
func (c *Circuit) Bind(b sym.Bindings) *Circuit {
	ops := make([]Operation, len(c.operations))
	for i, op := range c.operations {
		ops[i] = op.Bind(b)
	}
	return &Circuit{operations: ops, nQubits: c.nQubits}
}

// FreeSymbols returns the unbound symbols across all operations. The
// order is deterministic: operations are scanned in sequence order and
// each newly seen symbol is appended once.
func (c *Circuit) FreeSymbols() []sym.Symbol {
	var out []sym.Symbol
	seen := make(map[sym.Symbol]struct{})
	for _, op := range c.operations {
		for _, s := range op.FreeSymbols() {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// Equal reports whether both circuits hold element-wise equal operation
// sequences and the same qubit count.
func (c *Circuit) Equal(other *Circuit) bool {
	if other == nil || c.nQubits != other.nQubits || len(c.operations) != len(other.operations) {
		return false
	}
	for i, op := range c.operations {
		if !op.Equal(other.operations[i]) {
			return false
		}
	}
	return true
}

// CollectCustomGateDefinitions returns the distinct custom gate
// definitions used anywhere in the circuit, in first-use order.
func (c *Circuit) CollectCustomGateDefinitions() []CustomGateDefinition {
	var out []CustomGateDefinition
	seen := make(map[string]struct{})
	for _, op := range c.operations {
		gateOp, ok := op.(GateOperation)
		if !ok {
			continue
		}
		for _, def := range customDefinitionsOf(gateOp.Gate()) {
			if _, dup := seen[def.GateName()]; dup {
				continue
			}
			seen[def.GateName()] = struct{}{}
			out = append(out, def)
		}
	}
	return out
}

func (c *Circuit) String() string {
	parts := make([]string, len(c.operations))
	for i, op := range c.operations {
		parts[i] = op.String()
	}
	return fmt.Sprintf("Circuit(n_qubits=%d, n_operations=%d, operations=[%s])",
		c.nQubits, len(c.operations), strings.Join(parts, ", "))
}

// customDefinitionsOf unwraps controlled/dagger layers to find custom
// gate definitions.
func customDefinitionsOf(g Gate) []CustomGateDefinition {
	switch gate := g.(type) {
	case customGate:
		return []CustomGateDefinition{gate.Definition()}
	case daggerGate:
		return customDefinitionsOf(gate.Wrapped())
	case controlledGate:
		return customDefinitionsOf(gate.Wrapped())
	}
	return nil
}

func inferQubitCount(ops []Operation) int {
	n := 0
	for _, op := range ops {
		if required := requiredQubits(op); required > n {
			n = required
		}
	}
	return n
}

// requiredQubits returns the minimal envelope an operation needs: one
// past its highest referenced index, or zero for whole-state operations.
func requiredQubits(op Operation) int {
	addressed, ok := op.(qubitAddressed)
	if !ok {
		return 0
	}
	n := 0
	for _, q := range addressed.QubitIndices() {
		if q+1 > n {
			n = q + 1
		}
	}
	return n
}
