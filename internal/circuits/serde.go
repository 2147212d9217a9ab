package circuits

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/upsideon/orquestra-quantum/internal/sym"
)

// Operation type tags used in the serialized form.
const (
	gateOperationType       = "gate_operation"
	multiphaseOperationType = "multiphase_operation"
)

// CircuitDTO is the serialized form of a circuit. Optional keys are
// omitted when empty, matching the canonical JSON layout.
type CircuitDTO struct {
	NQubits               int            `json:"n_qubits"`
	Operations            []OperationDTO `json:"operations,omitempty"`
	CustomGateDefinitions []CustomDefDTO `json:"custom_gate_definitions,omitempty"`
}

// CircuitSetDTO is the serialized form of an ordered set of circuits.
type CircuitSetDTO struct {
	Circuits []CircuitDTO `json:"circuits"`
}

// OperationDTO is the serialized form of a single operation,
// discriminated by Type.
type OperationDTO struct {
	Type         string   `json:"type"`
	Gate         *GateDTO `json:"gate,omitempty"`
	QubitIndices []int    `json:"qubit_indices,omitempty"`
	Parameters   []string `json:"parameters,omitempty"`
}

// GateDTO is the serialized form of a gate. Wrapper gates (Control,
// Dagger) nest the wrapped gate.
type GateDTO struct {
	Name             string   `json:"name"`
	Params           []string `json:"params,omitempty"`
	FreeSymbols      []string `json:"free_symbols,omitempty"`
	WrappedGate      *GateDTO `json:"wrapped_gate,omitempty"`
	NumControlQubits int      `json:"num_control_qubits,omitempty"`
}

// CustomDefDTO is the serialized form of a custom gate definition.
type CustomDefDTO struct {
	GateName       string     `json:"gate_name"`
	Matrix         [][]string `json:"matrix"`
	ParamsOrdering []string   `json:"params_ordering"`
}

// CircuitToDTO converts a circuit to its serializable form.
func CircuitToDTO(c *Circuit) (CircuitDTO, error) {
	dto := CircuitDTO{NQubits: c.NumQubits()}
	for _, op := range c.Operations() {
		opDTO, err := operationToDTO(op)
		if err != nil {
			return CircuitDTO{}, err
		}
		dto.Operations = append(dto.Operations, opDTO)
	}
	for _, def := range c.CollectCustomGateDefinitions() {
		dto.CustomGateDefinitions = append(dto.CustomGateDefinitions, customDefToDTO(def))
	}
	return dto, nil
}

// CircuitFromDTO rebuilds a circuit from its serialized form.
func CircuitFromDTO(dto CircuitDTO) (*Circuit, error) {
	defs := make([]CustomGateDefinition, 0, len(dto.CustomGateDefinitions))
	for _, defDTO := range dto.CustomGateDefinitions {
		def, err := customDefFromDTO(defDTO)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	ops := make([]Operation, 0, len(dto.Operations))
	for _, opDTO := range dto.Operations {
		op, err := operationFromDTO(opDTO, defs)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return NewWithQubits(ops, float64(dto.NQubits))
}

// SaveCircuit writes a circuit as JSON.
func SaveCircuit(c *Circuit, w io.Writer) error {
	dto, err := CircuitToDTO(c)
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(dto)
}

// LoadCircuit reads a JSON circuit.
func LoadCircuit(r io.Reader) (*Circuit, error) {
	var dto CircuitDTO
	if err := json.NewDecoder(r).Decode(&dto); err != nil {
		return nil, fmt.Errorf("failed to decode circuit: %w", err)
	}
	return CircuitFromDTO(dto)
}

// SaveCircuitSet writes an ordered set of circuits as JSON.
func SaveCircuitSet(circuits []*Circuit, w io.Writer) error {
	set := CircuitSetDTO{Circuits: make([]CircuitDTO, 0, len(circuits))}
	for _, c := range circuits {
		dto, err := CircuitToDTO(c)
		if err != nil {
			return err
		}
		set.Circuits = append(set.Circuits, dto)
	}
	return json.NewEncoder(w).Encode(set)
}

// LoadCircuitSet reads a JSON circuit set.
func LoadCircuitSet(r io.Reader) ([]*Circuit, error) {
	var set CircuitSetDTO
	if err := json.NewDecoder(r).Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to decode circuit set: %w", err)
	}
	circuits := make([]*Circuit, 0, len(set.Circuits))
	for _, dto := range set.Circuits {
		c, err := CircuitFromDTO(dto)
		if err != nil {
			return nil, err
		}
		circuits = append(circuits, c)
	}
	return circuits, nil
}

func operationToDTO(op Operation) (OperationDTO, error) {
	switch o := op.(type) {
	case GateOperation:
		gateDTO, err := gateToDTO(o.Gate())
		if err != nil {
			return OperationDTO{}, err
		}
		return OperationDTO{
			Type:         gateOperationType,
			Gate:         &gateDTO,
			QubitIndices: o.QubitIndices(),
		}, nil
	case MultiPhaseOperation:
		return OperationDTO{
			Type:       multiphaseOperationType,
			Parameters: exprStrings(o.Params()),
		}, nil
	}
	return OperationDTO{}, fmt.Errorf("serialization isn't implemented for %T", op)
}

func operationFromDTO(dto OperationDTO, defs []CustomGateDefinition) (Operation, error) {
	switch dto.Type {
	case gateOperationType:
		if dto.Gate == nil {
			return nil, fmt.Errorf("gate operation is missing its gate")
		}
		gate, err := gateFromDTO(*dto.Gate, defs)
		if err != nil {
			return nil, err
		}
		return gate.At(dto.QubitIndices...), nil
	case multiphaseOperationType:
		params, err := parseExprs(dto.Parameters)
		if err != nil {
			return nil, err
		}
		return NewMultiPhaseOperation(params...), nil
	}
	return nil, fmt.Errorf("unknown operation type %q", dto.Type)
}

func gateToDTO(g Gate) (GateDTO, error) {
	switch gate := g.(type) {
	case daggerGate:
		wrapped, err := gateToDTO(gate.Wrapped())
		if err != nil {
			return GateDTO{}, err
		}
		return GateDTO{Name: DaggerGateName, WrappedGate: &wrapped}, nil
	case controlledGate:
		wrapped, err := gateToDTO(gate.Wrapped())
		if err != nil {
			return GateDTO{}, err
		}
		return GateDTO{
			Name:             ControlledGateName,
			WrappedGate:      &wrapped,
			NumControlQubits: gate.NumControls(),
		}, nil
	}
	dto := GateDTO{Name: g.Name()}
	if params := g.Params(); len(params) > 0 {
		dto.Params = exprStrings(params)
	}
	if symbols := g.FreeSymbols(); len(symbols) > 0 {
		names := make([]string, len(symbols))
		for i, s := range symbols {
			names[i] = s.Name()
		}
		sort.Strings(names)
		dto.FreeSymbols = names
	}
	return dto, nil
}

// gateFromDTO tries the builtin catalog first, then the wrapper gates,
// and finally the provided custom gate definitions.
func gateFromDTO(dto GateDTO, defs []CustomGateDefinition) (Gate, error) {
	params, err := parseExprs(dto.Params)
	if err != nil {
		return nil, err
	}

	gate, err := BuiltinGate(dto.Name, params...)
	if err == nil {
		return gate, nil
	}
	if !errors.Is(err, ErrUnknownGate) {
		return nil, err
	}

	switch dto.Name {
	case DaggerGateName:
		if dto.WrappedGate == nil {
			return nil, fmt.Errorf("dagger gate is missing its wrapped gate")
		}
		wrapped, err := gateFromDTO(*dto.WrappedGate, defs)
		if err != nil {
			return nil, err
		}
		return wrapped.Dagger(), nil
	case ControlledGateName:
		if dto.WrappedGate == nil {
			return nil, fmt.Errorf("controlled gate is missing its wrapped gate")
		}
		wrapped, err := gateFromDTO(*dto.WrappedGate, defs)
		if err != nil {
			return nil, err
		}
		return wrapped.Controlled(dto.NumControlQubits), nil
	}

	for _, def := range defs {
		if def.GateName() == dto.Name {
			return def.Gate(params...)
		}
	}
	return nil, fmt.Errorf("custom gate definition for %s missing from serialized circuit", dto.Name)
}

func customDefToDTO(def CustomGateDefinition) CustomDefDTO {
	exprs := def.MatrixExprs()
	matrix := make([][]string, len(exprs))
	for i, row := range exprs {
		matrix[i] = exprStrings(row)
	}
	ordering := def.ParamsOrdering()
	names := make([]string, len(ordering))
	for i, s := range ordering {
		names[i] = s.Name()
	}
	return CustomDefDTO{GateName: def.GateName(), Matrix: matrix, ParamsOrdering: names}
}

func customDefFromDTO(dto CustomDefDTO) (CustomGateDefinition, error) {
	matrix := make([][]sym.Expr, len(dto.Matrix))
	for i, row := range dto.Matrix {
		exprs, err := parseExprs(row)
		if err != nil {
			return CustomGateDefinition{}, err
		}
		matrix[i] = exprs
	}
	ordering := make([]sym.Symbol, len(dto.ParamsOrdering))
	for i, name := range dto.ParamsOrdering {
		ordering[i] = sym.NewSymbol(name)
	}
	return NewCustomGateDefinition(dto.GateName, matrix, ordering)
}

func exprStrings(exprs []sym.Expr) []string {
	out := make([]string, len(exprs))
	for i, e := range exprs {
		out[i] = e.String()
	}
	return out
}

func parseExprs(raw []string) ([]sym.Expr, error) {
	out := make([]sym.Expr, len(raw))
	for i, s := range raw {
		expr, err := sym.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("failed to parse expression %q: %w", s, err)
		}
		out[i] = expr
	}
	return out, nil
}
