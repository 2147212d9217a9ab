package circuits

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upsideon/orquestra-quantum/internal/sym"
)

// exampleOperations spans every operation kind the container must
// generalize over: plain gates, parametric gates with concrete and
// symbolic angles, two-qubit gates, wrappers, and whole-state
// operations.
func exampleOperations() []Operation {
	theta := sym.NewSymbol("theta")
	return []Operation{
		X.At(0),
		Y.At(1),
		H.At(4),
		T.At(0),
		RX(sym.Number(math.Pi)).At(0),
		PHASE(sym.Number(0.1)).At(1),
		RY(theta).At(4),
		CNOT.At(0, 1),
		SWAP.At(0, 5),
		ISWAP.At(4, 2),
		CPHASE(theta).At(1, 0),
		ZZ(sym.Number(math.Pi / 5)).At(0, 5),
		X.Dagger().At(2),
		Z.Controlled(1).At(0, 3),
		NewMultiPhaseOperation(theta, sym.Number(0.5)),
	}
}

func TestNew_PreservesOperations(t *testing.T) {
	ops := exampleOperations()
	circuit := New(ops...)

	got := circuit.Operations()
	require.Len(t, got, len(ops))
	for i := range ops {
		assert.True(t, got[i].Equal(ops[i]), "operation %d changed: %v != %v", i, got[i], ops[i])
	}
}

func TestNew_InfersQubitCount(t *testing.T) {
	tests := []struct {
		name     string
		ops      []Operation
		expected int
	}{
		{name: "no operations", ops: nil, expected: 0},
		{name: "single qubit", ops: []Operation{H.At(0)}, expected: 1},
		{name: "highest index wins", ops: []Operation{H.At(0), CNOT.At(0, 2)}, expected: 3},
		{name: "whole-state operation alone", ops: []Operation{NewMultiPhaseOperation(sym.Number(0.1))}, expected: 0},
		{name: "mixed", ops: []Operation{NewMultiPhaseOperation(sym.Number(0.1)), X.At(4)}, expected: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.ops...).NumQubits())
		})
	}
}

func TestNewWithQubits_RejectsNegativeCounts(t *testing.T) {
	for _, nQubits := range []float64{-1.3523, -2} {
		_, err := NewWithQubits(nil, nQubits)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidQubitCount)
	}
}

func TestNewWithQubits_RejectsFractionalCounts(t *testing.T) {
	for _, nQubits := range []float64{1.3523, 2.292} {
		_, err := NewWithQubits(nil, nQubits)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidQubitCount)
	}
}

func TestNewWithQubits_RejectsNonFiniteCounts(t *testing.T) {
	for _, nQubits := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		_, err := NewWithQubits(nil, nQubits)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidQubitCount)
	}
}

func TestNewWithQubits_AcceptsWholeValuedFloat(t *testing.T) {
	circuit, err := NewWithQubits(nil, 5.0)
	require.NoError(t, err)
	assert.Equal(t, 5, circuit.NumQubits())
}

func TestNewWithQubits_KeepsExplicitCountThroughComposition(t *testing.T) {
	declared, err := NewWithQubits([]Operation{H.At(0)}, 5)
	require.NoError(t, err)

	// Composing with an empty circuit keeps the declared envelope.
	composed := declared.Concat(New())
	assert.Equal(t, 5, composed.NumQubits())
	assert.Equal(t, 5, New().Concat(declared).NumQubits())
}

func TestString_DoesNotPanic(t *testing.T) {
	withQubits, err := NewWithQubits([]Operation{H.At(0)}, 5)
	require.NoError(t, err)

	circuits := []*Circuit{
		New(),
		New([]Operation{}...),
		New(H.At(0)),
		withQubits,
		New(RX(sym.NewSymbol("theta")).At(0)),
		New(exampleOperations()...),
	}

	for _, circuit := range circuits {
		assert.NotPanics(t, func() {
			s := circuit.String()
			assert.Contains(t, s, "n_qubits=")
			assert.Contains(t, s, "n_operations=")
		})
	}
}

func TestAppend_ExtendsOperationsAndQubitCount(t *testing.T) {
	circuit := New()
	circuit = circuit.Append(H.At(0))
	circuit = circuit.Append(CNOT.At(0, 2))

	expected := []Operation{H.At(0), CNOT.At(0, 2)}
	got := circuit.Operations()
	require.Len(t, got, len(expected))
	for i := range expected {
		assert.True(t, got[i].Equal(expected[i]))
	}
	assert.Equal(t, 3, circuit.NumQubits())
}

func TestAppend_DoesNotMutateReceiver(t *testing.T) {
	original := New(H.At(0))
	extended := original.Append(X.At(3))

	assert.Len(t, original.Operations(), 1)
	assert.Equal(t, 1, original.NumQubits())
	assert.Len(t, extended.Operations(), 2)
	assert.Equal(t, 4, extended.NumQubits())
}

func TestConcat_YieldsCorrectOperations(t *testing.T) {
	theta := sym.NewSymbol("theta")

	circuit1 := New().Append(H.At(0)).Append(CNOT.At(0, 2))
	circuit2 := New(X.At(2), YY(theta).At(4, 5))

	result := circuit1.Concat(circuit2)

	expected := []Operation{H.At(0), CNOT.At(0, 2), X.At(2), YY(theta).At(4, 5)}
	got := result.Operations()
	require.Len(t, got, len(expected))
	for i := range expected {
		assert.True(t, got[i].Equal(expected[i]))
	}
	assert.Equal(t, 6, result.NumQubits())
}

func TestConcat_EquivalentToRepeatedAppend(t *testing.T) {
	op := RZ(sym.Number(0.25)).At(1)

	viaAppend := New(H.At(0)).Append(op)
	viaConcat := New(H.At(0)).Concat(New(op))

	assert.True(t, viaAppend.Equal(viaConcat))
}

func TestBind_AllParamsBindsEveryGate(t *testing.T) {
	symbols := sym.Symbols("theta1", "theta2", "theta3")
	theta1, theta2, theta3 := symbols[0], symbols[1], symbols[2]
	bindings := sym.Bindings{theta1: 0.5, theta2: 3.14, theta3: 0}

	circuit := New(
		RX(theta1).At(0),
		RY(theta2).At(1),
		RZ(theta3).At(0),
		RX(theta3).At(0),
	)
	bound := circuit.Bind(bindings)

	expected := New(
		RX(theta1).Bind(bindings).At(0),
		RY(theta2).Bind(bindings).At(1),
		RZ(theta3).Bind(bindings).At(0),
		RX(theta3).Bind(bindings).At(0),
	)
	assert.True(t, bound.Equal(expected))
}

func TestBind_AllParamsLeavesNoFreeSymbols(t *testing.T) {
	symbols := sym.Symbols("alpha", "beta", "gamma")
	alpha, beta, gamma := symbols[0], symbols[1], symbols[2]

	circuit := New(
		RX(alpha).At(0),
		RY(beta).At(1),
		RZ(gamma).At(0),
		RX(gamma).At(0),
	)
	bound := circuit.Bind(sym.Bindings{alpha: 0.5, beta: 3.14, gamma: 0})

	assert.Empty(t, bound.FreeSymbols())
}

func TestBind_SomeParamsLeavesFreeSymbols(t *testing.T) {
	symbols := sym.Symbols("theta1", "theta2", "theta3")
	theta1, theta2, theta3 := symbols[0], symbols[1], symbols[2]

	circuit := New(
		RX(theta1).At(0),
		RY(theta2).At(1),
		RZ(theta3).At(0),
		RX(theta2).At(0),
	)
	bound := circuit.Bind(sym.Bindings{theta1: 0.5, theta3: 3.14})

	assert.Equal(t, []sym.Symbol{theta2}, bound.FreeSymbols())
}

func TestBind_ExcessiveParamsBindsOnlyExistingOnes(t *testing.T) {
	symbols := sym.Symbols("theta1", "theta2", "theta3")
	theta1, theta2, theta3 := symbols[0], symbols[1], symbols[2]
	otherParam := sym.NewSymbol("other_param")

	circuit := New(
		RX(theta1).At(0),
		RY(theta2).At(1),
		RZ(theta3).At(0),
		RX(theta2).At(0),
	)
	bound := circuit.Bind(sym.Bindings{theta1: -math.Pi, otherParam: 42})

	assert.Equal(t, []sym.Symbol{theta2, theta3}, bound.FreeSymbols())
}

func TestBind_NoFreeSymbolsIsIdentity(t *testing.T) {
	circuit := New(RX(sym.Number(0.5)).At(0), X.At(1))

	bound := circuit.Bind(sym.Bindings{sym.NewSymbol("anything"): 1.0})

	assert.True(t, bound.Equal(circuit))
}

func TestFreeSymbols_IncludesWavefunctionOperations(t *testing.T) {
	symbols := sym.Symbols("alpha", "beta")
	alpha, beta := symbols[0], symbols[1]

	circuit := New(RX(alpha).At(0), NewMultiPhaseOperation(beta, sym.Number(0.5)))

	assert.Equal(t, []sym.Symbol{alpha, beta}, circuit.FreeSymbols())
}

func TestBind_ReachesWavefunctionOperations(t *testing.T) {
	symbols := sym.Symbols("alpha", "beta")
	alpha, beta := symbols[0], symbols[1]

	circuit := New(
		RX(alpha).At(0),
		NewMultiPhaseOperation(beta, sym.Number(0.5)),
		RX(beta).At(1),
	).Bind(sym.Bindings{beta: 0.3})

	assert.Equal(t, []sym.Symbol{alpha}, circuit.FreeSymbols())

	expected := []Operation{
		RX(alpha).At(0),
		NewMultiPhaseOperation(sym.Number(0.3), sym.Number(0.5)),
		RX(sym.Number(0.3)).At(1),
	}
	got := circuit.Operations()
	require.Len(t, got, len(expected))
	for i := range expected {
		assert.True(t, got[i].Equal(expected[i]), "operation %d: %v != %v", i, got[i], expected[i])
	}
}

func TestFreeSymbols_StableAcrossCalls(t *testing.T) {
	symbols := sym.Symbols("c", "a", "b")
	c, a, b := symbols[0], symbols[1], symbols[2]

	circuit := New(RX(c).At(0), RY(a).At(1), RZ(b).At(2), RX(a).At(0))

	first := circuit.FreeSymbols()
	assert.Equal(t, []sym.Symbol{c, a, b}, first)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, circuit.FreeSymbols())
	}
}

func TestEqual(t *testing.T) {
	theta := sym.NewSymbol("theta")
	base := New(H.At(0), RX(theta).At(1))

	t.Run("equal circuits", func(t *testing.T) {
		assert.True(t, base.Equal(New(H.At(0), RX(theta).At(1))))
	})

	t.Run("different operations", func(t *testing.T) {
		assert.False(t, base.Equal(New(H.At(0), RY(theta).At(1))))
	})

	t.Run("different order", func(t *testing.T) {
		assert.False(t, base.Equal(New(RX(theta).At(1), H.At(0))))
	})

	t.Run("different qubit count", func(t *testing.T) {
		widened, err := NewWithQubits([]Operation{H.At(0), RX(theta).At(1)}, 5)
		require.NoError(t, err)
		assert.False(t, base.Equal(widened))
	})

	t.Run("nil circuit", func(t *testing.T) {
		assert.False(t, base.Equal(nil))
	})
}
