package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upsideon/orquestra-quantum/internal/wavefunction"
)

func TestIsingOperator_Validate(t *testing.T) {
	operator := IsingOperator{Terms: []IsingTerm{
		{Coefficient: 1.0, QubitIndices: []int{0, 1}},
	}}

	assert.NoError(t, operator.Validate(2))
	assert.Error(t, operator.Validate(1))

	negative := IsingOperator{Terms: []IsingTerm{
		{Coefficient: 1.0, QubitIndices: []int{-1}},
	}}
	assert.Error(t, negative.Validate(2))
}

func TestExactExpectationValues_BasisState(t *testing.T) {
	// |11> exactly.
	state, err := wavefunction.FromAmplitudes([]complex128{0, 0, 0, 1})
	require.NoError(t, err)

	operator := IsingOperator{Terms: []IsingTerm{
		{Coefficient: 3.0, QubitIndices: []int{0}},
		{Coefficient: 1.0, QubitIndices: []int{0, 1}},
		{Coefficient: 2.0, QubitIndices: nil},
	}}

	values, err := operator.ExactExpectationValues(state)
	require.NoError(t, err)
	require.Len(t, values, 3)

	assert.InDelta(t, -3.0, values[0], 1e-12)
	assert.InDelta(t, 1.0, values[1], 1e-12)
	// A term with no qubits is a constant offset.
	assert.InDelta(t, 2.0, values[2], 1e-12)
}

func TestExactExpectationValues_BellState(t *testing.T) {
	s := complex(1/1.4142135623730951, 0)
	state, err := wavefunction.FromAmplitudes([]complex128{s, 0, 0, s})
	require.NoError(t, err)

	operator := IsingOperator{Terms: []IsingTerm{
		{Coefficient: 1.0, QubitIndices: []int{0}},
		{Coefficient: 1.0, QubitIndices: []int{0, 1}},
	}}

	values, err := operator.ExactExpectationValues(state)
	require.NoError(t, err)

	// Single-qubit Z averages to zero; the correlator is +1.
	assert.InDelta(t, 0.0, values[0], 1e-12)
	assert.InDelta(t, 1.0, values[1], 1e-12)
}

func TestExactExpectationValues_RejectsOutOfRangeQubit(t *testing.T) {
	state, err := wavefunction.New(2)
	require.NoError(t, err)
	operator := IsingOperator{Terms: []IsingTerm{
		{Coefficient: 1.0, QubitIndices: []int{2}},
	}}

	_, err = operator.ExactExpectationValues(state)
	assert.Error(t, err)
}
