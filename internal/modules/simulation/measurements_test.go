package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upsideon/orquestra-quantum/internal/wavefunction"
)

func TestSample_DeterministicState(t *testing.T) {
	// |10> with certainty: qubit 0 set, qubit 1 clear.
	state, err := wavefunction.FromAmplitudes([]complex128{0, 0, 1, 0})
	require.NoError(t, err)

	measurements, err := Sample(state, 50)
	require.NoError(t, err)

	assert.Equal(t, 2, measurements.NQubits)
	require.Len(t, measurements.Bitstrings, 50)
	for _, bitstring := range measurements.Bitstrings {
		assert.Equal(t, "10", bitstring)
	}

	assert.Equal(t, map[string]int{"10": 50}, measurements.Counts())
	assert.Equal(t, map[string]float64{"10": 1.0}, measurements.Distribution())
}

func TestSample_BellState(t *testing.T) {
	s := complex(1/1.4142135623730951, 0)
	state, err := wavefunction.FromAmplitudes([]complex128{s, 0, 0, s})
	require.NoError(t, err)

	measurements, err := Sample(state, 2000)
	require.NoError(t, err)

	counts := measurements.Counts()
	assert.Zero(t, counts["01"])
	assert.Zero(t, counts["10"])

	// Both outcomes should appear; exact frequencies are statistical.
	assert.Greater(t, counts["00"], 0)
	assert.Greater(t, counts["11"], 0)
	assert.InDelta(t, 0.5, measurements.Distribution()["00"], 0.1)
}

func TestSample_RejectsNonPositiveCount(t *testing.T) {
	state, err := wavefunction.New(1)
	require.NoError(t, err)

	_, err = Sample(state, 0)
	assert.Error(t, err)

	_, err = Sample(state, -3)
	assert.Error(t, err)
}

func TestSortedBitstrings(t *testing.T) {
	measurements := Measurements{
		Bitstrings: []string{"11", "00", "11", "01"},
		NQubits:    2,
	}

	assert.Equal(t, []string{"00", "01", "11", "11"}, measurements.SortedBitstrings())
	// The receiver is unchanged.
	assert.Equal(t, []string{"11", "00", "11", "01"}, measurements.Bitstrings)
}

func TestExpectationValues_FromSamples(t *testing.T) {
	operator := IsingOperator{Terms: []IsingTerm{
		{Coefficient: 2.0, QubitIndices: []int{0}},
		{Coefficient: 1.0, QubitIndices: []int{0, 1}},
	}}

	// Three |00> outcomes and one |11>.
	measurements := Measurements{
		Bitstrings: []string{"00", "00", "00", "11"},
		NQubits:    2,
	}

	values, err := measurements.ExpectationValues(operator)
	require.NoError(t, err)
	require.Len(t, values, 2)

	// <Z0> = (3*1 + 1*(-1))/4 = 0.5, scaled by the coefficient.
	assert.InDelta(t, 1.0, values[0], 1e-12)
	// <Z0 Z1> = 1 for both outcomes.
	assert.InDelta(t, 1.0, values[1], 1e-12)
}

func TestExpectationValues_QubitOutOfRange(t *testing.T) {
	operator := IsingOperator{Terms: []IsingTerm{
		{Coefficient: 1.0, QubitIndices: []int{5}},
	}}
	measurements := Measurements{Bitstrings: []string{"00"}, NQubits: 2}

	_, err := measurements.ExpectationValues(operator)
	assert.Error(t, err)
}

func TestFormatBitstring(t *testing.T) {
	// Qubit 0 is the leftmost character.
	assert.Equal(t, "10", formatBitstring(2, 2))
	assert.Equal(t, "01", formatBitstring(1, 2))
	assert.Equal(t, "100", formatBitstring(4, 3))
	assert.Equal(t, "000", formatBitstring(0, 3))
}
