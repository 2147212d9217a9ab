// Package simulation executes circuits on the statevector simulator,
// samples measurements, and caches deterministic results.
package simulation

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/upsideon/orquestra-quantum/internal/wavefunction"
)

// Measurements holds sampled measurement outcomes. Each bitstring reads
// qubit 0 leftmost, matching the wavefunction's amplitude ordering.
type Measurements struct {
	Bitstrings []string `json:"bitstrings"`
	NQubits    int      `json:"n_qubits"`
}

// Sample draws n measurement outcomes from the wavefunction's
// probability distribution.
func Sample(state wavefunction.Wavefunction, n int) (Measurements, error) {
	if n <= 0 {
		return Measurements{}, fmt.Errorf("sample count must be positive, got %d", n)
	}

	nQubits := state.NumQubits()
	probabilities := state.Probabilities()
	sampler := sampleuv.NewWeighted(probabilities, nil)

	bitstrings := make([]string, n)
	for i := 0; i < n; i++ {
		index, ok := sampler.Take()
		if !ok {
			return Measurements{}, fmt.Errorf("failed to sample from wavefunction")
		}
		bitstrings[i] = formatBitstring(index, nQubits)

		// Take removes the drawn item; restore its weight so each
		// sample is independent.
		sampler.Reweight(index, probabilities[index])
	}

	return Measurements{Bitstrings: bitstrings, NQubits: nQubits}, nil
}

// Counts returns the number of occurrences of each observed bitstring.
func (m Measurements) Counts() map[string]int {
	counts := make(map[string]int)
	for _, bitstring := range m.Bitstrings {
		counts[bitstring]++
	}
	return counts
}

// Distribution returns the observed frequency of each bitstring.
func (m Measurements) Distribution() map[string]float64 {
	distribution := make(map[string]float64)
	if len(m.Bitstrings) == 0 {
		return distribution
	}
	total := float64(len(m.Bitstrings))
	for bitstring, count := range m.Counts() {
		distribution[bitstring] = float64(count) / total
	}
	return distribution
}

// SortedBitstrings returns the distinct observed bitstrings in order.
func (m Measurements) SortedBitstrings() []string {
	counts := m.Counts()
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ExpectationValues estimates the expectation value of each operator
// term from the samples.
func (m Measurements) ExpectationValues(operator IsingOperator) ([]float64, error) {
	if len(m.Bitstrings) == 0 {
		return nil, fmt.Errorf("no measurements to estimate from")
	}

	values := make([]float64, len(operator.Terms))
	for t, term := range operator.Terms {
		var sum float64
		for _, bitstring := range m.Bitstrings {
			parity, err := term.parity(bitstring)
			if err != nil {
				return nil, err
			}
			sum += term.Coefficient * parity
		}
		values[t] = sum / float64(len(m.Bitstrings))
	}
	return values, nil
}

func formatBitstring(index, nQubits int) string {
	var b strings.Builder
	b.Grow(nQubits)
	for q := 0; q < nQubits; q++ {
		if index&(1<<(nQubits-1-q)) != 0 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}
