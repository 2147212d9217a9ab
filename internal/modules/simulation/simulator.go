package simulation

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/upsideon/orquestra-quantum/internal/circuits"
	"github.com/upsideon/orquestra-quantum/internal/wavefunction"
)

// DefaultSamples is used when a run does not specify a sample count.
const DefaultSamples = 1000

// RunStats reports how much work a simulator has done.
type RunStats struct {
	CircuitsRun int `json:"circuits_run"`
	JobsRun     int `json:"jobs_run"`
}

// Simulator executes circuits on the statevector backend. It keeps
// counters of circuits and jobs run, and consults the result cache for
// repeated wavefunction computations.
type Simulator struct {
	cache *ResultCache
	log   zerolog.Logger

	mu          sync.Mutex
	circuitsRun int
	jobsRun     int
}

// NewSimulator creates a new simulator. The cache may be nil.
func NewSimulator(cache *ResultCache, log zerolog.Logger) *Simulator {
	return &Simulator{
		cache: cache,
		log:   log.With().Str("component", "simulator").Logger(),
	}
}

// Stats returns the simulator's run counters.
func (s *Simulator) Stats() RunStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RunStats{CircuitsRun: s.circuitsRun, JobsRun: s.jobsRun}
}

func (s *Simulator) recordRun(circuits, jobs int) {
	s.mu.Lock()
	s.circuitsRun += circuits
	s.jobsRun += jobs
	s.mu.Unlock()
}

// RunAndMeasure executes the circuit and samples nSamples measurement
// outcomes. Circuits with free symbols are rejected.
func (s *Simulator) RunAndMeasure(ctx context.Context, circuit *circuits.Circuit, nSamples int) (Measurements, error) {
	if nSamples <= 0 {
		nSamples = DefaultSamples
	}

	state, err := s.simulate(ctx, circuit)
	if err != nil {
		return Measurements{}, err
	}

	measurements, err := Sample(state, nSamples)
	if err != nil {
		return Measurements{}, err
	}

	s.recordRun(1, 1)
	s.log.Debug().
		Int("n_qubits", circuit.NumQubits()).
		Int("n_samples", nSamples).
		Msg("Circuit executed and measured")

	return measurements, nil
}

// RunSetAndMeasure executes every circuit in the set with the same
// sample count. The whole set counts as a single job.
func (s *Simulator) RunSetAndMeasure(ctx context.Context, circuitSet []*circuits.Circuit, nSamples int) ([]Measurements, error) {
	if nSamples <= 0 {
		nSamples = DefaultSamples
	}

	measurementSet := make([]Measurements, 0, len(circuitSet))
	for i, circuit := range circuitSet {
		state, err := s.simulate(ctx, circuit)
		if err != nil {
			return nil, fmt.Errorf("circuit %d: %w", i, err)
		}
		measurements, err := Sample(state, nSamples)
		if err != nil {
			return nil, fmt.Errorf("circuit %d: %w", i, err)
		}
		measurementSet = append(measurementSet, measurements)
	}

	s.recordRun(len(circuitSet), 1)
	return measurementSet, nil
}

// GetWavefunction returns the exact state produced by the circuit.
func (s *Simulator) GetWavefunction(ctx context.Context, circuit *circuits.Circuit) (wavefunction.Wavefunction, error) {
	state, err := s.simulate(ctx, circuit)
	if err != nil {
		return wavefunction.Wavefunction{}, err
	}

	s.recordRun(1, 1)
	return state, nil
}

// GetExactExpectationValues computes per-term operator expectation
// values from the exact state produced by the circuit.
func (s *Simulator) GetExactExpectationValues(ctx context.Context, circuit *circuits.Circuit, operator IsingOperator) ([]float64, error) {
	state, err := s.GetWavefunction(ctx, circuit)
	if err != nil {
		return nil, err
	}
	return operator.ExactExpectationValues(state)
}

// GetExpectationValues estimates per-term operator expectation values
// from sampled measurements.
func (s *Simulator) GetExpectationValues(ctx context.Context, circuit *circuits.Circuit, operator IsingOperator, nSamples int) ([]float64, error) {
	measurements, err := s.RunAndMeasure(ctx, circuit, nSamples)
	if err != nil {
		return nil, err
	}
	return measurements.ExpectationValues(operator)
}

// GetDistribution returns the exact probability of each bitstring.
func (s *Simulator) GetDistribution(ctx context.Context, circuit *circuits.Circuit) (map[string]float64, error) {
	state, err := s.GetWavefunction(ctx, circuit)
	if err != nil {
		return nil, err
	}

	nQubits := state.NumQubits()
	distribution := make(map[string]float64)
	for index, p := range state.Probabilities() {
		if p > 0 {
			distribution[formatBitstring(index, nQubits)] = p
		}
	}
	return distribution, nil
}

// simulate produces the circuit's wavefunction, consulting the cache
// first.
func (s *Simulator) simulate(ctx context.Context, circuit *circuits.Circuit) (wavefunction.Wavefunction, error) {
	if err := ctx.Err(); err != nil {
		return wavefunction.Wavefunction{}, err
	}
	if symbols := circuit.FreeSymbols(); len(symbols) > 0 {
		return wavefunction.Wavefunction{}, fmt.Errorf(
			"%w: circuit still depends on %v", circuits.ErrUnboundParameters, symbols,
		)
	}

	var key string
	if s.cache != nil {
		var err error
		if key, err = s.cache.Key(circuit); err == nil {
			if amplitudes, ok := s.cache.Get(key); ok {
				if state, err := wavefunction.FromAmplitudes(amplitudes); err == nil {
					return state, nil
				}
			}
		}
	}

	state, err := wavefunction.Simulate(circuit)
	if err != nil {
		return wavefunction.Wavefunction{}, err
	}

	if s.cache != nil && key != "" {
		s.cache.Put(key, state.Amplitudes())
	}

	return state, nil
}
