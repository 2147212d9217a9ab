// Package handlers provides HTTP handlers for circuit simulation.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/upsideon/orquestra-quantum/internal/circuits"
	"github.com/upsideon/orquestra-quantum/internal/modules/simulation"
)

// Handler handles simulation HTTP requests
type Handler struct {
	service *simulation.Service
	log     zerolog.Logger
}

// NewHandler creates a new simulation handler
func NewHandler(service *simulation.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "simulation").Logger(),
	}
}

// RunRequest represents a request to execute and measure a circuit
type RunRequest struct {
	Circuit  circuits.CircuitDTO `json:"circuit"`
	NSamples int                 `json:"n_samples"`
	Async    bool                `json:"async"`
}

// RunSetRequest represents a request to execute a set of circuits
type RunSetRequest struct {
	Circuits []circuits.CircuitDTO `json:"circuits"`
	NSamples int                   `json:"n_samples"`
}

// WavefunctionRequest represents a request for a circuit's exact state
type WavefunctionRequest struct {
	Circuit circuits.CircuitDTO `json:"circuit"`
}

// ExpectationRequest represents a request for operator expectation values
type ExpectationRequest struct {
	Circuit  circuits.CircuitDTO      `json:"circuit"`
	Operator simulation.IsingOperator `json:"operator"`
	Exact    bool                     `json:"exact"`
	NSamples int                      `json:"n_samples"`
}

// HandleRun handles POST /api/simulation/run
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	circuit, err := circuits.CircuitFromDTO(req.Circuit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Async {
		job := h.service.SubmitRunAndMeasure(circuit, req.NSamples)
		h.writeData(w, http.StatusAccepted, map[string]interface{}{"job": job})
		return
	}

	measurements, err := h.service.Simulator().RunAndMeasure(r.Context(), circuit, req.NSamples)
	if err != nil {
		h.writeSimulationError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"measurements": measurements,
		"counts":       measurements.Counts(),
	})
}

// HandleRunSet handles POST /api/simulation/run-set
func (h *Handler) HandleRunSet(w http.ResponseWriter, r *http.Request) {
	var req RunSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	circuitSet := make([]*circuits.Circuit, 0, len(req.Circuits))
	for _, dto := range req.Circuits {
		circuit, err := circuits.CircuitFromDTO(dto)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		circuitSet = append(circuitSet, circuit)
	}

	job := h.service.SubmitRunSetAndMeasure(circuitSet, req.NSamples)
	h.writeData(w, http.StatusAccepted, map[string]interface{}{"job": job})
}

// HandleWavefunction handles POST /api/simulation/wavefunction
func (h *Handler) HandleWavefunction(w http.ResponseWriter, r *http.Request) {
	var req WavefunctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	circuit, err := circuits.CircuitFromDTO(req.Circuit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	state, err := h.service.Simulator().GetWavefunction(r.Context(), circuit)
	if err != nil {
		h.writeSimulationError(w, err)
		return
	}

	amplitudes := state.Amplitudes()
	re := make([]float64, len(amplitudes))
	im := make([]float64, len(amplitudes))
	for i, a := range amplitudes {
		re[i] = real(a)
		im[i] = imag(a)
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"n_qubits":      state.NumQubits(),
		"amplitudes_re": re,
		"amplitudes_im": im,
		"probabilities": state.Probabilities(),
	})
}

// HandleDistribution handles POST /api/simulation/distribution
func (h *Handler) HandleDistribution(w http.ResponseWriter, r *http.Request) {
	var req WavefunctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	circuit, err := circuits.CircuitFromDTO(req.Circuit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	distribution, err := h.service.Simulator().GetDistribution(r.Context(), circuit)
	if err != nil {
		h.writeSimulationError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{"distribution": distribution})
}

// HandleExpectation handles POST /api/simulation/expectation
func (h *Handler) HandleExpectation(w http.ResponseWriter, r *http.Request) {
	var req ExpectationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	circuit, err := circuits.CircuitFromDTO(req.Circuit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var values []float64
	if req.Exact {
		values, err = h.service.Simulator().GetExactExpectationValues(r.Context(), circuit, req.Operator)
	} else {
		values, err = h.service.Simulator().GetExpectationValues(r.Context(), circuit, req.Operator, req.NSamples)
	}
	if err != nil {
		h.writeSimulationError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"values": values,
		"exact":  req.Exact,
	})
}

// HandleGetJob handles GET /api/simulation/jobs/{id}
func (h *Handler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.GetJob(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{"job": job})
}

// HandleListJobs handles GET /api/simulation/jobs
func (h *Handler) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.service.ListJobs()
	h.writeData(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// HandleStats handles GET /api/simulation/stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, map[string]interface{}{
		"stats": h.service.Simulator().Stats(),
	})
}

// writeSimulationError maps simulation errors to HTTP status codes
func (h *Handler) writeSimulationError(w http.ResponseWriter, err error) {
	if errors.Is(err, circuits.ErrUnboundParameters) {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}

// writeData writes a JSON response in the standard envelope
func (h *Handler) writeData(w http.ResponseWriter, status int, data map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
