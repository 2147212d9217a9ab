// Package handlers provides HTTP handlers for the circuit library.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/upsideon/orquestra-quantum/internal/circuits"
	"github.com/upsideon/orquestra-quantum/internal/modules/library"
	"github.com/upsideon/orquestra-quantum/internal/sym"
)

// Handler handles circuit library HTTP requests
type Handler struct {
	service *library.Service
	log     zerolog.Logger
}

// NewHandler creates a new library handler
func NewHandler(service *library.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "library").Logger(),
	}
}

// SaveCircuitRequest represents a request to store a circuit
type SaveCircuitRequest struct {
	Name    string              `json:"name"`
	Circuit circuits.CircuitDTO `json:"circuit"`
}

// BindRequest represents a request to bind symbol values into a circuit
type BindRequest struct {
	Bindings map[string]float64 `json:"bindings"`
}

// AppendRequest represents a request to append operations to a circuit
type AppendRequest struct {
	Operations []circuits.OperationDTO `json:"operations"`
}

// SplitRequest represents a request to partition a circuit by gate names
type SplitRequest struct {
	GateNames []string `json:"gate_names"`
}

// PartitionResponse is one contiguous run of a split circuit
type PartitionResponse struct {
	Matches bool                `json:"matches"`
	Circuit circuits.CircuitDTO `json:"circuit"`
}

// HandleSaveCircuit handles POST /api/circuits
func (h *Handler) HandleSaveCircuit(w http.ResponseWriter, r *http.Request) {
	var req SaveCircuitRequest
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

	record, err := h.service.SaveCircuit(req.Name, circuit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeRecord(w, http.StatusCreated, record)
}

// HandleListCircuits handles GET /api/circuits
func (h *Handler) HandleListCircuits(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListCircuits()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list circuits")
		http.Error(w, "Failed to list circuits", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"circuits": records,
			"count":    len(records),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetCircuit handles GET /api/circuits/{id}
func (h *Handler) HandleGetCircuit(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.GetCircuit(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeRecord(w, http.StatusOK, record)
}

// HandleUpdateCircuit handles PUT /api/circuits/{id}
func (h *Handler) HandleUpdateCircuit(w http.ResponseWriter, r *http.Request) {
	var dto circuits.CircuitDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	circuit, err := circuits.CircuitFromDTO(dto)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := h.service.UpdateCircuit(chi.URLParam(r, "id"), circuit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeRecord(w, http.StatusOK, record)
}

// HandleDeleteCircuit handles DELETE /api/circuits/{id}
func (h *Handler) HandleDeleteCircuit(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCircuit(chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleBindCircuit handles POST /api/circuits/{id}/bind
func (h *Handler) HandleBindCircuit(w http.ResponseWriter, r *http.Request) {
	var req BindRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	bindings := make(sym.Bindings, len(req.Bindings))
	for name, value := range req.Bindings {
		bindings[sym.NewSymbol(name)] = value
	}

	record, err := h.service.BindCircuit(chi.URLParam(r, "id"), bindings)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeRecord(w, http.StatusOK, record)
}

// HandleAppendToCircuit handles POST /api/circuits/{id}/append
func (h *Handler) HandleAppendToCircuit(w http.ResponseWriter, r *http.Request) {
	var req AppendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Reuse the circuit decoder so appended operations may use any
	// serializable operation type.
	appended, err := circuits.CircuitFromDTO(circuits.CircuitDTO{Operations: req.Operations})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := h.service.AppendToCircuit(chi.URLParam(r, "id"), appended.Operations())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeRecord(w, http.StatusOK, record)
}

// HandleSplitCircuit handles POST /api/circuits/{id}/split
func (h *Handler) HandleSplitCircuit(w http.ResponseWriter, r *http.Request) {
	var req SplitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	partitions, err := h.service.SplitCircuit(chi.URLParam(r, "id"), req.GateNames)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response := make([]PartitionResponse, 0, len(partitions))
	for _, partition := range partitions {
		dto, err := circuits.CircuitToDTO(partition.Circuit)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to serialize partition")
			http.Error(w, "Failed to serialize partition", http.StatusInternalServerError)
			return
		}
		response = append(response, PartitionResponse{Matches: partition.Matches, Circuit: dto})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"partitions": response,
			"count":      len(response),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeRecord writes a circuit record with its full definition
func (h *Handler) writeRecord(w http.ResponseWriter, status int, record *library.CircuitRecord) {
	dto, err := circuits.CircuitToDTO(record.Circuit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to serialize circuit")
		http.Error(w, "Failed to serialize circuit", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, status, map[string]interface{}{
		"data": map[string]interface{}{
			"record":  record,
			"circuit": dto,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeError maps service errors to HTTP status codes
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, library.ErrNotFound) {
		http.Error(w, "Circuit not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
