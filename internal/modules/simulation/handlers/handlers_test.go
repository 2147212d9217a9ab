package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upsideon/orquestra-quantum/internal/circuits"
	"github.com/upsideon/orquestra-quantum/internal/events"
	"github.com/upsideon/orquestra-quantum/internal/modules/simulation"
	testdb "github.com/upsideon/orquestra-quantum/internal/testing"
)

func newTestRouter(t *testing.T) (chi.Router, *simulation.Service) {
	t.Helper()

	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := events.NewBus(log)
	service := simulation.NewService(simulation.NewSimulator(nil, log), nil, bus, log)

	router := chi.NewRouter()
	NewHandler(service, log).RegisterRoutes(router)
	return router, service
}

func toDTO(t *testing.T, circuit *circuits.Circuit) circuits.CircuitDTO {
	t.Helper()

	dto, err := circuits.CircuitToDTO(circuit)
	require.NoError(t, err)
	return dto
}

func postJSON(t *testing.T, router chi.Router, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(body))
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleRun_Sync(t *testing.T) {
	router, _ := newTestRouter(t)

	circuit := circuits.New(circuits.X.At(0), circuits.X.At(1))
	rec := postJSON(t, router, "/simulation/run", RunRequest{
		Circuit:  toDTO(t, circuit),
		NSamples: 25,
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Data struct {
			Counts map[string]int `json:"counts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, map[string]int{"11": 25}, response.Data.Counts)
}

func TestHandleRun_Async(t *testing.T) {
	router, service := newTestRouter(t)

	rec := postJSON(t, router, "/simulation/run", RunRequest{
		Circuit:  toDTO(t, testdb.NewBellCircuit()),
		NSamples: 10,
		Async:    true,
	})

	require.Equal(t, http.StatusAccepted, rec.Code)

	var response struct {
		Data struct {
			Job simulation.Job `json:"job"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.NotEmpty(t, response.Data.Job.ID)

	service.Wait()

	job, err := service.GetJob(response.Data.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, simulation.StatusCompleted, job.Status)
}

func TestHandleRun_UnboundParameters(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/simulation/run", RunRequest{
		Circuit: toDTO(t, testdb.NewParametricCircuit()),
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleRunSet(t *testing.T) {
	router, service := newTestRouter(t)

	rec := postJSON(t, router, "/simulation/run-set", RunSetRequest{
		Circuits: []circuits.CircuitDTO{
			toDTO(t, circuits.New(circuits.X.At(0))),
			toDTO(t, testdb.NewBellCircuit()),
		},
		NSamples: 10,
	})

	require.Equal(t, http.StatusAccepted, rec.Code)
	service.Wait()

	jobs := service.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, simulation.StatusCompleted, jobs[0].Status)
	assert.Len(t, jobs[0].Results, 2)
}

func TestHandleWavefunction(t *testing.T) {
	router, _ := newTestRouter(t)

	// X on qubit 0 of a 2-qubit circuit puts all weight on index 2.
	circuit := circuits.New(circuits.X.At(0), circuits.I.At(1))
	rec := postJSON(t, router, "/simulation/wavefunction", WavefunctionRequest{
		Circuit: toDTO(t, circuit),
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Data struct {
			NQubits       int       `json:"n_qubits"`
			Re            []float64 `json:"amplitudes_re"`
			Im            []float64 `json:"amplitudes_im"`
			Probabilities []float64 `json:"probabilities"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 2, response.Data.NQubits)
	require.Len(t, response.Data.Probabilities, 4)
	assert.InDelta(t, 1.0, response.Data.Probabilities[2], 1e-12)
	assert.InDelta(t, 1.0, response.Data.Re[2], 1e-12)
}

func TestHandleDistribution(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/simulation/distribution", WavefunctionRequest{
		Circuit: toDTO(t, testdb.NewBellCircuit()),
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Data struct {
			Distribution map[string]float64 `json:"distribution"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response.Data.Distribution, 2)
	assert.InDelta(t, 0.5, response.Data.Distribution["00"], 1e-12)
	assert.InDelta(t, 0.5, response.Data.Distribution["11"], 1e-12)
}

func TestHandleExpectation_Exact(t *testing.T) {
	router, _ := newTestRouter(t)

	circuit := circuits.New(circuits.X.At(0), circuits.X.At(1))
	rec := postJSON(t, router, "/simulation/expectation", ExpectationRequest{
		Circuit: toDTO(t, circuit),
		Operator: simulation.IsingOperator{Terms: []simulation.IsingTerm{
			{Coefficient: 1.0, QubitIndices: []int{0}},
			{Coefficient: 1.0, QubitIndices: []int{0, 1}},
		}},
		Exact: true,
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Data struct {
			Values []float64 `json:"values"`
			Exact  bool      `json:"exact"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.True(t, response.Data.Exact)
	require.Len(t, response.Data.Values, 2)
	assert.InDelta(t, -1.0, response.Data.Values[0], 1e-12)
	assert.InDelta(t, 1.0, response.Data.Values[1], 1e-12)
}

func TestHandleGetJob_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/simulation/jobs/missing", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStats(t *testing.T) {
	router, _ := newTestRouter(t)

	postJSON(t, router, "/simulation/run", RunRequest{
		Circuit:  toDTO(t, circuits.New(circuits.X.At(0))),
		NSamples: 5,
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/simulation/stats", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Data struct {
			Stats simulation.RunStats `json:"stats"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Data.Stats.CircuitsRun)
}
