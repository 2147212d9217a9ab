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
	"github.com/upsideon/orquestra-quantum/internal/modules/library"
	testdb "github.com/upsideon/orquestra-quantum/internal/testing"
)

func newTestRouter(t *testing.T) (chi.Router, func()) {
	t.Helper()

	db, cleanup := testdb.NewTestDB(t, "library")
	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := events.NewBus(log)
	repo := library.NewRepository(db.Conn(), log)
	service := library.NewService(repo, bus, log)

	router := chi.NewRouter()
	NewHandler(service, log).RegisterRoutes(router)
	return router, cleanup
}

func circuitBody(t *testing.T, name string, circuit *circuits.Circuit) *bytes.Buffer {
	t.Helper()

	dto, err := circuits.CircuitToDTO(circuit)
	require.NoError(t, err)

	body, err := json.Marshal(SaveCircuitRequest{Name: name, Circuit: dto})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func saveCircuit(t *testing.T, router chi.Router, name string, circuit *circuits.Circuit) string {
	t.Helper()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/circuits", circuitBody(t, name, circuit))
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var response struct {
		Data struct {
			Record struct {
				ID string `json:"id"`
			} `json:"record"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.NotEmpty(t, response.Data.Record.ID)
	return response.Data.Record.ID
}

func TestHandleSaveCircuit(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/circuits", circuitBody(t, "bell", testdb.NewBellCircuit()))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	record := data["record"].(map[string]interface{})
	assert.Equal(t, "bell", record["name"])
	assert.Equal(t, float64(2), record["n_qubits"])
	assert.Contains(t, response, "metadata")
}

func TestHandleSaveCircuit_InvalidBody(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/circuits", bytes.NewBufferString("{not json"))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListCircuits(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	saveCircuit(t, router, "bell", testdb.NewBellCircuit())
	saveCircuit(t, router, "ghz", testdb.NewGHZCircuit(3))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/circuits", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Data struct {
			Count    int               `json:"count"`
			Circuits []json.RawMessage `json:"circuits"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 2, response.Data.Count)
	assert.Len(t, response.Data.Circuits, 2)
}

func TestHandleGetCircuit_NotFound(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/circuits/missing", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleBindCircuit(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	id := saveCircuit(t, router, "ansatz", testdb.NewParametricCircuit())

	body, err := json.Marshal(BindRequest{Bindings: map[string]float64{"theta": 0.25}})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/circuits/"+id+"/bind", bytes.NewBuffer(body))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Data struct {
			Record struct {
				FreeSymbols []string `json:"free_symbols"`
			} `json:"record"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Empty(t, response.Data.Record.FreeSymbols)
}

func TestHandleAppendToCircuit(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	id := saveCircuit(t, router, "bell", testdb.NewBellCircuit())

	extension, err := circuits.CircuitToDTO(circuits.New(circuits.X.At(2)))
	require.NoError(t, err)

	body, err := json.Marshal(AppendRequest{Operations: extension.Operations})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/circuits/"+id+"/append", bytes.NewBuffer(body))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Data struct {
			Record struct {
				NQubits     int `json:"n_qubits"`
				NOperations int `json:"n_operations"`
			} `json:"record"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 3, response.Data.Record.NQubits)
	assert.Equal(t, 3, response.Data.Record.NOperations)
}

func TestHandleSplitCircuit(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	circuit := circuits.New(
		circuits.H.At(0),
		circuits.CNOT.At(0, 1),
		circuits.H.At(1),
	)
	id := saveCircuit(t, router, "mixed", circuit)

	body, err := json.Marshal(SplitRequest{GateNames: []string{"CNOT"}})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/circuits/"+id+"/split", bytes.NewBuffer(body))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Data struct {
			Count      int                 `json:"count"`
			Partitions []PartitionResponse `json:"partitions"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Equal(t, 3, response.Data.Count)
	assert.False(t, response.Data.Partitions[0].Matches)
	assert.True(t, response.Data.Partitions[1].Matches)
	assert.False(t, response.Data.Partitions[2].Matches)
}

func TestHandleDeleteCircuit(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	id := saveCircuit(t, router, "bell", testdb.NewBellCircuit())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/circuits/"+id, nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/circuits/"+id, nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
