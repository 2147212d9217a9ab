package simulation

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upsideon/orquestra-quantum/internal/circuits"
	"github.com/upsideon/orquestra-quantum/internal/events"
	testdb "github.com/upsideon/orquestra-quantum/internal/testing"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *eventRecorder) record(event *events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]events.EventType, len(r.events))
	for i, event := range r.events {
		types[i] = event.Type
	}
	return types
}

func newTestJobService(t *testing.T) (*Service, *eventRecorder) {
	t.Helper()

	db, cleanup := testdb.NewTestDB(t, "cache")
	t.Cleanup(cleanup)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := events.NewBus(log)

	recorder := &eventRecorder{}
	bus.Subscribe(events.JobStarted, recorder.record)
	bus.Subscribe(events.JobCompleted, recorder.record)
	bus.Subscribe(events.JobFailed, recorder.record)

	store := NewJobStore(db.Conn(), log)
	return NewService(NewSimulator(nil, log), store, bus, log), recorder
}

func TestService_SubmitRunAndMeasure(t *testing.T) {
	service, recorder := newTestJobService(t)

	circuit := circuits.New(circuits.X.At(0), circuits.X.At(1))
	job := service.SubmitRunAndMeasure(circuit, 50)
	require.NotEmpty(t, job.ID)
	assert.Equal(t, JobRunAndMeasure, job.Type)

	service.Wait()

	done, err := service.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	require.Len(t, done.Results, 1)
	assert.Equal(t, map[string]int{"11": 50}, done.Results[0].Counts())

	assert.Equal(t, []events.EventType{events.JobStarted, events.JobCompleted}, recorder.types())
}

func TestService_SubmitRunSetAndMeasure(t *testing.T) {
	service, _ := newTestJobService(t)

	set := []*circuits.Circuit{
		circuits.New(circuits.X.At(0)),
		testdb.NewBellCircuit(),
	}

	job := service.SubmitRunSetAndMeasure(set, 10)
	assert.Equal(t, JobRunSetAndMeasure, job.Type)

	service.Wait()

	done, err := service.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Len(t, done.Results, 2)
}

func TestService_FailedJob(t *testing.T) {
	service, recorder := newTestJobService(t)

	job := service.SubmitRunAndMeasure(testdb.NewParametricCircuit(), 10)
	service.Wait()

	done, err := service.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, done.Status)
	assert.Contains(t, done.Error, "theta")
	assert.Empty(t, done.Results)

	assert.Equal(t, []events.EventType{events.JobStarted, events.JobFailed}, recorder.types())
}

func TestService_GetJob_Unknown(t *testing.T) {
	service, _ := newTestJobService(t)

	_, err := service.GetJob("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestService_JobHistorySurvivesRestart(t *testing.T) {
	db, cleanup := testdb.NewTestDB(t, "cache")
	defer cleanup()

	log := zerolog.New(nil).Level(zerolog.Disabled)
	store := NewJobStore(db.Conn(), log)

	first := NewService(NewSimulator(nil, log), store, events.NewBus(log), log)
	job := first.SubmitRunAndMeasure(circuits.New(circuits.X.At(0)), 5)
	first.Wait()

	// A fresh service over the same store still knows the job.
	second := NewService(NewSimulator(nil, log), store, events.NewBus(log), log)

	restored, err := second.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, restored.Status)
	assert.Equal(t, JobRunAndMeasure, restored.Type)
	require.NotNil(t, restored.CompletedAt)
	require.Len(t, restored.Results, 1)
	assert.Equal(t, map[string]int{"1": 5}, restored.Results[0].Counts())

	jobs := second.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, job.ID, jobs[0].ID)
}

func TestService_ListJobs(t *testing.T) {
	service, _ := newTestJobService(t)

	service.SubmitRunAndMeasure(circuits.New(circuits.X.At(0)), 5)
	service.SubmitRunAndMeasure(testdb.NewBellCircuit(), 5)
	service.Wait()

	jobs := service.ListJobs()
	assert.Len(t, jobs, 2)
}
