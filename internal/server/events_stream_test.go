package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/upsideon/orquestra-quantum/internal/events"
)

func readStreamEvent(t *testing.T, ctx context.Context, conn *websocket.Conn) *events.Event {
	t.Helper()

	_, payload, err := conn.Read(ctx)
	require.NoError(t, err)

	var event events.Event
	require.NoError(t, json.Unmarshal(payload, &event))
	return &event
}

func TestEventsStream_DeliversPublishedEvents(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := events.NewBus(log)
	handler := NewEventsStreamHandler(bus, true, log)

	server := httptest.NewServer(handler)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+server.URL[len("http"):], nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Give the handler a moment to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)

	bus.Publish("library", &events.CircuitSavedData{
		CircuitID: "id-1",
		Name:      "bell",
		NQubits:   2,
	})

	event := readStreamEvent(t, ctx, conn)
	assert.Equal(t, events.CircuitSaved, event.Type)
	assert.Equal(t, "library", event.Module)

	data, ok := event.Data.(*events.CircuitSavedData)
	require.True(t, ok)
	assert.Equal(t, "bell", data.Name)
}

func TestEventsStream_FiltersByType(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := events.NewBus(log)
	handler := NewEventsStreamHandler(bus, true, log)

	server := httptest.NewServer(handler)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + server.URL[len("http"):] + "?types=backup_completed"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	time.Sleep(50 * time.Millisecond)

	// The circuit event is filtered out; only the backup event arrives.
	bus.Publish("library", &events.CircuitSavedData{CircuitID: "id-1", Name: "bell"})
	bus.Publish("backup", &events.BackupData{Key: "library-backup-x.tar.gz"})

	event := readStreamEvent(t, ctx, conn)
	assert.Equal(t, events.BackupCompleted, event.Type)
}
