package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/upsideon/orquestra-quantum/internal/events"
)

const (
	// Per-message write deadline for stream consumers.
	streamWriteWait = 10 * time.Second

	// Buffer between the event bus and each connection. Events are
	// dropped for a connection once its buffer is full.
	streamBufferSize = 100
)

// EventsStreamHandler streams system events to WebSocket clients.
type EventsStreamHandler struct {
	eventBus *events.Bus
	devMode  bool
	log      zerolog.Logger
}

// NewEventsStreamHandler creates a new events stream handler.
func NewEventsStreamHandler(eventBus *events.Bus, devMode bool, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus: eventBus,
		devMode:  devMode,
		log:      log.With().Str("component", "events_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/events/stream requests. The optional
// "types" query parameter is a comma-separated list of event types to
// receive; all types are streamed when it is absent.
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	typesFilter := r.URL.Query().Get("types")

	var allowedTypes map[events.EventType]bool
	if typesFilter != "" {
		allowedTypes = make(map[events.EventType]bool)
		for _, t := range strings.Split(typesFilter, ",") {
			allowedTypes[events.EventType(strings.TrimSpace(t))] = true
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: h.devMode,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	h.log.Info().
		Str("types_filter", typesFilter).
		Str("remote_addr", r.RemoteAddr).
		Msg("Client connected to event stream")

	eventChan := make(chan *events.Event, streamBufferSize)

	eventHandler := func(event *events.Event) {
		if allowedTypes != nil && !allowedTypes[event.Type] {
			return
		}

		// Non-blocking send (drop if channel full)
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	}

	unsubscribes := make([]func(), 0, len(events.AllEventTypes))
	for _, eventType := range events.AllEventTypes {
		if allowedTypes != nil && !allowedTypes[eventType] {
			continue
		}
		unsubscribes = append(unsubscribes, h.eventBus.Subscribe(eventType, eventHandler))
	}
	defer func() {
		for _, unsubscribe := range unsubscribes {
			unsubscribe()
		}
	}()

	// CloseRead handles control frames and cancels the context when
	// the client disconnects.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Str("remote_addr", r.RemoteAddr).Msg("Client disconnected from event stream")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case event := <-eventChan:
			if err := h.writeEvent(ctx, conn, event); err != nil {
				h.log.Warn().Err(err).Msg("Failed to write event, closing stream")
				return
			}
		}
	}
}

func (h *EventsStreamHandler) writeEvent(ctx context.Context, conn *websocket.Conn, event *events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, streamWriteWait)
	defer cancel()

	return conn.Write(writeCtx, websocket.MessageText, payload)
}
