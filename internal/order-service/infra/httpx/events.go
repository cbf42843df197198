package httpx

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jcmexdev/storefront-orders/internal/order-service/adapters/notify"
)

const DefaultHeartbeat = 25 * time.Second

// EventsHandler streams bus events to the client as server-sent events.
type EventsHandler struct {
	bus       *notify.Bus
	heartbeat time.Duration
	logger    *slog.Logger
}

func NewEventsHandler(bus *notify.Bus, heartbeat time.Duration, logger *slog.Logger) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsHandler{bus: bus, heartbeat: heartbeat, logger: logger}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// The stream outlives any server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	events, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	send := func(eventType string, data []byte) bool {
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data); err != nil {
			return false
		}
		return rc.Flush() == nil
	}

	if !send("system.hello", []byte(`{"hello":true}`)) {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case t := <-ticker.C:
			if !send("system.heartbeat", []byte(fmt.Sprintf(`{"t":%d}`, t.UnixMilli()))) {
				return
			}
		case e, ok := <-events:
			if !ok {
				return
			}
			if !send(e.Type, e.Payload) {
				h.logger.DebugContext(r.Context(), "event stream closed by client")
				return
			}
		}
	}
}
