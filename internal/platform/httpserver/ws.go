package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"ballotbox/contexts/election-operations/election-engine/ports"
	"ballotbox/internal/shared/events"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// liveFeed bridges bus events to websocket clients so live-results screens
// see tally and lifecycle changes without polling. A client that falls behind
// is dropped and re-reads current state over the REST surface on reconnect.
type liveFeed struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan ports.EventEnvelope
	logger  *slog.Logger
}

func newLiveFeed(subscriber ports.EventSubscriber, logger *slog.Logger) *liveFeed {
	feed := &liveFeed{
		clients: make(map[*websocket.Conn]chan ports.EventEnvelope),
		logger:  logger,
	}
	topics := []string{
		events.TypeVoteRecorded,
		events.TypeElectionCreated,
		events.TypeElectionStarted,
		events.TypeElectionCompleted,
		events.TypeElectionUpdated,
		events.TypeElectionDeleted,
	}
	for _, topic := range topics {
		_ = subscriber.Subscribe(context.Background(), topic, "live-results-feed-cg", feed.fanOut)
	}
	return feed
}

func (f *liveFeed) fanOut(_ context.Context, event ports.EventEnvelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn, ch := range f.clients {
		select {
		case ch <- event:
		default:
			// Slow client; close it so the browser reconnects and re-reads.
			delete(f.clients, conn)
			close(ch)
		}
	}
	return nil
}

func (f *liveFeed) handleResultsSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("websocket upgrade failed",
			"event", "ws_upgrade_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"error", err.Error(),
		)
		return
	}

	ch := make(chan ports.EventEnvelope, 64)
	f.mu.Lock()
	f.clients[conn] = ch
	f.mu.Unlock()

	f.logger.Info("live results client connected",
		"event", "ws_client_connected",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"remote", r.RemoteAddr,
	)

	go func() {
		defer f.remove(conn)
		for event := range ch {
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}()

	// Drain reads so close frames and pings are processed.
	go func() {
		defer f.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (f *liveFeed) remove(conn *websocket.Conn) {
	f.mu.Lock()
	ch, ok := f.clients[conn]
	if ok {
		delete(f.clients, conn)
		close(ch)
	}
	f.mu.Unlock()
	_ = conn.Close()
}
