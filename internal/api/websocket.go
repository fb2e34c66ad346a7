package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"hugedomains-crawler/internal/eventbus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleStatusWebSocket sends the current harvest state on connect and then
// every event published on the bus, supplementing the polling /scrape/status
// endpoint. Events are published when a start or stop request is handled;
// the coordinator's own transitions (finalizing_db, completed, stopped) are
// not pushed.
func (s *Server) handleStatusWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		writeError(w, http.StatusNotImplemented, "status stream not configured")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[api] websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	events := make(chan eventbus.Event, 16)
	s.bus.Subscribe(events)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	snap := s.state.Read()
	if b, err := json.Marshal(snap); err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, b)
	}

	for {
		select {
		case <-closed:
			return
		case evt := <-events:
			b, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		}
	}
}
