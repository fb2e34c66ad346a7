// Package api exposes the control surface and query engine over HTTP:
// harvest lifecycle, snapshot catalog, and the browse/diff/history query
// shapes.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"hugedomains-crawler/internal/eventbus"
	"hugedomains-crawler/internal/harvest"
)

// Coordinator is the subset of harvest.Coordinator the API drives.
type Coordinator interface {
	Run(ctx context.Context, snapshotName string) error
}

// Server wires the harvest control surface and query engine behind a
// gorilla/mux router.
type Server struct {
	coordinator Coordinator
	state       *harvest.State
	store       QueryStore
	bus         *eventbus.Bus
	adminToken  string
	httpServer  *http.Server
}

// Options configures optional Server behavior.
type Options struct {
	AdminToken string // empty disables the admin guard entirely
	Bus        *eventbus.Bus
}

// NewServer builds a Server listening on port, backed by coordinator for
// lifecycle control, state for status reads, and store for queries.
func NewServer(coordinator Coordinator, state *harvest.State, store QueryStore, port string, opts Options) *Server {
	s := &Server{
		coordinator: coordinator,
		state:       state,
		store:       store,
		bus:         opts.Bus,
		adminToken:  opts.AdminToken,
	}

	r := mux.NewRouter()
	r.Use(commonMiddleware)
	registerRoutes(r, s)

	s.httpServer = &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	return s
}

// Start runs the HTTP server until it errors or is shut down.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func commonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type envelope struct {
	Data  any    `json:"data,omitempty"`
	Meta  any    `json:"meta,omitempty"`
	Error string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, data, meta any) {
	json.NewEncoder(w).Encode(envelope{Data: data, Meta: meta})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Error: message})
}

// publishStatus fans the current state snapshot out to any websocket
// subscribers; a nil bus (no subscribers configured) is a silent no-op.
func (s *Server) publishStatus() {
	if s.bus == nil {
		return
	}
	snap := s.state.Read()
	s.bus.Publish(eventbus.Event{
		ScanID:         snap.ScanID,
		Status:         string(snap.Status),
		SnapshotName:   snap.SnapshotName,
		TotalExtracted: snap.TotalExtracted,
		Timestamp:      timeNow(),
	})
}

// timeNow is a package-level indirection point so tests could substitute a
// fixed clock without touching exported API; the real implementation is
// just time.Now.
var timeNow = time.Now
