package api

import "github.com/gorilla/mux"

func registerRoutes(r *mux.Router, s *Server) {
	r.HandleFunc("/health", s.handleHealth).Methods("GET", "OPTIONS")

	r.HandleFunc("/scrape/start", s.guarded(s.handleStartHarvest)).Methods("POST", "OPTIONS")
	r.HandleFunc("/scrape/status", s.handleHarvestStatus).Methods("GET", "OPTIONS")
	r.HandleFunc("/scrape/stop", s.guarded(s.handleStopHarvest)).Methods("POST", "OPTIONS")
	r.HandleFunc("/scrape/status/stream", s.handleStatusWebSocket).Methods("GET", "OPTIONS")

	r.HandleFunc("/snapshots", s.handleListSnapshots).Methods("GET", "OPTIONS")
	r.HandleFunc("/snapshots/{id}", s.guarded(s.handleDeleteSnapshot)).Methods("DELETE", "OPTIONS")
	r.HandleFunc("/snapshots/{id}/rows", s.handleQueryRows).Methods("GET", "OPTIONS")

	r.HandleFunc("/diff", s.handleQueryDiff).Methods("GET", "OPTIONS")
	r.HandleFunc("/domains/{id}/history", s.handleDomainHistory).Methods("GET", "OPTIONS")
}
