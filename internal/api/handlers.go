package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"hugedomains-crawler/internal/models"
	"hugedomains-crawler/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"}, nil)
}

type startHarvestRequest struct {
	SnapshotName string `json:"snapshot_name"`
}

// handleStartHarvest implements start_harvest(snapshot_name): rejects if
// already running, otherwise spawns the coordinator asynchronously and
// returns immediately.
func (s *Server) handleStartHarvest(w http.ResponseWriter, r *http.Request) {
	var req startHarvestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SnapshotName == "" {
		writeError(w, http.StatusBadRequest, "snapshot_name is required")
		return
	}

	if s.state.IsRunning() {
		writeError(w, http.StatusConflict, "a harvest is already running")
		return
	}

	go func() {
		if err := s.coordinator.Run(context.Background(), req.SnapshotName); err != nil {
			return
		}
	}()
	s.publishStatus()

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{"snapshot_name": req.SnapshotName}, nil)
}

// handleHarvestStatus implements harvest_status().
func (s *Server) handleHarvestStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Read()
	writeJSON(w, map[string]any{
		"is_running":      snap.IsRunning,
		"status":          snap.Status,
		"snapshot_name":   snap.SnapshotName,
		"total_extracted": snap.TotalExtracted,
		"scan_id":         snap.ScanID,
	}, nil)
}

// handleStopHarvest implements stop_harvest(): sets is_running=false and
// returns immediately.
func (s *Server) handleStopHarvest(w http.ResponseWriter, r *http.Request) {
	s.state.Stop()
	s.publishStatus()
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{"status": "stopping"}, nil)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.store.ListSnapshots(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, snaps, nil)
}

func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid snapshot id")
		return
	}
	if err := s.store.DeleteSnapshot(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseDecimalParam(v string) (*decimal.Decimal, error) {
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseIntParam(v string) (*int, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// handleQueryRows implements query_rows(...): paginated browse of one
// snapshot's listings.
func (s *Server) handleQueryRows(w http.ResponseWriter, r *http.Request) {
	snapshotID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid snapshot id")
		return
	}

	q := r.URL.Query()
	minPrice, err := parseDecimalParam(q.Get("min_price"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid min_price")
		return
	}
	maxPrice, err := parseDecimalParam(q.Get("max_price"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid max_price")
		return
	}
	minLength, err := parseIntParam(q.Get("min_length"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid min_length")
		return
	}
	maxLength, err := parseIntParam(q.Get("max_length"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid max_length")
		return
	}

	params := store.BrowseParams{
		SnapshotID: snapshotID,
		Query:      q.Get("q"),
		Mode:       store.SearchMode(q.Get("mode")),
		MinPrice:   minPrice,
		MaxPrice:   maxPrice,
		MinLength:  minLength,
		MaxLength:  maxLength,
		SortColumn: q.Get("sort"),
		SortDir:    q.Get("dir"),
		Limit:      queryLimit(q),
		Offset:     queryOffset(q),
	}

	rows, total, elapsedMs, err := s.store.Browse(r.Context(), params)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, rows, map[string]any{"total_count": total, "elapsed_ms": elapsedMs})
}

// handleQueryDiff implements query_diff(...): classifies every domain
// between two snapshots.
func (s *Server) handleQueryDiff(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	snapA, err := strconv.ParseInt(q.Get("snapshot_a"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid snapshot_a")
		return
	}
	snapB, err := strconv.ParseInt(q.Get("snapshot_b"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid snapshot_b")
		return
	}

	params := store.DiffParams{
		SnapshotA: snapA,
		SnapshotB: snapB,
		DiffType:  models.DiffType(q.Get("diff_type")),
		Limit:     queryLimit(q),
		Offset:    queryOffset(q),
	}

	rows, total, elapsedMs, err := s.store.Diff(r.Context(), params)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, rows, map[string]any{"total_count": total, "elapsed_ms": elapsedMs})
}

// handleDomainHistory implements domain_history(id): a domain's price
// timeline across every snapshot.
func (s *Server) handleDomainHistory(w http.ResponseWriter, r *http.Request) {
	domainID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid domain id")
		return
	}

	entries, elapsedMs, err := s.store.History(r.Context(), domainID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, entries, map[string]any{"elapsed_ms": elapsedMs})
}

func queryLimit(q map[string][]string) int {
	if v := first(q, "limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 50
}

func queryOffset(q map[string][]string) int {
	if v := first(q, "offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return 0
}

func first(q map[string][]string, key string) string {
	if vs, ok := q[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}
