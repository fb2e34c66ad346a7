package harvest

import (
	"sync"
	"sync/atomic"
)

// Status is one of the lifecycle states a harvest moves through, as
// reported by harvest_status().
type Status string

const (
	StatusIdle         Status = "idle"
	StatusScraping     Status = "scraping"
	StatusFinalizingDB Status = "finalizing_db"
	StatusCompleted    Status = "completed"
	StatusStopped      Status = "stopped"
)

// State is the process-wide scraper state: is_running and total_extracted
// mutated under atomic semantics, the string fields (status,
// snapshot_name) only written at lifecycle transitions and guarded by a
// mutex. A single State is shared by the coordinator and the
// status-reporting API handler.
type State struct {
	running       atomic.Bool
	stopRequested atomic.Bool
	extracted     atomic.Int64
	scanID        atomic.Int64

	mu           sync.RWMutex
	status       Status
	snapshotName string
}

// NewState returns an idle State.
func NewState() *State {
	s := &State{status: StatusIdle}
	return s
}

// TryStart atomically transitions from not-running to running. It returns
// false if a harvest is already in flight, so the caller (the API's
// start_harvest handler) can reject the request.
func (s *State) TryStart(snapshotName string) bool {
	if !s.running.CompareAndSwap(false, true) {
		return false
	}
	s.extracted.Store(0)
	s.stopRequested.Store(false)
	s.mu.Lock()
	s.status = StatusScraping
	s.snapshotName = snapshotName
	s.mu.Unlock()
	return true
}

// Stop sets is_running=false in response to an explicit stop_harvest()
// call. Cooperative: the coordinator and its streams observe this via
// IsRunning and drain. Unlike the coordinator's own end-of-fanout call to
// stopRunning, Stop also marks the harvest as having been stopped, so the
// final status lands on "stopped" rather than "completed" — a stopped
// harvest retains whatever rows were staged at stop time.
func (s *State) Stop() {
	s.stopRequested.Store(true)
	s.running.Store(false)
}

// stopRunning clears is_running without marking the harvest as stopped;
// the coordinator calls this once its own fan-out finishes naturally.
func (s *State) stopRunning() {
	s.running.Store(false)
}

// WasStopped reports whether Stop (not natural completion) ended the run.
func (s *State) WasStopped() bool {
	return s.stopRequested.Load()
}

// IsRunning reports the live is_running flag, checked at every stream
// loop iteration and before every retry.
func (s *State) IsRunning() bool {
	return s.running.Load()
}

// SetStatus records a lifecycle transition (scraping -> finalizing_db ->
// completed|stopped).
func (s *State) SetStatus(status Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// SetScanID records the in-flight snapshot id once it has been created.
func (s *State) SetScanID(id int64) {
	s.scanID.Store(id)
}

// AddExtracted atomically bumps total_extracted by delta.
func (s *State) AddExtracted(delta int64) {
	s.extracted.Add(delta)
}

// Snapshot is a point-in-time, consistent read of all fields, for the
// harvest_status() control-surface call.
type Snapshot struct {
	IsRunning      bool
	Status         Status
	SnapshotName   string
	TotalExtracted int64
	ScanID         int64
}

// Read returns a Snapshot safe to serialize directly to JSON.
func (s *State) Read() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		IsRunning:      s.running.Load(),
		Status:         s.status,
		SnapshotName:   s.snapshotName,
		TotalExtracted: s.extracted.Load(),
		ScanID:         s.scanID.Load(),
	}
}
