package harvest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"hugedomains-crawler/internal/config"
	"hugedomains-crawler/internal/fetcher"
)

// fakeStore is an in-memory Store double. All calls are recorded under a
// mutex since fanOut drives several streams concurrently.
type fakeStore struct {
	mu sync.Mutex

	nextID         int64
	created        []string
	ingested       map[int64]string
	deleted        []int64
	ingestRowCount int64
	failIngest     bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{ingested: make(map[int64]string)}
}

func (f *fakeStore) CreateSnapshot(ctx context.Context, name string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.created = append(f.created, name)
	return f.nextID, nil
}

func (f *fakeStore) IngestStaging(ctx context.Context, snapshotID int64, stagingPath string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIngest {
		return 0, fmt.Errorf("fake ingest failure")
	}
	f.ingested[snapshotID] = stagingPath
	return f.ingestRowCount, nil
}

func (f *fakeStore) DeleteSnapshot(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

// page builds a synthetic domain_search.cfm body with n rows, no next link.
func page(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<div class="domain-row"><span class="domain"><a class="link">same%03d.com</a><span class="price">1.00</span></span></div>`, i)
	}
	return b.String()
}

func singleLengthConfig() config.HarvestConfig {
	cfg := config.DefaultHarvestConfig()
	cfg.MinLength = 1
	cfg.MaxLength = 1
	cfg.MaxConcurrentLen = 4
	return cfg
}

func TestRunRejectsWhenAlreadyRunning(t *testing.T) {
	state := NewState()
	if !state.TryStart("already-in-flight") {
		t.Fatal("TryStart on idle state should succeed")
	}

	store := newFakeStore()
	fetch := func(ctx context.Context, p fetcher.Params, isRunning func() bool) (string, fetcher.Outcome, error) {
		return "", fetcher.OutcomeTerminal, nil
	}
	c := New(store, fetch, singleLengthConfig(), state, t.TempDir())

	if err := c.Run(context.Background(), "second"); err == nil {
		t.Fatal("Run should reject a second concurrent harvest")
	}
}

func TestRunSuccessfulLifecycle(t *testing.T) {
	fetch := func(ctx context.Context, p fetcher.Params, isRunning func() bool) (string, fetcher.Outcome, error) {
		if p.NextToken != "" {
			return page(0), fetcher.OutcomeOK, nil
		}
		return page(3), fetcher.OutcomeOK, nil
	}

	store := newFakeStore()
	state := NewState()
	c := New(store, fetch, singleLengthConfig(), state, t.TempDir())

	if err := c.Run(context.Background(), "snap-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap := state.Read()
	if snap.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed", snap.Status)
	}
	if snap.IsRunning {
		t.Fatal("harvest should not be running after Run returns")
	}
	if snap.TotalExtracted == 0 {
		t.Fatal("expected some rows extracted from the shared first page")
	}
	if len(store.ingested) != 1 {
		t.Fatalf("expected exactly one ingested snapshot, got %d", len(store.ingested))
	}
	if len(store.deleted) != 0 {
		t.Fatalf("a non-empty harvest should not be deleted, deleted=%v", store.deleted)
	}
}

func TestRunZeroRowsDiscardsSnapshot(t *testing.T) {
	fetch := func(ctx context.Context, p fetcher.Params, isRunning func() bool) (string, fetcher.Outcome, error) {
		return page(0), fetcher.OutcomeOK, nil
	}

	store := newFakeStore()
	state := NewState()
	c := New(store, fetch, singleLengthConfig(), state, t.TempDir())

	if err := c.Run(context.Background(), "empty-snap"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap := state.Read()
	if snap.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed", snap.Status)
	}
	if len(store.ingested) != 0 {
		t.Fatal("zero-row harvest must not be ingested")
	}
	if len(store.deleted) != 1 {
		t.Fatalf("expected the empty snapshot to be deleted, deleted=%v", store.deleted)
	}
}

func TestRunCancellationMidHarvestEndsStopped(t *testing.T) {
	var calls int64
	state := NewState()
	fetch := func(ctx context.Context, p fetcher.Params, isRunning func() bool) (string, fetcher.Outcome, error) {
		if p.NextToken != "" {
			// Only the stream that got the data page follows a token, and
			// only after staging that page: stop the harvest here.
			state.Stop()
			return page(0), fetcher.OutcomeOK, nil
		}
		n := atomic.AddInt64(&calls, 1)
		if n == 1 {
			return page(5) + `<a class="next-link" href="/x?n=tok">next</a>`, fetcher.OutcomeOK, nil
		}
		// Every other stream's first call yields an empty page.
		return page(0), fetcher.OutcomeOK, nil
	}

	store := newFakeStore()
	c := New(store, fetch, singleLengthConfig(), state, t.TempDir())

	if err := c.Run(context.Background(), "cancelled-snap"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap := state.Read()
	if snap.Status != StatusStopped {
		t.Fatalf("status = %q, want stopped", snap.Status)
	}
	if snap.TotalExtracted == 0 {
		t.Fatal("expected the first, pre-stop page to have staged some rows")
	}
}

func TestRunIngestFailureDeletesSnapshot(t *testing.T) {
	fetch := func(ctx context.Context, p fetcher.Params, isRunning func() bool) (string, fetcher.Outcome, error) {
		if p.NextToken != "" {
			return page(0), fetcher.OutcomeOK, nil
		}
		return page(3), fetcher.OutcomeOK, nil
	}

	store := newFakeStore()
	store.failIngest = true
	state := NewState()
	c := New(store, fetch, singleLengthConfig(), state, t.TempDir())

	if err := c.Run(context.Background(), "bad-ingest"); err == nil {
		t.Fatal("Run should surface the ingest error")
	}
	if len(store.deleted) != 1 {
		t.Fatalf("a failed ingest must delete the snapshot row, deleted=%v", store.deleted)
	}
}
