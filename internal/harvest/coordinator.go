// Package harvest drives one full catalog harvest: it enumerates the
// (length, ordering) work grid, caps live streams via a concurrency gate,
// owns the global SeenSet and staging file, and commits (or discards) the
// resulting snapshot.
package harvest

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"hugedomains-crawler/internal/config"
	"hugedomains-crawler/internal/fetcher"
	"hugedomains-crawler/internal/models"
	"hugedomains-crawler/internal/seenset"
	"hugedomains-crawler/internal/staging"
	"hugedomains-crawler/internal/stream"
)

// Store is the subset of the snapshot store a harvest needs. The real
// implementation is internal/store.Store; tests supply a fake.
type Store interface {
	CreateSnapshot(ctx context.Context, name string) (int64, error)
	IngestStaging(ctx context.Context, snapshotID int64, stagingPath string) (rowCount int64, err error)
	DeleteSnapshot(ctx context.Context, id int64) error
}

// Coordinator owns one harvest's lifecycle end to end.
type Coordinator struct {
	store  Store
	fetch  stream.FetchFn
	cfg    config.HarvestConfig
	state  *State
	tmpDir string
}

// New builds a Coordinator. tmpDir is where the staging CSV is created
// (the original used /tmp; any writable scratch directory works).
func New(store Store, fetch stream.FetchFn, cfg config.HarvestConfig, state *State, tmpDir string) *Coordinator {
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	return &Coordinator{store: store, fetch: fetch, cfg: cfg, state: state, tmpDir: tmpDir}
}

// NewFetchFn adapts a *fetcher.Fetcher into the stream.FetchFn the
// coordinator wires into every stream.
func NewFetchFn(f *fetcher.Fetcher) stream.FetchFn {
	return f.Fetch
}

// Run executes one harvest synchronously: create snapshot -> fan out
// streams -> ingest or discard -> finalize status. Callers that want
// "start and return immediately" semantics should invoke Run in its own
// goroutine.
func (c *Coordinator) Run(ctx context.Context, snapshotName string) error {
	if !c.state.TryStart(snapshotName) {
		return fmt.Errorf("harvest: already running")
	}

	snapshotID, err := c.store.CreateSnapshot(ctx, snapshotName)
	if err != nil {
		c.state.SetStatus(StatusCompleted)
		c.state.Stop()
		return fmt.Errorf("harvest: create snapshot: %w", err)
	}
	c.state.SetScanID(snapshotID)

	stagingPath := fmt.Sprintf("%s/snapshot_%d.csv", c.tmpDir, snapshotID)
	writer, err := staging.New(stagingPath)
	if err != nil {
		_ = c.store.DeleteSnapshot(ctx, snapshotID)
		c.state.SetStatus(StatusCompleted)
		c.state.Stop()
		return fmt.Errorf("harvest: create staging file: %w", err)
	}

	seen := seenset.New()
	c.fanOut(ctx, seen, writer)

	_ = writer.Close()
	c.state.stopRunning()
	c.state.SetStatus(StatusFinalizingDB)

	finalStatus := StatusCompleted
	if c.state.WasStopped() {
		finalStatus = StatusStopped
	}
	total := c.state.Read().TotalExtracted

	if total > 0 {
		log.Printf("[harvest] finalizing snapshot %q (id=%d): ingesting %d staged rows", snapshotName, snapshotID, total)
		if _, err := c.store.IngestStaging(ctx, snapshotID, stagingPath); err != nil {
			_ = c.store.DeleteSnapshot(ctx, snapshotID)
			_ = staging.Remove(stagingPath)
			c.state.SetStatus(StatusCompleted)
			return fmt.Errorf("harvest: ingest: %w", err)
		}
	} else {
		log.Printf("[harvest] snapshot %q (id=%d) collected zero rows, discarding", snapshotName, snapshotID)
		if err := c.store.DeleteSnapshot(ctx, snapshotID); err != nil {
			log.Printf("[harvest] warning: failed to delete empty snapshot %d: %v", snapshotID, err)
		}
	}

	_ = staging.Remove(stagingPath)
	c.state.SetStatus(finalStatus)
	return nil
}

// fanOut enumerates lengths 1..63 (or cfg's override), gating live lengths
// through a semaphore sized cfg.MaxConcurrentLen, and within each admitted
// length races all four orderings concurrently.
func (c *Coordinator) fanOut(ctx context.Context, seen *seenset.Set, writer *staging.Writer) {
	sem := make(chan struct{}, c.cfg.MaxConcurrentLen)
	var wg sync.WaitGroup

	for length := c.cfg.MinLength; length <= c.cfg.MaxLength; length++ {
		length := length
		wg.Add(1)
		go func() {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if !c.state.IsRunning() {
				return
			}
			c.runLength(ctx, length, seen, writer)
		}()
	}

	wg.Wait()
}

func (c *Coordinator) runLength(ctx context.Context, length int, seen *seenset.Set, writer *staging.Writer) {
	var wg sync.WaitGroup
	for _, ordering := range models.Orderings {
		ordering := ordering
		wg.Add(1)
		go func() {
			defer wg.Done()

			streamCfg := stream.Config{
				Fetch:            c.fetch,
				Seen:             seen,
				Staging:          writer,
				TotalExtracted:   nil,
				RecordsPerPage:   c.cfg.RecordsPerPage,
				OverlapThreshold: c.cfg.OverlapThreshold,
				IsRunning:        c.state.IsRunning,
			}

			if err := c.runOneStream(ctx, length, ordering, streamCfg); err != nil {
				log.Printf("[stream L=%d ord=%s] abnormal termination: %v", length, ordering, err)
			}
		}()
	}
	wg.Wait()
}

// runOneStream wraps stream.Run so the coordinator's shared total counter
// stays in sync without every stream needing direct State access.
func (c *Coordinator) runOneStream(ctx context.Context, length int, ordering models.Ordering, cfg stream.Config) error {
	counted := int64(0)
	cfg.TotalExtracted = &counted
	err := runAndReport(ctx, length, ordering, cfg, c.state)
	return err
}

func runAndReport(ctx context.Context, length int, ordering models.Ordering, cfg stream.Config, state *State) error {
	err := streamRun(ctx, length, ordering, cfg)
	if cfg.TotalExtracted != nil {
		state.AddExtracted(*cfg.TotalExtracted)
	}
	return err
}

// streamRun is a package-level indirection point so tests can substitute
// stream.Run if ever needed without touching the exported API.
var streamRun = stream.Run

// Stop signals the given State to stop an in-flight harvest.
func Stop(state *State) {
	state.Stop()
}
