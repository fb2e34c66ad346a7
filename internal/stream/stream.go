// Package stream drives one (length, ordering) channel of a harvest to
// completion: sequential paginated requests, global dedup, and
// meet-in-the-middle termination against the opposite-ordering stream.
package stream

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"hugedomains-crawler/internal/fetcher"
	"hugedomains-crawler/internal/models"
	"hugedomains-crawler/internal/parser"
	"hugedomains-crawler/internal/seenset"
	"hugedomains-crawler/internal/staging"
)

// FetchFn matches (*fetcher.Fetcher).Fetch's signature. Streams depend on
// this function type rather than the concrete Fetcher so tests can supply
// a scripted fake.
type FetchFn func(ctx context.Context, p fetcher.Params, isRunning func() bool) (body string, outcome fetcher.Outcome, err error)

// Config bundles everything one stream needs beyond its (length, ordering)
// identity.
type Config struct {
	Fetch            FetchFn
	Seen             *seenset.Set
	Staging          *staging.Writer
	TotalExtracted   *int64 // atomically incremented as rows are staged
	RecordsPerPage   int
	OverlapThreshold float64 // fraction of RecordsPerPage, e.g. 0.8
	IsRunning        func() bool
}

// Run drives one (length, ordering) stream to completion. It returns nil
// on any normal termination (302, empty page, meet-in-the-middle overlap,
// exhausted continuation token, or cancellation) and a non-nil error on
// retry-exhaustion failure, a page that fails to parse, or a failed
// staging write. That failure must never propagate to sibling streams —
// callers should log it and move on rather than abort a fan-out.
func Run(ctx context.Context, length int, ordering models.Ordering, cfg Config) error {
	if cfg.RecordsPerPage == 0 {
		cfg.RecordsPerPage = 500
	}
	// start_index always begins at 1; RecordsPerPage governs the overlap
	// threshold and the post-first-page pagination stride. The maxrows
	// request param is fixed at 500 by the fetcher.
	startIndex := 1
	nextToken := ""

	for cfg.IsRunning == nil || cfg.IsRunning() {
		params := fetcher.Params{
			Length:    length,
			Ordering:  string(ordering),
			Start:     startIndex,
			NextToken: nextToken,
		}

		body, outcome, err := cfg.Fetch(ctx, params, cfg.IsRunning)
		switch outcome {
		case fetcher.OutcomeTerminal:
			return nil
		case fetcher.OutcomeTransient:
			if cfg.IsRunning != nil && !cfg.IsRunning() {
				return nil
			}
			if err != nil {
				log.Printf("[stream L=%d ord=%s] terminating abnormally: %v", length, ordering, err)
			}
			return err
		}

		rows, next, err := parser.Parse(body)
		if err != nil {
			return fmt.Errorf("stream L=%d ord=%s: parse: %w", length, ordering, err)
		}

		if len(rows) == 0 {
			return nil
		}

		overlap := 0
		for _, row := range rows {
			if !cfg.IsRunning() {
				break
			}
			if cfg.Seen.InsertIfAbsent(row.Name) {
				if err := cfg.Staging.Append(row.Name, row.Price, row.Length); err != nil {
					return fmt.Errorf("stream L=%d ord=%s: stage row: %w", length, ordering, err)
				}
				if cfg.TotalExtracted != nil {
					atomic.AddInt64(cfg.TotalExtracted, 1)
				}
			} else {
				overlap++
			}
		}

		threshold := int(cfg.OverlapThreshold * float64(cfg.RecordsPerPage))
		if overlap > threshold {
			return nil
		}

		if startIndex == 1 {
			startIndex = cfg.RecordsPerPage
		} else {
			startIndex += cfg.RecordsPerPage
		}

		if next == nil {
			return nil
		}
		nextToken = *next
	}
	return nil
}
