// Command import bulk-loads an externally sourced domain/price CSV into a
// new snapshot, for operators who already have a dump and want it queryable
// without running a live harvest.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hugedomains-crawler/internal/config"
	"hugedomains-crawler/internal/models"
	"hugedomains-crawler/internal/staging"
	"hugedomains-crawler/internal/store"
)

func main() {
	csvPath := flag.String("csv", "", "path to the domain/price CSV file to import")
	snapshotName := flag.String("name", "", "snapshot name, e.g. '2026-07-weekly'")
	flag.Parse()

	if *csvPath == "" || *snapshotName == "" {
		fmt.Fprintln(os.Stderr, "usage: import -csv <path> -name <snapshot name>")
		os.Exit(2)
	}

	if _, err := os.Stat(*csvPath); err != nil {
		log.Fatalf("cannot find CSV file at %s: %v", *csvPath, err)
	}

	cfg := config.FromEnv()
	ctx := context.Background()

	db, err := store.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to DB: %v", err)
	}
	defer db.Close()

	if err := runImport(ctx, db, *csvPath, *snapshotName); err != nil {
		log.Fatalf("import failed: %v", err)
	}
}

func runImport(ctx context.Context, db *store.Store, csvPath, snapshotName string) error {
	start := time.Now()

	log.Printf("creating snapshot entry for %q...", snapshotName)
	snapshotID, err := db.CreateSnapshot(ctx, snapshotName)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}

	stagingPath := filepath.Join(os.TempDir(), fmt.Sprintf("import_%d.csv", snapshotID))
	rowsSeen, err := translateToStaging(csvPath, stagingPath)
	if err != nil {
		_ = db.DeleteSnapshot(ctx, snapshotID)
		return fmt.Errorf("translate %s: %w", csvPath, err)
	}
	defer staging.Remove(stagingPath)

	if rowsSeen == 0 {
		_ = db.DeleteSnapshot(ctx, snapshotID)
		return fmt.Errorf("%s contained no usable rows", csvPath)
	}

	log.Printf("starting bulk import for snapshot_id=%d...", snapshotID)
	rowCount, err := db.IngestStaging(ctx, snapshotID, stagingPath)
	if err != nil {
		_ = db.DeleteSnapshot(ctx, snapshotID)
		return fmt.Errorf("ingest: %w", err)
	}

	log.Printf("SUCCESS: imported %d rows in %.2f seconds", rowCount, time.Since(start).Seconds())
	return nil
}

// translateToStaging reads an external CSV with "Domain"/"Price" columns
// (in any column order, case-insensitive headers) and rewrites it into the
// internal staging format internal/store.IngestStaging expects. Returns
// the number of rows written.
func translateToStaging(csvPath, stagingPath string) (int, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}

	domainCol, priceCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "domain":
			domainCol = i
		case "price":
			priceCol = i
		}
	}
	if domainCol == -1 {
		return 0, fmt.Errorf("no Domain column found in header %v", header)
	}

	w, err := staging.New(stagingPath)
	if err != nil {
		return 0, err
	}
	defer w.Close()

	count := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read row: %w", err)
		}
		if domainCol >= len(rec) {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(rec[domainCol]))
		if name == "" {
			continue
		}

		var price *decimal.Decimal
		if priceCol >= 0 && priceCol < len(rec) {
			raw := strings.TrimSpace(rec[priceCol])
			raw = strings.NewReplacer("$", "", ",", "").Replace(raw)
			if raw != "" {
				if d, err := decimal.NewFromString(raw); err == nil {
					price = &d
				}
			}
		}

		if err := w.Append(name, price, models.DomainLength(name)); err != nil {
			return 0, err
		}
		count++
	}

	return count, nil
}
