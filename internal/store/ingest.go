package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// CreateSnapshot inserts an empty snapshot row and returns its id. The
// coordinator calls this before a harvest starts so every staged row has a
// snapshot_id to join against from the first fetch onward.
func (s *Store) CreateSnapshot(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO snapshots (name) VALUES ($1) RETURNING id
	`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: create snapshot: %w", err)
	}
	return id, nil
}

// DeleteSnapshot removes a snapshot row; ON DELETE CASCADE drops its
// listing rows. The domains identity table is never pruned.
func (s *Store) DeleteSnapshot(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM snapshots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: delete snapshot %d: %w", id, err)
	}
	return nil
}

type stagingRow struct {
	name   string
	price  *decimal.Decimal
	length int
}

func readStagingFile(stagingPath string) ([]stagingRow, error) {
	f, err := os.Open(stagingPath)
	if err != nil {
		return nil, fmt.Errorf("open staging file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil { // header
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read staging header: %w", err)
	}

	var rows []stagingRow
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read staging row: %w", err)
		}
		if len(rec) != 3 || rec[0] == "" {
			continue
		}
		length, err := strconv.Atoi(rec[2])
		if err != nil {
			continue
		}
		var price *decimal.Decimal
		if rec[1] != "" {
			d, err := decimal.NewFromString(rec[1])
			if err == nil {
				price = &d
			}
		}
		rows = append(rows, stagingRow{name: rec[0], price: price, length: length})
	}
	return rows, nil
}

// IngestStaging loads a harvest's staging CSV into the snapshot store in
// two passes inside one transaction: upsert distinct domains, then join
// staging rows against the domains table to produce listing rows. On any
// failure the transaction rolls back, so no listing rows are left behind;
// the snapshot row itself is not deleted here (the harvest coordinator and
// cmd/import delete it when ingest returns an error).
func (s *Store) IngestStaging(ctx context.Context, snapshotID int64, stagingPath string) (int64, error) {
	rows, err := readStagingFile(stagingPath)
	if err != nil {
		return 0, fmt.Errorf("store: ingest snapshot %d: %w", snapshotID, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: ingest snapshot %d: begin: %w", snapshotID, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		CREATE TEMP TABLE staging_rows (
			name   TEXT,
			price  NUMERIC(14, 2),
			length INTEGER
		) ON COMMIT DROP
	`); err != nil {
		return 0, fmt.Errorf("store: ingest snapshot %d: create staging_rows: %w", snapshotID, err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"staging_rows"},
		[]string{"name", "price", "length"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			row := rows[i]
			var price any
			if row.price != nil {
				price = *row.price
			}
			return []any{row.name, price, row.length}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("store: ingest snapshot %d: copy staging rows: %w", snapshotID, err)
	}

	// Pass 1: upsert distinct domains (idempotent across re-ingest).
	if _, err := tx.Exec(ctx, `
		INSERT INTO domains (name, length)
		SELECT DISTINCT name, length FROM staging_rows WHERE name IS NOT NULL
		ON CONFLICT (name) DO NOTHING
	`); err != nil {
		return 0, fmt.Errorf("store: ingest snapshot %d: upsert domains: %w", snapshotID, err)
	}

	// Pass 2: join staging rows against domains to produce listing rows.
	// A missing domains match is impossible here since pass 1 ran first in
	// the same transaction.
	tag, err := tx.Exec(ctx, `
		INSERT INTO listings (snapshot_id, domain_id, domain, price_usd, length)
		SELECT $1, d.id, sr.name, sr.price, sr.length
		FROM staging_rows sr
		JOIN domains d ON d.name = sr.name
	`, snapshotID)
	if err != nil {
		return 0, fmt.Errorf("store: ingest snapshot %d: insert listings: %w", snapshotID, err)
	}
	rowCount := tag.RowsAffected()

	if _, err := tx.Exec(ctx, `UPDATE snapshots SET row_count = $1 WHERE id = $2`, rowCount, snapshotID); err != nil {
		return 0, fmt.Errorf("store: ingest snapshot %d: update row_count: %w", snapshotID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("store: ingest snapshot %d: commit: %w", snapshotID, err)
	}

	return rowCount, nil
}
