package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hugedomains-crawler/internal/models"
)

// SearchMode selects how BrowseParams.Query matches against domain names.
type SearchMode string

const (
	SearchPrefix   SearchMode = "prefix"
	SearchExact    SearchMode = "exact"
	SearchContains SearchMode = "contains"
)

// BrowseParams is the paginated browse query shape.
type BrowseParams struct {
	SnapshotID int64
	Query      string
	Mode       SearchMode
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	MinLength  *int
	MaxLength  *int
	SortColumn string // domain | price_usd | length, falls back to domain
	SortDir    string // asc | desc, falls back to asc
	Limit      int
	Offset     int
}

var browseSortColumns = map[string]string{
	"domain":    "domain",
	"price_usd": "price_usd",
	"length":    "length",
}

func (p BrowseParams) resolvedSort() (string, string) {
	col, ok := browseSortColumns[p.SortColumn]
	if !ok {
		col = "domain"
	}
	dir := strings.ToLower(p.SortDir)
	if dir != "asc" && dir != "desc" {
		dir = "asc"
	}
	return col, dir
}

// whereClause builds the shared WHERE clause (and positional args) for a
// browse query's count and data statements: both statements filter
// identically so the reported total matches the page actually returned.
func (p BrowseParams) whereClause() (string, []any) {
	clauses := []string{"snapshot_id = $1"}
	args := []any{p.SnapshotID}

	if p.Query != "" {
		switch p.Mode {
		case SearchExact:
			clauses = append(clauses, fmt.Sprintf("LOWER(domain) = LOWER($%d)", len(args)+1))
			args = append(args, p.Query)
		case SearchContains:
			clauses = append(clauses, fmt.Sprintf("domain ILIKE $%d", len(args)+1))
			args = append(args, "%"+p.Query+"%")
		default: // prefix
			clauses = append(clauses, fmt.Sprintf("domain ILIKE $%d", len(args)+1))
			args = append(args, p.Query+"%")
		}
	}
	if p.MinPrice != nil {
		clauses = append(clauses, fmt.Sprintf("price_usd >= $%d", len(args)+1))
		args = append(args, *p.MinPrice)
	}
	if p.MaxPrice != nil {
		clauses = append(clauses, fmt.Sprintf("price_usd <= $%d", len(args)+1))
		args = append(args, *p.MaxPrice)
	}
	if p.MinLength != nil {
		clauses = append(clauses, fmt.Sprintf("length >= $%d", len(args)+1))
		args = append(args, *p.MinLength)
	}
	if p.MaxLength != nil {
		clauses = append(clauses, fmt.Sprintf("length <= $%d", len(args)+1))
		args = append(args, *p.MaxLength)
	}

	return strings.Join(clauses, " AND "), args
}

// Browse runs the paginated listing browse for one snapshot.
func (s *Store) Browse(ctx context.Context, p BrowseParams) (rows []models.BrowseRow, total int64, elapsedMs int64, err error) {
	start := time.Now()
	where, args := p.whereClause()

	countSQL := fmt.Sprintf(`SELECT COUNT(*) FROM listings WHERE %s`, where)
	if err = s.db.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, 0, fmt.Errorf("store: browse count: %w", err)
	}

	col, dir := p.resolvedSort()
	limit, offset := p.Limit, p.Offset
	if limit <= 0 {
		limit = 50
	}
	dataSQL := fmt.Sprintf(`
		SELECT domain_id, domain, price_usd, length
		FROM listings
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, where, col, dir, len(args)+1, len(args)+2)
	dataArgs := append(append([]any{}, args...), limit, offset)

	dbRows, err := s.db.Query(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("store: browse query: %w", err)
	}
	defer dbRows.Close()

	for dbRows.Next() {
		var row models.BrowseRow
		if err := dbRows.Scan(&row.DomainID, &row.Domain, &row.PriceUSD, &row.Length); err != nil {
			return nil, 0, 0, fmt.Errorf("store: browse scan: %w", err)
		}
		rows = append(rows, row)
	}
	if err := dbRows.Err(); err != nil {
		return nil, 0, 0, fmt.Errorf("store: browse rows: %w", err)
	}

	return rows, total, time.Since(start).Milliseconds(), nil
}

// DiffParams selects which two snapshots to compare and how to filter the
// result.
type DiffParams struct {
	SnapshotA int64 // old
	SnapshotB int64 // new
	DiffType  models.DiffType
	Limit     int
	Offset    int
}

// Diff classifies every domain that appears in either of two snapshots via
// a full outer join on domain_id.
func (s *Store) Diff(ctx context.Context, p DiffParams) (rows []models.DiffRow, total int64, elapsedMs int64, err error) {
	start := time.Now()

	typeFilter := ""
	switch p.DiffType {
	case models.DiffNew:
		typeFilter = "AND classified.status = 'NEW'"
	case models.DiffDeleted:
		typeFilter = "AND classified.status = 'DELETED'"
	case models.DiffChanged:
		typeFilter = "AND classified.status = 'CHANGED'"
	default: // "all" excludes UNCHANGED
		typeFilter = "AND classified.status <> 'UNCHANGED'"
	}

	limit, offset := p.Limit, p.Offset
	if limit <= 0 {
		limit = 50
	}

	baseSQL := `
		FROM (
			SELECT
				COALESCE(a.domain_id, b.domain_id) AS domain_id,
				COALESCE(a.domain, b.domain) AS domain,
				a.price_usd AS old_price,
				b.price_usd AS new_price,
				CASE
					WHEN a.domain_id IS NULL THEN 'NEW'
					WHEN b.domain_id IS NULL THEN 'DELETED'
					WHEN a.price_usd IS DISTINCT FROM b.price_usd THEN 'CHANGED'
					ELSE 'UNCHANGED'
				END AS status
			FROM (SELECT * FROM listings WHERE snapshot_id = $1) a
			FULL OUTER JOIN (SELECT * FROM listings WHERE snapshot_id = $2) b
				ON a.domain_id = b.domain_id
		) classified
		WHERE 1=1 ` + typeFilter

	if err = s.db.QueryRow(ctx, "SELECT COUNT(*) "+baseSQL, p.SnapshotA, p.SnapshotB).Scan(&total); err != nil {
		return nil, 0, 0, fmt.Errorf("store: diff count: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT classified.domain_id, classified.domain, classified.old_price, classified.new_price, classified.status
		%s
		ORDER BY classified.domain ASC
		LIMIT $3 OFFSET $4
	`, baseSQL)

	dbRows, err := s.db.Query(ctx, dataSQL, p.SnapshotA, p.SnapshotB, limit, offset)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("store: diff query: %w", err)
	}
	defer dbRows.Close()

	for dbRows.Next() {
		var row models.DiffRow
		if err := dbRows.Scan(&row.DomainID, &row.Domain, &row.OldPrice, &row.NewPrice, &row.Status); err != nil {
			return nil, 0, 0, fmt.Errorf("store: diff scan: %w", err)
		}
		rows = append(rows, row)
	}
	if err := dbRows.Err(); err != nil {
		return nil, 0, 0, fmt.Errorf("store: diff rows: %w", err)
	}

	return rows, total, time.Since(start).Milliseconds(), nil
}

// History returns a domain's price timeline across every snapshot, oldest
// first, classifying each entry against the one before it.
func (s *Store) History(ctx context.Context, domainID int64) (entries []models.HistoryEntry, elapsedMs int64, err error) {
	start := time.Now()

	rows, err := s.db.Query(ctx, `
		SELECT s.id, s.name, s.created_at, l.price_usd
		FROM snapshots s
		LEFT JOIN listings l ON l.snapshot_id = s.id AND l.domain_id = $1
		ORDER BY s.id ASC
	`, domainID)
	if err != nil {
		return nil, 0, fmt.Errorf("store: history query: %w", err)
	}
	defer rows.Close()

	var havePrev bool
	var prevPrice *decimal.Decimal

	for rows.Next() {
		var (
			snapshotID   int64
			snapshotName string
			createdAt    time.Time
			price        *decimal.Decimal
		)
		if err := rows.Scan(&snapshotID, &snapshotName, &createdAt, &price); err != nil {
			return nil, 0, fmt.Errorf("store: history scan: %w", err)
		}

		status := classifyHistoryStatus(havePrev, prevPrice, price)
		entries = append(entries, models.HistoryEntry{
			SnapshotID:   snapshotID,
			SnapshotName: snapshotName,
			CreatedAt:    createdAt,
			PriceUSD:     price,
			Status:       status,
		})

		havePrev = true
		prevPrice = price
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: history rows: %w", err)
	}

	return entries, time.Since(start).Milliseconds(), nil
}

func classifyHistoryStatus(havePrev bool, prev, cur *decimal.Decimal) models.HistoryStatus {
	if !havePrev {
		if cur != nil {
			return models.HistoryNew
		}
		return models.HistoryAbsent
	}
	switch {
	case prev == nil && cur != nil:
		return models.HistoryNew
	case prev != nil && cur == nil:
		return models.HistoryDeleted
	case prev != nil && cur != nil && !prev.Equal(*cur):
		return models.HistoryChanged
	case prev != nil && cur != nil:
		return models.HistoryUnchanged
	default:
		return models.HistoryAbsent
	}
}

// ListSnapshots returns every snapshot, newest first.
func (s *Store) ListSnapshots(ctx context.Context) ([]models.Snapshot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, created_at, row_count FROM snapshots ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []models.Snapshot
	for rows.Next() {
		var snap models.Snapshot
		if err := rows.Scan(&snap.ID, &snap.Name, &snap.CreatedAt, &snap.RowCount); err != nil {
			return nil, fmt.Errorf("store: list snapshots scan: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list snapshots rows: %w", err)
	}
	return snaps, nil
}
