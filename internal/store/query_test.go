package store

import (
	"testing"

	"github.com/shopspring/decimal"

	"hugedomains-crawler/internal/models"
)

func TestResolvedSortFallsBackOnUnknownValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		col, dir string
		wantCol  string
		wantDir  string
	}{
		{"valid column and dir", "price_usd", "desc", "price_usd", "desc"},
		{"unknown column falls back to domain", "bogus", "asc", "domain", "asc"},
		{"unknown direction falls back to asc", "length", "sideways", "length", "asc"},
		{"empty falls back to defaults", "", "", "domain", "asc"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := BrowseParams{SortColumn: tc.col, SortDir: tc.dir}
			col, dir := p.resolvedSort()
			if col != tc.wantCol || dir != tc.wantDir {
				t.Fatalf("resolvedSort() = (%q, %q), want (%q, %q)", col, dir, tc.wantCol, tc.wantDir)
			}
		})
	}
}

func TestWhereClauseSharedBetweenCountAndData(t *testing.T) {
	t.Parallel()

	minPrice := decimal.NewFromInt(10)
	p := BrowseParams{
		SnapshotID: 7,
		Query:      "foo",
		Mode:       SearchContains,
		MinPrice:   &minPrice,
	}

	where, args := p.whereClause()
	if len(args) != 3 {
		t.Fatalf("expected 3 args (snapshot_id, query, min price), got %d: %v", len(args), args)
	}
	if args[0] != int64(7) {
		t.Fatalf("first arg should be snapshot id, got %v", args[0])
	}
	if where == "" {
		t.Fatal("where clause should not be empty")
	}
}

func TestWhereClausePrefixModeAnchorsQuery(t *testing.T) {
	t.Parallel()

	p := BrowseParams{SnapshotID: 1, Query: "foo", Mode: SearchPrefix}
	_, args := p.whereClause()
	if args[1] != "foo%" {
		t.Fatalf("prefix mode should anchor with a trailing %%, got %v", args[1])
	}
}

func TestWhereClauseExactModeFoldsCase(t *testing.T) {
	t.Parallel()

	p := BrowseParams{SnapshotID: 1, Query: "FOO.com", Mode: SearchExact}
	where, args := p.whereClause()
	if args[1] != "FOO.com" {
		t.Fatalf("exact mode should pass the query through unmodified, got %v", args[1])
	}
	if where == "" {
		t.Fatal("where clause should not be empty")
	}
}

func TestClassifyHistoryStatusFirstSnapshot(t *testing.T) {
	t.Parallel()

	price := decimal.NewFromInt(5)
	if got := classifyHistoryStatus(false, nil, &price); got != models.HistoryNew {
		t.Fatalf("first snapshot with a price should be NEW, got %s", got)
	}
	if got := classifyHistoryStatus(false, nil, nil); got != models.HistoryAbsent {
		t.Fatalf("first snapshot with no price should be ABSENT, got %s", got)
	}
}

func TestClassifyHistoryStatusTransitions(t *testing.T) {
	t.Parallel()

	five := decimal.NewFromInt(5)
	ten := decimal.NewFromInt(10)

	cases := []struct {
		name string
		prev *decimal.Decimal
		cur  *decimal.Decimal
		want models.HistoryStatus
	}{
		{"null to priced is NEW", nil, &five, models.HistoryNew},
		{"priced to null is DELETED", &five, nil, models.HistoryDeleted},
		{"price change is CHANGED", &five, &ten, models.HistoryChanged},
		{"same price is UNCHANGED", &five, &five, models.HistoryUnchanged},
		{"null to null is ABSENT", nil, nil, models.HistoryAbsent},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := classifyHistoryStatus(true, tc.prev, tc.cur); got != tc.want {
				t.Fatalf("classifyHistoryStatus = %s, want %s", got, tc.want)
			}
		})
	}
}
