package staging

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func TestWriterAppendAndHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot_1.csv")

	w, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	price := decimal.NewFromFloat(12.5)
	if err := w.Append("foo.com", &price, 3); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Append("bar.io", nil, 3); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("got %d records, want 3 (header + 2 rows)", len(records))
	}
	if records[0][0] != "domain_name" || records[0][1] != "price_numeric" || records[0][2] != "length_numeric" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if records[1][0] != "foo.com" || records[1][1] != "12.50" {
		t.Fatalf("unexpected row 1: %v", records[1])
	}
	if records[2][0] != "bar.io" || records[2][1] != "" {
		t.Fatalf("nil price should write empty string, got: %v", records[2])
	}
}

func TestRemoveMissingIsNotError(t *testing.T) {
	if err := Remove(filepath.Join(t.TempDir(), "does-not-exist.csv")); err != nil {
		t.Fatalf("Remove of missing file should be a no-op, got: %v", err)
	}
}
