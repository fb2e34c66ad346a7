package store

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempStaging(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stage.csv")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestReadStagingFileParsesRows(t *testing.T) {
	t.Parallel()

	path := writeTempStaging(t, "domain_name,price_numeric,length_numeric\nfoo.com,12.50,3\nbar.io,,3\n")

	rows, err := readStagingFile(path)
	if err != nil {
		t.Fatalf("readStagingFile: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].name != "foo.com" || rows[0].price == nil || rows[0].price.String() != "12.5" {
		t.Fatalf("unexpected row 0: %+v", rows[0])
	}
	if rows[1].name != "bar.io" || rows[1].price != nil {
		t.Fatalf("empty price should parse as nil, got: %+v", rows[1])
	}
}

func TestReadStagingFileSkipsMalformedRows(t *testing.T) {
	t.Parallel()

	path := writeTempStaging(t, "domain_name,price_numeric,length_numeric\n,1.00,3\nok.com,1.00,notanumber\ngood.com,2.00,4\n")

	rows, err := readStagingFile(path)
	if err != nil {
		t.Fatalf("readStagingFile: %v", err)
	}
	if len(rows) != 1 || rows[0].name != "good.com" {
		t.Fatalf("expected only the well-formed row to survive, got %+v", rows)
	}
}

func TestReadStagingFileEmptyIsNotError(t *testing.T) {
	t.Parallel()

	path := writeTempStaging(t, "domain_name,price_numeric,length_numeric\n")
	rows, err := readStagingFile(path)
	if err != nil {
		t.Fatalf("readStagingFile: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected zero rows, got %d", len(rows))
	}
}
