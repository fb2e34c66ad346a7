// Package staging implements the append-only CSV sink that a harvest's
// streams write into. It is scratch storage: replayable by re-running the
// harvest, with no durability guarantee beyond OS buffering.
package staging

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/shopspring/decimal"
)

// Writer is a single append-only staging file shared by every stream in
// one harvest. Writes are serialized behind a mutex: streams are many,
// the file handle is one.
type Writer struct {
	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
}

// Header is the fixed column order for the staging file format.
var Header = []string{"domain_name", "price_numeric", "length_numeric"}

// New creates (or truncates) path and writes the CSV header.
func New(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("staging: create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		f.Close()
		return nil, fmt.Errorf("staging: write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, err
	}
	return &Writer{file: f, w: w}, nil
}

// Append writes one row. Price uses "." as the decimal separator with no
// currency symbol or thousands separator; a nil price is written as the
// empty string, which the ingest reader treats as null.
func (sw *Writer) Append(name string, price *decimal.Decimal, length int) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	priceStr := ""
	if price != nil {
		priceStr = price.StringFixed(2)
	}

	if err := sw.w.Write([]string{name, priceStr, fmt.Sprint(length)}); err != nil {
		return fmt.Errorf("staging: append row: %w", err)
	}
	sw.w.Flush()
	return sw.w.Error()
}

// Close flushes and closes the underlying file.
func (sw *Writer) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.w.Flush()
	if err := sw.w.Error(); err != nil {
		sw.file.Close()
		return err
	}
	return sw.file.Close()
}

// Remove deletes the staging file. It does not close an open Writer first
// — call Close before Remove.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
