// Package models holds the row-shaped types shared between the harvest
// engine and the snapshot store.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Domain is a canonical listing identity. It is created on first sighting
// in any snapshot's ingest, never deleted, never renumbered.
type Domain struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`   // lowercased, trimmed, unique
	Length int    `json:"length"` // character count of the label before the first dot
}

// Snapshot is one completed harvest (or externally imported dump).
type Snapshot struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	RowCount  int64     `json:"row_count"`
}

// ListingRow is a (snapshot, domain) fact. Price is nullable; the upstream
// sometimes lists a domain with no price.
type ListingRow struct {
	SnapshotID int64            `json:"snapshot_id"`
	DomainID   int64            `json:"domain_id"`
	Domain     string           `json:"domain"`
	PriceUSD   *decimal.Decimal `json:"price_usd"`
	Length     int              `json:"length"`
}

// Ordering is one of the four server-side sort modes ("channels") the
// upstream catalog exposes. Running all four against the same length
// partition makes meet-in-the-middle probabilistically tight.
type Ordering string

const (
	PriceAsc  Ordering = "PriceAsc"
	PriceDesc Ordering = "PriceDesc"
	NameAsc   Ordering = "NameAsc"
	NameDesc  Ordering = "NameDesc"
)

// Orderings lists the four channels the coordinator races per length.
var Orderings = []Ordering{PriceAsc, PriceDesc, NameAsc, NameDesc}

// DiffType selects which classification of row the diff query returns.
type DiffType string

const (
	DiffAll     DiffType = "all"
	DiffNew     DiffType = "new"
	DiffDeleted DiffType = "deleted"
	DiffChanged DiffType = "changed"
)

// DiffStatus classifies one row of a snapshot diff.
type DiffStatus string

const (
	StatusNew       DiffStatus = "NEW"
	StatusDeleted   DiffStatus = "DELETED"
	StatusChanged   DiffStatus = "CHANGED"
	StatusUnchanged DiffStatus = "UNCHANGED"
)

// DiffRow is one domain's classification between an old and new snapshot.
type DiffRow struct {
	DomainID int64            `json:"domain_id"`
	Domain   string           `json:"domain"`
	OldPrice *decimal.Decimal `json:"old_price"`
	NewPrice *decimal.Decimal `json:"new_price"`
	Status   DiffStatus       `json:"status"`
}

// HistoryStatus classifies a domain's presence/price transition between
// two consecutive snapshots. ABSENT covers "never listed (yet)".
type HistoryStatus string

const (
	HistoryNew       HistoryStatus = "NEW"
	HistoryDeleted   HistoryStatus = "DELETED"
	HistoryChanged   HistoryStatus = "CHANGED"
	HistoryUnchanged HistoryStatus = "UNCHANGED"
	HistoryAbsent    HistoryStatus = "ABSENT"
)

// HistoryEntry is one snapshot's row in a domain's price timeline.
type HistoryEntry struct {
	SnapshotID   int64            `json:"snapshot_id"`
	SnapshotName string           `json:"snapshot_name"`
	CreatedAt    time.Time        `json:"created_at"`
	PriceUSD     *decimal.Decimal `json:"price_usd"`
	Status       HistoryStatus    `json:"status"`
}

// BrowseRow is one row returned by a paginated snapshot browse.
type BrowseRow struct {
	DomainID int64            `json:"domain_id"`
	Domain   string           `json:"domain"`
	PriceUSD *decimal.Decimal `json:"price_usd"`
	Length   int              `json:"length"`
}

// DomainLength returns the character count of the label before the first
// dot in a lowercased, trimmed domain name.
func DomainLength(name string) int {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return i
		}
	}
	return len(name)
}
