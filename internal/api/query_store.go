package api

import (
	"context"

	"hugedomains-crawler/internal/models"
	"hugedomains-crawler/internal/store"
)

// QueryStore is the subset of store.Store the query handlers need, plus
// the catalog/delete operations. A fake backs the handler tests.
type QueryStore interface {
	Browse(ctx context.Context, p store.BrowseParams) (rows []models.BrowseRow, total int64, elapsedMs int64, err error)
	Diff(ctx context.Context, p store.DiffParams) (rows []models.DiffRow, total int64, elapsedMs int64, err error)
	History(ctx context.Context, domainID int64) (entries []models.HistoryEntry, elapsedMs int64, err error)
	ListSnapshots(ctx context.Context) ([]models.Snapshot, error)
	DeleteSnapshot(ctx context.Context, id int64) error
}
