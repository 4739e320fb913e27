// Package persistence defines the storage contracts for long-term history
// archival. The engine works without an archive; the in-memory rolling store
// is authoritative for anomaly detection either way.
package persistence

import (
	"context"

	"github.com/halfpoint/medianengine/internal/models"
)

// HistoryArchive stores history records durably so tuning passes can look
// further back than the in-memory window.
type HistoryArchive interface {
	// Insert persists one record. Idempotent on invocation ID.
	Insert(ctx context.Context, rec models.HistoryRecord) error

	// Recent returns the newest limit records, oldest-first.
	Recent(ctx context.Context, limit int) ([]models.HistoryRecord, error)

	// Close releases the underlying connection.
	Close() error
}
