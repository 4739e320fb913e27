// Package postgres implements the history archive on PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE history_records (
//	    invocation_id      TEXT PRIMARY KEY,
//	    ts                 TIMESTAMPTZ NOT NULL,
//	    median_value       DOUBLE PRECISION NOT NULL,
//	    strategy_used      TEXT NOT NULL,
//	    calculation_ms     DOUBLE PRECISION NOT NULL,
//	    confidence         DOUBLE PRECISION NOT NULL,
//	    quality            DOUBLE PRECISION NOT NULL,
//	    fallbacks_used     INTEGER NOT NULL,
//	    anomaly_severity   DOUBLE PRECISION NOT NULL,
//	    flagged_for_review BOOLEAN NOT NULL
//	);
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/halfpoint/medianengine/internal/models"
	"github.com/halfpoint/medianengine/internal/persistence"
)

const defaultTimeout = 5 * time.Second

// historyRepo implements persistence.HistoryArchive on PostgreSQL.
type historyRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Connect opens a PostgreSQL-backed history archive.
func Connect(dsn string) (persistence.HistoryArchive, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewHistoryRepo(db, defaultTimeout), nil
}

// NewHistoryRepo wraps an existing connection; used by tests with a mock DB.
func NewHistoryRepo(db *sqlx.DB, timeout time.Duration) persistence.HistoryArchive {
	return &historyRepo{db: db, timeout: timeout}
}

// Insert persists one record, idempotent on invocation ID.
func (r *historyRepo) Insert(ctx context.Context, rec models.HistoryRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO history_records
		(invocation_id, ts, median_value, strategy_used, calculation_ms,
		 confidence, quality, fallbacks_used, anomaly_severity, flagged_for_review)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (invocation_id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		rec.InvocationID, rec.Timestamp, rec.MedianValue, string(rec.StrategyUsed),
		rec.CalculationMs, rec.Confidence, rec.Quality, rec.FallbacksUsed,
		rec.AnomalySeverity, rec.FlaggedForReview)
	if err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}
	return nil
}

// Recent returns the newest limit records, oldest-first.
func (r *historyRepo) Recent(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT invocation_id, ts, median_value, strategy_used, calculation_ms,
		       confidence, quality, fallbacks_used, anomaly_severity, flagged_for_review
		FROM history_records
		ORDER BY ts DESC
		LIMIT $1`

	var records []models.HistoryRecord
	if err := r.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch history records: %w", err)
	}

	// Reverse to oldest-first, matching the in-memory store's ordering.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Close releases the connection pool.
func (r *historyRepo) Close() error {
	return r.db.Close()
}
