// Package worker holds background jobs that run beside the API server.
package worker

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/ignite/leadpage/internal/pkg/logger"
)

const (
	// DefaultCleanupInterval is how often the cleanup cycle runs.
	DefaultCleanupInterval = 1 * time.Hour

	// cleanupBatchSize limits each DELETE to avoid long table locks.
	cleanupBatchSize = 10000
)

// SelectionCleanupWorker purges the contact selection log. Rows older than
// the retention window go, as do rows of pages that were deleted.
type SelectionCleanupWorker struct {
	db         *sql.DB
	retention  time.Duration
	interval   time.Duration
	batchPause time.Duration
}

func NewSelectionCleanupWorker(db *sql.DB, retention time.Duration) *SelectionCleanupWorker {
	return &SelectionCleanupWorker{
		db:         db,
		retention:  retention,
		interval:   DefaultCleanupInterval,
		batchPause: 100 * time.Millisecond,
	}
}

// Start runs one cycle immediately, then one per interval until ctx is
// cancelled. It blocks.
func (w *SelectionCleanupWorker) Start(ctx context.Context) {
	logger.Info("selection cleanup started", "interval", w.interval.String(), "retention", w.retention.String())

	w.RunOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("selection cleanup stopping")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs one cleanup cycle and returns the number of rows removed.
func (w *SelectionCleanupWorker) RunOnce(ctx context.Context) int64 {
	start := time.Now()
	cutoff := start.Add(-w.retention).UTC()

	expired := w.batchDelete(ctx, "expired", `
		DELETE FROM contact_selections
		WHERE id IN (
			SELECT id FROM contact_selections
			WHERE selected_at < $2
			LIMIT $1
		)`, cutoff)

	orphaned := w.batchDelete(ctx, "orphaned", `
		DELETE FROM contact_selections
		WHERE id IN (
			SELECT s.id FROM contact_selections s
			LEFT JOIN landing_pages p ON p.id = s.page_id
			WHERE p.id IS NULL
			LIMIT $1
		)`)

	total := expired + orphaned
	if total > 0 {
		logger.Info("selection cleanup cycle completed",
			"expired", expired,
			"orphaned", orphaned,
			"duration", time.Since(start).Round(time.Millisecond).String())
	}
	return total
}

// batchDelete runs query with cleanupBatchSize as $1 until no rows are
// affected. A missing table ends the loop quietly so the worker survives
// running ahead of migrations.
func (w *SelectionCleanupWorker) batchDelete(ctx context.Context, kind, query string, args ...interface{}) int64 {
	var total int64
	params := append([]interface{}{cleanupBatchSize}, args...)

	for {
		if ctx.Err() != nil {
			return total
		}

		queryCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		res, err := w.db.ExecContext(queryCtx, query, params...)
		cancel()
		if err != nil {
			if isTableNotExistsError(err) {
				if total == 0 {
					logger.Warn("selection cleanup skipped, table missing", "kind", kind)
				}
				return total
			}
			logger.Error("selection cleanup failed", "kind", kind, "error", err.Error())
			return total
		}

		affected, _ := res.RowsAffected()
		if affected == 0 {
			return total
		}
		total += affected

		select {
		case <-ctx.Done():
			return total
		case <-time.After(w.batchPause):
		}
	}
}

func isTableNotExistsError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")
}
