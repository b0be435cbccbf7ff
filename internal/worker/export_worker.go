package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"nestegg/internal/aggregate"
	"nestegg/internal/amqp"
	"nestegg/internal/ports"
	"nestegg/internal/sheets"
)

// ExportStore is the storage the worker reads totals from and records
// exports in.
type ExportStore interface {
	ports.OverviewReader
	ports.ExportTracker
}

// ExportWorker appends net worth snapshots to a spreadsheet whenever a
// user's balances change.
type ExportWorker struct {
	store         ExportStore
	exporter      sheets.NetWorthExporter
	batchSize     int
	lookbackYears int
	concurrency   int
	now           func() time.Time
}

func NewExportWorker(store ExportStore, exporter sheets.NetWorthExporter, batchSize, lookbackYears int) *ExportWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	if lookbackYears < 1 {
		lookbackYears = 3
	}
	return &ExportWorker{
		store:         store,
		exporter:      exporter,
		batchSize:     batchSize,
		lookbackYears: lookbackYears,
		concurrency:   4,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// HandleBalanceRecorded processes a single balance.recorded message from AMQP.
func (w *ExportWorker) HandleBalanceRecorded(ctx context.Context, msg *amqp.BalanceRecordedMessage) error {
	slog.InfoContext(ctx, "Processing balance recorded message",
		"user_id", msg.UserID,
		"account_id", msg.AccountID,
		"as_of", msg.AsOf.Format(time.RFC3339))

	if err := w.ExportUser(ctx, msg.UserID); err != nil {
		return fmt.Errorf("export net worth: %w", err)
	}
	return nil
}

// ExportUser recomputes userID's totals, appends them and marks the user
// as exported.
func (w *ExportWorker) ExportUser(ctx context.Context, userID string) error {
	now := w.now()
	accounts, err := w.store.Overview(ctx, userID, now.AddDate(-w.lookbackYears, 0, 0))
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}

	row := sheets.NewNetWorthRow(userID, now, aggregate.ComputeTotals(accounts))
	ref, err := w.exporter.AppendNetWorth(ctx, row)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.store.MarkExported(ctx, userID, now); err != nil {
		// The row is already written; the next pass appends a duplicate.
		slog.ErrorContext(ctx, "Failed to mark user as exported", "user_id", userID, "error", err)
	}

	slog.InfoContext(ctx, "Successfully exported net worth",
		"user_id", userID,
		"sheets_ref", ref,
		"accounts", len(accounts),
		"net_worth", row.NetWorth.StringFixed(2))
	return nil
}

// ProcessPendingExports exports users whose balances changed since their
// last export. It is the backup for lost AMQP messages.
func (w *ExportWorker) ProcessPendingExports(ctx context.Context) error {
	_, _, err := w.exportPending(ctx, w.batchSize)
	return err
}

// StartupExportCheck drains a larger batch of pending users at start-up to
// recover from worker downtime.
func (w *ExportWorker) StartupExportCheck(ctx context.Context) error {
	exported, failed, err := w.exportPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup export check: %w", err)
	}
	if exported+failed == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup export completed",
		"total", exported+failed,
		"exported", exported,
		"errors", failed)
	return nil
}

// exportPending exports up to limit users concurrently. Failures of single
// users are logged and counted, not returned.
func (w *ExportWorker) exportPending(ctx context.Context, limit int) (exported, failed int, err error) {
	users, err := w.store.PendingExports(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending exports: %w", err)
	}
	if len(users) == 0 {
		return 0, 0, nil
	}
	slog.InfoContext(ctx, "Processing pending exports", "count", len(users))

	var ok, bad atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, userID := range users {
		g.Go(func() error {
			if err := w.ExportUser(gctx, userID); err != nil {
				slog.ErrorContext(gctx, "Failed to export user", "user_id", userID, "error", err)
				bad.Add(1)
				return nil
			}
			ok.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(ok.Load()), int(bad.Load()), nil
}
