// Package worker mirrors ledger entries to the external archive. It
// consumes change events from the queue and, as a backstop for lost
// messages, periodically sweeps entries still marked pending.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"cassa/internal/amqp"
	"cassa/internal/core"
	"cassa/internal/metrics"
	"cassa/internal/sheets"
	"cassa/internal/storage"
)

// Store is the persistence surface the worker needs.
type Store interface {
	GetGrocery(ctx context.Context, id string) (core.GroceryItem, error)
	GetDeposit(ctx context.Context, id string) (core.Deposit, error)
	ListPendingSync(ctx context.Context, limit int) ([]storage.PendingEntry, error)
	MarkSynced(ctx context.Context, kind, id string) error
	MarkSyncError(ctx context.Context, kind, id string) error
}

type SyncWorker struct {
	store     Store
	archive   sheets.ArchiveWriter
	remover   sheets.ArchiveRemover
	batchSize int
}

func NewSyncWorker(store Store, archive sheets.ArchiveWriter, remover sheets.ArchiveRemover, batchSize int) *SyncWorker {
	return &SyncWorker{
		store:     store,
		archive:   archive,
		remover:   remover,
		batchSize: batchSize,
	}
}

// HandleEvent processes one change event from the queue.
func (w *SyncWorker) HandleEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"kind", msg.Kind,
		"action", msg.Action,
		"entry_id", msg.ID)

	var err error
	switch msg.Action {
	case amqp.ActionCreated:
		err = w.syncEntry(ctx, msg.Kind, msg.ID)
	case amqp.ActionDeleted:
		err = w.removeEntry(ctx, msg.Kind, msg.ID)
	default:
		return fmt.Errorf("unknown action %q", msg.Action)
	}

	if err != nil {
		metrics.ArchiveSyncs.WithLabelValues("error").Inc()
		if markErr := w.store.MarkSyncError(ctx, msg.Kind, msg.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error",
				"kind", msg.Kind, "entry_id", msg.ID, "error", markErr)
		}
		return err
	}

	metrics.ArchiveSyncs.WithLabelValues("ok").Inc()
	return w.store.MarkSynced(ctx, msg.Kind, msg.ID)
}

func (w *SyncWorker) syncEntry(ctx context.Context, kind, id string) error {
	switch kind {
	case storage.KindGrocery:
		g, err := w.store.GetGrocery(ctx, id)
		if err != nil {
			return fmt.Errorf("load grocery: %w", err)
		}
		if err := w.archive.AppendGrocery(ctx, g); err != nil {
			return fmt.Errorf("archive grocery: %w", err)
		}
	case storage.KindDeposit:
		d, err := w.store.GetDeposit(ctx, id)
		if err != nil {
			return fmt.Errorf("load deposit: %w", err)
		}
		if err := w.archive.AppendDeposit(ctx, d); err != nil {
			return fmt.Errorf("archive deposit: %w", err)
		}
	default:
		return fmt.Errorf("unknown entry kind %q", kind)
	}
	return nil
}

func (w *SyncWorker) removeEntry(ctx context.Context, kind, id string) error {
	if w.remover == nil {
		slog.WarnContext(ctx, "No archive remover configured, skipping removal",
			"kind", kind, "entry_id", id)
		return nil
	}
	if err := w.remover.RemoveEntry(ctx, id); err != nil {
		return fmt.Errorf("remove archive entry: %w", err)
	}
	return nil
}

// ProcessPending sweeps entries still pending, oldest first. Entries that
// fail stay flagged for the next pass.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.ListPendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending entries: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending entries", "count", len(pending))

	for _, p := range pending {
		var err error
		if p.Deleted {
			err = w.removeEntry(ctx, p.Kind, p.ID)
		} else {
			err = w.syncEntry(ctx, p.Kind, p.ID)
		}

		if err != nil {
			metrics.ArchiveSyncs.WithLabelValues("error").Inc()
			slog.ErrorContext(ctx, "Failed to sync pending entry",
				"kind", p.Kind, "entry_id", p.ID, "error", err)
			if markErr := w.store.MarkSyncError(ctx, p.Kind, p.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error",
					"kind", p.Kind, "entry_id", p.ID, "error", markErr)
			}
			continue
		}

		metrics.ArchiveSyncs.WithLabelValues("ok").Inc()
		if err := w.store.MarkSynced(ctx, p.Kind, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark entry synced",
				"kind", p.Kind, "entry_id", p.ID, "error", err)
		}
	}

	return nil
}

// StartupSyncCheck drains a larger backlog once at worker start, covering
// events missed while the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.store.ListPendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending entries for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending entries found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending entries on startup", "count", len(pending))
	return w.ProcessPending(ctx)
}
