// Package services orchestrates ledger writes across storage, metrics and
// the event queue. Entries are saved locally first; publishing the change
// event is best effort and never fails the request.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"cassa/internal/amqp"
	"cassa/internal/core"
	"cassa/internal/metrics"
	"cassa/internal/storage"
)

// Store is the persistence surface the service needs.
type Store interface {
	AddMember(ctx context.Context, m core.Member) error
	ListMembers(ctx context.Context, activeOnly bool) ([]core.Member, error)
	RetireMember(ctx context.Context, id string, when core.Date) error

	AddGrocery(ctx context.Context, g core.GroceryItem) error
	ListGroceries(ctx context.Context) ([]core.GroceryItem, error)
	SoftDeleteGrocery(ctx context.Context, id string) error

	AddDeposit(ctx context.Context, d core.Deposit) error
	ListDeposits(ctx context.Context) ([]core.Deposit, error)
	SoftDeleteDeposit(ctx context.Context, id string) error

	Close() error
}

// EventPublisher pushes entry-change events to the export worker.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, kind, action, id string) error
	Close() error
}

type LedgerService struct {
	store  Store
	events EventPublisher // nil disables the archive pipeline
}

func NewLedgerService(store Store, events EventPublisher) *LedgerService {
	return &LedgerService{store: store, events: events}
}

// Snapshot fetches members, groceries and deposits concurrently and returns
// an immutable view for the balance computation. Fetching is the only I/O
// stage; the computation itself is pure.
func (s *LedgerService) Snapshot(ctx context.Context) (core.Snapshot, error) {
	var snap core.Snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		members, err := s.store.ListMembers(gctx, true)
		if err != nil {
			return fmt.Errorf("list members: %w", err)
		}
		snap.Members = members
		return nil
	})
	g.Go(func() error {
		groceries, err := s.store.ListGroceries(gctx)
		if err != nil {
			return fmt.Errorf("list groceries: %w", err)
		}
		snap.Groceries = groceries
		return nil
	})
	g.Go(func() error {
		deposits, err := s.store.ListDeposits(gctx)
		if err != nil {
			return fmt.Errorf("list deposits: %w", err)
		}
		snap.Deposits = deposits
		return nil
	})

	if err := g.Wait(); err != nil {
		return core.Snapshot{}, err
	}
	return snap, nil
}

// AddGrocery validates and saves a purchase, assigning an ID when the
// caller left it empty.
func (s *LedgerService) AddGrocery(ctx context.Context, g core.GroceryItem) (string, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if err := g.Validate(); err != nil {
		return "", fmt.Errorf("validate grocery: %w", err)
	}

	if err := s.store.AddGrocery(ctx, g); err != nil {
		return "", fmt.Errorf("save grocery: %w", err)
	}
	metrics.EntriesCreated.WithLabelValues(storage.KindGrocery).Inc()

	s.publish(ctx, storage.KindGrocery, amqp.ActionCreated, g.ID)
	return g.ID, nil
}

// DeleteGrocery soft-deletes a purchase and queues the archive removal.
func (s *LedgerService) DeleteGrocery(ctx context.Context, id string) error {
	if err := s.store.SoftDeleteGrocery(ctx, id); err != nil {
		return fmt.Errorf("delete grocery: %w", err)
	}
	metrics.EntriesDeleted.WithLabelValues(storage.KindGrocery).Inc()

	s.publish(ctx, storage.KindGrocery, amqp.ActionDeleted, id)
	return nil
}

// AddDeposit validates and saves a contribution.
func (s *LedgerService) AddDeposit(ctx context.Context, d core.Deposit) (string, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("validate deposit: %w", err)
	}

	if err := s.store.AddDeposit(ctx, d); err != nil {
		return "", fmt.Errorf("save deposit: %w", err)
	}
	metrics.EntriesCreated.WithLabelValues(storage.KindDeposit).Inc()

	s.publish(ctx, storage.KindDeposit, amqp.ActionCreated, d.ID)
	return d.ID, nil
}

// DeleteDeposit soft-deletes a contribution and queues the archive removal.
func (s *LedgerService) DeleteDeposit(ctx context.Context, id string) error {
	if err := s.store.SoftDeleteDeposit(ctx, id); err != nil {
		return fmt.Errorf("delete deposit: %w", err)
	}
	metrics.EntriesDeleted.WithLabelValues(storage.KindDeposit).Inc()

	s.publish(ctx, storage.KindDeposit, amqp.ActionDeleted, id)
	return nil
}

// AddMember creates a household member.
func (s *LedgerService) AddMember(ctx context.Context, m core.Member) (string, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if err := m.Validate(); err != nil {
		return "", fmt.Errorf("validate member: %w", err)
	}
	if err := s.store.AddMember(ctx, m); err != nil {
		return "", fmt.Errorf("save member: %w", err)
	}
	return m.ID, nil
}

// RetireMember marks a member retired as of the given date. Their entries
// stay valid and show up as orphaned in future summaries.
func (s *LedgerService) RetireMember(ctx context.Context, id string, when core.Date) error {
	if when.IsZero() {
		return core.ErrInvalidDate
	}
	if err := s.store.RetireMember(ctx, id, when); err != nil {
		return fmt.Errorf("retire member: %w", err)
	}
	return nil
}

func (s *LedgerService) publish(ctx context.Context, kind, action, id string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, kind, action, id); err != nil {
		// The entry is already saved locally; the worker's catch-up pass
		// will pick it up from its pending sync state.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"error", err, "kind", kind, "action", action, "entry_id", id)
	}
}

// Close releases storage and queue connections.
func (s *LedgerService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}
	return nil
}
