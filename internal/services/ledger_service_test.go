package services

import (
	"context"
	"errors"
	"testing"

	"cassa/internal/core"
)

// fakeStore records calls and serves canned data.
type fakeStore struct {
	members   []core.Member
	groceries []core.GroceryItem
	deposits  []core.Deposit

	failLists bool
	deleted   []string
}

func (f *fakeStore) AddMember(ctx context.Context, m core.Member) error {
	f.members = append(f.members, m)
	return nil
}

func (f *fakeStore) ListMembers(ctx context.Context, activeOnly bool) ([]core.Member, error) {
	if f.failLists {
		return nil, errors.New("boom")
	}
	return f.members, nil
}

func (f *fakeStore) RetireMember(ctx context.Context, id string, when core.Date) error {
	for i := range f.members {
		if f.members[i].ID == id {
			f.members[i].RetiredAt = when
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeStore) AddGrocery(ctx context.Context, g core.GroceryItem) error {
	f.groceries = append(f.groceries, g)
	return nil
}

func (f *fakeStore) ListGroceries(ctx context.Context) ([]core.GroceryItem, error) {
	if f.failLists {
		return nil, errors.New("boom")
	}
	return f.groceries, nil
}

func (f *fakeStore) SoftDeleteGrocery(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, "grocery:"+id)
	return nil
}

func (f *fakeStore) AddDeposit(ctx context.Context, d core.Deposit) error {
	f.deposits = append(f.deposits, d)
	return nil
}

func (f *fakeStore) ListDeposits(ctx context.Context) ([]core.Deposit, error) {
	if f.failLists {
		return nil, errors.New("boom")
	}
	return f.deposits, nil
}

func (f *fakeStore) SoftDeleteDeposit(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, "deposit:"+id)
	return nil
}

func (f *fakeStore) Close() error { return nil }

// fakePublisher records published events, optionally failing.
type fakePublisher struct {
	events []string
	fail   bool
}

func (p *fakePublisher) PublishLedgerEvent(ctx context.Context, kind, action, id string) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.events = append(p.events, kind+":"+action+":"+id)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func TestAddGroceryAssignsIDAndPublishes(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	svc := NewLedgerService(store, pub)

	g := core.GroceryItem{
		Description: "milk",
		Amount:      core.Money{Cents: 250},
		Date:        core.NewDate(2025, 3, 1),
		PurchaserID: "m1",
	}
	id, err := svc.AddGrocery(context.Background(), g)
	if err != nil {
		t.Fatalf("add grocery: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated ID")
	}
	if len(store.groceries) != 1 || store.groceries[0].ID != id {
		t.Fatalf("grocery not saved with ID: %+v", store.groceries)
	}
	if len(pub.events) != 1 || pub.events[0] != "grocery:created:"+id {
		t.Fatalf("events = %v", pub.events)
	}
}

func TestAddGroceryRejectsInvalid(t *testing.T) {
	store := &fakeStore{}
	svc := NewLedgerService(store, nil)

	_, err := svc.AddGrocery(context.Background(), core.GroceryItem{Description: "no amount"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(store.groceries) != 0 {
		t.Fatal("invalid grocery must not be saved")
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{fail: true}
	svc := NewLedgerService(store, pub)

	d := core.Deposit{Amount: core.Money{Cents: 5000}, Date: core.NewDate(2025, 3, 1), MemberID: "m1"}
	if _, err := svc.AddDeposit(context.Background(), d); err != nil {
		t.Fatalf("publish failure must not fail the write: %v", err)
	}
	if len(store.deposits) != 1 {
		t.Fatal("deposit not saved")
	}
}

func TestDeleteGrocery(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	svc := NewLedgerService(store, pub)

	if err := svc.DeleteGrocery(context.Background(), "g9"); err != nil {
		t.Fatalf("delete grocery: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "grocery:g9" {
		t.Fatalf("deleted = %v", store.deleted)
	}
	if len(pub.events) != 1 || pub.events[0] != "grocery:deleted:g9" {
		t.Fatalf("events = %v", pub.events)
	}
}

func TestSnapshot(t *testing.T) {
	store := &fakeStore{
		members:   []core.Member{{ID: "m1", Name: "Ada"}},
		groceries: []core.GroceryItem{{ID: "g1"}},
		deposits:  []core.Deposit{{ID: "d1"}, {ID: "d2"}},
	}
	svc := NewLedgerService(store, nil)

	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Members) != 1 || len(snap.Groceries) != 1 || len(snap.Deposits) != 2 {
		t.Fatalf("snapshot mismatch: %+v", snap)
	}
}

func TestSnapshotPropagatesFetchErrors(t *testing.T) {
	svc := NewLedgerService(&fakeStore{failLists: true}, nil)
	if _, err := svc.Snapshot(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
}

func TestRetireMemberRequiresDate(t *testing.T) {
	svc := NewLedgerService(&fakeStore{members: []core.Member{{ID: "m1", Name: "Ada"}}}, nil)
	if err := svc.RetireMember(context.Background(), "m1", core.Date{}); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("got %v, want ErrInvalidDate", err)
	}
	if err := svc.RetireMember(context.Background(), "m1", core.NewDate(2025, 6, 1)); err != nil {
		t.Fatalf("retire: %v", err)
	}
}
