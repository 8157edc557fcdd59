// Package ledger computes per-member balances for the shared household
// pool. It is a pure transform over an in-memory snapshot: no I/O, no
// shared state, deterministic output for the same input.
//
// Balance policy: equal-share against the pool. Every active member owes an
// equal share of the total grocery cost, and their balance is what they
// deposited minus that share. A member's own purchases do not offset their
// balance directly; purchases only flow into the shared total. The
// alternative "reimbursement" policy (crediting personal purchases back)
// was considered and rejected, see DESIGN.md.
package ledger

import (
	"fmt"

	"cassa/internal/core"
)

// MemberSummary is the derived per-member financial position. It is
// recomputed on every read and never persisted.
type MemberSummary struct {
	MemberID      string
	Name          string
	TotalPurchase core.Money
	TotalDeposit  core.Money
	Share         core.Money // this member's cut of the grocery total
	Balance       core.Money // TotalDeposit - Share; negative = owes the pool
}

// Summary aggregates the whole household for one scope.
type Summary struct {
	TotalGroceries core.Money
	TotalDeposits  core.Money
	AverageExpense core.Money // TotalGroceries / member count, 0 with no members

	// Amounts attributed to member IDs absent from the member set
	// (retired or removed members). Counted in the totals above but not
	// in any member row.
	OrphanedPurchases core.Money
	OrphanedDeposits  core.Money

	Members []MemberSummary // same order as the input member set
}

// RecordError reports one malformed upstream record. Malformed records are
// excluded from the totals rather than silently coerced; the caller decides
// whether a partial result is acceptable.
type RecordError struct {
	Kind string // "grocery" or "deposit"
	ID   string
	Err  error
}

func (e RecordError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.ID, e.Err)
}

func (e RecordError) Unwrap() error {
	return e.Err
}

// Summarize computes the household summary over the given collections,
// scoped by f. The date range applies to groceries and deposits; the amount
// bounds and purchaser criterion apply to groceries only.
//
// Shares are integer cents: the floored per-head share plus one extra cent
// for the first (total mod N) members in input order, so that the shares
// sum exactly to the grocery total. That makes the reconciliation invariant
// hold without rounding drift:
//
//	sum(Balance) == TotalDeposits - TotalGroceries
func Summarize(members []core.Member, groceries []core.GroceryItem, deposits []core.Deposit, f Filter) (Summary, []RecordError) {
	var (
		sum  Summary
		errs []RecordError
	)

	idx := make(map[string]int, len(members))
	sum.Members = make([]MemberSummary, 0, len(members))
	for _, m := range members {
		idx[m.ID] = len(sum.Members)
		sum.Members = append(sum.Members, MemberSummary{MemberID: m.ID, Name: m.Name})
	}

	for _, g := range groceries {
		if err := checkGrocery(g); err != nil {
			errs = append(errs, RecordError{Kind: "grocery", ID: g.ID, Err: err})
			continue
		}
		if !f.Matches(g) {
			continue
		}
		sum.TotalGroceries.Cents += g.Amount.Cents
		if i, ok := idx[g.PurchaserID]; ok {
			sum.Members[i].TotalPurchase.Cents += g.Amount.Cents
		} else {
			sum.OrphanedPurchases.Cents += g.Amount.Cents
		}
	}

	for _, d := range deposits {
		if err := checkDeposit(d); err != nil {
			errs = append(errs, RecordError{Kind: "deposit", ID: d.ID, Err: err})
			continue
		}
		if !f.matchesDate(d.Date) {
			continue
		}
		sum.TotalDeposits.Cents += d.Amount.Cents
		if i, ok := idx[d.MemberID]; ok {
			sum.Members[i].TotalDeposit.Cents += d.Amount.Cents
		} else {
			sum.OrphanedDeposits.Cents += d.Amount.Cents
		}
	}

	n := int64(len(sum.Members))
	if n == 0 {
		// Nothing to split across; average stays zero by definition.
		return sum, errs
	}

	base := sum.TotalGroceries.Cents / n
	rem := sum.TotalGroceries.Cents % n
	sum.AverageExpense = core.Money{Cents: base}
	for i := range sum.Members {
		share := base
		if int64(i) < rem {
			share++
		}
		sum.Members[i].Share = core.Money{Cents: share}
		sum.Members[i].Balance = sum.Members[i].TotalDeposit.Sub(core.Money{Cents: share})
	}

	return sum, errs
}

// checkGrocery validates the fields the aggregation depends on. Amounts may
// legitimately be zero in imported data, but never negative.
func checkGrocery(g core.GroceryItem) error {
	if g.Amount.Cents < 0 {
		return core.ErrInvalidAmount
	}
	if g.Date.IsZero() {
		return core.ErrInvalidDate
	}
	if g.PurchaserID == "" {
		return core.ErrEmptyMemberRef
	}
	return nil
}

func checkDeposit(d core.Deposit) error {
	if d.Amount.Cents < 0 {
		return core.ErrInvalidAmount
	}
	if d.Date.IsZero() {
		return core.ErrInvalidDate
	}
	if d.MemberID == "" {
		return core.ErrEmptyMemberRef
	}
	return nil
}
