package ledger

import "cassa/internal/core"

// Filter selects grocery entries by date range, amount bounds and
// purchaser. Unset criteria are not applied; set criteria compose as AND.
// Bounds are inclusive. An inverted date range (From after To) matches
// nothing; it is not an error.
type Filter struct {
	From core.Date // zero = unbounded
	To   core.Date // zero = unbounded

	MinCents int64
	HasMin   bool
	MaxCents int64
	HasMax   bool

	PurchaserID string // empty = any purchaser
}

// IsZero reports whether no criterion is set.
func (f Filter) IsZero() bool {
	return f.From.IsZero() && f.To.IsZero() && !f.HasMin && !f.HasMax && f.PurchaserID == ""
}

func (f Filter) matchesDate(d core.Date) bool {
	if !f.From.IsZero() && d.Before(f.From.Time) {
		return false
	}
	if !f.To.IsZero() && d.After(f.To.Time) {
		return false
	}
	return true
}

// Matches reports whether the entry satisfies every set criterion.
func (f Filter) Matches(g core.GroceryItem) bool {
	if !f.matchesDate(g.Date) {
		return false
	}
	if f.HasMin && g.Amount.Cents < f.MinCents {
		return false
	}
	if f.HasMax && g.Amount.Cents > f.MaxCents {
		return false
	}
	if f.PurchaserID != "" && g.PurchaserID != f.PurchaserID {
		return false
	}
	return true
}

// FilterGroceries returns the subset of items matching f, preserving input
// order. A linear scan is fine at household data volumes.
func FilterGroceries(items []core.GroceryItem, f Filter) []core.GroceryItem {
	if f.IsZero() {
		return items
	}
	out := make([]core.GroceryItem, 0, len(items))
	for _, g := range items {
		if f.Matches(g) {
			out = append(out, g)
		}
	}
	return out
}

// MemberAccount returns a single member's purchases and their total: the
// individual-account view, a fixed-purchaser specialization of the filter.
func MemberAccount(items []core.GroceryItem, memberID string) ([]core.GroceryItem, core.Money) {
	own := FilterGroceries(items, Filter{PurchaserID: memberID})
	var total core.Money
	for _, g := range own {
		total.Cents += g.Amount.Cents
	}
	return own, total
}
