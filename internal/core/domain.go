package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Date is a calendar day; the time-of-day component is always midnight UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Member is a household participant. Members are never hard-deleted:
	// retiring a member keeps their historical entries valid.
	Member struct {
		ID        string
		Name      string
		Email     string // optional contact info
		Manager   bool
		RetiredAt Date // zero while the member is active
	}

	// GroceryItem is a single expense entry attributed to one member.
	GroceryItem struct {
		ID          string
		Description string
		Amount      Money
		Date        Date
		PurchaserID string
	}

	// Deposit is a contribution of funds into the shared pool.
	Deposit struct {
		ID       string
		Amount   Money
		Date     Date
		MemberID string
	}

	// Snapshot is an immutable view of the full ledger for one household,
	// fetched in one pass and handed to the balance computation.
	Snapshot struct {
		Members   []Member
		Groceries []GroceryItem
		Deposits  []Deposit
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyName        = errors.New("empty member name")
	ErrEmptyMemberRef   = errors.New("empty member reference")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// IsEmpty reports whether the date is unset (used for optional bounds).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// ISO returns the date in YYYY-MM-DD form.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// Active reports whether the member has not been retired.
func (m Member) Active() bool {
	return m.RetiredAt.IsZero()
}

func (m Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	if len(m.Name) > 100 {
		return errors.New("member name too long (max 100 characters)")
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (g GroceryItem) Validate() error {
	if err := g.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(g.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(g.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := g.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(g.PurchaserID) == "" {
		return ErrEmptyMemberRef
	}
	return nil
}

func (d Deposit) Validate() error {
	if err := d.Date.Validate(); err != nil {
		return err
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(d.MemberID) == "" {
		return ErrEmptyMemberRef
	}
	return nil
}
