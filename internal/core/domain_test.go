package core

import (
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false},
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMemberValidate(t *testing.T) {
	if err := (Member{ID: "m1", Name: "Ada"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Member{ID: "m1", Name: "  "}).Validate(); err == nil {
		t.Fatal("expected error for blank name")
	}
}

func TestMemberActive(t *testing.T) {
	m := Member{ID: "m1", Name: "Ada"}
	if !m.Active() {
		t.Fatal("member without RetiredAt should be active")
	}
	m.RetiredAt = NewDate(2025, 6, 1)
	if m.Active() {
		t.Fatal("retired member should not be active")
	}
}

func TestGroceryItemValidate(t *testing.T) {
	good := GroceryItem{
		ID:          "g1",
		Description: "milk",
		Amount:      Money{Cents: 250},
		Date:        NewDate(2025, 1, 1),
		PurchaserID: "m1",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []GroceryItem{
		{Description: "a", Amount: Money{Cents: 1}, PurchaserID: "m"},                            // zero date
		{Description: "", Amount: Money{Cents: 1}, Date: NewDate(2025, 1, 1), PurchaserID: "m"},  // empty description
		{Description: "a", Amount: Money{Cents: 0}, Date: NewDate(2025, 1, 1), PurchaserID: "m"}, // zero amount
		{Description: "a", Amount: Money{Cents: 1}, Date: NewDate(2025, 1, 1), PurchaserID: ""},  // no purchaser
	}
	for i, g := range bads {
		if err := g.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDepositValidate(t *testing.T) {
	good := Deposit{ID: "d1", Amount: Money{Cents: 100}, Date: NewDate(2025, 1, 1), MemberID: "m1"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Deposit{
		{Amount: Money{Cents: 100}, MemberID: "m1"},                           // zero date
		{Amount: Money{Cents: -5}, Date: NewDate(2025, 1, 1), MemberID: "m1"}, // negative
		{Amount: Money{Cents: 100}, Date: NewDate(2025, 1, 1), MemberID: " "}, // blank member ref
	}
	for i, d := range bads {
		if err := d.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
