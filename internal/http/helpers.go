package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cassa/internal/core"
	"cassa/internal/ledger"
)

// sanitizeInput trims whitespace and strips control characters except
// tab, newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseDate reads a YYYY-MM-DD form value.
func parseDate(s string) (core.Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return core.Date{}, core.ErrInvalidDate
	}
	return core.NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

// parseFilter builds a ledger filter from query parameters. Unset
// parameters leave the corresponding criterion inactive.
func parseFilter(q url.Values) (ledger.Filter, error) {
	var f ledger.Filter

	if v := strings.TrimSpace(q.Get("from")); v != "" {
		d, err := parseDate(v)
		if err != nil {
			return ledger.Filter{}, fmt.Errorf("invalid from date %q", v)
		}
		f.From = d
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		d, err := parseDate(v)
		if err != nil {
			return ledger.Filter{}, fmt.Errorf("invalid to date %q", v)
		}
		f.To = d
	}
	if v := strings.TrimSpace(q.Get("min")); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return ledger.Filter{}, fmt.Errorf("invalid min amount %q", v)
		}
		f.MinCents = cents
		f.HasMin = true
	}
	if v := strings.TrimSpace(q.Get("max")); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return ledger.Filter{}, fmt.Errorf("invalid max amount %q", v)
		}
		f.MaxCents = cents
		f.HasMax = true
	}
	f.PurchaserID = sanitizeInput(q.Get("purchaser"))

	return f, nil
}

// filterKey produces a canonical cache key for a filter.
func filterKey(f ledger.Filter) string {
	var b strings.Builder
	if !f.From.IsEmpty() {
		b.WriteString(f.From.ISO())
	}
	b.WriteByte('|')
	if !f.To.IsEmpty() {
		b.WriteString(f.To.ISO())
	}
	b.WriteByte('|')
	if f.HasMin {
		b.WriteString(strconv.FormatInt(f.MinCents, 10))
	}
	b.WriteByte('|')
	if f.HasMax {
		b.WriteString(strconv.FormatInt(f.MaxCents, 10))
	}
	b.WriteByte('|')
	b.WriteString(f.PurchaserID)
	return b.String()
}

// formatEuros renders cents as a euro amount with comma decimals.
func formatEuros(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10) + "," + fmt.Sprintf("%02d", cents%100)
	if neg {
		return "-€" + s
	}
	return "€" + s
}

// centsToDecimal renders cents with a dot separator for CSV output.
func centsToDecimal(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	if neg {
		return "-" + s
	}
	return s
}
