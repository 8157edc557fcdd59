package http

import (
	"log/slog"
	"net/http"

	"cassa/internal/ledger"
	"cassa/internal/metrics"
)

// getSummary returns the reconciled balances for the given filter, cached
// per filter key.
func (s *Server) getSummary(r *http.Request, f ledger.Filter) (summaryResult, error) {
	key := filterKey(f)
	if res, ok := s.summaryCache.Get(key); ok {
		slog.DebugContext(r.Context(), "Summary cache hit", "key", key)
		return res, nil
	}

	snap, err := s.getSnapshot(r.Context())
	if err != nil {
		return summaryResult{}, err
	}

	summary, recErrs := ledger.Summarize(snap.Members, snap.Groceries, snap.Deposits, f)
	metrics.SummariesComputed.Inc()
	for _, re := range recErrs {
		slog.WarnContext(r.Context(), "Malformed ledger record skipped",
			"kind", re.Kind, "entry_id", re.ID, "error", re.Err)
	}

	res := summaryResult{Summary: summary, Errors: recErrs}
	s.summaryCache.Set(key, res)
	return res, nil
}

// handleBalanceOverview renders the per-member balance table partial.
func (s *Server) handleBalanceOverview(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	f, err := parseFilter(r.URL.Query())
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<section id="balance-overview"><div class="error">Filtro non valido</div></section>`))
		return
	}

	res, err := s.getSummary(r, f)
	if err != nil {
		slog.ErrorContext(r.Context(), "Balance overview error", "error", err)
		_, _ = w.Write([]byte(`<section id="balance-overview"><div class="placeholder">Errore caricando i saldi</div></section>`))
		return
	}
	summary := res.Summary

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="balance-overview"><div class="placeholder">Totale spese: ` +
			formatEuros(summary.TotalGroceries.Cents) + `</div></section>`))
		return
	}

	type row struct {
		MemberID  string
		Name      string
		Purchases string
		Deposits  string
		Share     string
		Balance   string
		Negative  bool
	}
	data := struct {
		TotalGroceries string
		TotalDeposits  string
		Average        string
		Orphaned       string
		HasOrphans     bool
		ProblemCount   int
		Rows           []row
	}{
		TotalGroceries: formatEuros(summary.TotalGroceries.Cents),
		TotalDeposits:  formatEuros(summary.TotalDeposits.Cents),
		Average:        formatEuros(summary.AverageExpense.Cents),
		ProblemCount:   len(res.Errors),
	}
	if orphaned := summary.OrphanedPurchases.Cents + summary.OrphanedDeposits.Cents; orphaned != 0 {
		data.Orphaned = formatEuros(orphaned)
		data.HasOrphans = true
	}
	for _, m := range summary.Members {
		data.Rows = append(data.Rows, row{
			MemberID:  m.MemberID,
			Name:      m.Name,
			Purchases: formatEuros(m.TotalPurchase.Cents),
			Deposits:  formatEuros(m.TotalDeposit.Cents),
			Share:     formatEuros(m.Share.Cents),
			Balance:   formatEuros(m.Balance.Cents),
			Negative:  m.Balance.Cents < 0,
		})
	}

	if err := s.templates.ExecuteTemplate(w, "balance_overview.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "balance_overview.html")
		_, _ = w.Write([]byte(`<section id="balance-overview"><div class="placeholder">Errore rendering saldi</div></section>`))
	}
}

// handleMemberAccount renders one member's purchase history partial.
func (s *Server) handleMemberAccount(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	memberID := sanitizeInput(r.URL.Query().Get("member"))
	if memberID == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<section id="member-account"><div class="error">Coinquilino non specificato</div></section>`))
		return
	}

	f, err := parseFilter(r.URL.Query())
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<section id="member-account"><div class="error">Filtro non valido</div></section>`))
		return
	}

	snap, err := s.getSnapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Member account error", "error", err, "member_id", memberID)
		_, _ = w.Write([]byte(`<section id="member-account"><div class="placeholder">Errore caricando il conto</div></section>`))
		return
	}

	name := ""
	for _, m := range snap.Members {
		if m.ID == memberID {
			name = m.Name
			break
		}
	}
	if name == "" {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<section id="member-account"><div class="error">Coinquilino non trovato</div></section>`))
		return
	}

	// Restrict to the date window, then to this member's purchases.
	scoped := ledger.FilterGroceries(snap.Groceries, ledger.Filter{From: f.From, To: f.To})
	items, total := ledger.MemberAccount(scoped, memberID)

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="member-account"><div class="placeholder">Totale: ` +
			formatEuros(total.Cents) + `</div></section>`))
		return
	}

	type row struct {
		Date        string
		Description string
		Amount      string
	}
	data := struct {
		MemberID string
		Name     string
		Total    string
		Count    int
		Rows     []row
	}{
		MemberID: memberID,
		Name:     name,
		Total:    formatEuros(total.Cents),
		Count:    len(items),
	}
	for _, g := range items {
		data.Rows = append(data.Rows, row{
			Date:        g.Date.ISO(),
			Description: g.Description,
			Amount:      formatEuros(g.Amount.Cents),
		})
	}

	if err := s.templates.ExecuteTemplate(w, "member_account.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "member_account.html")
		_, _ = w.Write([]byte(`<section id="member-account"><div class="placeholder">Errore rendering conto</div></section>`))
	}
}
