package http

import (
	"encoding/csv"
	"log/slog"
	"net/http"

	"cassa/internal/ledger"
)

// handleExportGroceries streams the filtered grocery list as CSV. The same
// query parameters as the balance overview apply.
func (s *Server) handleExportGroceries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	f, err := parseFilter(r.URL.Query())
	if err != nil {
		http.Error(w, "invalid filter: "+err.Error(), http.StatusBadRequest)
		return
	}

	snap, err := s.getSnapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "CSV export error", "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	names := make(map[string]string, len(snap.Members))
	for _, m := range snap.Members {
		names[m.ID] = m.Name
	}

	items := ledger.FilterGroceries(snap.Groceries, f)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="groceries.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "date", "description", "amount_eur", "purchaser"})
	for _, g := range items {
		purchaser := names[g.PurchaserID]
		if purchaser == "" {
			purchaser = g.PurchaserID
		}
		_ = cw.Write([]string{
			g.ID,
			g.Date.ISO(),
			g.Description,
			centsToDecimal(g.Amount.Cents),
			purchaser,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.ErrorContext(r.Context(), "CSV write error", "error", err)
	}
}
