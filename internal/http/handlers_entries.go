package http

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cassa/internal/core"
	"cassa/internal/storage"
)

func (s *Server) handleCreateGrocery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "url", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Formato richiesta non valido</div>`))
		return
	}

	desc := sanitizeInput(r.Form.Get("description"))
	amountStr := strings.TrimSpace(r.Form.Get("amount"))
	purchaser := sanitizeInput(r.Form.Get("purchaser"))

	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Importo non valido</div>`))
		return
	}

	date := todayDate()
	if v := strings.TrimSpace(r.Form.Get("date")); v != "" {
		d, err := parseDate(v)
		if err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`<div class="error">Data non valida</div>`))
			return
		}
		date = d
	}

	item := core.GroceryItem{
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Date:        date,
		PurchaserID: purchaser,
	}

	id, err := s.ledger.AddGrocery(r.Context(), item)
	if err != nil {
		if isValidationError(err) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`<div class="error">Dati non validi: ` + template.HTMLEscapeString(err.Error()) + `</div>`))
			return
		}
		slog.ErrorContext(r.Context(), "Grocery create error", "error", err, "description", desc)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Errore nel salvataggio</div>`))
		return
	}

	s.invalidate()
	w.Header().Set("HX-Trigger", `{"ledger:changed": {}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Spesa registrata (#` + template.HTMLEscapeString(id) + `): ` +
		template.HTMLEscapeString(desc) + ` — €` + template.HTMLEscapeString(amountStr) + `</div>`))
}

func (s *Server) handleDeleteGrocery(w http.ResponseWriter, r *http.Request) {
	s.handleDeleteEntry(w, r, "Spesa rimossa", s.ledger.DeleteGrocery)
}

func (s *Server) handleCreateDeposit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "url", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Formato richiesta non valido</div>`))
		return
	}

	amountStr := strings.TrimSpace(r.Form.Get("amount"))
	member := sanitizeInput(r.Form.Get("member"))

	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Importo non valido</div>`))
		return
	}

	date := todayDate()
	if v := strings.TrimSpace(r.Form.Get("date")); v != "" {
		d, err := parseDate(v)
		if err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`<div class="error">Data non valida</div>`))
			return
		}
		date = d
	}

	dep := core.Deposit{
		Amount:   core.Money{Cents: cents},
		Date:     date,
		MemberID: member,
	}

	id, err := s.ledger.AddDeposit(r.Context(), dep)
	if err != nil {
		if isValidationError(err) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`<div class="error">Dati non validi: ` + template.HTMLEscapeString(err.Error()) + `</div>`))
			return
		}
		slog.ErrorContext(r.Context(), "Deposit create error", "error", err, "member_id", member)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Errore nel salvataggio</div>`))
		return
	}

	s.invalidate()
	w.Header().Set("HX-Trigger", `{"ledger:changed": {}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Versamento registrato (#` + template.HTMLEscapeString(id) + `): €` +
		template.HTMLEscapeString(amountStr) + `</div>`))
}

func (s *Server) handleDeleteDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleDeleteEntry(w, r, "Versamento rimosso", s.ledger.DeleteDeposit)
}

// handleDeleteEntry is the shared soft-delete flow for groceries and
// deposits.
func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request, okMsg string, del func(ctx context.Context, id string) error) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		w.Header().Set("Allow", "POST, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Formato richiesta non valido</div>`))
		return
	}

	id := sanitizeInput(r.Form.Get("id"))
	if id == "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Identificativo mancante</div>`))
		return
	}

	if err := del(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<div class="error">Voce non trovata</div>`))
			return
		}
		slog.ErrorContext(r.Context(), "Entry delete error", "error", err, "entry_id", id)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Errore nella rimozione</div>`))
		return
	}

	s.invalidate()
	w.Header().Set("HX-Trigger", `{"ledger:changed": {}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">` + okMsg + `</div>`))
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Formato richiesta non valido</div>`))
		return
	}

	m := core.Member{
		Name:    sanitizeInput(r.Form.Get("name")),
		Email:   sanitizeInput(r.Form.Get("email")),
		Manager: r.Form.Get("manager") == "on",
	}

	id, err := s.ledger.AddMember(r.Context(), m)
	if err != nil {
		if isValidationError(err) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`<div class="error">Dati non validi: ` + template.HTMLEscapeString(err.Error()) + `</div>`))
			return
		}
		slog.ErrorContext(r.Context(), "Member create error", "error", err, "name", m.Name)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Errore nel salvataggio</div>`))
		return
	}

	s.invalidate()
	w.Header().Set("HX-Trigger", `{"ledger:changed": {}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Coinquilino aggiunto (#` + template.HTMLEscapeString(id) + `): ` +
		template.HTMLEscapeString(m.Name) + `</div>`))
}

func (s *Server) handleRetireMember(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Formato richiesta non valido</div>`))
		return
	}

	id := sanitizeInput(r.Form.Get("id"))
	if id == "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Identificativo mancante</div>`))
		return
	}

	when := todayDate()
	if v := strings.TrimSpace(r.Form.Get("date")); v != "" {
		d, err := parseDate(v)
		if err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`<div class="error">Data non valida</div>`))
			return
		}
		when = d
	}

	if err := s.ledger.RetireMember(r.Context(), id, when); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<div class="error">Coinquilino non trovato</div>`))
			return
		}
		if isValidationError(err) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`<div class="error">Dati non validi: ` + template.HTMLEscapeString(err.Error()) + `</div>`))
			return
		}
		slog.ErrorContext(r.Context(), "Member retire error", "error", err, "member_id", id)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Errore nel salvataggio</div>`))
		return
	}

	s.invalidate()
	w.Header().Set("HX-Trigger", `{"ledger:changed": {}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Coinquilino ritirato</div>`))
}

func todayDate() core.Date {
	now := time.Now().UTC()
	return core.NewDate(now.Year(), int(now.Month()), now.Day())
}

// isValidationError reports whether err stems from domain validation
// rather than infrastructure.
func isValidationError(err error) bool {
	return errors.Is(err, core.ErrInvalidDate) ||
		errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrEmptyDescription) ||
		errors.Is(err, core.ErrEmptyName) ||
		errors.Is(err, core.ErrEmptyMemberRef)
}
