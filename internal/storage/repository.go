// Package storage persists the household ledger in SQLite. Grocery and
// deposit rows carry a sync status so the export worker can mirror them to
// the external archive; members are soft-retired, never deleted.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cassa/internal/core"

	_ "modernc.org/sqlite"
)

// Sync states for groceries and deposits.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

// Entry kinds used across storage, messaging and the export worker.
const (
	KindGrocery = "grocery"
	KindDeposit = "deposit"
)

var ErrNotFound = errors.New("not found")

type Repository struct {
	db *sql.DB
}

// NewRepository opens (creating if needed) the SQLite database at dbPath
// and applies pending migrations.
func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := migrateSchema(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	slog.Debug("Database schema ready", "path", dbPath, "version", version)

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// AddMember inserts a new member.
func (r *Repository) AddMember(ctx context.Context, m core.Member) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO members (id, name, email, manager) VALUES (?, ?, ?, ?)`,
		m.ID, m.Name, m.Email, boolToInt(m.Manager))
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}

	slog.InfoContext(ctx, "Member added", "member_id", m.ID, "name", m.Name, "manager", m.Manager)
	return nil
}

// ListMembers returns members in insertion order. With activeOnly set,
// retired members are excluded.
func (r *Repository) ListMembers(ctx context.Context, activeOnly bool) ([]core.Member, error) {
	query := `SELECT id, name, email, manager, COALESCE(retired_on, '') FROM members`
	if activeOnly {
		query += ` WHERE retired_on IS NULL`
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []core.Member
	for rows.Next() {
		var (
			m         core.Member
			manager   int
			retiredOn string
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &manager, &retiredOn); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.Manager = manager != 0
		if retiredOn != "" {
			d, err := parseISODate(retiredOn)
			if err != nil {
				return nil, fmt.Errorf("member %s: %w", m.ID, err)
			}
			m.RetiredAt = d
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// RetireMember soft-retires a member as of the given date. Their entries
// stay in the ledger and show up as orphaned in the summary.
func (r *Repository) RetireMember(ctx context.Context, id string, when core.Date) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE members SET retired_on = ? WHERE id = ? AND retired_on IS NULL`,
		when.ISO(), id)
	if err != nil {
		return fmt.Errorf("retire member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("retire member rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Member retired", "member_id", id, "retired_on", when.ISO())
	return nil
}

// AddGrocery inserts a purchase in pending sync state.
func (r *Repository) AddGrocery(ctx context.Context, g core.GroceryItem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO groceries (id, description, amount_cents, purchased_on, purchaser_id)
		 VALUES (?, ?, ?, ?, ?)`,
		g.ID, g.Description, g.Amount.Cents, g.Date.ISO(), g.PurchaserID)
	if err != nil {
		return fmt.Errorf("insert grocery: %w", err)
	}

	slog.InfoContext(ctx, "Grocery saved",
		"entry_id", g.ID,
		"description", g.Description,
		"amount_cents", g.Amount.Cents,
		"purchaser_id", g.PurchaserID)
	return nil
}

// GetGrocery returns a purchase by ID, including soft-deleted rows so the
// worker can still resolve delete events.
func (r *Repository) GetGrocery(ctx context.Context, id string) (core.GroceryItem, error) {
	var (
		g    core.GroceryItem
		date string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, description, amount_cents, purchased_on, purchaser_id FROM groceries WHERE id = ?`,
		id).Scan(&g.ID, &g.Description, &g.Amount.Cents, &date, &g.PurchaserID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.GroceryItem{}, ErrNotFound
	}
	if err != nil {
		return core.GroceryItem{}, fmt.Errorf("get grocery: %w", err)
	}
	g.Date, err = parseISODate(date)
	if err != nil {
		return core.GroceryItem{}, fmt.Errorf("grocery %s: %w", id, err)
	}
	return g, nil
}

// ListGroceries returns all live purchases in insertion order.
func (r *Repository) ListGroceries(ctx context.Context) ([]core.GroceryItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, description, amount_cents, purchased_on, purchaser_id
		 FROM groceries WHERE deleted = 0 ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query groceries: %w", err)
	}
	defer rows.Close()

	var items []core.GroceryItem
	for rows.Next() {
		var (
			g    core.GroceryItem
			date string
		)
		if err := rows.Scan(&g.ID, &g.Description, &g.Amount.Cents, &date, &g.PurchaserID); err != nil {
			return nil, fmt.Errorf("scan grocery: %w", err)
		}
		g.Date, err = parseISODate(date)
		if err != nil {
			return nil, fmt.Errorf("grocery %s: %w", g.ID, err)
		}
		items = append(items, g)
	}
	return items, rows.Err()
}

// SoftDeleteGrocery marks a purchase deleted and resets its sync state so
// the removal propagates to the archive.
func (r *Repository) SoftDeleteGrocery(ctx context.Context, id string) error {
	return r.softDelete(ctx, "groceries", id)
}

// AddDeposit inserts a contribution in pending sync state.
func (r *Repository) AddDeposit(ctx context.Context, d core.Deposit) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO deposits (id, amount_cents, deposited_on, member_id) VALUES (?, ?, ?, ?)`,
		d.ID, d.Amount.Cents, d.Date.ISO(), d.MemberID)
	if err != nil {
		return fmt.Errorf("insert deposit: %w", err)
	}

	slog.InfoContext(ctx, "Deposit saved",
		"entry_id", d.ID,
		"amount_cents", d.Amount.Cents,
		"member_id", d.MemberID)
	return nil
}

// GetDeposit returns a deposit by ID, including soft-deleted rows.
func (r *Repository) GetDeposit(ctx context.Context, id string) (core.Deposit, error) {
	var (
		d    core.Deposit
		date string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, amount_cents, deposited_on, member_id FROM deposits WHERE id = ?`,
		id).Scan(&d.ID, &d.Amount.Cents, &date, &d.MemberID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Deposit{}, ErrNotFound
	}
	if err != nil {
		return core.Deposit{}, fmt.Errorf("get deposit: %w", err)
	}
	d.Date, err = parseISODate(date)
	if err != nil {
		return core.Deposit{}, fmt.Errorf("deposit %s: %w", id, err)
	}
	return d, nil
}

// ListDeposits returns all live deposits in insertion order.
func (r *Repository) ListDeposits(ctx context.Context) ([]core.Deposit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount_cents, deposited_on, member_id
		 FROM deposits WHERE deleted = 0 ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query deposits: %w", err)
	}
	defer rows.Close()

	var items []core.Deposit
	for rows.Next() {
		var (
			d    core.Deposit
			date string
		)
		if err := rows.Scan(&d.ID, &d.Amount.Cents, &date, &d.MemberID); err != nil {
			return nil, fmt.Errorf("scan deposit: %w", err)
		}
		d.Date, err = parseISODate(date)
		if err != nil {
			return nil, fmt.Errorf("deposit %s: %w", d.ID, err)
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// SoftDeleteDeposit marks a deposit deleted and resets its sync state.
func (r *Repository) SoftDeleteDeposit(ctx context.Context, id string) error {
	return r.softDelete(ctx, "deposits", id)
}

func (r *Repository) softDelete(ctx context.Context, table, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE `+table+` SET deleted = 1, sync_status = ? WHERE id = ? AND deleted = 0`,
		SyncPending, id)
	if err != nil {
		return fmt.Errorf("soft delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Entry soft-deleted", "table", table, "entry_id", id)
	return nil
}

// PendingEntry identifies a ledger entry awaiting archive sync.
type PendingEntry struct {
	Kind    string // KindGrocery or KindDeposit
	ID      string
	Deleted bool
}

// ListPendingSync returns up to limit entries (of both kinds) not yet
// archived, oldest first. Entries whose last sync attempt failed are
// included, so transient archive outages are retried by the next pass.
func (r *Repository) ListPendingSync(ctx context.Context, limit int) ([]PendingEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, id, deleted FROM (
			SELECT 'grocery' AS kind, id, deleted, created_at FROM groceries WHERE sync_status != ?
			UNION ALL
			SELECT 'deposit' AS kind, id, deleted, created_at FROM deposits WHERE sync_status != ?
		 ) ORDER BY created_at LIMIT ?`,
		SyncDone, SyncDone, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending sync: %w", err)
	}
	defer rows.Close()

	var pending []PendingEntry
	for rows.Next() {
		var (
			p       PendingEntry
			deleted int
		)
		if err := rows.Scan(&p.Kind, &p.ID, &deleted); err != nil {
			return nil, fmt.Errorf("scan pending entry: %w", err)
		}
		p.Deleted = deleted != 0
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// MarkSynced records a successful archive sync for the entry.
func (r *Repository) MarkSynced(ctx context.Context, kind, id string) error {
	return r.setSyncStatus(ctx, kind, id, SyncDone)
}

// MarkSyncError flags the entry so the next catch-up pass retries it.
func (r *Repository) MarkSyncError(ctx context.Context, kind, id string) error {
	return r.setSyncStatus(ctx, kind, id, SyncError)
}

func (r *Repository) setSyncStatus(ctx context.Context, kind, id, status string) error {
	table, err := tableForKind(kind)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE `+table+` SET sync_status = ? WHERE id = ?`, status, id); err != nil {
		return fmt.Errorf("set sync status: %w", err)
	}
	return nil
}

func tableForKind(kind string) (string, error) {
	switch kind {
	case KindGrocery:
		return "groceries", nil
	case KindDeposit:
		return "deposits", nil
	default:
		return "", fmt.Errorf("unknown entry kind %q", kind)
	}
}

func parseISODate(s string) (core.Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return core.Date{Time: t}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
