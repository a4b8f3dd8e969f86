package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/market-sales/internal/lifecycle"
	"github.com/iliyamo/market-sales/internal/model"
)

const mercadilloColumns = `id, user_id, name, place, date, start_time, end_time, free_entry, subscription_fee,
	initial_balance, final_balance, cash_count_result, total_sales, total_expenses, settlement_amount,
	pending_cash_count, pending_balance_assignment, state, active, version, sync_pending, created_at, updated_at`

// timeDrivenStates are the states the clock can still move an event out of.
var timeDrivenStates = []lifecycle.State{
	lifecycle.InProgress,
	lifecycle.FullyScheduled,
	lifecycle.PartiallyScheduled,
}

type rowScanner interface {
	Scan(dest ...any) error
}

// MercadilloRepo persists market events. Events are never hard-deleted;
// Deactivate-style writes go through Update with Active=false.
type MercadilloRepo struct {
	db *sql.DB
}

func NewMercadilloRepo(db *sql.DB) *MercadilloRepo { return &MercadilloRepo{db: db} }

func scanMercadillo(s rowScanner) (model.Mercadillo, error) {
	var m model.Mercadillo
	err := s.Scan(
		&m.ID, &m.UserID, &m.Name, &m.Place, &m.Date, &m.StartTime, &m.EndTime, &m.FreeEntry, &m.SubscriptionFee,
		&m.InitialBalance, &m.FinalBalance, &m.CashCountResult, &m.TotalSales, &m.TotalExpenses, &m.SettlementAmount,
		&m.PendingCashCount, &m.PendingBalanceAssignment, &m.State, &m.Active, &m.Version, &m.SyncPending,
		&m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

func (r *MercadilloRepo) query(ctx context.Context, q string, args ...any) ([]model.Mercadillo, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Mercadillo
	for rows.Next() {
		m, err := scanMercadillo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Create inserts m. The caller assigns the id, state and version.
func (r *MercadilloRepo) Create(ctx context.Context, m *model.Mercadillo) error {
	const q = `INSERT INTO mercadillos (id, user_id, name, place, date, start_time, end_time, free_entry,
		subscription_fee, initial_balance, total_sales, total_expenses, pending_cash_count, state, active, version, sync_pending)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	_, err := r.db.ExecContext(ctx, q,
		m.ID, m.UserID, m.Name, m.Place, m.Date, m.StartTime, m.EndTime, m.FreeEntry,
		m.SubscriptionFee, m.InitialBalance, m.TotalSales, m.TotalExpenses, m.PendingCashCount,
		m.State, m.Active, m.Version, m.SyncPending)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// GetByID returns the event id owned by userID, or ErrNotFound.
func (r *MercadilloRepo) GetByID(ctx context.Context, userID uint64, id string) (*model.Mercadillo, error) {
	q := `SELECT ` + mercadilloColumns + ` FROM mercadillos WHERE id = ? AND user_id = ?`
	m, err := scanMercadillo(r.db.QueryRowContext(ctx, q, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// List returns the user's events matching f ordered by date and start time.
func (r *MercadilloRepo) List(ctx context.Context, userID uint64, f model.MercadilloFilter) ([]model.Mercadillo, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}
	if !f.IncludeInactive {
		where = append(where, "active = 1")
	}
	if f.From != "" {
		where = append(where, "date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		where = append(where, "date <= ?")
		args = append(args, f.To)
	}
	if f.State.Valid() {
		where = append(where, "state = ?")
		args = append(args, f.State.String())
	}
	q := `SELECT ` + mercadilloColumns + ` FROM mercadillos WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY date ASC, start_time ASC`
	return r.query(ctx, q, args...)
}

// Update writes every mutable column of m. Zero rows affected means the
// event does not exist for that user.
func (r *MercadilloRepo) Update(ctx context.Context, m *model.Mercadillo) error {
	const q = `UPDATE mercadillos SET name = ?, place = ?, date = ?, start_time = ?, end_time = ?, free_entry = ?,
		subscription_fee = ?, initial_balance = ?, final_balance = ?, cash_count_result = ?, total_sales = ?,
		total_expenses = ?, settlement_amount = ?, pending_cash_count = ?, pending_balance_assignment = ?,
		state = ?, active = ?, version = ?, sync_pending = ?
		WHERE id = ? AND user_id = ?`
	res, err := r.db.ExecContext(ctx, q,
		m.Name, m.Place, m.Date, m.StartTime, m.EndTime, m.FreeEntry,
		m.SubscriptionFee, m.InitialBalance, m.FinalBalance, m.CashCountResult, m.TotalSales,
		m.TotalExpenses, m.SettlementAmount, m.PendingCashCount, m.PendingBalanceAssignment,
		m.State, m.Active, m.Version, m.SyncPending,
		m.ID, m.UserID)
	return affectedOne(res, err)
}

// CountUpcoming counts active, non-cancelled events dated on or after
// today. It backs the free tier limit.
func (r *MercadilloRepo) CountUpcoming(ctx context.Context, userID uint64, today string) (int, error) {
	const q = `SELECT COUNT(*) FROM mercadillos
		WHERE user_id = ? AND active = 1 AND state <> ? AND date >= ?`
	var n int
	err := r.db.QueryRowContext(ctx, q, userID, lifecycle.Cancelled.String(), today).Scan(&n)
	return n, err
}

// ListForRecompute returns the events whose state may change with the
// clock: active and not cancelled, dated since or later, or still in a
// time-driven state whatever their date.
func (r *MercadilloRepo) ListForRecompute(ctx context.Context, userID uint64, since string) ([]model.Mercadillo, error) {
	q := `SELECT ` + mercadilloColumns + ` FROM mercadillos
		WHERE user_id = ? AND active = 1 AND state <> ? AND (date >= ? OR state IN (?,?,?))
		ORDER BY date ASC`
	args := []any{userID, lifecycle.Cancelled.String(), since}
	for _, s := range timeDrivenStates {
		args = append(args, s.String())
	}
	return r.query(ctx, q, args...)
}

// UserIDs returns every user owning at least one active event.
func (r *MercadilloRepo) UserIDs(ctx context.Context) ([]uint64, error) {
	const q = `SELECT DISTINCT user_id FROM mercadillos WHERE active = 1 AND state <> ? ORDER BY user_id`
	rows, err := r.db.QueryContext(ctx, q, lifecycle.Cancelled.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PendingSync returns the user's rows changed since the last push.
func (r *MercadilloRepo) PendingSync(ctx context.Context, userID uint64) ([]model.Mercadillo, error) {
	q := `SELECT ` + mercadilloColumns + ` FROM mercadillos WHERE user_id = ? AND sync_pending = 1`
	return r.query(ctx, q, userID)
}

// MarkSynced clears the dirty flag unless the row moved past version while
// it was being pushed.
func (r *MercadilloRepo) MarkSynced(ctx context.Context, userID uint64, id string, version int64) error {
	const q = `UPDATE mercadillos SET sync_pending = 0 WHERE id = ? AND user_id = ? AND version = ?`
	_, err := r.db.ExecContext(ctx, q, id, userID, version)
	return err
}

// Versions maps every row id of the user to its local version.
func (r *MercadilloRepo) Versions(ctx context.Context, userID uint64) (map[string]int64, error) {
	return versions(ctx, r.db, "mercadillos", userID)
}

// ApplyRemote inserts or overwrites the row with a copy pulled from the
// remote store. The row is left clean.
func (r *MercadilloRepo) ApplyRemote(ctx context.Context, userID uint64, m model.Mercadillo) error {
	const q = `INSERT INTO mercadillos (id, user_id, name, place, date, start_time, end_time, free_entry,
		subscription_fee, initial_balance, final_balance, cash_count_result, total_sales, total_expenses,
		settlement_amount, pending_cash_count, pending_balance_assignment, state, active, version, sync_pending)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,0)
		ON DUPLICATE KEY UPDATE name = VALUES(name), place = VALUES(place), date = VALUES(date),
		start_time = VALUES(start_time), end_time = VALUES(end_time), free_entry = VALUES(free_entry),
		subscription_fee = VALUES(subscription_fee), initial_balance = VALUES(initial_balance),
		final_balance = VALUES(final_balance), cash_count_result = VALUES(cash_count_result),
		total_sales = VALUES(total_sales), total_expenses = VALUES(total_expenses),
		settlement_amount = VALUES(settlement_amount), pending_cash_count = VALUES(pending_cash_count),
		pending_balance_assignment = VALUES(pending_balance_assignment), state = VALUES(state),
		active = VALUES(active), version = VALUES(version), sync_pending = 0`
	_, err := r.db.ExecContext(ctx, q,
		m.ID, userID, m.Name, m.Place, m.Date, m.StartTime, m.EndTime, m.FreeEntry,
		m.SubscriptionFee, m.InitialBalance, m.FinalBalance, m.CashCountResult, m.TotalSales, m.TotalExpenses,
		m.SettlementAmount, m.PendingCashCount, m.PendingBalanceAssignment, m.State, m.Active, m.Version)
	return err
}

// versions reads id -> version for one user from a synchronisable table.
// table is always a package constant, never user input.
func versions(ctx context.Context, db *sql.DB, table string, userID uint64) (map[string]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, version FROM `+table+` WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var (
			id string
			v  int64
		)
		if err := rows.Scan(&id, &v); err != nil {
			return nil, err
		}
		out[id] = v
	}
	return out, rows.Err()
}
