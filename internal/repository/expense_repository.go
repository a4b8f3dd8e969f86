package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/market-sales/internal/model"
)

// ExpenseRepo stores costs incurred at an event.
type ExpenseRepo struct {
	db *sql.DB
}

func NewExpenseRepo(db *sql.DB) *ExpenseRepo { return &ExpenseRepo{db: db} }

func (r *ExpenseRepo) Create(ctx context.Context, e *model.Expense) error {
	const q = `INSERT INTO expenses (id, user_id, mercadillo_id, description, amount, payment_method) VALUES (?,?,?,?,?,?)`
	_, err := r.db.ExecContext(ctx, q, e.ID, e.UserID, e.MercadilloID, e.Description, e.Amount, string(e.PaymentMethod))
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

func (r *ExpenseRepo) GetByID(ctx context.Context, userID uint64, id string) (*model.Expense, error) {
	const q = `SELECT id, user_id, mercadillo_id, description, amount, payment_method, created_at
		FROM expenses WHERE id = ? AND user_id = ?`
	var e model.Expense
	err := r.db.QueryRowContext(ctx, q, id, userID).Scan(
		&e.ID, &e.UserID, &e.MercadilloID, &e.Description, &e.Amount, &e.PaymentMethod, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *ExpenseRepo) ListByMercadillo(ctx context.Context, userID uint64, mercadilloID string) ([]model.Expense, error) {
	const q = `SELECT id, user_id, mercadillo_id, description, amount, payment_method, created_at
		FROM expenses WHERE mercadillo_id = ? AND user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, mercadilloID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Expense
	for rows.Next() {
		var e model.Expense
		if err := rows.Scan(&e.ID, &e.UserID, &e.MercadilloID, &e.Description, &e.Amount, &e.PaymentMethod, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *ExpenseRepo) Delete(ctx context.Context, userID uint64, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	return affectedOne(res, err)
}

// ExpenseTotals sums the expenses of one event, all methods and cash only.
func (r *ExpenseRepo) ExpenseTotals(ctx context.Context, mercadilloID string) (total, cash decimal.Decimal, err error) {
	const q = `SELECT COALESCE(SUM(amount), 0),
		COALESCE(SUM(CASE WHEN payment_method = 'CASH' THEN amount ELSE 0 END), 0)
		FROM expenses WHERE mercadillo_id = ?`
	err = r.db.QueryRowContext(ctx, q, mercadilloID).Scan(&total, &cash)
	return total, cash, err
}
