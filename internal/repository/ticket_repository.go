package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/market-sales/internal/model"
)

// TicketRepo stores sales and their lines.
type TicketRepo struct {
	db *sql.DB
}

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// Create inserts the ticket and its lines in one transaction.
func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `INSERT INTO tickets (id, user_id, mercadillo_id, code, payment_method, total) VALUES (?,?,?,?,?,?)`
	if _, err := tx.ExecContext(ctx, q, t.ID, t.UserID, t.MercadilloID, t.Code, string(t.PaymentMethod), t.Total); err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	const ql = `INSERT INTO ticket_lines (id, ticket_id, article_id, description, quantity, unit_price, subtotal)
		VALUES (?,?,?,?,?,?,?)`
	for _, l := range t.Lines {
		if _, err := tx.ExecContext(ctx, ql, l.ID, t.ID, l.ArticleID, l.Description, l.Quantity, l.UnitPrice, l.Subtotal); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetByID returns the ticket header without lines.
func (r *TicketRepo) GetByID(ctx context.Context, userID uint64, id string) (*model.Ticket, error) {
	const q = `SELECT id, user_id, mercadillo_id, code, payment_method, total, created_at
		FROM tickets WHERE id = ? AND user_id = ?`
	var t model.Ticket
	err := r.db.QueryRowContext(ctx, q, id, userID).Scan(
		&t.ID, &t.UserID, &t.MercadilloID, &t.Code, &t.PaymentMethod, &t.Total, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListByMercadillo returns the tickets of one event, newest first, with
// their lines attached.
func (r *TicketRepo) ListByMercadillo(ctx context.Context, userID uint64, mercadilloID string) ([]model.Ticket, error) {
	const q = `SELECT id, user_id, mercadillo_id, code, payment_method, total, created_at
		FROM tickets WHERE mercadillo_id = ? AND user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, mercadilloID, userID)
	if err != nil {
		return nil, err
	}
	var out []model.Ticket
	idx := map[string]int{}
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(&t.ID, &t.UserID, &t.MercadilloID, &t.Code, &t.PaymentMethod, &t.Total, &t.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		idx[t.ID] = len(out)
		out = append(out, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	const ql = `SELECT l.id, l.ticket_id, l.article_id, l.description, l.quantity, l.unit_price, l.subtotal
		FROM ticket_lines l JOIN tickets t ON t.id = l.ticket_id
		WHERE t.mercadillo_id = ? AND t.user_id = ? ORDER BY l.ticket_id, l.id`
	lrows, err := r.db.QueryContext(ctx, ql, mercadilloID, userID)
	if err != nil {
		return nil, err
	}
	defer lrows.Close()
	for lrows.Next() {
		var (
			l         model.TicketLine
			articleID sql.NullString
		)
		if err := lrows.Scan(&l.ID, &l.TicketID, &articleID, &l.Description, &l.Quantity, &l.UnitPrice, &l.Subtotal); err != nil {
			return nil, err
		}
		if articleID.Valid {
			l.ArticleID = &articleID.String
		}
		if i, ok := idx[l.TicketID]; ok {
			out[i].Lines = append(out[i].Lines, l)
		}
	}
	return out, lrows.Err()
}

// Delete removes the ticket; its lines go with it through ON DELETE CASCADE.
func (r *TicketRepo) Delete(ctx context.Context, userID uint64, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tickets WHERE id = ? AND user_id = ?`, id, userID)
	return affectedOne(res, err)
}

// SalesTotals sums the tickets of one event: all methods, cash only, and
// the ticket count.
func (r *TicketRepo) SalesTotals(ctx context.Context, mercadilloID string) (total, cash decimal.Decimal, count int, err error) {
	const q = `SELECT COALESCE(SUM(total), 0),
		COALESCE(SUM(CASE WHEN payment_method = 'CASH' THEN total ELSE 0 END), 0),
		COUNT(*)
		FROM tickets WHERE mercadillo_id = ?`
	err = r.db.QueryRowContext(ctx, q, mercadilloID).Scan(&total, &cash, &count)
	return total, cash, count, err
}
