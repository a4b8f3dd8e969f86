package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/market-sales/internal/model"
)

const savedBalanceColumns = `id, user_id, origin_mercadillo_id, amount, consumed, consumed_by_mercadillo_id,
	version, sync_pending, created_at, updated_at`

// SavedBalanceRepo stores final balances kept aside for a later event.
type SavedBalanceRepo struct {
	db *sql.DB
}

func NewSavedBalanceRepo(db *sql.DB) *SavedBalanceRepo { return &SavedBalanceRepo{db: db} }

func scanSavedBalance(s rowScanner) (model.SavedBalance, error) {
	var b model.SavedBalance
	var consumedBy sql.NullString
	err := s.Scan(&b.ID, &b.UserID, &b.OriginMercadilloID, &b.Amount, &b.Consumed, &consumedBy,
		&b.Version, &b.SyncPending, &b.CreatedAt, &b.UpdatedAt)
	if consumedBy.Valid {
		b.ConsumedByMercadilloID = &consumedBy.String
	}
	return b, err
}

func (r *SavedBalanceRepo) one(ctx context.Context, q string, args ...any) (*model.SavedBalance, error) {
	b, err := scanSavedBalance(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *SavedBalanceRepo) Create(ctx context.Context, b *model.SavedBalance) error {
	const q = `INSERT INTO saved_balances (id, user_id, origin_mercadillo_id, amount, consumed, version, sync_pending)
		VALUES (?,?,?,?,?,?,?)`
	_, err := r.db.ExecContext(ctx, q, b.ID, b.UserID, b.OriginMercadilloID, b.Amount, b.Consumed, b.Version, b.SyncPending)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

func (r *SavedBalanceRepo) GetByID(ctx context.Context, userID uint64, id string) (*model.SavedBalance, error) {
	return r.one(ctx, `SELECT `+savedBalanceColumns+` FROM saved_balances WHERE id = ? AND user_id = ?`, id, userID)
}

// Active returns the most recent unconsumed balance of the user, or
// ErrNotFound when there is none.
func (r *SavedBalanceRepo) Active(ctx context.Context, userID uint64) (*model.SavedBalance, error) {
	return r.one(ctx, `SELECT `+savedBalanceColumns+` FROM saved_balances
		WHERE user_id = ? AND consumed = 0 ORDER BY created_at DESC, id DESC LIMIT 1`, userID)
}

// ActiveForOrigin returns the unconsumed balance saved from originID.
func (r *SavedBalanceRepo) ActiveForOrigin(ctx context.Context, userID uint64, originID string) (*model.SavedBalance, error) {
	return r.one(ctx, `SELECT `+savedBalanceColumns+` FROM saved_balances
		WHERE user_id = ? AND origin_mercadillo_id = ? AND consumed = 0 LIMIT 1`, userID, originID)
}

// MarkConsumed flips the consumed flag and records the receiving event.
// It is a single statement; assigning the amount to the target event is the
// caller's next step. ErrConflict means the balance was already consumed.
func (r *SavedBalanceRepo) MarkConsumed(ctx context.Context, userID uint64, id, targetID string) error {
	const q = `UPDATE saved_balances SET consumed = 1, consumed_by_mercadillo_id = ?, version = version + 1,
		sync_pending = 1 WHERE id = ? AND user_id = ? AND consumed = 0`
	res, err := r.db.ExecContext(ctx, q, targetID, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, userID, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

func (r *SavedBalanceRepo) PendingSync(ctx context.Context, userID uint64) ([]model.SavedBalance, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+savedBalanceColumns+` FROM saved_balances WHERE user_id = ? AND sync_pending = 1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SavedBalance
	for rows.Next() {
		b, err := scanSavedBalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SavedBalanceRepo) MarkSynced(ctx context.Context, userID uint64, id string, version int64) error {
	const q = `UPDATE saved_balances SET sync_pending = 0 WHERE id = ? AND user_id = ? AND version = ?`
	_, err := r.db.ExecContext(ctx, q, id, userID, version)
	return err
}

func (r *SavedBalanceRepo) Versions(ctx context.Context, userID uint64) (map[string]int64, error) {
	return versions(ctx, r.db, "saved_balances", userID)
}

func (r *SavedBalanceRepo) ApplyRemote(ctx context.Context, userID uint64, b model.SavedBalance) error {
	const q = `INSERT INTO saved_balances (id, user_id, origin_mercadillo_id, amount, consumed,
		consumed_by_mercadillo_id, version, sync_pending) VALUES (?,?,?,?,?,?,?,0)
		ON DUPLICATE KEY UPDATE amount = VALUES(amount), consumed = VALUES(consumed),
		consumed_by_mercadillo_id = VALUES(consumed_by_mercadillo_id), version = VALUES(version), sync_pending = 0`
	_, err := r.db.ExecContext(ctx, q, b.ID, userID, b.OriginMercadilloID, b.Amount, b.Consumed,
		b.ConsumedByMercadilloID, b.Version)
	return err
}
