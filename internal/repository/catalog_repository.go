package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/market-sales/internal/model"
)

const (
	categoryColumns = `id, user_id, name, color, active, version, sync_pending, created_at, updated_at`
	articleColumns  = `id, user_id, category_id, name, price, cost, active, version, sync_pending, created_at, updated_at`
)

// CategoryRepo persists article categories.
type CategoryRepo struct {
	db *sql.DB
}

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

func scanCategory(s rowScanner) (model.Category, error) {
	var c model.Category
	err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &c.Active, &c.Version, &c.SyncPending, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *CategoryRepo) list(ctx context.Context, q string, args ...any) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CategoryRepo) Create(ctx context.Context, c *model.Category) error {
	const q = `INSERT INTO categories (id, user_id, name, color, active, version, sync_pending) VALUES (?,?,?,?,?,?,?)`
	_, err := r.db.ExecContext(ctx, q, c.ID, c.UserID, c.Name, c.Color, c.Active, c.Version, c.SyncPending)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

func (r *CategoryRepo) GetByID(ctx context.Context, userID uint64, id string) (*model.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// List returns the user's categories by name; inactive ones only on request.
func (r *CategoryRepo) List(ctx context.Context, userID uint64, includeInactive bool) ([]model.Category, error) {
	q := `SELECT ` + categoryColumns + ` FROM categories WHERE user_id = ?`
	if !includeInactive {
		q += ` AND active = 1`
	}
	return r.list(ctx, q+` ORDER BY name`, userID)
}

func (r *CategoryRepo) Update(ctx context.Context, c *model.Category) error {
	const q = `UPDATE categories SET name = ?, color = ?, active = ?, version = ?, sync_pending = ?
		WHERE id = ? AND user_id = ?`
	res, err := r.db.ExecContext(ctx, q, c.Name, c.Color, c.Active, c.Version, c.SyncPending, c.ID, c.UserID)
	return affectedOne(res, err)
}

func (r *CategoryRepo) PendingSync(ctx context.Context, userID uint64) ([]model.Category, error) {
	return r.list(ctx, `SELECT `+categoryColumns+` FROM categories WHERE user_id = ? AND sync_pending = 1`, userID)
}

func (r *CategoryRepo) MarkSynced(ctx context.Context, userID uint64, id string, version int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE categories SET sync_pending = 0 WHERE id = ? AND user_id = ? AND version = ?`, id, userID, version)
	return err
}

func (r *CategoryRepo) Versions(ctx context.Context, userID uint64) (map[string]int64, error) {
	return versions(ctx, r.db, "categories", userID)
}

func (r *CategoryRepo) ApplyRemote(ctx context.Context, userID uint64, c model.Category) error {
	const q = `INSERT INTO categories (id, user_id, name, color, active, version, sync_pending) VALUES (?,?,?,?,?,?,0)
		ON DUPLICATE KEY UPDATE name = VALUES(name), color = VALUES(color), active = VALUES(active),
		version = VALUES(version), sync_pending = 0`
	_, err := r.db.ExecContext(ctx, q, c.ID, userID, c.Name, c.Color, c.Active, c.Version)
	return err
}

// ArticleRepo persists sellable articles.
type ArticleRepo struct {
	db *sql.DB
}

func NewArticleRepo(db *sql.DB) *ArticleRepo { return &ArticleRepo{db: db} }

func scanArticle(s rowScanner) (model.Article, error) {
	var (
		a          model.Article
		categoryID sql.NullString
	)
	err := s.Scan(&a.ID, &a.UserID, &categoryID, &a.Name, &a.Price, &a.Cost, &a.Active, &a.Version, &a.SyncPending,
		&a.CreatedAt, &a.UpdatedAt)
	if categoryID.Valid {
		a.CategoryID = &categoryID.String
	}
	return a, err
}

func (r *ArticleRepo) list(ctx context.Context, q string, args ...any) ([]model.Article, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *ArticleRepo) Create(ctx context.Context, a *model.Article) error {
	const q = `INSERT INTO articles (id, user_id, category_id, name, price, cost, active, version, sync_pending)
		VALUES (?,?,?,?,?,?,?,?,?)`
	_, err := r.db.ExecContext(ctx, q, a.ID, a.UserID, a.CategoryID, a.Name, a.Price, a.Cost, a.Active, a.Version, a.SyncPending)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

func (r *ArticleRepo) GetByID(ctx context.Context, userID uint64, id string) (*model.Article, error) {
	a, err := scanArticle(r.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// List returns the user's articles by name, optionally narrowed to one
// category.
func (r *ArticleRepo) List(ctx context.Context, userID uint64, categoryID string, includeInactive bool) ([]model.Article, error) {
	q := `SELECT ` + articleColumns + ` FROM articles WHERE user_id = ?`
	args := []any{userID}
	if categoryID != "" {
		q += ` AND category_id = ?`
		args = append(args, categoryID)
	}
	if !includeInactive {
		q += ` AND active = 1`
	}
	return r.list(ctx, q+` ORDER BY name`, args...)
}

func (r *ArticleRepo) Update(ctx context.Context, a *model.Article) error {
	const q = `UPDATE articles SET category_id = ?, name = ?, price = ?, cost = ?, active = ?, version = ?,
		sync_pending = ? WHERE id = ? AND user_id = ?`
	res, err := r.db.ExecContext(ctx, q, a.CategoryID, a.Name, a.Price, a.Cost, a.Active, a.Version, a.SyncPending,
		a.ID, a.UserID)
	return affectedOne(res, err)
}

func (r *ArticleRepo) PendingSync(ctx context.Context, userID uint64) ([]model.Article, error) {
	return r.list(ctx, `SELECT `+articleColumns+` FROM articles WHERE user_id = ? AND sync_pending = 1`, userID)
}

func (r *ArticleRepo) MarkSynced(ctx context.Context, userID uint64, id string, version int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE articles SET sync_pending = 0 WHERE id = ? AND user_id = ? AND version = ?`, id, userID, version)
	return err
}

func (r *ArticleRepo) Versions(ctx context.Context, userID uint64) (map[string]int64, error) {
	return versions(ctx, r.db, "articles", userID)
}

func (r *ArticleRepo) ApplyRemote(ctx context.Context, userID uint64, a model.Article) error {
	const q = `INSERT INTO articles (id, user_id, category_id, name, price, cost, active, version, sync_pending)
		VALUES (?,?,?,?,?,?,?,?,0)
		ON DUPLICATE KEY UPDATE category_id = VALUES(category_id), name = VALUES(name), price = VALUES(price),
		cost = VALUES(cost), active = VALUES(active), version = VALUES(version), sync_pending = 0`
	_, err := r.db.ExecContext(ctx, q, a.ID, userID, a.CategoryID, a.Name, a.Price, a.Cost, a.Active, a.Version)
	return err
}

// affectedOne turns a zero-row UPDATE into ErrNotFound.
func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
