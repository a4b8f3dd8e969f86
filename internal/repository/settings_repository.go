package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/market-sales/internal/model"
)

// SettingsRepo reads and writes user_settings rows.
type SettingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{db: db} }

// Get returns the user's settings, or the defaults when the user never saved
// any.
func (r *SettingsRepo) Get(ctx context.Context, userID uint64) (model.UserSettings, error) {
	const q = `SELECT user_id, theme, locale, premium_until, updated_at FROM user_settings WHERE user_id = ?`
	var (
		s     model.UserSettings
		until sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&s.UserID, &s.Theme, &s.Locale, &until, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultSettings(userID), nil
	}
	if err != nil {
		return model.UserSettings{}, err
	}
	if until.Valid {
		t := until.Time.UTC()
		s.PremiumUntil = &t
	}
	return s, nil
}

// Upsert stores every field of s.
func (r *SettingsRepo) Upsert(ctx context.Context, s model.UserSettings) error {
	const q = `INSERT INTO user_settings (user_id, theme, locale, premium_until) VALUES (?,?,?,?)
		ON DUPLICATE KEY UPDATE theme = VALUES(theme), locale = VALUES(locale), premium_until = VALUES(premium_until)`
	var until any
	if s.PremiumUntil != nil {
		until = s.PremiumUntil.UTC()
	}
	_, err := r.db.ExecContext(ctx, q, s.UserID, s.Theme, s.Locale, until)
	return err
}

// ExtendPremium moves premium_until to max(now, premium_until) plus months
// and returns the new value.
func (r *SettingsRepo) ExtendPremium(ctx context.Context, userID uint64, now time.Time, months int) (time.Time, error) {
	s, err := r.Get(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}
	base := now.UTC()
	if s.PremiumUntil != nil && s.PremiumUntil.After(base) {
		base = *s.PremiumUntil
	}
	until := base.AddDate(0, months, 0)
	s.PremiumUntil = &until
	if err := r.Upsert(ctx, s); err != nil {
		return time.Time{}, err
	}
	return until, nil
}
