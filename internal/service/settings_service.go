package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/market-sales/internal/model"
)

const maxPremiumMonths = 24

var supportedLocales = map[string]bool{"es": true, "en": true, "ca": true}

// SettingsInput holds the user-editable preferences. Empty fields keep the
// stored value.
type SettingsInput struct {
	Theme  string
	Locale string
}

type SettingsService struct {
	store SettingsStore
	now   func() time.Time
}

func NewSettingsService(store SettingsStore) *SettingsService {
	return &SettingsService{store: store, now: time.Now}
}

func (s *SettingsService) Get(ctx context.Context, userID uint64) (model.UserSettings, error) {
	return s.store.Get(ctx, userID)
}

// Update changes theme and locale. The premium entitlement is never touched
// here.
func (s *SettingsService) Update(ctx context.Context, userID uint64, in SettingsInput) (model.UserSettings, error) {
	cur, err := s.store.Get(ctx, userID)
	if err != nil {
		return cur, err
	}
	if t := strings.ToUpper(strings.TrimSpace(in.Theme)); t != "" {
		switch t {
		case model.ThemeLight, model.ThemeDark, model.ThemeSystem:
			cur.Theme = t
		default:
			return cur, fmt.Errorf("%w: unknown theme %q", ErrValidation, in.Theme)
		}
	}
	if l := strings.ToLower(strings.TrimSpace(in.Locale)); l != "" {
		if !supportedLocales[l] {
			return cur, fmt.Errorf("%w: unsupported locale %q", ErrValidation, in.Locale)
		}
		cur.Locale = l
	}
	cur.UserID = userID
	if err := s.store.Upsert(ctx, cur); err != nil {
		return cur, err
	}
	cur.UpdatedAt = s.now().UTC()
	return cur, nil
}

// ActivatePremium extends the entitlement by months, counting from the
// current expiry when it is still in the future.
func (s *SettingsService) ActivatePremium(ctx context.Context, userID uint64, months int) (time.Time, error) {
	if months < 1 || months > maxPremiumMonths {
		return time.Time{}, fmt.Errorf("%w: months must be between 1 and %d", ErrValidation, maxPremiumMonths)
	}
	return s.store.ExtendPremium(ctx, userID, s.now(), months)
}
