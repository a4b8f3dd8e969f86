// Package session holds the per-request view of the authenticated user.
//
// A Session is built once per request from the access token claims and the
// stored settings, then passed by value. Nothing in it is mutated after
// construction; changing settings produces a new Session on the next
// request.
package session

import (
	"time"

	"github.com/iliyamo/market-sales/internal/model"
)

// Session is the immutable per-request user context.
type Session struct {
	UserID       uint64
	Role         string
	Theme        string
	Locale       string
	PremiumUntil *time.Time
}

// New combines the token identity with the stored settings.
func New(userID uint64, role string, s model.UserSettings) Session {
	var until *time.Time
	if s.PremiumUntil != nil {
		t := *s.PremiumUntil
		until = &t
	}
	return Session{
		UserID:       userID,
		Role:         role,
		Theme:        s.Theme,
		Locale:       s.Locale,
		PremiumUntil: until,
	}
}

// IsPremium reports whether the premium entitlement is active at now.
func (s Session) IsPremium(now time.Time) bool {
	return s.PremiumUntil != nil && now.Before(*s.PremiumUntil)
}

// ShowAds is the inverse of the premium entitlement.
func (s Session) ShowAds(now time.Time) bool { return !s.IsPremium(now) }

// IsAdmin reports the ADMIN role.
func (s Session) IsAdmin() bool { return s.Role == model.RoleAdmin }

// View is the JSON shape returned to clients.
type View struct {
	UserID       uint64     `json:"user_id"`
	Role         string     `json:"role"`
	Theme        string     `json:"theme"`
	Locale       string     `json:"locale"`
	Premium      bool       `json:"premium"`
	PremiumUntil *time.Time `json:"premium_until,omitempty"`
	ShowAds      bool       `json:"show_ads"`
}

// View renders s as seen at now.
func (s Session) View(now time.Time) View {
	return View{
		UserID:       s.UserID,
		Role:         s.Role,
		Theme:        s.Theme,
		Locale:       s.Locale,
		Premium:      s.IsPremium(now),
		PremiumUntil: s.PremiumUntil,
		ShowAds:      s.ShowAds(now),
	}
}
