package model

import "time"

// Roles accepted in the JWT "role" claim.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents an application user record as stored in the
// `users` table. Handlers never return it directly; the password
// hash stays inside the auth layer.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	Role         – USER or ADMIN.
//	IsActive     – whether the account is active.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table. The plain
// token is never stored, only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// Themes stored in user_settings.theme.
const (
	ThemeLight  = "LIGHT"
	ThemeDark   = "DARK"
	ThemeSystem = "SYSTEM"
)

// UserSettings holds per-user preferences and the premium entitlement.
// A nil PremiumUntil means the user never bought premium.
type UserSettings struct {
	UserID       uint64     `json:"user_id"`
	Theme        string     `json:"theme"`
	Locale       string     `json:"locale"`
	PremiumUntil *time.Time `json:"premium_until,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// DefaultSettings is used for users that never saved preferences.
func DefaultSettings(userID uint64) UserSettings {
	return UserSettings{UserID: userID, Theme: ThemeSystem, Locale: "es"}
}
