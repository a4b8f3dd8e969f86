package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/market-sales/internal/config"
	"github.com/iliyamo/market-sales/internal/model"
	"github.com/iliyamo/market-sales/internal/repository"
	"github.com/iliyamo/market-sales/internal/service"
	"github.com/iliyamo/market-sales/internal/utils" // hashing and token issuing
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
	Hook   SessionHook // optional; recompute + sync on login and logout
	Log    *slog.Logger
	Now    func() time.Time
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore, hook SessionHook, log *slog.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Hook: hook, Log: orDefault(log), Now: time.Now}
}

// ----- DTOs -----

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

const minPasswordLen = 8

func (h *AuthHandler) bindCredentials(c echo.Context) (credentialsReq, string) {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return req, "invalid body"
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return req, "email/password required"
	}
	return req, ""
}

// issue creates an access/refresh pair and persists the refresh hash.
func (h *AuthHandler) issue(c echo.Context, u model.User, status int) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	now := h.Now()
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin, now)
	if err != nil {
		return fail(c, h.Log, err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays, now)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(status, authResp{
		User:    userPart{ID: u.ID, Email: u.Email, Role: u.Role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	})
}

func (h *AuthHandler) kick(userID uint64, trigger string) {
	if h.Hook != nil {
		h.Hook.Kick(userID, trigger)
	}
}

// Register creates a USER account (ADMIN when the email is in ADMIN_EMAILS)
// and returns tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	req, msg := h.bindCredentials(c)
	if msg != "" {
		return badRequest(c, msg)
	}
	if len(req.Password) < minPasswordLen {
		return badRequest(c, "password must have at least 8 characters")
	}
	if len(req.Password) > utils.MaxPasswordBytes {
		return badRequest(c, "password must have at most 72 bytes")
	}
	role := model.RoleUser
	if h.Cfg.IsAdminEmail(req.Email) {
		role = model.RoleAdmin
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	uid, err := h.Users.Create(ctx, req.Email, req.Password, role, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return fail(c, h.Log, err)
	}
	h.Log.Info("user registered", "user_id", uid, "role", role)
	return h.issue(c, model.User{ID: uid, Email: req.Email, Role: role}, http.StatusCreated)
}

// Login verifies the credentials and returns a new pair. Accounts listed in
// ADMIN_EMAILS are promoted on the way in. The user's states are recomputed
// and synced in the background.
func (h *AuthHandler) Login(c echo.Context) error {
	req, msg := h.bindCredentials(c)
	if msg != "" {
		return badRequest(c, msg)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return fail(c, h.Log, err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if u.Role != model.RoleAdmin && h.Cfg.IsAdminEmail(u.Email) {
		if err := h.Users.SetRole(ctx, u.ID, model.RoleAdmin); err != nil {
			return fail(c, h.Log, err)
		}
		u.Role = model.RoleAdmin
		h.Log.Info("user promoted", "user_id", u.ID)
	}

	if err := h.issue(c, u, http.StatusOK); err != nil {
		return err
	}
	h.kick(u.ID, service.TriggerLogin)
	return nil
}

// validRefresh resolves the owner of a refresh token; ok is false when the
// token is unknown, expired, revoked or its user is gone.
func (h *AuthHandler) validRefresh(c echo.Context, raw string) (model.User, bool, error) {
	ctx, cancel := reqCtx(c)
	defer cancel()
	userID, err := h.Tokens.ValidateRefresh(ctx, utils.HashRefreshRaw(raw), h.Now())
	if err != nil {
		if errors.Is(err, repository.ErrTokenInvalid) {
			return model.User{}, false, nil
		}
		return model.User{}, false, err
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, false, nil
		}
		return model.User{}, false, err
	}
	return u, u.IsActive, nil
}

// Refresh validates by hash, revokes the old token and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}
	raw := strings.TrimSpace(req.RefreshToken)
	u, ok, err := h.validRefresh(c, raw)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw)); err != nil {
		return fail(c, h.Log, err)
	}
	return h.issue(c, u, http.StatusOK)
}

// RefreshAccess returns a new access token WITHOUT rotating the refresh
// token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}
	u, ok, err := h.validRefresh(c, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return fail(c, h.Log, err)
	}
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin, h.Now())
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Logout supports two modes.  With a refresh_token in the body that single
// session is revoked.  With only a valid Bearer access token every refresh
// token of the user is revoked.  Either way the user's states are
// recomputed and synced in the background.
func (h *AuthHandler) Logout(c echo.Context) error {
	var (
		uid       uint64
		hasBearer bool
	)
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer ")); err == nil {
			uid, _ = claims.UserID()
			hasBearer = true
		}
	}

	// Invalid JSON leaves the token empty; the bearer may still suffice.
	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := reqCtx(c)
	defer cancel()

	switch {
	case refreshToken != "":
		hash := utils.HashRefreshRaw(refreshToken)
		owner, err := h.Tokens.ValidateRefresh(ctx, hash, h.Now())
		if err != nil {
			if errors.Is(err, repository.ErrTokenInvalid) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
			}
			return fail(c, h.Log, err)
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return fail(c, h.Log, err)
		}
		uid = owner
	case hasBearer:
		if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
			return fail(c, h.Log, err)
		}
	default:
		return badRequest(c, "provide Authorization header or refresh_token")
	}

	h.kick(uid, service.TriggerLogout)
	return c.NoContent(http.StatusNoContent)
}
