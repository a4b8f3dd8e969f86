package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/market-sales/internal/middleware"
	"github.com/iliyamo/market-sales/internal/service"
	"github.com/iliyamo/market-sales/internal/session"
)

// SettingsHandler serves preferences and the premium entitlement.
type SettingsHandler struct {
	Svc SettingsAPI
	Log *slog.Logger
	Now func() time.Time
}

func NewSettingsHandler(svc SettingsAPI, log *slog.Logger) *SettingsHandler {
	return &SettingsHandler{Svc: svc, Log: orDefault(log), Now: time.Now}
}

type settingsReq struct {
	Theme  string `json:"theme"`
	Locale string `json:"locale"`
}

type premiumReq struct {
	Months int `json:"months"`
}

// Get returns the session as seen now: settings plus the derived premium
// and ads flags.
func (h *SettingsHandler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, middleware.SessionFrom(c).View(h.Now()))
}

func (h *SettingsHandler) Update(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req settingsReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Svc.Update(ctx, uid, service.SettingsInput{Theme: req.Theme, Locale: req.Locale})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, session.New(uid, middleware.Role(c), s).View(h.Now()))
}

// ActivatePremium extends the entitlement by the purchased months. Payment
// verification happens outside this service.
func (h *SettingsHandler) ActivatePremium(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req premiumReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	until, err := h.Svc.ActivatePremium(ctx, uid, req.Months)
	if err != nil {
		return fail(c, h.Log, err)
	}
	h.Log.Info("premium activated", "user_id", uid, "months", req.Months, "until", until)
	return c.JSON(http.StatusOK, echo.Map{"premium": true, "premium_until": until})
}
