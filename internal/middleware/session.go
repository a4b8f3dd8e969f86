package middleware

import (
    "context"
    "log/slog"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/market-sales/internal/model"
    "github.com/iliyamo/market-sales/internal/session"
)

// SettingsReader is satisfied by *repository.SettingsRepo.
type SettingsReader interface {
    Get(ctx context.Context, userID uint64) (model.UserSettings, error)
}

// Session loads the caller's settings once per request and stores the
// resulting immutable session.Session in the context.  It must run after
// JWTAuth.
func Session(settings SettingsReader, log *slog.Logger) echo.MiddlewareFunc {
    if log == nil {
        log = slog.Default()
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            uid, ok := UserID(c)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
            }
            ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
            defer cancel()

            s, err := settings.Get(ctx, uid)
            if err != nil {
                log.Error("load settings failed", "user_id", uid, "error", err)
                return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load session failed"})
            }
            c.Set(ctxSession, session.New(uid, Role(c), s))
            return next(c)
        }
    }
}
