package middleware

// identity.go holds the context keys written by JWTAuth and Session and the
// accessors handlers use to read them back.

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/market-sales/internal/session"
)

const (
    ctxUserID  = "user_id"
    ctxRole    = "role"
    ctxSession = "session"
)

// UserID returns the authenticated user id.  ok is false on routes not
// behind JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(ctxUserID).(uint64)
    return id, ok && id != 0
}

// Role returns the role claim of the access token, or "".
func Role(c echo.Context) string {
    r, _ := c.Get(ctxRole).(string)
    return r
}

// SessionFrom returns the session built by the Session middleware.  Without
// it a minimal session is derived from the token claims.
func SessionFrom(c echo.Context) session.Session {
    if s, ok := c.Get(ctxSession).(session.Session); ok {
        return s
    }
    id, _ := UserID(c)
    return session.Session{UserID: id, Role: Role(c)}
}

// userKey renders the caller for cache and rate limit keys.  Anonymous
// requests share the "anon" bucket.
func userKey(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
