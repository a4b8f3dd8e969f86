package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// SyncHandler runs an on-demand soft sync for the caller.
type SyncHandler struct {
	Sync Syncer // nil when sync is disabled or Redis is unavailable
	Log  *slog.Logger
}

func NewSyncHandler(s Syncer, log *slog.Logger) *SyncHandler {
	return &SyncHandler{Sync: s, Log: orDefault(log)}
}

type syncResp struct {
	OK     bool     `json:"ok"`
	Pushed int      `json:"pushed"`
	Pulled int      `json:"pulled"`
	Errors []string `json:"errors"`
}

// Run pushes local changes and pulls newer remote ones. Document errors do
// not fail the request; they are listed in the response.
func (h *SyncHandler) Run(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	if h.Sync == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "sync disabled"})
	}
	res := h.Sync.Sync(c.Request().Context(), uid)
	out := syncResp{OK: len(res.Errors) == 0, Pushed: res.Pushed, Pulled: res.Pulled, Errors: []string{}}
	for _, err := range res.Errors {
		out.Errors = append(out.Errors, err.Error())
	}
	return c.JSON(http.StatusOK, out)
}
