package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/market-sales/internal/lifecycle"
	"github.com/iliyamo/market-sales/internal/model"
	"github.com/iliyamo/market-sales/internal/service"
)

// MercadilloHandler exposes the event lifecycle: CRUD, balance assignment,
// cash count, closing and carry-over of the final balance.
type MercadilloHandler struct {
	Svc      MercadilloAPI
	Balances BalanceAPI
	Log      *slog.Logger
}

func NewMercadilloHandler(svc MercadilloAPI, balances BalanceAPI, log *slog.Logger) *MercadilloHandler {
	return &MercadilloHandler{Svc: svc, Balances: balances, Log: orDefault(log)}
}

type mercadilloReq struct {
	Name            string              `json:"name"`
	Place           string              `json:"place"`
	Date            string              `json:"date"`
	StartTime       string              `json:"start_time"`
	EndTime         string              `json:"end_time"`
	FreeEntry       bool                `json:"free_entry"`
	SubscriptionFee decimal.Decimal     `json:"subscription_fee"`
	InitialBalance  decimal.NullDecimal `json:"initial_balance"`
}

func (r mercadilloReq) input() service.MercadilloInput {
	return service.MercadilloInput{
		Name:            r.Name,
		Place:           r.Place,
		Date:            r.Date,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		FreeEntry:       r.FreeEntry,
		SubscriptionFee: r.SubscriptionFee,
		InitialBalance:  r.InitialBalance,
	}
}

type amountReq struct {
	Amount decimal.Decimal `json:"amount"`
}

type cashCountReq struct {
	Counted decimal.Decimal `json:"counted"`
}

type targetReq struct {
	TargetID string `json:"target_id"`
}

func bindTarget(c echo.Context) (string, bool) {
	var req targetReq
	if err := c.Bind(&req); err != nil {
		return "", false
	}
	id := strings.TrimSpace(req.TargetID)
	return id, id != ""
}

// List supports ?from=&to= (YYYY-MM-DD), ?state=CODE and
// ?include_inactive=true.
func (h *MercadilloHandler) List(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	f := model.MercadilloFilter{From: c.QueryParam("from"), To: c.QueryParam("to")}
	if v := c.QueryParam("state"); v != "" {
		st, err := lifecycle.ParseState(strings.ToUpper(v))
		if err != nil {
			return badRequest(c, "unknown state")
		}
		f.State = st
	}
	if v := c.QueryParam("include_inactive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, "include_inactive must be a boolean")
		}
		f.IncludeInactive = b
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.Svc.List(ctx, uid, f)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if list == nil {
		list = []model.Mercadillo{}
	}
	return c.JSON(http.StatusOK, list)
}

func (h *MercadilloHandler) Create(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req mercadilloReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.Svc.Create(ctx, uid, req.input())
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *MercadilloHandler) Get(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.Svc.Get(ctx, uid, c.Param("id"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *MercadilloHandler) Update(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req mercadilloReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.Svc.Update(ctx, uid, c.Param("id"), req.input())
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Delete deactivates the event; rows are never removed.
func (h *MercadilloHandler) Delete(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Svc.Deactivate(ctx, uid, c.Param("id")); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *MercadilloHandler) AssignInitialBalance(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req amountReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.Svc.AssignInitialBalance(ctx, uid, c.Param("id"), req.Amount)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *MercadilloHandler) Cancel(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.Svc.Cancel(ctx, uid, c.Param("id"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, m)
}

// CashCount records the counted cash (arqueo) and answers with the
// reconciliation summary.
func (h *MercadilloHandler) CashCount(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req cashCountReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	sum, err := h.Svc.PerformCashCount(ctx, uid, c.Param("id"), req.Counted)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, sum)
}

// Close settles a pending balance assignment without carrying it over.
func (h *MercadilloHandler) Close(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.Svc.CloseWithoutCarryOver(ctx, uid, c.Param("id"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Transfer moves the final balance of :id straight into target_id and
// closes :id.
func (h *MercadilloHandler) Transfer(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	target, ok := bindTarget(c)
	if !ok {
		return badRequest(c, "target_id required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.Balances.Transfer(ctx, uid, c.Param("id"), target)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *MercadilloHandler) Summary(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	sum, err := h.Svc.Summary(ctx, uid, c.Param("id"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, sum)
}

// Calendar answers GET /calendar?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *MercadilloHandler) Calendar(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	from, to := c.QueryParam("from"), c.QueryParam("to")
	if from == "" || to == "" {
		return badRequest(c, "from and to are required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	days, err := h.Svc.Calendar(ctx, uid, from, to)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, days)
}

// SaveBalance keeps the final balance of :id aside for a later event.
func (h *MercadilloHandler) SaveBalance(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Balances.Save(ctx, uid, c.Param("id"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *MercadilloHandler) ActiveBalance(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Balances.Active(ctx, uid)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// ConsumeBalance applies saved balance :id to target_id.
func (h *MercadilloHandler) ConsumeBalance(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	target, ok := bindTarget(c)
	if !ok {
		return badRequest(c, "target_id required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.Balances.Consume(ctx, uid, c.Param("id"), target)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, m)
}

// RecomputeStates reclassifies the caller's events now.
func (h *MercadilloHandler) RecomputeStates(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	rep, err := h.Svc.RecomputeStates(c.Request().Context(), uid, service.TriggerManual)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, rep)
}

// RecomputeAll reclassifies the events of every user. Admin only.
func (h *MercadilloHandler) RecomputeAll(c echo.Context) error {
	rep, err := h.Svc.RecomputeAll(c.Request().Context(), service.TriggerManual)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, rep)
}
