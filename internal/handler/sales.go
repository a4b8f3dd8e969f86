package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/market-sales/internal/model"
	"github.com/iliyamo/market-sales/internal/service"
)

// SalesHandler records tickets and expenses of a mercadillo.
type SalesHandler struct {
	Svc SalesAPI
	Log *slog.Logger
}

func NewSalesHandler(svc SalesAPI, log *slog.Logger) *SalesHandler {
	return &SalesHandler{Svc: svc, Log: orDefault(log)}
}

type ticketLineReq struct {
	ArticleID   *string             `json:"article_id"`
	Description string              `json:"description"`
	Quantity    int                 `json:"quantity"`
	UnitPrice   decimal.NullDecimal `json:"unit_price"`
}

type ticketReq struct {
	PaymentMethod string          `json:"payment_method"`
	Lines         []ticketLineReq `json:"lines"`
}

type expenseReq struct {
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
}

func (h *SalesHandler) CreateTicket(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req ticketReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	in := service.TicketInput{PaymentMethod: req.PaymentMethod, Lines: make([]service.TicketLineInput, 0, len(req.Lines))}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, service.TicketLineInput{
			ArticleID:   l.ArticleID,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Svc.CreateTicket(ctx, uid, c.Param("id"), in)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *SalesHandler) ListTickets(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.Svc.ListTickets(ctx, uid, c.Param("id"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	if list == nil {
		list = []model.Ticket{}
	}
	return c.JSON(http.StatusOK, list)
}

func (h *SalesHandler) DeleteTicket(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Svc.DeleteTicket(ctx, uid, c.Param("id")); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SalesHandler) AddExpense(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req expenseReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	e, err := h.Svc.AddExpense(ctx, uid, c.Param("id"), service.ExpenseInput{
		Description:   req.Description,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *SalesHandler) ListExpenses(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.Svc.ListExpenses(ctx, uid, c.Param("id"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	if list == nil {
		list = []model.Expense{}
	}
	return c.JSON(http.StatusOK, list)
}

func (h *SalesHandler) DeleteExpense(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Svc.DeleteExpense(ctx, uid, c.Param("id")); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
