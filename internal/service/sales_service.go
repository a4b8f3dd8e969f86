package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jaevor/go-nanoid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/market-sales/internal/lifecycle"
	"github.com/iliyamo/market-sales/internal/model"
)

const ticketCodeLen = 12

// TicketLineInput is one line of a new ticket. When ArticleID is set and
// UnitPrice is not, the article's price is used.
type TicketLineInput struct {
	ArticleID   *string
	Description string
	Quantity    int
	UnitPrice   decimal.NullDecimal
}

type TicketInput struct {
	PaymentMethod string
	Lines         []TicketLineInput
}

type ExpenseInput struct {
	Description   string
	Amount        decimal.Decimal
	PaymentMethod string
}

// SalesService records tickets and expenses against a mercadillo and keeps
// its totals in step.
type SalesService struct {
	tickets     TicketStore
	expenses    ExpenseStore
	articles    ArticleStore
	mercadillos *MercadilloService
	code        func() string
	log         *slog.Logger
}

func NewSalesService(tickets TicketStore, expenses ExpenseStore, articles ArticleStore, mercadillos *MercadilloService, log *slog.Logger) (*SalesService, error) {
	gen, err := nanoid.Standard(ticketCodeLen)
	if err != nil {
		return nil, fmt.Errorf("ticket code generator: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &SalesService{
		tickets:     tickets,
		expenses:    expenses,
		articles:    articles,
		mercadillos: mercadillos,
		code:        gen,
		log:         log,
	}, nil
}

// CreateTicket records a sale. Sales are only accepted while the event is
// in progress, evaluated against the current time.
func (s *SalesService) CreateTicket(ctx context.Context, userID uint64, mercadilloID string, in TicketInput) (*model.Ticket, error) {
	method, ok := model.ParsePaymentMethod(in.PaymentMethod)
	if !ok {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrValidation, in.PaymentMethod)
	}
	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("%w: a ticket needs at least one line", ErrValidation)
	}
	m, err := s.mercadillos.Get(ctx, userID, mercadilloID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanReceiveSales(m.State) {
		return nil, fmt.Errorf("%w: a %s mercadillo cannot receive sales", ErrInvalidState, m.State)
	}

	t := &model.Ticket{
		ID:            uuid.New().String(),
		UserID:        userID,
		MercadilloID:  mercadilloID,
		Code:          s.code(),
		PaymentMethod: method,
		Total:         decimal.Zero,
		CreatedAt:     s.mercadillos.now().UTC(),
	}
	for i, li := range in.Lines {
		line, err := s.line(ctx, userID, li)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		line.TicketID = t.ID
		t.Total = t.Total.Add(line.Subtotal)
		t.Lines = append(t.Lines, line)
	}
	if err := s.tickets.Create(ctx, t); err != nil {
		return nil, err
	}
	if _, err := s.mercadillos.RecomputeTotals(ctx, userID, mercadilloID); err != nil {
		return nil, fmt.Errorf("recompute totals: %w", err)
	}
	s.log.Info("ticket created", "user_id", userID, "mercadillo_id", mercadilloID, "code", t.Code, "total", t.Total.String())
	return t, nil
}

func (s *SalesService) line(ctx context.Context, userID uint64, in TicketLineInput) (model.TicketLine, error) {
	l := model.TicketLine{
		ID:          uuid.New().String(),
		ArticleID:   in.ArticleID,
		Description: strings.TrimSpace(in.Description),
		Quantity:    in.Quantity,
	}
	if l.Quantity <= 0 {
		return l, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if in.ArticleID != nil {
		a, err := s.articles.GetByID(ctx, userID, *in.ArticleID)
		if err != nil {
			return l, fmt.Errorf("article %s: %w", *in.ArticleID, err)
		}
		if !in.UnitPrice.Valid {
			in.UnitPrice = decimal.NewNullDecimal(a.Price)
		}
		if l.Description == "" {
			l.Description = a.Name
		}
	}
	if !in.UnitPrice.Valid {
		return l, fmt.Errorf("%w: unit_price is required without an article", ErrValidation)
	}
	if in.UnitPrice.Decimal.IsNegative() {
		return l, fmt.Errorf("%w: unit_price must not be negative", ErrValidation)
	}
	if l.Description == "" {
		return l, fmt.Errorf("%w: description is required", ErrValidation)
	}
	l.UnitPrice = in.UnitPrice.Decimal
	l.Subtotal = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
	return l, nil
}

func (s *SalesService) ListTickets(ctx context.Context, userID uint64, mercadilloID string) ([]model.Ticket, error) {
	if _, err := s.mercadillos.repo.GetByID(ctx, userID, mercadilloID); err != nil {
		return nil, err
	}
	return s.tickets.ListByMercadillo(ctx, userID, mercadilloID)
}

// DeleteTicket removes a sale while the event is in progress or waiting for
// its cash count.
func (s *SalesService) DeleteTicket(ctx context.Context, userID uint64, ticketID string) error {
	t, err := s.tickets.GetByID(ctx, userID, ticketID)
	if err != nil {
		return err
	}
	m, err := s.mercadillos.Get(ctx, userID, t.MercadilloID)
	if err != nil {
		return err
	}
	switch m.State {
	case lifecycle.InProgress, lifecycle.PendingCashCount:
	default:
		return fmt.Errorf("%w: tickets of a %s mercadillo cannot be deleted", ErrInvalidState, m.State)
	}
	if err := s.tickets.Delete(ctx, userID, ticketID); err != nil {
		return err
	}
	_, err = s.mercadillos.RecomputeTotals(ctx, userID, t.MercadilloID)
	return err
}

func expensesAllowed(st lifecycle.State) bool {
	return st != lifecycle.Closed && st != lifecycle.Cancelled
}

// AddExpense records a cost while the event is neither closed nor cancelled.
func (s *SalesService) AddExpense(ctx context.Context, userID uint64, mercadilloID string, in ExpenseInput) (*model.Expense, error) {
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrValidation)
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	method, ok := model.ParsePaymentMethod(in.PaymentMethod)
	if !ok {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrValidation, in.PaymentMethod)
	}
	m, err := s.mercadillos.Get(ctx, userID, mercadilloID)
	if err != nil {
		return nil, err
	}
	if !expensesAllowed(m.State) {
		return nil, fmt.Errorf("%w: a %s mercadillo cannot take expenses", ErrInvalidState, m.State)
	}
	e := &model.Expense{
		ID:            uuid.New().String(),
		UserID:        userID,
		MercadilloID:  mercadilloID,
		Description:   in.Description,
		Amount:        in.Amount,
		PaymentMethod: method,
		CreatedAt:     s.mercadillos.now().UTC(),
	}
	if err := s.expenses.Create(ctx, e); err != nil {
		return nil, err
	}
	if _, err := s.mercadillos.RecomputeTotals(ctx, userID, mercadilloID); err != nil {
		return nil, fmt.Errorf("recompute totals: %w", err)
	}
	return e, nil
}

func (s *SalesService) ListExpenses(ctx context.Context, userID uint64, mercadilloID string) ([]model.Expense, error) {
	if _, err := s.mercadillos.repo.GetByID(ctx, userID, mercadilloID); err != nil {
		return nil, err
	}
	return s.expenses.ListByMercadillo(ctx, userID, mercadilloID)
}

func (s *SalesService) DeleteExpense(ctx context.Context, userID uint64, expenseID string) error {
	e, err := s.expenses.GetByID(ctx, userID, expenseID)
	if err != nil {
		return err
	}
	m, err := s.mercadillos.Get(ctx, userID, e.MercadilloID)
	if err != nil {
		return err
	}
	if !expensesAllowed(m.State) {
		return fmt.Errorf("%w: expenses of a %s mercadillo cannot be deleted", ErrInvalidState, m.State)
	}
	if err := s.expenses.Delete(ctx, userID, expenseID); err != nil {
		return err
	}
	_, err = s.mercadillos.RecomputeTotals(ctx, userID, e.MercadilloID)
	return err
}
