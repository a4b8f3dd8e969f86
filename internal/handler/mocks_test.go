package handler

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/market-sales/internal/model"
	"github.com/iliyamo/market-sales/internal/repository"
	"github.com/iliyamo/market-sales/internal/service"
	"github.com/iliyamo/market-sales/internal/utils"
)

type mercadilloMock struct{ mock.Mock }

func mercadilloOrNil(v any) *model.Mercadillo {
	m, _ := v.(*model.Mercadillo)
	return m
}

func summaryOrNil(v any) *model.CashSummary {
	s, _ := v.(*model.CashSummary)
	return s
}

func (m *mercadilloMock) Create(ctx context.Context, userID uint64, in service.MercadilloInput) (*model.Mercadillo, error) {
	args := m.Called(ctx, userID, in)
	return mercadilloOrNil(args.Get(0)), args.Error(1)
}

func (m *mercadilloMock) Get(ctx context.Context, userID uint64, id string) (*model.Mercadillo, error) {
	args := m.Called(ctx, userID, id)
	return mercadilloOrNil(args.Get(0)), args.Error(1)
}

func (m *mercadilloMock) List(ctx context.Context, userID uint64, f model.MercadilloFilter) ([]model.Mercadillo, error) {
	args := m.Called(ctx, userID, f)
	list, _ := args.Get(0).([]model.Mercadillo)
	return list, args.Error(1)
}

func (m *mercadilloMock) Update(ctx context.Context, userID uint64, id string, in service.MercadilloInput) (*model.Mercadillo, error) {
	args := m.Called(ctx, userID, id, in)
	return mercadilloOrNil(args.Get(0)), args.Error(1)
}

func (m *mercadilloMock) Deactivate(ctx context.Context, userID uint64, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *mercadilloMock) AssignInitialBalance(ctx context.Context, userID uint64, id string, amount decimal.Decimal) (*model.Mercadillo, error) {
	args := m.Called(ctx, userID, id, amount.String())
	return mercadilloOrNil(args.Get(0)), args.Error(1)
}

func (m *mercadilloMock) Cancel(ctx context.Context, userID uint64, id string) (*model.Mercadillo, error) {
	args := m.Called(ctx, userID, id)
	return mercadilloOrNil(args.Get(0)), args.Error(1)
}

func (m *mercadilloMock) PerformCashCount(ctx context.Context, userID uint64, id string, counted decimal.Decimal) (*model.CashSummary, error) {
	args := m.Called(ctx, userID, id, counted.String())
	return summaryOrNil(args.Get(0)), args.Error(1)
}

func (m *mercadilloMock) CloseWithoutCarryOver(ctx context.Context, userID uint64, id string) (*model.Mercadillo, error) {
	args := m.Called(ctx, userID, id)
	return mercadilloOrNil(args.Get(0)), args.Error(1)
}

func (m *mercadilloMock) Summary(ctx context.Context, userID uint64, id string) (*model.CashSummary, error) {
	args := m.Called(ctx, userID, id)
	return summaryOrNil(args.Get(0)), args.Error(1)
}

func (m *mercadilloMock) Calendar(ctx context.Context, userID uint64, from, to string) ([]model.CalendarDay, error) {
	args := m.Called(ctx, userID, from, to)
	days, _ := args.Get(0).([]model.CalendarDay)
	return days, args.Error(1)
}

func (m *mercadilloMock) RecomputeStates(ctx context.Context, userID uint64, trigger string) (service.RecomputeReport, error) {
	args := m.Called(ctx, userID, trigger)
	return args.Get(0).(service.RecomputeReport), args.Error(1)
}

func (m *mercadilloMock) RecomputeAll(ctx context.Context, trigger string) (service.RecomputeReport, error) {
	args := m.Called(ctx, trigger)
	return args.Get(0).(service.RecomputeReport), args.Error(1)
}

type balanceMock struct{ mock.Mock }

func (m *balanceMock) Save(ctx context.Context, userID uint64, originID string) (*model.SavedBalance, error) {
	args := m.Called(ctx, userID, originID)
	b, _ := args.Get(0).(*model.SavedBalance)
	return b, args.Error(1)
}

func (m *balanceMock) Active(ctx context.Context, userID uint64) (*model.SavedBalance, error) {
	args := m.Called(ctx, userID)
	b, _ := args.Get(0).(*model.SavedBalance)
	return b, args.Error(1)
}

func (m *balanceMock) Consume(ctx context.Context, userID uint64, savedID, targetID string) (*model.Mercadillo, error) {
	args := m.Called(ctx, userID, savedID, targetID)
	return mercadilloOrNil(args.Get(0)), args.Error(1)
}

func (m *balanceMock) Transfer(ctx context.Context, userID uint64, originID, targetID string) (*model.Mercadillo, error) {
	args := m.Called(ctx, userID, originID, targetID)
	return mercadilloOrNil(args.Get(0)), args.Error(1)
}

type salesMock struct{ mock.Mock }

func (m *salesMock) CreateTicket(ctx context.Context, userID uint64, mercadilloID string, in service.TicketInput) (*model.Ticket, error) {
	args := m.Called(ctx, userID, mercadilloID, in)
	t, _ := args.Get(0).(*model.Ticket)
	return t, args.Error(1)
}

func (m *salesMock) ListTickets(ctx context.Context, userID uint64, mercadilloID string) ([]model.Ticket, error) {
	args := m.Called(ctx, userID, mercadilloID)
	list, _ := args.Get(0).([]model.Ticket)
	return list, args.Error(1)
}

func (m *salesMock) DeleteTicket(ctx context.Context, userID uint64, ticketID string) error {
	return m.Called(ctx, userID, ticketID).Error(0)
}

func (m *salesMock) AddExpense(ctx context.Context, userID uint64, mercadilloID string, in service.ExpenseInput) (*model.Expense, error) {
	args := m.Called(ctx, userID, mercadilloID, in.Description, in.Amount.String(), in.PaymentMethod)
	e, _ := args.Get(0).(*model.Expense)
	return e, args.Error(1)
}

func (m *salesMock) ListExpenses(ctx context.Context, userID uint64, mercadilloID string) ([]model.Expense, error) {
	args := m.Called(ctx, userID, mercadilloID)
	list, _ := args.Get(0).([]model.Expense)
	return list, args.Error(1)
}

func (m *salesMock) DeleteExpense(ctx context.Context, userID uint64, expenseID string) error {
	return m.Called(ctx, userID, expenseID).Error(0)
}

// memUsers and memTokens back the auth handler tests.
type memUsers struct {
	mu    sync.Mutex
	next  uint64
	byID  map[uint64]model.User
	roles []string
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uint64]model.User{}} }

func (r *memUsers) Create(_ context.Context, email, password, role string, cost int) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	r.next++
	r.byID[r.next] = model.User{ID: r.next, Email: email, PasswordHash: hash, Role: role, IsActive: true}
	return r.next, nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (r *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (r *memUsers) SetRole(_ context.Context, id uint64, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.byID[id]
	u.Role = role
	r.byID[id] = u
	r.roles = append(r.roles, role)
	return nil
}

type memToken struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

type memTokens struct {
	mu   sync.Mutex
	rows map[string]*memToken
}

func newMemTokens() *memTokens { return &memTokens{rows: map[string]*memToken{}} }

func (r *memTokens) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[hash] = &memToken{userID: userID, exp: exp}
	return nil
}

func (r *memTokens) ValidateRefresh(_ context.Context, hash string, now time.Time) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[hash]
	if !ok || t.revoked || !now.Before(t.exp) {
		return 0, repository.ErrTokenInvalid
	}
	return t.userID, nil
}

func (r *memTokens) RevokeByHash(_ context.Context, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.rows[hash]; ok {
		t.revoked = true
	}
	return nil
}

func (r *memTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.rows {
		if t.userID == userID {
			t.revoked = true
		}
	}
	return nil
}

func (r *memTokens) live(userID uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.rows {
		if t.userID == userID && !t.revoked {
			n++
		}
	}
	return n
}

type kick struct {
	userID  uint64
	trigger string
}

type hookRecorder struct{ kicks []kick }

func (h *hookRecorder) Kick(userID uint64, trigger string) {
	h.kicks = append(h.kicks, kick{userID, trigger})
}
