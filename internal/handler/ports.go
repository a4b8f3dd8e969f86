package handler

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/market-sales/internal/model"
	"github.com/iliyamo/market-sales/internal/service"
	"github.com/iliyamo/market-sales/internal/syncer"
)

// UserStore is satisfied by *repository.UserRepo.
type UserStore interface {
	Create(ctx context.Context, email, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	SetRole(ctx context.Context, id uint64, role string) error
}

// TokenStore is satisfied by *repository.TokenRepo.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// SessionHook runs the per-user background work of login and logout. It is
// satisfied by *scheduler.Scheduler.
type SessionHook interface {
	Kick(userID uint64, trigger string)
}

// MercadilloAPI is satisfied by *service.MercadilloService.
type MercadilloAPI interface {
	Create(ctx context.Context, userID uint64, in service.MercadilloInput) (*model.Mercadillo, error)
	Get(ctx context.Context, userID uint64, id string) (*model.Mercadillo, error)
	List(ctx context.Context, userID uint64, f model.MercadilloFilter) ([]model.Mercadillo, error)
	Update(ctx context.Context, userID uint64, id string, in service.MercadilloInput) (*model.Mercadillo, error)
	Deactivate(ctx context.Context, userID uint64, id string) error
	AssignInitialBalance(ctx context.Context, userID uint64, id string, amount decimal.Decimal) (*model.Mercadillo, error)
	Cancel(ctx context.Context, userID uint64, id string) (*model.Mercadillo, error)
	PerformCashCount(ctx context.Context, userID uint64, id string, counted decimal.Decimal) (*model.CashSummary, error)
	CloseWithoutCarryOver(ctx context.Context, userID uint64, id string) (*model.Mercadillo, error)
	Summary(ctx context.Context, userID uint64, id string) (*model.CashSummary, error)
	Calendar(ctx context.Context, userID uint64, from, to string) ([]model.CalendarDay, error)
	RecomputeStates(ctx context.Context, userID uint64, trigger string) (service.RecomputeReport, error)
	RecomputeAll(ctx context.Context, trigger string) (service.RecomputeReport, error)
}

// BalanceAPI is satisfied by *service.BalanceService.
type BalanceAPI interface {
	Save(ctx context.Context, userID uint64, originID string) (*model.SavedBalance, error)
	Active(ctx context.Context, userID uint64) (*model.SavedBalance, error)
	Consume(ctx context.Context, userID uint64, savedID, targetID string) (*model.Mercadillo, error)
	Transfer(ctx context.Context, userID uint64, originID, targetID string) (*model.Mercadillo, error)
}

// SalesAPI is satisfied by *service.SalesService.
type SalesAPI interface {
	CreateTicket(ctx context.Context, userID uint64, mercadilloID string, in service.TicketInput) (*model.Ticket, error)
	ListTickets(ctx context.Context, userID uint64, mercadilloID string) ([]model.Ticket, error)
	DeleteTicket(ctx context.Context, userID uint64, ticketID string) error
	AddExpense(ctx context.Context, userID uint64, mercadilloID string, in service.ExpenseInput) (*model.Expense, error)
	ListExpenses(ctx context.Context, userID uint64, mercadilloID string) ([]model.Expense, error)
	DeleteExpense(ctx context.Context, userID uint64, expenseID string) error
}

// CatalogAPI is satisfied by *service.CatalogService.
type CatalogAPI interface {
	CreateCategory(ctx context.Context, userID uint64, in service.CategoryInput) (*model.Category, error)
	ListCategories(ctx context.Context, userID uint64, includeInactive bool) ([]model.Category, error)
	UpdateCategory(ctx context.Context, userID uint64, id string, in service.CategoryInput) (*model.Category, error)
	DeactivateCategory(ctx context.Context, userID uint64, id string) error
	CreateArticle(ctx context.Context, userID uint64, in service.ArticleInput) (*model.Article, error)
	ListArticles(ctx context.Context, userID uint64, categoryID string, includeInactive bool) ([]model.Article, error)
	UpdateArticle(ctx context.Context, userID uint64, id string, in service.ArticleInput) (*model.Article, error)
	DeactivateArticle(ctx context.Context, userID uint64, id string) error
}

// SettingsAPI is satisfied by *service.SettingsService.
type SettingsAPI interface {
	Get(ctx context.Context, userID uint64) (model.UserSettings, error)
	Update(ctx context.Context, userID uint64, in service.SettingsInput) (model.UserSettings, error)
	ActivatePremium(ctx context.Context, userID uint64, months int) (time.Time, error)
}

// Syncer is satisfied by *syncer.Syncer.
type Syncer interface {
	Sync(ctx context.Context, userID uint64) syncer.Result
}
