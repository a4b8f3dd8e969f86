package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/market-sales/internal/model"
	"github.com/iliyamo/market-sales/internal/queue"
)

// MercadilloStore is the persistence the services need for events. It is
// satisfied by *repository.MercadilloRepo.
type MercadilloStore interface {
	Create(ctx context.Context, m *model.Mercadillo) error
	GetByID(ctx context.Context, userID uint64, id string) (*model.Mercadillo, error)
	List(ctx context.Context, userID uint64, f model.MercadilloFilter) ([]model.Mercadillo, error)
	Update(ctx context.Context, m *model.Mercadillo) error
	CountUpcoming(ctx context.Context, userID uint64, today string) (int, error)
	ListForRecompute(ctx context.Context, userID uint64, since string) ([]model.Mercadillo, error)
	UserIDs(ctx context.Context) ([]uint64, error)
}

type TicketStore interface {
	Create(ctx context.Context, t *model.Ticket) error
	GetByID(ctx context.Context, userID uint64, id string) (*model.Ticket, error)
	ListByMercadillo(ctx context.Context, userID uint64, mercadilloID string) ([]model.Ticket, error)
	Delete(ctx context.Context, userID uint64, id string) error
	SalesTotals(ctx context.Context, mercadilloID string) (total, cash decimal.Decimal, count int, err error)
}

type ExpenseStore interface {
	Create(ctx context.Context, e *model.Expense) error
	GetByID(ctx context.Context, userID uint64, id string) (*model.Expense, error)
	ListByMercadillo(ctx context.Context, userID uint64, mercadilloID string) ([]model.Expense, error)
	Delete(ctx context.Context, userID uint64, id string) error
	ExpenseTotals(ctx context.Context, mercadilloID string) (total, cash decimal.Decimal, err error)
}

type SavedBalanceStore interface {
	Create(ctx context.Context, b *model.SavedBalance) error
	GetByID(ctx context.Context, userID uint64, id string) (*model.SavedBalance, error)
	Active(ctx context.Context, userID uint64) (*model.SavedBalance, error)
	ActiveForOrigin(ctx context.Context, userID uint64, originID string) (*model.SavedBalance, error)
	MarkConsumed(ctx context.Context, userID uint64, id, targetID string) error
}

// SavedOriginLookup finds the unconsumed saved balance of an origin event.
type SavedOriginLookup interface {
	ActiveForOrigin(ctx context.Context, userID uint64, originID string) (*model.SavedBalance, error)
}

type CategoryStore interface {
	Create(ctx context.Context, c *model.Category) error
	GetByID(ctx context.Context, userID uint64, id string) (*model.Category, error)
	List(ctx context.Context, userID uint64, includeInactive bool) ([]model.Category, error)
	Update(ctx context.Context, c *model.Category) error
}

type ArticleStore interface {
	Create(ctx context.Context, a *model.Article) error
	GetByID(ctx context.Context, userID uint64, id string) (*model.Article, error)
	List(ctx context.Context, userID uint64, categoryID string, includeInactive bool) ([]model.Article, error)
	Update(ctx context.Context, a *model.Article) error
}

type SettingsStore interface {
	Get(ctx context.Context, userID uint64) (model.UserSettings, error)
	Upsert(ctx context.Context, s model.UserSettings) error
	ExtendPremium(ctx context.Context, userID uint64, now time.Time, months int) (time.Time, error)
}

// EventPublisher is satisfied by *queue.Publisher. Publishing is best effort.
type EventPublisher interface {
	PublishStateChanged(ctx context.Context, ev queue.StateChangedEvent) error
}

// Recorder is satisfied by *metrics.Metrics.
type Recorder interface {
	RecordTransition(from, to string)
	RecordRecompute(trigger string, d time.Duration, changed int, err error)
	RecordDiscrepancy(abs float64)
}

type nopPublisher struct{}

func (nopPublisher) PublishStateChanged(context.Context, queue.StateChangedEvent) error { return nil }

type nopRecorder struct{}

func (nopRecorder) RecordTransition(string, string) {}
func (nopRecorder) RecordRecompute(string, time.Duration, int, error) {}
func (nopRecorder) RecordDiscrepancy(float64) {}
