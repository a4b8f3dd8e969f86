package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/market-sales/internal/lifecycle"
	"github.com/iliyamo/market-sales/internal/model"
	"github.com/iliyamo/market-sales/internal/queue"
	"github.com/iliyamo/market-sales/internal/repository"
)

// In-memory stores mirroring the SQL repositories closely enough for the
// service rules to be exercised without a database.

type memMercadillos struct {
	mu         sync.Mutex
	rows       map[string]model.Mercadillo
	failUpdate map[string]error
}

func newMemMercadillos() *memMercadillos {
	return &memMercadillos{rows: map[string]model.Mercadillo{}, failUpdate: map[string]error{}}
}

func (r *memMercadillos) put(m model.Mercadillo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[m.ID] = m
}

func (r *memMercadillos) get(id string) model.Mercadillo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id]
}

func (r *memMercadillos) Create(_ context.Context, m *model.Mercadillo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[m.ID]; ok {
		return repository.ErrConflict
	}
	r.rows[m.ID] = *m
	return nil
}

func (r *memMercadillos) GetByID(_ context.Context, userID uint64, id string) (*model.Mercadillo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok || m.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r *memMercadillos) List(_ context.Context, userID uint64, f model.MercadilloFilter) ([]model.Mercadillo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Mercadillo
	for _, m := range r.rows {
		switch {
		case m.UserID != userID,
			!f.IncludeInactive && !m.Active,
			f.From != "" && m.Date < f.From,
			f.To != "" && m.Date > f.To,
			f.State != 0 && m.State != f.State:
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (r *memMercadillos) Update(_ context.Context, m *model.Mercadillo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failUpdate[m.ID]; err != nil {
		return err
	}
	cur, ok := r.rows[m.ID]
	if !ok || cur.UserID != m.UserID {
		return repository.ErrNotFound
	}
	r.rows[m.ID] = *m
	return nil
}

func (r *memMercadillos) CountUpcoming(_ context.Context, userID uint64, today string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.rows {
		if m.UserID == userID && m.Active && m.State != lifecycle.Cancelled && m.Date >= today {
			n++
		}
	}
	return n, nil
}

func (r *memMercadillos) ListForRecompute(_ context.Context, userID uint64, since string) ([]model.Mercadillo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Mercadillo
	for _, m := range r.rows {
		if m.UserID != userID || !m.Active || m.State == lifecycle.Cancelled {
			continue
		}
		switch {
		case m.Date >= since,
			m.State == lifecycle.InProgress,
			m.State == lifecycle.FullyScheduled,
			m.State == lifecycle.PartiallyScheduled:
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memMercadillos) UserIDs(context.Context) ([]uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[uint64]bool{}
	var out []uint64
	for _, m := range r.rows {
		if m.Active && !seen[m.UserID] {
			seen[m.UserID] = true
			out = append(out, m.UserID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

type memTickets struct {
	mu   sync.Mutex
	rows map[string]model.Ticket
}

func newMemTickets() *memTickets { return &memTickets{rows: map[string]model.Ticket{}} }

func (r *memTickets) Create(_ context.Context, t *model.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[t.ID] = *t
	return nil
}

func (r *memTickets) GetByID(_ context.Context, userID uint64, id string) (*model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok || t.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *memTickets) ListByMercadillo(_ context.Context, userID uint64, mid string) ([]model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Ticket
	for _, t := range r.rows {
		if t.UserID == userID && t.MercadilloID == mid {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memTickets) Delete(_ context.Context, userID uint64, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok || t.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memTickets) SalesTotals(_ context.Context, mid string) (total, cash decimal.Decimal, count int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.rows {
		if t.MercadilloID != mid {
			continue
		}
		total = total.Add(t.Total)
		if t.PaymentMethod == model.PaymentCash {
			cash = cash.Add(t.Total)
		}
		count++
	}
	return total, cash, count, nil
}

type memExpenses struct {
	mu   sync.Mutex
	rows map[string]model.Expense
}

func newMemExpenses() *memExpenses { return &memExpenses{rows: map[string]model.Expense{}} }

func (r *memExpenses) Create(_ context.Context, e *model.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[e.ID] = *e
	return nil
}

func (r *memExpenses) GetByID(_ context.Context, userID uint64, id string) (*model.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rows[id]
	if !ok || e.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r *memExpenses) ListByMercadillo(_ context.Context, userID uint64, mid string) ([]model.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Expense
	for _, e := range r.rows {
		if e.UserID == userID && e.MercadilloID == mid {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memExpenses) Delete(_ context.Context, userID uint64, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rows[id]
	if !ok || e.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memExpenses) ExpenseTotals(_ context.Context, mid string) (total, cash decimal.Decimal, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.rows {
		if e.MercadilloID != mid {
			continue
		}
		total = total.Add(e.Amount)
		if e.PaymentMethod == model.PaymentCash {
			cash = cash.Add(e.Amount)
		}
	}
	return total, cash, nil
}

type memSaved struct {
	mu          sync.Mutex
	rows        map[string]model.SavedBalance
	failConsume error
}

func newMemSaved() *memSaved { return &memSaved{rows: map[string]model.SavedBalance{}} }

func (r *memSaved) Create(_ context.Context, b *model.SavedBalance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.CreatedAt = time.Now()
	r.rows[b.ID] = *b
	return nil
}

func (r *memSaved) GetByID(_ context.Context, userID uint64, id string) (*model.SavedBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.rows[id]
	if !ok || b.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (r *memSaved) find(match func(model.SavedBalance) bool) (*model.SavedBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *model.SavedBalance
	for _, b := range r.rows {
		if !b.Consumed && match(b) && (best == nil || b.CreatedAt.After(best.CreatedAt)) {
			b := b
			best = &b
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return best, nil
}

func (r *memSaved) Active(_ context.Context, userID uint64) (*model.SavedBalance, error) {
	return r.find(func(b model.SavedBalance) bool { return b.UserID == userID })
}

func (r *memSaved) ActiveForOrigin(_ context.Context, userID uint64, originID string) (*model.SavedBalance, error) {
	return r.find(func(b model.SavedBalance) bool { return b.UserID == userID && b.OriginMercadilloID == originID })
}

func (r *memSaved) MarkConsumed(_ context.Context, userID uint64, id, targetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failConsume != nil {
		return r.failConsume
	}
	b, ok := r.rows[id]
	if !ok || b.UserID != userID {
		return repository.ErrNotFound
	}
	if b.Consumed {
		return repository.ErrConflict
	}
	b.Consumed = true
	b.ConsumedByMercadilloID = &targetID
	b.Version++
	b.SyncPending = true
	r.rows[id] = b
	return nil
}

type memCategories struct {
	mu   sync.Mutex
	rows map[string]model.Category
}

func newMemCategories() *memCategories { return &memCategories{rows: map[string]model.Category{}} }

func (r *memCategories) Create(_ context.Context, c *model.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[c.ID] = *c
	return nil
}

func (r *memCategories) GetByID(_ context.Context, userID uint64, id string) (*model.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok || c.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *memCategories) List(_ context.Context, userID uint64, includeInactive bool) ([]model.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Category
	for _, c := range r.rows {
		if c.UserID == userID && (includeInactive || c.Active) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memCategories) Update(_ context.Context, c *model.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[c.ID]; !ok {
		return repository.ErrNotFound
	}
	r.rows[c.ID] = *c
	return nil
}

type memArticles struct {
	mu   sync.Mutex
	rows map[string]model.Article
}

func newMemArticles() *memArticles { return &memArticles{rows: map[string]model.Article{}} }

func (r *memArticles) Create(_ context.Context, a *model.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[a.ID] = *a
	return nil
}

func (r *memArticles) GetByID(_ context.Context, userID uint64, id string) (*model.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok || a.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *memArticles) List(_ context.Context, userID uint64, categoryID string, includeInactive bool) ([]model.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Article
	for _, a := range r.rows {
		if a.UserID != userID || (!includeInactive && !a.Active) {
			continue
		}
		if categoryID != "" && (a.CategoryID == nil || *a.CategoryID != categoryID) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *memArticles) Update(_ context.Context, a *model.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[a.ID]; !ok {
		return repository.ErrNotFound
	}
	r.rows[a.ID] = *a
	return nil
}

type memSettings struct {
	mu   sync.Mutex
	rows map[uint64]model.UserSettings
}

func newMemSettings() *memSettings { return &memSettings{rows: map[uint64]model.UserSettings{}} }

func (r *memSettings) Get(_ context.Context, userID uint64) (model.UserSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.rows[userID]; ok {
		return s, nil
	}
	return model.DefaultSettings(userID), nil
}

func (r *memSettings) Upsert(_ context.Context, s model.UserSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[s.UserID] = s
	return nil
}

func (r *memSettings) ExtendPremium(ctx context.Context, userID uint64, now time.Time, months int) (time.Time, error) {
	s, _ := r.Get(ctx, userID)
	base := now.UTC()
	if s.PremiumUntil != nil && s.PremiumUntil.After(base) {
		base = *s.PremiumUntil
	}
	until := base.AddDate(0, months, 0)
	s.PremiumUntil = &until
	return until, r.Upsert(ctx, s)
}

type recordedPublisher struct {
	mu     sync.Mutex
	events []queue.StateChangedEvent
	err    error
}

func (p *recordedPublisher) PublishStateChanged(_ context.Context, ev queue.StateChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type recordedMetrics struct {
	mu           sync.Mutex
	transitions []string
	recomputes  []string
	discrepancy []float64
}

func (m *recordedMetrics) RecordTransition(from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, from+">"+to)
}

func (m *recordedMetrics) RecordRecompute(trigger string, _ time.Duration, _ int, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recomputes = append(m.recomputes, trigger)
}

func (m *recordedMetrics) RecordDiscrepancy(abs float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discrepancy = append(m.discrepancy, abs)
}
