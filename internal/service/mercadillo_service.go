package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/market-sales/internal/lifecycle"
	"github.com/iliyamo/market-sales/internal/model"
	"github.com/iliyamo/market-sales/internal/queue"
	"github.com/iliyamo/market-sales/internal/repository"
)

// Recompute triggers, used as metric labels and in published events.
const (
	TriggerStart  = "start"
	TriggerLogin  = "login"
	TriggerLogout = "logout"
	TriggerSync   = "sync"
	TriggerTick   = "tick"
	TriggerManual = "manual"
	TriggerAction = "action"
)

const maxNameLen = 120

// MercadilloDeps wires a MercadilloService. Saved, Events, Metrics, Log,
// Location and Now are optional.
type MercadilloDeps struct {
	Mercadillos     MercadilloStore
	Tickets         TicketStore
	Expenses        ExpenseStore
	Settings        SettingsStore
	Saved           SavedOriginLookup
	Events          EventPublisher
	Metrics         Recorder
	Log             *slog.Logger
	Location        *time.Location
	FreeMaxUpcoming int
	Now             func() time.Time
}

// MercadilloService owns the lifecycle of market events: creation and
// edits, the explicit transitions (initial balance, cancel, cash count,
// close) and the pull-style recomputation of totals and states.
type MercadilloService struct {
	repo     MercadilloStore
	tickets  TicketStore
	expenses ExpenseStore
	settings SettingsStore
	saved    SavedOriginLookup
	events   EventPublisher
	metrics  Recorder
	log      *slog.Logger
	loc      *time.Location
	freeMax  int
	now      func() time.Time
}

func NewMercadilloService(d MercadilloDeps) *MercadilloService {
	s := &MercadilloService{
		repo:     d.Mercadillos,
		tickets:  d.Tickets,
		expenses: d.Expenses,
		settings: d.Settings,
		saved:    d.Saved,
		events:   d.Events,
		metrics:  d.Metrics,
		log:      d.Log,
		loc:      d.Location,
		freeMax:  d.FreeMaxUpcoming,
		now:      d.Now,
	}
	if s.events == nil {
		s.events = nopPublisher{}
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// clock returns the current instant in the configured location; the
// classifier evaluates "today" and the cutover there.
func (s *MercadilloService) clock() time.Time { return s.now().In(s.loc) }

// MercadilloInput carries the editable fields of an event.
type MercadilloInput struct {
	Name            string
	Place           string
	Date            string
	StartTime       string
	EndTime         string
	FreeEntry       bool
	SubscriptionFee decimal.Decimal
	InitialBalance  decimal.NullDecimal
}

func (s *MercadilloService) validate(in MercadilloInput) (MercadilloInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Place = strings.TrimSpace(in.Place)
	if in.Name == "" {
		return in, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(in.Name) > maxNameLen {
		return in, fmt.Errorf("%w: name is longer than %d characters", ErrValidation, maxNameLen)
	}
	if _, err := lifecycle.ParseDate(in.Date, s.loc); err != nil {
		return in, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	in.Date = strings.TrimSpace(in.Date)
	var err error
	if in.StartTime, err = lifecycle.ParseClock(in.StartTime); err != nil {
		return in, fmt.Errorf("%w: start_time must be HH:MM", ErrValidation)
	}
	if in.EndTime, err = lifecycle.ParseClock(in.EndTime); err != nil {
		return in, fmt.Errorf("%w: end_time must be HH:MM", ErrValidation)
	}
	if in.StartTime == in.EndTime {
		return in, fmt.Errorf("%w: start_time and end_time must differ", ErrValidation)
	}
	if in.SubscriptionFee.IsNegative() {
		return in, fmt.Errorf("%w: subscription_fee must not be negative", ErrValidation)
	}
	if in.InitialBalance.Valid && in.InitialBalance.Decimal.IsNegative() {
		return in, fmt.Errorf("%w: initial_balance must not be negative", ErrValidation)
	}
	return in, nil
}

// isPremium reads the entitlement from the stored settings rather than
// trusting the caller.
func (s *MercadilloService) isPremium(ctx context.Context, userID uint64, now time.Time) (bool, error) {
	if s.settings == nil {
		return false, nil
	}
	st, err := s.settings.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return st.PremiumUntil != nil && now.Before(*st.PremiumUntil), nil
}

// Create validates in and stores a new event. Dates before yesterday are
// rejected: the classifier cannot place them correctly. Free users may hold
// at most FreeMaxUpcoming upcoming events.
func (s *MercadilloService) Create(ctx context.Context, userID uint64, in MercadilloInput) (*model.Mercadillo, error) {
	in, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	today := now.Format(lifecycle.DateLayout)
	yesterday := now.AddDate(0, 0, -1).Format(lifecycle.DateLayout)
	if in.Date < yesterday {
		return nil, fmt.Errorf("%w: date is in the past", ErrValidation)
	}

	if s.freeMax > 0 && in.Date >= today {
		premium, err := s.isPremium(ctx, userID, now)
		if err != nil {
			return nil, err
		}
		if !premium {
			n, err := s.repo.CountUpcoming(ctx, userID, today)
			if err != nil {
				return nil, err
			}
			if n >= s.freeMax {
				return nil, fmt.Errorf("%w: free plan allows %d upcoming mercadillos", ErrPremiumRequired, s.freeMax)
			}
		}
	}

	m := &model.Mercadillo{
		ID:              uuid.New().String(),
		UserID:          userID,
		Name:            in.Name,
		Place:           in.Place,
		Date:            in.Date,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		FreeEntry:       in.FreeEntry,
		SubscriptionFee: in.SubscriptionFee,
		InitialBalance:  in.InitialBalance,
		TotalSales:      decimal.Zero,
		TotalExpenses:   decimal.Zero,
		Active:          true,
		Version:         1,
		SyncPending:     true,
	}
	m.State = lifecycle.Classify(m.LifecycleInput(), now)
	m.PendingCashCount = m.State == lifecycle.PendingCashCount
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	s.log.Info("mercadillo created", "user_id", userID, "mercadillo_id", m.ID, "date", m.Date, "state", m.State.String())
	return m, nil
}

// load fetches an event and brings its state up to date, persisting the
// change when the clock moved it.
func (s *MercadilloService) load(ctx context.Context, userID uint64, id string) (*model.Mercadillo, error) {
	m, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.refresh(ctx, m, s.clock(), TriggerAction); err != nil {
		return nil, err
	}
	return m, nil
}

// timeDriven reports whether m's state can still be moved by the clock:
// events dated yesterday or later, and scheduled or running events of any
// date. Older events waiting for a cash count or a balance keep their state.
func timeDriven(m *model.Mercadillo, now time.Time) bool {
	if m.Date >= now.AddDate(0, 0, -1).Format(lifecycle.DateLayout) {
		return true
	}
	switch m.State {
	case lifecycle.InProgress, lifecycle.FullyScheduled, lifecycle.PartiallyScheduled:
		return true
	}
	return false
}

// refresh reclassifies m and stores it when the state changed. Cancelled,
// inactive and settled historical events are left alone.
func (s *MercadilloService) refresh(ctx context.Context, m *model.Mercadillo, now time.Time, trigger string) (bool, error) {
	if !m.Active || lifecycle.Terminal(m.State) || !timeDriven(m, now) {
		return false, nil
	}
	next := lifecycle.Classify(m.LifecycleInput(), now)
	if next == m.State {
		return false, nil
	}
	from := m.State
	m.State = next
	m.PendingCashCount = next == lifecycle.PendingCashCount
	m.Touch()
	if err := s.repo.Update(ctx, m); err != nil {
		return false, err
	}
	s.transitioned(ctx, m, from, trigger, now)
	return true, nil
}

// transitioned records and announces a state change. Publishing is best
// effort.
func (s *MercadilloService) transitioned(ctx context.Context, m *model.Mercadillo, from lifecycle.State, trigger string, now time.Time) {
	s.metrics.RecordTransition(from.String(), m.State.String())
	s.log.Info("mercadillo state changed",
		"user_id", m.UserID, "mercadillo_id", m.ID, "from", from.String(), "to", m.State.String(), "trigger", trigger)
	ev := queue.StateChangedEvent{
		MercadilloID: m.ID,
		UserID:       m.UserID,
		Name:         m.Name,
		Date:         m.Date,
		From:         from.String(),
		To:           m.State.String(),
		Trigger:      trigger,
		ChangedAt:    now.UTC().Format(time.RFC3339),
	}
	if err := s.events.PublishStateChanged(ctx, ev); err != nil {
		s.log.Warn("publish state change failed", "mercadillo_id", m.ID, "error", err)
	}
}

// setState applies an explicit transition and stores the event.
func (s *MercadilloService) setState(ctx context.Context, m *model.Mercadillo, next lifecycle.State) error {
	from := m.State
	m.State = next
	m.Touch()
	if err := s.repo.Update(ctx, m); err != nil {
		return err
	}
	if from != next {
		s.transitioned(ctx, m, from, TriggerAction, s.clock())
	}
	return nil
}

func (s *MercadilloService) Get(ctx context.Context, userID uint64, id string) (*model.Mercadillo, error) {
	return s.load(ctx, userID, id)
}

// List returns the user's events sorted by state priority, then date and
// start time.
func (s *MercadilloService) List(ctx context.Context, userID uint64, f model.MercadilloFilter) ([]model.Mercadillo, error) {
	list, err := s.repo.List(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		pi, pj := lifecycle.PriorityFor(list[i].State), lifecycle.PriorityFor(list[j].State)
		if pi != pj {
			return pi < pj
		}
		if list[i].Date != list[j].Date {
			return list[i].Date < list[j].Date
		}
		return list[i].StartTime < list[j].StartTime
	})
	return list, nil
}

// Update edits schedule, place and fee while the event has not finished.
// The initial balance is changed through AssignInitialBalance only.
func (s *MercadilloService) Update(ctx context.Context, userID uint64, id string, in MercadilloInput) (*model.Mercadillo, error) {
	in, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	m, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	switch m.State {
	case lifecycle.PartiallyScheduled, lifecycle.FullyScheduled, lifecycle.InProgress:
	default:
		return nil, fmt.Errorf("%w: cannot edit a %s mercadillo", ErrInvalidState, m.State)
	}
	now := s.clock()
	if in.Date < now.AddDate(0, 0, -1).Format(lifecycle.DateLayout) {
		return nil, fmt.Errorf("%w: date is in the past", ErrValidation)
	}
	if in.Date != m.Date {
		// tickets are bound to the day they were sold
		sold, err := s.hasSales(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		if sold {
			return nil, fmt.Errorf("%w: cannot move the date", ErrHasSales)
		}
	}
	m.Name, m.Place = in.Name, in.Place
	m.Date, m.StartTime, m.EndTime = in.Date, in.StartTime, in.EndTime
	m.FreeEntry, m.SubscriptionFee = in.FreeEntry, in.SubscriptionFee

	from := m.State
	m.State = lifecycle.Classify(m.LifecycleInput(), now)
	m.PendingCashCount = m.State == lifecycle.PendingCashCount
	m.Touch()
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	if from != m.State {
		s.transitioned(ctx, m, from, TriggerAction, now)
	}
	return m, nil
}

// AssignInitialBalance sets the opening cash of an event that has not
// finished. A partially scheduled event becomes fully scheduled.
func (s *MercadilloService) AssignInitialBalance(ctx context.Context, userID uint64, id string, amount decimal.Decimal) (*model.Mercadillo, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}
	m, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	next := m.State
	switch m.State {
	case lifecycle.PartiallyScheduled:
		next = lifecycle.FullyScheduled
	case lifecycle.FullyScheduled, lifecycle.InProgress:
	default:
		return nil, fmt.Errorf("%w: cannot assign an initial balance to a %s mercadillo", ErrInvalidState, m.State)
	}
	m.InitialBalance = decimal.NewNullDecimal(amount)
	if err := s.setState(ctx, m, next); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MercadilloService) hasSales(ctx context.Context, id string) (bool, error) {
	_, _, n, err := s.tickets.SalesTotals(ctx, id)
	return n > 0, err
}

func (s *MercadilloService) guardCancel(ctx context.Context, m *model.Mercadillo) error {
	sold, err := s.hasSales(ctx, m.ID)
	if err != nil {
		return err
	}
	if !lifecycle.CanBeCancelled(m.State, sold) {
		if sold {
			return ErrHasSales
		}
		return fmt.Errorf("%w: a %s mercadillo cannot be cancelled", ErrInvalidState, m.State)
	}
	return s.guardSaved(ctx, m)
}

// guardSaved refuses to drop an event whose final balance sits in an
// unconsumed saved balance.
func (s *MercadilloService) guardSaved(ctx context.Context, m *model.Mercadillo) error {
	if s.saved == nil || m.State != lifecycle.PendingBalanceAssignment {
		return nil
	}
	b, err := s.saved.ActiveForOrigin(ctx, m.UserID, m.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return err
	}
	return fmt.Errorf("%w: balance of mercadillo %s is saved as %s", repository.ErrConflict, m.ID, b.ID)
}

// Cancel moves the event to CANCELLED. Events with sales, closed events and
// already cancelled ones are refused.
func (s *MercadilloService) Cancel(ctx context.Context, userID uint64, id string) (*model.Mercadillo, error) {
	m, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.guardCancel(ctx, m); err != nil {
		return nil, err
	}
	m.PendingCashCount = false
	m.PendingBalanceAssignment = false
	if err := s.setState(ctx, m, lifecycle.Cancelled); err != nil {
		return nil, err
	}
	return m, nil
}

// Deactivate soft-deletes the event under the same rule as Cancel.
func (s *MercadilloService) Deactivate(ctx context.Context, userID uint64, id string) error {
	m, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if !m.Active {
		return nil
	}
	if err := s.guardCancel(ctx, m); err != nil {
		return err
	}
	m.Active = false
	m.Touch()
	return s.repo.Update(ctx, m)
}

// totals sums the detail tables of m into a Totals value.
func (s *MercadilloService) totals(ctx context.Context, id string) (model.Totals, error) {
	var t model.Totals
	var err error
	if t.Sales, t.CashSales, t.TicketCount, err = s.tickets.SalesTotals(ctx, id); err != nil {
		return t, fmt.Errorf("sum tickets: %w", err)
	}
	if t.Expenses, t.CashExpenses, err = s.expenses.ExpenseTotals(ctx, id); err != nil {
		return t, fmt.Errorf("sum expenses: %w", err)
	}
	return t, nil
}

// settlement is what the event earned after expenses and the fee.
func settlement(m *model.Mercadillo) decimal.Decimal {
	return m.TotalSales.Sub(m.TotalExpenses).Sub(m.EffectiveFee())
}

// applyTotals writes t into the summary fields and reports whether any of
// them changed. The settlement stays NULL until the event has been
// cash-counted.
func applyTotals(m *model.Mercadillo, t model.Totals) bool {
	before := m.SettlementAmount
	changed := !m.TotalSales.Equal(t.Sales) || !m.TotalExpenses.Equal(t.Expenses)
	m.TotalSales = t.Sales
	m.TotalExpenses = t.Expenses
	if !m.CashCountResult.Valid {
		m.SettlementAmount = decimal.NullDecimal{}
		return changed || before.Valid
	}
	m.SettlementAmount = decimal.NewNullDecimal(settlement(m))
	if !before.Valid || !before.Decimal.Equal(m.SettlementAmount.Decimal) {
		changed = true
	}
	return changed
}

// RecomputeTotals pulls the sums of tickets and expenses and writes them
// back to the event. It is called after every detail change.
func (s *MercadilloService) RecomputeTotals(ctx context.Context, userID uint64, id string) (*model.Mercadillo, error) {
	m, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	t, err := s.totals(ctx, id)
	if err != nil {
		return nil, err
	}
	if applyTotals(m, t) {
		m.Touch()
		if err := s.repo.Update(ctx, m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// summarize builds the reconciliation view of m from t.
func summarize(m *model.Mercadillo, t model.Totals) *model.CashSummary {
	initial := decimal.Zero
	if m.InitialBalance.Valid {
		initial = m.InitialBalance.Decimal
	}
	expected := initial.Add(t.CashSales).Sub(t.CashExpenses)
	sum := &model.CashSummary{
		MercadilloID:   m.ID,
		State:          m.State,
		InitialBalance: initial,
		TotalSales:     t.Sales,
		CashSales:      t.CashSales,
		TotalExpenses:  t.Expenses,
		CashExpenses:   t.CashExpenses,
		Fee:            m.EffectiveFee(),
		ExpectedCash:   expected,
		Counted:        m.CashCountResult,
		Settlement:     t.Sales.Sub(t.Expenses).Sub(m.EffectiveFee()),
		TicketCount:    t.TicketCount,
	}
	if m.CashCountResult.Valid {
		sum.Discrepancy = decimal.NewNullDecimal(m.CashCountResult.Decimal.Sub(expected))
	}
	return sum
}

// Summary returns the cash reconciliation view of an event.
func (s *MercadilloService) Summary(ctx context.Context, userID uint64, id string) (*model.CashSummary, error) {
	m, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	t, err := s.totals(ctx, id)
	if err != nil {
		return nil, err
	}
	return summarize(m, t), nil
}

// PerformCashCount records the arqueo: the counted cash becomes the final
// balance, the settlement is fixed and the event waits for its balance to
// be carried over.
func (s *MercadilloService) PerformCashCount(ctx context.Context, userID uint64, id string, counted decimal.Decimal) (*model.CashSummary, error) {
	if counted.IsNegative() {
		return nil, fmt.Errorf("%w: counted cash must not be negative", ErrValidation)
	}
	m, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if m.State != lifecycle.PendingCashCount {
		return nil, fmt.Errorf("%w: cash count requires %s, mercadillo is %s", ErrInvalidState, lifecycle.PendingCashCount, m.State)
	}
	t, err := s.totals(ctx, id)
	if err != nil {
		return nil, err
	}
	m.CashCountResult = decimal.NewNullDecimal(counted)
	m.FinalBalance = decimal.NewNullDecimal(counted)
	applyTotals(m, t)
	m.PendingCashCount = false
	m.PendingBalanceAssignment = true
	if err := s.setState(ctx, m, lifecycle.PendingBalanceAssignment); err != nil {
		return nil, err
	}

	sum := summarize(m, t)
	if sum.Discrepancy.Valid {
		abs, _ := sum.Discrepancy.Decimal.Abs().Float64()
		s.metrics.RecordDiscrepancy(abs)
	}
	return sum, nil
}

// CloseWithoutCarryOver closes an event whose balance will not be carried
// to another one.
func (s *MercadilloService) CloseWithoutCarryOver(ctx context.Context, userID uint64, id string) (*model.Mercadillo, error) {
	m, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if m.State != lifecycle.PendingBalanceAssignment {
		return nil, fmt.Errorf("%w: only a %s mercadillo can be closed", ErrInvalidState, lifecycle.PendingBalanceAssignment)
	}
	m.PendingBalanceAssignment = false
	if err := s.setState(ctx, m, lifecycle.Closed); err != nil {
		return nil, err
	}
	return m, nil
}

// RecomputeReport summarises a state recomputation run.
type RecomputeReport struct {
	Users   int `json:"users"`
	Checked int `json:"checked"`
	Changed int `json:"changed"`
}

// RecomputeStates reclassifies the user's events whose state may depend on
// the clock and stores the ones that changed. Failures on single events are
// collected and returned together after the whole batch was tried.
func (s *MercadilloService) RecomputeStates(ctx context.Context, userID uint64, trigger string) (RecomputeReport, error) {
	start := time.Now()
	rep, err := s.recomputeUser(ctx, userID, trigger)
	s.metrics.RecordRecompute(trigger, time.Since(start), rep.Changed, err)
	return rep, err
}

func (s *MercadilloService) recomputeUser(ctx context.Context, userID uint64, trigger string) (RecomputeReport, error) {
	now := s.clock()
	since := now.AddDate(0, 0, -1).Format(lifecycle.DateLayout)
	list, err := s.repo.ListForRecompute(ctx, userID, since)
	if err != nil {
		return RecomputeReport{}, fmt.Errorf("list mercadillos of user %d: %w", userID, err)
	}
	rep := RecomputeReport{Users: 1, Checked: len(list)}
	var errs []error
	for i := range list {
		changed, err := s.refresh(ctx, &list[i], now, trigger)
		if err != nil {
			errs = append(errs, fmt.Errorf("mercadillo %s: %w", list[i].ID, err))
			continue
		}
		if changed {
			rep.Changed++
		}
	}
	return rep, errors.Join(errs...)
}

// RecomputeAll runs RecomputeStates for every user with active events.
func (s *MercadilloService) RecomputeAll(ctx context.Context, trigger string) (RecomputeReport, error) {
	start := time.Now()
	var (
		total RecomputeReport
		errs  []error
	)
	ids, err := s.repo.UserIDs(ctx)
	if err != nil {
		s.metrics.RecordRecompute(trigger, time.Since(start), 0, err)
		return total, fmt.Errorf("list users: %w", err)
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		rep, err := s.recomputeUser(ctx, id, trigger)
		total.Users++
		total.Checked += rep.Checked
		total.Changed += rep.Changed
		if err != nil {
			errs = append(errs, err)
		}
	}
	err = errors.Join(errs...)
	s.metrics.RecordRecompute(trigger, time.Since(start), total.Changed, err)
	if total.Changed > 0 {
		s.log.Info("states recomputed", "trigger", trigger, "users", total.Users, "checked", total.Checked, "changed", total.Changed)
	}
	return total, err
}

// Calendar returns, for each day in [from, to] holding at least one active
// event, the dominant state and its colors.
func (s *MercadilloService) Calendar(ctx context.Context, userID uint64, from, to string) ([]model.CalendarDay, error) {
	f, err := lifecycle.ParseDate(from, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: from must be YYYY-MM-DD", ErrValidation)
	}
	t, err := lifecycle.ParseDate(to, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: to must be YYYY-MM-DD", ErrValidation)
	}
	if t.Before(f) {
		return nil, fmt.Errorf("%w: to is before from", ErrValidation)
	}
	list, err := s.repo.List(ctx, userID, model.MercadilloFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}
	byDay := map[string][]lifecycle.State{}
	var days []string
	for _, m := range list {
		if _, ok := byDay[m.Date]; !ok {
			days = append(days, m.Date)
		}
		byDay[m.Date] = append(byDay[m.Date], m.State)
	}
	sort.Strings(days)
	out := make([]model.CalendarDay, 0, len(days))
	for _, d := range days {
		st := lifecycle.Dominant(byDay[d]...)
		out = append(out, model.CalendarDay{
			Date:      d,
			State:     st,
			Color:     lifecycle.ColorFor(st),
			TextColor: lifecycle.TextColorFor(st),
			Events:    len(byDay[d]),
		})
	}
	return out, nil
}
