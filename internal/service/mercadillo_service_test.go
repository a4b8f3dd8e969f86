package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/market-sales/internal/lifecycle"
	"github.com/iliyamo/market-sales/internal/model"
	"github.com/iliyamo/market-sales/internal/repository"
)

const user = uint64(1)

type testEnv struct {
	merc     *memMercadillos
	tickets  *memTickets
	expenses *memExpenses
	saved    *memSaved
	articles *memArticles
	settings *memSettings
	pub      *recordedPublisher
	rec      *recordedMetrics

	svc      *MercadilloService
	balances *BalanceService
	sales    *SalesService
}

// Saturday 15 June 2024, 10:00 UTC: today is 2024-06-15, yesterday
// 2024-06-14 and the cutover has passed.
var testNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T, now time.Time, freeMax int) *testEnv {
	t.Helper()
	e := &testEnv{
		merc:     newMemMercadillos(),
		tickets:  newMemTickets(),
		expenses: newMemExpenses(),
		saved:    newMemSaved(),
		articles: newMemArticles(),
		settings: newMemSettings(),
		pub:      &recordedPublisher{},
		rec:      &recordedMetrics{},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	e.svc = NewMercadilloService(MercadilloDeps{
		Mercadillos:     e.merc,
		Tickets:         e.tickets,
		Expenses:        e.expenses,
		Settings:        e.settings,
		Saved:           e.saved,
		Events:          e.pub,
		Metrics:         e.rec,
		Log:             log,
		Location:        time.UTC,
		FreeMaxUpcoming: freeMax,
		Now:             func() time.Time { return now },
	})
	e.balances = NewBalanceService(e.saved, e.svc, log)
	var err error
	e.sales, err = NewSalesService(e.tickets, e.expenses, e.articles, e.svc, log)
	require.NoError(t, err)
	return e
}

// seed stores an event of user with sensible defaults; fn adjusts it.
func (e *testEnv) seed(id, date string, st lifecycle.State, fn func(m *model.Mercadillo)) model.Mercadillo {
	m := model.Mercadillo{
		ID:              id,
		UserID:          user,
		Name:            "Mercadillo " + id,
		Place:           "Plaza Mayor",
		Date:            date,
		StartTime:       "09:00",
		EndTime:         "14:00",
		SubscriptionFee: decimal.Zero,
		TotalSales:      decimal.Zero,
		TotalExpenses:   decimal.Zero,
		State:           st,
		Active:          true,
		Version:         1,
	}
	if fn != nil {
		fn(&m)
	}
	e.merc.put(m)
	return m
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func input(date string) MercadilloInput {
	return MercadilloInput{Name: "Rastro", Place: "Centro", Date: date, StartTime: "09:00", EndTime: "14:00"}
}

func TestMercadilloService_CreateInitialState(t *testing.T) {
	e := newTestEnv(t, testNow, 0)
	ctx := context.Background()

	m, err := e.svc.Create(ctx, user, input("2024-06-20"))
	require.NoError(t, err)
	assert.Equal(t, lifecycle.PartiallyScheduled, m.State)
	assert.Equal(t, int64(1), m.Version)
	assert.True(t, m.SyncPending)
	assert.NotEmpty(t, m.ID)

	in := input("2024-06-20")
	in.InitialBalance = decimal.NewNullDecimal(dec("50"))
	m, err = e.svc.Create(ctx, user, in)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.FullyScheduled, m.State)

	m, err = e.svc.Create(ctx, user, input("2024-06-15"))
	require.NoError(t, err)
	assert.Equal(t, lifecycle.InProgress, m.State)

	m, err = e.svc.Create(ctx, user, input("2024-06-14"))
	require.NoError(t, err)
	assert.Equal(t, lifecycle.PendingCashCount, m.State)
	assert.True(t, e.merc.get(m.ID).PendingCashCount)
}

func TestMercadilloService_CreateValidation(t *testing.T) {
	e := newTestEnv(t, testNow, 0)
	ctx := context.Background()

	cases := map[string]func(in *MercadilloInput){
		"blank name":       func(in *MercadilloInput) { in.Name = "   " },
		"bad date":         func(in *MercadilloInput) { in.Date = "20-06-2024" },
		"past date":        func(in *MercadilloInput) { in.Date = "2024-06-13" },
		"bad start":        func(in *MercadilloInput) { in.StartTime = "25:00" },
		"same times":       func(in *MercadilloInput) { in.EndTime = "09:00" },
		"negative fee":     func(in *MercadilloInput) { in.SubscriptionFee = dec("-1") },
		"negative balance": func(in *MercadilloInput) { in.InitialBalance = decimal.NewNullDecimal(dec("-0.01")) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := input("2024-06-20")
			mutate(&in)
			_, err := e.svc.Create(ctx, user, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestMercadilloService_FreeTierLimit(t *testing.T) {
	e := newTestEnv(t, testNow, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := e.svc.Create(ctx, user, input("2024-06-20"))
		require.NoError(t, err)
	}
	_, err := e.svc.Create(ctx, user, input("2024-06-21"))
	assert.ErrorIs(t, err, ErrPremiumRequired)

	// yesterday's events do not count as upcoming
	_, err = e.svc.Create(ctx, user, input("2024-06-14"))
	assert.NoError(t, err)

	_, err = e.svc.Create(ctx, 2, input("2024-06-21"))
	assert.NoError(t, err, "the limit is per user")

	until := testNow.AddDate(0, 1, 0)
	require.NoError(t, e.settings.Upsert(ctx, model.UserSettings{UserID: user, Theme: model.ThemeDark, Locale: "es", PremiumUntil: &until}))
	_, err = e.svc.Create(ctx, user, input("2024-06-21"))
	assert.NoError(t, err)
}

func TestMercadilloService_RecomputeStates(t *testing.T) {
	e := newTestEnv(t, testNow, 0)
	ctx := context.Background()

	e.seed("a", "2024-06-15", lifecycle.PartiallyScheduled, nil)
	e.seed("b", "2024-06-14", lifecycle.InProgress, nil)
	e.seed("c", "2024-06-15", lifecycle.Cancelled, nil)
	e.seed("d", "2024-06-20", lifecycle.PartiallyScheduled, nil)
	e.seed("e", "2024-06-01", lifecycle.PendingCashCount, func(m *model.Mercadillo) { m.PendingCashCount = true })

	rep, err := e.svc.RecomputeStates(ctx, user, TriggerTick)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Checked)
	assert.Equal(t, 2, rep.Changed)

	a := e.merc.get("a")
	assert.Equal(t, lifecycle.InProgress, a.State)
	assert.Equal(t, int64(2), a.Version)
	assert.True(t, a.SyncPending)

	b := e.merc.get("b")
	assert.Equal(t, lifecycle.PendingCashCount, b.State)
	assert.True(t, b.PendingCashCount)

	assert.Equal(t, lifecycle.Cancelled, e.merc.get("c").State)
	assert.Equal(t, int64(1), e.merc.get("d").Version)
	assert.Equal(t, lifecycle.PendingCashCount, e.merc.get("e").State)

	assert.ElementsMatch(t, []string{
		"PARTIALLY_SCHEDULED>IN_PROGRESS",
		"IN_PROGRESS>PENDING_CASH_COUNT",
	}, e.rec.transitions)
	assert.Equal(t, []string{TriggerTick}, e.rec.recomputes)
	require.Len(t, e.pub.events, 2)
	for _, ev := range e.pub.events {
		assert.Equal(t, TriggerTick, ev.Trigger)
		assert.Equal(t, user, ev.UserID)
	}

	// a second run finds nothing to do
	rep, err = e.svc.RecomputeStates(ctx, user, TriggerTick)
	require.NoError(t, err)
	assert.Zero(t, rep.Changed)
}

func TestMercadilloService_RecomputeBeforeCutover(t *testing.T) {
	early := time.Date(2024, 6, 15, 4, 59, 0, 0, time.UTC)
	e := newTestEnv(t, early, 0)

	e.seed("b", "2024-06-14", lifecycle.InProgress, nil)
	rep, err := e.svc.RecomputeStates(context.Background(), user, TriggerStart)
	require.NoError(t, err)
	assert.Zero(t, rep.Changed)
	assert.Equal(t, lifecycle.InProgress, e.merc.get("b").State)
}

func TestMercadilloService_RecomputeUsesLocation(t *testing.T) {
	cest := time.FixedZone("CEST", 2*60*60)
	// 03:30 UTC is 05:30 local: past the cutover there.
	now := time.Date(2024, 6, 15, 3, 30, 0, 0, time.UTC)
	e := newTestEnv(t, now, 0)
	e.svc.loc = cest

	e.seed("b", "2024-06-14", lifecycle.InProgress, nil)
	_, err := e.svc.RecomputeStates(context.Background(), user, TriggerTick)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.PendingCashCount, e.merc.get("b").State)
}

func TestMercadilloService_RecomputeAllCollectsErrors(t *testing.T) {
	e := newTestEnv(t, testNow, 0)
	e.seed("a", "2024-06-15", lifecycle.PartiallyScheduled, nil)
	e.seed("x", "2024-06-15", lifecycle.PartiallyScheduled, func(m *model.Mercadillo) { m.UserID = 2 })
	e.seed("y", "2024-06-15", lifecycle.PartiallyScheduled, func(m *model.Mercadillo) { m.UserID = 2 })
	boom := errors.New("disk full")
	e.merc.failUpdate["x"] = boom

	rep, err := e.svc.RecomputeAll(context.Background(), TriggerTick)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, rep.Users)
	assert.Equal(t, 3, rep.Checked)
	assert.Equal(t, 2, rep.Changed)
	assert.Equal(t, lifecycle.InProgress, e.merc.get("a").State)
	assert.Equal(t, lifecycle.InProgress, e.merc.get("y").State)
	assert.Equal(t, lifecycle.PartiallyScheduled, e.merc.get("x").State)
}

func TestMercadilloService_PublishFailureIsNotFatal(t *testing.T) {
	e := newTestEnv(t, testNow, 0)
	e.pub.err = errors.New("broker down")
	e.seed("a", "2024-06-15", lifecycle.PartiallyScheduled, nil)

	m, err := e.svc.Get(context.Background(), user, "a")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.InProgress, m.State)
}

func TestMercadilloService_CashCountFlow(t *testing.T) {
	e := newTestEnv(t, testNow, 0)
	ctx := context.Background()

	e.seed("m", "2024-06-14", lifecycle.InProgress, func(m *model.Mercadillo) {
		m.InitialBalance = decimal.NewNullDecimal(dec("50"))
		m.SubscriptionFee = dec("10")
	})
	e.tickets.rows["t1"] = model.Ticket{ID: "t1", UserID: user, MercadilloID: "m", PaymentMethod: model.PaymentCash, Total: dec("30")}
	e.tickets.rows["t2"] = model.Ticket{ID: "t2", UserID: user, MercadilloID: "m", PaymentMethod: model.PaymentCard, Total: dec("20")}
	e.expenses.rows["x1"] = model.Expense{ID: "x1", UserID: user, MercadilloID: "m", PaymentMethod: model.PaymentCash, Amount: dec("5")}

	_, err := e.svc.PerformCashCount(ctx, user, "m", dec("-1"))
	assert.ErrorIs(t, err, ErrValidation)

	sum, err := e.svc.PerformCashCount(ctx, user, "m", dec("70"))
	require.NoError(t, err)
	assertDec(t, "75", sum.ExpectedCash)
	require.True(t, sum.Discrepancy.Valid)
	assertDec(t, "-5", sum.Discrepancy.Decimal)
	assertDec(t, "35", sum.Settlement)
	assertDec(t, "10", sum.Fee)
	assert.Equal(t, 2, sum.TicketCount)
	assert.Equal(t, lifecycle.PendingBalanceAssignment, sum.State)

	m := e.merc.get("m")
	assert.Equal(t, lifecycle.PendingBalanceAssignment, m.State)
	assert.False(t, m.PendingCashCount)
	assert.True(t, m.PendingBalanceAssignment)
	assertDec(t, "70", m.CashCountResult.Decimal)
	assertDec(t, "70", m.FinalBalance.Decimal)
	assertDec(t, "50", m.TotalSales)
	assertDec(t, "5", m.TotalExpenses)
	assertDec(t, "35", m.SettlementAmount.Decimal)
	assert.Equal(t, []float64{5}, e.rec.discrepancy)

	_, err = e.svc.PerformCashCount(ctx, user, "m", dec("70"))
	assert.ErrorIs(t, err, ErrInvalidState)

	// the classifier agrees with the stored state
	got, err := e.svc.Get(ctx, user, "m")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.PendingBalanceAssignment, got.State)

	closed, err := e.svc.CloseWithoutCarryOver(ctx, user, "m")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Closed, closed.State)
	assert.False(t, closed.PendingBalanceAssignment)

	got, err = e.svc.Get(ctx, user, "m")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Closed, got.State)

	_, err = e.svc.CloseWithoutCarryOver(ctx, user, "m")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestMercadilloService_CashCountFreeEntry(t *testing.T) {
	e := newTestEnv(t, testNow, 0)
	e.seed("m", "2024-06-14", lifecycle.PendingCashCount, func(m *model.Mercadillo) {
		m.FreeEntry = true
		m.SubscriptionFee = dec("25")
	})
	e.tickets.rows["t1"] = model.Ticket{ID: "t1", UserID: user, MercadilloID: "m", PaymentMethod: model.PaymentCash, Total: dec("12.50")}

	sum, err := e.svc.PerformCashCount(context.Background(), user, "m", dec("12.50"))
	require.NoError(t, err)
	assertDec(t, "12.5", sum.Settlement)
	assertDec(t, "0", sum.Discrepancy.Decimal)
	assertDec(t, "0", sum.Fee)
}

func TestMercadilloService_CashCountRequiresPendingState(t *testing.T) {
	e := newTestEnv(t, testNow, 0)
	e.seed("m", "2024-06-15", lifecycle.InProgress, nil)

	_, err := e.svc.PerformCashCount(context.Background(), user, "m", dec("10"))
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestMercadilloService_Cancel(t *testing.T) {
	e := newTestEnv(t, testNow, 0)
	ctx := context.Background()

	e.seed("future", "2024-06-20", lifecycle.PartiallyScheduled, nil)
	e.seed("sold", "2024-06-15", lifecycle.InProgress, nil)
	e.tickets.rows["t1"] = model.Ticket{ID: "t1", UserID: user, MercadilloID: "sold", PaymentMethod: model.PaymentCash, Total: dec("3")}
	e.seed("closed", "2024-06-10", lifecycle.Closed, func(m *model.Mercadillo) {
		m.CashCountResult = decimal.NewNullDecimal(dec("1"))
	})

	m, err := e.svc.Cancel(ctx, user, "future")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Cancelled, m.State)

	_, err = e.svc.Cancel(ctx, user, "future")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = e.svc.Cancel(ctx, user, "sold")
	assert.ErrorIs(t, err, ErrHasSales)

	_, err = e.svc.Cancel(ctx, user, "closed")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = e.svc.Cancel(ctx, 99, "future")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMercadilloService_CancelPendingBalance(t *testing.T) {
	e := newTestEnv(t, testNow, 0)
	ctx := context.Background()
	pending := func(m *model.Mercadillo) {
		m.CashCountResult = decimal.NewNullDecimal(dec("40"))
		m.FinalBalance = decimal.NewNullDecimal(dec("40"))
		m.PendingBalanceAssignment = true
	}
	e.seed("kept", "2024-06-14", lifecycle.PendingBalanceAssignment, pending)
	e.seed("plain", "2024-06-14", lifecycle.PendingBalanceAssignment, pending)

	b, err := e.balances.Save(ctx, user, "kept")
	require.NoError(t, err)

	_, err = e.svc.Cancel(ctx, user, "kept")
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.ErrorIs(t, e.svc.Deactivate(ctx, user, "kept"), repository.ErrConflict)
	assert.Equal(t, lifecycle.PendingBalanceAssignment, e.merc.get("kept").State)
	assert.True(t, e.merc.get("kept").Active)

	stored, err := e.saved.GetByID(ctx, user, b.ID)
	require.NoError(t, err)
	assert.False(t, stored.Consumed)

	m, err := e.svc.Cancel(ctx, user, "plain")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Cancelled, m.State)
	assert.False(t, m.PendingBalanceAssignment)
	assert.False(t, e.merc.get("plain").PendingBalanceAssignment)
}

func TestMercadilloService_Deactivate(t *testing.T) {
	e := newTestEnv(t, testNow, 0)
	ctx := context.Background()
	e.seed("a", "2024-06-20", lifecycle.PartiallyScheduled, nil)
	e.seed("sold", "2024-06-15", lifecycle.InProgress, nil)
	e.tickets.rows["t1"] = model.Ticket{ID: "t1", UserID: user, MercadilloID: "sold", Total: dec("3")}

	require.NoError(t, e.svc.Deactivate(ctx, user, "a"))
	assert.False(t, e.merc.get("a").Active)
	assert.ErrorIs(t, e.svc.Deactivate(ctx, user, "sold"), ErrHasSales)

	list, err := e.svc.List(ctx, user, model.MercadilloFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "sold", list[0].ID)
}

func TestMercadilloService_AssignInitialBalance(t *testing.T) {
	e := newTestEnv(t, testNow, 0)
	ctx := context.Background()
	e.seed("a", "2024-06-20", lifecycle.PartiallyScheduled, nil)
	e.seed("pba", "2024-06-14", lifecycle.PendingBalanceAssignment, func(m *model.Mercadillo) {
		m.CashCountResult = decimal.NewNullDecimal(dec("1"))
		m.PendingBalanceAssignment = true
	})

	_, err := e.svc.AssignInitialBalance(ctx, user, "a", dec("-5"))
	assert.ErrorIs(t, err, ErrValidation)

	m, err := e.svc.AssignInitialBalance(ctx, user, "a", dec("40"))
	require.NoError(t, err)
	assert.Equal(t, lifecycle.FullyScheduled, m.State)
	assertDec(t, "40", e.merc.get("a").InitialBalance.Decimal)

	_, err = e.svc.AssignInitialBalance(ctx, user, "pba", dec("40"))
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestMercadilloService_Update(t *testing.T) {
	e := newTestEnv(t, testNow, 0)
	ctx := context.Background()
	e.seed("a", "2024-06-20", lifecycle.PartiallyScheduled, nil)
	e.seed("pba", "2024-06-14", lifecycle.PendingBalanceAssignment, func(m *model.Mercadillo) {
		m.CashCountResult = decimal.NewNullDecimal(dec("1"))
		m.PendingBalanceAssignment = true
	})

	in := input("2024-06-15")
	in.Name = "Mercado de abastos"
	m, err := e.svc.Update(ctx, user, "a", in)
	require.NoError(t, err)
	assert.Equal(t, "Mercado de abastos", m.Name)
	assert.Equal(t, lifecycle.InProgress, m.State, "moving the date to today starts the event")
	assert.Equal(t, int64(2), e.merc.get("a").Version)

	_, err = e.svc.Update(ctx, user, "pba", input("2024-06-20"))
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestMercadilloService_UpdateWithSalesKeepsDate(t *testing.T) {
	e := newTestEnv(t, testNow, 0)
	ctx := context.Background()
	e.seed("sold", "2024-06-15", lifecycle.InProgress, nil)
	e.tickets.rows["t1"] = model.Ticket{ID: "t1", UserID: user, MercadilloID: "sold", PaymentMethod: model.PaymentCash, Total: dec("3")}

	_, err := e.svc.Update(ctx, user, "sold", input("2024-06-20"))
	assert.ErrorIs(t, err, ErrHasSales)
	stored := e.merc.get("sold")
	assert.Equal(t, "2024-06-15", stored.Date)
	assert.Equal(t, lifecycle.InProgress, stored.State)

	in := input("2024-06-15")
	in.Name = "Rastro de verano"
	m, err := e.svc.Update(ctx, user, "sold", in)
	require.NoError(t, err)
	assert.Equal(t, "Rastro de verano", m.Name)
	assert.Equal(t, lifecycle.InProgress, m.State)
}

func TestMercadilloService_ListSortsByPriority(t *testing.T) {
	e := newTestEnv(t, testNow, 0)
	e.seed("later", "2024-06-21", lifecycle.PartiallyScheduled, nil)
	e.seed("sooner", "2024-06-20", lifecycle.PartiallyScheduled, nil)
	e.seed("now", "2024-06-15", lifecycle.InProgress, nil)
	e.seed("funded", "2024-06-22", lifecycle.FullyScheduled, func(m *model.Mercadillo) {
		m.InitialBalance = decimal.NewNullDecimal(dec("1"))
	})

	list, err := e.svc.List(context.Background(), user, model.MercadilloFilter{})
	require.NoError(t, err)
	var ids []string
	for _, m := range list {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"now", "funded", "sooner", "later"}, ids)
}

func TestMercadilloService_Calendar(t *testing.T) {
	e := newTestEnv(t, testNow, 0)
	ctx := context.Background()
	e.seed("a", "2024-06-20", lifecycle.PartiallyScheduled, nil)
	e.seed("b", "2024-06-20", lifecycle.FullyScheduled, func(m *model.Mercadillo) {
		m.InitialBalance = decimal.NewNullDecimal(dec("1"))
	})
	e.seed("c", "2024-06-21", lifecycle.PartiallyScheduled, nil)
	e.seed("outside", "2024-07-30", lifecycle.PartiallyScheduled, nil)

	days, err := e.svc.Calendar(ctx, user, "2024-06-01", "2024-06-30")
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2024-06-20", days[0].Date)
	assert.Equal(t, lifecycle.FullyScheduled, days[0].State)
	assert.Equal(t, lifecycle.ColorFor(lifecycle.FullyScheduled), days[0].Color)
	assert.Equal(t, 2, days[0].Events)
	assert.Equal(t, lifecycle.PartiallyScheduled, days[1].State)

	_, err = e.svc.Calendar(ctx, user, "2024-06-30", "2024-06-01")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.svc.Calendar(ctx, user, "junio", "2024-06-01")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMercadilloService_Summary(t *testing.T) {
	e := newTestEnv(t, testNow, 0)
	e.seed("m", "2024-06-15", lifecycle.InProgress, func(m *model.Mercadillo) {
		m.InitialBalance = decimal.NewNullDecimal(dec("20"))
	})
	e.tickets.rows["t1"] = model.Ticket{ID: "t1", UserID: user, MercadilloID: "m", PaymentMethod: model.PaymentBizum, Total: dec("8")}

	sum, err := e.svc.Summary(context.Background(), user, "m")
	require.NoError(t, err)
	assertDec(t, "20", sum.ExpectedCash)
	assertDec(t, "8", sum.TotalSales)
	assertDec(t, "0", sum.CashSales)
	assert.False(t, sum.Counted.Valid)
	assert.False(t, sum.Discrepancy.Valid)
}
