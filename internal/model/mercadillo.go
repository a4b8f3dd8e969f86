package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/market-sales/internal/lifecycle"
)

// Mercadillo is a market event, the root aggregate of sales and expenses.
// Date is a calendar day (YYYY-MM-DD) and StartTime/EndTime are HH:MM
// strings, the same shapes the lifecycle classifier reads.
//
// InitialBalance is nil until a balance has been assigned. CashCountResult
// and SettlementAmount are only set by the cash count (arqueo).
type Mercadillo struct {
	ID                       string              `json:"id"`
	UserID                   uint64              `json:"user_id"`
	Name                     string              `json:"name"`
	Place                    string              `json:"place"`
	Date                     string              `json:"date"`
	StartTime                string              `json:"start_time"`
	EndTime                  string              `json:"end_time"`
	FreeEntry                bool                `json:"free_entry"`
	SubscriptionFee          decimal.Decimal     `json:"subscription_fee"`
	InitialBalance           decimal.NullDecimal `json:"initial_balance"`
	FinalBalance             decimal.NullDecimal `json:"final_balance"`
	CashCountResult          decimal.NullDecimal `json:"cash_count_result"`
	TotalSales               decimal.Decimal     `json:"total_sales"`
	TotalExpenses            decimal.Decimal     `json:"total_expenses"`
	SettlementAmount         decimal.NullDecimal `json:"settlement_amount"`
	PendingCashCount         bool                `json:"pending_cash_count"`
	PendingBalanceAssignment bool                `json:"pending_balance_assignment"`
	State                    lifecycle.State     `json:"state"`
	Active                   bool                `json:"active"`
	Version                  int64               `json:"version"`
	SyncPending              bool                `json:"-"`
	CreatedAt                time.Time           `json:"created_at"`
	UpdatedAt                time.Time           `json:"updated_at"`
}

// LifecycleInput projects the fields the classifier needs.
func (m *Mercadillo) LifecycleInput() lifecycle.Input {
	return lifecycle.Input{
		Date:              m.Date,
		EndTime:           m.EndTime,
		HasInitialBalance: m.InitialBalance.Valid,
		HasCashCount:      m.CashCountResult.Valid,
		PendingAssignment: m.PendingBalanceAssignment,
	}
}

// EffectiveFee is the subscription fee actually owed: zero for free entry.
func (m *Mercadillo) EffectiveFee() decimal.Decimal {
	if m.FreeEntry {
		return decimal.Zero
	}
	return m.SubscriptionFee
}

// Touch marks a local mutation: bumps the version counter and flags the row
// for the next sync.
func (m *Mercadillo) Touch() {
	m.Version++
	m.SyncPending = true
}

// MercadilloFilter narrows List queries. Zero values mean "any".
type MercadilloFilter struct {
	From            string
	To              string
	State           lifecycle.State
	IncludeInactive bool
}

// Totals are the sums recomputed from the detail tables.
type Totals struct {
	Sales        decimal.Decimal
	CashSales    decimal.Decimal
	Expenses     decimal.Decimal
	CashExpenses decimal.Decimal
	TicketCount  int
}

// CalendarDay is the dominant state of the events on one day.
type CalendarDay struct {
	Date      string          `json:"date"`
	State     lifecycle.State `json:"state"`
	Color     string          `json:"color"`
	TextColor string          `json:"text_color"`
	Events    int             `json:"events"`
}

// CashSummary is the reconciliation view of a mercadillo.
type CashSummary struct {
	MercadilloID   string              `json:"mercadillo_id"`
	State          lifecycle.State     `json:"state"`
	InitialBalance decimal.Decimal     `json:"initial_balance"`
	TotalSales     decimal.Decimal     `json:"total_sales"`
	CashSales      decimal.Decimal     `json:"cash_sales"`
	TotalExpenses  decimal.Decimal     `json:"total_expenses"`
	CashExpenses   decimal.Decimal     `json:"cash_expenses"`
	Fee            decimal.Decimal     `json:"fee"`
	ExpectedCash   decimal.Decimal     `json:"expected_cash"`
	Counted        decimal.NullDecimal `json:"counted"`
	Discrepancy    decimal.NullDecimal `json:"discrepancy"`
	Settlement     decimal.Decimal     `json:"settlement"`
	TicketCount    int                 `json:"ticket_count"`
}
