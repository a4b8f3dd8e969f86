package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod of a ticket or an expense. Only CASH moves the till.
type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "CASH"
	PaymentCard  PaymentMethod = "CARD"
	PaymentBizum PaymentMethod = "BIZUM"
)

// ParsePaymentMethod normalises a method, defaulting empty input to CASH.
func ParsePaymentMethod(v string) (PaymentMethod, bool) {
	switch PaymentMethod(strings.ToUpper(strings.TrimSpace(v))) {
	case "", PaymentCash:
		return PaymentCash, true
	case PaymentCard:
		return PaymentCard, true
	case PaymentBizum:
		return PaymentBizum, true
	}
	return "", false
}

// Ticket is one sale recorded at a mercadillo.
type Ticket struct {
	ID            string          `json:"id"`
	UserID        uint64          `json:"user_id"`
	MercadilloID  string          `json:"mercadillo_id"`
	Code          string          `json:"code"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Total         decimal.Decimal `json:"total"`
	Lines         []TicketLine    `json:"lines"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TicketLine is an article (or a free-text item) within a ticket.
type TicketLine struct {
	ID          string          `json:"id"`
	TicketID    string          `json:"ticket_id"`
	ArticleID   *string         `json:"article_id"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Expense is a cost incurred at a mercadillo.
type Expense struct {
	ID            string          `json:"id"`
	UserID        uint64          `json:"user_id"`
	MercadilloID  string          `json:"mercadillo_id"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SavedBalance is a final balance kept aside to become the initial balance
// of another mercadillo.
type SavedBalance struct {
	ID                     string          `json:"id"`
	UserID                 uint64          `json:"user_id"`
	OriginMercadilloID     string          `json:"origin_mercadillo_id"`
	Amount                 decimal.Decimal `json:"amount"`
	Consumed               bool            `json:"consumed"`
	ConsumedByMercadilloID *string         `json:"consumed_by_mercadillo_id"`
	Version                int64           `json:"version"`
	SyncPending            bool            `json:"-"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}
