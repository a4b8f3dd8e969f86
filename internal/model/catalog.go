package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups articles on the sales screen.
type Category struct {
	ID          string    `json:"id"`
	UserID      uint64    `json:"user_id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Active      bool      `json:"active"`
	Version     int64     `json:"version"`
	SyncPending bool      `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Article is a sellable item. CategoryID and Cost are optional.
type Article struct {
	ID          string              `json:"id"`
	UserID      uint64              `json:"user_id"`
	CategoryID  *string             `json:"category_id"`
	Name        string              `json:"name"`
	Price       decimal.Decimal     `json:"price"`
	Cost        decimal.NullDecimal `json:"cost"`
	Active      bool                `json:"active"`
	Version     int64               `json:"version"`
	SyncPending bool                `json:"-"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}
