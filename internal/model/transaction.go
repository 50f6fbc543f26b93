package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionTypeBuy  = "buy"
	TransactionTypeSell = "sell"
)

type Transaction struct {
	ID        string
	Ticker    string
	Shares    decimal.Decimal
	Price     decimal.Decimal
	Type      string
	CreatedAt time.Time
}

// Order is a validated buy or sell request heading upstream.
type Order struct {
	Ticker string
	Shares decimal.Decimal
	Price  decimal.Decimal
	Type   string
}
