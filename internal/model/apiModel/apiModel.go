// Package apiModel holds the raw JSON shapes of the Stockr core REST API.
// Conversion into internal/model types happens in the stockrApi client.
package apiModel

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
	Ticker  string `json:"ticker,omitempty"`
}

type PortfolioIDResponse struct {
	PortfolioID string `json:"portfolio_id"`
}

type PortfolioResponse struct {
	Portfolio []HoldingEntry `json:"portfolio"`
}

type HoldingEntry struct {
	Ticker      string          `json:"ticker"`
	Shares      decimal.Decimal `json:"shares"`
	AverageCost decimal.Decimal `json:"average_cost"`
	BookValue   decimal.Decimal `json:"book_value"`
}

// MaybePrice handles the quote endpoint's price field, which is a JSON number
// on success, a numeric string on some upstream paths, and the literal string
// "N/A" when the source has no price.
type MaybePrice struct {
	Price     decimal.Decimal
	Available bool
}

func (p *MaybePrice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*p = MaybePrice{}
		return nil
	}

	if data[0] == '"' {
		s := string(data[1 : len(data)-1])
		if s == "" || s == "N/A" {
			*p = MaybePrice{}
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("invalid market_price %q: %w", s, err)
		}
		*p = MaybePrice{Price: d, Available: true}
		return nil
	}

	d := decimal.Decimal{}
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("invalid market_price %s: %w", data, err)
	}
	*p = MaybePrice{Price: d, Available: true}
	return nil
}

type QuoteResponse struct {
	Ticker      string     `json:"ticker"`
	MarketPrice MaybePrice `json:"market_price"`
	Error       string     `json:"error,omitempty"`
}

type HistoryResponse struct {
	History []HistoryEntry `json:"history"`
}

// HistoryEntry carries either a market-value-based figure, a book-value-based
// one, or both. MarketValue wins when present.
type HistoryEntry struct {
	Date        string           `json:"date"`
	Value       decimal.Decimal  `json:"value"`
	MarketValue *decimal.Decimal `json:"market_value,omitempty"`
}

type TransactionsResponse struct {
	Transactions []TransactionEntry `json:"transactions"`
}

type TransactionEntry struct {
	ID              string          `json:"id"`
	Ticker          string          `json:"ticker"`
	Shares          decimal.Decimal `json:"shares"`
	Price           decimal.Decimal `json:"price"`
	TransactionType string          `json:"transaction_type"`
	CreatedAt       string          `json:"created_at"`
}

type WatchlistStockEntry struct {
	Ticker       string            `json:"ticker"`
	Description  string            `json:"description,omitempty"`
	Fundamentals FundamentalsEntry `json:"fundamentals"`
	Error        string            `json:"error,omitempty"`
}

type FundamentalsEntry struct {
	Company      string `json:"company"`
	Sector       string `json:"sector"`
	CurrentPrice string `json:"current_price"`
	Change       string `json:"change"`
	Volume       string `json:"volume"`
	AvgVolume    string `json:"avg_volume"`
	MarketCap    string `json:"market_cap"`
	PERatio      string `json:"pe_ratio"`
	Week52High   string `json:"52_week_high"`
	Week52Low    string `json:"52_week_low"`
	Beta         string `json:"beta"`
}

type OrderRequest struct {
	Ticker          string          `json:"ticker"`
	Shares          decimal.Decimal `json:"shares"`
	Price           decimal.Decimal `json:"price"`
	TransactionType string          `json:"transaction_type,omitempty"`
}

type WatchlistAddRequest struct {
	Ticker string `json:"ticker"`
}

type CashBalanceResponse struct {
	CashBalance decimal.Decimal `json:"cash_balance"`
}

type CashAmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	ThreadID string `json:"thread_id"`
	Reply    string `json:"reply"`
}

type UploadTransactionsResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}
