package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is one portfolio line item. MarketPrice and MarketValue are nil when
// the live quote lookup failed or reported the ticker as unavailable; such a
// holding still participates in the snapshot with its book value.
type Holding struct {
	Ticker        string
	Shares        decimal.Decimal
	AverageCost   decimal.Decimal
	BookValue     decimal.Decimal
	MarketPrice   *decimal.Decimal
	MarketValue   *decimal.Decimal
	AllocationPct decimal.Decimal
	DisplayColor  string
}

// ValuationBasis is the holding's contribution to the portfolio total: market
// value when a live quote was available, book value otherwise.
func (h Holding) ValuationBasis() decimal.Decimal {
	if h.MarketValue != nil {
		return *h.MarketValue
	}
	return h.BookValue
}

// PortfolioSnapshot is the fully valued view of one portfolio at one point in
// time. It is rebuilt wholesale on every valuation pass, never mutated.
type PortfolioSnapshot struct {
	PortfolioID string
	Holdings    []Holding
	TotalValue  decimal.Decimal
}

type HistoryPoint struct {
	Date  time.Time
	Value decimal.Decimal
}

type GrowthSummary struct {
	GrowthPercent decimal.Decimal
	Series        []HistoryPoint
	DisplayValue  decimal.Decimal
}
