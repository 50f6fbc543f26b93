package dashboardService

import (
	"github.com/shopspring/decimal"

	"github.com/jamesmoraless/stockr/internal/model"
)

// grayShades is the allocation chart palette, darkest last. Rows past the
// twentieth wrap around.
var grayShades = [...]string{
	"#F0F0F0", "#E3E3E3", "#D7D7D7", "#CACACA",
	"#BDBDBD", "#B1B1B1", "#A4A4A4", "#989898",
	"#8B8B8B", "#7E7E7E", "#727272", "#656565",
	"#585858", "#4C4C4C", "#3F3F3F", "#333333",
	"#262626", "#191919", "#0D0D0D", "#000000",
}

var hundred = decimal.NewFromInt(100)

// buildSnapshot prices each holding with its quote (when one exists) and
// derives total market value and per-holding allocation percentages.
//
// The valuation basis is the total market value when it is positive,
// otherwise the sum of book values, so a portfolio with every quote missing
// still renders a sensible total and allocation split. The basis is also the
// reported snapshot total. A holding without a quote contributes its book
// value to the percentage math but keeps a nil market value, which is how the
// caller tells a stale row from a priced one.
func buildSnapshot(portfolioID string, holdings []model.Holding, quotes map[string]model.Quote) model.PortfolioSnapshot {
	totalMarketValue := decimal.Zero
	totalBookValue := decimal.Zero

	for i := range holdings {
		h := &holdings[i]
		totalBookValue = totalBookValue.Add(h.BookValue)

		quote, ok := quotes[h.Ticker]
		if !ok || !quote.Available {
			continue
		}

		price := quote.Price
		marketValue := h.Shares.Mul(price)
		h.MarketPrice = &price
		h.MarketValue = &marketValue
		totalMarketValue = totalMarketValue.Add(marketValue)
	}

	basis := totalMarketValue
	if !basis.IsPositive() {
		basis = totalBookValue
	}

	for i := range holdings {
		h := &holdings[i]
		h.DisplayColor = grayShades[i%len(grayShades)]

		if !basis.IsPositive() {
			h.AllocationPct = decimal.Zero
			continue
		}
		h.AllocationPct = h.ValuationBasis().Mul(hundred).Div(basis)
	}

	return model.PortfolioSnapshot{
		PortfolioID: portfolioID,
		Holdings:    holdings,
		TotalValue:  basis,
	}
}
