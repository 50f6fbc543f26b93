package dashboardService

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesmoraless/stockr/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func holding(ticker, shares, bookValue string) model.Holding {
	return model.Holding{
		Ticker:    ticker,
		Shares:    dec(shares),
		BookValue: dec(bookValue),
	}
}

func quote(ticker, price string) model.Quote {
	return model.Quote{Ticker: ticker, Price: dec(price), Available: true}
}

func TestBuildSnapshot_AllocationPercentages(t *testing.T) {
	holdings := []model.Holding{
		holding("AAPL", "1", "90"),
		holding("MSFT", "3", "250"),
	}
	quotes := map[string]model.Quote{
		"AAPL": quote("AAPL", "100"),
		"MSFT": quote("MSFT", "100"),
	}

	snapshot := buildSnapshot("pf-1", holdings, quotes)

	require.Len(t, snapshot.Holdings, 2)
	assert.True(t, snapshot.TotalValue.Equal(dec("400")), "total = %s", snapshot.TotalValue)
	assert.True(t, snapshot.Holdings[0].AllocationPct.Equal(dec("25")), "AAPL pct = %s", snapshot.Holdings[0].AllocationPct)
	assert.True(t, snapshot.Holdings[1].AllocationPct.Equal(dec("75")), "MSFT pct = %s", snapshot.Holdings[1].AllocationPct)

	require.NotNil(t, snapshot.Holdings[0].MarketValue)
	assert.True(t, snapshot.Holdings[0].MarketValue.Equal(dec("100")))
}

func TestBuildSnapshot_PercentagesSumToHundred(t *testing.T) {
	holdings := []model.Holding{
		holding("A", "1", "10"),
		holding("B", "1", "10"),
		holding("C", "1", "10"),
	}
	quotes := map[string]model.Quote{
		"A": quote("A", "33.33"),
		"B": quote("B", "33.33"),
		"C": quote("C", "33.34"),
	}

	snapshot := buildSnapshot("pf-1", holdings, quotes)

	sum := decimal.Zero
	for _, h := range snapshot.Holdings {
		sum = sum.Add(h.AllocationPct)
	}
	assert.True(t, sum.Sub(dec("100")).Abs().LessThanOrEqual(dec("0.01")), "sum = %s", sum)
}

func TestBuildSnapshot_MissingQuoteFallsBackToBookValue(t *testing.T) {
	holdings := []model.Holding{
		holding("AAPL", "1", "90"),
		holding("FAIL", "2", "100"),
	}
	quotes := map[string]model.Quote{
		"AAPL": quote("AAPL", "100"),
	}

	snapshot := buildSnapshot("pf-1", holdings, quotes)

	// priced holdings set the basis, so the total is market-value based
	assert.True(t, snapshot.TotalValue.Equal(dec("100")))

	failed := snapshot.Holdings[1]
	assert.Nil(t, failed.MarketPrice)
	assert.Nil(t, failed.MarketValue)
	// book value still participates in the split
	assert.True(t, failed.AllocationPct.Equal(dec("100")), "pct = %s", failed.AllocationPct)
}

func TestBuildSnapshot_NoQuotesUsesBookValueBasis(t *testing.T) {
	holdings := []model.Holding{
		holding("A", "1", "300"),
		holding("B", "1", "100"),
	}

	snapshot := buildSnapshot("pf-1", holdings, map[string]model.Quote{})

	// with every quote missing the book-value sum is the reported total,
	// never zero next to a 100% allocation split
	assert.True(t, snapshot.TotalValue.Equal(dec("400")), "total = %s", snapshot.TotalValue)
	assert.True(t, snapshot.Holdings[0].AllocationPct.Equal(dec("75")))
	assert.True(t, snapshot.Holdings[1].AllocationPct.Equal(dec("25")))
}

func TestBuildSnapshot_ZeroBasisYieldsZeroPercentages(t *testing.T) {
	holdings := []model.Holding{
		holding("A", "0", "0"),
		holding("B", "0", "0"),
	}

	snapshot := buildSnapshot("pf-1", holdings, map[string]model.Quote{})

	for _, h := range snapshot.Holdings {
		assert.True(t, h.AllocationPct.IsZero(), "pct for %s = %s", h.Ticker, h.AllocationPct)
	}
}

func TestBuildSnapshot_Empty(t *testing.T) {
	snapshot := buildSnapshot("pf-1", nil, nil)

	assert.Equal(t, "pf-1", snapshot.PortfolioID)
	assert.Empty(t, snapshot.Holdings)
	assert.True(t, snapshot.TotalValue.IsZero())
}

func TestBuildSnapshot_PaletteAssignmentWraps(t *testing.T) {
	holdings := make([]model.Holding, 22)
	for i := range holdings {
		holdings[i] = holding("T", "1", "10")
	}

	snapshot := buildSnapshot("pf-1", holdings, map[string]model.Quote{})

	assert.Equal(t, grayShades[0], snapshot.Holdings[0].DisplayColor)
	assert.Equal(t, grayShades[19], snapshot.Holdings[19].DisplayColor)
	assert.Equal(t, grayShades[0], snapshot.Holdings[20].DisplayColor)
	assert.Equal(t, grayShades[1], snapshot.Holdings[21].DisplayColor)
}
