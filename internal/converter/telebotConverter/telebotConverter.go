// Package telebotConverter renders domain models into Telegram message text.
package telebotConverter

import (
	"fmt"
	"strings"

	"github.com/jamesmoraless/stockr/internal/model"
)

func PortfolioToText(snapshot model.PortfolioSnapshot) string {
	if len(snapshot.Holdings) == 0 {
		return "Your portfolio is empty."
	}

	var sb strings.Builder
	sb.WriteString("📊 Portfolio\n\n")

	for _, h := range snapshot.Holdings {
		sb.WriteString(fmt.Sprintf("%s: %s shares", h.Ticker, h.Shares.String()))
		if h.MarketValue != nil {
			sb.WriteString(fmt.Sprintf(" | %s", h.MarketValue.StringFixed(2)))
		} else {
			sb.WriteString(fmt.Sprintf(" | %s (book)", h.BookValue.StringFixed(2)))
		}
		sb.WriteString(fmt.Sprintf(" | %s%%\n", h.AllocationPct.StringFixed(2)))
	}

	sb.WriteString(fmt.Sprintf("\nTotal value: %s", snapshot.TotalValue.StringFixed(2)))

	return sb.String()
}

func GrowthToText(growth model.GrowthSummary) string {
	if len(growth.Series) == 0 {
		return "No portfolio history yet."
	}

	arrow := "📈"
	if growth.GrowthPercent.IsNegative() {
		arrow = "📉"
	}

	return fmt.Sprintf(
		"%s Growth: %s%%\nCurrent value: %s\nData points: %d",
		arrow,
		growth.GrowthPercent.StringFixed(2),
		growth.DisplayValue.StringFixed(2),
		len(growth.Series),
	)
}

func WatchlistToText(items []model.WatchlistItem) string {
	if len(items) == 0 {
		return "Your watchlist is empty."
	}

	var sb strings.Builder
	sb.WriteString("👀 Watchlist\n\n")

	for _, item := range items {
		sb.WriteString(item.Ticker)
		if item.Fundamentals.CurrentPrice != "" {
			sb.WriteString(fmt.Sprintf(": %s (%s)", item.Fundamentals.CurrentPrice, item.Fundamentals.Change))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func TransactionsToText(txns []model.Transaction) string {
	if len(txns) == 0 {
		return "No transactions yet."
	}

	var sb strings.Builder
	sb.WriteString("🧾 Transactions\n\n")

	for _, txn := range txns {
		sb.WriteString(fmt.Sprintf(
			"%s %s %s @ %s (%s)\n",
			strings.ToUpper(txn.Type),
			txn.Shares.String(),
			txn.Ticker,
			txn.Price.StringFixed(2),
			txn.CreatedAt.Format("2006-01-02"),
		))
	}

	return sb.String()
}
