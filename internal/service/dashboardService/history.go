package dashboardService

import (
	"github.com/shopspring/decimal"

	"github.com/jamesmoraless/stockr/internal/model"
)

// reconcileThreshold is how far the recorded last history point may drift
// from the freshly computed total before the series is patched.
var reconcileThreshold = decimal.NewFromInt(1)

// summarizeGrowth reduces a history series to a growth percentage and a
// headline value. authoritativeTotal is the portfolio's current market value;
// zero means no authoritative figure is available.
//
// When the recorded last point disagrees with the authoritative total by more
// than the threshold, the last point is replaced before the growth math runs,
// so stale snapshots do not skew the figure. Growth is zero when fewer than
// two points exist or the series starts at zero.
func summarizeGrowth(points []model.HistoryPoint, authoritativeTotal decimal.Decimal) model.GrowthSummary {
	series := make([]model.HistoryPoint, len(points))
	copy(series, points)

	if len(series) > 0 && authoritativeTotal.IsPositive() {
		last := &series[len(series)-1]
		if last.Value.Sub(authoritativeTotal).Abs().GreaterThan(reconcileThreshold) {
			last.Value = authoritativeTotal
		}
	}

	displayValue := authoritativeTotal
	if !displayValue.IsPositive() && len(series) > 0 {
		displayValue = series[len(series)-1].Value
	}

	growth := decimal.Zero
	if len(series) >= 2 {
		first := series[0].Value
		last := series[len(series)-1].Value
		if !first.IsZero() {
			growth = last.Sub(first).Mul(hundred).Div(first)
		}
	}

	return model.GrowthSummary{
		GrowthPercent: growth,
		Series:        series,
		DisplayValue:  displayValue,
	}
}
