package dashboardService

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesmoraless/stockr/internal/model"
)

func point(day int, value string) model.HistoryPoint {
	return model.HistoryPoint{
		Date:  time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC),
		Value: dec(value),
	}
}

func TestSummarizeGrowth(t *testing.T) {
	tests := []struct {
		name           string
		points         []model.HistoryPoint
		authoritative  decimal.Decimal
		wantGrowth     decimal.Decimal
		wantDisplayVal decimal.Decimal
	}{
		{
			name:           "simple growth",
			points:         []model.HistoryPoint{point(1, "1000"), point(2, "1200")},
			authoritative:  dec("1200"),
			wantGrowth:     dec("20"),
			wantDisplayVal: dec("1200"),
		},
		{
			name:           "empty series",
			points:         nil,
			authoritative:  dec("500"),
			wantGrowth:     decimal.Zero,
			wantDisplayVal: dec("500"),
		},
		{
			name:           "single point no growth",
			points:         []model.HistoryPoint{point(1, "1000")},
			authoritative:  decimal.Zero,
			wantGrowth:     decimal.Zero,
			wantDisplayVal: dec("1000"),
		},
		{
			name:           "first point zero yields zero growth",
			points:         []model.HistoryPoint{point(1, "0"), point(2, "1200")},
			authoritative:  decimal.Zero,
			wantGrowth:     decimal.Zero,
			wantDisplayVal: dec("1200"),
		},
		{
			name:           "negative growth",
			points:         []model.HistoryPoint{point(1, "1000"), point(2, "800")},
			authoritative:  decimal.Zero,
			wantGrowth:     dec("-20"),
			wantDisplayVal: dec("800"),
		},
		{
			name:           "no authoritative total falls back to last point",
			points:         []model.HistoryPoint{point(1, "100"), point(2, "150")},
			authoritative:  decimal.Zero,
			wantGrowth:     dec("50"),
			wantDisplayVal: dec("150"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := summarizeGrowth(tt.points, tt.authoritative)

			assert.True(t, got.GrowthPercent.Equal(tt.wantGrowth), "growth = %s, want %s", got.GrowthPercent, tt.wantGrowth)
			assert.True(t, got.DisplayValue.Equal(tt.wantDisplayVal), "display = %s, want %s", got.DisplayValue, tt.wantDisplayVal)
		})
	}
}

func TestSummarizeGrowth_ReconcilesDriftedLastPoint(t *testing.T) {
	points := []model.HistoryPoint{point(1, "1000"), point(2, "1000")}

	got := summarizeGrowth(points, dec("1050"))

	require.Len(t, got.Series, 2)
	assert.True(t, got.Series[1].Value.Equal(dec("1050")), "last = %s", got.Series[1].Value)
	assert.True(t, got.GrowthPercent.Equal(dec("5")), "growth = %s", got.GrowthPercent)
	assert.True(t, got.DisplayValue.Equal(dec("1050")))
}

func TestSummarizeGrowth_SmallDriftLeftAlone(t *testing.T) {
	points := []model.HistoryPoint{point(1, "1000"), point(2, "1000")}

	got := summarizeGrowth(points, dec("1000.50"))

	assert.True(t, got.Series[1].Value.Equal(dec("1000")), "last = %s", got.Series[1].Value)
	assert.True(t, got.GrowthPercent.IsZero())
	// headline still shows the authoritative figure
	assert.True(t, got.DisplayValue.Equal(dec("1000.50")))
}

func TestSummarizeGrowth_DoesNotMutateInput(t *testing.T) {
	points := []model.HistoryPoint{point(1, "1000"), point(2, "1000")}

	first := summarizeGrowth(points, dec("1050"))
	second := summarizeGrowth(points, dec("1050"))

	assert.True(t, points[1].Value.Equal(dec("1000")), "input mutated: %s", points[1].Value)
	assert.True(t, first.GrowthPercent.Equal(second.GrowthPercent))
	assert.True(t, first.DisplayValue.Equal(second.DisplayValue))
}

func TestSummarizeGrowth_SinglePointReconciled(t *testing.T) {
	points := []model.HistoryPoint{point(1, "1000")}

	got := summarizeGrowth(points, dec("1050"))

	require.Len(t, got.Series, 1)
	assert.True(t, got.Series[0].Value.Equal(dec("1050")))
	assert.True(t, got.GrowthPercent.IsZero())
	assert.True(t, got.DisplayValue.Equal(dec("1050")))
}
