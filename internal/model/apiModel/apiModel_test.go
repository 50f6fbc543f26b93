package apiModel

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaybePrice_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantPrice string
		available bool
		wantErr   bool
	}{
		{name: "json number", payload: `{"market_price":185.5}`, wantPrice: "185.5", available: true},
		{name: "numeric string", payload: `{"market_price":"185.5"}`, wantPrice: "185.5", available: true},
		{name: "not available", payload: `{"market_price":"N/A"}`, available: false},
		{name: "null", payload: `{"market_price":null}`, available: false},
		{name: "empty string", payload: `{"market_price":""}`, available: false},
		{name: "garbage", payload: `{"market_price":"soon"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := QuoteResponse{}
			err := json.Unmarshal([]byte(tt.payload), &res)

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.available, res.MarketPrice.Available)
			if tt.available {
				assert.True(t, res.MarketPrice.Price.Equal(decimal.RequireFromString(tt.wantPrice)))
			}
		})
	}
}
