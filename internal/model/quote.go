package model

import "github.com/shopspring/decimal"

// Quote is the current market price for one ticker. Available is false when
// the upstream reported "N/A"; Price is zero in that case.
type Quote struct {
	Ticker    string
	Price     decimal.Decimal
	Available bool
}
