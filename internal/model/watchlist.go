package model

type WatchlistItem struct {
	Ticker       string
	Description  string
	Fundamentals Fundamentals
}

// Fundamentals mirrors the metrics block served per watchlist ticker. All
// values are preformatted strings upstream ("N/A" when missing).
type Fundamentals struct {
	Company      string
	Sector       string
	CurrentPrice string
	Change       string
	Volume       string
	AvgVolume    string
	MarketCap    string
	PERatio      string
	Week52High   string
	Week52Low    string
	Beta         string
}
