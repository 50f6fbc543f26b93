package model

type state int

const (
	DefaultState state = iota
	ExpectingBuyOrder
	ExpectingSellOrder
	ExpectingWatchTicker
)

// Session is the Telegram bot's per-chat conversation state.
type Session struct {
	State state
}
