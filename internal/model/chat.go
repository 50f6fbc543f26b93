package model

import "time"

type ChatMessage struct {
	Role   string    `json:"role"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

const (
	ChatRoleUser  = "user"
	ChatRoleAgent = "agent"
)

// ChatSession is the persisted agent-conversation state for one user: the
// upstream thread id plus the local message log. UpdatedAt backs the 24h
// expiry check on load, in addition to the store's own TTL.
type ChatSession struct {
	ThreadID  string        `json:"thread_id"`
	Messages  []ChatMessage `json:"messages"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type ChatReply struct {
	ThreadID string
	Reply    string
}
