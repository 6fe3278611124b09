package models

import "time"

// Message is one immutable chat entry in a match's channel
type Message struct {
	ID        string    `json:"id" cql:"id"`
	MatchID   string    `json:"match_id" cql:"match_id"`
	SenderID  string    `json:"sender_id" cql:"sender_id"`
	Content   string    `json:"content" cql:"content"`
	CreatedAt time.Time `json:"created_at" cql:"created_at"`
}

// Before orders messages by server timestamp, then by id (ULIDs sort in assignment order)
func (m Message) Before(other Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID < other.ID
}

// SendMessageRequest is the payload for posting to a channel
type SendMessageRequest struct {
	Content string `json:"content"`
}

// ChannelStatus describes whether a match's channel still accepts messages
type ChannelStatus struct {
	MatchID  string    `json:"match_id"`
	LockTime time.Time `json:"lock_time"`
	Locked   bool      `json:"locked"`
	Unlocked bool      `json:"contact_unlocked"`
}
