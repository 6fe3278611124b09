package models

import "time"

// Match statuses
const (
	MatchStatusInitiated = "initiated"
	MatchStatusAccepted  = "accepted"
	MatchStatusRejected  = "rejected"
)

// Match pairs one request with one offer at an agreed weight and price
type Match struct {
	ID              string     `json:"id" cql:"id"`
	RequestID       string     `json:"request_id" cql:"request_id"`
	OfferID         string     `json:"trip_id" cql:"offer_id"`
	SenderID        string     `json:"sender_id" cql:"sender_id"`
	TravelerID      string     `json:"traveler_id" cql:"traveler_id"`
	AgreedWeightKg  float64    `json:"agreed_weight_kg" cql:"agreed_weight_kg"`
	AgreedPrice     float64    `json:"agreed_price" cql:"agreed_price"`
	Status          string     `json:"status" cql:"status"`
	ContactUnlocked bool       `json:"contact_unlocked" cql:"contact_unlocked"`
	UnlockedBy      string     `json:"unlocked_by,omitempty" cql:"unlocked_by"`
	UnlockedAt      *time.Time `json:"unlocked_at,omitempty" cql:"unlocked_at"`
	CreatedAt       time.Time  `json:"created_at" cql:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" cql:"updated_at"`
}

// HasParticipant reports whether identity is the sender or the traveler
func (m Match) HasParticipant(identity string) bool {
	return identity != "" && (identity == m.SenderID || identity == m.TravelerID)
}

// IsTerminal reports whether no further status transition is possible
func (m Match) IsTerminal() bool {
	return m.Status == MatchStatusAccepted || m.Status == MatchStatusRejected
}

// CreateMatchRequest is the payload for proposing a request on a trip
type CreateMatchRequest struct {
	RequestID string  `json:"request_id"`
	OfferID   string  `json:"trip_id"`
	WeightKg  float64 `json:"weight_kg"`
}
