package services

import (
	"context"
	"time"

	"travorier/app/models"
)

// OfferStore persists trips. Conditional updates return applied=false when
// the stored row no longer matches the expected value.
type OfferStore interface {
	CreateOffer(ctx context.Context, offer models.Offer) error
	GetOffer(ctx context.Context, id string) (*models.Offer, error)
	ListActiveOffers(ctx context.Context) ([]models.Offer, error)
	ListOffersByOwner(ctx context.Context, ownerID string) ([]models.Offer, error)
	SetOfferBoosted(ctx context.Context, id string, boosted bool, at time.Time) error
	ConsumeCapacity(ctx context.Context, id string, expectedKg, remainingKg float64, status string, at time.Time) (bool, error)
	SetOfferStatus(ctx context.Context, id, from, to string, at time.Time) (bool, error)
}

// RequestStore persists package requests
type RequestStore interface {
	CreateRequest(ctx context.Context, request models.Request) error
	GetRequest(ctx context.Context, id string) (*models.Request, error)
	ListRequestsByOwner(ctx context.Context, ownerID string) ([]models.Request, error)
	ListOpenRequests(ctx context.Context) ([]models.Request, error)
	SetRequestStatus(ctx context.Context, id, from, to string) (bool, error)
}

// MatchStore persists matches
type MatchStore interface {
	CreateMatch(ctx context.Context, match models.Match) error
	GetMatch(ctx context.Context, id string) (*models.Match, error)
	ListMatchesByParticipant(ctx context.Context, identity string) ([]models.Match, error)
	ListMatchesByRequest(ctx context.Context, requestID string) ([]models.Match, error)
	// MarkUnlocked flips contact_unlocked only if it is still false
	MarkUnlocked(ctx context.Context, id, by string, at time.Time) (bool, error)
	SetMatchStatus(ctx context.Context, id, from, to string, at time.Time) (bool, error)
}

// MessageStore persists channel messages in creation order
type MessageStore interface {
	AppendMessage(ctx context.Context, msg models.Message) error
	ListMessages(ctx context.Context, matchID string) ([]models.Message, error)
}

// Store bundles every collection the core reads and writes
type Store interface {
	OfferStore
	RequestStore
	MatchStore
	MessageStore
}

// ProfileDirectory resolves owner ids to public profiles
type ProfileDirectory interface {
	GetProfiles(ctx context.Context, ids []string) (map[string]models.Profile, error)
}

// CreditLedger is the external per-identity credit balance. Debit and Refund
// are idempotent per reference: replaying the same reference is a no-op.
type CreditLedger interface {
	Balance(ctx context.Context, identity string) (int64, error)
	Debit(ctx context.Context, identity string, amount int64, ref string) error
	Refund(ctx context.Context, identity string, amount int64, ref string) error
	Grant(ctx context.Context, identity string, amount int64, ref string) error
}

// Locker serializes work on a single key across callers
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Publisher hands a committed message to the live delivery path
type Publisher interface {
	Publish(ctx context.Context, msg models.Message) error
}

// Clock returns the current time; services take one so tests can pin it
type Clock func() time.Time
