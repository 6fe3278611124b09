package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"travorier/app/models"
)

// MemoryStore is a process-local store used by tests and STORE_DRIVER=memory.
// Records are copied in and out so callers never share state with the store.
type MemoryStore struct {
	mu         sync.RWMutex
	offers     map[string]models.Offer
	offerOrder []string
	requests   map[string]models.Request
	reqOrder   []string
	matches    map[string]models.Match
	matchOrder []string
	messages   map[string][]models.Message
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		offers:   make(map[string]models.Offer),
		requests: make(map[string]models.Request),
		matches:  make(map[string]models.Match),
		messages: make(map[string][]models.Message),
	}
}

// Offers

func (s *MemoryStore) CreateOffer(_ context.Context, o models.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.offers[o.ID]; !ok {
		s.offerOrder = append(s.offerOrder, o.ID)
	}
	o.Traveler = nil
	s.offers[o.ID] = o
	return nil
}

func (s *MemoryStore) GetOffer(_ context.Context, id string) (*models.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.offers[id]
	if !ok {
		return nil, models.ErrNotFound.WithMessage("offer %s not found", id)
	}
	return &o, nil
}

func (s *MemoryStore) filterOffers(keep func(models.Offer) bool) []models.Offer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Offer
	for _, id := range s.offerOrder {
		if o := s.offers[id]; keep(o) {
			out = append(out, o)
		}
	}
	return out
}

func (s *MemoryStore) ListActiveOffers(_ context.Context) ([]models.Offer, error) {
	return s.filterOffers(func(o models.Offer) bool { return o.Status == models.OfferStatusActive }), nil
}

func (s *MemoryStore) ListOffersByOwner(_ context.Context, ownerID string) ([]models.Offer, error) {
	return s.filterOffers(func(o models.Offer) bool { return o.OwnerID == ownerID }), nil
}

func (s *MemoryStore) SetOfferBoosted(_ context.Context, id string, boosted bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offers[id]
	if !ok {
		return models.ErrNotFound.WithMessage("offer %s not found", id)
	}
	o.Boosted = boosted
	o.UpdatedAt = at
	s.offers[id] = o
	return nil
}

func (s *MemoryStore) ConsumeCapacity(_ context.Context, id string, expectedKg, remainingKg float64, status string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offers[id]
	if !ok {
		return false, models.ErrNotFound.WithMessage("offer %s not found", id)
	}
	if o.AvailableWeightKg != expectedKg {
		return false, nil
	}
	o.AvailableWeightKg = remainingKg
	o.Status = status
	o.UpdatedAt = at
	s.offers[id] = o
	return true, nil
}

func (s *MemoryStore) SetOfferStatus(_ context.Context, id, from, to string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offers[id]
	if !ok {
		return false, models.ErrNotFound.WithMessage("offer %s not found", id)
	}
	if o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = at
	s.offers[id] = o
	return true, nil
}

// Requests

func (s *MemoryStore) CreateRequest(_ context.Context, r models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[r.ID]; !ok {
		s.reqOrder = append(s.reqOrder, r.ID)
	}
	s.requests[r.ID] = r
	return nil
}

func (s *MemoryStore) GetRequest(_ context.Context, id string) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, models.ErrNotFound.WithMessage("request %s not found", id)
	}
	return &r, nil
}

func (s *MemoryStore) filterRequests(keep func(models.Request) bool) []models.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Request
	for _, id := range s.reqOrder {
		if r := s.requests[id]; keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s *MemoryStore) ListRequestsByOwner(_ context.Context, ownerID string) ([]models.Request, error) {
	return s.filterRequests(func(r models.Request) bool { return r.OwnerID == ownerID }), nil
}

func (s *MemoryStore) ListOpenRequests(_ context.Context) ([]models.Request, error) {
	return s.filterRequests(func(r models.Request) bool { return r.Status == models.RequestStatusOpen }), nil
}

func (s *MemoryStore) SetRequestStatus(_ context.Context, id, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return false, models.ErrNotFound.WithMessage("request %s not found", id)
	}
	if r.Status != from {
		return false, nil
	}
	r.Status = to
	s.requests[id] = r
	return true, nil
}

// Matches

func (s *MemoryStore) CreateMatch(_ context.Context, m models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[m.ID]; !ok {
		s.matchOrder = append(s.matchOrder, m.ID)
	}
	s.matches[m.ID] = m
	return nil
}

func (s *MemoryStore) GetMatch(_ context.Context, id string) (*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, models.ErrNotFound.WithMessage("match %s not found", id)
	}
	return &m, nil
}

func (s *MemoryStore) filterMatches(keep func(models.Match) bool) []models.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Match
	// newest first, like the Cassandra store
	for i := len(s.matchOrder) - 1; i >= 0; i-- {
		if m := s.matches[s.matchOrder[i]]; keep(m) {
			out = append(out, m)
		}
	}
	return out
}

func (s *MemoryStore) ListMatchesByParticipant(_ context.Context, identity string) ([]models.Match, error) {
	return s.filterMatches(func(m models.Match) bool { return m.HasParticipant(identity) }), nil
}

func (s *MemoryStore) ListMatchesByRequest(_ context.Context, requestID string) ([]models.Match, error) {
	return s.filterMatches(func(m models.Match) bool { return m.RequestID == requestID }), nil
}

func (s *MemoryStore) MarkUnlocked(_ context.Context, id, by string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return false, models.ErrNotFound.WithMessage("match %s not found", id)
	}
	if m.ContactUnlocked {
		return false, nil
	}
	m.ContactUnlocked = true
	m.UnlockedBy = by
	m.UnlockedAt = &at
	m.UpdatedAt = at
	s.matches[id] = m
	return true, nil
}

func (s *MemoryStore) SetMatchStatus(_ context.Context, id, from, to string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return false, models.ErrNotFound.WithMessage("match %s not found", id)
	}
	if m.Status != from {
		return false, nil
	}
	m.Status = to
	m.UpdatedAt = at
	s.matches[id] = m
	return true, nil
}

// Messages

func (s *MemoryStore) AppendMessage(_ context.Context, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.messages[msg.MatchID]
	for _, existing := range list {
		if existing.ID == msg.ID {
			return nil
		}
	}
	i := sort.Search(len(list), func(i int) bool { return msg.Before(list[i]) })
	list = append(list, models.Message{})
	copy(list[i+1:], list[i:])
	list[i] = msg
	s.messages[msg.MatchID] = list
	return nil
}

func (s *MemoryStore) ListMessages(_ context.Context, matchID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.messages[matchID]
	out := make([]models.Message, len(list))
	copy(out, list)
	return out, nil
}
