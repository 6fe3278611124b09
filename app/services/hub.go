package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"travorier/app/metrics"
	"travorier/app/models"
)

// DefaultSubscriptionBuffer is how many undelivered messages a subscriber may hold
const DefaultSubscriptionBuffer = 64

// Hub fans committed messages out to the live subscribers of each match
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	logger zerolog.Logger
}

// NewHub creates a hub whose subscriptions buffer up to buffer messages
func NewHub(buffer int, logger zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriptionBuffer
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger.With().Str("component", "hub").Logger(),
	}
}

// Subscription is a live feed of new messages for one match. It must be
// released with Unsubscribe when the consumer goes away.
type Subscription struct {
	matchID string
	ch      chan models.Message
	hub     *Hub
	once    sync.Once

	// guarded by hub.mu
	closed bool
	err    error
}

// MatchID returns the match this subscription follows
func (s *Subscription) MatchID() string {
	return s.matchID
}

// C yields messages as they are committed. It is closed on Unsubscribe or
// when the hub drops the subscription.
func (s *Subscription) C() <-chan models.Message {
	return s.ch
}

// Err reports why the hub closed the subscription, or nil
func (s *Subscription) Err() error {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.err
}

// Unsubscribe stops delivery. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		s.hub.detach(s, nil)
		s.hub.mu.Unlock()
	})
}

// Subscribe registers a new live feed for matchID
func (h *Hub) Subscribe(matchID string) *Subscription {
	sub := &Subscription{
		matchID: matchID,
		ch:      make(chan models.Message, h.buffer),
		hub:     h,
	}

	h.mu.Lock()
	set, ok := h.subs[matchID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[matchID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	metrics.ActiveSubscriptions.Inc()
	return sub
}

// Broadcast delivers msg to every subscriber of its match. A subscriber whose
// buffer is full is dropped rather than allowed to stall the others.
func (h *Hub) Broadcast(msg models.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[msg.MatchID] {
		select {
		case sub.ch <- msg:
		default:
			h.logger.Warn().Str("match_id", msg.MatchID).Msg("dropping slow subscriber")
			metrics.DroppedSubscriptions.Inc()
			h.detach(sub, models.ErrSlowConsumer)
		}
	}
}

// Publish implements Publisher for single-instance deployments
func (h *Hub) Publish(_ context.Context, msg models.Message) error {
	h.Broadcast(msg)
	return nil
}

// CloseMatch drops every subscriber of matchID with reason and returns how many were closed
func (h *Hub) CloseMatch(matchID string, reason error) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for sub := range h.subs[matchID] {
		h.detach(sub, reason)
		n++
	}
	return n
}

// MatchIDs returns the matches that currently have subscribers
func (h *Hub) MatchIDs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]string, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of live subscribers of matchID
func (h *Hub) Count(matchID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[matchID])
}

// Close drops every subscription
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, set := range h.subs {
		for sub := range set {
			h.detach(sub, nil)
		}
	}
}

// detach removes sub and closes its channel, discarding anything undelivered.
// Caller holds h.mu.
func (h *Hub) detach(sub *Subscription, reason error) {
	if sub.closed {
		return
	}
	sub.closed = true
	sub.err = reason

	if set, ok := h.subs[sub.matchID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.matchID)
		}
	}

	for len(sub.ch) > 0 {
		select {
		case <-sub.ch:
		default:
		}
	}
	close(sub.ch)
	metrics.ActiveSubscriptions.Dec()
}
