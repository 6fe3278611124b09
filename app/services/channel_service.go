package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"travorier/app/metrics"
	"travorier/app/models"
)

// DefaultLockWindow is how long after departure a match's chat stays open
const DefaultLockWindow = 24 * time.Hour

// ChannelService runs the per-match chat: history, live feed and the
// post-departure lock
type ChannelService struct {
	store     Store
	hub       *Hub
	publisher Publisher
	window    time.Duration
	now       Clock
	logger    zerolog.Logger

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewChannelService creates a new channel service instance. When publisher is
// nil messages are delivered through hub directly.
func NewChannelService(store Store, hub *Hub, publisher Publisher, window time.Duration, now Clock, logger zerolog.Logger) *ChannelService {
	if publisher == nil {
		publisher = hub
	}
	if window <= 0 {
		window = DefaultLockWindow
	}
	if now == nil {
		now = time.Now
	}
	return &ChannelService{
		store:     store,
		hub:       hub,
		publisher: publisher,
		window:    window,
		now:       now,
		logger:    logger.With().Str("component", "channels").Logger(),
		entropy:   ulid.Monotonic(rand.Reader, 0),
	}
}

// OpenChannel is what a client needs to render a chat: a live subscription
// taken before the history read, so nothing committed in between is missed
type OpenChannel struct {
	Status       models.ChannelStatus
	History      []models.Message
	Subscription *Subscription
}

// LockTime returns departure + lock window for an offer
func (s *ChannelService) LockTime(offer models.Offer) (time.Time, error) {
	departure, err := offer.DepartureAt()
	if err != nil {
		return time.Time{}, err
	}
	return departure.Add(s.window), nil
}

// IsLocked reports whether the channel is closed to new messages at instant at
func IsLocked(lockTime, at time.Time) bool {
	return !at.Before(lockTime)
}

// Status reports the lock time and whether the channel currently accepts messages
func (s *ChannelService) Status(ctx context.Context, identity, matchID string) (*models.ChannelStatus, error) {
	match, err := s.authorize(ctx, identity, matchID)
	if err != nil {
		return nil, err
	}
	return s.status(ctx, match)
}

// LoadHistory returns every persisted message of the match, oldest first.
// Each call reads the store again.
func (s *ChannelService) LoadHistory(ctx context.Context, identity, matchID string) ([]models.Message, error) {
	match, err := s.authorizeOpen(ctx, identity, matchID)
	if err != nil {
		return nil, err
	}
	return s.history(ctx, match.ID)
}

// Subscribe starts a live feed of messages committed from now on
func (s *ChannelService) Subscribe(ctx context.Context, identity, matchID string) (*Subscription, error) {
	match, err := s.authorizeOpen(ctx, identity, matchID)
	if err != nil {
		return nil, err
	}
	return s.hub.Subscribe(match.ID), nil
}

// Open subscribes and then loads history. The caller owns the subscription.
func (s *ChannelService) Open(ctx context.Context, identity, matchID string) (*OpenChannel, error) {
	match, err := s.authorizeOpen(ctx, identity, matchID)
	if err != nil {
		return nil, err
	}
	status, err := s.status(ctx, match)
	if err != nil {
		return nil, err
	}

	sub := s.hub.Subscribe(match.ID)
	history, err := s.history(ctx, match.ID)
	if err != nil {
		sub.Unsubscribe()
		return nil, err
	}

	return &OpenChannel{Status: *status, History: history, Subscription: sub}, nil
}

// Send appends a message from identity and fans it out to live subscribers
func (s *ChannelService) Send(ctx context.Context, identity, matchID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		metrics.MessagesRejected.WithLabelValues("empty").Inc()
		return nil, models.ErrEmptyContent.WithField("content")
	}

	match, err := s.authorizeOpen(ctx, identity, matchID)
	if err != nil {
		return nil, err
	}

	lockTime, err := s.lockTimeFor(ctx, match)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC().Truncate(time.Millisecond)
	if IsLocked(lockTime, now) {
		metrics.MessagesRejected.WithLabelValues("locked").Inc()
		return nil, models.ErrChannelLocked
	}

	msg := models.Message{
		ID:        s.newID(now),
		MatchID:   match.ID,
		SenderID:  identity,
		Content:   content,
		CreatedAt: now,
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}
	metrics.MessagesSent.Inc()

	// The message is committed; a delivery failure only delays it until the next history load.
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Warn().Err(err).Str("match_id", match.ID).Str("message_id", msg.ID).Msg("failed to publish message")
	}

	return &msg, nil
}

// ReapLocked closes live subscriptions on channels that have locked and
// returns how many were closed
func (s *ChannelService) ReapLocked(ctx context.Context) int {
	closed := 0
	now := s.now().UTC()
	for _, matchID := range s.hub.MatchIDs() {
		match, err := s.store.GetMatch(ctx, matchID)
		if err != nil {
			s.logger.Warn().Err(err).Str("match_id", matchID).Msg("failed to load match for reaping")
			continue
		}
		lockTime, err := s.lockTimeFor(ctx, match)
		if err != nil {
			continue
		}
		if IsLocked(lockTime, now) {
			closed += s.hub.CloseMatch(matchID, models.ErrChannelLocked)
		}
	}
	return closed
}

func (s *ChannelService) history(ctx context.Context, matchID string) ([]models.Message, error) {
	messages, err := s.store.ListMessages(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages for match %s: %w", matchID, err)
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Before(messages[j])
	})
	return messages, nil
}

func (s *ChannelService) status(ctx context.Context, match *models.Match) (*models.ChannelStatus, error) {
	lockTime, err := s.lockTimeFor(ctx, match)
	if err != nil {
		return nil, err
	}
	return &models.ChannelStatus{
		MatchID:  match.ID,
		LockTime: lockTime,
		Locked:   IsLocked(lockTime, s.now().UTC()),
		Unlocked: match.ContactUnlocked,
	}, nil
}

func (s *ChannelService) lockTimeFor(ctx context.Context, match *models.Match) (time.Time, error) {
	offer, err := s.store.GetOffer(ctx, match.OfferID)
	if err != nil {
		return time.Time{}, err
	}
	lockTime, err := s.LockTime(*offer)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to compute lock time for match %s: %w", match.ID, err)
	}
	return lockTime, nil
}

func (s *ChannelService) authorize(ctx context.Context, identity, matchID string) (*models.Match, error) {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasParticipant(identity) {
		return nil, models.ErrNotParticipant
	}
	return match, nil
}

// authorizeOpen additionally requires the contact to have been unlocked
func (s *ChannelService) authorizeOpen(ctx context.Context, identity, matchID string) (*models.Match, error) {
	match, err := s.authorize(ctx, identity, matchID)
	if err != nil {
		return nil, err
	}
	if !match.ContactUnlocked {
		return nil, models.ErrUnlockRequired
	}
	return match, nil
}

// newID returns a ULID; ids minted in the same millisecond increase in call order
func (s *ChannelService) newID(at time.Time) string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), s.entropy).String()
}
