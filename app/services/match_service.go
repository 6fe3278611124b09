package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"travorier/app/metrics"
	"travorier/app/models"
)

// capacityRetries bounds the compare-and-set loop on an offer's remaining weight
const capacityRetries = 3

// MatchService creates matches between requests and trips and advances their status
type MatchService struct {
	store  Store
	locker Locker
	now    Clock
	logger zerolog.Logger
}

// NewMatchService creates a new match service instance
func NewMatchService(store Store, locker Locker, now Clock, logger zerolog.Logger) *MatchService {
	if locker == nil {
		locker = NewKeyedLocker()
	}
	if now == nil {
		now = time.Now
	}
	return &MatchService{
		store:  store,
		locker: locker,
		now:    now,
		logger: logger.With().Str("component", "matches").Logger(),
	}
}

// PriceFor returns weight × rate rounded half away from zero to the currency's minor unit
func PriceFor(weightKg, pricePerKg float64) float64 {
	return math.Round(weightKg*pricePerKg*100) / 100
}

// CheckCapacity validates a proposed weight against an offer's current capacity
func CheckCapacity(offer models.Offer, weightKg float64) error {
	if weightKg <= 0 || math.IsNaN(weightKg) {
		return models.ErrInvalidWeight.WithField("weight_kg")
	}
	if weightKg > offer.AvailableWeightKg {
		return models.ErrCapacityExceeded.WithField("weight_kg").
			WithMessage("exceeds available capacity (%g kg)", offer.AvailableWeightKg)
	}
	return nil
}

// CreateMatch proposes identity's request on a trip at weightKg. Capacity is
// checked against the trip as it is now; nothing is reserved until acceptance.
func (s *MatchService) CreateMatch(ctx context.Context, identity, requestID, offerID string, weightKg float64) (*models.Match, error) {
	if weightKg <= 0 || math.IsNaN(weightKg) {
		return nil, models.ErrInvalidWeight.WithField("weight_kg")
	}

	request, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.OwnerID != identity {
		return nil, models.ErrNotOwner
	}
	if request.Status != models.RequestStatusOpen {
		return nil, models.ErrInvalidTransition.WithMessage("request is already %s", request.Status)
	}

	offer, err := s.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.Status != models.OfferStatusActive {
		return nil, models.ErrOfferUnavailable
	}
	if offer.OwnerID == identity {
		return nil, models.ErrInvalidField.WithField("trip_id").WithMessage("cannot match a request with your own trip")
	}
	if err := CheckCapacity(*offer, weightKg); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	match := models.Match{
		ID:             uuid.NewString(),
		RequestID:      request.ID,
		OfferID:        offer.ID,
		SenderID:       request.OwnerID,
		TravelerID:     offer.OwnerID,
		AgreedWeightKg: weightKg,
		AgreedPrice:    PriceFor(weightKg, offer.PricePerKg),
		Status:         models.MatchStatusInitiated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.CreateMatch(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	metrics.MatchesCreated.Inc()
	s.logger.Info().
		Str("match_id", match.ID).
		Str("request_id", request.ID).
		Str("offer_id", offer.ID).
		Float64("weight_kg", weightKg).
		Float64("price", match.AgreedPrice).
		Msg("match created")

	return &match, nil
}

// GetMatch returns a match visible to identity
func (s *MatchService) GetMatch(ctx context.Context, identity, id string) (*models.Match, error) {
	match, err := s.store.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !match.HasParticipant(identity) {
		return nil, models.ErrNotParticipant
	}
	return match, nil
}

// ListMatches returns every match identity takes part in
func (s *MatchService) ListMatches(ctx context.Context, identity string) ([]models.Match, error) {
	matches, err := s.store.ListMatchesByParticipant(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for %s: %w", identity, err)
	}
	return matches, nil
}

// ListForRequest returns the matches proposed for a request owned by identity
func (s *MatchService) ListForRequest(ctx context.Context, identity, requestID string) ([]models.Match, error) {
	request, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.OwnerID != identity {
		return nil, models.ErrNotOwner
	}
	matches, err := s.store.ListMatchesByRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for request %s: %w", requestID, err)
	}
	return matches, nil
}

// AcceptMatch moves an unlocked, initiated match to accepted. The request is
// marked matched and the agreed weight is deducted from the trip's capacity;
// if any step fails the earlier ones are rolled back.
func (s *MatchService) AcceptMatch(ctx context.Context, identity, id string) (*models.Match, error) {
	unlock, err := s.locker.Lock(ctx, matchLockKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to lock match %s: %w", id, err)
	}
	defer unlock()

	// Once the lock is held the writes below must not be split by caller cancellation.
	ctx = context.WithoutCancel(ctx)

	match, err := s.GetMatch(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	if match.TravelerID != identity {
		return nil, models.ErrNotOwner.WithMessage("only the traveler can accept a match")
	}
	if match.IsTerminal() {
		return nil, models.ErrInvalidTransition.WithMessage("match is already %s", match.Status)
	}
	if !match.ContactUnlocked {
		return nil, models.ErrUnlockRequired
	}

	// The request is claimed before any capacity moves, so at most one of its
	// matches can be accepted.
	claimed, err := s.store.SetRequestStatus(ctx, match.RequestID, models.RequestStatusOpen, models.RequestStatusMatched)
	if err != nil {
		return nil, fmt.Errorf("failed to claim request %s: %w", match.RequestID, err)
	}
	if !claimed {
		return nil, models.ErrInvalidTransition.WithMessage("request is no longer open")
	}

	restore, err := s.consumeCapacity(ctx, match.OfferID, match.AgreedWeightKg)
	if err != nil {
		s.releaseRequest(ctx, match.RequestID)
		return nil, err
	}

	now := s.now().UTC()
	applied, err := s.store.SetMatchStatus(ctx, id, models.MatchStatusInitiated, models.MatchStatusAccepted, now)
	if err != nil || !applied {
		restore()
		s.releaseRequest(ctx, match.RequestID)
		if err != nil {
			return nil, fmt.Errorf("failed to accept match %s: %w", id, err)
		}
		return nil, models.ErrInvalidTransition
	}

	match.Status = models.MatchStatusAccepted
	match.UpdatedAt = now

	metrics.MatchTransitions.WithLabelValues(models.MatchStatusAccepted).Inc()
	s.logger.Info().Str("match_id", id).Str("by", identity).Msg("match accepted")
	return match, nil
}

// RejectMatch moves an initiated match to rejected
func (s *MatchService) RejectMatch(ctx context.Context, identity, id string) (*models.Match, error) {
	unlock, err := s.locker.Lock(ctx, matchLockKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to lock match %s: %w", id, err)
	}
	defer unlock()

	match, err := s.GetMatch(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	if match.IsTerminal() {
		return nil, models.ErrInvalidTransition.WithMessage("match is already %s", match.Status)
	}

	now := s.now().UTC()
	applied, err := s.store.SetMatchStatus(ctx, id, models.MatchStatusInitiated, models.MatchStatusRejected, now)
	if err != nil {
		return nil, fmt.Errorf("failed to reject match %s: %w", id, err)
	}
	if !applied {
		return nil, models.ErrInvalidTransition
	}

	match.Status = models.MatchStatusRejected
	match.UpdatedAt = now

	metrics.MatchTransitions.WithLabelValues(models.MatchStatusRejected).Inc()
	s.logger.Info().Str("match_id", id).Str("by", identity).Msg("match rejected")
	return match, nil
}

// consumeCapacity deducts weightKg from the offer with a compare-and-set and
// returns a function that gives it back
func (s *MatchService) consumeCapacity(ctx context.Context, offerID string, weightKg float64) (func(), error) {
	unlock, err := s.locker.Lock(ctx, offerLockKey(offerID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock offer %s: %w", offerID, err)
	}
	defer unlock()

	for attempt := 0; attempt < capacityRetries; attempt++ {
		offer, err := s.store.GetOffer(ctx, offerID)
		if err != nil {
			return nil, err
		}
		if offer.Status != models.OfferStatusActive {
			return nil, models.ErrOfferUnavailable
		}
		if err := CheckCapacity(*offer, weightKg); err != nil {
			return nil, err
		}

		remaining := roundWeight(offer.AvailableWeightKg - weightKg)
		status := models.OfferStatusActive
		if remaining <= 0 {
			status = models.OfferStatusMatched
		}

		applied, err := s.store.ConsumeCapacity(ctx, offerID, offer.AvailableWeightKg, remaining, status, s.now().UTC())
		if err != nil {
			return nil, fmt.Errorf("failed to consume capacity on offer %s: %w", offerID, err)
		}
		if applied {
			return func() { s.restoreCapacity(offerID, weightKg) }, nil
		}
	}
	return nil, fmt.Errorf("failed to consume capacity on offer %s: concurrent updates", offerID)
}

// restoreCapacity undoes consumeCapacity after a failed acceptance. A trip
// that was filled becomes active again; any other status is left alone.
func (s *MatchService) restoreCapacity(offerID string, weightKg float64) {
	ctx := context.Background()
	for attempt := 0; attempt < capacityRetries; attempt++ {
		offer, err := s.store.GetOffer(ctx, offerID)
		if err != nil {
			break
		}
		remaining := roundWeight(offer.AvailableWeightKg + weightKg)
		status := offer.Status
		if status == models.OfferStatusMatched && remaining > 0 {
			status = models.OfferStatusActive
		}
		applied, err := s.store.ConsumeCapacity(ctx, offerID, offer.AvailableWeightKg, remaining, status, s.now().UTC())
		if err == nil && applied {
			return
		}
	}
	s.logger.Error().Str("offer_id", offerID).Float64("weight_kg", weightKg).Msg("failed to restore offer capacity")
}

// releaseRequest reopens a request claimed by an acceptance that did not complete
func (s *MatchService) releaseRequest(ctx context.Context, requestID string) {
	applied, err := s.store.SetRequestStatus(ctx, requestID, models.RequestStatusMatched, models.RequestStatusOpen)
	if err != nil || !applied {
		s.logger.Error().Err(err).Str("request_id", requestID).Bool("applied", applied).Msg("failed to reopen request")
	}
}

// roundWeight trims float noise from capacity arithmetic to grams
func roundWeight(kg float64) float64 {
	return math.Round(kg*1000) / 1000
}

func matchLockKey(id string) string {
	return "match:" + id
}

func offerLockKey(id string) string {
	return "offer:" + id
}
