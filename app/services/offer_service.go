package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"travorier/app/models"
)

// OfferService owns the catalog of trips
type OfferService struct {
	store    OfferStore
	profiles ProfileDirectory
	locker   Locker
	now      Clock
	logger   zerolog.Logger
}

// NewOfferService creates a new offer service instance. profiles may be nil,
// in which case offers are returned without traveler details. locker must be
// shared with the MatchService so status changes and capacity updates on one
// trip are serialized.
func NewOfferService(store OfferStore, profiles ProfileDirectory, locker Locker, now Clock, logger zerolog.Logger) *OfferService {
	if locker == nil {
		locker = NewKeyedLocker()
	}
	if now == nil {
		now = time.Now
	}
	return &OfferService{
		store:    store,
		profiles: profiles,
		locker:   locker,
		now:      now,
		logger:   logger.With().Str("component", "offers").Logger(),
	}
}

// CreateOffer validates and stores a new active trip for owner
func (s *OfferService) CreateOffer(ctx context.Context, owner string, req models.CreateOfferRequest) (*models.Offer, error) {
	if err := validateRoute(req.OriginCity, req.OriginCountry, req.DestinationCity, req.DestinationCountry); err != nil {
		return nil, err
	}
	if req.AvailableWeightKg < 0 {
		return nil, models.ErrInvalidWeight.WithField("available_weight_kg").WithMessage("available weight cannot be negative")
	}
	if req.PricePerKg < 0 {
		return nil, models.ErrInvalidField.WithField("price_per_kg").WithMessage("price per kg cannot be negative")
	}

	now := s.now().UTC()
	offer := models.Offer{
		ID:                 uuid.NewString(),
		OwnerID:            owner,
		OriginCity:         strings.TrimSpace(req.OriginCity),
		OriginCountry:      strings.TrimSpace(req.OriginCountry),
		DestinationCity:    strings.TrimSpace(req.DestinationCity),
		DestinationCountry: strings.TrimSpace(req.DestinationCountry),
		DepartureDate:      strings.TrimSpace(req.DepartureDate),
		DepartureTime:      strings.TrimSpace(req.DepartureTime),
		FlightNumber:       strings.TrimSpace(req.FlightNumber),
		Airline:            strings.TrimSpace(req.Airline),
		AvailableWeightKg:  req.AvailableWeightKg,
		PricePerKg:         req.PricePerKg,
		Status:             models.OfferStatusActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if _, err := offer.DepartureAt(); err != nil {
		return nil, models.ErrInvalidField.WithField("departure_date").WithMessage("%v", err)
	}

	if err := s.store.CreateOffer(ctx, offer); err != nil {
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}

	s.logger.Info().Str("offer_id", offer.ID).Str("owner_id", owner).Msg("offer created")
	return &offer, nil
}

// GetOffer returns one trip with its traveler profile joined
func (s *OfferService) GetOffer(ctx context.Context, id string) (*models.Offer, error) {
	offer, err := s.store.GetOffer(ctx, id)
	if err != nil {
		return nil, err
	}
	joined := []models.Offer{*offer}
	s.joinProfiles(ctx, joined)
	return &joined[0], nil
}

// ListActive returns every active trip in catalog order
func (s *OfferService) ListActive(ctx context.Context) ([]models.Offer, error) {
	offers, err := s.store.ListActiveOffers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active offers: %w", err)
	}
	s.joinProfiles(ctx, offers)
	return offers, nil
}

// ListByOwner returns the trips posted by owner
func (s *OfferService) ListByOwner(ctx context.Context, owner string) ([]models.Offer, error) {
	offers, err := s.store.ListOffersByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers for %s: %w", owner, err)
	}
	s.joinProfiles(ctx, offers)
	return offers, nil
}

// Search lists active trips and applies filters and ranking
func (s *OfferService) Search(ctx context.Context, filters OfferFilters) ([]models.Offer, error) {
	offers, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return ApplyFilters(offers, filters), nil
}

// Boost promotes an owner's active trip ahead of non-boosted trips
func (s *OfferService) Boost(ctx context.Context, owner, id string) (*models.Offer, error) {
	offer, err := s.store.GetOffer(ctx, id)
	if err != nil {
		return nil, err
	}
	if offer.OwnerID != owner {
		return nil, models.ErrNotOwner
	}
	if offer.Status != models.OfferStatusActive {
		return nil, models.ErrOfferUnavailable
	}
	if offer.Boosted {
		return offer, nil
	}

	now := s.now().UTC()
	if err := s.store.SetOfferBoosted(ctx, id, true, now); err != nil {
		return nil, fmt.Errorf("failed to boost offer %s: %w", id, err)
	}
	offer.Boosted = true
	offer.UpdatedAt = now

	s.logger.Info().Str("offer_id", id).Msg("offer boosted")
	return offer, nil
}

// Cancel withdraws the owner's active trip from the catalog. Pending matches on
// it can no longer be accepted.
func (s *OfferService) Cancel(ctx context.Context, owner, id string) (*models.Offer, error) {
	offer, err := s.store.GetOffer(ctx, id)
	if err != nil {
		return nil, err
	}
	if offer.OwnerID != owner {
		return nil, models.ErrNotOwner
	}
	if offer.Status != models.OfferStatusActive {
		return nil, models.ErrOfferUnavailable
	}

	now := s.now().UTC()
	applied, err := s.retire(ctx, id, now)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel offer %s: %w", id, err)
	}
	if !applied {
		return nil, models.ErrOfferUnavailable
	}
	offer.Status = models.OfferStatusCompleted
	offer.UpdatedAt = now

	s.logger.Info().Str("offer_id", id).Msg("offer cancelled")
	return offer, nil
}

// retire moves an active trip to completed under the trip's lock
func (s *OfferService) retire(ctx context.Context, id string, at time.Time) (bool, error) {
	unlock, err := s.locker.Lock(ctx, offerLockKey(id))
	if err != nil {
		return false, fmt.Errorf("failed to lock offer %s: %w", id, err)
	}
	defer unlock()
	return s.store.SetOfferStatus(ctx, id, models.OfferStatusActive, models.OfferStatusCompleted, at)
}

// CompleteDeparted retires active trips whose channel lock time has passed
func (s *OfferService) CompleteDeparted(ctx context.Context, window time.Duration) (int, error) {
	offers, err := s.store.ListActiveOffers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active offers: %w", err)
	}

	now := s.now().UTC()
	completed := 0
	for _, o := range offers {
		departure, err := o.DepartureAt()
		if err != nil || now.Before(departure.Add(window)) {
			continue
		}
		applied, err := s.retire(ctx, o.ID, now)
		if err != nil {
			s.logger.Warn().Err(err).Str("offer_id", o.ID).Msg("failed to complete departed offer")
			continue
		}
		if applied {
			completed++
		}
	}
	return completed, nil
}

// joinProfiles fills Traveler on each offer; lookup failures leave it nil
func (s *OfferService) joinProfiles(ctx context.Context, offers []models.Offer) {
	if s.profiles == nil || len(offers) == 0 {
		return
	}
	ids := make([]string, 0, len(offers))
	seen := make(map[string]bool, len(offers))
	for _, o := range offers {
		if !seen[o.OwnerID] {
			seen[o.OwnerID] = true
			ids = append(ids, o.OwnerID)
		}
	}

	profiles, err := s.profiles.GetProfiles(ctx, ids)
	if err != nil {
		s.logger.Warn().Err(err).Msg("profile lookup failed, returning offers without travelers")
		return
	}
	for i := range offers {
		if p, ok := profiles[offers[i].OwnerID]; ok {
			p := p
			offers[i].Traveler = &p
		}
	}
}

func validateRoute(originCity, originCountry, destinationCity, destinationCountry string) error {
	fields := []struct{ name, value string }{
		{"origin_city", originCity},
		{"origin_country", originCountry},
		{"destination_city", destinationCity},
		{"destination_country", destinationCountry},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return models.ErrInvalidField.WithField(f.name).WithMessage("%s is required", f.name)
		}
	}
	return nil
}
