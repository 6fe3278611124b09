package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"travorier/app/models"
)

// RequestService owns the catalog of package requests
type RequestService struct {
	store  RequestStore
	now    Clock
	logger zerolog.Logger
}

// NewRequestService creates a new request service instance
func NewRequestService(store RequestStore, now Clock, logger zerolog.Logger) *RequestService {
	if now == nil {
		now = time.Now
	}
	return &RequestService{
		store:  store,
		now:    now,
		logger: logger.With().Str("component", "requests").Logger(),
	}
}

// CreateRequest validates and stores an open package request for owner
func (s *RequestService) CreateRequest(ctx context.Context, owner string, req models.CreateRequestRequest) (*models.Request, error) {
	if err := validateRoute(req.OriginCity, req.OriginCountry, req.DestinationCity, req.DestinationCountry); err != nil {
		return nil, err
	}
	neededBy := strings.TrimSpace(req.NeededByDate)
	if _, err := time.Parse(models.DateLayout, neededBy); err != nil {
		return nil, models.ErrInvalidField.WithField("needed_by_date").WithMessage("needed_by_date must be YYYY-MM-DD")
	}
	if req.PackageWeightKg <= 0 {
		return nil, models.ErrInvalidWeight.WithField("package_weight_kg")
	}
	description := strings.TrimSpace(req.PackageDescription)
	if utf8.RuneCountInString(description) < models.MinDescriptionLength {
		return nil, models.ErrDescriptionShort.WithField("package_description")
	}
	if req.DeclaredValue != nil && *req.DeclaredValue < 0 {
		return nil, models.ErrInvalidField.WithField("package_value").WithMessage("declared value cannot be negative")
	}

	request := models.Request{
		ID:                  uuid.NewString(),
		OwnerID:             owner,
		OriginCity:          strings.TrimSpace(req.OriginCity),
		OriginCountry:       strings.TrimSpace(req.OriginCountry),
		DestinationCity:     strings.TrimSpace(req.DestinationCity),
		DestinationCountry:  strings.TrimSpace(req.DestinationCountry),
		NeededByDate:        neededBy,
		PackageWeightKg:     req.PackageWeightKg,
		PackageDescription:  description,
		DeclaredValue:       req.DeclaredValue,
		SpecialInstructions: strings.TrimSpace(req.SpecialInstructions),
		Status:              models.RequestStatusOpen,
		CreatedAt:           s.now().UTC(),
	}

	if err := s.store.CreateRequest(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	s.logger.Info().Str("request_id", request.ID).Str("owner_id", owner).Msg("request created")
	return &request, nil
}

// GetRequest returns one request
func (s *RequestService) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	return s.store.GetRequest(ctx, id)
}

// ListByOwner returns the requests posted by owner
func (s *RequestService) ListByOwner(ctx context.Context, owner string) ([]models.Request, error) {
	requests, err := s.store.ListRequestsByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests for %s: %w", owner, err)
	}
	return requests, nil
}

// ListOpen returns every request still waiting for a traveler
func (s *RequestService) ListOpen(ctx context.Context) ([]models.Request, error) {
	requests, err := s.store.ListOpenRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list open requests: %w", err)
	}
	return requests, nil
}
