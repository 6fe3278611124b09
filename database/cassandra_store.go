package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gocql/gocql"

	"travorier/app/models"
)

// CassandraStore persists offers, requests, matches and messages in Cassandra.
// Conditional updates use lightweight transactions.
type CassandraStore struct {
	session *gocql.Session
}

// NewCassandraStore wraps an open session
func NewCassandraStore(session *gocql.Session) *CassandraStore {
	return &CassandraStore{session: session}
}

// Close closes the underlying session
func (s *CassandraStore) Close() {
	s.session.Close()
}

// Ping checks the connection
func (s *CassandraStore) Ping(ctx context.Context) error {
	return HealthCheck(ctx, s.session)
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, gocql.ErrNotFound) {
		return models.ErrNotFound.WithMessage("%s %s not found", kind, id)
	}
	return fmt.Errorf("failed to load %s %s: %w", kind, id, err)
}

func (s *CassandraStore) cas(ctx context.Context, stmt string, values ...interface{}) (bool, error) {
	applied, err := s.session.Query(stmt, values...).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// Offers

const offerColumns = `id, owner_id, origin_city, origin_country, destination_city, destination_country,
	departure_date, departure_time, flight_number, airline, available_weight_kg, price_per_kg,
	boosted, status, created_at, updated_at`

func offerDest(o *models.Offer) []interface{} {
	return []interface{}{&o.ID, &o.OwnerID, &o.OriginCity, &o.OriginCountry, &o.DestinationCity,
		&o.DestinationCountry, &o.DepartureDate, &o.DepartureTime, &o.FlightNumber, &o.Airline,
		&o.AvailableWeightKg, &o.PricePerKg, &o.Boosted, &o.Status, &o.CreatedAt, &o.UpdatedAt}
}

func (s *CassandraStore) CreateOffer(ctx context.Context, o models.Offer) error {
	return s.session.Query(`INSERT INTO offers (`+offerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.OwnerID, o.OriginCity, o.OriginCountry, o.DestinationCity, o.DestinationCountry,
		o.DepartureDate, o.DepartureTime, o.FlightNumber, o.Airline, o.AvailableWeightKg, o.PricePerKg,
		o.Boosted, o.Status, o.CreatedAt, o.UpdatedAt,
	).WithContext(ctx).Exec()
}

func (s *CassandraStore) GetOffer(ctx context.Context, id string) (*models.Offer, error) {
	var o models.Offer
	err := s.session.Query(`SELECT `+offerColumns+` FROM offers WHERE id = ?`, id).
		WithContext(ctx).Scan(offerDest(&o)...)
	if err != nil {
		return nil, notFound(err, "offer", id)
	}
	return &o, nil
}

func (s *CassandraStore) listOffers(ctx context.Context, where string, value string) ([]models.Offer, error) {
	iter := s.session.Query(`SELECT `+offerColumns+` FROM offers WHERE `+where+` = ?`, value).WithContext(ctx).Iter()
	var offers []models.Offer
	var o models.Offer
	for iter.Scan(offerDest(&o)...) {
		offers = append(offers, o)
		o = models.Offer{}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	// Partition order is token order; catalog order is creation order.
	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].CreatedAt.Before(offers[j].CreatedAt)
	})
	return offers, nil
}

func (s *CassandraStore) ListActiveOffers(ctx context.Context) ([]models.Offer, error) {
	return s.listOffers(ctx, "status", models.OfferStatusActive)
}

func (s *CassandraStore) ListOffersByOwner(ctx context.Context, ownerID string) ([]models.Offer, error) {
	return s.listOffers(ctx, "owner_id", ownerID)
}

func (s *CassandraStore) SetOfferBoosted(ctx context.Context, id string, boosted bool, at time.Time) error {
	return s.session.Query(`UPDATE offers SET boosted = ?, updated_at = ? WHERE id = ?`, boosted, at, id).
		WithContext(ctx).Exec()
}

func (s *CassandraStore) ConsumeCapacity(ctx context.Context, id string, expectedKg, remainingKg float64, status string, at time.Time) (bool, error) {
	return s.cas(ctx, `UPDATE offers SET available_weight_kg = ?, status = ?, updated_at = ? WHERE id = ? IF available_weight_kg = ?`,
		remainingKg, status, at, id, expectedKg)
}

func (s *CassandraStore) SetOfferStatus(ctx context.Context, id, from, to string, at time.Time) (bool, error) {
	return s.cas(ctx, `UPDATE offers SET status = ?, updated_at = ? WHERE id = ? IF status = ?`, to, at, id, from)
}

// Requests

const requestColumns = `id, owner_id, origin_city, origin_country, destination_city, destination_country,
	needed_by_date, package_weight_kg, package_description, declared_value, special_instructions,
	status, created_at`

func requestDest(r *models.Request) []interface{} {
	return []interface{}{&r.ID, &r.OwnerID, &r.OriginCity, &r.OriginCountry, &r.DestinationCity,
		&r.DestinationCountry, &r.NeededByDate, &r.PackageWeightKg, &r.PackageDescription,
		&r.DeclaredValue, &r.SpecialInstructions, &r.Status, &r.CreatedAt}
}

func (s *CassandraStore) CreateRequest(ctx context.Context, r models.Request) error {
	return s.session.Query(`INSERT INTO requests (`+requestColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.OwnerID, r.OriginCity, r.OriginCountry, r.DestinationCity, r.DestinationCountry,
		r.NeededByDate, r.PackageWeightKg, r.PackageDescription, r.DeclaredValue, r.SpecialInstructions,
		r.Status, r.CreatedAt,
	).WithContext(ctx).Exec()
}

func (s *CassandraStore) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	var r models.Request
	err := s.session.Query(`SELECT `+requestColumns+` FROM requests WHERE id = ?`, id).
		WithContext(ctx).Scan(requestDest(&r)...)
	if err != nil {
		return nil, notFound(err, "request", id)
	}
	return &r, nil
}

func (s *CassandraStore) listRequests(ctx context.Context, where, value string) ([]models.Request, error) {
	iter := s.session.Query(`SELECT `+requestColumns+` FROM requests WHERE `+where+` = ?`, value).WithContext(ctx).Iter()
	var requests []models.Request
	var r models.Request
	for iter.Scan(requestDest(&r)...) {
		requests = append(requests, r)
		r = models.Request{}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].CreatedAt.Before(requests[j].CreatedAt)
	})
	return requests, nil
}

func (s *CassandraStore) ListRequestsByOwner(ctx context.Context, ownerID string) ([]models.Request, error) {
	return s.listRequests(ctx, "owner_id", ownerID)
}

func (s *CassandraStore) ListOpenRequests(ctx context.Context) ([]models.Request, error) {
	return s.listRequests(ctx, "status", models.RequestStatusOpen)
}

func (s *CassandraStore) SetRequestStatus(ctx context.Context, id, from, to string) (bool, error) {
	return s.cas(ctx, `UPDATE requests SET status = ? WHERE id = ? IF status = ?`, to, id, from)
}

// Matches

const matchColumns = `id, request_id, offer_id, sender_id, traveler_id, agreed_weight_kg, agreed_price,
	status, contact_unlocked, unlocked_by, unlocked_at, created_at, updated_at`

func matchDest(m *models.Match) []interface{} {
	return []interface{}{&m.ID, &m.RequestID, &m.OfferID, &m.SenderID, &m.TravelerID, &m.AgreedWeightKg,
		&m.AgreedPrice, &m.Status, &m.ContactUnlocked, &m.UnlockedBy, &m.UnlockedAt, &m.CreatedAt, &m.UpdatedAt}
}

func (s *CassandraStore) CreateMatch(ctx context.Context, m models.Match) error {
	batch := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`INSERT INTO matches (`+matchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.RequestID, m.OfferID, m.SenderID, m.TravelerID, m.AgreedWeightKg, m.AgreedPrice,
		m.Status, m.ContactUnlocked, m.UnlockedBy, m.UnlockedAt, m.CreatedAt, m.UpdatedAt)
	batch.Query(`INSERT INTO matches_by_participant (participant_id, match_id) VALUES (?, ?)`, m.SenderID, m.ID)
	batch.Query(`INSERT INTO matches_by_participant (participant_id, match_id) VALUES (?, ?)`, m.TravelerID, m.ID)
	return s.session.ExecuteBatch(batch)
}

func (s *CassandraStore) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	var m models.Match
	err := s.session.Query(`SELECT `+matchColumns+` FROM matches WHERE id = ?`, id).
		WithContext(ctx).Scan(matchDest(&m)...)
	if err != nil {
		return nil, notFound(err, "match", id)
	}
	return &m, nil
}

func (s *CassandraStore) ListMatchesByParticipant(ctx context.Context, identity string) ([]models.Match, error) {
	iter := s.session.Query(`SELECT match_id FROM matches_by_participant WHERE participant_id = ?`, identity).
		WithContext(ctx).Iter()
	var ids []string
	var id string
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	matches := make([]models.Match, 0, len(ids))
	for _, id := range ids {
		m, err := s.GetMatch(ctx, id)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			return nil, err
		}
		matches = append(matches, *m)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

func (s *CassandraStore) ListMatchesByRequest(ctx context.Context, requestID string) ([]models.Match, error) {
	iter := s.session.Query(`SELECT `+matchColumns+` FROM matches WHERE request_id = ?`, requestID).WithContext(ctx).Iter()
	var matches []models.Match
	var m models.Match
	for iter.Scan(matchDest(&m)...) {
		matches = append(matches, m)
		m = models.Match{}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

func (s *CassandraStore) MarkUnlocked(ctx context.Context, id, by string, at time.Time) (bool, error) {
	return s.cas(ctx, `UPDATE matches SET contact_unlocked = true, unlocked_by = ?, unlocked_at = ?, updated_at = ?
		WHERE id = ? IF contact_unlocked = false`, by, at, at, id)
}

func (s *CassandraStore) SetMatchStatus(ctx context.Context, id, from, to string, at time.Time) (bool, error) {
	return s.cas(ctx, `UPDATE matches SET status = ?, updated_at = ? WHERE id = ? IF status = ?`, to, at, id, from)
}

// Messages

func (s *CassandraStore) AppendMessage(ctx context.Context, msg models.Message) error {
	return s.session.Query(`INSERT INTO messages_by_match (match_id, created_at, id, sender_id, content)
		VALUES (?, ?, ?, ?, ?)`,
		msg.MatchID, msg.CreatedAt, msg.ID, msg.SenderID, msg.Content,
	).WithContext(ctx).Exec()
}

func (s *CassandraStore) ListMessages(ctx context.Context, matchID string) ([]models.Message, error) {
	iter := s.session.Query(`SELECT id, match_id, sender_id, content, created_at FROM messages_by_match
		WHERE match_id = ?`, matchID).WithContext(ctx).Iter()
	var messages []models.Message
	var m models.Message
	for iter.Scan(&m.ID, &m.MatchID, &m.SenderID, &m.Content, &m.CreatedAt) {
		m.CreatedAt = m.CreatedAt.UTC()
		messages = append(messages, m)
		m = models.Message{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}
