package models

import (
	"fmt"
	"time"
)

// Offer statuses
const (
	OfferStatusActive    = "active"
	OfferStatusMatched   = "matched"
	OfferStatusCompleted = "completed"
)

// DateLayout is the wire format of departure and needed-by dates
const DateLayout = "2006-01-02"

// Offer is a traveler's trip with spare luggage capacity for hire
type Offer struct {
	ID                 string    `json:"id" cql:"id"`
	OwnerID            string    `json:"traveler_id" cql:"owner_id"`
	OriginCity         string    `json:"origin_city" cql:"origin_city"`
	OriginCountry      string    `json:"origin_country" cql:"origin_country"`
	DestinationCity    string    `json:"destination_city" cql:"destination_city"`
	DestinationCountry string    `json:"destination_country" cql:"destination_country"`
	DepartureDate      string    `json:"departure_date" cql:"departure_date"`
	DepartureTime      string    `json:"departure_time,omitempty" cql:"departure_time"` // HH:MM, UTC
	FlightNumber       string    `json:"flight_number,omitempty" cql:"flight_number"`
	Airline            string    `json:"airline,omitempty" cql:"airline"`
	AvailableWeightKg  float64   `json:"available_weight_kg" cql:"available_weight_kg"`
	PricePerKg         float64   `json:"price_per_kg" cql:"price_per_kg"`
	Boosted            bool      `json:"is_boosted" cql:"boosted"`
	Status             string    `json:"status" cql:"status"`
	CreatedAt          time.Time `json:"created_at" cql:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" cql:"updated_at"`

	// Traveler is joined from the profile directory on read
	Traveler *Profile `json:"traveler,omitempty" cql:"-"`
}

// DepartureAt combines departure date and optional time into a UTC instant
func (o Offer) DepartureAt() (time.Time, error) {
	if o.DepartureTime == "" {
		t, err := time.Parse(DateLayout, o.DepartureDate)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid departure date %q: %w", o.DepartureDate, err)
		}
		return t.UTC(), nil
	}
	t, err := time.Parse(DateLayout+" 15:04", o.DepartureDate+" "+o.DepartureTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid departure %q %q: %w", o.DepartureDate, o.DepartureTime, err)
	}
	return t.UTC(), nil
}

// OwnerVerified reports whether the joined traveler profile is verified
func (o Offer) OwnerVerified() bool {
	return o.Traveler != nil && o.Traveler.Verified
}

// CreateOfferRequest is the payload for posting a trip
type CreateOfferRequest struct {
	OriginCity         string  `json:"origin_city"`
	OriginCountry      string  `json:"origin_country"`
	DestinationCity    string  `json:"destination_city"`
	DestinationCountry string  `json:"destination_country"`
	DepartureDate      string  `json:"departure_date"`
	DepartureTime      string  `json:"departure_time,omitempty"`
	FlightNumber       string  `json:"flight_number,omitempty"`
	Airline            string  `json:"airline,omitempty"`
	AvailableWeightKg  float64 `json:"available_weight_kg"`
	PricePerKg         float64 `json:"price_per_kg"`
}
