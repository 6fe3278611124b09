package models

import "time"

// Request statuses
const (
	RequestStatusOpen      = "open"
	RequestStatusMatched   = "matched"
	RequestStatusCompleted = "completed"
)

// MinDescriptionLength is the minimum trimmed length of a package description
const MinDescriptionLength = 10

// Request is a sender's need to have a package carried along a route
type Request struct {
	ID                  string    `json:"id" cql:"id"`
	OwnerID             string    `json:"sender_id" cql:"owner_id"`
	OriginCity          string    `json:"origin_city" cql:"origin_city"`
	OriginCountry       string    `json:"origin_country" cql:"origin_country"`
	DestinationCity     string    `json:"destination_city" cql:"destination_city"`
	DestinationCountry  string    `json:"destination_country" cql:"destination_country"`
	NeededByDate        string    `json:"needed_by_date" cql:"needed_by_date"`
	PackageWeightKg     float64   `json:"package_weight_kg" cql:"package_weight_kg"`
	PackageDescription  string    `json:"package_description" cql:"package_description"`
	DeclaredValue       *float64  `json:"package_value,omitempty" cql:"declared_value"`
	SpecialInstructions string    `json:"special_instructions,omitempty" cql:"special_instructions"`
	Status              string    `json:"status" cql:"status"`
	CreatedAt           time.Time `json:"created_at" cql:"created_at"`
}

// CreateRequestRequest is the payload for posting a package request
type CreateRequestRequest struct {
	OriginCity          string   `json:"origin_city"`
	OriginCountry       string   `json:"origin_country"`
	DestinationCity     string   `json:"destination_city"`
	DestinationCountry  string   `json:"destination_country"`
	NeededByDate        string   `json:"needed_by_date"`
	PackageWeightKg     float64  `json:"package_weight_kg"`
	PackageDescription  string   `json:"package_description"`
	DeclaredValue       *float64 `json:"package_value,omitempty"`
	SpecialInstructions string   `json:"special_instructions,omitempty"`
}
