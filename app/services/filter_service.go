package services

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"travorier/app/models"
)

// OfferFilters is the set of optional predicates applied to active trips.
// Nil pointers and empty strings mean "not supplied".
type OfferFilters struct {
	Query           string   `json:"q,omitempty"`
	OriginCity      string   `json:"origin_city,omitempty"`
	DestinationCity string   `json:"destination_city,omitempty"`
	DepartureDate   string   `json:"departure_date,omitempty"`
	MinWeightKg     *float64 `json:"min_weight,omitempty"`
	MaxPricePerKg   *float64 `json:"max_price_per_kg,omitempty"`
	VerifiedOnly    bool     `json:"verified_only,omitempty"`
}

type offerPredicate func(models.Offer) bool

// predicates returns one predicate per supplied filter
func (f OfferFilters) predicates() []offerPredicate {
	var preds []offerPredicate

	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		preds = append(preds, func(o models.Offer) bool {
			return strings.Contains(strings.ToLower(o.OriginCity), q) ||
				strings.Contains(strings.ToLower(o.DestinationCity), q) ||
				strings.Contains(strings.ToLower(o.OriginCountry), q) ||
				strings.Contains(strings.ToLower(o.DestinationCountry), q)
		})
	}
	if f.OriginCity != "" {
		preds = append(preds, func(o models.Offer) bool {
			return strings.EqualFold(o.OriginCity, f.OriginCity)
		})
	}
	if f.DestinationCity != "" {
		preds = append(preds, func(o models.Offer) bool {
			return strings.EqualFold(o.DestinationCity, f.DestinationCity)
		})
	}
	if f.DepartureDate != "" {
		preds = append(preds, func(o models.Offer) bool {
			return o.DepartureDate == f.DepartureDate
		})
	}
	if f.MinWeightKg != nil {
		min := *f.MinWeightKg
		preds = append(preds, func(o models.Offer) bool {
			return o.AvailableWeightKg >= min
		})
	}
	if f.MaxPricePerKg != nil {
		max := *f.MaxPricePerKg
		preds = append(preds, func(o models.Offer) bool {
			return o.PricePerKg <= max
		})
	}
	if f.VerifiedOnly {
		preds = append(preds, models.Offer.OwnerVerified)
	}

	return preds
}

// ApplyFilters returns the offers satisfying every supplied filter, boosted
// trips first and then by ascending departure. Equal-rank offers keep their
// input order. The input slice is not modified.
func ApplyFilters(offers []models.Offer, filters OfferFilters) []models.Offer {
	preds := filters.predicates()

	out := make([]models.Offer, 0, len(offers))
	for _, o := range offers {
		keep := true
		for _, p := range preds {
			if !p(o) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, o)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Boosted != out[j].Boosted {
			return out[i].Boosted
		}
		// YYYY-MM-DD sorts lexically in date order
		return out[i].DepartureDate < out[j].DepartureDate
	})
	return out
}

// ParseOfferFilters builds filters from query parameters. Unparseable numbers are reported
// as validation errors rather than silently ignored.
func ParseOfferFilters(get func(key string) string) (OfferFilters, error) {
	f := OfferFilters{
		Query:           get("q"),
		OriginCity:      strings.TrimSpace(get("origin_city")),
		DestinationCity: strings.TrimSpace(get("destination_city")),
		DepartureDate:   strings.TrimSpace(get("departure_date")),
	}

	if v := get("min_weight"); v != "" {
		n, err := parseAmount(v)
		if err != nil {
			return f, models.ErrInvalidField.WithField("min_weight")
		}
		f.MinWeightKg = &n
	}
	if v := get("max_price_per_kg"); v != "" {
		n, err := parseAmount(v)
		if err != nil {
			return f, models.ErrInvalidField.WithField("max_price_per_kg")
		}
		f.MaxPricePerKg = &n
	}
	if v := get("verified_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, models.ErrInvalidField.WithField("verified_only")
		}
		f.VerifiedOnly = b
	}

	return f, nil
}

// parseAmount accepts finite decimal numbers only
func parseAmount(v string) (float64, error) {
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%q is not a finite number", v)
	}
	return n, nil
}
