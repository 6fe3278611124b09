package services_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travorier/app/models"
	"travorier/app/services"
)

func ptr(v float64) *float64 { return &v }

func catalog() []models.Offer {
	verified := &models.Profile{ID: "t1", Verified: true}
	return []models.Offer{
		{ID: "a", OriginCity: "Paris", OriginCountry: "France", DestinationCity: "Dakar", DestinationCountry: "Senegal", DepartureDate: "2024-06-03", AvailableWeightKg: 10, PricePerKg: 8},
		{ID: "b", OriginCity: "Lyon", OriginCountry: "France", DestinationCity: "Abidjan", DestinationCountry: "Ivory Coast", DepartureDate: "2024-06-01", AvailableWeightKg: 5, PricePerKg: 12, Boosted: true},
		{ID: "c", OriginCity: "paris", OriginCountry: "France", DestinationCity: "Bamako", DestinationCountry: "Mali", DepartureDate: "2024-06-02", AvailableWeightKg: 20, PricePerKg: 5, Traveler: verified},
		{ID: "d", OriginCity: "Brussels", OriginCountry: "Belgium", DestinationCity: "Dakar", DestinationCountry: "Senegal", DepartureDate: "2024-06-03", AvailableWeightKg: 2, PricePerKg: 15, Boosted: true, Traveler: verified},
		{ID: "e", OriginCity: "Marseille", OriginCountry: "France", DestinationCity: "Dakar", DestinationCountry: "Senegal", DepartureDate: "2024-06-03", AvailableWeightKg: 7, PricePerKg: 9},
	}
}

func ids(offers []models.Offer) []string {
	out := make([]string, len(offers))
	for i, o := range offers {
		out[i] = o.ID
	}
	return out
}

func TestApplyFiltersRanking(t *testing.T) {
	got := services.ApplyFilters(catalog(), services.OfferFilters{})

	// boosted b, d by date; then c, and a/e tie on date so keep catalog order
	assert.Equal(t, []string{"b", "d", "c", "a", "e"}, ids(got))
}

func TestApplyFiltersRankingProperty(t *testing.T) {
	got := services.ApplyFilters(catalog(), services.OfferFilters{})
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		if prev.Boosted == cur.Boosted {
			assert.LessOrEqual(t, prev.DepartureDate, cur.DepartureDate)
		} else {
			assert.True(t, prev.Boosted, "non-boosted %s ranked before boosted %s", prev.ID, cur.ID)
		}
	}
}

func TestApplyFiltersPredicates(t *testing.T) {
	tests := []struct {
		name    string
		filters services.OfferFilters
		want    []string
	}{
		{"free text matches city case-insensitively", services.OfferFilters{Query: "DAKAR"}, []string{"d", "a", "e"}},
		{"free text matches country substring", services.OfferFilters{Query: "ivory"}, []string{"b"}},
		{"origin city equality ignores case", services.OfferFilters{OriginCity: "PARIS"}, []string{"c", "a"}},
		{"origin city is not a substring match", services.OfferFilters{OriginCity: "Par"}, []string{}},
		{"destination city", services.OfferFilters{DestinationCity: "dakar"}, []string{"d", "a", "e"}},
		{"departure date exact", services.OfferFilters{DepartureDate: "2024-06-02"}, []string{"c"}},
		{"min weight inclusive", services.OfferFilters{MinWeightKg: ptr(7)}, []string{"c", "a", "e"}},
		{"max price inclusive", services.OfferFilters{MaxPricePerKg: ptr(9)}, []string{"c", "a", "e"}},
		{"verified only", services.OfferFilters{VerifiedOnly: true}, []string{"d", "c"}},
		{"predicates combine with AND", services.OfferFilters{DestinationCity: "Dakar", MaxPricePerKg: ptr(8.5)}, []string{"a"}},
		{"nothing matches", services.OfferFilters{Query: "tokyo"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := services.ApplyFilters(catalog(), tt.filters)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestApplyFiltersReturnsEverySatisfyingOffer(t *testing.T) {
	filters := services.OfferFilters{Query: "france", MinWeightKg: ptr(5)}
	got := services.ApplyFilters(catalog(), filters)

	want := map[string]bool{}
	for _, o := range catalog() {
		if o.OriginCountry == "France" && o.AvailableWeightKg >= 5 {
			want[o.ID] = true
		}
	}
	require.Len(t, got, len(want))
	for _, o := range got {
		assert.True(t, want[o.ID], "unexpected offer %s", o.ID)
	}
}

func TestApplyFiltersDoesNotMutateInput(t *testing.T) {
	in := catalog()
	services.ApplyFilters(in, services.OfferFilters{})
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(in))
}

func TestParseOfferFilters(t *testing.T) {
	params := map[string]string{
		"q":                "dakar",
		"origin_city":      " Paris ",
		"min_weight":       "2.5",
		"max_price_per_kg": "10",
		"verified_only":    "true",
	}
	f, err := services.ParseOfferFilters(func(k string) string { return params[k] })
	require.NoError(t, err)
	assert.Equal(t, "dakar", f.Query)
	assert.Equal(t, "Paris", f.OriginCity)
	require.NotNil(t, f.MinWeightKg)
	assert.Equal(t, 2.5, *f.MinWeightKg)
	require.NotNil(t, f.MaxPricePerKg)
	assert.Equal(t, 10.0, *f.MaxPricePerKg)
	assert.True(t, f.VerifiedOnly)
}

func TestParseOfferFiltersRejectsBadNumbers(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"min_weight", "heavy"},
		{"min_weight", "NaN"},
		{"min_weight", "+Inf"},
		{"max_price_per_kg", "nan"},
		{"max_price_per_kg", "-Inf"},
		{"verified_only", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			_, err := services.ParseOfferFilters(func(k string) string {
				if k == tt.key {
					return tt.value
				}
				return ""
			})
			require.ErrorIs(t, err, models.ErrInvalidField)
			var appErr *models.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.key, appErr.Field)
		})
	}
}
