package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travorier/app/models"
)

func TestCreateRequestValidation(t *testing.T) {
	negative := -5.0
	base := models.CreateRequestRequest{
		OriginCity: "Paris", OriginCountry: "France",
		DestinationCity: "Dakar", DestinationCountry: "Senegal",
		NeededByDate: "2024-06-10", PackageWeightKg: 2,
		PackageDescription: "Spare phone charger",
	}

	tests := []struct {
		name    string
		mutate  func(*models.CreateRequestRequest)
		wantErr error
	}{
		{"zero weight", func(r *models.CreateRequestRequest) { r.PackageWeightKg = 0 }, models.ErrInvalidWeight},
		{"short description", func(r *models.CreateRequestRequest) { r.PackageDescription = "books" }, models.ErrDescriptionShort},
		{"description padded with spaces", func(r *models.CreateRequestRequest) { r.PackageDescription = "   shoes     " }, models.ErrDescriptionShort},
		{"missing route", func(r *models.CreateRequestRequest) { r.OriginCountry = "" }, models.ErrInvalidField},
		{"bad needed-by date", func(r *models.CreateRequestRequest) { r.NeededByDate = "soon" }, models.ErrInvalidField},
		{"negative declared value", func(r *models.CreateRequestRequest) { r.DeclaredValue = &negative }, models.ErrInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := base
			tt.mutate(&req)
			_, err := f.requests.CreateRequest(context.Background(), sender, req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateRequestAcceptsTenCharacters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	request, err := f.requests.CreateRequest(ctx, sender, models.CreateRequestRequest{
		OriginCity: "Paris", OriginCountry: "France",
		DestinationCity: "Dakar", DestinationCountry: "Senegal",
		NeededByDate: "2024-06-10", PackageWeightKg: 1,
		PackageDescription: "  0123456789  ",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusOpen, request.Status)

	open, err := f.requests.ListOpen(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	mine, err := f.requests.ListByOwner(ctx, sender)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
