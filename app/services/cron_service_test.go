package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travorier/app/models"
	"travorier/app/services"
)

func TestCronRunOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	departed := f.offer(t, traveler, 10, 5, "2024-06-01", "")
	upcoming := f.offer(t, traveler, 10, 5, "2024-07-01", "")
	match := f.unlockedMatch(t, departed, sender, 2)

	sub, err := f.channels.Subscribe(ctx, sender, match.ID)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	cron := services.NewCronService(f.offers, f.channels, 24*time.Hour, zerolog.Nop())

	stats := cron.RunOnce(ctx)
	assert.Equal(t, 0, stats.OffersCompleted)
	assert.Equal(t, 0, stats.SubscriptionsClosed)

	f.clock.Set(time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC))
	stats = cron.RunOnce(ctx)
	assert.Equal(t, 1, stats.OffersCompleted)
	assert.Equal(t, 1, stats.SubscriptionsClosed)

	got, err := f.store.GetOffer(ctx, departed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusCompleted, got.Status)
	got, err = f.store.GetOffer(ctx, upcoming.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusActive, got.Status)
}

func TestCronStartStop(t *testing.T) {
	f := newFixture(t)
	cron := services.NewCronService(f.offers, f.channels, 0, zerolog.Nop())

	cron.Start(time.Hour)
	assert.True(t, cron.IsRunning())
	cron.Start(time.Hour)
	cron.RequestRun()

	cron.Stop()
	assert.False(t, cron.IsRunning())
	cron.Stop()
}
