package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"travorier/app/models"
	"travorier/app/services"
	"travorier/database"
)

const (
	traveler = "user-traveler"
	sender   = "user-sender"
	stranger = "user-stranger"
)

// fakeClock is a settable services.Clock
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// fixture wires every service over in-memory backends
type fixture struct {
	store    *database.MemoryStore
	profiles *database.MemoryProfiles
	ledger   *services.MemoryLedger
	clock    *fakeClock
	hub      *services.Hub

	offers   *services.OfferService
	requests *services.RequestService
	matches  *services.MatchService
	unlocks  *services.UnlockService
	channels *services.ChannelService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, database.NewMemoryStore())
}

func newFixtureWithStore(t *testing.T, store services.Store) *fixture {
	t.Helper()

	logger := zerolog.Nop()
	f := &fixture{
		profiles: database.NewMemoryProfiles(),
		ledger:   services.NewMemoryLedger(),
		clock:    newClock(time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)),
		hub:      services.NewHub(8, logger),
	}
	if mem, ok := store.(*database.MemoryStore); ok {
		f.store = mem
	}
	locker := services.NewKeyedLocker()
	f.offers = services.NewOfferService(store, f.profiles, locker, f.clock.Now, logger)
	f.requests = services.NewRequestService(store, f.clock.Now, logger)
	f.matches = services.NewMatchService(store, locker, f.clock.Now, logger)
	f.unlocks = services.NewUnlockService(store, f.ledger, locker, 1, f.clock.Now, logger)
	f.channels = services.NewChannelService(store, f.hub, nil, 24*time.Hour, f.clock.Now, logger)
	t.Cleanup(f.hub.Close)
	return f
}

func (f *fixture) offer(t *testing.T, owner string, weightKg, pricePerKg float64, date, clock string) *models.Offer {
	t.Helper()
	offer, err := f.offers.CreateOffer(context.Background(), owner, models.CreateOfferRequest{
		OriginCity:         "Paris",
		OriginCountry:      "France",
		DestinationCity:    "Dakar",
		DestinationCountry: "Senegal",
		DepartureDate:      date,
		DepartureTime:      clock,
		AvailableWeightKg:  weightKg,
		PricePerKg:         pricePerKg,
	})
	require.NoError(t, err)
	return offer
}

func (f *fixture) request(t *testing.T, owner string, weightKg float64) *models.Request {
	t.Helper()
	request, err := f.requests.CreateRequest(context.Background(), owner, models.CreateRequestRequest{
		OriginCity:         "Paris",
		OriginCountry:      "France",
		DestinationCity:    "Dakar",
		DestinationCountry: "Senegal",
		NeededByDate:       "2024-06-10",
		PackageWeightKg:    weightKg,
		PackageDescription: "Two boxes of books",
	})
	require.NoError(t, err)
	return request
}

// unlockedMatch creates a match between a fresh request and offer and unlocks it
func (f *fixture) unlockedMatch(t *testing.T, offer *models.Offer, from string, weightKg float64) *models.Match {
	t.Helper()
	ctx := context.Background()
	request := f.request(t, from, weightKg)
	match, err := f.matches.CreateMatch(ctx, from, request.ID, offer.ID, weightKg)
	require.NoError(t, err)
	require.NoError(t, f.ledger.Grant(ctx, from, 1, "seed:"+match.ID))
	match, err = f.unlocks.Unlock(ctx, from, match.ID)
	require.NoError(t, err)
	require.True(t, match.ContactUnlocked)
	return match
}
