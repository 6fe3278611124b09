package controllers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travorier/app/controllers"
	"travorier/app/models"
	"travorier/app/routes"
	"travorier/app/services"
	"travorier/app/utils"
	"travorier/database"
)

const adminKey = "admin-key"

type testServer struct {
	app    *fiber.App
	tokens *utils.JWTManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zerolog.Nop()
	now := func() time.Time { return time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC) }

	store := database.NewMemoryStore()
	ledger := services.NewMemoryLedger()
	locker := services.NewKeyedLocker()
	hub := services.NewHub(8, logger)
	t.Cleanup(hub.Close)

	offers := services.NewOfferService(store, database.NewMemoryProfiles(), locker, now, logger)
	requests := services.NewRequestService(store, now, logger)
	matches := services.NewMatchService(store, locker, now, logger)
	unlocks := services.NewUnlockService(store, ledger, locker, 1, now, logger)
	channels := services.NewChannelService(store, hub, nil, 24*time.Hour, now, logger)

	tokens := utils.NewJWTManager("test-secret", time.Hour)
	app := fiber.New()
	routes.SetupRoutes(app, routes.Controllers{
		Offers:   controllers.NewOfferController(offers),
		Requests: controllers.NewRequestController(requests, matches),
		Matches:  controllers.NewMatchController(matches, unlocks),
		Chat:     controllers.NewChatController(channels),
		Credits:  controllers.NewCreditController(unlocks),
	}, routes.Options{
		AppName:     "TRAVORIER",
		AppVersion:  "test",
		Tokens:      tokens,
		AdminAPIKey: adminKey,
	})
	return &testServer{app: app, tokens: tokens}
}

type envelope struct {
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"error_code"`
	Field     string          `json:"field"`
	Data      json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path, user string, body interface{}, headers ...string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		token, err := s.tokens.GenerateToken(user)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestRequiresBearerToken(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodGet, "/api/v1/trips", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/trips", "", nil, "Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/trips", "u1", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestMatchFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodPost, "/api/v1/trips", "traveler", models.CreateOfferRequest{
		OriginCity: "Paris", OriginCountry: "France",
		DestinationCity: "Dakar", DestinationCountry: "Senegal",
		DepartureDate: "2024-06-01", AvailableWeightKg: 10, PricePerKg: 12.5,
	})
	require.Equal(t, http.StatusCreated, status)
	offer := decode[models.Offer](t, env)

	status, env = s.do(t, http.MethodPost, "/api/v1/requests", "sender", models.CreateRequestRequest{
		OriginCity: "Paris", OriginCountry: "France",
		DestinationCity: "Dakar", DestinationCountry: "Senegal",
		NeededByDate: "2024-06-10", PackageWeightKg: 4, PackageDescription: "A box of documents",
	})
	require.Equal(t, http.StatusCreated, status)
	request := decode[models.Request](t, env)

	status, env = s.do(t, http.MethodPost, "/api/v1/matches", "sender", models.CreateMatchRequest{
		RequestID: request.ID, OfferID: offer.ID, WeightKg: 10.1,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, models.ErrorCodeCapacityExceeded, env.ErrorCode)
	assert.Equal(t, "weight_kg", env.Field)

	status, env = s.do(t, http.MethodPost, "/api/v1/matches", "sender", models.CreateMatchRequest{
		RequestID: request.ID, OfferID: offer.ID, WeightKg: 4,
	})
	require.Equal(t, http.StatusCreated, status)
	match := decode[models.Match](t, env)
	assert.Equal(t, 50.0, match.AgreedPrice)

	status, env = s.do(t, http.MethodPost, "/api/v1/matches/"+match.ID+"/accept", "traveler", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, models.ErrorCodeUnlockRequired, env.ErrorCode)

	status, env = s.do(t, http.MethodPost, "/api/v1/matches/"+match.ID+"/unlock", "sender", nil)
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, models.ErrorCodeInsufficientCredit, env.ErrorCode)

	status, _ = s.do(t, http.MethodPost, "/api/v1/internal/credits/grants", "", controllers.GrantCreditsRequest{
		UserID: "sender", Amount: 3, Reference: "order-1",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodPost, "/api/v1/internal/credits/grants", "", controllers.GrantCreditsRequest{
		UserID: "sender", Amount: 3, Reference: "order-1",
	}, "X-Admin-Key", adminKey)
	require.Equal(t, http.StatusOK, status)

	status, env = s.do(t, http.MethodPost, "/api/v1/matches/"+match.ID+"/unlock", "sender", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[models.Match](t, env).ContactUnlocked)

	status, env = s.do(t, http.MethodGet, "/api/v1/credits", "sender", nil)
	require.Equal(t, http.StatusOK, status)
	credits := decode[map[string]int64](t, env)
	assert.Equal(t, int64(2), credits["balance"])
	assert.Equal(t, int64(1), credits["unlock_price"])

	status, env = s.do(t, http.MethodPost, "/api/v1/matches/"+match.ID+"/accept", "traveler", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.MatchStatusAccepted, decode[models.Match](t, env).Status)

	status, env = s.do(t, http.MethodGet, "/api/v1/matches/"+match.ID, "someone", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, models.ErrorCodeNotParticipant, env.ErrorCode)

	status, _ = s.do(t, http.MethodGet, "/api/v1/matches/nope", "sender", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestChatOverHTTP(t *testing.T) {
	s := newTestServer(t)

	_, env := s.do(t, http.MethodPost, "/api/v1/trips", "traveler", models.CreateOfferRequest{
		OriginCity: "Paris", OriginCountry: "France",
		DestinationCity: "Dakar", DestinationCountry: "Senegal",
		DepartureDate: "2024-06-01", AvailableWeightKg: 10, PricePerKg: 5,
	})
	offer := decode[models.Offer](t, env)
	_, env = s.do(t, http.MethodPost, "/api/v1/requests", "sender", models.CreateRequestRequest{
		OriginCity: "Paris", OriginCountry: "France",
		DestinationCity: "Dakar", DestinationCountry: "Senegal",
		NeededByDate: "2024-06-10", PackageWeightKg: 1, PackageDescription: "Letters for family",
	})
	request := decode[models.Request](t, env)
	_, env = s.do(t, http.MethodPost, "/api/v1/matches", "sender", models.CreateMatchRequest{
		RequestID: request.ID, OfferID: offer.ID, WeightKg: 1,
	})
	match := decode[models.Match](t, env)
	path := "/api/v1/matches/" + match.ID

	status, env := s.do(t, http.MethodPost, path+"/messages", "sender", models.SendMessageRequest{Content: "hello"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, models.ErrorCodeUnlockRequired, env.ErrorCode)

	s.do(t, http.MethodPost, "/api/v1/internal/credits/grants", "", controllers.GrantCreditsRequest{
		UserID: "traveler", Amount: 1, Reference: "order-9",
	}, "X-Admin-Key", adminKey)
	status, _ = s.do(t, http.MethodPost, path+"/unlock", "traveler", nil)
	require.Equal(t, http.StatusOK, status)

	status, env = s.do(t, http.MethodPost, path+"/messages", "sender", models.SendMessageRequest{Content: "   "})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, models.ErrorCodeEmptyContent, env.ErrorCode)

	status, _ = s.do(t, http.MethodPost, path+"/messages", "sender", models.SendMessageRequest{Content: "hello"})
	require.Equal(t, http.StatusCreated, status)

	status, env = s.do(t, http.MethodGet, path+"/messages", "traveler", nil)
	require.Equal(t, http.StatusOK, status)
	messages := decode[[]models.Message](t, env)
	require.Len(t, messages, 1)
	assert.Equal(t, "hello", messages[0].Content)

	status, env = s.do(t, http.MethodGet, path+"/channel", "traveler", nil)
	require.Equal(t, http.StatusOK, status)
	channel := decode[models.ChannelStatus](t, env)
	assert.False(t, channel.Locked)
	assert.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), channel.LockTime.UTC())
}

func TestSearchFiltersOverHTTP(t *testing.T) {
	s := newTestServer(t)
	for _, city := range []string{"Dakar", "Abidjan"} {
		status, _ := s.do(t, http.MethodPost, "/api/v1/trips", "traveler", models.CreateOfferRequest{
			OriginCity: "Paris", OriginCountry: "France",
			DestinationCity: city, DestinationCountry: "Africa",
			DepartureDate: "2024-06-01", AvailableWeightKg: 10, PricePerKg: 5,
		})
		require.Equal(t, http.StatusCreated, status)
	}

	status, env := s.do(t, http.MethodGet, "/api/v1/trips?destination_city=dakar", "sender", nil)
	require.Equal(t, http.StatusOK, status)
	offers := decode[[]models.Offer](t, env)
	require.Len(t, offers, 1)
	assert.Equal(t, "Dakar", offers[0].DestinationCity)

	status, env = s.do(t, http.MethodGet, "/api/v1/trips?min_weight=lots", "sender", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "min_weight", env.Field)

	status, env = s.do(t, http.MethodGet, "/api/v1/trips?max_price_per_kg=NaN", "sender", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "max_price_per_kg", env.Field)

	status, env = s.do(t, http.MethodDelete, "/api/v1/trips/"+offers[0].ID, "sender", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, models.ErrorCodeNotOwner, env.ErrorCode)

	status, env = s.do(t, http.MethodDelete, "/api/v1/trips/"+offers[0].ID, "traveler", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.OfferStatusCompleted, decode[models.Offer](t, env).Status)

	status, env = s.do(t, http.MethodGet, "/api/v1/trips", "sender", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Offer](t, env), 1)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, controllers.StatusFor(models.ErrInvalidWeight))
	assert.Equal(t, http.StatusConflict, controllers.StatusFor(models.ErrChannelLocked))
	assert.Equal(t, http.StatusPaymentRequired, controllers.StatusFor(models.ErrInsufficientCredit))
	assert.Equal(t, http.StatusServiceUnavailable, controllers.StatusFor(models.ErrSlowConsumer))
	assert.Equal(t, http.StatusForbidden, controllers.StatusFor(models.ErrNotOwner))
	assert.Equal(t, http.StatusNotFound, controllers.StatusFor(models.ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, controllers.StatusFor(assert.AnError))
}
