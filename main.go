// main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"travorier/app/controllers"
	"travorier/app/middlewares"
	"travorier/app/routes"
	"travorier/app/services"
	"travorier/app/utils"
	"travorier/config"
	"travorier/database"
	"travorier/redis"
)

// backends is everything the services need from the outside world
type backends struct {
	store     services.Store
	profiles  services.ProfileDirectory
	ledger    services.CreditLedger
	locker    services.Locker
	publisher services.Publisher
	checks    map[string]routes.HealthCheck
	start     func(ctx context.Context)
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("invalid configuration")
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := services.NewHub(cfg.SubscriptionBuffer, logger)

	var b *backends
	if cfg.IsMemory() {
		b = memoryBackends()
		logger.Warn().Msg("using in-memory stores; data is lost on restart")
	} else {
		b, err = remoteBackends(ctx, cfg, hub, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect backends")
		}
	}
	defer b.close()

	offerService := services.NewOfferService(b.store, b.profiles, b.locker, time.Now, logger)
	requestService := services.NewRequestService(b.store, time.Now, logger)
	matchService := services.NewMatchService(b.store, b.locker, time.Now, logger)
	unlockService := services.NewUnlockService(b.store, b.ledger, b.locker, cfg.UnlockPrice, time.Now, logger)
	channelService := services.NewChannelService(b.store, hub, b.publisher, cfg.ChatLockWindow, time.Now, logger)
	cronService := services.NewCronService(offerService, channelService, cfg.ChatLockWindow, logger)

	tokens := utils.NewJWTManager(cfg.JWTSecret, 0)

	app := fiber.New(fiber.Config{
		Prefork:       false,
		CaseSensitive: true,
		ServerHeader:  "Fiber",
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return ctx.Status(code).JSON(fiber.Map{
				"status":  "error",
				"message": err.Error(),
			})
		},
	})
	app.Use(middlewares.RequestLogger(logger))

	socketHandler := config.NewSocketHandler(channelService, tokens, logger)
	socketHandler.SetupSocketRoutes(app)

	routes.SetupRoutes(app, routes.Controllers{
		Offers:   controllers.NewOfferController(offerService),
		Requests: controllers.NewRequestController(requestService, matchService),
		Matches:  controllers.NewMatchController(matchService, unlockService),
		Chat:     controllers.NewChatController(channelService),
		Credits:  controllers.NewCreditController(unlockService),
	}, routes.Options{
		AppName:     config.AppName,
		AppVersion:  config.AppVersion,
		Tokens:      tokens,
		AdminAPIKey: cfg.AdminAPIKey,
		Checks:      b.checks,
	})

	b.start(ctx)
	cronService.Start(cfg.CronInterval)

	go func() {
		logger.Info().
			Int("port", cfg.ServerPort).
			Str("env", cfg.AppEnv).
			Str("store", cfg.StoreDriver).
			Msg("starting server")
		if err := app.Listen(fmt.Sprintf(":%d", cfg.ServerPort)); err != nil {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server...")

	cronService.Stop()
	socketHandler.Close()
	hub.Close()
	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	logger.Info().Msg("server stopped")
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.AppEnv == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

func memoryBackends() *backends {
	locker := services.NewKeyedLocker()
	return &backends{
		store:    database.NewMemoryStore(),
		profiles: database.NewMemoryProfiles(),
		ledger:   services.NewMemoryLedger(),
		locker:   locker,
		checks:   map[string]routes.HealthCheck{},
		start:    func(context.Context) {},
		close:    func() {},
	}
}

func remoteBackends(ctx context.Context, cfg config.Config, hub *services.Hub, logger zerolog.Logger) (*backends, error) {
	session, err := database.OpenCassandra(ctx, database.CassandraConfig{
		Hosts:    cfg.CassandraHosts,
		Port:     cfg.CassandraPort,
		Keyspace: cfg.CassandraKeyspace,
		Username: cfg.CassandraUsername,
		Password: cfg.CassandraPassword,
		Timeout:  cfg.CassandraTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	store := database.NewCassandraStore(session)
	logger.Info().Msg("connected to Cassandra")

	redisService, err := redis.NewService(ctx, redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	logger.Info().Msg("connected to Redis")

	mongoClient, err := database.ConnectMongo(ctx, database.MongoConfig{URI: cfg.MongoURI})
	if err != nil {
		store.Close()
		_ = redisService.Close()
		return nil, err
	}
	logger.Info().Msg("connected to MongoDB")

	client := redisService.Client()
	users := database.NewMongoProfiles(mongoClient.Database(cfg.MongoDatabase).Collection(cfg.MongoUsers))
	bridge := redis.NewFeedBridge(client, hub, logger)

	return &backends{
		store:     store,
		profiles:  redis.NewProfileCache(client, users, cfg.ProfileCacheTTL, logger),
		ledger:    redis.NewLedger(client),
		locker:    redis.NewLocker(client, cfg.LockTTL),
		publisher: bridge,
		checks: map[string]routes.HealthCheck{
			"cassandra": store.Ping,
			"redis":     redisService.Ping,
			"mongo": func(ctx context.Context) error {
				return mongoClient.Ping(ctx, nil)
			},
		},
		start: func(ctx context.Context) {
			go func() {
				if err := bridge.Run(ctx); err != nil {
					logger.Error().Err(err).Msg("message feed stopped")
				}
			}()
		},
		close: func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mongoClient.Disconnect(shutdownCtx)
			_ = redisService.Close()
			store.Close()
		},
	}, nil
}
