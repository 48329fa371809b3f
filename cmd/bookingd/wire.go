package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/config"
	httptransport "github.com/example/room-booking/internal/http"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/bridge"
	"github.com/example/room-booking/internal/persistence/postgres"
	"github.com/example/room-booking/internal/persistence/sqlite"
	"github.com/example/room-booking/internal/presence"
	"github.com/example/room-booking/internal/roomlock"
	"github.com/example/room-booking/internal/session"
)

// app holds every long-lived component built from a Config.
type app struct {
	store      persistence.Store
	redis      *redis.Client
	rooms      *application.RoomService
	bookings   *application.BookingService
	checkIns   *application.CheckInService
	admission  *application.AdmissionService
	handler    http.Handler
	subscriber *presence.Subscriber
}

func (a *app) Close() error {
	var errs []error
	if a.subscriber != nil {
		a.subscriber.Stop()
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.Store, error) {
	var (
		store persistence.Store
		err   error
	)
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		store, err = postgres.Open(ctx, postgres.Config{DSN: cfg.DatabaseDSN}, logger)
	default:
		store, err = sqlite.Open(ctx, sqlite.DefaultConfig(cfg.DatabaseDSN), logger)
	}
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return store, nil
}

func needsRedis(cfg config.Config) bool {
	return cfg.LockBackend == config.BackendRedis || cfg.CheckInBackend == config.BackendRedis
}

func openRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.RedisAddr, err)
	}
	return client, nil
}

func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if a.store, err = openStore(ctx, cfg, logger); err != nil {
		return nil, err
	}
	if needsRedis(cfg) {
		if a.redis, err = openRedis(ctx, cfg); err != nil {
			return nil, err
		}
	}

	var locks application.RoomLocker = roomlock.NewLocal()
	if cfg.LockBackend == config.BackendRedis {
		lockCfg := roomlock.DefaultRedisConfig()
		if lease := 4 * cfg.LockTimeout; lease > lockCfg.Lease {
			lockCfg.Lease = lease
		}
		locks = roomlock.NewRedis(a.redis, lockCfg, logger)
	}

	var registry application.CheckInRegistry = bridge.NewCheckInRegistry(a.store)
	if cfg.CheckInBackend == config.BackendRedis {
		registry = bridge.NewCheckInRegistry(presence.NewRedisRegistry(a.redis, cfg.CheckInTTL))
	}

	var gateway application.SessionGateway = session.NewLocal()
	if cfg.SessionProvider == config.ProviderJanus {
		if gateway, err = session.NewJanus(session.JanusConfig{URL: cfg.JanusURL, Timeout: cfg.JanusTimeout}, logger); err != nil {
			return nil, err
		}
	}

	roomStore := bridge.NewRoomStore(a.store)
	bookingStore := bridge.NewBookingStore(a.store)

	retry := application.DefaultRetryConfig()
	retry.MaxRetries = cfg.LockRetries

	a.rooms = application.NewRoomServiceWithLogger(roomStore, nil, logger)
	a.bookings = application.NewBookingServiceWithLogger(roomStore, bookingStore, locks, application.BookingServiceConfig{
		Location:    cfg.Location,
		LockTimeout: cfg.LockTimeout,
		Retry:       retry,
	}, uuid.NewString, nil, logger)
	a.checkIns = application.NewCheckInServiceWithLogger(bookingStore, registry, nil, logger)
	a.admission = application.NewAdmissionServiceWithLogger(bookingStore, registry, gateway, nil, cfg.PollInterval, logger)

	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Rooms:          httptransport.NewRoomHandler(a.rooms, a.bookings, logger),
		Bookings:       httptransport.NewBookingHandler(a.bookings, logger),
		Admission:      httptransport.NewAdmissionHandler(a.admission, logger),
		CheckIns:       httptransport.NewCheckInHandler(a.checkIns, httptransport.HashVerifier(cfg.ReaderKeyHash), logger),
		IdentityHeader: cfg.IdentityHeader,
		Logger:         logger,
		Middleware:     []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	if cfg.MQTTBroker != "" {
		a.subscriber, err = presence.NewSubscriber(presence.SubscriberConfig{
			Broker:      cfg.MQTTBroker,
			ClientID:    cfg.MQTTClientID,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			TopicPrefix: cfg.MQTTTopicPrefix,
			QoS:         1,
		}, a.checkIns, logger)
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}
