package consumers

import (
	"context"
	"database/sql"

	"pierre/internal/auth"
	"pierre/internal/cache"
	"pierre/internal/config"
	"pierre/internal/database"
	"pierre/internal/external"
	"pierre/internal/logger"
	"pierre/internal/messaging"
	"pierre/internal/repository"
	"pierre/internal/service"

	"github.com/nats-io/stan.go"
)

// QueueGroup spreads reservation events across consumer replicas.
const QueueGroup = "pierre-consumers"

type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyClient
	services *service.Services
	handlers *Handlers
	subs     []stan.Subscription
}

// NewConsumerService connects the database, NATS and, when enabled, the
// cache. Unlike the API, consumers cannot run without NATS.
func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		db.Close()
		return nil, err
	}

	repos := repository.NewRepositories(db)
	paymentClient := external.NewPaymentClient(cfg.Payment)

	deps := service.Deps{
		Repos:     repos,
		Payments:  paymentClient,
		Publisher: natsClient,
		Tokens:    auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Locale:    cfg.Locale,
	}

	cs := &ConsumerService{db: db, nats: natsClient}

	var invalidator Invalidator
	if cfg.Cache.Enabled {
		valkey, err := cache.NewValkeyClient(cfg.Cache)
		if err != nil {
			logger.Get().Warn("Valkey unavailable, cached reservations expire by TTL only", "error", err)
		} else {
			cs.valkey = valkey
			deps.Cache = valkey
			invalidator = valkey
		}
	}

	cs.services = service.NewServices(deps)
	cs.handlers = NewHandlers(repos.Reservations, paymentClient, invalidator)
	return cs, nil
}

// DB is the underlying pool, for metrics.
func (cs *ConsumerService) DB() *sql.DB {
	return cs.db.DB
}

// Reservations exposes the reservation service for scheduled jobs.
func (cs *ConsumerService) Reservations() *service.ReservationService {
	return cs.services.Reservations
}

// Settlement exposes the event handlers for the settlement sweep.
func (cs *ConsumerService) Settlement() *Handlers {
	return cs.handlers
}

func (cs *ConsumerService) Start() error {
	logger.Get().Info("Starting NATS consumers", "queue", QueueGroup)

	for _, s := range cs.handlers.Subscriptions() {
		sub, err := cs.nats.SubscribeQueue(s.Subject, QueueGroup, s.Handler)
		if err != nil {
			return err
		}
		cs.subs = append(cs.subs, sub)
	}

	logger.Get().Info("All consumers started", "subscriptions", len(cs.subs))
	return nil
}

// Shutdown closes subscriptions without unsubscribing so durable
// positions survive a restart.
func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	log := logger.WithContext(ctx)
	log.Info("Shutting down consumer service")

	for _, sub := range cs.subs {
		if err := sub.Close(); err != nil {
			log.Error("Error closing subscription", "error", err)
		}
	}

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			log.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.valkey != nil {
		if err := cs.valkey.Close(); err != nil {
			log.Error("Error closing Valkey connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			log.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
