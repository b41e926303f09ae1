package api

import (
	"context"
	"fmt"
	"net/http"

	"pierre/internal/auth"
	"pierre/internal/cache"
	"pierre/internal/config"
	"pierre/internal/database"
	"pierre/internal/external"
	"pierre/internal/handlers"
	"pierre/internal/logger"
	"pierre/internal/messaging"
	"pierre/internal/metrics"
	"pierre/internal/middleware"
	"pierre/internal/repository"
	"pierre/internal/search"
	"pierre/internal/service"

	"github.com/gin-gonic/gin"
)

// Server is the HTTP API
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyClient
	services *service.Services
}

// NewServer connects every backing service and builds the router
func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	if cfg.MetricsEnabled {
		if err := metrics.RegisterDB(db.DB, cfg.Database.DBName); err != nil {
			logger.Get().Warn("Failed to export database pool metrics", "error", err)
		}
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Get().Warn("NATS unavailable, reservation events will not be published", "error", err)
		natsClient = messaging.Disconnected()
	}

	deps := service.Deps{
		Repos:     repository.NewRepositories(db),
		Payments:  external.NewPaymentClient(cfg.Payment),
		Publisher: natsClient,
		Tokens:    auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Locale:    cfg.Locale,
	}

	var valkey *cache.ValkeyClient
	if cfg.Cache.Enabled {
		valkey, err = cache.NewValkeyClient(cfg.Cache)
		if err != nil {
			logger.Get().Warn("Valkey unavailable, serving without cache", "error", err)
		} else {
			deps.Cache = valkey
		}
	}

	if cfg.Elasticsearch.Enabled {
		es, err := search.NewElasticsearchClient(cfg.Elasticsearch)
		if err != nil {
			logger.Get().Warn("Elasticsearch unavailable, search falls back to the filter", "error", err)
		} else {
			deps.Index = es
		}
	}

	services := service.NewServices(deps)
	services.Auth.WithBcryptCost(cfg.Auth.BcryptCost)

	s := &Server{
		config:   cfg,
		db:       db,
		nats:     natsClient,
		valkey:   valkey,
		services: services,
	}
	s.router = NewRouter(cfg, services, s.healthCheck)

	return s
}

// NewRouter wires middleware and routes over services
func NewRouter(cfg *config.Config, services *service.Services, health gin.HandlerFunc) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Timeout(cfg.RequestTimeout))
	router.Use(middleware.Logger())
	router.Use(middleware.CORS())
	if cfg.MetricsEnabled {
		router.Use(metrics.Middleware())
		router.GET("/metrics", metrics.Handler())
	}

	h := handlers.NewHandlers(services)

	api := router.Group("/api")
	api.Use(middleware.Authenticate(services.Auth))
	{
		events := api.Group("/events")
		{
			events.GET("", h.ListEvents)
			events.GET("/grouped", h.GroupedEvents)
			events.GET("/search", h.SearchEvents)
			events.GET("/:id", h.GetEvent)
			events.POST("", middleware.RequireAuth(), h.CreateEvent)
		}

		tables := api.Group("/tables")
		{
			tables.GET("/event/:id", h.ListTables)
			tables.GET("/event/:id/available", h.ListAvailableTables)
			tables.POST("", middleware.RequireAuth(), h.CreateTable)
		}

		reservations := api.Group("/reservations")
		{
			reservations.POST("/create-payment-intent", middleware.RequireAuth(), h.CreatePaymentIntent)
			reservations.POST("/create-with-payment", middleware.RequireAuth(), h.CreateWithPayment)
			reservations.GET("/mine", middleware.RequireAuth(), h.MyReservations)
			reservations.GET("/code/:code", h.GetReservation)
			reservations.POST("/code/:code/payment-intent", h.ContributionIntent)
			reservations.POST("/code/:code/contribute", h.Contribute)
			reservations.POST("/code/:code/cancel", middleware.RequireAuth(), h.CancelReservation)
			reservations.GET("/code/:code/tickets", h.ReservationTickets)
			reservations.POST("/code/:code/tickets", middleware.RequireAuth(), h.LinkTicket)
			reservations.DELETE("/code/:code/tickets/:ticketId", middleware.RequireAuth(), h.UnlinkTicket)
		}

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", h.Login)
			authGroup.POST("/register", h.Register)
			authGroup.GET("/me", middleware.RequireAuth(), h.Me)
		}

		payments := api.Group("/payments")
		{
			payments.GET("/success", h.NotifyPaymentCompleted)
			payments.GET("/fail", h.NotifyPaymentFailed)
			payments.POST("/notifications", h.OnPaymentUpdates)
		}
	}

	if health != nil {
		router.GET("/health", health)
	}

	return router
}

func (s *Server) healthCheck(c *gin.Context) {
	db := s.db.Check(c.Request.Context())
	status, label := http.StatusOK, "ok"
	if !db.Healthy {
		status, label = http.StatusServiceUnavailable, "degraded"
	}

	c.JSON(status, gin.H{
		"status":   label,
		"service":  "pierre-api",
		"database": db,
		"nats":     s.nats.Connected(),
		"cache":    s.valkey != nil,
	})
}

// Reindex pushes stored events into the search index
func (s *Server) Reindex(ctx context.Context) (int, error) {
	return s.services.Events.Reindex(ctx)
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter returns the router for tests and http.Server
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup closes connections
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			logger.Get().Error("Error closing NATS connection", "error", err)
		}
	}

	if s.valkey != nil {
		if err := s.valkey.Close(); err != nil {
			logger.Get().Error("Error closing Valkey connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Get().Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
