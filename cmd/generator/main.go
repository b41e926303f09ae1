package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"time"

	"pierre/internal/auth"
	"pierre/internal/config"
	"pierre/internal/database"
	"pierre/internal/logger"
	"pierre/internal/models"
	"pierre/internal/repository"
	"pierre/internal/search"
	"pierre/internal/service"

	"github.com/shopspring/decimal"
)

var (
	eventCount     = flag.Int("events", 8, "Number of events to generate")
	tablesPerEvent = flag.Int("tables", 6, "Tables generated for each event")
	seed           = flag.Int64("seed", 0, "Random seed (0 = time based)")
	dryRun         = flag.Bool("dry-run", false, "Show what would be generated without making changes")
	userEmail      = flag.String("user-email", "", "Also register this account")
	userPassword   = flag.String("user-password", "", "Password for -user-email")
)

var (
	titles = []string{"Notte Elettronica", "Jazz al Chiaro di Luna", "Techno Underground", "Aperitivo in Terrazza",
		"Latin Night", "Hip Hop Session", "House Classics", "Festa di Fine Estate", "Indie Live", "Deep House Sunset"}
	venues = []string{"Pierre Milano", "Terrazza Duomo", "Magazzini Generali", "Villa Borghese Club", "Darsena Loft"}
	zones  = []string{"Privé", "Pista", "Terrazza", "Balconata"}
	extras = [][]string{{"bottiglia inclusa"}, {"vista pista"}, {"divanetto", "servizio dedicato"}, nil}
	legacy = []string{"GEN", "FEB", "MAR", "APR", "MAG", "GIU", "LUG", "AGO", "SET", "OTT", "NOV", "DIC"}
)

type seedEvent struct {
	req    models.CreateEventRequest
	tables []models.CreateTableRequest
}

func main() {
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, "text")
	log := logger.Get()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	plan := buildPlan(rand.New(rand.NewSource(*seed)), *eventCount, *tablesPerEvent, time.Now())

	if *dryRun {
		for _, e := range plan {
			log.Info("[DRY RUN] Would create event", "title", e.req.Title, "venue", e.req.Venue, "date", e.req.Date, "tables", len(e.tables))
		}
		return
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	deps := service.Deps{
		Repos:  repository.NewRepositories(db),
		Tokens: auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Locale: cfg.Locale,
	}
	if cfg.Elasticsearch.Enabled {
		if es, err := search.NewElasticsearchClient(cfg.Elasticsearch); err != nil {
			log.Warn("Elasticsearch unavailable, generated events will not be indexed", "error", err)
		} else {
			deps.Index = es
		}
	}
	services := service.NewServices(deps)
	services.Auth.WithBcryptCost(cfg.Auth.BcryptCost)

	ctx := context.Background()
	if err := apply(ctx, services, plan); err != nil {
		logger.Fatal("Failed to generate events", "error", err)
	}

	if *userEmail != "" {
		if _, err := services.Auth.Register(ctx, &models.RegisterRequest{
			Email:    *userEmail,
			Password: *userPassword,
			Name:     "Demo",
		}); err != nil {
			log.Error("Failed to register user", "email", *userEmail, "error", err)
		} else {
			log.Info("Registered user", "email", *userEmail)
		}
	}

	log.Info("Generation completed", "events", len(plan), "seed", *seed)
}

func apply(ctx context.Context, services *service.Services, plan []seedEvent) error {
	log := logger.Get()
	for _, e := range plan {
		event, err := services.Events.Create(ctx, &e.req)
		if err != nil {
			return fmt.Errorf("event %q: %w", e.req.Title, err)
		}
		for _, t := range e.tables {
			t.EventID = event.ID.String()
			if _, err := services.Tables.Create(ctx, &t); err != nil {
				return fmt.Errorf("table %q of %q: %w", t.Name, e.req.Title, err)
			}
		}
		log.Info("Generated event", "event_id", event.ID, "title", event.Title, "date", event.Date, "tables", len(e.tables))
	}
	return nil
}

// buildPlan spreads events over the next weeks. Dates use every encoding
// the listing understands, legacy "D MON" included.
func buildPlan(rng *rand.Rand, events, tables int, now time.Time) []seedEvent {
	plan := make([]seedEvent, 0, events)
	for i := 0; i < events; i++ {
		day := now.AddDate(0, 0, 1+rng.Intn(45))
		hour := 21 + rng.Intn(3)

		var date string
		switch i % 3 {
		case 0:
			date = fmt.Sprintf("%sT%02d:00:00", day.Format("2006-01-02"), hour)
		case 1:
			date = day.Format("2006-01-02")
		default:
			date = fmt.Sprintf("%d %s | %02d:00", day.Day(), legacy[day.Month()-1], hour)
		}

		price := fmt.Sprintf("%d €", 15+5*rng.Intn(6))
		description := "Serata con tavoli riservati e servizio al tavolo."
		e := seedEvent{req: models.CreateEventRequest{
			Title:       titles[rng.Intn(len(titles))],
			Venue:       venues[rng.Intn(len(venues))],
			Date:        date,
			Image:       fmt.Sprintf("https://picsum.photos/seed/pierre-%d/800/600", i),
			Price:       &price,
			Description: &description,
		}}

		for n := 1; n <= tables; n++ {
			zone := zones[rng.Intn(len(zones))]
			capacity := 4 + 2*rng.Intn(4)
			e.tables = append(e.tables, models.CreateTableRequest{
				Name:     fmt.Sprintf("Tavolo %d", n),
				Zone:     &zone,
				Capacity: capacity,
				MinSpend: decimal.NewFromInt(int64(30 + 10*rng.Intn(8))),
				Features: extras[rng.Intn(len(extras))],
			})
		}
		plan = append(plan, e)
	}
	return plan
}
