// Package validation smoke-checks a running reservation API through the
// same HTTP client the CLI uses.
package validation

import (
	"context"
	"fmt"
	"time"

	apperrors "pierre/internal/errors"
	"pierre/internal/external"
	"pierre/internal/logger"
	"pierre/internal/models"
)

// API is the subset of external.APIClient the checks exercise.
type API interface {
	ListEvents(ctx context.Context) ([]models.Event, error)
	ListTables(ctx context.Context, eventID string) ([]models.Table, error)
	GetReservationByCode(ctx context.Context, code string) (models.Reservation, error)
	CreatePaymentIntent(ctx context.Context, token string, req models.CreateReservationRequest) (models.PaymentIntentResponse, error)
	Login(ctx context.Context, email, password string) (models.AuthResponse, error)
	MyReservations(ctx context.Context, token string) ([]models.Reservation, error)
}

// Credentials are optional; without them the signed-in checks are skipped.
type Credentials struct {
	Email    string
	Password string
}

type APIValidator struct {
	api   API
	creds Credentials
}

func NewAPIValidator(api API, creds Credentials) *APIValidator {
	return &APIValidator{api: api, creds: creds}
}

// ValidateAll runs every check and stops at the first failure.
func (v *APIValidator) ValidateAll(ctx context.Context) error {
	log := logger.WithContext(ctx)
	log.Info("Validating reservation API")

	checks := []struct {
		name string
		run  func(context.Context) error
	}{
		{"events", v.validateEvents},
		{"reservation lookup", v.validateLookup},
		{"auth gate", v.validateAuthGate},
		{"signed in", v.validateSignedIn},
	}

	for _, c := range checks {
		if err := c.run(ctx); err != nil {
			return fmt.Errorf("%s validation failed: %w", c.name, err)
		}
		log.Info("Check passed", "check", c.name)
	}

	log.Info("All checks passed")
	return nil
}

func (v *APIValidator) validateEvents(ctx context.Context) error {
	events, err := v.api.ListEvents(ctx)
	if err != nil {
		return fmt.Errorf("GET /events: %w", err)
	}
	if len(events) == 0 {
		logger.WithContext(ctx).Warn("No events published, skipping table checks")
		return nil
	}

	event := events[0]
	tables, err := v.api.ListTables(ctx, event.ID.String())
	if err != nil {
		return fmt.Errorf("GET /tables/event/%s: %w", event.ID, err)
	}
	for _, t := range tables {
		if t.EventID != event.ID {
			return fmt.Errorf("table %s belongs to event %s, listed under %s", t.ID, t.EventID, event.ID)
		}
		if t.Capacity < 1 {
			return fmt.Errorf("table %s has capacity %d", t.ID, t.Capacity)
		}
		if t.TotalCost.LessThan(t.MinSpend) {
			return fmt.Errorf("table %s total cost %s is below its minimum spend %s",
				t.ID, models.FormatEuro(t.TotalCost), models.FormatEuro(t.MinSpend))
		}
	}
	return nil
}

// validateLookup expects an unknown code to come back as not found rather
// than a server error.
func (v *APIValidator) validateLookup(ctx context.Context) error {
	_, err := v.api.GetReservationByCode(ctx, "ZZZZZZ")
	if err == nil {
		return nil
	}
	if !apperrors.Is(err, apperrors.KindNotFound) {
		return fmt.Errorf("GET /reservations/code/ZZZZZZ: expected not_found, got %w", err)
	}
	return nil
}

func (v *APIValidator) validateAuthGate(ctx context.Context) error {
	_, err := v.api.CreatePaymentIntent(ctx, "", models.CreateReservationRequest{})
	if err == nil {
		return fmt.Errorf("POST /reservations/create-payment-intent: accepted an anonymous request")
	}
	if !apperrors.Is(err, apperrors.KindAuthRequired) {
		return fmt.Errorf("POST /reservations/create-payment-intent: expected auth_required, got %w", err)
	}
	return nil
}

func (v *APIValidator) validateSignedIn(ctx context.Context) error {
	if v.creds.Email == "" {
		logger.WithContext(ctx).Info("No credentials given, skipping signed-in checks")
		return nil
	}

	auth, err := v.api.Login(ctx, v.creds.Email, v.creds.Password)
	if err != nil {
		return fmt.Errorf("POST /auth/login: %w", err)
	}
	if _, err := v.api.MyReservations(ctx, auth.Token); err != nil {
		return fmt.Errorf("GET /reservations/mine: %w", err)
	}
	return nil
}

// Run validates the API at cfg.BaseURL.
func Run(cfg external.APIConfig, creds Credentials) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	logger.Get().Info("Starting API validation", "url", cfg.BaseURL)
	return NewAPIValidator(external.NewAPIClient(cfg), creds).ValidateAll(ctx)
}
