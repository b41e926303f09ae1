// Package client is the consumer side of the reservation API. It validates
// locally before any network call, asks an Authorizer to approve payments,
// and only ever adopts reservation state returned by the server.
package client

import (
	"context"
	"time"

	"pierre/internal/external"
	"pierre/internal/models"
	"pierre/internal/session"
)

// API is the remote surface the client needs.
type API interface {
	ListEvents(ctx context.Context) ([]models.Event, error)
	ListTables(ctx context.Context, eventID string) ([]models.Table, error)
	GetReservationByCode(ctx context.Context, code string) (models.Reservation, error)
	CreatePaymentIntent(ctx context.Context, token string, req models.CreateReservationRequest) (models.PaymentIntentResponse, error)
	CreateWithPayment(ctx context.Context, token string, req models.CreateWithPaymentRequest) (models.Reservation, error)
	ContributionIntent(ctx context.Context, token, code string, numPeople int) (models.PaymentIntentResponse, error)
	Contribute(ctx context.Context, token, code string, req models.ContributeRequest) (models.Reservation, error)
	CancelReservation(ctx context.Context, token, code string) (models.Reservation, error)
	MyReservations(ctx context.Context, token string) ([]models.Reservation, error)
	Login(ctx context.Context, email, password string) (models.AuthResponse, error)
}

type Client struct {
	api        API
	session    *session.Session
	authorizer external.Authorizer
	now        func() time.Time
}

type Option func(*Client)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(api API, s *session.Session, authorizer external.Authorizer, opts ...Option) *Client {
	if s == nil {
		s = session.New()
	}
	c := &Client{
		api:        api,
		session:    s,
		authorizer: authorizer,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() *session.Session {
	return c.session
}

// Login signs the session in with the server-issued token.
func (c *Client) Login(ctx context.Context, email, password string) (models.User, error) {
	resp, err := c.api.Login(ctx, email, password)
	if err != nil {
		return models.User{}, err
	}
	c.session.SignIn(resp.User, resp.Token)
	return resp.User, nil
}

func (c *Client) Logout() {
	c.session.SignOut()
}
