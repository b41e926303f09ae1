package service

import (
	"context"
	"time"

	"pierre/internal/eventdate"
	"pierre/internal/external"
	"pierre/internal/models"
	"pierre/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Storage and collaborator contracts. The repository package satisfies the
// stores; tests use in-memory fakes.

type EventStore interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context) ([]models.Event, error)
}

type TableStore interface {
	Create(ctx context.Context, t *models.Table) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Table, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID, onlyAvailable bool) ([]models.Table, error)
}

type ReservationStore interface {
	CodeExists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, res *models.Reservation, payment *models.ReservationPayment) error
	GetByCode(ctx context.Context, code string) (*models.Reservation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Reservation, error)
	ListByStatus(ctx context.Context, status models.ReservationStatus) ([]models.Reservation, error)
	Update(ctx context.Context, code string, fn repository.Mutation) (*models.Reservation, error)
	PaymentRecorded(ctx context.Context, paymentID string) (bool, error)
	LinkTicket(ctx context.Context, code string, ticketID uuid.UUID, check repository.TicketCheck) error
	UnlinkTicket(ctx context.Context, code string, ticketID uuid.UUID, check repository.TicketCheck) error
	ListTickets(ctx context.Context, reservationID uuid.UUID) ([]uuid.UUID, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type PaymentGateway interface {
	InitPayment(ctx context.Context, amount decimal.Decimal, orderID, description string) (*external.PaymentIntent, error)
	CheckPayment(ctx context.Context, paymentID string) (*external.PaymentState, error)
	CancelPayment(ctx context.Context, paymentID string, reason string) error
}

type Publisher interface {
	Publish(subject string, data any) error
}

// EventIndex is the optional full text index over events.
type EventIndex interface {
	IndexEvent(ctx context.Context, event models.Event) error
	Search(ctx context.Context, query, from string, page, pageSize int) ([]models.Event, error)
}

// Cache is the optional read cache. Misses and failures look the same.
type Cache interface {
	Events(ctx context.Context) ([]models.Event, bool)
	SetEvents(ctx context.Context, events []models.Event)
	InvalidateEvents(ctx context.Context)
	Reservation(ctx context.Context, code string) (*models.Reservation, bool)
	SetReservation(ctx context.Context, res *models.Reservation)
	InvalidateReservation(ctx context.Context, code string)
}

type Services struct {
	Events       *EventService
	Tables       *TableService
	Reservations *ReservationService
	Auth         *AuthService
}

// Deps gathers everything the services need. Index and Cache may be nil.
type Deps struct {
	Repos     *repository.Repositories
	Payments  PaymentGateway
	Publisher Publisher
	Index     EventIndex
	Cache     Cache
	Tokens    TokenIssuer
	Locale    eventdate.Locale
	Now       func() time.Time
}

func NewServices(d Deps) *Services {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Cache == nil {
		d.Cache = noCache{}
	}

	return &Services{
		Events:       NewEventService(d.Repos.Events, d.Index, d.Cache, d.Locale, d.Now),
		Tables:       NewTableService(d.Repos.Tables, d.Repos.Events),
		Reservations: NewReservationService(d.Repos.Reservations, d.Repos.Tables, d.Payments, d.Publisher, d.Cache, d.Now),
		Auth:         NewAuthService(d.Repos.Users, d.Tokens),
	}
}

type noCache struct{}

func (noCache) Events(context.Context) ([]models.Event, bool) { return nil, false }
func (noCache) SetEvents(context.Context, []models.Event) {}
func (noCache) InvalidateEvents(context.Context) {}
func (noCache) Reservation(context.Context, string) (*models.Reservation, bool) { return nil, false }
func (noCache) SetReservation(context.Context, *models.Reservation) {}
func (noCache) InvalidateReservation(context.Context, string) {}
