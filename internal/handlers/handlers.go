package handlers

import (
	"context"
	"errors"
	"net/http"

	apperrors "pierre/internal/errors"
	"pierre/internal/logger"
	"pierre/internal/models"
	"pierre/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type EventService interface {
	List(ctx context.Context, query, date string) ([]models.Event, error)
	Grouped(ctx context.Context, query, date string) ([]models.EventBucket, error)
	Search(ctx context.Context, query, date string, page, pageSize int) ([]models.Event, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Event, error)
	Create(ctx context.Context, req *models.CreateEventRequest) (*models.Event, error)
}

type TableService interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID, onlyAvailable bool) ([]models.Table, error)
	Create(ctx context.Context, req *models.CreateTableRequest) (*models.Table, error)
}

type ReservationService interface {
	CreatePaymentIntent(ctx context.Context, req *models.CreateReservationRequest) (*models.PaymentIntentResponse, error)
	CreateWithPayment(ctx context.Context, req *models.CreateWithPaymentRequest) (*models.Reservation, error)
	GetByCode(ctx context.Context, code string) (*models.Reservation, error)
	Mine(ctx context.Context) ([]models.Reservation, error)
	ContributionIntent(ctx context.Context, code string, numPeople int) (*models.PaymentIntentResponse, error)
	Contribute(ctx context.Context, code string, req *models.ContributeRequest) (*models.Reservation, error)
	Cancel(ctx context.Context, code string) (*models.Reservation, error)
	Tickets(ctx context.Context, code string) (*models.TicketsResponse, error)
	LinkTicket(ctx context.Context, code, ticketID string) (*models.TicketsResponse, error)
	UnlinkTicket(ctx context.Context, code, ticketID string) (*models.TicketsResponse, error)
	HandlePaymentNotification(ctx context.Context, n service.PaymentOutcome)
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error)
	Me(ctx context.Context) (*models.User, error)
}

type Handlers struct {
	events       EventService
	tables       TableService
	reservations ReservationService
	auth         AuthService
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		events:       services.Events,
		tables:       services.Tables,
		reservations: services.Reservations,
		auth:         services.Auth,
	}
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	if errors.Is(err, apperrors.ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, apperrors.ErrUnauthorized) {
		return http.StatusUnauthorized
	}

	switch apperrors.KindOf(err) {
	case apperrors.KindValidation, apperrors.KindInsufficientGuestInfo, apperrors.KindBelowMinimumSpend, apperrors.KindParse:
		return http.StatusBadRequest
	case apperrors.KindAuthRequired:
		return http.StatusUnauthorized
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindInvalidState, apperrors.KindOverpayment:
		return http.StatusConflict
	case apperrors.KindPaymentAuthorizationFailed:
		return http.StatusPaymentRequired
	case apperrors.KindLookupFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body. Internal failures are logged and
// their details kept out of the response.
func respondError(c *gin.Context, action string, err error) {
	status := statusFor(err)
	kind := apperrors.KindOf(err)
	msg := err.Error()

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	if errors.Is(err, apperrors.ErrForbidden) {
		kind, msg = "forbidden", err.Error()
	}

	if status >= http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error("Failed to "+action, "error", err)
		msg = "Failed to " + action
	}
	_ = c.Error(err)
	c.JSON(status, models.ErrorResponse{Error: msg, Kind: string(kind)})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error(), Kind: string(apperrors.KindValidation)})
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "invalid " + param,
			Kind:  string(apperrors.KindValidation),
		})
		return uuid.Nil, false
	}
	return id, true
}
