package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pierre/internal/logger"
	"pierre/internal/models"

	"github.com/google/uuid"
	"github.com/nats-io/stan.go"
	"github.com/shopspring/decimal"
)

// Messages are acked once handled. A handler error leaves the message
// unacked so the streaming server redelivers it after AckWait.
const handleTimeout = 25 * time.Second

// errPoison marks a message that can never be processed. It is logged and
// acked so it does not block the queue.
var errPoison = errors.New("undecodable message")

// PaymentLog lists the contributions recorded for a reservation and tracks
// which of them the gateway has settled.
type PaymentLog interface {
	ListPayments(ctx context.Context, reservationID uuid.UUID) ([]models.ReservationPayment, error)
	MarkSettled(ctx context.Context, paymentID string, outcome models.Settlement) error
	ListUnsettled(ctx context.Context, cutoff time.Time) ([]models.Reservation, error)
}

// Settler captures or releases authorized payments at the gateway.
type Settler interface {
	ConfirmPayment(ctx context.Context, paymentID string, amount decimal.Decimal) error
	CancelPayment(ctx context.Context, paymentID string, reason string) error
}

// Invalidator drops cached reservation views.
type Invalidator interface {
	InvalidateReservation(ctx context.Context, code string)
}

type Handlers struct {
	payments PaymentLog
	gateway  Settler
	cache    Invalidator
}

// NewHandlers builds the reservation event handlers. cache may be nil.
func NewHandlers(payments PaymentLog, gateway Settler, cache Invalidator) *Handlers {
	return &Handlers{
		payments: payments,
		gateway:  gateway,
		cache:    cache,
	}
}

// Subscription binds a subject to its handler.
type Subscription struct {
	Subject string
	Handler stan.MsgHandler
}

func (h *Handlers) Subscriptions() []Subscription {
	return []Subscription{
		{models.EventReservationCreated, h.wrap(models.EventReservationCreated, h.ReservationCreated)},
		{models.EventReservationContribution, h.wrap(models.EventReservationContribution, h.Contribution)},
		{models.EventReservationCompleted, h.wrap(models.EventReservationCompleted, h.ReservationCompleted)},
		{models.EventReservationCancelled, h.wrap(models.EventReservationCancelled, h.ReservationCancelled)},
		{models.EventReservationExpired, h.wrap(models.EventReservationExpired, h.ReservationCancelled)},
	}
}

func (h *Handlers) wrap(subject string, fn func(ctx context.Context, data []byte) error) stan.MsgHandler {
	return func(m *stan.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		defer cancel()
		ctx = logger.ContextWithRequestID(ctx, logger.NewRequestID())

		log := logger.WithContext(ctx).With("subject", subject, "sequence", m.Sequence, "redelivered", m.Redelivered)

		err := fn(ctx, m.Data)
		switch {
		case err == nil:
		case errors.Is(err, errPoison):
			log.Error("Dropping undecodable message", "error", err)
		default:
			log.Error("Failed to handle message, awaiting redelivery", "error", err)
			return
		}

		if err := m.Ack(); err != nil {
			log.Error("Failed to ack message", "error", err)
		}
	}
}

func decode(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", errPoison, err)
	}
	return nil
}

func (h *Handlers) invalidate(ctx context.Context, code string) {
	if h.cache != nil && code != "" {
		h.cache.InvalidateReservation(ctx, code)
	}
}

// ReservationCreated records the guests the creator invited.
func (h *Handlers) ReservationCreated(ctx context.Context, data []byte) error {
	var event models.ReservationCreatedEvent
	if err := decode(data, &event); err != nil {
		return err
	}

	h.invalidate(ctx, event.Code)
	logger.WithContext(ctx).Info("Reservation opened",
		"reservation_code", event.Code,
		"event_id", event.EventID,
		"table_id", event.TableID,
		"num_people", event.NumPeople,
		"guests_invited", len(event.GuestPhones),
		"amount_paid", event.AmountPaid,
		"total_amount", event.TotalAmount)
	return nil
}

func (h *Handlers) Contribution(ctx context.Context, data []byte) error {
	var event models.ContributionEvent
	if err := decode(data, &event); err != nil {
		return err
	}

	h.invalidate(ctx, event.Code)
	logger.WithContext(ctx).Info("Contribution settled",
		"reservation_code", event.Code,
		"payment_id", event.PaymentID,
		"num_people", event.NumPeople,
		"amount", event.Amount,
		"amount_remaining", event.AmountRemaining)
	return nil
}

// ReservationCompleted captures every payment held for a fully paid table.
func (h *Handlers) ReservationCompleted(ctx context.Context, data []byte) error {
	var event models.ReservationCompletedEvent
	if err := decode(data, &event); err != nil {
		return err
	}

	id, err := reservationID(event.ReservationID)
	if err != nil {
		return err
	}
	if _, err := h.settle(ctx, id, event.Code, models.SettlementCaptured, ""); err != nil {
		return err
	}
	h.invalidate(ctx, event.Code)
	return nil
}

// ReservationCancelled releases the holds of a cancelled or expired
// reservation.
func (h *Handlers) ReservationCancelled(ctx context.Context, data []byte) error {
	var event models.ReservationCancelledEvent
	if err := decode(data, &event); err != nil {
		return err
	}

	id, err := reservationID(event.ReservationID)
	if err != nil {
		return err
	}
	if _, err := h.settle(ctx, id, event.Code, models.SettlementReleased, event.Reason); err != nil {
		return err
	}
	h.invalidate(ctx, event.Code)
	return nil
}

// Resettle settles the payments of reservations that reached a final state
// before cutoff but still hold authorized funds, as happens when the
// completion or cancellation event never reached a consumer. It returns how
// many payments it settled.
func (h *Handlers) Resettle(ctx context.Context, cutoff time.Time) (int, error) {
	pending, err := h.payments.ListUnsettled(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list unsettled reservations: %w", err)
	}

	settled := 0
	var failures []error
	for _, res := range pending {
		outcome, reason := models.SettlementReleased, "reservation cancelled"
		if res.Status == models.StatusCompleted {
			outcome, reason = models.SettlementCaptured, ""
		}
		n, err := h.settle(ctx, res.ID, res.Code, outcome, reason)
		settled += n
		if err != nil {
			failures = append(failures, err)
			continue
		}
		h.invalidate(ctx, res.Code)
	}
	return settled, errors.Join(failures...)
}

// settle captures or releases every payment of the reservation that is still
// only authorized. Per-payment gateway failures are logged and left
// authorized for the next sweep; redelivering the event would repeat the
// calls that went through.
func (h *Handlers) settle(ctx context.Context, id uuid.UUID, code string, outcome models.Settlement, reason string) (int, error) {
	payments, err := h.payments.ListPayments(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to list payments for %s: %w", id, err)
	}

	log := logger.WithContext(ctx).With("reservation_code", code, "outcome", outcome)
	settled, skipped := 0, 0
	for _, p := range payments {
		if p.Settlement == models.SettlementCaptured || p.Settlement == models.SettlementReleased {
			skipped++
			continue
		}

		if outcome == models.SettlementCaptured {
			err = h.gateway.ConfirmPayment(ctx, p.PaymentID, p.Amount)
		} else {
			err = h.gateway.CancelPayment(ctx, p.PaymentID, reason)
		}
		if err != nil {
			log.Error("Failed to settle payment", "payment_id", p.PaymentID, "amount", p.Amount.StringFixed(2), "error", err)
			continue
		}
		settled++

		if err := h.payments.MarkSettled(ctx, p.PaymentID, outcome); err != nil {
			log.Error("Payment settled but not recorded", "payment_id", p.PaymentID, "error", err)
		}
	}

	log.Info("Reservation payments settled", "payments", len(payments), "settled", settled, "already_settled", skipped, "reason", reason)
	return settled, nil
}

func reservationID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: reservation id %q", errPoison, raw)
	}
	return id, nil
}
