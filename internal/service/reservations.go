package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "pierre/internal/errors"
	"pierre/internal/eventdate"
	"pierre/internal/external"
	"pierre/internal/ledger"
	"pierre/internal/logger"
	"pierre/internal/metrics"
	"pierre/internal/models"
	"pierre/internal/repository"
	"pierre/internal/session"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReservationService struct {
	reservationRepo ReservationStore
	tableRepo       TableStore
	payments        PaymentGateway
	publisher       Publisher
	cache           Cache
	now             func() time.Time
}

func NewReservationService(reservationRepo ReservationStore, tableRepo TableStore, payments PaymentGateway, publisher Publisher, cache Cache, now func() time.Time) *ReservationService {
	if cache == nil {
		cache = noCache{}
	}
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		reservationRepo: reservationRepo,
		tableRepo:       tableRepo,
		payments:        payments,
		publisher:       publisher,
		cache:           cache,
		now:             now,
	}
}

func (s *ReservationService) publish(ctx context.Context, subject string, data any) {
	if err := s.publisher.Publish(subject, data); err != nil {
		// Log error but don't fail the operation
		logger.WithContext(ctx).Error("Failed to publish reservation event",
			"error", err,
			"event_type", subject)
	}
}

// params resolves the request's table and builds the ledger input.
func (s *ReservationService) params(ctx context.Context, req *models.CreateReservationRequest) (ledger.CreateParams, error) {
	tableID, err := uuid.Parse(req.TableID)
	if err != nil {
		return ledger.CreateParams{}, apperrors.New(apperrors.KindValidation, "invalid table id %q", req.TableID)
	}
	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		return ledger.CreateParams{}, apperrors.New(apperrors.KindValidation, "invalid event id %q", req.EventID)
	}

	table, err := s.tableRepo.GetByID(ctx, tableID)
	if err != nil {
		return ledger.CreateParams{}, fmt.Errorf("failed to get table: %w", err)
	}
	if table == nil || table.EventID != eventID {
		return ledger.CreateParams{}, apperrors.New(apperrors.KindNotFound, "table %s not found for event %s", tableID, eventID)
	}
	if !table.Available {
		return ledger.CreateParams{}, apperrors.New(apperrors.KindInvalidState, "table %s is already reserved", table.Name)
	}

	return ledger.CreateParams{
		Table:              *table,
		EventID:            eventID,
		NumPeople:          req.NumPeople,
		ContributionPeople: req.ContributionPeople,
		GuestPhones:        req.GuestPhones,
		Contact:            req.ContactInfo,
		SpecialRequests:    req.SpecialRequests,
	}, nil
}

func upFront(p ledger.CreateParams) decimal.Decimal {
	return p.Table.MinSpend.Mul(decimal.NewFromInt(int64(p.SharesPaidUpFront())))
}

// CreatePaymentIntent validates a reservation request and opens a payment for
// the creator's share. Nothing is stored yet.
func (s *ReservationService) CreatePaymentIntent(ctx context.Context, req *models.CreateReservationRequest) (*models.PaymentIntentResponse, error) {
	p, err := s.params(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := ledger.ValidateCreate(p, session.FromContext(ctx)); err != nil {
		return nil, err
	}

	intent, err := s.payments.InitPayment(ctx, upFront(p), uuid.New().String(),
		fmt.Sprintf("Table %s, %d people", p.Table.Name, p.NumPeople))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindPaymentAuthorizationFailed, err, "failed to initialize payment")
	}

	resp := intent.Response()
	return &resp, nil
}

// authorizedPayment returns the gateway state of paymentID when its funds
// are held.
func (s *ReservationService) authorizedPayment(ctx context.Context, paymentID string) (*external.PaymentState, error) {
	state, err := s.payments.CheckPayment(ctx, paymentID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindPaymentAuthorizationFailed, err, "failed to check payment %s", paymentID)
	}
	if !state.Authorized() {
		return nil, apperrors.New(apperrors.KindPaymentAuthorizationFailed, "payment %s is %s", paymentID, state.Status)
	}
	return state, nil
}

func paymentCovers(state *external.PaymentState, amount decimal.Decimal) error {
	if state.Amount.Equal(amount) {
		return nil
	}
	return apperrors.New(apperrors.KindPaymentAuthorizationFailed,
		"payment %s covers %s, expected %s", state.PaymentID, models.FormatEuro(state.Amount), models.FormatEuro(amount))
}

// refund releases an authorized payment that could not be applied.
func (s *ReservationService) refund(ctx context.Context, paymentID, reason string) {
	if err := s.payments.CancelPayment(ctx, paymentID, reason); err != nil {
		logger.WithContext(ctx).Error("Failed to release payment",
			"error", err,
			"payment_id", paymentID,
			"reason", reason)
	}
}

// release refunds a payment that no reservation ended up holding. A
// payment recorded meanwhile by a concurrent request is kept.
func (s *ReservationService) release(ctx context.Context, paymentID, reason string) {
	recorded, err := s.reservationRepo.PaymentRecorded(ctx, paymentID)
	if err != nil {
		logger.WithContext(ctx).Error("Not releasing payment, lookup failed", "error", err, "payment_id", paymentID)
		return
	}
	if recorded {
		return
	}
	s.refund(ctx, paymentID, reason)
}

func (s *ReservationService) newCode(ctx context.Context) (string, error) {
	for i := 0; i < ledger.MaxCodeAttempts; i++ {
		code, err := ledger.NewCode()
		if err != nil {
			return "", err
		}
		exists, err := s.reservationRepo.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check reservation code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free reservation code after %d attempts", ledger.MaxCodeAttempts)
}

// CreateWithPayment stores the reservation once the creator's payment is
// authorized. The rules are checked again here; client checks are advisory.
// Any failure after the payment is found authorized releases it, except a
// payment that already belongs to another reservation.
func (s *ReservationService) CreateWithPayment(ctx context.Context, req *models.CreateWithPaymentRequest) (*models.Reservation, error) {
	state, err := s.authorizedPayment(ctx, req.PaymentID)
	if err != nil {
		return nil, err
	}

	recorded, err := s.reservationRepo.PaymentRecorded(ctx, req.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check payment %s: %w", req.PaymentID, err)
	}
	if recorded {
		return nil, apperrors.New(apperrors.KindInvalidState, "payment %s was already applied", req.PaymentID)
	}

	res, err := s.store(ctx, req, state)
	if err != nil {
		if !errors.Is(err, repository.ErrDuplicatePayment) {
			s.release(ctx, req.PaymentID, apperrors.KindOf(err).Error())
		}
		return nil, err
	}

	logger.WithContext(ctx).Info("Reservation created",
		"reservation_code", res.Code,
		"table_id", res.TableID,
		"num_people", res.NumPeople,
		"amount_paid", res.AmountPaid.StringFixed(2))
	metrics.ReservationCreated()

	s.publish(ctx, models.EventReservationCreated, models.ReservationCreatedEvent{
		ReservationID: res.ID.String(),
		Code:          res.Code,
		EventID:       res.EventID.String(),
		TableID:       res.TableID.String(),
		UserID:        res.UserID.String(),
		NumPeople:     res.NumPeople,
		GuestPhones:   res.GuestPhones,
		TotalAmount:   res.TotalAmount.StringFixed(2),
		AmountPaid:    res.AmountPaid.StringFixed(2),
		Timestamp:     s.now(),
	})
	if res.Status == models.StatusCompleted {
		s.completed(ctx, *res)
	}

	return res, nil
}

// store validates the request against the current table and persists the
// reservation with its first payment.
func (s *ReservationService) store(ctx context.Context, req *models.CreateWithPaymentRequest, state *external.PaymentState) (*models.Reservation, error) {
	p, err := s.params(ctx, &req.CreateReservationRequest)
	if err != nil {
		return nil, err
	}
	user, err := ledger.ValidateCreate(p, session.FromContext(ctx))
	if err != nil {
		return nil, err
	}

	amount := upFront(p)
	if err := paymentCovers(state, amount); err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		code, err := s.newCode(ctx)
		if err != nil {
			return nil, err
		}

		res, err := ledger.NewReservation(p, user, code, s.now())
		if err != nil {
			return nil, err
		}

		payment := &models.ReservationPayment{
			PaymentID: req.PaymentID,
			NumPeople: p.SharesPaidUpFront(),
			Amount:    amount,
		}

		err = s.reservationRepo.Create(ctx, &res, payment)
		switch {
		case err == nil:
			return &res, nil
		case errors.Is(err, repository.ErrDuplicateCode) && attempt+1 < ledger.MaxCodeAttempts:
			continue
		case errors.Is(err, repository.ErrTableUnavailable):
			return nil, apperrors.New(apperrors.KindInvalidState, "table %s is already reserved", p.Table.Name)
		case errors.Is(err, repository.ErrDuplicatePayment):
			return nil, apperrors.Wrap(apperrors.KindInvalidState, err, "payment %s was already applied", req.PaymentID)
		default:
			return nil, fmt.Errorf("failed to create reservation: %w", err)
		}
	}
}

func (s *ReservationService) completed(ctx context.Context, res models.Reservation) {
	metrics.Transition(string(models.StatusCompleted))
	s.publish(ctx, models.EventReservationCompleted, models.ReservationCompletedEvent{
		ReservationID: res.ID.String(),
		Code:          res.Code,
		TotalAmount:   res.TotalAmount.StringFixed(2),
		Timestamp:     s.now(),
	})
}

// GetByCode looks a reservation up by its short code in any case or spacing.
func (s *ReservationService) GetByCode(ctx context.Context, code string) (*models.Reservation, error) {
	code = ledger.NormalizeCode(code)
	if !ledger.ValidCode(code) {
		return nil, apperrors.New(apperrors.KindNotFound, "reservation %s not found", code)
	}

	if res, ok := s.cache.Reservation(ctx, code); ok {
		return res, nil
	}

	res, err := s.reservationRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindLookupFailed, err, "failed to get reservation %s", code)
	}
	if res == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "reservation %s not found", code)
	}

	s.cache.SetReservation(ctx, res)
	return res, nil
}

// Mine lists the signed-in user's reservations.
func (s *ReservationService) Mine(ctx context.Context) ([]models.Reservation, error) {
	user, err := session.FromContext(ctx).RequireUser()
	if err != nil {
		return nil, err
	}
	reservations, err := s.reservationRepo.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}

// ContributionIntent opens a payment for numPeople further shares.
func (s *ReservationService) ContributionIntent(ctx context.Context, code string, numPeople int) (*models.PaymentIntentResponse, error) {
	res, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	amount, err := ledger.ContributionAmount(*res, numPeople)
	if err != nil {
		return nil, err
	}

	intent, err := s.payments.InitPayment(ctx, amount, uuid.New().String(),
		fmt.Sprintf("Reservation %s, %d people", res.Code, numPeople))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindPaymentAuthorizationFailed, err, "failed to initialize payment")
	}

	resp := intent.Response()
	return &resp, nil
}

// Contribute applies an authorized payment to the reservation. The ledger
// rules run against the locked row so concurrent contributions cannot
// overshoot the total.
func (s *ReservationService) Contribute(ctx context.Context, code string, req *models.ContributeRequest) (*models.Reservation, error) {
	code = ledger.NormalizeCode(code)

	state, err := s.authorizedPayment(ctx, req.PaymentID)
	if err != nil {
		metrics.Contribution(string(apperrors.KindPaymentAuthorizationFailed))
		return nil, err
	}

	var (
		before models.Reservation
		paid   decimal.Decimal
	)
	updated, err := s.reservationRepo.Update(ctx, code, func(current models.Reservation) (models.Reservation, *models.ReservationPayment, error) {
		before = current
		next, amount, err := ledger.Contribute(current, req.NumPeople, s.now())
		if err != nil {
			return current, nil, err
		}
		if err := paymentCovers(state, amount); err != nil {
			return current, nil, err
		}
		paid = amount
		return next, &models.ReservationPayment{
			PaymentID: req.PaymentID,
			NumPeople: req.NumPeople,
			Amount:    amount,
			CreatedAt: s.now(),
		}, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrReservationNotFound):
			err = apperrors.New(apperrors.KindNotFound, "reservation %s not found", code)
		case errors.Is(err, repository.ErrDuplicatePayment):
			// Already applied, so the money stays.
			metrics.Contribution(string(apperrors.KindInvalidState))
			return nil, apperrors.New(apperrors.KindInvalidState, "payment %s was already applied", req.PaymentID)
		}
		metrics.Contribution(string(apperrors.KindOf(err)))
		s.release(ctx, req.PaymentID, apperrors.KindOf(err).Error())
		return nil, err
	}

	s.cache.InvalidateReservation(ctx, code)
	metrics.Contribution("accepted")
	logger.WithContext(ctx).Info("Contribution applied",
		"reservation_code", code,
		"num_people", req.NumPeople,
		"amount", paid.StringFixed(2),
		"amount_remaining", updated.AmountRemaining().StringFixed(2))

	s.publish(ctx, models.EventReservationContribution, models.ContributionEvent{
		ReservationID:   updated.ID.String(),
		Code:            updated.Code,
		PaymentID:       req.PaymentID,
		NumPeople:       req.NumPeople,
		Amount:          paid.StringFixed(2),
		AmountPaid:      updated.AmountPaid.StringFixed(2),
		AmountRemaining: updated.AmountRemaining().StringFixed(2),
		Timestamp:       s.now(),
	})
	if before.Status != models.StatusCompleted && updated.Status == models.StatusCompleted {
		s.completed(ctx, *updated)
	}

	return updated, nil
}

// Cancel lets the creator cancel a reservation that is not yet settled.
func (s *ReservationService) Cancel(ctx context.Context, code string) (*models.Reservation, error) {
	user, err := session.FromContext(ctx).RequireUser()
	if err != nil {
		return nil, err
	}
	code = ledger.NormalizeCode(code)

	updated, err := s.reservationRepo.Update(ctx, code, func(current models.Reservation) (models.Reservation, *models.ReservationPayment, error) {
		if current.UserID != user.ID {
			return current, nil, apperrors.ErrForbidden
		}
		next, err := ledger.Cancel(current, s.now())
		return next, nil, err
	})
	if errors.Is(err, repository.ErrReservationNotFound) {
		return nil, apperrors.New(apperrors.KindNotFound, "reservation %s not found", code)
	}
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateReservation(ctx, code)
	s.cancelled(ctx, *updated, models.EventReservationCancelled, "cancelled by creator")
	return updated, nil
}

func (s *ReservationService) cancelled(ctx context.Context, res models.Reservation, subject, reason string) {
	metrics.Transition(string(models.StatusCancelled))
	logger.WithContext(ctx).Info("Reservation cancelled", "reservation_code", res.Code, "reason", reason)
	s.publish(ctx, subject, models.ReservationCancelledEvent{
		ReservationID: res.ID.String(),
		Code:          res.Code,
		Reason:        reason,
		AmountPaid:    res.AmountPaid.StringFixed(2),
		Timestamp:     s.now(),
	})
}

// ExpireOverdue cancels confirmed reservations whose event day is over and
// returns how many it cancelled. Events with unreadable dates are skipped.
// A row that fails to update does not stop the sweep; every failure is
// returned joined.
func (s *ReservationService) ExpireOverdue(ctx context.Context) (int, error) {
	pending, err := s.reservationRepo.ListByStatus(ctx, models.StatusConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to list confirmed reservations: %w", err)
	}

	now := s.now()
	expired := 0
	var failures []error
	for _, res := range pending {
		if res.Event == nil {
			continue
		}
		upcoming, err := eventdate.IsInFuture(res.Event.Date, now)
		if err != nil {
			logger.WithContext(ctx).Warn("Skipping reservation with unreadable event date",
				"reservation_code", res.Code,
				"date", res.Event.Date,
				"error", err)
			continue
		}
		if upcoming {
			continue
		}

		updated, err := s.reservationRepo.Update(ctx, res.Code, func(current models.Reservation) (models.Reservation, *models.ReservationPayment, error) {
			// Settled while we were looking.
			if current.Status != models.StatusConfirmed {
				return current, nil, errSkip
			}
			next, err := ledger.Cancel(current, now)
			return next, nil, err
		})
		if errors.Is(err, errSkip) {
			continue
		}
		if err != nil {
			logger.WithContext(ctx).Error("Failed to expire reservation", "reservation_code", res.Code, "error", err)
			failures = append(failures, fmt.Errorf("expire %s: %w", res.Code, err))
			continue
		}

		expired++
		s.cache.InvalidateReservation(ctx, res.Code)
		s.cancelled(ctx, *updated, models.EventReservationExpired, "event date passed")
	}

	return expired, errors.Join(failures...)
}

var errSkip = errors.New("skip")

// Tickets lists the entry tickets linked to a reservation. Like the lookup,
// the code is all a guest needs.
func (s *ReservationService) Tickets(ctx context.Context, code string) (*models.TicketsResponse, error) {
	res, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.tickets(ctx, *res)
}

func (s *ReservationService) tickets(ctx context.Context, res models.Reservation) (*models.TicketsResponse, error) {
	ids, err := s.reservationRepo.ListTickets(ctx, res.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets for %s: %w", res.Code, err)
	}
	out := &models.TicketsResponse{ReservationCode: res.Code, Seats: res.NumPeople, Tickets: make([]string, len(ids))}
	for i, id := range ids {
		out.Tickets[i] = id.String()
	}
	return out, nil
}

// LinkTicket gives one more seat of the creator's reservation an entry ticket.
func (s *ReservationService) LinkTicket(ctx context.Context, code, ticketID string) (*models.TicketsResponse, error) {
	return s.changeTickets(ctx, code, ticketID, true)
}

// UnlinkTicket frees the seat ticketID was linked to.
func (s *ReservationService) UnlinkTicket(ctx context.Context, code, ticketID string) (*models.TicketsResponse, error) {
	return s.changeTickets(ctx, code, ticketID, false)
}

func (s *ReservationService) changeTickets(ctx context.Context, code, rawTicketID string, link bool) (*models.TicketsResponse, error) {
	user, err := session.FromContext(ctx).RequireUser()
	if err != nil {
		return nil, err
	}
	ticketID, err := uuid.Parse(rawTicketID)
	if err != nil {
		return nil, apperrors.New(apperrors.KindValidation, "invalid ticket id %q", rawTicketID)
	}
	code = ledger.NormalizeCode(code)

	owner := func(current models.Reservation) error {
		if current.UserID != user.ID {
			return apperrors.ErrForbidden
		}
		return nil
	}
	if link {
		err = s.reservationRepo.LinkTicket(ctx, code, ticketID, func(current models.Reservation, linked int) error {
			if err := owner(current); err != nil {
				return err
			}
			return ledger.CanLinkTicket(current, linked)
		})
	} else {
		err = s.reservationRepo.UnlinkTicket(ctx, code, ticketID, func(current models.Reservation, _ int) error {
			return owner(current)
		})
	}

	switch {
	case errors.Is(err, repository.ErrReservationNotFound):
		return nil, apperrors.New(apperrors.KindNotFound, "reservation %s not found", code)
	case errors.Is(err, repository.ErrTicketLinked):
		return nil, apperrors.New(apperrors.KindInvalidState, "ticket %s is already linked to %s", ticketID, code)
	case errors.Is(err, repository.ErrTicketNotLinked):
		return nil, apperrors.New(apperrors.KindNotFound, "ticket %s is not linked to %s", ticketID, code)
	case err != nil:
		return nil, err
	}

	logger.WithContext(ctx).Info("Reservation tickets changed", "reservation_code", code, "ticket_id", ticketID, "linked", link)
	return s.Tickets(ctx, code)
}

// PaymentOutcome records a gateway notification for a payment.
type PaymentOutcome struct {
	PaymentID string
	OrderID   string
	Status    string
}

// HandlePaymentNotification logs gateway callbacks. Reservations are only
// changed through CreateWithPayment and Contribute, which verify the payment
// themselves.
func (s *ReservationService) HandlePaymentNotification(ctx context.Context, n PaymentOutcome) {
	log := logger.WithContext(ctx).With("payment_id", n.PaymentID, "order_id", n.OrderID, "status", n.Status)
	switch n.Status {
	case external.PaymentStatusConfirmed, external.PaymentStatusAuthorized:
		log.Info("Payment authorized by gateway")
	case external.PaymentStatusRejected, external.PaymentStatusCancelled, external.PaymentStatusExpired:
		log.Warn("Payment not completed")
	default:
		log.Info("Payment notification")
	}
}
