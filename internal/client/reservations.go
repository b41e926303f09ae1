package client

import (
	"context"

	apperrors "pierre/internal/errors"
	"pierre/internal/external"
	"pierre/internal/ledger"
	"pierre/internal/logger"
	"pierre/internal/models"
)

// Result of a payment-backed flow. Reservation is nil when the payer
// cancelled authorization; nothing was changed in that case.
type Result struct {
	Reservation *models.Reservation
	Cancelled   bool
}

func cancelled() Result { return Result{Cancelled: true} }

// CreateReservation validates p locally, obtains a payment intent for the
// creator's share, has it authorized and then asks the server to store the
// reservation. The returned reservation is the server's.
func (c *Client) CreateReservation(ctx context.Context, p ledger.CreateParams) (Result, error) {
	if _, err := ledger.ValidateCreate(p, c.session); err != nil {
		return Result{}, err
	}

	req := models.CreateReservationRequest{
		TableID:            p.Table.ID.String(),
		EventID:            p.EventID.String(),
		NumPeople:          p.NumPeople,
		ContributionPeople: p.SharesPaidUpFront(),
		GuestPhones:        ledger.DistinctPhones(p.GuestPhones),
		ContactInfo:        p.Contact,
		SpecialRequests:    p.SpecialRequests,
	}

	token := c.session.Token()
	intent, err := c.api.CreatePaymentIntent(ctx, token, req)
	if err != nil {
		return Result{}, err
	}

	ok, err := c.authorize(ctx, intent)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return cancelled(), nil
	}

	res, err := c.api.CreateWithPayment(ctx, token, models.CreateWithPaymentRequest{
		CreateReservationRequest: req,
		PaymentID:                intent.PaymentID,
	})
	if err != nil {
		return Result{}, err
	}

	logger.WithContext(ctx).Info("Reservation created",
		"reservation_code", res.Code,
		"amount_paid", res.AmountPaid.String())
	return Result{Reservation: &res}, nil
}

// Contribute pays numPeople shares toward current. The count is clamped to
// the party size; a reservation that no longer accepts contributions is
// rejected before any network call.
func (c *Client) Contribute(ctx context.Context, current models.Reservation, numPeople int) (Result, error) {
	n := ledger.ClampPeople(numPeople, current.NumPeople)
	if _, err := ledger.ContributionAmount(current, n); err != nil {
		return Result{}, err
	}

	token := c.session.Token()
	intent, err := c.api.ContributionIntent(ctx, token, current.Code, n)
	if err != nil {
		return Result{}, err
	}

	ok, err := c.authorize(ctx, intent)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return cancelled(), nil
	}

	res, err := c.api.Contribute(ctx, token, current.Code, models.ContributeRequest{
		NumPeople: n,
		PaymentID: intent.PaymentID,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Reservation: &res}, nil
}

// Cancel cancels a reservation the signed-in user created.
func (c *Client) Cancel(ctx context.Context, code string) (models.Reservation, error) {
	if _, err := c.session.RequireUser(); err != nil {
		return models.Reservation{}, err
	}
	return c.api.CancelReservation(ctx, c.session.Token(), ledger.NormalizeCode(code))
}

// authorize returns true on approval, false with a nil error on
// cancellation and an error on failure.
func (c *Client) authorize(ctx context.Context, intent models.PaymentIntentResponse) (bool, error) {
	if c.authorizer == nil {
		return false, apperrors.New(apperrors.KindPaymentAuthorizationFailed, "no payment authorizer configured")
	}

	outcome, err := c.authorizer.Authorize(ctx, intent)
	switch outcome {
	case external.AuthorizationSucceeded:
		return true, nil
	case external.AuthorizationCancelled:
		logger.WithContext(ctx).Info("Payment authorization cancelled", "payment_id", intent.PaymentID)
		return false, nil
	default:
		if err == nil {
			err = apperrors.New(apperrors.KindPaymentAuthorizationFailed, "payment %s was not authorized", intent.PaymentID)
		} else if !apperrors.Is(err, apperrors.KindPaymentAuthorizationFailed) {
			err = apperrors.Wrap(apperrors.KindPaymentAuthorizationFailed, err, "payment %s was not authorized", intent.PaymentID)
		}
		return false, err
	}
}
