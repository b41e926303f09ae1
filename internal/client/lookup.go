package client

import (
	"context"

	apperrors "pierre/internal/errors"
	"pierre/internal/ledger"
	"pierre/internal/models"
)

// Lookup resolves a typed short code. Not found and transport failures are
// distinct kinds so the caller can offer a retry only for the latter.
func (c *Client) Lookup(ctx context.Context, code string) (models.Reservation, error) {
	normalized := ledger.NormalizeCode(code)
	if normalized == "" {
		return models.Reservation{}, apperrors.New(apperrors.KindValidation, "reservation code is required")
	}
	return c.api.GetReservationByCode(ctx, normalized)
}

// MyReservations lists reservations created by the signed-in user.
func (c *Client) MyReservations(ctx context.Context) ([]models.Reservation, error) {
	if _, err := c.session.RequireUser(); err != nil {
		return nil, err
	}
	return c.api.MyReservations(ctx, c.session.Token())
}
