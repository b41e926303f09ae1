package external

import (
	"context"

	"pierre/internal/models"
)

// AuthorizationOutcome is the result of asking the payer to approve a payment.
// A cancelled authorization is a normal outcome, not an error.
type AuthorizationOutcome int

const (
	AuthorizationSucceeded AuthorizationOutcome = iota
	AuthorizationCancelled
	AuthorizationFailed
)

func (o AuthorizationOutcome) String() string {
	switch o {
	case AuthorizationSucceeded:
		return "succeeded"
	case AuthorizationCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Authorizer presents a payment intent to the payer. The returned error
// explains an AuthorizationFailed outcome and is nil otherwise.
type Authorizer interface {
	Authorize(ctx context.Context, intent models.PaymentIntentResponse) (AuthorizationOutcome, error)
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, intent models.PaymentIntentResponse) (AuthorizationOutcome, error)

func (f AuthorizerFunc) Authorize(ctx context.Context, intent models.PaymentIntentResponse) (AuthorizationOutcome, error) {
	return f(ctx, intent)
}
