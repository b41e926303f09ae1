package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"pierre/internal/external"
	"pierre/internal/models"
)

// consoleAuthorizer shows the payment intent and asks the payer to approve
// it on the terminal. The payment itself happens on the gateway page.
func consoleAuthorizer(in io.Reader, out io.Writer, assumeYes bool) external.Authorizer {
	reader := bufio.NewReader(in)
	return external.AuthorizerFunc(func(ctx context.Context, intent models.PaymentIntentResponse) (external.AuthorizationOutcome, error) {
		fmt.Fprintf(out, "Payment %s: %s %s\n", intent.PaymentID, intent.Amount, intent.Currency)
		if intent.PaymentURL != "" {
			fmt.Fprintf(out, "Complete the payment at %s\n", intent.PaymentURL)
		}
		if assumeYes {
			return external.AuthorizationSucceeded, nil
		}

		fmt.Fprint(out, "Has the payment been authorized? [y/N] ")
		answer, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return external.AuthorizationFailed, err
		}
		if ctx.Err() != nil {
			return external.AuthorizationFailed, ctx.Err()
		}

		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes", "s", "si", "sì":
			return external.AuthorizationSucceeded, nil
		default:
			return external.AuthorizationCancelled, nil
		}
	})
}
