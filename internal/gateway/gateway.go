// Package gateway confirms payment intents with the payment gateway. The
// intent itself is opened by the backend order store; the storefront only
// drives the card confirmation step.
package gateway

import (
	"context"
	"strings"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
)

// Gateway confirms a payment intent with the customer's card. A declined
// card is a result, not an error; errors mean the outcome is unknown or the
// call itself failed.
type Gateway interface {
	ConfirmIntent(ctx context.Context, clientSecret string, card domain.Card) (*domain.PaymentResult, error)
}

// IntentIDFromSecret derives the gateway intent ID from a client secret of
// the form "pi_..._secret_...". An unrecognized secret is returned as-is so
// the reconciliation journal still gets a usable reference.
func IntentIDFromSecret(clientSecret string) string {
	if id, _, found := strings.Cut(clientSecret, "_secret"); found {
		return id
	}
	return clientSecret
}
