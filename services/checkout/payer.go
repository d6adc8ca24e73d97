package checkout

import (
	"context"
)

// ConfirmResult is what the gateway answers to a confirm attempt: either the
// payment-intent identifier right away (synchronous methods such as card), or
// a URL the shopper must be sent to first (redirect-based methods). Exactly
// one of the two is set.
type ConfirmResult struct {
	IntentUID   string
	RedirectURL string
}

// Payer confirms a payment on the external gateway using the cached client
// secret of the intent.
//
//go:generate mockgen -source=payer.go -package checkout -destination payer_mock.go Payer
type Payer interface {
	ConfirmPayment(c context.Context, intent PaymentIntent, billing BillingDetails, returnURL string) (ConfirmResult, error)
}
