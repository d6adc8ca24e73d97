package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/MarcGrol/shopfrontend/lib/myerrors"
)

type stripePayer struct{}

func NewStripePayer(apiKey string) Payer {
	stripe.Key = apiKey
	return &stripePayer{}
}

func (p *stripePayer) ConfirmPayment(c context.Context, intent PaymentIntent, billing BillingDetails, returnURL string) (ConfirmResult, error) {
	intentUID, err := IntentUIDFromClientSecret(intent.ClientSecret)
	if err != nil {
		return ConfirmResult{}, err
	}

	confirmed, err := paymentintent.Confirm(intentUID, &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(billing.PaymentMethodUID),
		ReturnURL:     stripe.String(returnURL),
	})
	if err != nil {
		return ConfirmResult{}, myerrors.NewInvalidInputError(fmt.Errorf("error confirming payment intent %s: %s", intentUID, err))
	}

	if confirmed.Status == stripe.PaymentIntentStatusRequiresAction &&
		confirmed.NextAction != nil && confirmed.NextAction.RedirectToURL != nil {
		return ConfirmResult{
			RedirectURL: confirmed.NextAction.RedirectToURL.URL,
		}, nil
	}

	return ConfirmResult{
		IntentUID: confirmed.ID,
	}, nil
}

// IntentUIDFromClientSecret derives the intent identifier from its client
// secret, which is shaped "pi_<id>_secret_<nonce>".
func IntentUIDFromClientSecret(clientSecret string) (string, error) {
	idx := strings.Index(clientSecret, "_secret_")
	if !strings.HasPrefix(clientSecret, "pi_") || idx < 0 {
		return "", myerrors.NewInvalidInputErrorf("malformed client secret")
	}

	return clientSecret[:idx], nil
}
