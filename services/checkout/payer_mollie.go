package checkout

import (
	"context"
	"fmt"

	"github.com/VictorAvelar/mollie-api-go/v3/mollie"

	"github.com/MarcGrol/shopfrontend/lib/myerrors"
)

// molliePayer serves redirect-based payment methods: the gateway answers with
// a hosted page URL and the flow resumes at the return URL with the intent
// identifier as query parameter.
type molliePayer struct {
	client *mollie.Client
}

func NewMolliePayer(apiKey string, testMode bool) (Payer, error) {
	config := mollie.NewAPITestingConfig(testMode)

	client, err := mollie.NewClient(nil, config)
	if err != nil {
		return nil, myerrors.NewInternalError(fmt.Errorf("error creating mollie client: %s", err))
	}
	client.WithAuthenticationValue(apiKey)

	return &molliePayer{
		client: client,
	}, nil
}

func (p *molliePayer) ConfirmPayment(c context.Context, intent PaymentIntent, billing BillingDetails, returnURL string) (ConfirmResult, error) {
	request := mollie.Payment{
		Amount: &mollie.Amount{
			Currency: intent.Currency,
			Value:    fmt.Sprintf("%.2f", float64(intent.Amount)/100.0),
		},
		Description: fmt.Sprintf("Checkout %s", intent.UID),
		RedirectURL: fmt.Sprintf("%s?pi=%s", returnURL, intent.UID),
		Metadata: map[string]string{
			"intentUID": intent.UID,
		},
	}

	_, payment, err := p.client.Payments.Create(c, request, nil)
	if err != nil {
		return ConfirmResult{}, myerrors.NewInvalidInputError(fmt.Errorf("error creating mollie payment: %s", err))
	}

	if payment.Links.Checkout == nil || payment.Links.Checkout.Href == "" {
		return ConfirmResult{}, myerrors.NewInternalError(fmt.Errorf("mollie payment %s has no checkout link", payment.ID))
	}

	return ConfirmResult{
		RedirectURL: payment.Links.Checkout.Href,
	}, nil
}
