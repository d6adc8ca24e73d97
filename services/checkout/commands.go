package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MarcGrol/shopfrontend/lib/myerrors"
	"github.com/MarcGrol/shopfrontend/lib/mylog"
	"github.com/MarcGrol/shopfrontend/services/checkoutevents"
)

// prepareIntent makes sure a payment intent exists that covers the current
// cart total, the derived currency and the shipping country. A still-matching
// intent is reused; a changed cart supersedes it with a fresh one, the old
// intent is simply abandoned. A zero amount suppresses intent creation.
func (s *service) prepareIntent(c context.Context, country string) (CheckoutContext, error) {
	amount := s.cart.TotalAmount()
	if amount == 0 {
		s.logger.Log(c, "", mylog.SeverityInfo, "Cart is empty, no intent created")
		return CheckoutContext{}, nil
	}

	currency := CurrencyForCountry(country)

	current, found, err := s.checkoutStore.Get(c, CurrentCheckout)
	if err != nil {
		return CheckoutContext{}, myerrors.NewInternalError(err)
	}
	if found && !current.State.IsTerminal() && current.Intent.Matches(amount, currency, country) {
		return current, nil
	}

	intent, err := s.createIntent(c, amount, currency, country)
	if err != nil {
		return CheckoutContext{}, err
	}

	checkoutUID := s.uuider.Create()
	now := s.nower.Now()
	checkoutContext := CheckoutContext{
		UID:       checkoutUID,
		CreatedAt: now,
		State:     StateIntentReady,
		Intent:    intent,
	}

	err = s.checkoutStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent

		err := s.putContext(c, checkoutContext)
		if err != nil {
			return err
		}

		err = s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.CheckoutStarted{
			CheckoutUID:   checkoutUID,
			IntentUID:     intent.UID,
			AmountInCents: amount,
			Currency:      currency,
			Country:       country,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing event: %s", err))
		}

		return nil
	})
	if err != nil {
		return CheckoutContext{}, err
	}

	s.logger.Log(c, checkoutUID, mylog.SeverityInfo, "Created payment intent %s over %s",
		intent.UID, Amount{Currency: currency, Value: amount})

	return checkoutContext, nil
}

func (s *service) createIntent(c context.Context, amount int64, currency string, country string) (PaymentIntent, error) {
	entries := []cartLineEntry{}
	for _, item := range s.cart.Items() {
		entries = append(entries, cartLineEntry{
			ProductItemUID: item.ProductItemUID,
			UnitPrice:      item.UnitPrice,
			Quantity:       item.Quantity,
		})
	}

	payload, err := json.Marshal(createIntentRequest{
		Amount:   amount,
		Currency: currency,
		Country:  country,
		Cart:     entries,
	})
	if err != nil {
		return PaymentIntent{}, myerrors.NewInternalError(err)
	}

	status, respBody, err := s.backend.Do(c, http.MethodPost, "/api/payments/create-intent", payload)
	if err != nil {
		return PaymentIntent{}, err
	}
	if status != http.StatusOK {
		return PaymentIntent{}, myerrors.NewInternalError(fmt.Errorf("create-intent failed with status %d", status))
	}

	resp := createIntentResponse{}
	err = json.Unmarshal(respBody, &resp)
	if err != nil {
		return PaymentIntent{}, myerrors.NewInternalError(fmt.Errorf("error parsing create-intent response: %s", err))
	}

	intentUID, err := IntentUIDFromClientSecret(resp.ClientSecret)
	if err != nil {
		return PaymentIntent{}, err
	}

	return PaymentIntent{
		UID:          intentUID,
		ClientSecret: resp.ClientSecret,
		Amount:       amount,
		Currency:     currency,
		Country:      country,
	}, nil
}

// confirmShipping persists the address against the intent on the backend.
// This must precede payment confirmation: an address cannot be attached once
// payment has begun. Failure leaves the state machine where it was, the
// shopper may retry the same step.
func (s *service) confirmShipping(c context.Context, name string, address Address) (CheckoutContext, error) {
	current, found, err := s.checkoutStore.Get(c, CurrentCheckout)
	if err != nil {
		return CheckoutContext{}, myerrors.NewInternalError(err)
	}
	if !found {
		return CheckoutContext{}, myerrors.NewNotFoundError(fmt.Errorf("no active checkout"))
	}
	if current.State != StateIntentReady && current.State != StateShippingConfirmed {
		return CheckoutContext{}, myerrors.NewInvalidInputErrorf("checkout in state %s does not accept a shipping address", current.State)
	}

	payload, err := json.Marshal(confirmShippingRequest{
		Name:     name,
		Shipping: address,
	})
	if err != nil {
		return CheckoutContext{}, myerrors.NewInternalError(err)
	}

	status, _, err := s.backend.Do(c, http.MethodPut, fmt.Sprintf("/api/payments/%s/shipping", current.Intent.UID), payload)
	if err != nil {
		return CheckoutContext{}, err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return CheckoutContext{}, myerrors.NewInvalidInputErrorf("confirming shipping failed with status %d", status)
	}

	now := s.nower.Now()
	current.ShippingConfirmed = true
	current.State = StateShippingConfirmed
	current.LastModified = &now

	err = s.putContext(c, current)
	if err != nil {
		return CheckoutContext{}, err
	}

	s.logger.Log(c, current.UID, mylog.SeverityInfo, "Shipping address confirmed for intent %s", current.Intent.UID)

	return current, nil
}

// pay submits the stored billing details to the gateway. It refuses to run
// until the shipping address is confirmed. Synchronous methods answer with
// the intent identifier and polling starts right away; redirect-based methods
// answer with a URL and the flow resumes at the return endpoint.
func (s *service) pay(c context.Context, billing BillingDetails) (CheckoutContext, error) {
	current, found, err := s.checkoutStore.Get(c, CurrentCheckout)
	if err != nil {
		return CheckoutContext{}, myerrors.NewInternalError(err)
	}
	if !found {
		return CheckoutContext{}, myerrors.NewNotFoundError(fmt.Errorf("no active checkout"))
	}
	if current.State.IsTerminal() {
		return CheckoutContext{}, myerrors.NewInvalidInputErrorf("checkout already completed with state %s", current.State)
	}
	if !current.ShippingConfirmed {
		return CheckoutContext{}, myerrors.NewInvalidInputErrorf("shipping address must be confirmed before payment")
	}

	result, err := s.payer.ConfirmPayment(c, current.Intent, billing, s.returnURL)
	if err != nil {
		// Gateway rejection: surfaced to the shopper, the state machine does
		// not advance, the intent stays reusable.
		return CheckoutContext{}, err
	}

	if result.RedirectURL != "" {
		now := s.nower.Now()
		current.State = StateRedirected
		current.LastModified = &now

		err = s.putContext(c, current)
		if err != nil {
			return CheckoutContext{}, err
		}

		s.logger.Log(c, current.UID, mylog.SeverityInfo, "Shopper redirected to gateway for intent %s", current.Intent.UID)

		return current, nil
	}

	return s.awaitOrder(c, current, result.IntentUID)
}

// resume continues a redirect-based flow: the gateway sent the shopper back
// with the intent identifier as query parameter.
func (s *service) resume(c context.Context, intentUID string) (CheckoutContext, error) {
	checkoutContext, found, err := s.checkoutStore.Get(c, intentUID)
	if err != nil {
		return CheckoutContext{}, myerrors.NewInternalError(err)
	}
	if !found {
		return CheckoutContext{}, myerrors.NewNotFoundError(fmt.Errorf("checkout for intent %s not found", intentUID))
	}
	if checkoutContext.State.IsTerminal() {
		return checkoutContext, nil
	}

	return s.awaitOrder(c, checkoutContext, intentUID)
}

func (s *service) getStatus(c context.Context) (CheckoutContext, error) {
	current, found, err := s.checkoutStore.Get(c, CurrentCheckout)
	if err != nil {
		return CheckoutContext{}, myerrors.NewInternalError(err)
	}
	if !found {
		return CheckoutContext{}, myerrors.NewNotFoundError(fmt.Errorf("no active checkout"))
	}

	return current, nil
}

// awaitOrder drives the post-payment wait: a bounded loop of order-status
// queries, two seconds apart, that stops on the first terminal answer. When
// the budget runs out the checkout is left in the processing state; the
// payment may still settle server-side. The context cancels the loop, checked
// before every state mutation so teardown cannot race a late answer.
func (s *service) awaitOrder(c context.Context, checkoutContext CheckoutContext, intentUID string) (CheckoutContext, error) {
	now := s.nower.Now()
	checkoutContext.State = StatePolling
	checkoutContext.LastModified = &now

	err := s.putContext(c, checkoutContext)
	if err != nil {
		return CheckoutContext{}, err
	}

	for attempt := 0; attempt < s.pollBudget; attempt++ {
		if attempt > 0 {
			select {
			case <-c.Done():
				return checkoutContext, nil
			case <-time.After(s.pollInterval):
			}
		}

		orderStatus, err := s.fetchOrderStatus(c, intentUID)
		if err != nil {
			s.logger.Log(c, checkoutContext.UID, mylog.SeverityWarn, "Error fetching order status for intent %s: %s", intentUID, err)
			continue
		}

		if c.Err() != nil {
			return checkoutContext, nil
		}

		switch orderStatus.Status {
		case OrderStatusPaid:
			return s.finalize(c, checkoutContext, orderStatus, StatePaid)
		case OrderStatusFailed:
			return s.finalize(c, checkoutContext, orderStatus, StateFailed)
		default:
			// keep polling
		}
	}

	if c.Err() != nil {
		return checkoutContext, nil
	}

	now = s.nower.Now()
	checkoutContext.State = StateProcessing
	checkoutContext.LastModified = &now

	err = s.putContext(c, checkoutContext)
	if err != nil {
		return CheckoutContext{}, err
	}

	s.logger.Log(c, checkoutContext.UID, mylog.SeverityWarn, "No terminal status for intent %s within poll budget", intentUID)

	return checkoutContext, nil
}

func (s *service) fetchOrderStatus(c context.Context, intentUID string) (OrderStatus, error) {
	status, respBody, err := s.backend.Do(c, http.MethodGet, "/api/orderstatus?pi="+intentUID, nil)
	if err != nil {
		return OrderStatus{}, err
	}
	if status != http.StatusOK {
		return OrderStatus{}, myerrors.NewInternalError(fmt.Errorf("orderstatus failed with status %d", status))
	}

	resp := OrderStatus{}
	err = json.Unmarshal(respBody, &resp)
	if err != nil {
		return OrderStatus{}, myerrors.NewInternalError(fmt.Errorf("error parsing orderstatus response: %s", err))
	}

	return resp, nil
}

func (s *service) finalize(c context.Context, checkoutContext CheckoutContext, orderStatus OrderStatus, state State) (CheckoutContext, error) {
	now := s.nower.Now()
	checkoutContext.State = state
	checkoutContext.OrderUID = orderStatus.OrderUID
	checkoutContext.FailureReason = orderStatus.Reason
	checkoutContext.LastModified = &now

	err := s.checkoutStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent

		err := s.putContext(c, checkoutContext)
		if err != nil {
			return err
		}

		err = s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.CheckoutCompleted{
			CheckoutUID: checkoutContext.UID,
			IntentUID:   checkoutContext.Intent.UID,
			OrderUID:    checkoutContext.OrderUID,
			Status:      string(state),
			Success:     state == StatePaid,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing event: %s", err))
		}

		return nil
	})
	if err != nil {
		return CheckoutContext{}, err
	}

	if state == StatePaid {
		err = s.cart.Clear(c)
		if err != nil {
			s.logger.Log(c, checkoutContext.UID, mylog.SeverityWarn, "Error clearing cart after purchase: %s", err)
		}
	}

	s.logger.Log(c, checkoutContext.UID, mylog.SeverityInfo, "Checkout reached state %s (order %s)", state, checkoutContext.OrderUID)

	return checkoutContext, nil
}

// putContext stores the context under the fixed current-checkout key and
// under its intent identifier, which is how a redirect return finds it back.
func (s *service) putContext(c context.Context, checkoutContext CheckoutContext) error {
	err := s.checkoutStore.Put(c, CurrentCheckout, checkoutContext)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error storing checkout: %s", err))
	}

	err = s.checkoutStore.Put(c, checkoutContext.Intent.UID, checkoutContext)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error storing checkout: %s", err))
	}

	return nil
}
