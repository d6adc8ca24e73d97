package checkout

import (
	"fmt"
	"time"
)

type State string

const (
	StateIntentReady       State = "intentReady"
	StateShippingConfirmed State = "shippingConfirmed"
	StateRedirected        State = "redirected"
	StatePolling           State = "polling"
	StatePaid              State = "paid"
	StateFailed            State = "failed"
	// StateProcessing: the poll budget ran out without a terminal answer. The
	// payment may still settle server-side, so this is not a failure.
	StateProcessing State = "processing"
)

func (s State) IsTerminal() bool {
	return s == StatePaid || s == StateFailed
}

const (
	// CurrentCheckout is the well-known storage key of the active checkout.
	CurrentCheckout = "currentCheckout"
)

// PaymentIntent is the gateway-side record of a single attempted charge.
// Immutable once confirmed; superseded, never mutated, when the cart changes
// before confirmation.
type PaymentIntent struct {
	UID          string
	ClientSecret string
	Amount       int64
	Currency     string
	Country      string
}

func (p PaymentIntent) Matches(amount int64, currency string, country string) bool {
	return p.Amount == amount && p.Currency == currency && p.Country == country
}

type CheckoutContext struct {
	UID               string
	CreatedAt         time.Time
	LastModified      *time.Time
	State             State
	Intent            PaymentIntent
	ShippingConfirmed bool
	OrderUID          string
	FailureReason     string
}

type Amount struct {
	Currency string
	Value    int64
}

func (a Amount) String() string {
	return fmt.Sprintf("%.2f %s", float64(a.Value)/100.0, a.Currency)
}

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

// BillingDetails is what the gateway needs to confirm the charge. The payment
// method is tokenized client-side; raw card data never passes through here.
type BillingDetails struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	PaymentMethodUID string `json:"paymentMethodUID"`
}

type OrderPollStatus string

const (
	OrderStatusPending OrderPollStatus = "pending"
	OrderStatusPaid    OrderPollStatus = "paid"
	OrderStatusFailed  OrderPollStatus = "failed"
)

// OrderStatus is the ephemeral answer of one order-status poll. Never persisted.
type OrderStatus struct {
	Status   OrderPollStatus `json:"status"`
	OrderUID string          `json:"orderId,omitempty"`
	Amount   int64           `json:"amount,omitempty"`
	Currency string          `json:"currency,omitempty"`
	Reason   string          `json:"reason,omitempty"`
}

type createIntentRequest struct {
	Amount   int64           `json:"amount"`
	Currency string          `json:"currency"`
	Country  string          `json:"country"`
	Cart     []cartLineEntry `json:"cart"`
}

type cartLineEntry struct {
	ProductItemUID string `json:"productItemId"`
	UnitPrice      int64  `json:"unitPrice"`
	Quantity       int    `json:"quantity"`
}

type createIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

type confirmShippingRequest struct {
	Name     string  `json:"name"`
	Shipping Address `json:"shipping"`
}
