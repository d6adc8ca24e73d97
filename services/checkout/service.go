package checkout

import (
	"context"
	"time"

	"github.com/MarcGrol/shopfrontend/lib/mylog"
	"github.com/MarcGrol/shopfrontend/lib/mypublisher"
	"github.com/MarcGrol/shopfrontend/lib/mystore"
	"github.com/MarcGrol/shopfrontend/lib/mytime"
	"github.com/MarcGrol/shopfrontend/lib/myuuid"
	"github.com/MarcGrol/shopfrontend/services/cart"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultPollBudget   = 30
)

// Backend issues authenticated backend calls. Satisfied by session.Client.
type Backend interface {
	Do(c context.Context, method string, path string, body []byte) (int, []byte, error)
}

// Cart is the read side of the cart the orchestrator charges for, plus the
// clear that follows a completed purchase.
type Cart interface {
	Items() []cart.LineItem
	TotalAmount() int64
	Clear(c context.Context) error
}

type service struct {
	checkoutStore mystore.Store[CheckoutContext]
	cart          Cart
	backend       Backend
	payer         Payer
	publisher     mypublisher.Publisher
	logger        mylog.Logger
	nower         mytime.Nower
	uuider        myuuid.UUIDer

	returnURL    string
	pollInterval time.Duration
	pollBudget   int
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(checkoutStore mystore.Store[CheckoutContext], cartService Cart, backend Backend, payer Payer, publisher mypublisher.Publisher, logger mylog.Logger, nower mytime.Nower, uuider myuuid.UUIDer, returnURL string) *service {
	return &service{
		checkoutStore: checkoutStore,
		cart:          cartService,
		backend:       backend,
		payer:         payer,
		publisher:     publisher,
		logger:        logger,
		nower:         nower,
		uuider:        uuider,
		returnURL:     returnURL,
		pollInterval:  defaultPollInterval,
		pollBudget:    defaultPollBudget,
	}
}
