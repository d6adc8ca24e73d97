package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	formcodec "github.com/go-playground/form/v4"
	"github.com/gorilla/mux"

	"github.com/MarcGrol/shopfrontend/lib/myerrors"
	"github.com/MarcGrol/shopfrontend/lib/myhttp"
	"github.com/MarcGrol/shopfrontend/lib/mylog"
	"github.com/MarcGrol/shopfrontend/lib/mypublisher"
	"github.com/MarcGrol/shopfrontend/lib/mystore"
	"github.com/MarcGrol/shopfrontend/lib/mytime"
	"github.com/MarcGrol/shopfrontend/lib/myuuid"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(checkoutStore mystore.Store[CheckoutContext], cartService Cart, backend Backend, payer Payer, publisher mypublisher.Publisher, nower mytime.Nower, uuider myuuid.UUIDer, returnURL string) *webService {
	logger := mylog.New("checkout")
	return &webService{
		logger:  logger,
		service: newService(checkoutStore, cartService, backend, payer, publisher, logger, nower, uuider, returnURL),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/checkout", s.prepareIntentPage()).Methods("POST")
	router.HandleFunc("/checkout", s.statusPage()).Methods("GET")
	router.HandleFunc("/checkout/shipping", s.confirmShippingPage()).Methods("PUT")
	router.HandleFunc("/checkout/pay", s.payPage()).Methods("POST")
	router.HandleFunc("/checkout/return", s.returnPage()).Methods("GET")
}

type prepareIntentRequest struct {
	Country string `json:"country"`
}

type confirmShippingWebRequest struct {
	Name     string  `json:"name"`
	Shipping Address `json:"shipping"`
}

// returnParams carries the query parameters the gateway redirects back with.
type returnParams struct {
	IntentUID string `form:"pi"`
}

func (s *webService) prepareIntentPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := r.Context()
		responseWriter := myhttp.NewWriter(s.logger)

		req := prepareIntentRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			responseWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request: %s", err)))
			return
		}

		checkoutContext, err := s.service.prepareIntent(c, req.Country)
		if err != nil {
			responseWriter.WriteError(c, w, 2, err)
			return
		}
		if checkoutContext.UID == "" {
			// empty cart: nothing to prepare
			responseWriter.Write(c, w, http.StatusNoContent, nil)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, checkoutContext)
	}
}

func (s *webService) confirmShippingPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := r.Context()
		responseWriter := myhttp.NewWriter(s.logger)

		req := confirmShippingWebRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			responseWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request: %s", err)))
			return
		}
		if req.Name == "" || req.Shipping.Line1 == "" || req.Shipping.Country == "" {
			responseWriter.WriteError(c, w, 2, myerrors.NewInvalidInputErrorf("incomplete shipping address"))
			return
		}

		checkoutContext, err := s.service.confirmShipping(c, req.Name, req.Shipping)
		if err != nil {
			responseWriter.WriteError(c, w, 3, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, checkoutContext)
	}
}

func (s *webService) payPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := r.Context()
		responseWriter := myhttp.NewWriter(s.logger)

		billing := BillingDetails{}
		err := json.NewDecoder(r.Body).Decode(&billing)
		if err != nil {
			responseWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request: %s", err)))
			return
		}

		checkoutContext, err := s.service.pay(c, billing)
		if err != nil {
			responseWriter.WriteError(c, w, 2, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, checkoutContext)
	}
}

func (s *webService) returnPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := r.Context()
		responseWriter := myhttp.NewWriter(s.logger)

		params := returnParams{}
		err := formcodec.NewDecoder().Decode(&params, r.URL.Query())
		if err != nil || params.IntentUID == "" {
			responseWriter.WriteError(c, w, 1, myerrors.NewInvalidInputErrorf("missing payment-intent identifier"))
			return
		}

		checkoutContext, err := s.service.resume(c, params.IntentUID)
		if err != nil {
			responseWriter.WriteError(c, w, 2, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, checkoutContext)
	}
}

func (s *webService) statusPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := r.Context()
		responseWriter := myhttp.NewWriter(s.logger)

		checkoutContext, err := s.service.getStatus(c)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, checkoutContext)
	}
}
