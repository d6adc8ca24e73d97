package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/shopfrontend/lib/myerrors"
	"github.com/MarcGrol/shopfrontend/lib/myhttp"
	"github.com/MarcGrol/shopfrontend/lib/mylog"
)

type webService struct {
	logger  mylog.Logger
	service *Service
}

func NewWebService(service *Service) *webService {
	return &webService{
		logger:  mylog.New("cartweb"),
		service: service,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/cart", s.getCartPage()).Methods("GET")
	router.HandleFunc("/cart", s.setCartPage()).Methods("PUT")
	router.HandleFunc("/cart", s.clearCartPage()).Methods("DELETE")
	router.HandleFunc("/cart/items", s.addItemPage()).Methods("POST")
	router.HandleFunc("/cart/items/{itemUID}", s.updateItemPage()).Methods("PUT")
	router.HandleFunc("/cart/items/{itemUID}", s.removeItemPage()).Methods("DELETE")
}

func (s *webService) getCartPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := r.Context()
		responseWriter := myhttp.NewWriter(s.logger)

		responseWriter.Write(c, w, http.StatusOK, Snapshot{
			Mode:  s.service.Mode(),
			Items: s.service.Items(),
		})
	}
}

func (s *webService) setCartPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := r.Context()
		responseWriter := myhttp.NewWriter(s.logger)

		snapshot := Snapshot{}
		err := json.NewDecoder(r.Body).Decode(&snapshot)
		if err != nil {
			responseWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request: %s", err)))
			return
		}

		err = s.service.SetCart(c, snapshot.Mode, snapshot.Items)
		if err != nil {
			responseWriter.WriteError(c, w, 2, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, Snapshot{
			Mode:  s.service.Mode(),
			Items: s.service.Items(),
		})
	}
}

func (s *webService) addItemPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := r.Context()
		responseWriter := myhttp.NewWriter(s.logger)

		item := LineItem{}
		err := json.NewDecoder(r.Body).Decode(&item)
		if err != nil {
			responseWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request: %s", err)))
			return
		}

		added, err := s.service.AddToCart(c, item)
		if err != nil {
			responseWriter.WriteError(c, w, 2, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, added)
	}
}

func (s *webService) updateItemPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := r.Context()
		responseWriter := myhttp.NewWriter(s.logger)

		itemUID := mux.Vars(r)["itemUID"]

		patch := ItemPatch{}
		err := json.NewDecoder(r.Body).Decode(&patch)
		if err != nil {
			responseWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request: %s", err)))
			return
		}

		updated, err := s.service.UpdateItem(c, itemUID, patch)
		if err != nil {
			responseWriter.WriteError(c, w, 2, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, updated)
	}
}

func (s *webService) removeItemPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := r.Context()
		responseWriter := myhttp.NewWriter(s.logger)

		err := s.service.RemoveFromCart(c, mux.Vars(r)["itemUID"])
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{Message: "removed"})
	}
}

func (s *webService) clearCartPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := r.Context()
		responseWriter := myhttp.NewWriter(s.logger)

		err := s.service.Clear(c)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{Message: "cleared"})
	}
}
