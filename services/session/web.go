package session

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
	logger mylog.Logger
	client *Client
}

func NewWebService(client *Client) *webService {
	return &webService{
		logger: mylog.New("sessionweb"),
		client: client,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/session/login", s.loginPage()).Methods("POST")
	router.HandleFunc("/session", s.logoutPage()).Methods("DELETE")
}

func (s *webService) loginPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := r.Context()
		responseWriter := myhttp.NewWriter(s.logger)

		req := LoginRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			responseWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request: %s", err)))
			return
		}
		if req.Username == "" || req.Password == "" {
			responseWriter.WriteError(c, w, 2, myerrors.NewInvalidInputErrorf("missing username or password"))
			return
		}

		resp, err := s.client.Login(c, req.Username, req.Password)
		if err != nil {
			responseWriter.WriteError(c, w, 3, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, resp)
	}
}

func (s *webService) logoutPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := r.Context()
		responseWriter := myhttp.NewWriter(s.logger)

		err := s.client.Logout(c)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{Message: "signed out"})
	}
}
