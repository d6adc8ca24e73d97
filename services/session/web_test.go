package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"github.com/MarcGrol/shopfrontend/lib/mystore"
)

func setupWeb(t *testing.T, backend *fakeBackend) (*mux.Router, mystore.Store[Tokens]) {
	c, client, tokenStore, _ := setup(t, backend)

	router := mux.NewRouter()
	NewWebService(client).RegisterEndpoints(c, router)

	return router, tokenStore
}

func TestSessionWeb(t *testing.T) {

	t.Run("Login stores tokens and answers the profile", func(t *testing.T) {
		// given
		backend := newFakeBackend(t, "valid-token")
		router, tokenStore := setupWeb(t, backend)

		// when
		request := httptest.NewRequest(http.MethodPost, "/session/login",
			strings.NewReader(`{"username":"jane","password":"secret"}`))
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)

		resp := LoginResponse{}
		err := json.Unmarshal(response.Body.Bytes(), &resp)
		assert.NoError(t, err)
		assert.Equal(t, "user-1", resp.UserUID)
		assert.Equal(t, "customer", resp.Role)

		tokens, found, err := tokenStore.Get(request.Context(), CurrentSession)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "valid-token", tokens.AccessToken)
	})

	t.Run("Login without credentials is rejected", func(t *testing.T) {
		// given
		backend := newFakeBackend(t, "valid-token")
		router, _ := setupWeb(t, backend)

		// when
		request := httptest.NewRequest(http.MethodPost, "/session/login",
			strings.NewReader(`{"username":"jane"}`))
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusBadRequest, response.Code)
		assert.Equal(t, int32(0), atomic.LoadInt32(&backend.counters.loginCalls))
	})

	t.Run("Logout clears the stored tokens", func(t *testing.T) {
		// given
		backend := newFakeBackend(t, "valid-token")
		router, tokenStore := setupWeb(t, backend)

		request := httptest.NewRequest(http.MethodPost, "/session/login",
			strings.NewReader(`{"username":"jane","password":"secret"}`))
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)
		assert.Equal(t, http.StatusOK, response.Code)

		// when
		request = httptest.NewRequest(http.MethodDelete, "/session", nil)
		response = httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)

		_, found, err := tokenStore.Get(request.Context(), CurrentSession)
		assert.NoError(t, err)
		assert.False(t, found)
	})
}
