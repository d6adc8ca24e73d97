package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"github.com/MarcGrol/shopfrontend/lib/mystore"
)

type backendCounters struct {
	loginCalls    int32
	refreshCalls  int32
	logoutCalls   int32
	resourceCalls int32
}

type fakeBackend struct {
	counters       backendCounters
	acceptedToken  string
	refreshedToken string
	refreshDelay   time.Duration
	refreshFails   bool
	server         *httptest.Server
}

func newFakeBackend(t *testing.T, acceptedToken string) *fakeBackend {
	b := &fakeBackend{
		acceptedToken:  acceptedToken,
		refreshedToken: acceptedToken,
	}

	router := mux.NewRouter()
	router.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&b.counters.loginCalls, 1)
		writeJSON(w, http.StatusOK, LoginResponse{
			AccessToken:  b.acceptedToken,
			RefreshToken: "refresh-token",
			Role:         "customer",
			UserUID:      "user-1",
		})
	}).Methods("POST")

	router.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&b.counters.refreshCalls, 1)
		if b.refreshDelay > 0 {
			time.Sleep(b.refreshDelay)
		}
		if b.refreshFails {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, refreshResponse{Access: b.refreshedToken})
	}).Methods("POST")

	router.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&b.counters.logoutCalls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}).Methods("POST")

	router.HandleFunc("/api/resource", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&b.counters.resourceCalls, 1)
		if r.Header.Get("Authorization") != "Bearer "+b.acceptedToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"answer": "42"})
	}).Methods("GET")

	b.server = httptest.NewServer(router)
	t.Cleanup(b.server.Close)

	return b
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func setup(t *testing.T, backend *fakeBackend) (context.Context, *Client, mystore.Store[Tokens], *bool) {
	c := context.TODO()

	tokenStore, cleanup, err := mystore.NewInMemoryStore[Tokens](c)
	assert.NoError(t, err)
	t.Cleanup(cleanup)

	signedOut := false
	client := New(backend.server.URL, tokenStore, func(c context.Context) {
		signedOut = true
	})

	return c, client, tokenStore, &signedOut
}

func TestSessionClient(t *testing.T) {

	t.Run("Request without token goes out unauthenticated", func(t *testing.T) {
		// given
		backend := newFakeBackend(t, "valid-token")
		c, client, _, _ := setup(t, backend)

		// when
		status, _, err := client.Do(c, http.MethodGet, "/api/resource", nil)

		// then
		assert.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, int32(0), atomic.LoadInt32(&backend.counters.refreshCalls))
	})

	t.Run("Valid token is attached as bearer", func(t *testing.T) {
		// given
		backend := newFakeBackend(t, "valid-token")
		c, client, tokenStore, _ := setup(t, backend)
		tokenStore.Put(c, CurrentSession, Tokens{AccessToken: "valid-token", RefreshToken: "refresh-token"})

		// when
		status, body, err := client.Do(c, http.MethodGet, "/api/resource", nil)

		// then
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, string(body), "42")
	})

	t.Run("Expired token is refreshed once and request replayed", func(t *testing.T) {
		// given
		backend := newFakeBackend(t, "fresh-token")
		c, client, tokenStore, _ := setup(t, backend)
		tokenStore.Put(c, CurrentSession, Tokens{AccessToken: "stale-token", RefreshToken: "refresh-token"})

		// when
		status, _, err := client.Do(c, http.MethodGet, "/api/resource", nil)

		// then
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, int32(1), atomic.LoadInt32(&backend.counters.refreshCalls))
		assert.Equal(t, int32(2), atomic.LoadInt32(&backend.counters.resourceCalls))

		tokens, _, _ := tokenStore.Get(c, CurrentSession)
		assert.Equal(t, "fresh-token", tokens.AccessToken)
	})

	t.Run("Second 401 on replayed request is propagated, not retried again", func(t *testing.T) {
		// given
		backend := newFakeBackend(t, "valid-token")
		backend.refreshedToken = "still-stale-token"
		c, client, tokenStore, _ := setup(t, backend)
		tokenStore.Put(c, CurrentSession, Tokens{AccessToken: "stale-token", RefreshToken: "refresh-token"})

		// when
		status, _, err := client.Do(c, http.MethodGet, "/api/resource", nil)

		// then
		assert.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, int32(1), atomic.LoadInt32(&backend.counters.refreshCalls))
		assert.Equal(t, int32(2), atomic.LoadInt32(&backend.counters.resourceCalls))
	})

	t.Run("Failing refresh clears session and fires signed-out hook", func(t *testing.T) {
		// given
		backend := newFakeBackend(t, "valid-token")
		backend.refreshFails = true
		c, client, tokenStore, signedOut := setup(t, backend)
		tokenStore.Put(c, CurrentSession, Tokens{AccessToken: "stale-token", RefreshToken: "expired-refresh"})

		// when
		status, _, err := client.Do(c, http.MethodGet, "/api/resource", nil)

		// then
		assert.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.True(t, *signedOut)

		tokens, _, _ := tokenStore.Get(c, CurrentSession)
		assert.Empty(t, tokens.AccessToken)
		assert.Empty(t, tokens.RefreshToken)
		assert.Equal(t, int32(1), atomic.LoadInt32(&backend.counters.resourceCalls))
	})

	t.Run("401 without refresh token is propagated unchanged", func(t *testing.T) {
		// given
		backend := newFakeBackend(t, "valid-token")
		c, client, tokenStore, signedOut := setup(t, backend)
		tokenStore.Put(c, CurrentSession, Tokens{AccessToken: "stale-token"})

		// when
		status, _, err := client.Do(c, http.MethodGet, "/api/resource", nil)

		// then
		assert.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.False(t, *signedOut)
		assert.Equal(t, int32(0), atomic.LoadInt32(&backend.counters.refreshCalls))
	})

	t.Run("Logout endpoint failure is never retried", func(t *testing.T) {
		// given
		backend := newFakeBackend(t, "valid-token")
		c, client, tokenStore, _ := setup(t, backend)
		tokenStore.Put(c, CurrentSession, Tokens{AccessToken: "stale-token", RefreshToken: "refresh-token"})

		// when
		err := client.Logout(c)

		// then
		assert.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&backend.counters.logoutCalls))
		assert.Equal(t, int32(0), atomic.LoadInt32(&backend.counters.refreshCalls))

		tokens, _, _ := tokenStore.Get(c, CurrentSession)
		assert.Empty(t, tokens.RefreshToken)
	})

	t.Run("Concurrent 401s collapse into a single refresh", func(t *testing.T) {
		// given
		backend := newFakeBackend(t, "fresh-token")
		backend.refreshDelay = 100 * time.Millisecond
		c, client, tokenStore, _ := setup(t, backend)
		tokenStore.Put(c, CurrentSession, Tokens{AccessToken: "stale-token", RefreshToken: "refresh-token"})

		// when
		const parallelism = 5
		var wg sync.WaitGroup
		statuses := make([]int, parallelism)
		for i := 0; i < parallelism; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				status, _, err := client.Do(c, http.MethodGet, "/api/resource", nil)
				assert.NoError(t, err)
				statuses[idx] = status
			}(i)
		}
		wg.Wait()

		// then
		assert.Equal(t, int32(1), atomic.LoadInt32(&backend.counters.refreshCalls))
		for _, status := range statuses {
			assert.Equal(t, http.StatusOK, status)
		}
	})

	t.Run("Login stores the token pair", func(t *testing.T) {
		// given
		backend := newFakeBackend(t, "valid-token")
		c, client, tokenStore, _ := setup(t, backend)

		// when
		resp, err := client.Login(c, "eva", "secret")

		// then
		assert.NoError(t, err)
		assert.Equal(t, "customer", resp.Role)
		assert.Equal(t, "user-1", resp.UserUID)

		tokens, _, _ := tokenStore.Get(c, CurrentSession)
		assert.Equal(t, "valid-token", tokens.AccessToken)
		assert.Equal(t, "refresh-token", tokens.RefreshToken)
	})
}
