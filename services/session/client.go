package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MarcGrol/shopfrontend/lib/myerrors"
	"github.com/MarcGrol/shopfrontend/lib/mylog"
	"github.com/MarcGrol/shopfrontend/lib/mystore"
)

const (
	httpClientTimeout = 5 * time.Second
)

// Client is the single call surface towards the backend. It owns the token
// pair and makes an expired access token invisible to callers: a 401 response
// triggers one refresh followed by one replay of the original request.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	tokenStore   mystore.Store[Tokens]
	logger       mylog.Logger
	refreshGroup singleflight.Group
	onSignedOut  func(c context.Context)
}

// New constructs a session client. onSignedOut is invoked when the refresh
// credential itself is rejected: the UI is expected to navigate to an
// unauthenticated landing state. A nil hook is allowed.
func New(baseURL string, tokenStore mystore.Store[Tokens], onSignedOut func(c context.Context)) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: httpClientTimeout,
		},
		tokenStore:  tokenStore,
		logger:      mylog.New("session"),
		onSignedOut: onSignedOut,
	}
}

// Do issues a backend call with the current access token attached. Absence of
// a token is not an error: the call simply goes out unauthenticated.
func (s *Client) Do(c context.Context, method string, path string, body []byte) (int, []byte, error) {
	status, respBody, err := s.send(c, method, path, body)
	if err != nil {
		return 0, nil, err
	}

	if status != http.StatusUnauthorized || isAuthPath(path) {
		return status, respBody, nil
	}

	tokens, _, err := s.tokenStore.Get(c, CurrentSession)
	if err != nil {
		return 0, nil, myerrors.NewInternalError(err)
	}
	if tokens.RefreshToken == "" {
		return status, respBody, nil
	}

	// Concurrent 401s collapse into a single refresh call
	_, err, _ = s.refreshGroup.Do("refresh", func() (any, error) {
		return nil, s.refreshAccessToken(c)
	})
	if err != nil {
		s.logger.Log(c, "", mylog.SeverityWarn, "Refresh failed, signing out: %s", err)
		s.signOut(c)

		return status, respBody, nil
	}

	// Replay the original request exactly once; a second 401 is propagated
	return s.send(c, method, path, body)
}

// Login exchanges credentials for a token pair and stores it.
func (s *Client) Login(c context.Context, username string, password string) (LoginResponse, error) {
	payload, err := json.Marshal(LoginRequest{Username: username, Password: password})
	if err != nil {
		return LoginResponse{}, myerrors.NewInternalError(err)
	}

	status, respBody, err := s.send(c, http.MethodPost, loginPath, payload)
	if err != nil {
		return LoginResponse{}, err
	}
	if status != http.StatusOK {
		return LoginResponse{}, myerrors.NewAuthenticationError(fmt.Errorf("login failed with status %d", status))
	}

	resp := LoginResponse{}
	err = json.Unmarshal(respBody, &resp)
	if err != nil {
		return LoginResponse{}, myerrors.NewInternalError(fmt.Errorf("error parsing login response: %s", err))
	}

	err = s.tokenStore.Put(c, CurrentSession, Tokens{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	})
	if err != nil {
		return LoginResponse{}, myerrors.NewInternalError(err)
	}

	s.logger.Log(c, resp.UserUID, mylog.SeverityInfo, "Signed in user %s with role %s", resp.UserUID, resp.Role)

	return resp, nil
}

// Logout tells the backend and clears the local token pair. The logout call
// itself is never retried: the local clear happens regardless of its outcome.
func (s *Client) Logout(c context.Context) error {
	_, _, err := s.send(c, http.MethodPost, logoutPath, nil)
	if err != nil {
		s.logger.Log(c, "", mylog.SeverityWarn, "Logout call failed: %s", err)
	}

	return s.tokenStore.Delete(c, CurrentSession)
}

// Tokens exposes the current pair, read fresh from storage.
func (s *Client) Tokens(c context.Context) (Tokens, error) {
	tokens, _, err := s.tokenStore.Get(c, CurrentSession)
	if err != nil {
		return Tokens{}, myerrors.NewInternalError(err)
	}

	return tokens, nil
}

func (s *Client) refreshAccessToken(c context.Context) error {
	tokens, _, err := s.tokenStore.Get(c, CurrentSession)
	if err != nil {
		return myerrors.NewInternalError(err)
	}
	if tokens.RefreshToken == "" {
		return myerrors.NewAuthenticationError(fmt.Errorf("no refresh token"))
	}

	payload, err := json.Marshal(refreshRequest{Refresh: tokens.RefreshToken})
	if err != nil {
		return myerrors.NewInternalError(err)
	}

	status, respBody, err := s.send(c, http.MethodPost, refreshPath, payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return myerrors.NewAuthenticationError(fmt.Errorf("refresh failed with status %d", status))
	}

	resp := refreshResponse{}
	err = json.Unmarshal(respBody, &resp)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error parsing refresh response: %s", err))
	}

	tokens.AccessToken = resp.Access

	return s.tokenStore.Put(c, CurrentSession, tokens)
}

func (s *Client) signOut(c context.Context) {
	err := s.tokenStore.Delete(c, CurrentSession)
	if err != nil {
		s.logger.Log(c, "", mylog.SeverityError, "Error clearing session: %s", err)
	}

	if s.onSignedOut != nil {
		s.onSignedOut(c)
	}
}

func (s *Client) send(c context.Context, method string, path string, body []byte) (int, []byte, error) {
	httpReq, err := http.NewRequestWithContext(c, method, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, myerrors.NewInternalError(fmt.Errorf("error creating http request for %s %s: %s", method, path, err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	// Token is read fresh on every send so a refreshed token is visible
	// to the replayed request immediately
	tokens, _, err := s.tokenStore.Get(c, CurrentSession)
	if err != nil {
		return 0, nil, myerrors.NewInternalError(err)
	}
	if tokens.AccessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	}

	httpResp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, myerrors.NewUnavailableError(fmt.Errorf("error calling %s %s: %s", method, path, err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return 0, nil, myerrors.NewInternalError(fmt.Errorf("error reading response of %s %s: %s", method, path, err))
	}

	return httpResp.StatusCode, respBody, nil
}

func isAuthPath(path string) bool {
	return path == refreshPath || path == logoutPath
}
