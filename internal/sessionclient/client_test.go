package sessionclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"prepwise_auth/internal/config"
	"prepwise_auth/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// cookies returns what the session endpoint has set so far.
func (c *Client) cookies() []*http.Cookie {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil
	}
	return c.httpClient.Jar.Cookies(u)
}

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(&config.Config{BackendBaseURL: srv.URL + "/", HTTPClientTimeout: 5 * time.Second}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestClient_Register(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, registerPath, r.URL.Path)
		var req shared.RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Jane Doe", req.Name)
		respond(w, http.StatusCreated, shared.Succeeded("Account created successfully. Please sign in."))
	})

	res, err := c.Register(context.Background(), shared.RegisterRequest{UID: "u1", Name: "Jane Doe", Email: "jane@x.com"})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestClient_RejectionIsNotAnError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusConflict, shared.Rejected("User already exists. Please sign in instead."))
	})

	res, err := c.Register(context.Background(), shared.RegisterRequest{UID: "u1", Name: "Jane", Email: "jane@x.com"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "User already exists. Please sign in instead.", res.Message)
}

func TestClient_NonSuccessStatusNeverReportsSuccess(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusInternalServerError, map[string]interface{}{"success": true})
	})

	res, err := c.Authenticate(context.Background(), shared.AuthenticateRequest{Email: "a@b.com", IDToken: "t"})
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestClient_UndecodableBodyIsTransportError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	_, err := c.OAuthAuthenticate(context.Background(), shared.OAuthAuthenticateRequest{UID: "u"})
	assert.Error(t, err)
}

func TestClient_KeepsSessionCookie(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, signInPath, r.URL.Path)
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		respond(w, http.StatusOK, shared.Succeeded("Signed in successfully."))
	})

	res, err := c.Authenticate(context.Background(), shared.AuthenticateRequest{Email: "a@b.com", IDToken: "t"})
	require.NoError(t, err)
	assert.True(t, res.Success)

	cookies := c.cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Equal(t, "abc", cookies[0].Value)
}

func TestNew_InvalidBaseURL(t *testing.T) {
	_, err := New(&config.Config{BackendBaseURL: "not a url"}, zap.NewNop())
	assert.Error(t, err)
}
