package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"prepwise_auth/internal/config"
	"prepwise_auth/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubAuthorizer struct {
	cred *IdPCredential
	err  error
}

// isProviderCode reports whether err is a ProviderError with code.
func isProviderCode(err error, code workflow.ProviderCode) bool {
	var pe *workflow.ProviderError
	return errors.As(err, &pe) && pe.Code == code
}

func (s stubAuthorizer) Authorize(context.Context, workflow.OAuthProvider) (*IdPCredential, error) {
	return s.cred, s.err
}

func newTestClient(t *testing.T, handler http.HandlerFunc, authorizer PopupAuthorizer) *FirebaseClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := &config.Config{
		FirebaseAPIKey:     "test-key",
		IdentityToolkitURL: srv.URL + "/v1",
		SecureTokenURL:     srv.URL + "/st",
		OAuthCallbackAddr:  "127.0.0.1:8765",
		HTTPClientTimeout:  5 * time.Second,
	}
	return NewFirebaseClient(cfg, authorizer, zap.NewNop())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestFirebaseClient_CreateAccount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts:signUp", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		var body passwordRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@b.com", body.Email)
		assert.True(t, body.ReturnSecureToken)
		writeJSON(w, http.StatusOK, map[string]string{
			"localId": "uid-1", "email": "a@b.com", "idToken": "tok", "refreshToken": "ref", "expiresIn": "3600",
		})
	}, nil)

	user, err := client.CreateAccount(context.Background(), "a@b.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", user.UID)
	assert.Equal(t, workflow.IdentityToken("tok"), user.IDToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), user.ExpiresAt, time.Minute)
}

func TestFirebaseClient_SignInErrorsAreTranslated(t *testing.T) {
	tests := []struct {
		message string
		want    workflow.ProviderCode
	}{
		{"EMAIL_NOT_FOUND", workflow.CodeUserNotFound},
		{"INVALID_PASSWORD", workflow.CodeWrongPassword},
		{"INVALID_LOGIN_CREDENTIALS", workflow.CodeInvalidCredential},
		{"TOO_MANY_ATTEMPTS_TRY_LATER : Access to this account has been temporarily disabled", workflow.CodeTooManyRequests},
		{"USER_DISABLED", workflow.CodeUserDisabled},
		{"SOMETHING_ELSE", workflow.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/accounts:signInWithPassword", r.URL.Path)
				writeJSON(w, http.StatusBadRequest, map[string]interface{}{
					"error": map[string]interface{}{"code": 400, "message": tt.message},
				})
			}, nil)

			_, err := client.SignIn(context.Background(), "a@b.com", "secret")
			require.Error(t, err)
			assert.True(t, isProviderCode(err, tt.want), "got %v", err)
		})
	}
}

func TestFirebaseClient_NonJSONErrorIsInternal(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}, nil)

	_, err := client.SignIn(context.Background(), "a@b.com", "secret")
	assert.True(t, isProviderCode(err, workflow.CodeInternalError))
}

func TestFirebaseClient_GetTokenRefreshesNearExpiry(t *testing.T) {
	refreshCalls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/st/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "ref-old", r.PostForm.Get("refresh_token"))
		refreshCalls++
		writeJSON(w, http.StatusOK, map[string]string{
			"id_token": "tok-new", "refresh_token": "ref-new", "expires_in": "3600", "user_id": "uid-1",
		})
	}, nil)

	fresh := &workflow.ProviderUser{UID: "uid-1", IDToken: "tok-fresh", RefreshToken: "ref-old", ExpiresAt: time.Now().Add(time.Hour)}
	tok, err := client.GetToken(context.Background(), fresh)
	require.NoError(t, err)
	assert.Equal(t, workflow.IdentityToken("tok-fresh"), tok)
	assert.Zero(t, refreshCalls)

	stale := &workflow.ProviderUser{UID: "uid-1", IDToken: "tok-old", RefreshToken: "ref-old", ExpiresAt: time.Now().Add(time.Minute)}
	tok, err = client.GetToken(context.Background(), stale)
	require.NoError(t, err)
	assert.Equal(t, workflow.IdentityToken("tok-new"), tok)
	assert.Equal(t, "ref-new", stale.RefreshToken)
	assert.Equal(t, 1, refreshCalls)
}

func TestFirebaseClient_SignInWithPopup(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts:signInWithIdp", r.URL.Path)
		var body idpRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "access_token=gh-token&providerId=github.com", body.PostBody)
		assert.Equal(t, "http://127.0.0.1:8765", body.RequestURI)
		writeJSON(w, http.StatusOK, map[string]string{
			"localId": "uid-gh", "email": "jane@x.com", "photoUrl": "http://p/j.png", "idToken": "tok", "expiresIn": "3600",
		})
	}, stubAuthorizer{cred: &IdPCredential{ProviderID: githubProviderID, AccessToken: "gh-token"}})

	user, err := client.SignInWithPopup(context.Background(), workflow.ProviderGitHub)
	require.NoError(t, err)
	assert.Equal(t, "uid-gh", user.UID)
	assert.Equal(t, "jane@x.com", user.Email)
	assert.Empty(t, user.DisplayName)
	assert.Equal(t, "http://p/j.png", user.PhotoURL)
}

func TestFirebaseClient_SignInWithPopupCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("identity provider must not be called after cancellation")
	}, stubAuthorizer{err: workflow.NewProviderError(workflow.CodePopupClosedByUser, "")})

	_, err := client.SignInWithPopup(context.Background(), workflow.ProviderGoogle)
	assert.True(t, workflow.IsCancellation(err))
}

func TestFirebaseClient_NeedConfirmation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"email": "jane@x.com", "needConfirmation": true})
	}, stubAuthorizer{cred: &IdPCredential{ProviderID: googleProviderID, IDToken: "g"}})

	_, err := client.SignInWithPopup(context.Background(), workflow.ProviderGoogle)
	assert.True(t, isProviderCode(err, workflow.CodeAccountExistsWithDifferentCredential))
}

func TestFirebaseClient_UnreachableIsNetworkError(t *testing.T) {
	cfg := &config.Config{
		FirebaseAPIKey:     "k",
		IdentityToolkitURL: "http://127.0.0.1:1/v1",
		HTTPClientTimeout:  time.Second,
	}
	client := NewFirebaseClient(cfg, nil, zap.NewNop())

	_, err := client.SignIn(context.Background(), "a@b.com", "secret")
	assert.True(t, isProviderCode(err, workflow.CodeNetworkRequestFail))
}
