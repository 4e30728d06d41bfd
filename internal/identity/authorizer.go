// File: internal/identity/authorizer.go
package identity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"prepwise_auth/internal/config"
	"prepwise_auth/internal/platform/crypto"
	"prepwise_auth/internal/workflow"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	callbackPath     = "/callback"
	googleIssuer     = "https://accounts.google.com"
	googleProviderID = "google.com"
	githubProviderID = "github.com"
)

// IdPCredential is what an interactive authorization yields before it is
// exchanged with the identity provider.
type IdPCredential struct {
	ProviderID  string
	IDToken     string
	AccessToken string
}

// PostBody encodes the credential the way accounts:signInWithIdp expects it.
func (c IdPCredential) PostBody() string {
	v := url.Values{}
	v.Set("providerId", c.ProviderID)
	if c.IDToken != "" {
		v.Set("id_token", c.IDToken)
	}
	if c.AccessToken != "" {
		v.Set("access_token", c.AccessToken)
	}
	return v.Encode()
}

// PopupAuthorizer performs the interactive part of an OAuth sign-in.
// A user who backs out must produce a ProviderError with CodePopupClosedByUser.
type PopupAuthorizer interface {
	Authorize(ctx context.Context, provider workflow.OAuthProvider) (*IdPCredential, error)
}

// LoopbackAuthorizer runs an authorization-code + PKCE flow against Google
// or GitHub with a one-shot callback server on the loopback interface.
type LoopbackAuthorizer struct {
	addr   string
	open   func(authURL string) error
	logger *zap.Logger

	googleClientID     string
	googleClientSecret string
	githubClientID     string
	githubClientSecret string
	githubEndpoint     oauth2.Endpoint

	mu           sync.Mutex
	googleOIDC   *oidc.Provider
	googleVerify *oidc.IDTokenVerifier
}

var _ PopupAuthorizer = (*LoopbackAuthorizer)(nil)

// NewLoopbackAuthorizer creates an authorizer. open is handed the provider's
// authorization URL; the CLI prints it for the user to visit.
func NewLoopbackAuthorizer(cfg *config.Config, open func(authURL string) error, logger *zap.Logger) *LoopbackAuthorizer {
	return &LoopbackAuthorizer{
		addr:               cfg.OAuthCallbackAddr,
		open:               open,
		logger:             logger.Named("LoopbackAuthorizer"),
		googleClientID:     cfg.GoogleClientID,
		googleClientSecret: cfg.GoogleClientSecret,
		githubClientID:     cfg.GitHubClientID,
		githubClientSecret: cfg.GitHubClientSecret,
		githubEndpoint:     github.Endpoint,
	}
}

type callbackResult struct {
	code    string
	state   string
	errCode string
}

// credentialFunc turns a token response into an IdP credential.
type credentialFunc func(ctx context.Context, tok *oauth2.Token) (*IdPCredential, error)

// Authorize implements PopupAuthorizer.
func (a *LoopbackAuthorizer) Authorize(ctx context.Context, provider workflow.OAuthProvider) (*IdPCredential, error) {
	ln, err := net.Listen("tcp", a.addr)
	if err != nil {
		return nil, &workflow.ProviderError{Code: workflow.CodeInternalError, Detail: "starting callback listener", Err: err}
	}
	redirectURL := "http://" + ln.Addr().String() + callbackPath

	oauthCfg, toCredential, err := a.configFor(ctx, provider, redirectURL)
	if err != nil {
		ln.Close()
		return nil, err
	}

	state, err := crypto.GenerateState()
	if err != nil {
		ln.Close()
		return nil, &workflow.ProviderError{Code: workflow.CodeInternalError, Detail: "generating state", Err: err}
	}
	verifier := oauth2.GenerateVerifier()

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		res := callbackResult{code: q.Get("code"), state: q.Get("state"), errCode: q.Get("error")}
		select {
		case results <- res:
		default:
		}
		if res.errCode != "" {
			fmt.Fprintln(w, "Sign-in was not completed. You can close this window.")
			return
		}
		fmt.Fprintln(w, "Sign-in complete. You can close this window.")
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("Callback server stopped", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
	a.logger.Debug("Waiting for authorization callback", zap.String("provider", string(provider)), zap.String("redirect", redirectURL))
	if err := a.open(authURL); err != nil {
		return nil, &workflow.ProviderError{Code: workflow.CodeInternalError, Detail: "opening authorization URL", Err: err}
	}

	var res callbackResult
	select {
	case <-ctx.Done():
		return nil, &workflow.ProviderError{Code: workflow.CodePopupClosedByUser, Detail: "authorization abandoned", Err: ctx.Err()}
	case res = <-results:
	}

	switch {
	case res.errCode == "access_denied":
		return nil, workflow.NewProviderError(workflow.CodePopupClosedByUser, res.errCode)
	case res.errCode != "":
		return nil, workflow.NewProviderError(workflow.CodeInvalidCredential, res.errCode)
	case res.state != state:
		return nil, workflow.NewProviderError(workflow.CodeInvalidCredential, "state mismatch")
	case res.code == "":
		return nil, workflow.NewProviderError(workflow.CodeInvalidCredential, "missing authorization code")
	}

	tok, err := oauthCfg.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, &workflow.ProviderError{Code: workflow.CodeInvalidCredential, Detail: "code exchange failed", Err: err}
	}
	return toCredential(ctx, tok)
}

func (a *LoopbackAuthorizer) configFor(ctx context.Context, provider workflow.OAuthProvider, redirectURL string) (*oauth2.Config, credentialFunc, error) {
	switch provider {
	case workflow.ProviderGoogle:
		if a.googleClientID == "" {
			return nil, nil, workflow.NewProviderError(workflow.CodeInternalError, "google oauth client not configured")
		}
		p, verifier, err := a.googleProvider(ctx)
		if err != nil {
			return nil, nil, err
		}
		cfg := &oauth2.Config{
			ClientID:     a.googleClientID,
			ClientSecret: a.googleClientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     p.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		}
		return cfg, func(ctx context.Context, tok *oauth2.Token) (*IdPCredential, error) {
			rawIDToken, ok := tok.Extra("id_token").(string)
			if !ok || rawIDToken == "" {
				return nil, workflow.NewProviderError(workflow.CodeInvalidCredential, "google did not return id_token")
			}
			if _, err := verifier.Verify(ctx, rawIDToken); err != nil {
				return nil, &workflow.ProviderError{Code: workflow.CodeInvalidCredential, Detail: "google id_token verification failed", Err: err}
			}
			return &IdPCredential{ProviderID: googleProviderID, IDToken: rawIDToken, AccessToken: tok.AccessToken}, nil
		}, nil

	case workflow.ProviderGitHub:
		if a.githubClientID == "" {
			return nil, nil, workflow.NewProviderError(workflow.CodeInternalError, "github oauth client not configured")
		}
		cfg := &oauth2.Config{
			ClientID:     a.githubClientID,
			ClientSecret: a.githubClientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     a.githubEndpoint,
			Scopes:       []string{"read:user", "user:email"},
		}
		return cfg, func(_ context.Context, tok *oauth2.Token) (*IdPCredential, error) {
			if tok.AccessToken == "" {
				return nil, workflow.NewProviderError(workflow.CodeInvalidCredential, "github did not return access_token")
			}
			return &IdPCredential{ProviderID: githubProviderID, AccessToken: tok.AccessToken}, nil
		}, nil

	default:
		return nil, nil, workflow.NewProviderError(workflow.CodeInternalError, "unsupported provider "+string(provider))
	}
}

// googleProvider performs OIDC discovery once and caches the result.
func (a *LoopbackAuthorizer) googleProvider(ctx context.Context) (*oidc.Provider, *oidc.IDTokenVerifier, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.googleOIDC != nil {
		return a.googleOIDC, a.googleVerify, nil
	}
	p, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, nil, &workflow.ProviderError{Code: workflow.CodeNetworkRequestFail, Detail: "google oidc discovery", Err: err}
	}
	a.googleOIDC = p
	a.googleVerify = p.Verifier(&oidc.Config{ClientID: a.googleClientID})
	return a.googleOIDC, a.googleVerify, nil
}
