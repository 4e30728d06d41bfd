// File: internal/sessionclient/client.go
package sessionclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"prepwise_auth/internal/config"
	"prepwise_auth/internal/shared"
	"prepwise_auth/internal/workflow"

	"go.uber.org/zap"
)

const (
	registerPath = "/api/v1/auth/register"
	signInPath   = "/api/v1/auth/sign-in"
	oauthPath    = "/api/v1/auth/oauth"
)

// Client talks to the session endpoint over HTTP. The session cookie issued
// on sign-in is kept in the client's cookie jar.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ workflow.SessionClient = (*Client)(nil)

// New creates a session client for cfg.BackendBaseURL.
func New(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	if _, err := url.ParseRequestURI(cfg.BackendBaseURL); err != nil {
		return nil, fmt.Errorf("invalid backend base URL %q: %w", cfg.BackendBaseURL, err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	timeout := cfg.HTTPClientTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BackendBaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout, Jar: jar},
		logger:     logger.Named("SessionClient"),
	}, nil
}

// Register records a freshly created account.
func (c *Client) Register(ctx context.Context, req shared.RegisterRequest) (shared.SessionResult, error) {
	return c.call(ctx, registerPath, req)
}

// Authenticate exchanges an ID token for a session.
func (c *Client) Authenticate(ctx context.Context, req shared.AuthenticateRequest) (shared.SessionResult, error) {
	return c.call(ctx, signInPath, req)
}

// OAuthAuthenticate exchanges an OAuth-obtained ID token for a session.
func (c *Client) OAuthAuthenticate(ctx context.Context, req shared.OAuthAuthenticateRequest) (shared.SessionResult, error) {
	return c.call(ctx, oauthPath, req)
}

// call posts body and decodes the SessionResult. A non-2xx response with a
// decodable body is a rejection, not a transport error.
func (c *Client) call(ctx context.Context, path string, body interface{}) (shared.SessionResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return shared.SessionResult{}, fmt.Errorf("encoding request for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return shared.SessionResult{}, fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Session endpoint unreachable", zap.String("path", path), zap.Error(err))
		return shared.SessionResult{}, fmt.Errorf("calling %s: %w", path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return shared.SessionResult{}, fmt.Errorf("reading response from %s: %w", path, err)
	}

	var result shared.SessionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		c.logger.Error("Session endpoint returned an undecodable body",
			zap.String("path", path),
			zap.Int("status", res.StatusCode),
			zap.Error(err),
		)
		return shared.SessionResult{}, fmt.Errorf("unexpected response from %s (%s): %w", path, res.Status, err)
	}

	if res.StatusCode >= http.StatusMultipleChoices {
		// Success is only meaningful on a 2xx.
		result.Success = false
	}
	c.logger.Debug("Session endpoint answered",
		zap.String("path", path),
		zap.Int("status", res.StatusCode),
		zap.Bool("success", result.Success),
	)
	return result, nil
}
