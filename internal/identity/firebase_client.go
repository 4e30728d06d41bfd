// File: internal/identity/firebase_client.go
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"prepwise_auth/internal/config"
	"prepwise_auth/internal/workflow"

	"go.uber.org/zap"
)

// tokenRefreshLeeway is how long before expiry a cached ID token is refreshed.
const tokenRefreshLeeway = 5 * time.Minute

// FirebaseClient implements workflow.ProviderClient against the Firebase
// Identity Toolkit REST API.
type FirebaseClient struct {
	apiKey         string
	toolkitURL     string
	secureTokenURL string
	requestURI     string
	httpClient     *http.Client
	authorizer     PopupAuthorizer
	logger         *zap.Logger
	now            func() time.Time
}

var _ workflow.ProviderClient = (*FirebaseClient)(nil)

// NewFirebaseClient creates a provider client. authorizer may be nil when
// OAuth sign-in is not used.
func NewFirebaseClient(cfg *config.Config, authorizer PopupAuthorizer, logger *zap.Logger) *FirebaseClient {
	timeout := cfg.HTTPClientTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &FirebaseClient{
		apiKey:         cfg.FirebaseAPIKey,
		toolkitURL:     strings.TrimRight(cfg.IdentityToolkitURL, "/"),
		secureTokenURL: strings.TrimRight(cfg.SecureTokenURL, "/"),
		requestURI:     "http://" + cfg.OAuthCallbackAddr,
		httpClient:     &http.Client{Timeout: timeout},
		authorizer:     authorizer,
		logger:         logger.Named("FirebaseClient"),
		now:            time.Now,
	}
}

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type idpRequest struct {
	PostBody            string `json:"postBody"`
	RequestURI          string `json:"requestUri"`
	ReturnIdpCredential bool   `json:"returnIdpCredential"`
	ReturnSecureToken   bool   `json:"returnSecureToken"`
}

// authResponse covers signUp, signInWithPassword and signInWithIdp.
type authResponse struct {
	LocalID          string `json:"localId"`
	Email            string `json:"email"`
	DisplayName      string `json:"displayName"`
	PhotoURL         string `json:"photoUrl"`
	IDToken          string `json:"idToken"`
	RefreshToken     string `json:"refreshToken"`
	ExpiresIn        string `json:"expiresIn"`
	NeedConfirmation bool   `json:"needConfirmation"`
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateAccount registers a new email/password account.
func (c *FirebaseClient) CreateAccount(ctx context.Context, email, password string) (*workflow.ProviderUser, error) {
	var resp authResponse
	req := passwordRequest{Email: email, Password: password, ReturnSecureToken: true}
	if err := c.postJSON(ctx, c.toolkitURL+"/accounts:signUp", req, &resp); err != nil {
		return nil, err
	}
	c.logger.Info("Identity provider account created", zap.String("uid", resp.LocalID))
	return c.toUser(resp), nil
}

// SignIn verifies an email/password pair.
func (c *FirebaseClient) SignIn(ctx context.Context, email, password string) (*workflow.ProviderUser, error) {
	var resp authResponse
	req := passwordRequest{Email: email, Password: password, ReturnSecureToken: true}
	if err := c.postJSON(ctx, c.toolkitURL+"/accounts:signInWithPassword", req, &resp); err != nil {
		return nil, err
	}
	c.logger.Debug("Identity provider sign-in succeeded", zap.String("uid", resp.LocalID))
	return c.toUser(resp), nil
}

// SignInWithPopup runs the interactive authorization and exchanges the
// resulting IdP credential for a Firebase user.
func (c *FirebaseClient) SignInWithPopup(ctx context.Context, provider workflow.OAuthProvider) (*workflow.ProviderUser, error) {
	if c.authorizer == nil {
		return nil, workflow.NewProviderError(workflow.CodeInternalError, "no interactive authorizer configured")
	}
	cred, err := c.authorizer.Authorize(ctx, provider)
	if err != nil {
		return nil, err
	}

	var resp authResponse
	req := idpRequest{
		PostBody:            cred.PostBody(),
		RequestURI:          c.requestURI,
		ReturnIdpCredential: true,
		ReturnSecureToken:   true,
	}
	if err := c.postJSON(ctx, c.toolkitURL+"/accounts:signInWithIdp", req, &resp); err != nil {
		return nil, err
	}
	if resp.NeedConfirmation {
		return nil, workflow.NewProviderError(workflow.CodeAccountExistsWithDifferentCredential, resp.Email)
	}
	return c.toUser(resp), nil
}

// GetToken returns user's ID token, refreshing it when it is close to expiry.
func (c *FirebaseClient) GetToken(ctx context.Context, user *workflow.ProviderUser) (workflow.IdentityToken, error) {
	if user == nil {
		return "", workflow.NewProviderError(workflow.CodeInternalError, "no signed-in user")
	}
	fresh := user.ExpiresAt.IsZero() || c.now().Add(tokenRefreshLeeway).Before(user.ExpiresAt)
	if user.IDToken != "" && fresh {
		return user.IDToken, nil
	}
	if user.RefreshToken == "" {
		return user.IDToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", user.RefreshToken)

	var resp refreshResponse
	if err := c.post(ctx, c.secureTokenURL+"/token", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), &resp); err != nil {
		return "", err
	}
	user.IDToken = workflow.IdentityToken(resp.IDToken)
	user.RefreshToken = resp.RefreshToken
	user.ExpiresAt = c.expiry(resp.ExpiresIn)
	return user.IDToken, nil
}

func (c *FirebaseClient) toUser(resp authResponse) *workflow.ProviderUser {
	return &workflow.ProviderUser{
		UID:          resp.LocalID,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		PhotoURL:     resp.PhotoURL,
		IDToken:      workflow.IdentityToken(resp.IDToken),
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    c.expiry(resp.ExpiresIn),
	}
}

func (c *FirebaseClient) expiry(expiresIn string) time.Time {
	secs, err := strconv.Atoi(expiresIn)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return c.now().Add(time.Duration(secs) * time.Second)
}

func (c *FirebaseClient) postJSON(ctx context.Context, endpoint string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding identity provider request: %w", err)
	}
	return c.post(ctx, endpoint, "application/json", bytes.NewReader(payload), out)
}

func (c *FirebaseClient) post(ctx context.Context, endpoint, contentType string, body io.Reader, out interface{}) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid identity provider URL %q: %w", endpoint, err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), body)
	if err != nil {
		return fmt.Errorf("building identity provider request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Identity provider unreachable", zap.String("endpoint", u.Path), zap.Error(err))
		return &workflow.ProviderError{Code: workflow.CodeNetworkRequestFail, Detail: u.Path, Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return &workflow.ProviderError{Code: workflow.CodeNetworkRequestFail, Detail: "reading response", Err: err}
	}

	if res.StatusCode >= http.StatusBadRequest {
		var apiErr apiErrorBody
		if jsonErr := json.Unmarshal(raw, &apiErr); jsonErr != nil || apiErr.Error.Message == "" {
			return workflow.NewProviderError(workflow.CodeInternalError, res.Status)
		}
		perr := TranslateError(apiErr.Error.Message)
		c.logger.Debug("Identity provider rejected request",
			zap.String("endpoint", u.Path),
			zap.Int("status", res.StatusCode),
			zap.String("code", string(perr.Code)),
		)
		return perr
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &workflow.ProviderError{Code: workflow.CodeInternalError, Detail: "decoding response", Err: err}
	}
	return nil
}

// TranslateError maps an Identity Toolkit error message such as
// "WEAK_PASSWORD : Password should be at least 6 characters" to a provider code.
func TranslateError(message string) *workflow.ProviderError {
	reason, _, _ := strings.Cut(message, " ")
	reason = strings.TrimSpace(reason)

	var code workflow.ProviderCode
	switch reason {
	case "EMAIL_EXISTS":
		code = workflow.CodeEmailAlreadyInUse
	case "EMAIL_NOT_FOUND":
		code = workflow.CodeUserNotFound
	case "INVALID_PASSWORD":
		code = workflow.CodeWrongPassword
	case "INVALID_LOGIN_CREDENTIALS", "INVALID_IDP_RESPONSE", "INVALID_REFRESH_TOKEN", "TOKEN_EXPIRED":
		code = workflow.CodeInvalidCredential
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		code = workflow.CodeTooManyRequests
	case "USER_DISABLED":
		code = workflow.CodeUserDisabled
	case "INVALID_EMAIL", "MISSING_EMAIL":
		code = workflow.CodeInvalidEmail
	case "WEAK_PASSWORD", "MISSING_PASSWORD":
		code = workflow.CodeWeakPassword
	default:
		code = workflow.CodeInternalError
	}
	return workflow.NewProviderError(code, message)
}
