// File: internal/workflow/controller.go
package workflow

import (
	"context"
	"errors"
	"strings"

	"prepwise_auth/internal/config"
	"prepwise_auth/internal/shared"

	"go.uber.org/zap"
)

// Controller runs credential submissions: validate, authenticate with the
// identity provider, then exchange the result for a backend session.
// It keeps no per-submission state; see Guard for re-entry protection.
type Controller struct {
	provider    ProviderClient
	sessions    SessionClient
	navigator   Navigator
	notifier    Notifier
	validator   *Validator
	observer    StateObserver
	destination string
	logger      *zap.Logger
}

// NewController creates a new workflow controller. notifier may be nil.
func NewController(
	provider ProviderClient,
	sessions SessionClient,
	navigator Navigator,
	notifier Notifier,
	cfg *config.Config,
	logger *zap.Logger,
) *Controller {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	destination := "/dashboard"
	if cfg != nil && cfg.DashboardPath != "" {
		destination = cfg.DashboardPath
	}
	return &Controller{
		provider:    provider,
		sessions:    sessions,
		navigator:   navigator,
		notifier:    notifier,
		validator:   NewValidator(),
		destination: destination,
		logger:      logger.Named("WorkflowController"),
	}
}

// WithObserver returns a copy of c that reports state transitions to obs.
func (c *Controller) WithObserver(obs StateObserver) *Controller {
	cp := *c
	cp.observer = obs
	return &cp
}

// flow holds the per-operation wording used when finishing a submission.
type flow struct {
	name          string
	rejectionText string // used when the backend rejects without a message
	successText   string
	failurePrefix string
}

var (
	signUpFlow = flow{name: "sign-up", rejectionText: MsgSignUpFailed, successText: MsgAccountCreated}
	signInFlow = flow{name: "sign-in", rejectionText: MsgSignInFailed, successText: MsgLoggedIn}
	oauthFlow  = flow{name: "oauth", rejectionText: MsgOAuthFailed, successText: MsgLoggedIn, failurePrefix: MsgOAuthFailurePrefix}
)

type submission struct {
	flow     flow
	observer StateObserver
	state    State
}

func (s *submission) to(st State) {
	s.state = st
	if s.observer != nil {
		s.observer(st)
	}
}

func (c *Controller) begin(f flow) *submission {
	sub := &submission{flow: f, observer: c.observer}
	sub.to(StateIdle)
	return sub
}

// SubmitPasswordCredentials runs an email/password sign-in or sign-up.
func (c *Controller) SubmitPasswordCredentials(ctx context.Context, mode AuthMode, creds Credentials) Outcome {
	f := signInFlow
	if mode == SignUp {
		f = signUpFlow
	}
	sub := c.begin(f)

	sub.to(StateValidating)
	if err := c.validator.Validate(mode, creds); err != nil {
		return c.fail(sub, FailureValidation, validationMessage(err), err)
	}

	if mode == SignUp {
		return c.signUp(ctx, sub, creds)
	}
	return c.signIn(ctx, sub, creds)
}

func (c *Controller) signUp(ctx context.Context, sub *submission, creds Credentials) Outcome {
	sub.to(StateAwaitingProvider)
	user, err := c.provider.CreateAccount(ctx, creds.Email, creds.Password)
	if err != nil {
		kind, msg := classifyProviderError(err)
		return c.fail(sub, kind, msg, err)
	}

	sub.to(StateAwaitingBackend)
	result, err := c.sessions.Register(ctx, shared.RegisterRequest{
		UID:      user.UID,
		Name:     creds.Name,
		Email:    creds.Email,
		Password: creds.Password,
	})
	return c.finish(ctx, sub, result, err)
}

func (c *Controller) signIn(ctx context.Context, sub *submission, creds Credentials) Outcome {
	sub.to(StateAwaitingProvider)
	user, err := c.provider.SignIn(ctx, creds.Email, creds.Password)
	if err != nil {
		kind, msg := classifyProviderError(err)
		return c.fail(sub, kind, msg, err)
	}
	token, err := c.provider.GetToken(ctx, user)
	if err != nil {
		kind, msg := classifyProviderError(err)
		return c.fail(sub, kind, msg, err)
	}
	if token == "" {
		return c.fail(sub, FailureUnknown, MsgTokenNotFound, ErrTokenNotFound)
	}

	sub.to(StateAwaitingBackend)
	result, err := c.sessions.Authenticate(ctx, shared.AuthenticateRequest{
		Email:   creds.Email,
		IDToken: string(token),
	})
	return c.finish(ctx, sub, result, err)
}

// SubmitOAuthCredentials runs an interactive sign-in with providerName
// ("google" or "github") and establishes a session for the returned account.
func (c *Controller) SubmitOAuthCredentials(ctx context.Context, providerName string) Outcome {
	sub := c.begin(oauthFlow)

	sub.to(StateValidating)
	provider := OAuthProvider(strings.ToLower(strings.TrimSpace(providerName)))
	if !provider.Supported() {
		return c.fail(sub, FailureValidation, MsgOAuthFailurePrefix+MsgUnsupportedProvider, ErrUnsupportedProvider)
	}

	sub.to(StateAwaitingProvider)
	user, err := c.provider.SignInWithPopup(ctx, provider)
	if err != nil {
		if IsCancellation(err) {
			return c.fail(sub, FailureCancelled, MsgCancelled, err)
		}
		kind, msg := classifyProviderError(err)
		return c.fail(sub, kind, MsgOAuthFailurePrefix+msg, err)
	}
	if strings.TrimSpace(user.Email) == "" {
		return c.fail(sub, FailureProvider, MsgEmailUnavailable, ErrEmailUnavailable)
	}
	token, err := c.provider.GetToken(ctx, user)
	if err != nil {
		kind, msg := classifyProviderError(err)
		return c.fail(sub, kind, MsgOAuthFailurePrefix+msg, err)
	}
	if token == "" {
		return c.fail(sub, FailureUnknown, MsgOAuthFailurePrefix+MsgAuthenticationError, ErrTokenNotFound)
	}

	profile := OAuthProfile{
		UID:         user.UID,
		DisplayName: DeriveDisplayName(user.DisplayName, user.Email),
		Email:       user.Email,
		PhotoURL:    user.PhotoURL,
		Provider:    string(provider),
	}

	sub.to(StateAwaitingBackend)
	result, err := c.sessions.OAuthAuthenticate(ctx, shared.OAuthAuthenticateRequest{
		UID:      profile.UID,
		Name:     profile.DisplayName,
		Email:    profile.Email,
		PhotoURL: profile.PhotoURL,
		Provider: profile.Provider,
		IDToken:  string(token),
	})
	return c.finish(ctx, sub, result, err)
}

// finish maps the backend answer to an Outcome and emits the proceed signal on success.
func (c *Controller) finish(ctx context.Context, sub *submission, result shared.SessionResult, err error) Outcome {
	if err != nil {
		return c.fail(sub, FailureUnknown, sub.flow.failurePrefix+MsgAuthenticationError, err)
	}
	if !result.Success {
		msg := result.Message
		if strings.TrimSpace(msg) == "" {
			msg = sub.flow.rejectionText
		}
		return c.fail(sub, FailureBackendRejection, msg, &BackendRejection{Message: msg})
	}

	sub.to(StateSucceeded)
	c.logger.Info("Submission succeeded", zap.String("flow", sub.flow.name))
	c.notifier.Success(sub.flow.successText)
	c.navigator.Proceed(ctx, c.destination)
	return Outcome{SessionResult: shared.Succeeded(sub.flow.successText)}
}

func (c *Controller) fail(sub *submission, kind FailureKind, message string, err error) Outcome {
	sub.to(StateFailed)
	fields := []zap.Field{
		zap.String("flow", sub.flow.name),
		zap.Stringer("failure", kind),
		zap.Error(err),
	}
	switch kind {
	case FailureCancelled, FailureValidation:
		c.logger.Info("Submission not completed", fields...)
	case FailureUnknown:
		c.logger.Error("Submission failed", fields...)
	default:
		c.logger.Warn("Submission failed", fields...)
	}
	c.notifier.Error(message)
	return Outcome{SessionResult: shared.Rejected(message), Failure: kind, Err: err}
}

// DeriveDisplayName returns displayName, or the local part of email when it is blank.
func DeriveDisplayName(displayName, email string) string {
	if name := strings.TrimSpace(displayName); name != "" {
		return name
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}

func validationMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message()
	}
	return MsgAuthenticationError
}
