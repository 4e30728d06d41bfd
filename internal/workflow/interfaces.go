// File: internal/workflow/interfaces.go
package workflow

import (
	"context"

	"prepwise_auth/internal/shared"
)

// ProviderClient is the identity provider as seen by the workflow.
// Failures the provider reports itself are returned as *ProviderError.
type ProviderClient interface {
	CreateAccount(ctx context.Context, email, password string) (*ProviderUser, error)
	SignIn(ctx context.Context, email, password string) (*ProviderUser, error)
	SignInWithPopup(ctx context.Context, provider OAuthProvider) (*ProviderUser, error)
	GetToken(ctx context.Context, user *ProviderUser) (IdentityToken, error)
}

// SessionClient is the backend session endpoint.
type SessionClient interface {
	Register(ctx context.Context, req shared.RegisterRequest) (shared.SessionResult, error)
	Authenticate(ctx context.Context, req shared.AuthenticateRequest) (shared.SessionResult, error)
	OAuthAuthenticate(ctx context.Context, req shared.OAuthAuthenticateRequest) (shared.SessionResult, error)
}

// Navigator receives the "proceed to authenticated area" signal.
type Navigator interface {
	Proceed(ctx context.Context, destination string)
}

// Notifier shows transient feedback (toast/banner) to the user.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// StateObserver is told about every state transition of a submission.
type StateObserver func(State)

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, destination string)

func (f NavigatorFunc) Proceed(ctx context.Context, destination string) { f(ctx, destination) }

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}
