// File: internal/workflow/model.go
package workflow

import (
	"fmt"
	"strings"
	"time"

	"prepwise_auth/internal/shared"
)

// AuthMode selects which fields are required and which backend call is made.
type AuthMode int

const (
	SignIn AuthMode = iota
	SignUp
)

func (m AuthMode) String() string {
	switch m {
	case SignIn:
		return "sign-in"
	case SignUp:
		return "sign-up"
	default:
		return fmt.Sprintf("AuthMode(%d)", int(m))
	}
}

// ParseAuthMode accepts "sign-in" or "sign-up".
func ParseAuthMode(raw string) (AuthMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sign-in", "signin":
		return SignIn, nil
	case "sign-up", "signup":
		return SignUp, nil
	default:
		return SignIn, fmt.Errorf("unknown auth mode %q", raw)
	}
}

// Credentials exist only for the duration of one submission.
type Credentials struct {
	Name     string
	Email    string
	Password string
}

// IdentityToken is the short-lived proof issued by the identity provider.
// It is passed once to the session endpoint and never persisted.
type IdentityToken string

// ProviderUser is what the identity provider reports after authentication.
type ProviderUser struct {
	UID          string
	Email        string
	DisplayName  string
	PhotoURL     string
	IDToken      IdentityToken
	RefreshToken string
	ExpiresAt    time.Time
}

// OAuthProfile is forwarded to the session endpoint on OAuth login.
type OAuthProfile struct {
	UID         string
	DisplayName string
	Email       string
	PhotoURL    string
	Provider    string
}

// OAuthProvider names an interactive sign-in provider.
type OAuthProvider string

const (
	ProviderGoogle OAuthProvider = "google"
	ProviderGitHub OAuthProvider = "github"
)

// Supported reports whether p is a provider the workflow can drive.
func (p OAuthProvider) Supported() bool {
	switch p {
	case ProviderGoogle, ProviderGitHub:
		return true
	default:
		return false
	}
}

// State is the per-submission lifecycle.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateAwaitingProvider
	StateAwaitingBackend
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateAwaitingProvider:
		return "awaiting_provider"
	case StateAwaitingBackend:
		return "awaiting_backend"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// FailureKind classifies why a submission did not succeed.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureValidation
	FailureProvider
	FailureBackendRejection
	FailureCancelled
	FailureUnknown
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureValidation:
		return "validation"
	case FailureProvider:
		return "provider"
	case FailureBackendRejection:
		return "backend_rejection"
	case FailureCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome is what a submission returns to its caller. Message is always safe
// to show to the user; Err carries the classified cause for logging.
type Outcome struct {
	shared.SessionResult
	Failure FailureKind
	Err     error
}

// Cancelled reports whether the user backed out; callers should not treat it as an error.
func (o Outcome) Cancelled() bool {
	return o.Failure == FailureCancelled
}
